package shell

import (
	"context"
	"log/slog"
	"os"

	"github.com/roach88/sqlrunner/internal/backend"
	"github.com/roach88/sqlrunner/internal/config"
	"github.com/roach88/sqlrunner/internal/sandbox"
	"github.com/roach88/sqlrunner/internal/script"
)

// Session is a started shell. It is owned by the Shell that created it and
// stops when that Shell is closed.
type Session struct {
	id     string
	client backend.Client
	conf   *config.Conf
	sb     *sandbox.Sandbox
	output OutputPolicy
	logger *slog.Logger
	closed bool
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Client returns the live backend client for direct access.
func (s *Session) Client() (backend.Client, error) {
	if s.closed {
		return nil, illegalState("Client", "session is closed")
	}
	return s.client, nil
}

// Conf returns the live backend configuration: defaults merged with the
// registered properties, plus any changes the backend has made since.
func (s *Session) Conf() *config.Conf {
	return s.conf
}

// BaseDir returns the sandbox the session runs in.
func (s *Session) BaseDir() *sandbox.Sandbox {
	return s.sb
}

// OutputPolicy returns the ExecuteQuery policy in effect.
func (s *Session) OutputPolicy() OutputPolicy {
	return s.output
}

// Execute runs every statement in src, in order, discarding their rows.
func (s *Session) Execute(ctx context.Context, src string) error {
	_, err := s.run(ctx, "Execute", src)
	return err
}

// ExecuteQuery runs every statement in src, in order, and returns rows
// according to the output policy: the last statement's rows (OutputLast) or
// all rows concatenated (OutputAll). The result is empty, not nil, when no
// rows were produced.
func (s *Session) ExecuteQuery(ctx context.Context, src string) ([]string, error) {
	return s.run(ctx, "ExecuteQuery", src)
}

// ExecuteFile reads a script from path and runs it like Execute.
func (s *Session) ExecuteFile(ctx context.Context, path string) error {
	const op = "ExecuteFile"
	if s.closed {
		return illegalState(op, "session is closed")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return newError(ErrCodeResource, op, "cannot read script", err)
	}
	_, err = s.run(ctx, op, string(data))
	return err
}

func (s *Session) run(ctx context.Context, op, src string) ([]string, error) {
	if s.closed {
		return nil, illegalState(op, "session is closed")
	}

	out := []string{}
	for i, stmt := range script.Split(src) {
		s.logger.Debug("executing statement", "session", s.id, "index", i, "statement", stmt)

		rows, err := s.client.Execute(ctx, stmt)
		if err != nil {
			s.logger.Warn("statement failed",
				"session", s.id,
				"index", i,
				"statement", stmt,
				"error", err,
			)
			return nil, executionError(op, i, stmt, err)
		}

		if s.output == OutputAll {
			out = append(out, rows...)
		} else {
			out = append([]string{}, rows...)
		}
	}
	return out, nil
}

func (s *Session) close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}
