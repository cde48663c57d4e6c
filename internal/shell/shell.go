package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/sqlrunner/internal/backend"
	"github.com/roach88/sqlrunner/internal/config"
	"github.com/roach88/sqlrunner/internal/sandbox"
	"github.com/roach88/sqlrunner/internal/stage"
)

// State is the lifecycle phase of a Shell.
type State int

const (
	StateCreated State = iota
	StateStarted
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarted:
		return "started"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// OutputPolicy selects which statements' rows ExecuteQuery returns.
type OutputPolicy string

const (
	// OutputLast returns the rows of the last statement only.
	OutputLast OutputPolicy = "last"

	// OutputAll returns the rows of every statement, in order.
	OutputAll OutputPolicy = "all"
)

// ParseOutputPolicy parses "last" or "all". An empty string yields OutputLast.
func ParseOutputPolicy(s string) (OutputPolicy, error) {
	switch OutputPolicy(s) {
	case "", OutputLast:
		return OutputLast, nil
	case OutputAll:
		return OutputAll, nil
	default:
		return "", fmt.Errorf("invalid output policy %q: must be %q or %q", s, OutputLast, OutputAll)
	}
}

// Options configures a Shell. The zero value is usable.
type Options struct {
	// Launcher starts the backend. Defaults to backend.SQLite.
	Launcher backend.Launcher

	// Defaults are the backend properties overrides are merged over.
	// Defaults to backend.DefaultProperties().
	Defaults config.Properties

	// Output is the ExecuteQuery policy. Defaults to OutputLast.
	Output OutputPolicy

	// IDs generates session ids. Defaults to UUIDv7Generator.
	IDs IDGenerator

	// Logger receives lifecycle and statement logs. Defaults to discarding.
	Logger *slog.Logger
}

// Shell is a configurable, not yet running, backend. It owns its sandbox.
// A Shell is not safe for concurrent use.
type Shell struct {
	sb       *sandbox.Sandbox
	launcher backend.Launcher
	defaults config.Properties
	output   OutputPolicy
	ids      IDGenerator
	logger   *slog.Logger

	state    State
	registry *config.Registry
	stager   *stage.Stager
	session  *Session
}

// New creates a Shell in sb.
func New(sb *sandbox.Sandbox, opts Options) *Shell {
	s := &Shell{
		sb:       sb,
		launcher: opts.Launcher,
		defaults: opts.Defaults,
		output:   opts.Output,
		ids:      opts.IDs,
		logger:   opts.Logger,
		state:    StateCreated,
		registry: config.NewRegistry(),
		stager:   stage.New(),
	}
	if s.launcher == nil {
		s.launcher = backend.SQLite{}
	}
	if s.defaults == nil {
		s.defaults = backend.DefaultProperties()
	}
	if s.output == "" {
		s.output = OutputLast
	}
	if s.ids == nil {
		s.ids = UUIDv7Generator{}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// State returns the current lifecycle phase.
func (s *Shell) State() State {
	return s.state
}

// BaseDir returns the sandbox. Valid in any state.
func (s *Shell) BaseDir() *sandbox.Sandbox {
	return s.sb
}

// SetProperty registers a backend property, replacing any earlier value for
// key. May only be called before Start.
func (s *Shell) SetProperty(key, value string) error {
	const op = "SetProperty"
	if err := s.requireCreated(op); err != nil {
		return err
	}
	if err := s.registry.Set(key, value); err != nil {
		if errors.Is(err, config.ErrEmptyKey) {
			return newError(ErrCodeInvalidArgument, op, "invalid property", err)
		}
		return newError(ErrCodeIllegalState, op, "configuration is frozen", err)
	}
	return nil
}

// AddResource queues literal data to be written to the virtual path target
// at Start. May only be called before Start.
func (s *Shell) AddResource(target, data string) error {
	const op = "AddResource"
	if err := s.requireCreated(op); err != nil {
		return err
	}
	if err := s.stager.AddData(target, []byte(data)); err != nil {
		return newError(ErrCodeResource, op, "cannot stage resource", err)
	}
	return nil
}

// AddResourceFile queues a copy of the local file source to the virtual
// path target at Start. The source must be readable now. May only be called
// before Start.
func (s *Shell) AddResourceFile(target, source string) error {
	const op = "AddResourceFile"
	if err := s.requireCreated(op); err != nil {
		return err
	}
	if err := s.stager.AddFile(target, source); err != nil {
		return newError(ErrCodeResource, op, "cannot stage resource", err)
	}
	return nil
}

// SetOutputPolicy changes the ExecuteQuery policy. May only be called before
// Start.
func (s *Shell) SetOutputPolicy(p OutputPolicy) error {
	const op = "SetOutputPolicy"
	if err := s.requireCreated(op); err != nil {
		return err
	}
	parsed, err := ParseOutputPolicy(string(p))
	if err != nil {
		return newError(ErrCodeInvalidArgument, op, "invalid output policy", err)
	}
	s.output = parsed
	return nil
}

// ApplyProfile registers a profile's properties, resources and output
// policy. May only be called before Start.
func (s *Shell) ApplyProfile(p *config.Profile) error {
	if err := p.Apply(s); err != nil {
		return err
	}
	if p.Output != "" {
		return s.SetOutputPolicy(OutputPolicy(p.Output))
	}
	return nil
}

// Start stages resources, launches the backend and returns the running
// Session. It may only succeed once. On failure the shell stays in
// StateCreated and may be reconfigured and started again.
func (s *Shell) Start(ctx context.Context) (*Session, error) {
	const op = "Start"
	switch s.state {
	case StateStarted:
		return nil, illegalState(op, "shell already started")
	case StateClosed:
		return nil, illegalState(op, "shell is closed")
	}

	overrides := s.registry.Snapshot()

	if err := s.stager.Materialize(s.sb); err != nil {
		s.logger.Error("resource staging failed", "error", err)
		return nil, newError(ErrCodeResource, op, "failed to stage resources", err)
	}

	conf := config.NewConf(s.defaults, overrides)
	client, err := s.launcher.Launch(ctx, conf, s.sb)
	if err != nil {
		s.logger.Error("backend launch failed", "error", err)
		return nil, newError(ErrCodeStartup, op, "backend failed to start", err)
	}
	if client == nil {
		return nil, newError(ErrCodeStartup, op, "launcher returned no client", nil)
	}

	s.registry.Freeze()
	s.session = &Session{
		id:     s.ids.Generate(),
		client: client,
		conf:   conf,
		sb:     s.sb,
		output: s.output,
		logger: s.logger,
	}
	s.state = StateStarted

	s.logger.Info("shell started",
		"session", s.session.id,
		"sandbox", s.sb.Dir(),
		"properties", len(overrides),
		"resources", s.stager.Len(),
	)
	return s.session, nil
}

// Session returns the running session. Fails before Start and after Close.
func (s *Shell) Session() (*Session, error) {
	switch s.state {
	case StateCreated:
		return nil, illegalState("Session", "shell not started")
	case StateClosed:
		return nil, illegalState("Session", "shell is closed")
	}
	return s.session, nil
}

// Close stops the backend and releases the sandbox. Calling Close on a shell
// that never started, or more than once, is safe.
func (s *Shell) Close() error {
	if s.state == StateClosed {
		return nil
	}

	var errs []error
	if s.session != nil {
		if err := s.session.close(); err != nil {
			errs = append(errs, fmt.Errorf("close backend: %w", err))
		}
		s.logger.Info("shell stopped", "session", s.session.id)
	}
	if err := s.sb.Release(); err != nil {
		errs = append(errs, err)
	}
	s.state = StateClosed
	return errors.Join(errs...)
}

func (s *Shell) requireCreated(op string) error {
	switch s.state {
	case StateStarted:
		return illegalState(op, "may only be called before Start")
	case StateClosed:
		return illegalState(op, "shell is closed")
	}
	return nil
}
