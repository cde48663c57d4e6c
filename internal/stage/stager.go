// Package stage queues fixture resources and copies them into a sandbox's
// virtual filesystem when the shell starts.
package stage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/roach88/sqlrunner/internal/sandbox"
)

// Request is one queued resource. Exactly one of Source and Data is used:
// Source when non-empty, otherwise Data.
type Request struct {
	Target string
	Source string
	Data   []byte
}

// Error reports a resource that could not be queued or copied.
type Error struct {
	Target string
	Source string
	Err    error
}

func (e *Error) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("resource %s (from %s): %v", e.Target, e.Source, e.Err)
	}
	return fmt.Sprintf("resource %s: %v", e.Target, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Stager holds resources in insertion order until Materialize.
type Stager struct {
	pending []Request
}

// New creates an empty stager.
func New() *Stager {
	return &Stager{}
}

// AddFile queues a copy of the local file source to target. The source must
// be a readable regular file now; it is read again at Materialize.
func (s *Stager) AddFile(target, source string) error {
	if err := sandbox.ValidatePath(target); err != nil {
		return &Error{Target: target, Source: source, Err: err}
	}
	if err := checkReadable(source); err != nil {
		return &Error{Target: target, Source: source, Err: err}
	}
	s.pending = append(s.pending, Request{Target: target, Source: source})
	return nil
}

// AddData queues literal content for target. data is copied.
func (s *Stager) AddData(target string, data []byte) error {
	if err := sandbox.ValidatePath(target); err != nil {
		return &Error{Target: target, Err: err}
	}
	s.pending = append(s.pending, Request{Target: target, Data: bytes.Clone(data)})
	return nil
}

// Pending returns the queued requests in insertion order.
func (s *Stager) Pending() []Request {
	out := make([]Request, len(s.pending))
	copy(out, s.pending)
	return out
}

// Len returns the number of queued requests.
func (s *Stager) Len() int {
	return len(s.pending)
}

// Materialize writes every queued request into sb in insertion order. A
// later request for the same target overwrites an earlier one. It stops at
// the first failure.
func (s *Stager) Materialize(sb *sandbox.Sandbox) error {
	for _, req := range s.pending {
		if err := materialize(sb, req); err != nil {
			return err
		}
	}
	return nil
}

func materialize(sb *sandbox.Sandbox, req Request) error {
	wrap := func(err error) error {
		return &Error{Target: req.Target, Source: req.Source, Err: err}
	}

	dst, err := sb.Resolve(req.Target)
	if err != nil {
		return wrap(err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return wrap(fmt.Errorf("create parent: %w", err))
	}

	if req.Source == "" {
		if err := os.WriteFile(dst, req.Data, 0o644); err != nil {
			return wrap(fmt.Errorf("write: %w", err))
		}
		return nil
	}

	if err := copyFile(dst, req.Source); err != nil {
		return wrap(err)
	}
	return nil
}

func copyFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create target: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close target: %w", err)
	}
	return nil
}

func checkReadable(path string) error {
	if path == "" {
		return fmt.Errorf("source path is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("source is not a regular file")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}
