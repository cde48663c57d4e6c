// Package sandbox provides the per-test directory a shell runs in.
//
// A sandbox directory holds everything a backend instance touches: its
// database files and, under FSRoot, the virtual filesystem that staged
// resources are copied into. Virtual paths are always relative to FSRoot and
// may not escape it.
package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// fsDir is the FSRoot directory name inside a sandbox.
const fsDir = "fs"

// ErrInvalidPath is returned for virtual paths that are empty, absolute, or
// escape the filesystem root.
var ErrInvalidPath = errors.New("invalid virtual path")

// Sandbox is an isolated directory owned by one shell.
type Sandbox struct {
	dir      string
	owned    bool
	released bool
}

// New creates a fresh sandbox directory under parent, named
// sqlrunner-<uuidv7>. The sandbox owns the directory and Release removes it.
// An empty parent means os.TempDir().
func New(parent string) (*Sandbox, error) {
	if parent == "" {
		parent = os.TempDir()
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate sandbox id: %w", err)
	}
	dir := filepath.Join(parent, "sqlrunner-"+id.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sandbox: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve sandbox: %w", err)
	}
	return &Sandbox{dir: abs, owned: true}, nil
}

// Attach wraps a directory whose lifetime is managed elsewhere, such as
// testing.T.TempDir. The directory is created if missing; Release leaves it
// in place.
func Attach(dir string) (*Sandbox, error) {
	if dir == "" {
		return nil, fmt.Errorf("attach sandbox: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("attach sandbox: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("attach sandbox: %w", err)
	}
	return &Sandbox{dir: abs}, nil
}

// Dir returns the absolute sandbox directory.
func (s *Sandbox) Dir() string {
	return s.dir
}

// FSRoot returns the root of the virtual filesystem inside the sandbox.
func (s *Sandbox) FSRoot() string {
	return filepath.Join(s.dir, fsDir)
}

// Owned reports whether Release deletes the directory.
func (s *Sandbox) Owned() bool {
	return s.owned
}

// Resolve maps a slash-separated virtual path to its absolute location under
// FSRoot.
func (s *Sandbox) Resolve(virtual string) (string, error) {
	if err := ValidatePath(virtual); err != nil {
		return "", err
	}
	return filepath.Join(s.FSRoot(), filepath.FromSlash(virtual)), nil
}

// ValidatePath checks that virtual is a non-empty relative path that stays
// within the filesystem root.
func ValidatePath(virtual string) error {
	if virtual == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	local := filepath.FromSlash(virtual)
	if !filepath.IsLocal(local) {
		return fmt.Errorf("%w: %q escapes the sandbox root", ErrInvalidPath, virtual)
	}
	if filepath.Clean(local) == "." {
		return fmt.Errorf("%w: %q names the sandbox root", ErrInvalidPath, virtual)
	}
	return nil
}

// Release removes an owned sandbox directory. Attached sandboxes are left on
// disk. Calling Release more than once is a no-op.
func (s *Sandbox) Release() error {
	if s.released {
		return nil
	}
	s.released = true
	if !s.owned {
		return nil
	}
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("remove sandbox: %w", err)
	}
	return nil
}

// Keep disowns the directory so Release leaves it on disk for inspection.
func (s *Sandbox) Keep() {
	s.owned = false
}

// Released reports whether Release has been called.
func (s *Sandbox) Released() bool {
	return s.released
}
