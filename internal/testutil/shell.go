// Package testutil provides helpers for tests that drive a shell.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlrunner/internal/sandbox"
	"github.com/roach88/sqlrunner/internal/shell"
)

// NewShell creates a shell in a sandbox under t.TempDir() and closes it when
// the test ends. Session ids are deterministic unless opts.IDs is set.
func NewShell(t testing.TB, opts shell.Options) *shell.Shell {
	t.Helper()

	sb, err := sandbox.Attach(t.TempDir())
	require.NoError(t, err, "attach sandbox")

	if opts.IDs == nil {
		opts.IDs = NewFixedIDGenerator("")
	}

	sh := shell.New(sb, opts)
	t.Cleanup(func() {
		if err := sh.Close(); err != nil {
			t.Errorf("close shell: %v", err)
		}
	})
	return sh
}

// StartShell is NewShell followed by Start. configure, if non-nil, runs
// before Start to register properties and resources.
func StartShell(t testing.TB, opts shell.Options, configure func(*shell.Shell)) *shell.Session {
	t.Helper()

	sh := NewShell(t, opts)
	if configure != nil {
		configure(sh)
	}

	sess, err := sh.Start(context.Background())
	require.NoError(t, err, "start shell")
	return sess
}

// WriteFile writes content to a new file under t.TempDir() and returns its
// path. Useful as a source for AddResourceFile.
func WriteFile(t testing.TB, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
