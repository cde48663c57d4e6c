package sandbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CreatesOwnedDirectory(t *testing.T) {
	parent := t.TempDir()

	sb, err := New(parent)
	require.NoError(t, err)

	assert.True(t, sb.Owned())
	assert.True(t, strings.HasPrefix(filepath.Base(sb.Dir()), "sqlrunner-"))
	assert.Equal(t, parent, filepath.Dir(sb.Dir()))

	info, err := os.Stat(sb.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNew_UniqueDirectories(t *testing.T) {
	parent := t.TempDir()
	a, err := New(parent)
	require.NoError(t, err)
	b, err := New(parent)
	require.NoError(t, err)
	assert.NotEqual(t, a.Dir(), b.Dir())
}

func TestRelease_RemovesOwned(t *testing.T) {
	sb, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(sb.Dir(), "f"), []byte("x"), 0644))

	require.NoError(t, sb.Release())
	assert.True(t, sb.Released())
	_, err = os.Stat(sb.Dir())
	assert.True(t, os.IsNotExist(err))

	// Idempotent
	require.NoError(t, sb.Release())
}

func TestRelease_KeepsAttached(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "box")

	sb, err := Attach(dir)
	require.NoError(t, err)
	assert.False(t, sb.Owned())

	require.NoError(t, sb.Release())
	_, err = os.Stat(dir)
	assert.NoError(t, err, "attached directory must survive Release")
}

func TestAttach_Empty(t *testing.T) {
	_, err := Attach("")
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	sb, err := Attach(t.TempDir())
	require.NoError(t, err)

	got, err := sb.Resolve("data/t.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sb.Dir(), "fs", "data", "t.csv"), got)

	got, err = sb.Resolve("a/../b.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sb.FSRoot(), "b.txt"), got)
}

func TestResolve_Rejects(t *testing.T) {
	sb, err := Attach(t.TempDir())
	require.NoError(t, err)

	for _, p := range []string{"", "/etc/passwd", "../escape", "a/../../escape", ".", "a/.."} {
		t.Run(p, func(t *testing.T) {
			_, err := sb.Resolve(p)
			require.ErrorIs(t, err, ErrInvalidPath)
		})
	}
}

func TestKeep(t *testing.T) {
	sb, err := New(t.TempDir())
	require.NoError(t, err)

	sb.Keep()
	assert.False(t, sb.Owned())
	require.NoError(t, sb.Release())
	assert.DirExists(t, sb.Dir())
}
