package stage

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlrunner/internal/sandbox"
)

func newSandbox(t *testing.T) *sandbox.Sandbox {
	t.Helper()
	sb, err := sandbox.Attach(t.TempDir())
	require.NoError(t, err)
	return sb
}

func readVirtual(t *testing.T, sb *sandbox.Sandbox, target string) string {
	t.Helper()
	path, err := sb.Resolve(target)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestMaterialize_Data(t *testing.T) {
	sb := newSandbox(t)
	s := New()
	require.NoError(t, s.AddData("data/t.csv", []byte("a,b\n1,2")))

	require.NoError(t, s.Materialize(sb))
	assert.Equal(t, "a,b\n1,2", readVirtual(t, sb, "data/t.csv"))
}

func TestMaterialize_File(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src.csv")
	require.NoError(t, os.WriteFile(src, []byte("x\ny\n"), 0644))

	sb := newSandbox(t)
	s := New()
	require.NoError(t, s.AddFile("deep/nested/dir/copy.csv", src))

	require.NoError(t, s.Materialize(sb))
	assert.Equal(t, "x\ny\n", readVirtual(t, sb, "deep/nested/dir/copy.csv"))
}

func TestMaterialize_LastWriteWins(t *testing.T) {
	sb := newSandbox(t)
	s := New()
	require.NoError(t, s.AddData("t.txt", []byte("first, and longer")))
	require.NoError(t, s.AddData("t.txt", []byte("second")))

	require.NoError(t, s.Materialize(sb))
	assert.Equal(t, "second", readVirtual(t, sb, "t.txt"))
}

func TestMaterialize_EmptyData(t *testing.T) {
	sb := newSandbox(t)
	s := New()
	require.NoError(t, s.AddData("empty", nil))

	require.NoError(t, s.Materialize(sb))
	assert.Equal(t, "", readVirtual(t, sb, "empty"))
}

func TestMaterialize_SourceRemovedAfterAdd(t *testing.T) {
	src := filepath.Join(t.TempDir(), "gone.csv")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))

	sb := newSandbox(t)
	s := New()
	require.NoError(t, s.AddData("first", []byte("1")))
	require.NoError(t, s.AddFile("second", src))
	require.NoError(t, s.AddData("third", []byte("3")))
	require.NoError(t, os.Remove(src))

	err := s.Materialize(sb)
	require.Error(t, err)

	var serr *Error
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "second", serr.Target)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	// Fail-fast: earlier requests applied, later ones not.
	assert.Equal(t, "1", readVirtual(t, sb, "first"))
	third, _ := sb.Resolve("third")
	_, statErr := os.Stat(third)
	assert.True(t, os.IsNotExist(statErr))
}

func TestAddFile_Errors(t *testing.T) {
	dir := t.TempDir()
	s := New()

	err := s.AddFile("t.csv", filepath.Join(dir, "missing.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	err = s.AddFile("t.csv", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a regular file")

	err = s.AddFile("t.csv", "")
	require.Error(t, err)

	assert.Equal(t, 0, s.Len())
}

func TestAddFile_Unreadable(t *testing.T) {
	if runtime.GOOS == "windows" || os.Getuid() == 0 {
		t.Skip("permission bits are not enforced here")
	}
	src := filepath.Join(t.TempDir(), "secret.csv")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o000))

	err := New().AddFile("t.csv", src)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrPermission))
}

func TestAdd_InvalidTarget(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))

	s := New()
	for _, target := range []string{"", "../up", "/abs/path"} {
		require.ErrorIs(t, s.AddData(target, []byte("x")), sandbox.ErrInvalidPath)
		require.ErrorIs(t, s.AddFile(target, src), sandbox.ErrInvalidPath)
	}
	assert.Equal(t, 0, s.Len())
}

func TestPending_OrderAndCopy(t *testing.T) {
	s := New()
	require.NoError(t, s.AddData("a", []byte("1")))
	require.NoError(t, s.AddData("b", []byte("2")))

	p := s.Pending()
	require.Len(t, p, 2)
	assert.Equal(t, "a", p[0].Target)
	assert.Equal(t, "b", p[1].Target)

	p[0].Target = "mutated"
	assert.Equal(t, "a", s.Pending()[0].Target)
}

func TestAddData_CopiesInput(t *testing.T) {
	buf := []byte("orig")
	s := New()
	require.NoError(t, s.AddData("a", buf))
	buf[0] = 'X'
	assert.Equal(t, "orig", string(s.Pending()[0].Data))
}
