package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlrunner/internal/config"
	"github.com/roach88/sqlrunner/internal/sandbox"
)

// launchTest starts a SQLite backend in a fresh sandbox with the given
// overrides and closes it when the test ends.
func launchTest(t *testing.T, overrides config.Properties) (*SQLiteClient, *config.Conf, *sandbox.Sandbox) {
	t.Helper()
	sb, err := sandbox.Attach(t.TempDir())
	require.NoError(t, err)

	conf := config.NewConf(DefaultProperties(), overrides)
	c, err := SQLite{}.Launch(context.Background(), conf, sb)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	return c.(*SQLiteClient), conf, sb
}

func TestLaunch_Drivers(t *testing.T) {
	for _, driver := range []string{DriverCGO, DriverPureGo} {
		t.Run(driver, func(t *testing.T) {
			c, _, sb := launchTest(t, config.Properties{KeyDriver: driver})
			ctx := context.Background()

			assert.Equal(t, driver, c.Driver())
			assert.Equal(t, filepath.Join(sb.Dir(), "metastore", "metastore.db"), c.Path())

			_, err := c.Execute(ctx, "CREATE TABLE t(a INT, b TEXT)")
			require.NoError(t, err)
			_, err = c.Execute(ctx, "INSERT INTO t VALUES (1, 'x'), (2, NULL)")
			require.NoError(t, err)

			rows, err := c.Execute(ctx, "SELECT a, b FROM t ORDER BY a")
			require.NoError(t, err)
			assert.Equal(t, []string{"1\tx", "2\tNULL"}, rows)

			_, err = os.Stat(c.Path())
			assert.NoError(t, err, "database file should live in the sandbox")
		})
	}
}

func TestLaunch_LiveConf(t *testing.T) {
	_, conf, sb := launchTest(t, nil)

	root, ok := conf.Get(KeyFSRoot)
	require.True(t, ok)
	assert.Equal(t, sb.FSRoot(), root)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Effective pragma values are read back from SQLite.
	assert.Equal(t, "wal", conf.GetOr("sqlite.journal_mode", ""))
	assert.Equal(t, "1", conf.GetOr("sqlite.foreign_keys", ""))
	assert.Equal(t, "5000", conf.GetOr("sqlite.busy_timeout", ""))
	assert.Equal(t, "1", conf.GetOr("sqlite.synchronous", ""))
}

func TestLaunch_InMemory(t *testing.T) {
	c, conf, _ := launchTest(t, config.Properties{KeyMetastorePath: ":memory:"})
	ctx := context.Background()

	assert.Equal(t, ":memory:", c.Path())
	assert.Equal(t, "memory", conf.GetOr("sqlite.journal_mode", ""))

	_, err := c.Execute(ctx, "CREATE TABLE t(a INT)")
	require.NoError(t, err)
	rows, err := c.Execute(ctx, "SELECT count(*) FROM t")
	require.NoError(t, err)
	assert.Equal(t, []string{"0"}, rows, "single connection must keep the in-memory schema")
}

func TestLaunch_Errors(t *testing.T) {
	tests := []struct {
		name      string
		overrides config.Properties
		contains  string
	}{
		{"unknown driver", config.Properties{KeyDriver: "postgres"}, "unsupported driver"},
		{"bad pragma name", config.Properties{"sqlite.bad name": "1"}, "invalid pragma name"},
		{"bad pragma value", config.Properties{"sqlite.foreign_keys": "ON; DROP TABLE x"}, "invalid value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sb, err := sandbox.Attach(t.TempDir())
			require.NoError(t, err)
			conf := config.NewConf(DefaultProperties(), tt.overrides)

			_, err = SQLite{}.Launch(context.Background(), conf, sb)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestExecute_Failure(t *testing.T) {
	c, _, _ := launchTest(t, nil)
	_, err := c.Execute(context.Background(), "SELECT * FROM missing_table")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such table")
}

func TestExecute_NoRowsIsEmptySlice(t *testing.T) {
	c, _, _ := launchTest(t, nil)
	ctx := context.Background()

	rows, err := c.Execute(ctx, "CREATE TABLE t(a INT)")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	rows, err = c.Execute(ctx, "SELECT a FROM t")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestExecute_ValueFormatting(t *testing.T) {
	c, _, _ := launchTest(t, nil)
	rows, err := c.Execute(context.Background(), "SELECT 1, 2.5, 'text', NULL, x'6869'")
	require.NoError(t, err)
	assert.Equal(t, []string{"1\t2.5\ttext\tNULL\thi"}, rows)
}

func TestExecute_WithAndValues(t *testing.T) {
	c, _, _ := launchTest(t, nil)
	ctx := context.Background()

	rows, err := c.Execute(ctx, "WITH x(n) AS (SELECT 7) SELECT n FROM x")
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, rows)

	rows, err = c.Execute(ctx, "VALUES (1), (2)")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, rows)
}

func TestExecute_RowsFromAnyStatement(t *testing.T) {
	for _, driver := range []string{DriverCGO, DriverPureGo} {
		t.Run(driver, func(t *testing.T) {
			c, _, _ := launchTest(t, config.Properties{KeyDriver: driver})
			ctx := context.Background()

			_, err := c.Execute(ctx, "CREATE TABLE t(a INT)")
			require.NoError(t, err)

			rows, err := c.Execute(ctx, "INSERT INTO t VALUES (5), (6) RETURNING a")
			require.NoError(t, err)
			assert.Equal(t, []string{"5", "6"}, rows)

			rows, err = c.Execute(ctx, "UPDATE t SET a = a * 10")
			require.NoError(t, err)
			assert.Empty(t, rows)

			rows, err = c.Execute(ctx, "DELETE FROM t WHERE a = 60 RETURNING a")
			require.NoError(t, err)
			assert.Equal(t, []string{"60"}, rows)

			rows, err = c.Execute(ctx, "SELECT a FROM t")
			require.NoError(t, err)
			assert.Equal(t, []string{"50"}, rows, "statements without a result set still apply")
		})
	}
}

func TestExecute_Set(t *testing.T) {
	c, conf, _ := launchTest(t, config.Properties{"x": "1"})
	ctx := context.Background()

	rows, err := c.Execute(ctx, "SET x")
	require.NoError(t, err)
	assert.Equal(t, []string{"x=1"}, rows)

	rows, err = c.Execute(ctx, "set x = 2")
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, "2", conf.GetOr("x", ""))

	rows, err = c.Execute(ctx, "SET nope")
	require.NoError(t, err)
	assert.Equal(t, []string{"nope is undefined"}, rows)

	rows, err = c.Execute(ctx, "SET")
	require.NoError(t, err)
	assert.Contains(t, rows, "x=2")
	assert.Len(t, rows, conf.Len())
	assert.Equal(t, "sqlite.busy_timeout=5000", rows[0], "properties are listed by key")

	_, err = c.Execute(ctx, "SET =3")
	require.Error(t, err)
}

func TestExecute_SetPragma(t *testing.T) {
	c, conf, _ := launchTest(t, nil)
	ctx := context.Background()

	_, err := c.Execute(ctx, "SET sqlite.foreign_keys=OFF")
	require.NoError(t, err)
	assert.Equal(t, "0", conf.GetOr("sqlite.foreign_keys", ""))

	rows, err := c.Execute(ctx, "PRAGMA foreign_keys")
	require.NoError(t, err)
	assert.Equal(t, []string{"0"}, rows)

	_, err = c.Execute(ctx, "SET sqlite.foreign_keys=1; DROP")
	require.Error(t, err)
}

func TestClose_Idempotent(t *testing.T) {
	c, _, _ := launchTest(t, nil)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err := c.Execute(context.Background(), "SELECT 1")
	require.ErrorIs(t, err, ErrClosed)
}

func TestDefaultProperties(t *testing.T) {
	p := DefaultProperties()
	assert.Equal(t, DriverCGO, p[KeyDriver])
	assert.Equal(t, "WAL", p["sqlite.journal_mode"])

	// Each call returns a fresh map.
	p[KeyDriver] = "changed"
	assert.Equal(t, DriverCGO, DefaultProperties()[KeyDriver])
}
