package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/roach88/sqlrunner/internal/config"
	"github.com/roach88/sqlrunner/internal/sandbox"
	"github.com/roach88/sqlrunner/internal/script"
)

// ErrClosed is returned by a client used after Close.
var ErrClosed = errors.New("backend client is closed")

const memoryPath = ":memory:"

var (
	pragmaNamePattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	pragmaValuePattern = regexp.MustCompile(`^[A-Za-z0-9_.+-]+$`)
	setPattern         = regexp.MustCompile(`(?is)^\s*set\b(.*)$`)
)

// SQLite launches an embedded SQLite database inside the sandbox.
type SQLite struct{}

// Launch opens the database, applies pragmas, and returns a client holding a
// single connection. SQLite allows one writer at a time, and a :memory:
// database lives only as long as its connection, so the pool is pinned to one.
func (SQLite) Launch(ctx context.Context, conf *config.Conf, sb *sandbox.Sandbox) (Client, error) {
	driver := conf.GetOr(KeyDriver, DriverCGO)
	if driver != DriverCGO && driver != DriverPureGo {
		return nil, fmt.Errorf("unsupported driver %q (want %s or %s)", driver, DriverCGO, DriverPureGo)
	}

	path, err := databasePath(conf, sb)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	c := &SQLiteClient{db: db, conf: conf, driver: driver, path: path}
	if err := c.applyPragmas(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := os.MkdirAll(sb.FSRoot(), 0o755); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create filesystem root: %w", err)
	}
	conf.Set(KeyFSRoot, sb.FSRoot())
	conf.Set(KeyMetastorePath, path)

	return c, nil
}

// databasePath resolves the metastore path against the sandbox and creates
// its parent directory.
func databasePath(conf *config.Conf, sb *sandbox.Sandbox) (string, error) {
	path := conf.GetOr(KeyMetastorePath, memoryPath)
	if path == memoryPath {
		return path, nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(sb.Dir(), path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create metastore directory: %w", err)
	}
	return path, nil
}

// SQLiteClient is the Client returned by SQLite.Launch.
type SQLiteClient struct {
	db     *sql.DB
	conf   *config.Conf
	driver string
	path   string
	closed bool
}

// Driver returns the database/sql driver name in use.
func (c *SQLiteClient) Driver() string {
	return c.driver
}

// Path returns the database path, or ":memory:".
func (c *SQLiteClient) Path() string {
	return c.path
}

// DB returns the underlying sql.DB.
func (c *SQLiteClient) DB() *sql.DB {
	return c.db
}

// Execute runs one statement. SET is answered from the live configuration;
// everything else is run as a query so that any rows it produces, such as
// those of INSERT ... RETURNING, are returned. Statements without a result
// set return an empty slice.
func (c *SQLiteClient) Execute(ctx context.Context, statement string) ([]string, error) {
	if c.closed {
		return nil, ErrClosed
	}

	if script.Keyword(statement) == "SET" {
		return c.set(ctx, statement)
	}
	return c.query(ctx, statement)
}

// Close closes the database. Later calls are no-ops.
func (c *SQLiteClient) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}

func (c *SQLiteClient) query(ctx context.Context, statement string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, statement)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return formatRows(rows)
}

func (c *SQLiteClient) set(ctx context.Context, statement string) ([]string, error) {
	m := setPattern.FindStringSubmatch(statement)
	if m == nil {
		return nil, fmt.Errorf("malformed SET statement: %q", statement)
	}
	body := strings.TrimSpace(m[1])

	if body == "" {
		all := c.conf.All()
		out := make([]string, 0, len(all))
		for _, k := range all.Keys() {
			out = append(out, k+"="+all[k])
		}
		return out, nil
	}

	key, value, assign := strings.Cut(body, "=")
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("SET: missing property key")
	}

	if !assign {
		v, ok := c.conf.Get(key)
		if !ok {
			return []string{key + " is undefined"}, nil
		}
		return []string{key + "=" + v}, nil
	}

	value = strings.TrimSpace(value)
	if strings.HasPrefix(key, PragmaPrefix) {
		if err := c.applyPragma(ctx, key, value); err != nil {
			return nil, err
		}
		return []string{}, nil
	}
	c.conf.Set(key, value)
	return []string{}, nil
}

// applyPragmas runs every sqlite.* property, in key order.
func (c *SQLiteClient) applyPragmas(ctx context.Context) error {
	for _, key := range c.conf.Keys() {
		if !strings.HasPrefix(key, PragmaPrefix) {
			continue
		}
		value, _ := c.conf.Get(key)
		if err := c.applyPragma(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

// applyPragma sets one pragma and records its effective value in the Conf.
// Pragmas SQLite does not report back keep the requested value.
func (c *SQLiteClient) applyPragma(ctx context.Context, key, value string) error {
	name := strings.TrimPrefix(key, PragmaPrefix)
	if !pragmaNamePattern.MatchString(name) {
		return fmt.Errorf("invalid pragma name %q", name)
	}
	if !pragmaValuePattern.MatchString(value) {
		return fmt.Errorf("invalid value %q for pragma %s", value, name)
	}

	stmt := fmt.Sprintf("PRAGMA %s = %s", name, value)
	if _, err := c.query(ctx, stmt); err != nil {
		return fmt.Errorf("failed to execute %q: %w", stmt, err)
	}

	effective := value
	rows, err := c.query(ctx, "PRAGMA "+name)
	if err != nil {
		return fmt.Errorf("failed to read pragma %s: %w", name, err)
	}
	if len(rows) > 0 {
		effective, _, _ = strings.Cut(rows[0], "\t")
	}
	c.conf.Set(key, effective)
	return nil
}
