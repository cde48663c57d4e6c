package backend

import (
	"context"
	"database/sql"

	"github.com/roach88/sqlrunner/internal/config"
	"github.com/roach88/sqlrunner/internal/sandbox"
)

// Property keys understood by the SQLite launcher.
const (
	KeyDriver        = "sqlrunner.backend.driver"
	KeyMetastorePath = "sqlrunner.metastore.path"
	KeyFSRoot        = "sqlrunner.fs.root"

	// PragmaPrefix marks properties applied as SQLite pragmas.
	PragmaPrefix = "sqlite."
)

// Driver names.
const (
	DriverCGO    = "sqlite3"
	DriverPureGo = "sqlite"
)

// Launcher starts a backend instance inside a sandbox.
type Launcher interface {
	// Launch starts the backend configured by conf and returns a connected
	// client. The backend may write effective settings back into conf.
	Launch(ctx context.Context, conf *config.Conf, sb *sandbox.Sandbox) (Client, error)
}

// Client is a live connection to a launched backend.
type Client interface {
	// Execute runs a single statement and returns its rows, one string per
	// row. Statements that produce no rows return an empty slice.
	Execute(ctx context.Context, statement string) ([]string, error)

	// DB exposes the underlying database handle for direct access.
	DB() *sql.DB

	// Close disconnects and stops the backend. Safe to call more than once.
	Close() error
}

// DefaultProperties returns the settings a backend starts with before
// overrides are applied.
func DefaultProperties() config.Properties {
	return config.Properties{
		KeyDriver:                    DriverCGO,
		KeyMetastorePath:             "metastore/metastore.db",
		PragmaPrefix + "journal_mode": "WAL",
		PragmaPrefix + "synchronous":  "NORMAL",
		PragmaPrefix + "busy_timeout": "5000",
		PragmaPrefix + "foreign_keys": "ON",
	}
}
