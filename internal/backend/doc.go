// Package backend launches the embedded SQL engine a shell runs scripts
// against.
//
// The default Launcher is SQLite, with one of two drivers:
//   - sqlite3: github.com/mattn/go-sqlite3 (cgo, the default)
//   - sqlite:  modernc.org/sqlite (pure Go)
//
// # Configuration
//
// The launcher reads its settings from the shell's live config.Conf:
//
//	sqlrunner.backend.driver  driver name (sqlite3 | sqlite)
//	sqlrunner.metastore.path  database path, relative to the sandbox dir, or :memory:
//	sqlite.<pragma>           applied as PRAGMA <pragma> = <value> at launch
//
// After launch the effective value of each pragma is read back into the
// Conf, and sqlrunner.fs.root is set to the absolute root of the sandbox's
// virtual filesystem.
//
// # Statements
//
// SET is handled by the client rather than the engine:
//
//	SET key=value   update the live Conf (sqlite.* keys also run the pragma)
//	SET key         return "key=value", or "key is undefined"
//	SET             return every property as "key=value", sorted by key
//
// Row-producing statements return one string per row with columns separated
// by tabs and NULL rendered as "NULL".
package backend
