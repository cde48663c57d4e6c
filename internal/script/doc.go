// Package script splits multi-statement SQL scripts into individual statements.
//
// A script is split on ';' wherever the delimiter is not inside a quoted
// literal. Single and double quotes both open literals. As in SQLite, a quote
// is escaped by doubling it ('it''s') and a backslash has no special meaning.
// Outside literals "--" starts a line comment and "/* ... */" a block comment;
// comments are dropped from the returned statements, so a ';' inside a
// comment never splits.
//
// Statements are trimmed and empty statements are discarded. Splitting is
// deterministic and idempotent on its own output:
//
//	Split(strings.Join(Split(s), ";")) == Split(s)
package script
