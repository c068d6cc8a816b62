// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package export

import (
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "modernc.org/sqlite"             // registers the "sqlite" database/sql driver
)

// Dialect abstracts database-specific SQL.
type Dialect interface {
	// DriverName returns the database/sql driver name.
	DriverName() string

	// Placeholder returns the parameter placeholder for the given 1-based index.
	Placeholder(index int) string

	// CreateTableSQL returns the DDL for the records table.
	CreateTableSQL() string

	// Sanitize prepares a text value for storage.
	Sanitize(s string) string
}

// insertColumns is the column order of InsertSQL.
var insertColumns = []string{
	"source", "path", "event_id", "flags", "raw_flags", "unknown_flags",
	"node_id", "extra", "boundary", "version", "stream_offset",
}

// InsertSQL returns the parameterized INSERT statement for a record.
func InsertSQL(d Dialect) string {
	placeholders := make([]string, len(insertColumns))

	for i := range insertColumns {
		placeholders[i] = d.Placeholder(i + 1)
	}

	return "INSERT INTO fsevents (" + strings.Join(insertColumns, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")"
}

// SQLiteDialect implements Dialect for modernc.org/sqlite.
type SQLiteDialect struct{}

// DriverName implements Dialect.
func (SQLiteDialect) DriverName() string { return "sqlite" }

// Placeholder implements Dialect.
func (SQLiteDialect) Placeholder(int) string { return "?" }

// CreateTableSQL implements Dialect.
func (SQLiteDialect) CreateTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS fsevents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		path TEXT NOT NULL,
		event_id INTEGER NOT NULL,
		flags TEXT NOT NULL,
		raw_flags INTEGER NOT NULL,
		unknown_flags INTEGER NOT NULL,
		node_id INTEGER,
		extra INTEGER,
		boundary INTEGER NOT NULL,
		version TEXT NOT NULL,
		stream_offset INTEGER NOT NULL
	)`
}

// Sanitize implements Dialect.
func (SQLiteDialect) Sanitize(s string) string { return s }

// PostgresDialect implements Dialect for the pgx database/sql driver.
type PostgresDialect struct{}

// DriverName implements Dialect.
func (PostgresDialect) DriverName() string { return "pgx" }

// Placeholder implements Dialect.
func (PostgresDialect) Placeholder(index int) string { return "$" + strconv.Itoa(index) }

// CreateTableSQL implements Dialect.
func (PostgresDialect) CreateTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS fsevents (
		id BIGSERIAL PRIMARY KEY,
		source TEXT NOT NULL,
		path TEXT NOT NULL,
		event_id BIGINT NOT NULL,
		flags TEXT NOT NULL,
		raw_flags BIGINT NOT NULL,
		unknown_flags BIGINT NOT NULL,
		node_id BIGINT,
		extra BIGINT,
		boundary BOOLEAN NOT NULL,
		version TEXT NOT NULL,
		stream_offset BIGINT NOT NULL
	)`
}

// Sanitize implements Dialect.
//
// PostgreSQL rejects invalid UTF-8 in TEXT columns, paths are recorded as raw bytes.
func (PostgresDialect) Sanitize(s string) string {
	return strings.ToValidUTF8(s, "�")
}
