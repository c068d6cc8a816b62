// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package export

import (
	"database/sql"
	"fmt"

	fsevents "github.com/siderolabs/go-fsevents"
)

// DefaultBatchSize is the number of records inserted per transaction.
const DefaultBatchSize = 1000

// SQLStore writes records into the fsevents table of a database.
//
// 64-bit event and node IDs are stored as the signed bit pattern of the value.
type SQLStore struct {
	conn    *sql.DB
	dialect Dialect

	batch     []fsevents.Record
	batchSize int
}

// OpenSQL opens (and creates the table in) a SQLite or PostgreSQL database.
func OpenSQL(format Format, dsn string) (*SQLStore, error) {
	var d Dialect

	switch format {
	case FormatSQLite:
		d = SQLiteDialect{}
	case FormatPostgres:
		d = PostgresDialect{}
	case FormatCSV, FormatJSONLines:
		return nil, fmt.Errorf("not a database format: %q", format)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", format)
	}

	conn, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err = conn.Ping(); err != nil {
		conn.Close() //nolint:errcheck

		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if _, err = conn.Exec(d.CreateTableSQL()); err != nil {
		conn.Close() //nolint:errcheck

		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLStore{
		conn:      conn,
		dialect:   d,
		batchSize: DefaultBatchSize,
	}, nil
}

// Write implements Writer; records are inserted in batches.
func (s *SQLStore) Write(rec fsevents.Record) error {
	s.batch = append(s.batch, rec)

	if len(s.batch) >= s.batchSize {
		return s.Flush()
	}

	return nil
}

// Flush inserts buffered records in a single transaction.
func (s *SQLStore) Flush() error {
	if len(s.batch) == 0 {
		return nil
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	stmt, err := tx.Prepare(InsertSQL(s.dialect))
	if err != nil {
		tx.Rollback() //nolint:errcheck

		return fmt.Errorf("preparing insert: %w", err)
	}

	defer stmt.Close() //nolint:errcheck

	for _, rec := range s.batch {
		if _, err = stmt.Exec(s.args(rec)...); err != nil {
			tx.Rollback() //nolint:errcheck

			return fmt.Errorf("inserting record at offset %d of %q: %w", rec.Offset, rec.Source, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.batch = s.batch[:0]

	return nil
}

func (s *SQLStore) args(rec fsevents.Record) []any {
	var nodeID, extra sql.NullInt64

	if rec.NodeID.IsPresent() {
		nodeID = sql.NullInt64{Int64: int64(rec.NodeID.ValueOrZero()), Valid: true}
	}

	if rec.Extra.IsPresent() {
		extra = sql.NullInt64{Int64: int64(rec.Extra.ValueOrZero()), Valid: true}
	}

	return []any{
		s.dialect.Sanitize(rec.Source),
		s.dialect.Sanitize(rec.Path),
		int64(rec.EventID),
		rec.Set.String(),
		int64(rec.Flags),
		int64(rec.Unknown),
		nodeID,
		extra,
		rec.Boundary,
		rec.Version.String(),
		rec.Offset,
	}
}

// Count returns the number of stored records.
func (s *SQLStore) Count() (int64, error) {
	var n int64

	if err := s.conn.QueryRow("SELECT COUNT(*) FROM fsevents").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}

	return n, nil
}

// Conn returns the underlying *sql.DB connection.
func (s *SQLStore) Conn() *sql.DB {
	return s.conn
}

// Close flushes pending records and closes the database.
func (s *SQLStore) Close() error {
	err := s.Flush()

	if closeErr := s.conn.Close(); err == nil {
		err = closeErr
	}

	return err
}

// Abort drops the records which are not flushed yet and closes the database.
//
// Batches flushed before Abort stay in the table.
func (s *SQLStore) Abort() error {
	s.batch = nil

	return s.conn.Close()
}
