// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package export_test

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/siderolabs/gen/optional"
	"github.com/siderolabs/gen/xtesting/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	fsevents "github.com/siderolabs/go-fsevents"
	"github.com/siderolabs/go-fsevents/export"
)

func testRecords() []fsevents.Record {
	v1Flags := uint32(fsevents.FlagCreated|fsevents.FlagIsFile) | 0x8000
	v3Flags := uint32(fsevents.FlagRemoved | fsevents.FlagIsDirectory | fsevents.FlagEndOfTransaction)

	v1 := fsevents.Interpret(v1Flags)
	v3 := fsevents.Interpret(v3Flags)

	return []fsevents.Record{
		{
			Source:  "/private/var/db/fseventsd/0000000000027d6b",
			Path:    "Users/test/a,b \"quoted\".txt",
			EventID: 163180,
			Flags:   v1Flags,
			Set:     v1.Set,
			Unknown: v1.Unknown,
			Version: fsevents.Version1,
			Offset:  12,
		},
		{
			Source:   "/private/var/db/fseventsd/0000000000027d6b",
			Path:     "",
			EventID:  0xfffffffffffffff0,
			Flags:    v3Flags,
			Set:      v3.Set,
			NodeID:   optional.Some(uint64(0)),
			Extra:    optional.Some(uint32(7)),
			Version:  fsevents.Version3,
			Boundary: v3.Boundary(),
			Offset:   1024,
		},
	}
}

func TestRow(t *testing.T) {
	t.Parallel()

	records := testRecords()

	assert.Equal(t, []string{
		records[0].Source, records[0].Path, "163180", "Created,IsFile", "0x808001", "0x8000",
		"", "", "false", "DLS1", "12",
	}, export.Row(records[0]))

	assert.Equal(t, []string{
		records[1].Source, "", "18446744073709551600", "Removed,IsDirectory,EndOfTransaction", "0x21000002", "0x0",
		"0", "7", "true", "DLS3", "1024",
	}, export.Row(records[1]))
}

func TestCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	w := must.Value(export.NewCSV(&buf))(t)

	for _, rec := range testRecords() {
		require.NoError(t, w.Write(rec))
	}

	require.NoError(t, w.Close())

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, export.Header, rows[0])
	assert.Equal(t, export.Row(testRecords()[0]), rows[1])
	assert.Equal(t, export.Row(testRecords()[1]), rows[2])
}

func TestJSONLines(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	w := export.NewJSONLines(&buf)

	for _, rec := range testRecords() {
		require.NoError(t, w.Write(rec))
	}

	require.NoError(t, w.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any

	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))

	assert.NotContains(t, first, "node_id")
	assert.NotContains(t, first, "extra")
	assert.Equal(t, []any{"Created", "IsFile"}, first["flags"])
	assert.Equal(t, "DLS1", first["version"])
	assert.InDelta(t, 0x8000, first["unknown_flags"], 0)

	var second export.JSONRecord

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))

	assert.Equal(t, export.NewJSONRecord(testRecords()[1]), second)
	require.NotNil(t, second.NodeID)
	assert.Zero(t, *second.NodeID)
	assert.Equal(t, uint64(0xfffffffffffffff0), second.EventID)
	assert.True(t, second.Boundary)
}

func TestJSONEmptyFlags(t *testing.T) {
	t.Parallel()

	out, err := json.Marshal(export.NewJSONRecord(fsevents.Record{Path: "x", Version: fsevents.Version2}))
	require.NoError(t, err)

	assert.Contains(t, string(out), `"flags":[]`)
}

func TestCreateFile(t *testing.T) {
	t.Parallel()

	for _, format := range []export.Format{export.FormatCSV, export.FormatJSONLines} {
		t.Run(string(format), func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			path := filepath.Join(dir, "out."+string(format))

			w, err := export.Open(format, path)
			require.NoError(t, err)

			_, err = os.Stat(path)
			require.ErrorIs(t, err, os.ErrNotExist)

			for _, rec := range testRecords() {
				require.NoError(t, w.Write(rec))
			}

			require.NoError(t, w.Close())

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, filepath.Base(path), entries[0].Name())

			f, err := os.Open(path)
			require.NoError(t, err)

			t.Cleanup(func() { f.Close() }) //nolint:errcheck

			lines := 0

			for sc := bufio.NewScanner(f); sc.Scan(); {
				lines++
			}

			if format == export.FormatCSV {
				assert.Equal(t, 3, lines)
			} else {
				assert.Equal(t, 2, lines)
			}
		})
	}
}

func TestAbort(t *testing.T) {
	t.Parallel()

	for _, format := range []export.Format{export.FormatCSV, export.FormatJSONLines, export.FormatSQLite} {
		t.Run(string(format), func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			path := filepath.Join(dir, "out."+string(format))

			w, err := export.Open(format, path)
			require.NoError(t, err)

			w = export.Synchronized(w)

			for _, rec := range testRecords() {
				require.NoError(t, w.Write(rec))
			}

			require.NoError(t, export.Abort(w))

			if format == export.FormatSQLite {
				// the table exists, unflushed records are gone
				store, err := export.OpenSQL(format, path)
				require.NoError(t, err)

				n, err := store.Count()
				require.NoError(t, err)
				assert.Zero(t, n)

				require.NoError(t, store.Close())

				return
			}

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

type closeRecorder struct {
	export.Writer

	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true

	return nil
}

func TestAbortFallsBackToClose(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	w := &closeRecorder{Writer: export.NewJSONLines(&buf)}

	require.NoError(t, export.Abort(export.Synchronized(w)))
	assert.True(t, w.closed)
}

func TestOpenUnsupported(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := export.Open("xml", filepath.Join(dir, "out.xml"))
	require.EqualError(t, err, `unsupported format: "xml"`)

	_, err = export.CreateFile(filepath.Join(dir, "out.db"), export.FormatSQLite)
	require.EqualError(t, err, `not a file format: "sqlite"`)

	_, err = export.OpenSQL(export.FormatCSV, filepath.Join(dir, "out.csv"))
	require.EqualError(t, err, `not a database format: "csv"`)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInsertSQL(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"INSERT INTO fsevents (source, path, event_id, flags, raw_flags, unknown_flags, node_id, extra, boundary, version, stream_offset) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		export.InsertSQL(export.SQLiteDialect{}),
	)

	assert.Equal(t,
		"INSERT INTO fsevents (source, path, event_id, flags, raw_flags, unknown_flags, node_id, extra, boundary, version, stream_offset) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)",
		export.InsertSQL(export.PostgresDialect{}),
	)

	assert.Equal(t, "a�b", export.PostgresDialect{}.Sanitize("a\xffb"))
	assert.Equal(t, "a\xffb", export.SQLiteDialect{}.Sanitize("a\xffb"))
}

func TestSQLite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fsevents.db")

	store, err := export.OpenSQL(export.FormatSQLite, path)
	require.NoError(t, err)

	// more than one batch
	records := testRecords()

	for i := range export.DefaultBatchSize + 5 {
		require.NoError(t, store.Write(records[i%len(records)]))
	}

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(export.DefaultBatchSize), n)

	require.NoError(t, store.Flush())

	var (
		eventID int64
		nodeID  *int64
		extra   *int64
	)

	require.NoError(t, store.Conn().QueryRow(
		"SELECT event_id, node_id, extra FROM fsevents WHERE version = ? LIMIT 1", "DLS3",
	).Scan(&eventID, &nodeID, &extra))

	assert.Equal(t, uint64(0xfffffffffffffff0), uint64(eventID))
	require.NotNil(t, nodeID)
	assert.Zero(t, *nodeID)
	require.NotNil(t, extra)
	assert.Equal(t, int64(7), *extra)

	require.NoError(t, store.Conn().QueryRow(
		"SELECT node_id FROM fsevents WHERE version = ? LIMIT 1", "DLS1",
	).Scan(&nodeID))
	assert.Nil(t, nodeID)

	require.NoError(t, store.Close())

	// reopening keeps the table
	store, err = export.OpenSQL(export.FormatSQLite, path)
	require.NoError(t, err)

	n, err = store.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(export.DefaultBatchSize+5), n)

	require.NoError(t, store.Close())
}

func TestPostgres(t *testing.T) {
	t.Parallel()

	dsn := os.Getenv("FSEVENTS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FSEVENTS_TEST_POSTGRES_DSN is not set")
	}

	store, err := export.OpenSQL(export.FormatPostgres, dsn)
	require.NoError(t, err)

	before, err := store.Count()
	require.NoError(t, err)

	for _, rec := range testRecords() {
		rec.Path += "\xff"

		require.NoError(t, store.Write(rec))
	}

	require.NoError(t, store.Flush())

	after, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, before+2, after)

	require.NoError(t, store.Close())
}

func TestSynchronized(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	w := export.Synchronized(export.NewJSONLines(&buf))

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for _, rec := range testRecords() {
				assert.NoError(t, w.Write(rec))
			}
		}()
	}

	wg.Wait()

	require.NoError(t, w.Close())

	assert.Equal(t, 16, strings.Count(buf.String(), "\n"))
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
