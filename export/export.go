// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package export writes decoded FSEvents records to CSV, JSON Lines or SQL databases.
package export

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"sync"

	fsevents "github.com/siderolabs/go-fsevents"
)

// Writer consumes records.
type Writer interface {
	Write(rec fsevents.Record) error
	Close() error
}

// Abort discards the output of w.
//
// Writers which can't discard their output are closed.
func Abort(w Writer) error {
	if a, ok := w.(interface{ Abort() error }); ok {
		return a.Abort()
	}

	return w.Close()
}

// Format is an output format name.
type Format string

// Supported formats.
const (
	FormatCSV       Format = "csv"
	FormatJSONLines Format = "jsonl"
	FormatSQLite    Format = "sqlite"
	FormatPostgres  Format = "postgres"
)

// Open creates a Writer for the format.
//
// For file formats target is the output path, for SQL formats it is the
// SQLite database path or the PostgreSQL connection string.
func Open(format Format, target string) (Writer, error) {
	switch format {
	case FormatCSV, FormatJSONLines:
		return CreateFile(target, format)
	case FormatSQLite, FormatPostgres:
		store, err := OpenSQL(format, target)
		if err != nil {
			return nil, err
		}

		return store, nil
	default:
		return nil, fmt.Errorf("unsupported format: %q", format)
	}
}

// CreateFile creates a file Writer.
//
// Records are written to a temporary file which replaces path on Close.
func CreateFile(path string, format Format) (Writer, error) {
	tmpPath := path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}

	fw := &fileWriter{
		f:       f,
		bw:      bufio.NewWriter(f),
		path:    path,
		tmpPath: tmpPath,
	}

	switch format {
	case FormatCSV:
		fw.Writer, err = NewCSV(fw.bw)
	case FormatJSONLines:
		fw.Writer = NewJSONLines(fw.bw)
	case FormatSQLite, FormatPostgres:
		err = fmt.Errorf("not a file format: %q", format)
	default:
		err = fmt.Errorf("unsupported format: %q", format)
	}

	if err != nil {
		f.Close()          //nolint:errcheck
		os.Remove(tmpPath) //nolint:errcheck

		return nil, err
	}

	return fw, nil
}

type fileWriter struct {
	Writer

	f  *os.File
	bw *bufio.Writer

	path    string
	tmpPath string
}

func (fw *fileWriter) Close() error {
	err := fw.Writer.Close()

	if err == nil {
		err = fw.bw.Flush()
	}

	if closeErr := fw.f.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		os.Remove(fw.tmpPath) //nolint:errcheck

		return fmt.Errorf("failed to write %q: %w", fw.path, err)
	}

	if err = os.Rename(fw.tmpPath, fw.path); err != nil {
		os.Remove(fw.tmpPath) //nolint:errcheck

		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// Abort removes the temporary file leaving path untouched.
func (fw *fileWriter) Abort() error {
	err := fw.f.Close()

	if removeErr := os.Remove(fw.tmpPath); err == nil {
		err = removeErr
	}

	return err
}

// Synchronized wraps w so that it can be used by concurrent handlers.
func Synchronized(w Writer) Writer {
	return &syncWriter{w: w}
}

type syncWriter struct {
	w  Writer
	mu sync.Mutex
}

func (s *syncWriter) Write(rec fsevents.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.w.Write(rec)
}

func (s *syncWriter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.w.Close()
}

func (s *syncWriter) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Abort(s.w)
}

func formatHex(v uint32) string {
	return "0x" + strconv.FormatUint(uint64(v), 16)
}
