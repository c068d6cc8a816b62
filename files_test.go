// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package fsevents_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	fsevents "github.com/siderolabs/go-fsevents"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)

	require.NoError(t, os.WriteFile(path, data, 0o644))

	return path
}

func TestParseFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	records := sampleRecords(10, fsevents.Version2)

	valid := writeFile(t, dir, "00000000000a0001", gzipMembers(t, buildStream(t, fsevents.Version2, records, 4)))
	corrupt := writeFile(t, dir, "00000000000a0002", []byte("definitely not gzip"))
	missing := filepath.Join(dir, "00000000000a0003")
	subdir := filepath.Join(dir, "00000000000a0004")

	require.NoError(t, os.Mkdir(subdir, 0o755))

	p := newParser(t, fsevents.WithConcurrency(2))

	var (
		mu      sync.Mutex
		decoded = map[string][]fsevents.Record{}
	)

	reports, err := p.ParseFiles(t.Context(), []string{valid, corrupt, missing, subdir}, fsevents.RecordHandler(func(rec fsevents.Record) error {
		mu.Lock()
		defer mu.Unlock()

		decoded[rec.Source] = append(decoded[rec.Source], rec)

		return nil
	}))
	require.NoError(t, err)
	require.Len(t, reports, 4)

	assert.Equal(t, valid, reports[0].Path)
	assert.NoError(t, reports[0].Err)
	assert.Empty(t, reports[0].Diagnostics)
	assert.Equal(t, 10, reports[0].Stats.Records)
	assert.Equal(t, 3, reports[0].Stats.Pages)
	assert.Equal(t, stripOffsets(withSource(records, valid, fsevents.Version2)), stripOffsets(decoded[valid]))

	assert.Equal(t, corrupt, reports[1].Path)
	assert.NoError(t, reports[1].Err)
	assert.Equal(t, []fsevents.Kind{fsevents.KindMember}, diagnosticKinds(reports[1].Diagnostics))
	assert.Equal(t, 1, reports[1].Stats.FailedMembers)
	assert.Empty(t, decoded[corrupt])

	for _, report := range reports[2:] {
		var ioErr *fsevents.IOError

		require.ErrorAs(t, report.Err, &ioErr)
		assert.Equal(t, []fsevents.Kind{fsevents.KindIO}, diagnosticKinds(report.Diagnostics))
	}

	assert.ErrorIs(t, reports[2].Err, os.ErrNotExist)
}

func TestParseFilesHandlerError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	first := writeFile(t, dir, "0000000000000001", gzipMembers(t, buildStream(t, fsevents.Version1, sampleRecords(3, fsevents.Version1), 3)))
	second := writeFile(t, dir, "0000000000000002", gzipMembers(t, buildStream(t, fsevents.Version1, sampleRecords(3, fsevents.Version1), 3)))

	errStop := errors.New("stop")

	reports, err := newParser(t).ParseFiles(t.Context(), []string{first, second}, func(_ context.Context, stream *fsevents.Stream) error {
		if stream.Source() == first {
			return errStop
		}

		_, err := stream.Collect(t.Context())

		return err
	})
	require.NoError(t, err)

	assert.ErrorIs(t, reports[0].Err, errStop)
	assert.NoError(t, reports[1].Err)
	assert.Equal(t, 3, reports[1].Stats.Records)
}

func TestParseFilesCanceled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	raw := gzipMembers(t, buildStream(t, fsevents.Version1, sampleRecords(3, fsevents.Version1), 1))
	paths := []string{
		writeFile(t, dir, "0000000000000001", raw),
		writeFile(t, dir, "0000000000000002", raw),
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	reports, err := newParser(t).ParseFiles(ctx, paths, fsevents.RecordHandler(func(fsevents.Record) error { return nil }))
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, reports, 2)

	for i, report := range reports {
		assert.Equal(t, paths[i], report.Path)
		assert.ErrorIs(t, report.Err, context.Canceled)
		assert.Empty(t, report.Diagnostics)
	}
}

func TestParseFilesCanceledMidway(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	raw := gzipMembers(t, buildStream(t, fsevents.Version1, sampleRecords(3, fsevents.Version1), 1))
	paths := []string{
		writeFile(t, dir, "0000000000000001", raw),
		writeFile(t, dir, "0000000000000002", raw),
		writeFile(t, dir, "0000000000000003", raw),
	}

	ctx, cancel := context.WithCancel(t.Context())

	// the single worker cancels while handling the first file, the rest never start
	reports, err := newParser(t, fsevents.WithConcurrency(1)).ParseFiles(ctx, paths, func(ctx context.Context, stream *fsevents.Stream) error {
		cancel()

		_, err := stream.Collect(ctx)

		return err
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, reports, 3)

	for i, report := range reports {
		assert.Equal(t, paths[i], report.Path)
		assert.ErrorIs(t, report.Err, context.Canceled)
	}
}

func TestParseDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	records := sampleRecords(5, fsevents.Version3)

	writeFile(t, dir, "0000000000000010", gzipMembers(t, buildStream(t, fsevents.Version3, records[:2], 2)))
	writeFile(t, dir, "0000000000000020", gzipMembers(t, buildStream(t, fsevents.Version3, records[2:], 2)))
	writeFile(t, dir, fsevents.UUIDFile, []byte("5C5A4E28-7C35-4B1E-9A44-7E0A4C2B2E1F"))

	var (
		mu     sync.Mutex
		counts = map[string]int{}
	)

	reports, err := newParser(t).ParseDir(t.Context(), dir, fsevents.RecordHandler(func(rec fsevents.Record) error {
		mu.Lock()
		defer mu.Unlock()

		counts[filepath.Base(rec.Source)]++

		return nil
	}))
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, map[string]int{"0000000000000010": 2, "0000000000000020": 3}, counts)

	for _, report := range reports {
		assert.NoError(t, report.Err)
		assert.Empty(t, report.Diagnostics)
	}

	_, err = newParser(t).ParseDir(t.Context(), filepath.Join(dir, "missing"), fsevents.RecordHandler(func(fsevents.Record) error { return nil }))

	var ioErr *fsevents.IOError

	require.ErrorAs(t, err, &ioErr)
}

func TestListDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	for _, name := range []string{"00000000001b3f0c", "0000000000027d6b", fsevents.UUIDFile, "00000000000f4240"} {
		writeFile(t, dir, name, nil)
	}

	require.NoError(t, os.Mkdir(filepath.Join(dir, "0000000000000001"), 0o755))

	paths, err := fsevents.ListDir(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "0000000000027d6b"),
		filepath.Join(dir, "00000000000f4240"),
		filepath.Join(dir, "00000000001b3f0c"),
	}, paths)
}

func TestOpenFileSizeLimit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	path := writeFile(t, dir, "0000000000000001", make([]byte, 1024))

	_, err := newParser(t, fsevents.WithMaxFileSize(1023)).OpenFile(path)

	var ioErr *fsevents.IOError

	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, path, ioErr.Path)

	stream, err := newParser(t, fsevents.WithMaxFileSize(1024)).OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, stream.Source())
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
