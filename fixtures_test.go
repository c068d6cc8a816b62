// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package fsevents_test

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/siderolabs/gen/optional"
	"github.com/stretchr/testify/require"

	fsevents "github.com/siderolabs/go-fsevents"
	"github.com/siderolabs/go-fsevents/gzip"
)

// sampleRecords returns n records with distinct paths, increasing IDs and varied flags.
func sampleRecords(n int, version fsevents.Version) []fsevents.Record {
	records := make([]fsevents.Record, 0, n)

	flags := []uint32{
		uint32(fsevents.FlagCreated | fsevents.FlagIsFile),
		uint32(fsevents.FlagRemoved | fsevents.FlagIsDirectory),
		uint32(fsevents.FlagRenamed|fsevents.FlagIsFile) | 0x8000,
		uint32(fsevents.FlagInodeMetadataModified | fsevents.FlagIsSymbolicLink),
	}

	for i := range n {
		rec := fsevents.Record{
			Path:    "Users/test/file-" + strconv.Itoa(i) + ".txt",
			EventID: 163140 + uint64(i)*3,
			Flags:   flags[i%len(flags)],
			Version: version,
		}

		if version.HasNodeID() {
			rec.NodeID = optional.Some(uint64(1_000_000 + i))
		}

		if version == fsevents.Version3 {
			rec.Extra = optional.Some(uint32(i))
		}

		records = append(records, rec)
	}

	return records
}

// encodeRecords returns the concatenated record encodings.
func encodeRecords(version fsevents.Version, records []fsevents.Record) []byte {
	var buf []byte

	for _, rec := range records {
		buf = fsevents.AppendRecord(buf, version, rec)
	}

	return buf
}

// buildPage returns a complete page.
func buildPage(t testing.TB, version fsevents.Version, payload []byte) []byte {
	t.Helper()

	var buf bytes.Buffer

	require.NoError(t, fsevents.WritePage(&buf, version, 0x2e70d0e0, payload))

	return buf.Bytes()
}

// buildStream returns the decompressed stream of pages, each page holding
// up to perPage records.
func buildStream(t testing.TB, version fsevents.Version, records []fsevents.Record, perPage int) []byte {
	t.Helper()

	var stream []byte

	for len(records) > 0 {
		n := min(perPage, len(records))

		stream = append(stream, buildPage(t, version, encodeRecords(version, records[:n]))...)
		records = records[n:]
	}

	return stream
}

// gzipMembers compresses each fragment as a separate gzip member and concatenates them.
func gzipMembers(t testing.TB, fragments ...[]byte) []byte {
	t.Helper()

	var raw []byte

	for _, fragment := range fragments {
		var err error

		raw, err = gzip.Compress(fragment, raw, gzip.DefaultCompression)
		require.NoError(t, err)
	}

	return raw
}

// splitAt splits data at the given offsets.
func splitAt(data []byte, offsets ...int) [][]byte {
	var (
		fragments [][]byte
		prev      int
	)

	for _, off := range offsets {
		fragments = append(fragments, data[prev:off])
		prev = off
	}

	return append(fragments, data[prev:])
}

// withSource returns a copy of records stamped with the source and stream offsets
// they get when encoded back to back in a single page.
func withSource(records []fsevents.Record, source string, version fsevents.Version) []fsevents.Record {
	out := make([]fsevents.Record, len(records))
	offset := int64(fsevents.PageHeaderSize)

	for i, rec := range records {
		interp := fsevents.Interpret(rec.Flags)

		rec.Source = source
		rec.Offset = offset
		rec.Set = interp.Set
		rec.Unknown = interp.Unknown
		rec.Boundary = interp.Boundary()
		out[i] = rec

		offset += int64(len(fsevents.AppendRecord(nil, version, rec)))
	}

	return out
}

// stripOffsets clears stream offsets, which depend on page layout.
func stripOffsets(records []fsevents.Record) []fsevents.Record {
	out := make([]fsevents.Record, len(records))

	for i, rec := range records {
		rec.Offset = 0
		out[i] = rec
	}

	return out
}
