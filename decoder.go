// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package fsevents

import (
	"bytes"
	"encoding/binary"
	"slices"

	"github.com/siderolabs/gen/optional"
)

// DefaultMaxRecordSize bounds the size of a single record kept in a Carry.
const DefaultMaxRecordSize = 64 * 1024

// Decoder turns page payloads into records.
//
// Decoder has no state of its own: the incomplete tail of a page is returned
// as a Carry and must be handed back on the next call.
type Decoder struct {
	// Source is stamped on every decoded record.
	Source string

	// MaxRecordSize limits the carry; zero means DefaultMaxRecordSize.
	MaxRecordSize int
}

// Decode decodes the records of a page, prefixed with the bytes carried over from
// previous pages.
//
// The returned Carry holds the bytes of the trailing incomplete record, if any.
// A non-nil error is a *RecordOverflowError: the carry grew past MaxRecordSize and
// was dropped, records decoded before it are still returned.
func (d Decoder) Decode(carry Carry, page Page) ([]Record, Carry, error) {
	var (
		buf     []byte
		records []Record
	)

	if carry.Empty() {
		buf = page.Payload
	} else {
		buf = make([]byte, 0, carry.Len()+len(page.Payload))
		buf = append(buf, carry.data...)
		buf = append(buf, page.Payload...)
	}

	// the first record continues the carry, so it keeps the layout it started under
	version := page.Version
	if !carry.Empty() {
		version = carry.version
	}

	pos := 0

	for pos < len(buf) {
		rec, n, ok := decodeRecord(buf[pos:], version)
		if !ok {
			break
		}

		rec.Source = d.Source
		rec.Offset = d.streamOffset(carry, page, pos)
		records = append(records, rec)

		pos += n
		version = page.Version
	}

	if pos == len(buf) {
		return records, Carry{}, nil
	}

	next := Carry{
		data:    slices.Clone(buf[pos:]),
		offset:  d.streamOffset(carry, page, pos),
		version: version,
	}

	if limit := d.maxRecordSize(); next.Len() > limit {
		return records, Carry{}, &RecordOverflowError{
			Offset: next.offset,
			Bytes:  next.Len(),
			Limit:  limit,
		}
	}

	return records, next, nil
}

func (d Decoder) maxRecordSize() int {
	if d.MaxRecordSize <= 0 {
		return DefaultMaxRecordSize
	}

	return d.MaxRecordSize
}

// streamOffset maps a position in carry+payload to the decompressed stream offset.
func (d Decoder) streamOffset(carry Carry, page Page, pos int) int64 {
	if pos < carry.Len() {
		return carry.offset + int64(pos)
	}

	return page.PayloadOffset() + int64(pos-carry.Len())
}

// decodeRecord decodes one record at the start of b.
//
// It returns false if b doesn't hold the complete record.
func decodeRecord(b []byte, version Version) (Record, int, bool) {
	l := version.layout()

	nul := bytes.IndexByte(b, 0)
	if nul < 0 {
		return Record{}, 0, false
	}

	n := nul + 1 + l.fixed()
	if len(b) < n {
		return Record{}, 0, false
	}

	rec := Record{
		Path:    string(b[:nul]),
		Version: version,
	}

	p := b[nul+1 : n]

	rec.EventID = binary.LittleEndian.Uint64(p)
	p = p[l.eventID:]

	rec.Flags = binary.LittleEndian.Uint32(p)
	p = p[l.flags:]

	if l.nodeID > 0 {
		rec.NodeID = optional.Some(binary.LittleEndian.Uint64(p))
		p = p[l.nodeID:]
	}

	if l.extra > 0 {
		rec.Extra = optional.Some(binary.LittleEndian.Uint32(p))
	}

	interp := Interpret(rec.Flags)
	rec.Set = interp.Set
	rec.Unknown = interp.Unknown
	rec.Boundary = interp.Boundary()

	return rec, n, true
}

// AppendRecord appends the on-disk encoding of r using the given layout.
//
// NodeID and Extra are written as zero when absent and the layout requires them.
func AppendRecord(dst []byte, version Version, r Record) []byte {
	l := version.layout()

	dst = append(dst, r.Path...)
	dst = append(dst, 0)
	dst = binary.LittleEndian.AppendUint64(dst, r.EventID)
	dst = binary.LittleEndian.AppendUint32(dst, r.Flags)

	if l.nodeID > 0 {
		dst = binary.LittleEndian.AppendUint64(dst, r.NodeID.ValueOrZero())
	}

	if l.extra > 0 {
		dst = binary.LittleEndian.AppendUint32(dst, r.Extra.ValueOrZero())
	}

	return dst
}
