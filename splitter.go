// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package fsevents

import (
	"bytes"

	"github.com/siderolabs/go-fsevents/gzip"
)

// Decompressor decodes a single gzip member.
//
// DecompressMember appends the decompressed member found at the start of src to dest,
// and returns the result and the number of src bytes the member occupies.
//
// Decompressor should be safe for concurrent use by multiple goroutines.
// Decompressor should verify checksums of the compressed data.
type Decompressor interface {
	DecompressMember(src, dest []byte) ([]byte, int, error)
}

// Member is a gzip member of a raw file.
type Member struct {
	// Err is a *MemberDecodeError if the member failed to decode.
	Err error

	// Data is the decompressed member.
	Data []byte

	// Start and End (exclusive) are offsets in the raw file.
	Start, End int64

	// Index of the member in the file.
	Index int
}

// Splitter walks the gzip members of a raw file in order.
//
// Splitter is not safe for concurrent use; create a new Splitter to start over.
type Splitter struct {
	dec Decompressor
	src []byte

	off   int
	index int
}

// NewSplitter creates a Splitter over the raw bytes of a file.
func NewSplitter(src []byte, dec Decompressor) *Splitter {
	return &Splitter{
		src: src,
		dec: dec,
	}
}

// Offset returns the raw offset the next member is expected at.
func (s *Splitter) Offset() int64 {
	return int64(s.off)
}

// Next decompresses the next member.
//
// A member which fails to decode is returned with Err set and no Data; the
// splitter then resumes at the next gzip signature. Bytes which don't start with a
// gzip signature are returned as a failed member covering the skipped range.
func (s *Splitter) Next() (Member, bool) {
	if s.off >= len(s.src) {
		return Member{}, false
	}

	member := Member{
		Index: s.index,
		Start: int64(s.off),
	}

	s.index++

	if !bytes.HasPrefix(s.src[s.off:], gzip.Signature) {
		s.off = s.nextSignature(s.off + 1)
		member.End = int64(s.off)
		member.Err = &MemberDecodeError{
			Err:    ErrNoGzipSignature,
			Member: member.Index,
			Start:  member.Start,
			End:    member.End,
		}

		return member, true
	}

	data, n, err := s.dec.DecompressMember(s.src[s.off:], nil)
	if err != nil || n <= 0 {
		if err == nil {
			err = ErrNoGzipSignature
		}

		// the member end is unknown, the next plausible member starts at the next signature
		s.off = s.nextSignature(s.off + 1)
		member.End = int64(s.off)
		member.Err = &MemberDecodeError{
			Err:    err,
			Member: member.Index,
			Start:  member.Start,
			End:    member.End,
		}

		return member, true
	}

	s.off += n
	member.End = int64(s.off)
	member.Data = data

	return member, true
}

// nextSignature returns the offset of the next gzip signature at or after from,
// or the end of the file.
func (s *Splitter) nextSignature(from int) int {
	if from >= len(s.src) {
		return len(s.src)
	}

	idx := bytes.Index(s.src[from:], gzip.Signature)
	if idx < 0 {
		return len(s.src)
	}

	return from + idx
}
