// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package fsevents

import (
	"errors"
	"fmt"
)

// Sentinel causes wrapped by the typed errors below.
var (
	// ErrNoGzipSignature is reported for bytes which don't start a gzip member.
	ErrNoGzipSignature = errors.New("no gzip signature")
	// ErrUnknownMagic is reported for a page header with an unrecognized magic.
	ErrUnknownMagic = errors.New("unknown page magic")
	// ErrInvalidPageSize is reported for a page header with an impossible size.
	ErrInvalidPageSize = errors.New("invalid page size")
)

// MemberDecodeError is reported when a gzip member can't be decompressed.
//
// The member is skipped, decoding continues with the next member.
type MemberDecodeError struct {
	Err error

	// Member index in the file.
	Member int

	// Start and End are raw file offsets of the skipped range.
	Start, End int64

	// Discarded is the number of carried bytes dropped because of the discontinuity.
	Discarded int
}

func (e *MemberDecodeError) Error() string {
	return fmt.Sprintf("gzip member %d at offset %d (%d bytes) failed to decode: %s", e.Member, e.Start, e.End-e.Start, e.Err)
}

func (e *MemberDecodeError) Unwrap() error {
	return e.Err
}

// PageFormatError is reported when a page header can't be framed.
type PageFormatError struct {
	Err error

	// Offset of the bad header in the decompressed stream.
	Offset int64

	// Skipped is the number of bytes skipped while resynchronizing.
	Skipped int64

	Magic uint32
	Size  uint32
}

func (e *PageFormatError) Error() string {
	return fmt.Sprintf("bad page at stream offset %d (magic %#08x, size %d), skipped %d bytes: %s", e.Offset, e.Magic, e.Size, e.Skipped, e.Err)
}

func (e *PageFormatError) Unwrap() error {
	return e.Err
}

// TruncationError is reported when the input ends in the middle of a page or a record.
type TruncationError struct {
	// Offset of the first undecoded byte in the decompressed stream.
	Offset int64

	// Bytes is the number of undecoded trailing bytes.
	Bytes int
}

func (e *TruncationError) Error() string {
	return fmt.Sprintf("input truncated: %d undecoded bytes at stream offset %d", e.Bytes, e.Offset)
}

// RecordOverflowError is reported when an incomplete record grows past the size limit.
type RecordOverflowError struct {
	Offset int64
	Bytes  int
	Limit  int
}

func (e *RecordOverflowError) Error() string {
	return fmt.Sprintf("record at stream offset %d exceeds %d bytes, dropped %d bytes", e.Offset, e.Limit, e.Bytes)
}

// IOError is reported when an input file can't be read at all.
type IOError struct {
	Err  error
	Path string
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to read %q: %s", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
