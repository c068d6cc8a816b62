// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package gzip implements single gzip member compression and decompression.
package gzip

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// DefaultMaxMemberSize is the default limit of a decompressed member.
const DefaultMaxMemberSize = 256 * 1024 * 1024

// ErrMemberTooLarge is returned when a member decompresses to more than the limit.
var ErrMemberTooLarge = errors.New("gzip member too large")

// Signature is the start of every gzip member using deflate.
var Signature = []byte{0x1f, 0x8b, 0x08}

// Decompressor decodes one gzip member at a time.
//
// Decompressor is safe for concurrent use by multiple goroutines.
type Decompressor struct {
	readers sync.Pool

	maxMemberSize int64
}

// NewDecompressor creates new Decompressor.
//
// Non-positive maxMemberSize means DefaultMaxMemberSize.
func NewDecompressor(maxMemberSize int64) *Decompressor {
	if maxMemberSize <= 0 {
		maxMemberSize = DefaultMaxMemberSize
	}

	return &Decompressor{
		maxMemberSize: maxMemberSize,
	}
}

// DecompressMember decodes the gzip member at the start of src and appends it to dest.
//
// It returns the result and the number of bytes of src consumed by the member,
// including the trailer. The checksum of the member is verified.
func (d *Decompressor) DecompressMember(src, dest []byte) ([]byte, int, error) {
	// bytes.Reader is an io.ByteReader, so the decompressor never reads past the member trailer
	r := bytes.NewReader(src)

	zr, err := d.getReader(r)
	if err != nil {
		return dest, len(src) - r.Len(), fmt.Errorf("failed to read gzip header: %w", err)
	}

	defer d.readers.Put(zr)

	zr.Multistream(false)

	buf := bytes.NewBuffer(dest)

	n, err := buf.ReadFrom(io.LimitReader(zr, d.maxMemberSize+1))
	if err != nil {
		return buf.Bytes(), len(src) - r.Len(), err
	}

	if n > d.maxMemberSize {
		return buf.Bytes(), len(src) - r.Len(), fmt.Errorf("%w: more than %d bytes", ErrMemberTooLarge, d.maxMemberSize)
	}

	return buf.Bytes(), len(src) - r.Len(), nil
}

func (d *Decompressor) getReader(r io.Reader) (*gzip.Reader, error) {
	if zr, ok := d.readers.Get().(*gzip.Reader); ok {
		if err := zr.Reset(r); err != nil {
			d.readers.Put(zr)

			return nil, err
		}

		return zr, nil
	}

	return gzip.NewReader(r)
}

// Compress appends src compressed as a single gzip member to dest.
func Compress(src, dest []byte, level int) ([]byte, error) {
	buf := bytes.NewBuffer(dest)

	zw, err := gzip.NewWriterLevel(buf, level)
	if err != nil {
		return dest, err
	}

	if _, err = zw.Write(src); err != nil {
		return dest, err
	}

	if err = zw.Close(); err != nil {
		return dest, err
	}

	return buf.Bytes(), nil
}

// Compression levels accepted by Compress.
const (
	BestSpeed          = gzip.BestSpeed
	BestCompression    = gzip.BestCompression
	DefaultCompression = gzip.DefaultCompression
)
