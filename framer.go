// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package fsevents

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// Framer defaults.
const (
	DefaultMaxResync   = 64 * 1024
	DefaultMaxPageSize = 64 * 1024 * 1024
)

// ErrNeedMoreData is returned by Framer.Next when the buffered bytes don't hold a complete page.
var ErrNeedMoreData = errors.New("need more data")

// magicSuffix is shared by all page magics: "1SLD", "2SLD", "3SLD".
var magicSuffix = []byte("SLD")

// magicLen is the size of a page magic; a failed resync keeps magicLen-1 bytes,
// so that a magic split across two members is still found.
const magicLen = 4

// Framer splits the decompressed stream into pages.
//
// Decompressed members are appended with Feed, and pages are pulled with Next.
// A page which is not complete yet stays buffered until the next Feed.
//
// Framer is not safe for concurrent use.
type Framer struct {
	buf []byte

	// stream offset of buf[0]
	base int64

	// read position in buf
	pos int

	// MaxResync bounds the resynchronization scan; zero means DefaultMaxResync.
	MaxResync int
	// MaxPageSize bounds the declared page size; zero means DefaultMaxPageSize.
	MaxPageSize int
}

// Feed appends decompressed bytes.
//
// Payloads of pages returned before the Feed call are invalidated.
func (f *Framer) Feed(data []byte) {
	if f.pos > 0 {
		n := copy(f.buf, f.buf[f.pos:])
		f.buf = f.buf[:n]
		f.base += int64(f.pos)
		f.pos = 0
	}

	f.buf = append(f.buf, data...)
}

// Pending returns the number of buffered bytes not framed yet.
func (f *Framer) Pending() int {
	return len(f.buf) - f.pos
}

// Offset returns the stream offset of the first pending byte.
func (f *Framer) Offset() int64 {
	return f.base + int64(f.pos)
}

// PendingPage reports whether the pending bytes could be the start of a page,
// that is they begin with a known page magic or a prefix of one.
func (f *Framer) PendingPage() bool {
	rest := f.buf[f.pos:]
	if len(rest) == 0 {
		return false
	}

	rest = rest[:min(len(rest), magicLen)]

	for _, v := range []Version{Version1, Version2, Version3} {
		magic := binary.LittleEndian.AppendUint32(nil, v.Magic())

		if bytes.HasPrefix(magic, rest) {
			return true
		}
	}

	return false
}

// Reset drops pending bytes and returns their count.
func (f *Framer) Reset() int {
	n := f.Pending()
	f.pos += n

	return n
}

// Next returns the next complete page.
//
// Next returns ErrNeedMoreData if the pending bytes don't hold a complete page,
// or *PageFormatError if some bytes were skipped to find the next page header;
// in the latter case Next should be called again.
//
// The page payload is only valid until the next call to Feed.
func (f *Framer) Next() (Page, error) {
	rest := f.buf[f.pos:]

	if len(rest) < magicLen {
		return Page{}, ErrNeedMoreData
	}

	magic := binary.LittleEndian.Uint32(rest)
	if !VersionFromMagic(magic).Valid() {
		return Page{}, f.resync(magic, 0, ErrUnknownMagic)
	}

	if len(rest) < PageHeaderSize {
		return Page{}, ErrNeedMoreData
	}

	h, err := ParsePageHeader(rest)
	if err != nil {
		return Page{}, f.resync(magic, 0, err)
	}

	if h.Size < PageHeaderSize || int64(h.Size) > int64(f.maxPageSize()) {
		return Page{}, f.resync(magic, h.Size, ErrInvalidPageSize)
	}

	if len(rest) < int(h.Size) {
		return Page{}, ErrNeedMoreData
	}

	page := Page{
		Payload: rest[PageHeaderSize:h.Size:h.Size],
		Offset:  f.Offset(),
		Unknown: h.Unknown,
		Size:    h.Size,
		Version: h.Version(),
	}

	f.pos += int(h.Size)

	return page, nil
}

// resync skips forward to the next plausible page magic.
//
// If no magic is found within MaxResync bytes, the pending bytes are skipped except
// for the tail which might hold the start of a magic.
func (f *Framer) resync(magic, size uint32, cause error) error {
	rest := f.buf[f.pos:]
	offset := f.Offset()

	window := rest[1:min(len(rest), 1+f.maxResync()+magicLen-1)]

	skip := findMagic(window)
	if skip >= 0 {
		skip++
	} else {
		skip = max(len(rest)-(magicLen-1), 1)
	}

	f.pos += skip

	return &PageFormatError{
		Err:     cause,
		Offset:  offset,
		Skipped: int64(skip),
		Magic:   magic,
		Size:    size,
	}
}

func (f *Framer) maxResync() int {
	if f.MaxResync <= 0 {
		return DefaultMaxResync
	}

	return f.MaxResync
}

func (f *Framer) maxPageSize() int {
	if f.MaxPageSize <= 0 {
		return DefaultMaxPageSize
	}

	return f.MaxPageSize
}

// findMagic returns the index of the first known page magic in b, or -1.
func findMagic(b []byte) int {
	for i := 0; i+magicLen <= len(b); {
		j := bytes.Index(b[i+1:], magicSuffix)
		if j < 0 {
			return -1
		}

		start := i + j

		if start+magicLen > len(b) {
			return -1
		}

		if VersionFromMagic(binary.LittleEndian.Uint32(b[start:])).Valid() {
			return start
		}

		i = start + 1
	}

	return -1
}
