// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package fsevents

import (
	"bytes"
	"fmt"
	"io"

	"github.com/lunixbochs/struc"
)

// PageHeaderSize is the size of the fixed page header.
const PageHeaderSize = 12

// PageHeader is the on-disk page header.
type PageHeader struct {
	Magic uint32 `struc:"uint32,little"`
	// Unknown is preserved but never interpreted.
	Unknown uint32 `struc:"uint32,little"`
	// Size is the page size including the header.
	Size uint32 `struc:"uint32,little"`
}

// Version returns the layout selected by the header magic.
func (h PageHeader) Version() Version {
	return VersionFromMagic(h.Magic)
}

// PayloadSize returns the declared payload length.
func (h PageHeader) PayloadSize() int {
	if h.Size < PageHeaderSize {
		return 0
	}

	return int(h.Size) - PageHeaderSize
}

// ParsePageHeader decodes the header at the start of data.
func ParsePageHeader(data []byte) (PageHeader, error) {
	var h PageHeader

	if len(data) < PageHeaderSize {
		return h, io.ErrUnexpectedEOF
	}

	if err := struc.Unpack(bytes.NewReader(data[:PageHeaderSize]), &h); err != nil {
		return h, fmt.Errorf("failed to unpack page header: %w", err)
	}

	return h, nil
}

// WritePage writes a page with the given version and payload to w.
func WritePage(w io.Writer, version Version, unknown uint32, payload []byte) error {
	h := PageHeader{
		Magic:   version.Magic(),
		Unknown: unknown,
		Size:    uint32(PageHeaderSize + len(payload)),
	}

	if err := struc.Pack(w, &h); err != nil {
		return fmt.Errorf("failed to pack page header: %w", err)
	}

	_, err := w.Write(payload)

	return err
}

// Page is a framed unit of the decompressed stream.
type Page struct {
	// Payload aliases the framer buffer, it is valid until the next Framer call.
	Payload []byte

	// Offset of the page header in the decompressed stream.
	Offset int64

	Unknown uint32
	Size    uint32

	Version Version
}

// PayloadOffset returns the stream offset of the first payload byte.
func (p Page) PayloadOffset() int64 {
	return p.Offset + PageHeaderSize
}
