// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package fsevents decodes macOS FSEvents Disk Log Stream (DLS) files.
//
// A DLS file is a concatenation of independent gzip members. The decompressed
// bytes form a stream of pages, each page carrying a 12-byte header and a run
// of variable-length records. Records might straddle page and member boundaries,
// so decoding is a single forward pass carrying incomplete bytes over.
package fsevents

import (
	"encoding/binary"
	"fmt"
)

// Version is the record layout of a page, selected by the page magic.
type Version uint8

// Known page layouts.
const (
	VersionUnknown Version = iota
	Version1
	Version2
	Version3
)

// Page magic values as little-endian uint32 ("1SLD", "2SLD", "3SLD" on disk).
const (
	MagicV1 uint32 = 0x444c5331
	MagicV2 uint32 = 0x444c5332
	MagicV3 uint32 = 0x444c5333
)

// layout describes fixed-width fields following the NUL-terminated path.
type layout struct {
	eventID int
	flags   int
	nodeID  int
	extra   int
}

func (l layout) fixed() int {
	return l.eventID + l.flags + l.nodeID + l.extra
}

var layouts = [...]layout{
	VersionUnknown: {},
	Version1:       {eventID: 8, flags: 4},
	Version2:       {eventID: 8, flags: 4, nodeID: 8},
	Version3:       {eventID: 8, flags: 4, nodeID: 8, extra: 4},
}

// VersionFromMagic maps a page magic to the layout version.
func VersionFromMagic(magic uint32) Version {
	switch magic {
	case MagicV1:
		return Version1
	case MagicV2:
		return Version2
	case MagicV3:
		return Version3
	default:
		return VersionUnknown
	}
}

// Magic returns the page magic for the version.
func (v Version) Magic() uint32 {
	switch v {
	case Version1:
		return MagicV1
	case Version2:
		return MagicV2
	case Version3:
		return MagicV3
	case VersionUnknown:
	}

	return 0
}

// Valid reports whether the version is one of the known layouts.
func (v Version) Valid() bool {
	return v >= Version1 && v <= Version3
}

// HasNodeID reports whether records of this version carry a node ID.
func (v Version) HasNodeID() bool {
	return v.layout().nodeID > 0
}

// FixedSize is the number of bytes following the path terminator in each record.
func (v Version) FixedSize() int {
	return v.layout().fixed()
}

func (v Version) layout() layout {
	if int(v) >= len(layouts) {
		return layouts[VersionUnknown]
	}

	return layouts[v]
}

// String implements fmt.Stringer.
func (v Version) String() string {
	if !v.Valid() {
		return fmt.Sprintf("unknown(%d)", uint8(v))
	}

	var b [4]byte

	binary.LittleEndian.PutUint32(b[:], v.Magic())

	// on-disk tag reads "1SLD", report it as "DLS1"
	return string([]byte{b[3], b[2], b[1], b[0]})
}
