// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package fsevents

// Carry holds the bytes of a record which didn't fit into the page it started in.
//
// The zero value is an empty carry. Carry is passed by value between Decode calls,
// and it never aliases page payloads.
type Carry struct {
	data []byte

	// stream offset of data[0]
	offset int64

	// layout the record started under
	version Version
}

// Len returns the number of carried bytes.
func (c Carry) Len() int {
	return len(c.data)
}

// Empty reports whether nothing is carried.
func (c Carry) Empty() bool {
	return len(c.data) == 0
}

// Offset returns the stream offset of the first carried byte.
func (c Carry) Offset() int64 {
	return c.offset
}

// Version returns the layout of the carried record.
func (c Carry) Version() Version {
	return c.version
}
