// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package fsevents

import (
	"github.com/siderolabs/gen/optional"
)

// Record is a single file-system event.
type Record struct {
	// Path as recorded, without interpretation. Might be empty.
	Path string

	// Source is the file the record was decoded from.
	Source string

	// NodeID is present for version 2 and later pages only.
	NodeID optional.Optional[uint64]

	// Extra holds the trailing uninterpreted field of version 3 records.
	Extra optional.Optional[uint32]

	EventID uint64

	// Offset of the record's first byte in the decompressed stream.
	Offset int64

	// Flags is the raw flags value.
	Flags uint32

	// Set and Unknown are the decoded Flags, see Interpret.
	Set     EventFlags
	Unknown uint32

	// Version of the page the record started in.
	Version Version

	// Boundary marks end of transaction, mount or unmount records.
	Boundary bool
}

// Interpretation returns the decoded flags of the record.
func (r Record) Interpretation() Interpretation {
	return Interpretation{Set: r.Set, Unknown: r.Unknown}
}
