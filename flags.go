// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package fsevents

import (
	"math/bits"
	"strings"

	"github.com/siderolabs/gen/xslices"
)

// EventFlag is a single documented bit of the record flags field.
type EventFlag uint32

// Documented event flag bits.
//
// Bits not listed here have no public meaning; they are kept as the unknown residue.
const (
	FlagCreated                   EventFlag = 0x00000001
	FlagRemoved                   EventFlag = 0x00000002
	FlagInodeMetadataModified     EventFlag = 0x00000004
	FlagRenamed                   EventFlag = 0x00000008
	FlagModified                  EventFlag = 0x00000010
	FlagExchange                  EventFlag = 0x00000020
	FlagFinderInfoModified        EventFlag = 0x00000040
	FlagDirectoryCreated          EventFlag = 0x00000080
	FlagPermissionChanged         EventFlag = 0x00000100
	FlagExtendedAttributeModified EventFlag = 0x00000200
	FlagExtendedAttributeRemoved  EventFlag = 0x00000400
	FlagDocumentCreated           EventFlag = 0x00000800
	FlagDocumentRevision          EventFlag = 0x00001000
	FlagUnmountPending            EventFlag = 0x00002000
	FlagItemCloned                EventFlag = 0x00004000
	FlagNotificationClone         EventFlag = 0x00010000
	FlagItemTruncated             EventFlag = 0x00020000
	FlagDirectoryEvent            EventFlag = 0x00040000
	FlagLastHardLinkRemoved       EventFlag = 0x00080000
	FlagIsHardLink                EventFlag = 0x00100000
	FlagIsSymbolicLink            EventFlag = 0x00400000
	FlagIsFile                    EventFlag = 0x00800000
	FlagIsDirectory               EventFlag = 0x01000000
	FlagMount                     EventFlag = 0x02000000
	FlagUnmount                   EventFlag = 0x04000000
	FlagEndOfTransaction          EventFlag = 0x20000000
)

// flagTable lists known flags in bit order.
var flagTable = []struct {
	flag EventFlag
	name string
}{
	{FlagCreated, "Created"},
	{FlagRemoved, "Removed"},
	{FlagInodeMetadataModified, "InodeMetadataModified"},
	{FlagRenamed, "Renamed"},
	{FlagModified, "Modified"},
	{FlagExchange, "Exchange"},
	{FlagFinderInfoModified, "FinderInfoModified"},
	{FlagDirectoryCreated, "DirectoryCreated"},
	{FlagPermissionChanged, "PermissionChanged"},
	{FlagExtendedAttributeModified, "ExtendedAttributeModified"},
	{FlagExtendedAttributeRemoved, "ExtendedAttributeRemoved"},
	{FlagDocumentCreated, "DocumentCreated"},
	{FlagDocumentRevision, "DocumentRevision"},
	{FlagUnmountPending, "UnmountPending"},
	{FlagItemCloned, "ItemCloned"},
	{FlagNotificationClone, "NotificationClone"},
	{FlagItemTruncated, "ItemTruncated"},
	{FlagDirectoryEvent, "DirectoryEvent"},
	{FlagLastHardLinkRemoved, "LastHardLinkRemoved"},
	{FlagIsHardLink, "IsHardLink"},
	{FlagIsSymbolicLink, "IsSymbolicLink"},
	{FlagIsFile, "IsFile"},
	{FlagIsDirectory, "IsDirectory"},
	{FlagMount, "Mount"},
	{FlagUnmount, "Unmount"},
	{FlagEndOfTransaction, "EndOfTransaction"},
}

// KnownFlags is the mask of all documented bits.
var KnownFlags = func() EventFlags {
	var mask EventFlags

	for _, f := range flagTable {
		mask |= EventFlags(f.flag)
	}

	return mask
}()

const boundaryFlags = EventFlags(FlagEndOfTransaction | FlagMount | FlagUnmount)

// String implements fmt.Stringer.
func (f EventFlag) String() string {
	for _, entry := range flagTable {
		if entry.flag == f {
			return entry.name
		}
	}

	return "Unknown"
}

// EventFlags is a set of documented event flags.
type EventFlags uint32

// Has reports whether the flag is in the set.
func (f EventFlags) Has(flag EventFlag) bool {
	return uint32(f)&uint32(flag) != 0
}

// List returns flags in the set, in bit order.
func (f EventFlags) List() []EventFlag {
	list := make([]EventFlag, 0, bits.OnesCount32(uint32(f)))

	for _, entry := range flagTable {
		if f.Has(entry.flag) {
			list = append(list, entry.flag)
		}
	}

	return list
}

// Names returns flag names in bit order, nil for an empty set.
func (f EventFlags) Names() []string {
	list := f.List()
	if len(list) == 0 {
		return nil
	}

	return xslices.Map(list, EventFlag.String)
}

// String returns a comma-separated list of flag names.
func (f EventFlags) String() string {
	return strings.Join(f.Names(), ",")
}

// Interpretation is the decoded form of a raw flags value.
type Interpretation struct {
	// Set holds recognized bits.
	Set EventFlags
	// Unknown holds set bits without a documented meaning.
	Unknown uint32
}

// Interpret decodes raw flags. It is total: Set|Unknown always equals raw.
func Interpret(raw uint32) Interpretation {
	return Interpretation{
		Set:     EventFlags(raw) & KnownFlags,
		Unknown: raw &^ uint32(KnownFlags),
	}
}

// Raw reassembles the original flags value.
func (i Interpretation) Raw() uint32 {
	return uint32(i.Set) | i.Unknown
}

// Boundary reports whether the flags mark the end of a transaction or a volume mount/unmount.
//
// Event IDs may restart after a boundary record.
func (i Interpretation) Boundary() bool {
	return i.Set&boundaryFlags != 0
}
