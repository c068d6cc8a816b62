// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	fsevents "github.com/siderolabs/go-fsevents"
)

// Header is the CSV column list; column order matters for consumers.
var Header = []string{
	"source", "path", "event_id", "flags", "raw_flags", "unknown_flags",
	"node_id", "extra", "boundary", "version", "offset",
}

// CSV writes records as CSV rows.
type CSV struct {
	w *csv.Writer
}

// NewCSV creates a CSV writer and writes the header.
func NewCSV(w io.Writer) (*CSV, error) {
	c := &CSV{w: csv.NewWriter(w)}

	if err := c.w.Write(Header); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}

	return c, nil
}

// Write implements Writer.
func (c *CSV) Write(rec fsevents.Record) error {
	if err := c.w.Write(Row(rec)); err != nil {
		return fmt.Errorf("writing record at offset %d: %w", rec.Offset, err)
	}

	return nil
}

// Close flushes buffered rows.
func (c *CSV) Close() error {
	c.w.Flush()

	return c.w.Error()
}

// Row formats a record as a row matching Header.
//
// Absent node ID and extra fields are empty, which is distinct from zero.
func Row(rec fsevents.Record) []string {
	var nodeID, extra string

	if rec.NodeID.IsPresent() {
		nodeID = strconv.FormatUint(rec.NodeID.ValueOrZero(), 10)
	}

	if rec.Extra.IsPresent() {
		extra = strconv.FormatUint(uint64(rec.Extra.ValueOrZero()), 10)
	}

	return []string{
		rec.Source,
		rec.Path,
		strconv.FormatUint(rec.EventID, 10),
		rec.Set.String(),
		formatHex(rec.Flags),
		formatHex(rec.Unknown),
		nodeID,
		extra,
		strconv.FormatBool(rec.Boundary),
		rec.Version.String(),
		strconv.FormatInt(rec.Offset, 10),
	}
}
