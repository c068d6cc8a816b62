// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package export

import (
	"encoding/json"
	"io"

	fsevents "github.com/siderolabs/go-fsevents"
)

// JSONRecord is the JSON form of a record.
type JSONRecord struct {
	NodeID *uint64 `json:"node_id,omitempty"`
	Extra  *uint32 `json:"extra,omitempty"`

	Source  string   `json:"source"`
	Path    string   `json:"path"`
	Version string   `json:"version"`
	Flags   []string `json:"flags"`

	EventID uint64 `json:"event_id"`
	Offset  int64  `json:"offset"`

	RawFlags     uint32 `json:"raw_flags"`
	UnknownFlags uint32 `json:"unknown_flags,omitempty"`

	Boundary bool `json:"boundary"`
}

// NewJSONRecord converts a record.
func NewJSONRecord(rec fsevents.Record) JSONRecord {
	out := JSONRecord{
		Source:       rec.Source,
		Path:         rec.Path,
		Version:      rec.Version.String(),
		Flags:        rec.Set.Names(),
		EventID:      rec.EventID,
		Offset:       rec.Offset,
		RawFlags:     rec.Flags,
		UnknownFlags: rec.Unknown,
		Boundary:     rec.Boundary,
	}

	if out.Flags == nil {
		out.Flags = []string{}
	}

	if rec.NodeID.IsPresent() {
		nodeID := rec.NodeID.ValueOrZero()
		out.NodeID = &nodeID
	}

	if rec.Extra.IsPresent() {
		extra := rec.Extra.ValueOrZero()
		out.Extra = &extra
	}

	return out
}

// JSONLines writes one JSON object per line.
type JSONLines struct {
	enc *json.Encoder
}

// NewJSONLines creates a JSON Lines writer.
func NewJSONLines(w io.Writer) *JSONLines {
	return &JSONLines{enc: json.NewEncoder(w)}
}

// Write implements Writer.
func (j *JSONLines) Write(rec fsevents.Record) error {
	return j.enc.Encode(NewJSONRecord(rec))
}

// Close implements Writer.
func (j *JSONLines) Close() error {
	return nil
}
