// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package fsevents

import (
	"os"
	"path/filepath"
	"slices"
)

// FSEvents directories of a live system.
const (
	// DefaultDir is used since macOS 10.15.
	DefaultDir = "/System/Volumes/Data/.fseventsd"
	// LegacyDir is used by older systems and on non-boot volumes.
	LegacyDir = "/.fseventsd"
)

// UUIDFile is the volume identifier kept next to the FSEvents files; it is not a log.
const UUIDFile = "fseventsd-uuid"

// ListDir returns the FSEvents files of a directory.
//
// Files are named after the last event ID they hold, in hex, so the returned
// paths are sorted by name. Directories and the UUID file are skipped.
func ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &IOError{Path: dir, Err: err}
	}

	paths := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.Name() == UUIDFile || !entry.Type().IsRegular() {
			continue
		}

		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	slices.Sort(paths)

	return paths, nil
}
