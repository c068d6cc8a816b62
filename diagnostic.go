// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package fsevents

import (
	"errors"
	"fmt"
)

// Kind classifies a Diagnostic.
type Kind int

// Diagnostic kinds.
const (
	KindUnknown Kind = iota
	KindMember
	KindPage
	KindTruncation
	KindOverflow
	KindIO
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindMember:
		return "member"
	case KindPage:
		return "page"
	case KindTruncation:
		return "truncation"
	case KindOverflow:
		return "overflow"
	case KindIO:
		return "io"
	case KindUnknown:
	}

	return "unknown"
}

// KindOf classifies err by the typed error it wraps.
func KindOf(err error) Kind {
	var (
		memberErr   *MemberDecodeError
		pageErr     *PageFormatError
		truncErr    *TruncationError
		overflowErr *RecordOverflowError
		ioErr       *IOError
	)

	switch {
	case errors.As(err, &memberErr):
		return KindMember
	case errors.As(err, &pageErr):
		return KindPage
	case errors.As(err, &truncErr):
		return KindTruncation
	case errors.As(err, &overflowErr):
		return KindOverflow
	case errors.As(err, &ioErr):
		return KindIO
	}

	return KindUnknown
}

// Diagnostic is a non-fatal problem found while decoding a file.
type Diagnostic struct {
	Err    error
	Source string
	Kind   Kind
}

func newDiagnostic(source string, err error) Diagnostic {
	return Diagnostic{
		Err:    err,
		Source: source,
		Kind:   KindOf(err),
	}
}

// String implements fmt.Stringer.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Source, d.Kind, d.Err)
}
