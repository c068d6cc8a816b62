// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package fsevents

import (
	"context"
	"errors"
	"io"
	"iter"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Stats summarizes the progress of a Stream.
type Stats struct {
	// Bytes is the number of decompressed bytes.
	Bytes int64

	Members         int
	FailedMembers   int
	Pages           int
	Records         int
	OrderViolations int
}

// Stream decodes a single file in one forward pass: gzip members are split and
// decompressed, framed into pages, and pages are decoded into records.
//
// Records are pulled with Next; at most one page worth of records is buffered.
// Problems which don't stop decoding are collected as diagnostics.
//
// Stream is not safe for concurrent use.
type Stream struct {
	logger   *zap.Logger
	splitter *Splitter

	err error

	source string

	pending     []Record
	diagnostics []Diagnostic

	decoder Decoder
	framer  Framer
	carry   Carry

	progress rate.Sometimes

	stats Stats

	next int

	lastEventID  uint64
	lastBoundary bool
	seen         bool

	// last resync reported, trailing garbage right after it extends it
	lastSkip *PageFormatError

	done bool
}

// Source returns the file name the stream decodes.
func (s *Stream) Source() string {
	return s.source
}

// Next returns the next record.
//
// Next returns io.EOF once the input is exhausted. Cancellation of ctx is
// checked between pages, and it stops the stream with ctx.Err().
func (s *Stream) Next(ctx context.Context) (Record, error) {
	for {
		if s.next < len(s.pending) {
			rec := s.pending[s.next]
			s.next++

			s.checkOrder(rec)

			return rec, nil
		}

		s.pending, s.next = nil, 0

		if s.err != nil {
			return Record{}, s.err
		}

		if s.done {
			return Record{}, io.EOF
		}

		if err := ctx.Err(); err != nil {
			s.err = err

			return Record{}, err
		}

		s.step()
	}
}

// Records returns an iterator over the remaining records.
//
// The iteration stops at the end of the input or on cancellation, see Err.
func (s *Stream) Records(ctx context.Context) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for {
			rec, err := s.Next(ctx)
			if err != nil {
				return
			}

			if !yield(rec) {
				return
			}
		}
	}
}

// Collect reads all remaining records.
func (s *Stream) Collect(ctx context.Context) ([]Record, error) {
	var records []Record

	for rec := range s.Records(ctx) {
		records = append(records, rec)
	}

	return records, s.Err()
}

// Err returns the error which stopped the stream early, if any.
//
// Decoding problems are not errors, see Diagnostics.
func (s *Stream) Err() error {
	return s.err
}

// Diagnostics returns the problems found so far.
func (s *Stream) Diagnostics() []Diagnostic {
	return slices.Clone(s.diagnostics)
}

// Stats returns decoding statistics so far.
func (s *Stream) Stats() Stats {
	return s.stats
}

// step advances the pipeline by one page or one member.
func (s *Stream) step() {
	page, err := s.framer.Next()

	switch {
	case err == nil:
		s.decodePage(page)

		return
	case errors.Is(err, ErrNeedMoreData):
	default:
		var pageErr *PageFormatError
		if errors.As(err, &pageErr) {
			s.lastSkip = pageErr
		}

		s.report(err)

		return
	}

	member, ok := s.splitter.Next()
	if !ok {
		s.finish()

		return
	}

	s.stats.Members++

	if member.Err != nil {
		s.stats.FailedMembers++

		// byte continuity is broken, whatever was carried can't be completed
		discarded := s.framer.Reset() + s.carry.Len()
		s.carry = Carry{}

		var memberErr *MemberDecodeError
		if errors.As(member.Err, &memberErr) {
			memberErr.Discarded = discarded
		}

		s.report(member.Err)

		return
	}

	membersDecoded.Inc()

	s.stats.Bytes += int64(len(member.Data))
	s.framer.Feed(member.Data)
}

func (s *Stream) decodePage(page Page) {
	s.stats.Pages++
	pagesDecoded.WithLabelValues(page.Version.String()).Inc()

	records, carry, err := s.decoder.Decode(s.carry, page)
	s.carry = carry

	if err != nil {
		s.report(err)
	}

	s.pending = records
	s.stats.Records += len(records)
	recordsDecoded.Add(float64(len(records)))

	s.progress.Do(func() {
		s.logger.Debug("decoding progress",
			zap.Int("members", s.stats.Members),
			zap.Int("pages", s.stats.Pages),
			zap.Int("records", s.stats.Records),
			zap.Int64("decompressed_bytes", s.stats.Bytes),
		)
	})
}

// finish is called once the raw input is exhausted.
func (s *Stream) finish() {
	s.done = true

	if s.framer.Pending() > 0 && !s.framer.PendingPage() {
		s.skipTrailing()
	}

	if n := s.carry.Len() + s.framer.Pending(); n > 0 {
		offset := s.framer.Offset()
		if !s.carry.Empty() {
			offset = s.carry.Offset()
		}

		s.report(&TruncationError{
			Offset: offset,
			Bytes:  n,
		})

		s.carry = Carry{}
		s.framer.Reset()
	}

	filesDecoded.Inc()

	s.logger.Debug("finished decoding",
		zap.Int("members", s.stats.Members),
		zap.Int("failed_members", s.stats.FailedMembers),
		zap.Int("pages", s.stats.Pages),
		zap.Int("records", s.stats.Records),
		zap.Int("diagnostics", len(s.diagnostics)),
	)
}

// skipTrailing drops pending bytes which can't start a page.
//
// The bytes kept back by a failed resync are added to that resync diagnostic.
func (s *Stream) skipTrailing() {
	offset := s.framer.Offset()
	n := int64(s.framer.Reset())

	if s.lastSkip != nil && s.lastSkip.Offset+s.lastSkip.Skipped == offset {
		s.lastSkip.Skipped += n

		return
	}

	s.report(&PageFormatError{
		Err:     ErrUnknownMagic,
		Offset:  offset,
		Skipped: n,
	})
}

func (s *Stream) report(err error) {
	diag := newDiagnostic(s.source, err)

	s.diagnostics = append(s.diagnostics, diag)
	diagnosticsReported.WithLabelValues(diag.Kind.String()).Inc()

	s.logger.Warn("decoding problem", zap.Stringer("kind", diag.Kind), zap.Error(err))
}

// checkOrder verifies event IDs don't go backwards, except right after a boundary record.
func (s *Stream) checkOrder(rec Record) {
	if s.seen && rec.EventID < s.lastEventID && !s.lastBoundary {
		s.stats.OrderViolations++
		orderViolations.Inc()

		s.logger.Debug("event ID went backwards",
			zap.Uint64("event_id", rec.EventID),
			zap.Uint64("previous_event_id", s.lastEventID),
			zap.Int64("offset", rec.Offset),
		)
	}

	s.seen = true
	s.lastEventID = rec.EventID
	s.lastBoundary = rec.Boundary
}
