// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package fsevents

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Handler consumes a Stream.
//
// Handlers for different files run concurrently.
type Handler func(ctx context.Context, stream *Stream) error

// RecordHandler returns a Handler which drains the stream calling fn for each record.
func RecordHandler(fn func(Record) error) Handler {
	return func(ctx context.Context, stream *Stream) error {
		for rec := range stream.Records(ctx) {
			if err := fn(rec); err != nil {
				return err
			}
		}

		return stream.Err()
	}
}

// FileReport is the outcome of decoding one file.
type FileReport struct {
	// Err is set if the file couldn't be read or the handler failed.
	Err error

	Path string

	Diagnostics []Diagnostic

	Stats Stats
}

// ParseFiles decodes files with up to Concurrency files in flight.
//
// Each file is decoded by its own Stream, and a failure in one file doesn't
// affect the others. Reports are returned in the order of paths. The returned
// error is only set if ctx was canceled.
func (p *Parser) ParseFiles(ctx context.Context, paths []string, handler Handler) ([]FileReport, error) {
	reports := make([]FileReport, len(paths))

	var eg errgroup.Group

	eg.SetLimit(p.opt.Concurrency)

	started := 0

	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}

		eg.Go(func() error {
			reports[i] = p.parseFile(ctx, path, handler)

			return nil
		})

		started++
	}

	eg.Wait() //nolint:errcheck

	if err := ctx.Err(); err != nil {
		for i := started; i < len(paths); i++ {
			reports[i] = FileReport{
				Path: paths[i],
				Err:  err,
			}
		}

		return reports, err
	}

	return reports, nil
}

// ParseDir decodes all FSEvents files of a directory, see ListDir.
func (p *Parser) ParseDir(ctx context.Context, dir string, handler Handler) ([]FileReport, error) {
	paths, err := ListDir(dir)
	if err != nil {
		return nil, err
	}

	p.opt.Logger.Info("decoding directory", zap.String("dir", dir), zap.Int("files", len(paths)))

	return p.ParseFiles(ctx, paths, handler)
}

func (p *Parser) parseFile(ctx context.Context, path string, handler Handler) FileReport {
	report := FileReport{
		Path: path,
	}

	stream, err := p.OpenFile(path)
	if err != nil {
		p.opt.Logger.Error("failed to open file", zap.String("path", path), zap.Error(err))

		report.Err = err
		report.Diagnostics = []Diagnostic{newDiagnostic(path, err)}
		diagnosticsReported.WithLabelValues(KindIO.String()).Inc()

		return report
	}

	if err = handler(ctx, stream); err != nil {
		report.Err = fmt.Errorf("failed to handle %q: %w", path, err)

		p.opt.Logger.Error("failed to handle file", zap.String("path", path), zap.Error(err))
	}

	report.Diagnostics = stream.Diagnostics()
	report.Stats = stream.Stats()

	return report
}
