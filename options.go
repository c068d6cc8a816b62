// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package fsevents

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"github.com/siderolabs/go-fsevents/gzip"
)

// DefaultMaxFileSize limits the size of a raw file read by OpenFile.
const DefaultMaxFileSize = 2 * 1024 * 1024 * 1024

// Options defines settings for Parser.
type Options struct {
	Decompressor Decompressor

	Logger *zap.Logger

	MaxResync     int
	MaxPageSize   int
	MaxRecordSize int

	MaxFileSize int64

	Concurrency int
}

// defaultOptions returns default initial values.
func defaultOptions() Options {
	return Options{
		Decompressor:  gzip.NewDecompressor(0),
		Logger:        zap.NewNop(),
		MaxResync:     DefaultMaxResync,
		MaxPageSize:   DefaultMaxPageSize,
		MaxRecordSize: DefaultMaxRecordSize,
		MaxFileSize:   DefaultMaxFileSize,
		Concurrency:   runtime.GOMAXPROCS(0),
	}
}

// OptionFunc allows setting Parser options.
type OptionFunc func(*Options) error

// WithDecompressor sets the gzip member decompressor.
func WithDecompressor(dec Decompressor) OptionFunc {
	return func(opt *Options) error {
		if dec == nil {
			return fmt.Errorf("decompressor should be set")
		}

		opt.Decompressor = dec

		return nil
	}
}

// WithLogger sets logger for Parser.
func WithLogger(logger *zap.Logger) OptionFunc {
	return func(opt *Options) error {
		opt.Logger = logger

		return nil
	}
}

// WithMaxResync sets how far the framer scans for the next page header after a bad one.
func WithMaxResync(n int) OptionFunc {
	return func(opt *Options) error {
		if n <= 0 {
			return fmt.Errorf("max resync distance should be positive: %d", n)
		}

		opt.MaxResync = n

		return nil
	}
}

// WithMaxPageSize sets the maximum declared page size accepted by the framer.
//
// Pages declaring a larger size are treated as corrupt headers.
func WithMaxPageSize(n int) OptionFunc {
	return func(opt *Options) error {
		if n <= PageHeaderSize {
			return fmt.Errorf("max page size should be greater than the page header size: %d", n)
		}

		opt.MaxPageSize = n

		return nil
	}
}

// WithMaxRecordSize sets the maximum size of a record carried across pages.
func WithMaxRecordSize(n int) OptionFunc {
	return func(opt *Options) error {
		if n <= 0 {
			return fmt.Errorf("max record size should be positive: %d", n)
		}

		opt.MaxRecordSize = n

		return nil
	}
}

// WithMaxFileSize sets the maximum size of a raw file accepted by OpenFile.
func WithMaxFileSize(n int64) OptionFunc {
	return func(opt *Options) error {
		if n <= 0 {
			return fmt.Errorf("max file size should be positive: %d", n)
		}

		opt.MaxFileSize = n

		return nil
	}
}

// WithConcurrency sets the number of files decoded concurrently by ParseFiles.
func WithConcurrency(n int) OptionFunc {
	return func(opt *Options) error {
		if n <= 0 {
			return fmt.Errorf("concurrency should be positive: %d", n)
		}

		opt.Concurrency = n

		return nil
	}
}
