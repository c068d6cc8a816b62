// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package fsevents

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Parser creates decoding streams over FSEvents files.
//
// Parser is safe for concurrent use, each Stream it creates is not.
type Parser struct {
	opt Options
}

// NewParser creates new Parser with specified options.
func NewParser(opts ...OptionFunc) (*Parser, error) {
	p := &Parser{
		opt: defaultOptions(),
	}

	for _, o := range opts {
		if err := o(&p.opt); err != nil {
			return nil, err
		}
	}

	if p.opt.Logger == nil {
		p.opt.Logger = zap.NewNop()
	}

	if p.opt.MaxRecordSize > p.opt.MaxPageSize {
		return nil, fmt.Errorf("max record size (%d) should be less or equal to max page size (%d)", p.opt.MaxRecordSize, p.opt.MaxPageSize)
	}

	return p, nil
}

// NewStream creates a Stream decoding the raw bytes of a single file.
//
// raw should not be modified while the stream is in use.
func (p *Parser) NewStream(source string, raw []byte) *Stream {
	return &Stream{
		source:   source,
		logger:   p.opt.Logger.With(zap.String("source", source)),
		splitter: NewSplitter(raw, p.opt.Decompressor),
		framer: Framer{
			MaxResync:   p.opt.MaxResync,
			MaxPageSize: p.opt.MaxPageSize,
		},
		decoder: Decoder{
			Source:        source,
			MaxRecordSize: p.opt.MaxRecordSize,
		},
		progress: rate.Sometimes{Interval: 5 * time.Second},
	}
}

// OpenFile reads a file and creates a Stream over it.
//
// The returned error is an *IOError.
func (p *Parser) OpenFile(path string) (*Stream, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}

	if !st.Mode().IsRegular() {
		return nil, &IOError{Path: path, Err: fmt.Errorf("not a regular file")}
	}

	if st.Size() > p.opt.MaxFileSize {
		return nil, &IOError{Path: path, Err: fmt.Errorf("file size %d exceeds the limit of %d bytes", st.Size(), p.opt.MaxFileSize)}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}

	return p.NewStream(path, raw), nil
}
