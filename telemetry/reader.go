// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package telemetry

import (
	"bufio"
	"io"
)

// Reader reads samples from a stream of text lines, such as the serial
// output of the recorder. Lines that are not telemetry, like boot
// messages, are skipped.
type Reader struct {
	s       *bufio.Scanner
	skipped int
}

// NewReader returns a Reader reading from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{s: bufio.NewScanner(r)}
}

// Read returns the next sample. It returns io.EOF at the end of the
// stream.
func (r *Reader) Read() (Sample, error) {
	for r.s.Scan() {
		s, err := Parse(r.s.Text())
		if err != nil {
			r.skipped++
			continue
		}
		return s, nil
	}
	if err := r.s.Err(); err != nil {
		return Sample{}, err
	}
	return Sample{}, io.EOF
}

// ReadAll returns every remaining sample.
func (r *Reader) ReadAll() ([]Sample, error) {
	var out []Sample
	for {
		s, err := r.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, s)
	}
}

// Skipped returns the number of lines that were not telemetry.
func (r *Reader) Skipped() int {
	return r.skipped
}
