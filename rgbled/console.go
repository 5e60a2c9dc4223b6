// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rgbled

import (
	"bytes"
	"image/color"
	"io"
	"sync"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// ConsoleOpts represents the options available for a Console.
type ConsoleOpts struct {
	// W is where the LED is drawn. Default is stdout, through colorable so
	// it also works on Windows consoles.
	W io.Writer
	// Width is the number of character cells the LED takes. Default is 2.
	Width   int
	Palette *ansi256.Palette
}

// Console is an LED emulator that outputs to the console.
//
// It redraws the same line on every change.
type Console struct {
	w       io.Writer
	width   int
	palette ansi256.Palette

	mu  sync.Mutex
	cur color.NRGBA
	buf bytes.Buffer
}

// NewConsole returns a Console. The opts can be nil.
func NewConsole(opts *ConsoleOpts) *Console {
	var o ConsoleOpts
	if opts != nil {
		o = *opts
	}
	if o.W == nil {
		o.W = colorable.NewColorableStdout()
	}
	if o.Width <= 0 {
		o.Width = 2
	}
	p := o.Palette
	if p == nil {
		p = ansi256.Default
	}
	return &Console{w: o.W, width: o.Width, palette: *p}
}

func (c *Console) String() string {
	return "Console"
}

// SetColor implements LED.
func (c *Console) SetColor(col color.NRGBA) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if col == c.cur && c.buf.Len() != 0 {
		return nil
	}
	c.cur = col
	// Minimize the amount of memory allocated per call.
	c.buf.Reset()
	_, _ = c.buf.WriteString("\r\033[0m")
	block := c.palette.Block(col)
	for i := 0; i < c.width; i++ {
		_, _ = c.buf.WriteString(block)
	}
	_, _ = c.buf.WriteString("\033[0m ")
	_, err := c.w.Write(c.buf.Bytes())
	return err
}

// Halt implements conn.Resource.
//
// It resets the terminal attributes and moves to the next line.
func (c *Console) Halt() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.Reset()
	_, err := c.w.Write([]byte("\n\033[0m"))
	return err
}

var _ LED = &Console{}
