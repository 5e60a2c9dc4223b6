// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rgbled

import (
	"context"
	"image/color"
	"time"
)

// Rainbow cycles through the hues at full saturation and value.
type Rainbow struct {
	// Hue is the next hue shown, in degrees.
	Hue uint16
	// Step is the hue increment per tick. Zero means one degree.
	Step uint16
}

// Next returns the colour of the current hue and advances the hue, wrapping
// at 360.
func (r *Rainbow) Next() color.NRGBA {
	c := HSV(r.Hue, 255, 255)
	step := r.Step
	if step == 0 {
		step = 1
	}
	r.Hue = (r.Hue + step) % 360
	return c
}

// Tick shows the next colour on l.
func (r *Rainbow) Tick(l LED) error {
	return l.SetColor(r.Next())
}

// Blink alternates c and Off on l, period on and period off, until ctx is
// done. The LED is left off. It returns the first error from l, or
// ctx.Err().
func Blink(ctx context.Context, l LED, c color.NRGBA, period time.Duration) error {
	t := time.NewTicker(period)
	defer t.Stop()
	on := true
	if err := l.SetColor(c); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			if err := l.SetColor(Off); err != nil {
				return err
			}
			return ctx.Err()
		case <-t.C:
			on = !on
			next := Off
			if on {
				next = c
			}
			if err := l.SetColor(next); err != nil {
				return err
			}
		}
	}
}
