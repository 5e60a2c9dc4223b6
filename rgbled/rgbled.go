// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rgbled

import (
	"errors"
	"fmt"
	"image/color"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// LED is an output able to show one colour.
type LED interface {
	SetColor(c color.NRGBA) error
}

// Named colours.
var (
	Red    = color.NRGBA{255, 0, 0, 255}
	Green  = color.NRGBA{0, 255, 0, 255}
	Blue   = color.NRGBA{0, 0, 255, 255}
	White  = color.NRGBA{255, 255, 255, 255}
	Yellow = color.NRGBA{255, 255, 0, 255}
	Cyan   = color.NRGBA{0, 255, 255, 255}
	Purple = color.NRGBA{255, 0, 255, 255}
	Off    = color.NRGBA{0, 0, 0, 255}
)

// Opts holds the configuration options for a Dev.
type Opts struct {
	// CommonAnode inverts the duty cycle: the channel is lit when the pin
	// is low.
	CommonAnode bool
	// Frequency is the PWM frequency.
	Frequency physic.Frequency
}

// DefaultOpts matches the recorder board: a common anode LED on 8-bit
// timers running without prescaler.
var DefaultOpts = Opts{
	CommonAnode: true,
	Frequency:   62500 * physic.Hertz,
}

// Dev is an RGB LED wired to three PWM pins.
type Dev struct {
	opts Opts
	pins [3]gpio.PinOut

	mu  sync.Mutex
	cur color.NRGBA
}

// New returns a Dev driving the red, green and blue pins. The LED is
// turned off. The Opts can be nil.
func New(r, g, b gpio.PinOut, opts *Opts) (*Dev, error) {
	if r == nil || g == nil || b == nil {
		return nil, errors.New("rgbled: a pin is missing")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{opts: *opts, pins: [3]gpio.PinOut{r, g, b}}
	if err := d.SetColor(Off); err != nil {
		return nil, err
	}
	return d, nil
}

// SetColor implements LED.
func (d *Dev) SetColor(c color.NRGBA) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, v := range [3]uint8{c.R, c.G, c.B} {
		if err := d.pins[i].PWM(d.duty(v), d.opts.Frequency); err != nil {
			return fmt.Errorf("rgbled: %s: %w", d.pins[i], err)
		}
	}
	d.cur = c
	return nil
}

// Color returns the colour last set.
func (d *Dev) Color() color.NRGBA {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cur
}

// Halt implements conn.Resource. It turns the LED off.
func (d *Dev) Halt() error {
	return d.SetColor(Off)
}

func (d *Dev) String() string {
	return fmt.Sprintf("RGBLED{%s, %s, %s}", d.pins[0], d.pins[1], d.pins[2])
}

func (d *Dev) duty(v uint8) gpio.Duty {
	if d.opts.CommonAnode {
		v = 255 - v
	}
	return gpio.Duty(uint64(v) * uint64(gpio.DutyMax) / 255)
}

var _ LED = &Dev{}
var _ fmt.Stringer = &Dev{}
