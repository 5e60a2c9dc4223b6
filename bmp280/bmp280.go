// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bmp280

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

const (
	// DefaultAddress is the address with SDO tied to ground.
	DefaultAddress uint16 = 0x76
	// ChipID is the content of the id register.
	ChipID byte = 0x58
)

// Register map.
const (
	RegCalibration byte = 0x88
	RegID          byte = 0xD0
	RegReset       byte = 0xE0
	RegStatus      byte = 0xF3
	RegCtrlMeas    byte = 0xF4
	RegConfig      byte = 0xF5
	RegData        byte = 0xF7 // press_msb..temp_xlsb
)

const (
	resetWord     byte = 0xB6
	statusMeasure byte = 1 << 3
	// skipped is the ADC output of a measurement with oversampling Skip.
	skipped int32 = 0x80000
)

// Oversampling is the oversampling setting of one measurement.
type Oversampling uint8

const (
	Skip Oversampling = iota
	O1x
	O2x
	O4x
	O8x
	O16x
)

// Mode is the power mode.
type Mode uint8

const (
	Sleep  Mode = 0
	Forced Mode = 1
	Normal Mode = 3
)

// Filter is the IIR filter coefficient.
type Filter uint8

const (
	NoFilter Filter = iota
	F2
	F4
	F8
	F16
)

// Standby is the inactive duration between two measurements in Normal
// mode.
type Standby uint8

const (
	S500us Standby = iota
	S62ms
	S125ms
	S250ms
	S500ms
	S1s
	S2s
	S4s
)

var (
	// ErrChipID is returned when the id register does not hold ChipID.
	ErrChipID = errors.New("bmp280: unexpected chip id")
	// ErrCalibration is returned when the trimming parameters cannot be
	// used to compensate a reading.
	ErrCalibration = errors.New("bmp280: invalid calibration")
	// ErrBusy is returned when a forced measurement does not complete.
	ErrBusy = errors.New("bmp280: measurement did not complete")
)

// Opts holds the configuration options for the device.
type Opts struct {
	Temperature Oversampling
	Pressure    Oversampling
	Mode        Mode
	Filter      Filter
	// Standby only applies in Normal mode.
	Standby Standby
}

// DefaultOpts holds the configuration used by the flight recorder:
// continuous measurements with the highest resolution and the strongest
// filter.
var DefaultOpts = Opts{
	Temperature: O16x,
	Pressure:    O16x,
	Mode:        Normal,
	Filter:      F16,
	Standby:     S500us,
}

// Dev is a handle to a BMP280.
type Dev struct {
	d    *i2c.Dev
	opts Opts
	cal  Calibration

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewI2C returns a device connected over I²C at addr, usually
// DefaultAddress. The Opts can be nil.
//
// The chip id is checked, the trimming parameters are loaded and the
// measurement configuration is written.
func NewI2C(b i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{d: &i2c.Dev{Bus: b, Addr: addr}, opts: *opts}
	id, err := d.readReg(RegID)
	if err != nil {
		return nil, fmt.Errorf("bmp280: reading id: %w", err)
	}
	if id != ChipID {
		return nil, fmt.Errorf("%w: %#02x", ErrChipID, id)
	}
	raw := make([]byte, CalibrationSize)
	if err := d.d.Tx([]byte{RegCalibration}, raw); err != nil {
		return nil, fmt.Errorf("bmp280: reading calibration: %w", err)
	}
	if d.cal, err = ParseCalibration(raw); err != nil {
		return nil, err
	}
	// The config register is only guaranteed to be written outside of
	// Normal mode, so it goes first.
	if err := d.d.Tx([]byte{RegConfig, d.opts.config()}, nil); err != nil {
		return nil, fmt.Errorf("bmp280: writing config: %w", err)
	}
	if err := d.d.Tx([]byte{RegCtrlMeas, d.opts.ctrlMeas(d.opts.Mode)}, nil); err != nil {
		return nil, fmt.Errorf("bmp280: writing ctrl_meas: %w", err)
	}
	return d, nil
}

// Sense implements physic.SenseEnv. Temperature and Pressure are set,
// Humidity is left untouched.
//
// In Forced mode a measurement is triggered and waited for first.
func (d *Dev) Sense(e *physic.Env) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sense(e)
}

// SenseContinuous implements physic.SenseEnv. It is the caller's
// responsibility to call Halt() when done. Failed readings are skipped.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return nil, errors.New("bmp280: already sensing continuously")
	}
	d.stop = make(chan struct{})
	ch := make(chan physic.Env)
	d.wg.Add(1)
	go func(stop <-chan struct{}) {
		defer d.wg.Done()
		defer close(ch)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				var e physic.Env
				d.mu.Lock()
				err := d.sense(&e)
				d.mu.Unlock()
				if err != nil {
					continue
				}
				select {
				case ch <- e:
				case <-stop:
					return
				}
			}
		}
	}(d.stop)
	return ch, nil
}

// Halt implements conn.Resource. It stops SenseContinuous.
func (d *Dev) Halt() error {
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	d.mu.Unlock()
	if stop == nil {
		return nil
	}
	close(stop)
	d.wg.Wait()
	return nil
}

// Precision implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = 10 * physic.MilliKelvin
	e.Pressure = physic.Pascal
}

// Reset performs a power-on reset. The configuration is lost; create a new
// Dev afterward.
func (d *Dev) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.d.Tx([]byte{RegReset, resetWord}, nil); err != nil {
		return fmt.Errorf("bmp280: reset: %w", err)
	}
	return nil
}

// Calibration returns the trimming parameters read from the device.
func (d *Dev) Calibration() Calibration {
	return d.cal
}

func (d *Dev) String() string {
	return fmt.Sprintf("BMP280{%s}", d.d)
}

func (d *Dev) sense(e *physic.Env) error {
	if d.opts.Mode == Forced {
		if err := d.forced(); err != nil {
			return err
		}
	}
	raw := make([]byte, 6)
	if err := d.d.Tx([]byte{RegData}, raw); err != nil {
		return fmt.Errorf("bmp280: reading data: %w", err)
	}
	adcP := int32(raw[0])<<12 | int32(raw[1])<<4 | int32(raw[2])>>4
	adcT := int32(raw[3])<<12 | int32(raw[4])<<4 | int32(raw[5])>>4
	if adcT == skipped {
		return errors.New("bmp280: temperature measurement is disabled")
	}
	t, fine := d.cal.temperature(adcT)
	e.Temperature = physic.ZeroCelsius + physic.Temperature(t)*10*physic.MilliKelvin
	if adcP == skipped {
		return nil
	}
	p := d.cal.pressure(adcP, fine)
	if p == 0 {
		return ErrCalibration
	}
	e.Pressure = physic.Pressure(p) * physic.Pascal
	return nil
}

// forced starts one measurement and polls the status register until the
// conversion is over.
func (d *Dev) forced() error {
	if err := d.d.Tx([]byte{RegCtrlMeas, d.opts.ctrlMeas(Forced)}, nil); err != nil {
		return fmt.Errorf("bmp280: triggering measurement: %w", err)
	}
	for i := 0; i < 100; i++ {
		st, err := d.readReg(RegStatus)
		if err != nil {
			return fmt.Errorf("bmp280: reading status: %w", err)
		}
		if st&statusMeasure == 0 {
			return nil
		}
		time.Sleep(time.Millisecond)
	}
	return ErrBusy
}

func (d *Dev) readReg(reg byte) (byte, error) {
	var b [1]byte
	err := d.d.Tx([]byte{reg}, b[:])
	return b[0], err
}

func (o *Opts) ctrlMeas(m Mode) byte {
	return byte(o.Temperature&7)<<5 | byte(o.Pressure&7)<<2 | byte(m&3)
}

func (o *Opts) config() byte {
	return byte(o.Standby&7)<<5 | byte(o.Filter&7)<<2
}

// Altitude returns the height above the level where the pressure is p0,
// using the international barometric formula
// 44330 * (1 - (p/p0)^0.1903) m.
func Altitude(p, p0 physic.Pressure) physic.Distance {
	if p0 <= 0 || p <= 0 {
		return 0
	}
	h := 44330 * (1 - math.Pow(float64(p)/float64(p0), 0.1903))
	return physic.Distance(h * float64(physic.Metre))
}

var _ physic.SenseEnv = &Dev{}
var _ fmt.Stringer = &Dev{}
