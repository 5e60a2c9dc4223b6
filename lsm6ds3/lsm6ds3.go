// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lsm6ds3

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
)

// DefaultAddress is the address with SA0 pulled high.
const DefaultAddress uint16 = 0x6B

// WHO_AM_I values.
const (
	IDLSM6DS3TRC byte = 0x69
	IDLSM6DS3    byte = 0x6A
)

// Register map.
const (
	RegWhoAmI  byte = 0x0F
	RegCtrl1XL byte = 0x10
	RegCtrl2G  byte = 0x11
	RegCtrl3C  byte = 0x12
	RegOutGyro byte = 0x22 // OUTX_L_G, followed by the accelerometer at 0x28
)

// ctrl3 enables block data update and register auto-increment.
const ctrl3 byte = 0x44

// AccelRange is the accelerometer full scale, encoded as in CTRL1_XL.
type AccelRange uint8

const (
	A2G  AccelRange = 0
	A16G AccelRange = 1
	A4G  AccelRange = 2
	A8G  AccelRange = 3
)

// GyroRange is the gyroscope full scale, encoded as in CTRL2_G.
type GyroRange uint8

const (
	G250  GyroRange = 0
	G125  GyroRange = 1
	G500  GyroRange = 2
	G1000 GyroRange = 4
	G2000 GyroRange = 6
)

// Rate is an output data rate.
type Rate uint8

const (
	RateOff Rate = iota
	Rate12Hz5
	Rate26Hz
	Rate52Hz
	Rate104Hz
	Rate208Hz
	Rate416Hz
	Rate833Hz
	Rate1660Hz
	Rate3330Hz
	Rate6660Hz
)

// Sensitivity returns the scale in g per LSB. It is false for an invalid
// range.
func (r AccelRange) Sensitivity() (float64, bool) {
	switch r {
	case A2G:
		return 0.061e-3, true
	case A4G:
		return 0.122e-3, true
	case A8G:
		return 0.244e-3, true
	case A16G:
		return 0.488e-3, true
	}
	return 0, false
}

// Sensitivity returns the scale in degrees per second per LSB.
func (r GyroRange) Sensitivity() (float64, bool) {
	switch r {
	case G125:
		return 4.375e-3, true
	case G250:
		return 8.75e-3, true
	case G500:
		return 17.5e-3, true
	case G1000:
		return 35e-3, true
	case G2000:
		return 70e-3, true
	}
	return 0, false
}

// ErrWhoAmI is returned when the identification register holds neither
// IDLSM6DS3 nor IDLSM6DS3TRC.
var ErrWhoAmI = errors.New("lsm6ds3: unexpected WHO_AM_I")

// Opts holds the configuration options for the device.
type Opts struct {
	AccelRange AccelRange
	GyroRange  GyroRange
	AccelRate  Rate
	GyroRate   Rate
}

// DefaultOpts covers the dynamics of a model rocket: ±16g and ±2000dps
// sampled at 1.66kHz.
var DefaultOpts = Opts{
	AccelRange: A16G,
	GyroRange:  G2000,
	AccelRate:  Rate1660Hz,
	GyroRate:   Rate1660Hz,
}

// Sample is one reading, X Y Z.
type Sample struct {
	// Accel is the acceleration in g.
	Accel [3]float64
	// Gyro is the angular rate in degrees per second.
	Gyro [3]float64
}

func (s Sample) String() string {
	return fmt.Sprintf("Accel:[%.3f %.3f %.3f]g Gyro:[%.2f %.2f %.2f]dps",
		s.Accel[0], s.Accel[1], s.Accel[2], s.Gyro[0], s.Gyro[1], s.Gyro[2])
}

// Dev is a handle to an LSM6DS3.
type Dev struct {
	d          *i2c.Dev
	id         byte
	accelScale float64
	gyroScale  float64

	mu  sync.Mutex
	buf [12]byte
}

// NewI2C returns a device connected over I²C at addr, usually
// DefaultAddress. The Opts can be nil.
func NewI2C(b i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	as, ok := opts.AccelRange.Sensitivity()
	if !ok {
		return nil, fmt.Errorf("lsm6ds3: invalid accelerometer range %d", opts.AccelRange)
	}
	gs, ok := opts.GyroRange.Sensitivity()
	if !ok {
		return nil, fmt.Errorf("lsm6ds3: invalid gyroscope range %d", opts.GyroRange)
	}
	if opts.AccelRate > Rate6660Hz || opts.GyroRate > Rate6660Hz {
		return nil, errors.New("lsm6ds3: invalid output data rate")
	}
	d := &Dev{d: &i2c.Dev{Bus: b, Addr: addr}, accelScale: as, gyroScale: gs}

	var id [1]byte
	if err := d.d.Tx([]byte{RegWhoAmI}, id[:]); err != nil {
		return nil, fmt.Errorf("lsm6ds3: reading WHO_AM_I: %w", err)
	}
	if id[0] != IDLSM6DS3 && id[0] != IDLSM6DS3TRC {
		return nil, fmt.Errorf("%w: %#02x", ErrWhoAmI, id[0])
	}
	d.id = id[0]
	writes := [][]byte{
		{RegCtrl1XL, byte(opts.AccelRate)<<4 | byte(opts.AccelRange)<<2},
		{RegCtrl2G, byte(opts.GyroRate)<<4 | byte(opts.GyroRange)<<1},
		{RegCtrl3C, ctrl3},
	}
	for _, w := range writes {
		if err := d.d.Tx(w, nil); err != nil {
			return nil, fmt.Errorf("lsm6ds3: writing %#02x: %w", w[0], err)
		}
	}
	return d, nil
}

// Sense reads the latest sample.
func (d *Dev) Sense() (Sample, error) {
	raw, err := d.SenseRaw()
	if err != nil {
		return Sample{}, err
	}
	var s Sample
	for i := 0; i < 3; i++ {
		s.Gyro[i] = float64(raw[i]) * d.gyroScale
		s.Accel[i] = float64(raw[3+i]) * d.accelScale
	}
	return s, nil
}

// SenseRaw reads the latest sample as the raw register values: gyroscope
// X Y Z then accelerometer X Y Z.
func (d *Dev) SenseRaw() ([6]int16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var raw [6]int16
	if err := d.d.Tx([]byte{RegOutGyro}, d.buf[:]); err != nil {
		return raw, fmt.Errorf("lsm6ds3: reading outputs: %w", err)
	}
	for i := range raw {
		raw[i] = int16(binary.LittleEndian.Uint16(d.buf[2*i:]))
	}
	return raw, nil
}

// Halt implements conn.Resource. The sensors keep sampling; there is
// nothing to stop on the host side.
func (d *Dev) Halt() error {
	return nil
}

func (d *Dev) String() string {
	name := "LSM6DS3"
	if d.id == IDLSM6DS3TRC {
		name = "LSM6DS3TR-C"
	}
	return fmt.Sprintf("%s{%s}", name, d.d)
}
