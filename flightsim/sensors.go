// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package flightsim

import (
	"encoding/binary"
	"math"
	"sort"
	"time"

	"github.com/GermanBionicSystems/fdr/bmp280"
	"github.com/GermanBionicSystems/fdr/lsm6ds3"
	"github.com/GermanBionicSystems/fdr/twi/twisim"
)

// DefaultCalibration is the trimming of the BMP280 datasheet example.
var DefaultCalibration = bmp280.Calibration{
	T1: 27504, T2: 26435, T3: -1000,
	P1: 36477, P2: -10685, P3: 3024, P4: 2855, P5: 140,
	P6: -7, P7: 15500, P8: -14600, P9: 6000,
}

// adcMax is the largest 20 bit conversion result.
const adcMax = 1<<20 - 1

// Barometer is a BMP280 register model.
type Barometer struct {
	twisim.RegisterFile

	cal     bmp280.Calibration
	atm     Atmosphere
	profile Profile
	now     func() time.Duration
}

// NewBarometer returns a BMP280 whose pressure follows profile through
// atm. now returns the current simulation time.
func NewBarometer(p Profile, atm Atmosphere, cal bmp280.Calibration, now func() time.Duration) *Barometer {
	b := &Barometer{cal: cal, atm: atm, profile: p, now: now}
	b.Regs[bmp280.RegID] = bmp280.ChipID
	copy(b.Regs[bmp280.RegCalibration:], cal.Bytes())
	b.OnSelect = func(f *twisim.RegisterFile, read bool) {
		if read {
			b.convert()
		}
	}
	b.OnWrite = func(f *twisim.RegisterFile, reg, v byte) {
		if reg == bmp280.RegReset && v == 0xB6 {
			f.Regs[bmp280.RegCtrlMeas] = 0
			f.Regs[bmp280.RegConfig] = 0
		}
	}
	return b
}

// convert refreshes the data registers. The register file is locked.
func (b *Barometer) convert() {
	h := b.profile.At(b.now()).Altitude
	p, t := b.atm.At(h)
	adcT, adcP := b.Raw(int32(math.Round(t*100)), uint32(math.Round(p)))
	put20(b.Regs[bmp280.RegData:], adcP)
	put20(b.Regs[bmp280.RegData+3:], adcT)
}

// Raw returns the ADC values the device reports for a temperature in
// 0.01°C and a pressure in Pa. Compensation is monotonic in both inputs,
// so each is a binary search over the 20 bit range.
func (b *Barometer) Raw(t int32, p uint32) (int32, int32) {
	adcT := int32(sort.Search(adcMax+1, func(i int) bool {
		v, _ := b.cal.Compensate(int32(i), 0)
		return v >= t
	}))
	// Pressure decreases as the conversion result increases.
	adcP := int32(sort.Search(adcMax+1, func(i int) bool {
		_, v := b.cal.Compensate(adcT, int32(i))
		return v <= p
	}))
	return clamp20(adcT), clamp20(adcP)
}

func clamp20(v int32) int32 {
	if v > adcMax {
		return adcMax
	}
	return v
}

func put20(b []byte, v int32) {
	b[0] = byte(v >> 12)
	b[1] = byte(v >> 4)
	b[2] = byte(v << 4)
}

// Inertial is an LSM6DS3 register model.
type Inertial struct {
	twisim.RegisterFile

	profile Profile
	now     func() time.Duration
}

// NewInertial returns an LSM6DS3 whose outputs follow profile. id is the
// WHO_AM_I value.
func NewInertial(p Profile, id byte, now func() time.Duration) *Inertial {
	m := &Inertial{profile: p, now: now}
	m.Regs[lsm6ds3.RegWhoAmI] = id
	m.OnSelect = func(f *twisim.RegisterFile, read bool) {
		if read {
			m.convert()
		}
	}
	return m
}

// convert refreshes the output registers from the ranges programmed in
// CTRL1_XL and CTRL2_G. The register file is locked.
func (m *Inertial) convert() {
	s := m.profile.At(m.now())
	var out [12]byte
	if gs, ok := lsm6ds3.GyroRange(m.Regs[lsm6ds3.RegCtrl2G] >> 1 & 7).Sensitivity(); ok {
		for i, v := range s.Gyro {
			binary.LittleEndian.PutUint16(out[2*i:], uint16(saturate(v/gs)))
		}
	}
	if as, ok := lsm6ds3.AccelRange(m.Regs[lsm6ds3.RegCtrl1XL] >> 2 & 3).Sensitivity(); ok {
		for i, v := range s.Accel {
			binary.LittleEndian.PutUint16(out[6+2*i:], uint16(saturate(v/as)))
		}
	}
	copy(m.Regs[lsm6ds3.RegOutGyro:], out[:])
}

func saturate(f float64) int16 {
	f = math.Round(f)
	switch {
	case f > math.MaxInt16:
		return math.MaxInt16
	case f < math.MinInt16:
		return math.MinInt16
	}
	return int16(f)
}

// Opts configures a simulation.
type Opts struct {
	Atmosphere  Atmosphere
	Calibration bmp280.Calibration
	// WhoAmI is the identification of the inertial unit.
	WhoAmI byte
}

// DefaultOpts simulates a LSM6DS3TR-C at sea level.
var DefaultOpts = Opts{
	Atmosphere:  DefaultAtmosphere,
	Calibration: DefaultCalibration,
	WhoAmI:      lsm6ds3.IDLSM6DS3TRC,
}

// Sim is a simulated sensor bus.
type Sim struct {
	Bus  *twisim.Bus
	Baro *Barometer
	IMU  *Inertial
}

// New returns a quiet twisim bus with a barometer at bmp280.DefaultAddress
// and an inertial unit at lsm6ds3.DefaultAddress, both following p.
func New(p Profile, now func() time.Duration, opts *Opts) *Sim {
	if opts == nil {
		opts = &DefaultOpts
	}
	s := &Sim{
		Bus:  twisim.New(),
		Baro: NewBarometer(p, opts.Atmosphere, opts.Calibration, now),
		IMU:  NewInertial(p, opts.WhoAmI, now),
	}
	s.Bus.Quiet = true
	s.Bus.Attach(byte(bmp280.DefaultAddress), s.Baro)
	s.Bus.Attach(byte(lsm6ds3.DefaultAddress), s.IMU)
	return s
}
