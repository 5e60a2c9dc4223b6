// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bmp280

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/fdr/twi"
	"github.com/GermanBionicSystems/fdr/twi/twisim"
)

var (
	calibration = []byte{
		0x70, 0x6b, 0x43, 0x67, 0x18, 0xfc, 0x7d, 0x8e, 0x43, 0xd6, 0xd0, 0x0b,
		0x27, 0x0b, 0x8c, 0x00, 0xf9, 0xff, 0x8c, 0x3c, 0xf8, 0xc6, 0x70, 0x17,
	}
	// adc_P=415148, adc_T=519888: 25.08°C, 100656Pa.
	reading = []byte{0x65, 0x5a, 0xc0, 0x7e, 0xed, 0x00}
)

func initOps(addr uint16) []i2ctest.IO {
	return []i2ctest.IO{
		{Addr: addr, W: []byte{RegID}, R: []byte{ChipID}},
		{Addr: addr, W: []byte{RegCalibration}, R: calibration},
		{Addr: addr, W: []byte{RegConfig, 0x10}},
		{Addr: addr, W: []byte{RegCtrlMeas, 0xB7}},
	}
}

func TestParseCalibration(t *testing.T) {
	c, err := ParseCalibration(calibration)
	if err != nil {
		t.Fatal(err)
	}
	expected := Calibration{
		T1: 27504, T2: 26435, T3: -1000,
		P1: 36477, P2: -10685, P3: 3024, P4: 2855, P5: 140,
		P6: -7, P7: 15500, P8: -14600, P9: 6000,
	}
	if diff := cmp.Diff(c, expected); diff != "" {
		t.Errorf("calibration difference (-got +want):\n%s", diff)
	}
	if !bytes.Equal(c.Bytes(), calibration) {
		t.Errorf("Bytes()=%#v", c.Bytes())
	}
	if _, err := ParseCalibration(calibration[:10]); err == nil {
		t.Error("short calibration accepted")
	}
}

func TestCompensate(t *testing.T) {
	c, _ := ParseCalibration(calibration)
	temp, press := c.Compensate(519888, 415148)
	if temp != 2508 {
		t.Errorf("temperature %d expected 2508", temp)
	}
	if press != 100656 {
		t.Errorf("pressure %d expected 100656", press)
	}
	if _, fine := c.temperature(519888); fine != 128422 {
		t.Errorf("t_fine %d expected 128422", fine)
	}
	c.P1 = 0
	if _, press := c.Compensate(519888, 415148); press != 0 {
		t.Errorf("pressure %d with dig_P1=0", press)
	}
}

func TestNewI2C(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: append(initOps(DefaultAddress),
			i2ctest.IO{Addr: DefaultAddress, W: []byte{RegData}, R: reading}),
		DontPanic: true,
	}
	defer bus.Close()
	dev, err := NewI2C(bus, DefaultAddress, nil)
	if err != nil {
		t.Fatal(err)
	}
	var e physic.Env
	if err := dev.Sense(&e); err != nil {
		t.Fatal(err)
	}
	if want := physic.ZeroCelsius + 25080*physic.MilliKelvin; e.Temperature != want {
		t.Errorf("temperature %s expected %s", e.Temperature, want)
	}
	if want := 100656 * physic.Pascal; e.Pressure != want {
		t.Errorf("pressure %s expected %s", e.Pressure, want)
	}
	if s := dev.String(); s == "" {
		t.Error("empty String()")
	}
	if err := bus.Close(); err != nil {
		t.Error(err)
	}
}

func TestNewI2CWrongID(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops:       []i2ctest.IO{{Addr: DefaultAddress, W: []byte{RegID}, R: []byte{0x60}}},
		DontPanic: true,
	}
	if _, err := NewI2C(bus, DefaultAddress, nil); !errors.Is(err, ErrChipID) {
		t.Errorf("got %v expected ErrChipID", err)
	}
}

func TestNewI2CBusError(t *testing.T) {
	bus := &i2ctest.Playback{DontPanic: true}
	if _, err := NewI2C(bus, DefaultAddress, nil); err == nil {
		t.Error("expected error from empty playback")
	}
}

func TestOpts(t *testing.T) {
	data := []struct {
		opts     Opts
		ctrlMeas byte
		config   byte
	}{
		{DefaultOpts, 0xB7, 0x10},
		{Opts{Temperature: O4x, Pressure: O4x, Mode: Normal}, 0x6F, 0x00},
		{Opts{Temperature: O1x, Pressure: O1x, Mode: Forced, Filter: F4, Standby: S1s}, 0x25, 0xA8},
		{Opts{}, 0x00, 0x00},
	}
	for i, d := range data {
		if got := d.opts.ctrlMeas(d.opts.Mode); got != d.ctrlMeas {
			t.Errorf("#%d: ctrl_meas %#02x expected %#02x", i, got, d.ctrlMeas)
		}
		if got := d.opts.config(); got != d.config {
			t.Errorf("#%d: config %#02x expected %#02x", i, got, d.config)
		}
	}
}

func TestSenseForced(t *testing.T) {
	opts := Opts{Temperature: O1x, Pressure: O1x, Mode: Forced}
	ops := []i2ctest.IO{
		{Addr: DefaultAddress, W: []byte{RegID}, R: []byte{ChipID}},
		{Addr: DefaultAddress, W: []byte{RegCalibration}, R: calibration},
		{Addr: DefaultAddress, W: []byte{RegConfig, 0x00}},
		{Addr: DefaultAddress, W: []byte{RegCtrlMeas, 0x25}},
		{Addr: DefaultAddress, W: []byte{RegCtrlMeas, 0x25}},
		{Addr: DefaultAddress, W: []byte{RegStatus}, R: []byte{0x08}},
		{Addr: DefaultAddress, W: []byte{RegStatus}, R: []byte{0x00}},
		{Addr: DefaultAddress, W: []byte{RegData}, R: reading},
	}
	bus := &i2ctest.Playback{Ops: ops, DontPanic: true}
	dev, err := NewI2C(bus, DefaultAddress, &opts)
	if err != nil {
		t.Fatal(err)
	}
	var e physic.Env
	if err := dev.Sense(&e); err != nil {
		t.Fatal(err)
	}
	if e.Pressure != 100656*physic.Pascal {
		t.Errorf("pressure %s", e.Pressure)
	}
	if err := bus.Close(); err != nil {
		t.Error(err)
	}
}

func TestSenseSkippedPressure(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: append(initOps(DefaultAddress),
			i2ctest.IO{Addr: DefaultAddress, W: []byte{RegData}, R: []byte{0x80, 0x00, 0x00, 0x7e, 0xed, 0x00}}),
		DontPanic: true,
	}
	dev, err := NewI2C(bus, DefaultAddress, nil)
	if err != nil {
		t.Fatal(err)
	}
	var e physic.Env
	if err := dev.Sense(&e); err != nil {
		t.Fatal(err)
	}
	if e.Pressure != 0 {
		t.Errorf("pressure %s for a skipped measurement", e.Pressure)
	}
	if e.Temperature == 0 {
		t.Error("temperature not set")
	}
}

func TestSenseContinuous(t *testing.T) {
	ops := initOps(DefaultAddress)
	for i := 0; i < 3; i++ {
		ops = append(ops, i2ctest.IO{Addr: DefaultAddress, W: []byte{RegData}, R: reading})
	}
	bus := &i2ctest.Playback{Ops: ops, DontPanic: true}
	dev, err := NewI2C(bus, DefaultAddress, nil)
	if err != nil {
		t.Fatal(err)
	}
	ch, err := dev.SenseContinuous(time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dev.SenseContinuous(time.Millisecond); err == nil {
		t.Error("second SenseContinuous accepted")
	}
	for i := 0; i < 2; i++ {
		e := <-ch
		if e.Pressure != 100656*physic.Pascal {
			t.Errorf("reading %d: pressure %s", i, e.Pressure)
		}
	}
	if err := dev.Halt(); err != nil {
		t.Fatal(err)
	}
	if err := dev.Halt(); err != nil {
		t.Fatal(err)
	}
}

func TestReset(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops:       append(initOps(DefaultAddress), i2ctest.IO{Addr: DefaultAddress, W: []byte{RegReset, 0xB6}}),
		DontPanic: true,
	}
	dev, err := NewI2C(bus, DefaultAddress, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := dev.Reset(); err != nil {
		t.Fatal(err)
	}
	if err := bus.Close(); err != nil {
		t.Error(err)
	}
}

func TestAltitude(t *testing.T) {
	data := []struct {
		p, p0 physic.Pressure
		want  physic.Distance
	}{
		{101325 * physic.Pascal, 101325 * physic.Pascal, 0},
		{100000 * physic.Pascal, 101325 * physic.Pascal, 110904 * physic.MilliMetre},
		{89874600 * physic.MilliPascal, 101325 * physic.Pascal, 1000171 * physic.MilliMetre},
		{100000 * physic.Pascal, 0, 0},
	}
	for i, d := range data {
		got := Altitude(d.p, d.p0)
		if diff := got - d.want; diff > physic.MilliMetre || diff < -physic.MilliMetre {
			t.Errorf("#%d: Altitude(%s, %s)=%s expected %s", i, d.p, d.p0, got, d.want)
		}
	}
}

// TestOverTWI runs the driver on the TWI master against a simulated
// BMP280 register map.
func TestOverTWI(t *testing.T) {
	sim := twisim.New()
	regs := &twisim.RegisterFile{}
	regs.Regs[RegID] = ChipID
	regs.Load(RegCalibration, calibration)
	regs.Load(RegData, reading)
	sim.Attach(byte(DefaultAddress), regs)
	bus := twi.New(sim, &twi.Opts{CheckAck: true})

	dev, err := NewI2C(bus, DefaultAddress, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := regs.Regs[RegCtrlMeas]; got != 0xB7 {
		t.Errorf("ctrl_meas=%#02x", got)
	}
	if got := regs.Regs[RegConfig]; got != 0x10 {
		t.Errorf("config=%#02x", got)
	}
	var e physic.Env
	if err := dev.Sense(&e); err != nil {
		t.Fatal(err)
	}
	if e.Pressure != 100656*physic.Pascal {
		t.Errorf("pressure %s", e.Pressure)
	}

	sim.Hang = true
	if err := dev.Sense(&e); !errors.Is(err, twi.ErrTimeout) {
		t.Errorf("got %v expected a timeout", err)
	}
}
