// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bmp280

import (
	"encoding/binary"
	"fmt"
)

// CalibrationSize is the number of trimming parameter bytes starting at
// register 0x88.
const CalibrationSize = 24

// Calibration holds the factory trimming parameters dig_T1 to dig_P9.
type Calibration struct {
	T1             uint16
	T2, T3         int16
	P1             uint16
	P2, P3, P4, P5 int16
	P6, P7, P8, P9 int16
}

// ParseCalibration decodes the little endian register dump read from 0x88.
func ParseCalibration(b []byte) (Calibration, error) {
	if len(b) != CalibrationSize {
		return Calibration{}, fmt.Errorf("bmp280: calibration is %d bytes, expected %d", len(b), CalibrationSize)
	}
	s := func(i int) int16 { return int16(binary.LittleEndian.Uint16(b[i:])) }
	return Calibration{
		T1: binary.LittleEndian.Uint16(b[0:]),
		T2: s(2),
		T3: s(4),
		P1: binary.LittleEndian.Uint16(b[6:]),
		P2: s(8),
		P3: s(10),
		P4: s(12),
		P5: s(14),
		P6: s(16),
		P7: s(18),
		P8: s(20),
		P9: s(22),
	}, nil
}

// Bytes returns the register dump c was parsed from.
func (c *Calibration) Bytes() []byte {
	b := make([]byte, CalibrationSize)
	words := []uint16{
		c.T1, uint16(c.T2), uint16(c.T3),
		c.P1, uint16(c.P2), uint16(c.P3), uint16(c.P4), uint16(c.P5),
		uint16(c.P6), uint16(c.P7), uint16(c.P8), uint16(c.P9),
	}
	for i, w := range words {
		binary.LittleEndian.PutUint16(b[2*i:], w)
	}
	return b
}

// Compensate converts the raw 20-bit ADC values into a temperature in
// 0.01°C and a pressure in Pa. The pressure is 0 when the trimming
// parameters are invalid (dig_P1 of 0).
func (c *Calibration) Compensate(adcT, adcP int32) (int32, uint32) {
	t, fine := c.temperature(adcT)
	return t, c.pressure(adcP, fine)
}

// temperature returns the temperature in 0.01°C and t_fine, the carry
// over used by the pressure formula.
func (c *Calibration) temperature(adcT int32) (int32, int32) {
	var1 := ((adcT>>3 - int32(c.T1)<<1) * int32(c.T2)) >> 11
	var2 := ((((adcT>>4 - int32(c.T1)) * (adcT>>4 - int32(c.T1))) >> 12) * int32(c.T3)) >> 14
	fine := var1 + var2
	return (fine*5 + 128) >> 8, fine
}

func (c *Calibration) pressure(adcP, fine int32) uint32 {
	var1 := fine>>1 - 64000
	var2 := (((var1 >> 2) * (var1 >> 2)) >> 11) * int32(c.P6)
	var2 += (var1 * int32(c.P5)) << 1
	var2 = var2>>2 + int32(c.P4)<<16
	var1 = (((int32(c.P3) * (((var1 >> 2) * (var1 >> 2)) >> 13)) >> 3) + ((int32(c.P2) * var1) >> 1)) >> 18
	var1 = ((32768 + var1) * int32(c.P1)) >> 15
	if var1 == 0 {
		return 0
	}
	p := (uint32(1048576-adcP) - uint32(var2>>12)) * 3125
	if p < 0x80000000 {
		p = (p << 1) / uint32(var1)
	} else {
		p = p / uint32(var1) * 2
	}
	var1 = (int32(c.P9) * int32(((p>>3)*(p>>3))>>13)) >> 12
	var2 = (int32(p>>2) * int32(c.P8)) >> 13
	return uint32(int32(p) + (var1+var2+int32(c.P7))>>4)
}
