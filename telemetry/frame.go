// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package telemetry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/GermanBionicSystems/fdr/common"
)

// Frame layout, little endian:
//
//	0      magic 0xFD
//	1      version
//	2..5   time, ms, uint32
//	6..9   temperature, 0.01°C, int32
//	10..13 pressure, Pa, uint32
//	14..17 altitude, cm, int32
//	18..23 accel X Y Z, mg, int16
//	24..29 gyro X Y Z, 0.1dps, int16
//	30     CRC-8 of bytes 0..29
const (
	FrameSize    = 31
	frameMagic   = 0xFD
	frameVersion = 1
)

var (
	// ErrCRC is returned by UnmarshalBinary when the checksum does not
	// match.
	ErrCRC = errors.New("telemetry: frame crc mismatch")
	// ErrFrame is returned by UnmarshalBinary for data that is not a
	// frame.
	ErrFrame = errors.New("telemetry: malformed frame")
)

// MarshalBinary implements encoding.BinaryMarshaler. Accelerations and
// rates beyond the int16 range of the frame saturate.
func (s *Sample) MarshalBinary() ([]byte, error) {
	b := make([]byte, FrameSize)
	b[0], b[1] = frameMagic, frameVersion
	binary.LittleEndian.PutUint32(b[2:], uint32(s.Time/time.Millisecond))
	binary.LittleEndian.PutUint32(b[6:], uint32(s.Temperature))
	binary.LittleEndian.PutUint32(b[10:], s.Pressure)
	binary.LittleEndian.PutUint32(b[14:], uint32(s.Altitude))
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint16(b[18+2*i:], uint16(saturate(s.Accel[i]*1000)))
		binary.LittleEndian.PutUint16(b[24+2*i:], uint16(saturate(s.Gyro[i]*10)))
	}
	b[30] = common.CRC8(b[:30])
	return b, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *Sample) UnmarshalBinary(b []byte) error {
	if len(b) != FrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrame, len(b))
	}
	if b[0] != frameMagic || b[1] != frameVersion {
		return fmt.Errorf("%w: header %#02x %#02x", ErrFrame, b[0], b[1])
	}
	if c := common.CRC8(b[:30]); c != b[30] {
		return fmt.Errorf("%w: got %#02x, computed %#02x", ErrCRC, b[30], c)
	}
	s.Time = time.Duration(binary.LittleEndian.Uint32(b[2:])) * time.Millisecond
	s.Temperature = int32(binary.LittleEndian.Uint32(b[6:]))
	s.Pressure = binary.LittleEndian.Uint32(b[10:])
	s.Altitude = int32(binary.LittleEndian.Uint32(b[14:]))
	for i := 0; i < 3; i++ {
		s.Accel[i] = float64(int16(binary.LittleEndian.Uint16(b[18+2*i:]))) / 1000
		s.Gyro[i] = float64(int16(binary.LittleEndian.Uint16(b[24+2*i:]))) / 10
	}
	return nil
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
