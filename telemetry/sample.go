// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package telemetry

import (
	"time"

	"periph.io/x/conn/v3/physic"
)

// Sample is one reading of every sensor.
type Sample struct {
	// Time is the time since the recorder booted, in milliseconds.
	Time time.Duration
	// Temperature in 0.01°C.
	Temperature int32
	// Pressure in Pa.
	Pressure uint32
	// Altitude above the ground level pressure, in cm.
	Altitude int32
	// Accel is the acceleration in g, X Y Z.
	Accel [3]float64
	// Gyro is the angular rate in degrees per second, X Y Z.
	Gyro [3]float64
}

// Env returns the barometer part of s.
func (s *Sample) Env() physic.Env {
	return physic.Env{
		Temperature: physic.ZeroCelsius + physic.Temperature(s.Temperature)*10*physic.MilliKelvin,
		Pressure:    physic.Pressure(s.Pressure) * physic.Pascal,
	}
}

// SetEnv fills the barometer part of s from e, rounding to the resolution
// of the sample.
func (s *Sample) SetEnv(e physic.Env) {
	s.Temperature = int32(roundDiv(int64(e.Temperature-physic.ZeroCelsius), int64(10*physic.MilliKelvin)))
	s.Pressure = uint32(roundDiv(int64(e.Pressure), int64(physic.Pascal)))
}

// AltitudeDistance returns the altitude as a distance.
func (s *Sample) AltitudeDistance() physic.Distance {
	return physic.Distance(s.Altitude) * 10 * physic.MilliMetre
}

func (s Sample) String() string {
	return Format(&s)
}

func roundDiv(a, b int64) int64 {
	if a < 0 {
		return (a - b/2) / b
	}
	return (a + b/2) / b
}
