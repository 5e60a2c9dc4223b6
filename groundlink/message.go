// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package groundlink

import (
	"math"
	"time"

	"github.com/GermanBionicSystems/fdr/telemetry"
)

// Message is the JSON payload of a telemetry publication.
type Message struct {
	Time        int64      `json:"time_ms"`
	Temperature float64    `json:"temperature_c"`
	Pressure    uint32     `json:"pressure_pa"`
	Altitude    float64    `json:"altitude_m"`
	Accel       [3]float64 `json:"accel_g"`
	Gyro        [3]float64 `json:"gyro_dps"`
}

// NewMessage converts a sample.
func NewMessage(s *telemetry.Sample) Message {
	return Message{
		Time:        int64(s.Time / time.Millisecond),
		Temperature: float64(s.Temperature) / 100,
		Pressure:    s.Pressure,
		Altitude:    float64(s.Altitude) / 100,
		Accel:       s.Accel,
		Gyro:        s.Gyro,
	}
}

// Sample converts the message back to a sample.
func (m *Message) Sample() telemetry.Sample {
	return telemetry.Sample{
		Time:        time.Duration(m.Time) * time.Millisecond,
		Temperature: int32(math.Round(m.Temperature * 100)),
		Pressure:    m.Pressure,
		Altitude:    int32(math.Round(m.Altitude * 100)),
		Accel:       m.Accel,
		Gyro:        m.Gyro,
	}
}
