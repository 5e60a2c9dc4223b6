// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package flightplot

import (
	"fmt"
	"time"

	"github.com/GermanBionicSystems/fdr/telemetry"
)

// Summary holds the figures of merit of a flight.
type Summary struct {
	Samples int
	// Start and End are the times of the first and last samples.
	Start, End time.Duration
	// Apogee is the highest altitude in cm, reached at ApogeeTime.
	Apogee     int32
	ApogeeTime time.Duration
	// MaxAccel is the highest vertical acceleration, in g.
	MaxAccel float64
}

// Summarize scans samples.
func Summarize(samples []telemetry.Sample) Summary {
	var s Summary
	for i := range samples {
		x := &samples[i]
		if i == 0 {
			s.Start = x.Time
			s.Apogee, s.ApogeeTime, s.MaxAccel = x.Altitude, x.Time, x.Accel[2]
		}
		s.End = x.Time
		if x.Altitude > s.Apogee {
			s.Apogee, s.ApogeeTime = x.Altitude, x.Time
		}
		if x.Accel[2] > s.MaxAccel {
			s.MaxAccel = x.Accel[2]
		}
	}
	s.Samples = len(samples)
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%d samples over %s, apogee %.2fm at %s, max %.2fg",
		s.Samples, s.End-s.Start, float64(s.Apogee)/100, s.ApogeeTime, s.MaxAccel)
}
