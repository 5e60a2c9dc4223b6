// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package flightsim

import (
	"math"
	"time"
)

// StandardGravity in m/s².
const StandardGravity = 9.80665

// State is the condition of the vehicle at one instant.
type State struct {
	// Altitude above the launch pad, in m.
	Altitude float64
	// Accel is what an accelerometer on the vehicle reads, in g. Z points
	// up; at rest it reads +1g.
	Accel [3]float64
	// Gyro is the angular rate in degrees per second.
	Gyro [3]float64
}

// Profile scripts a flight.
type Profile interface {
	// At returns the state t after the simulation started.
	At(t time.Duration) State
}

// Rocket is a single stage rocket flight: it waits on the pad, boosts
// with a constant acceleration, coasts in free fall to apogee and descends
// under a parachute at a constant rate. Drag is ignored.
type Rocket struct {
	// Pad is the time spent on the pad before ignition.
	Pad time.Duration
	// Burn is the motor burn time.
	Burn time.Duration
	// Boost is the net upward acceleration during the burn, in m/s².
	Boost float64
	// Descent is the parachute descent rate, in m/s.
	Descent float64
	// Spin is the roll rate around Z from ignition to apogee, in dps.
	Spin float64
}

// DefaultRocket reaches about 480m.
var DefaultRocket = Rocket{
	Pad:     5 * time.Second,
	Burn:    1500 * time.Millisecond,
	Boost:   60,
	Descent: 5,
	Spin:    90,
}

// At implements Profile.
func (r *Rocket) At(t time.Duration) State {
	rest := State{Accel: [3]float64{0, 0, 1}}
	if t < r.Pad {
		return rest
	}
	tau := (t - r.Pad).Seconds()
	burn := r.Burn.Seconds()
	if tau <= burn {
		return State{
			Altitude: r.Boost * tau * tau / 2,
			Accel:    [3]float64{0, 0, 1 + r.Boost/StandardGravity},
			Gyro:     [3]float64{0, 0, r.Spin},
		}
	}
	v1 := r.Boost * burn
	h1 := v1 * burn / 2
	tau -= burn
	if coast := v1 / StandardGravity; tau <= coast {
		return State{
			Altitude: h1 + v1*tau - StandardGravity*tau*tau/2,
			Gyro:     [3]float64{0, 0, r.Spin},
		}
	}
	tau -= v1 / StandardGravity
	if h := r.Apogee() - r.Descent*tau; h > 0 {
		rest.Altitude = h
	}
	return rest
}

// Apogee returns the highest altitude, in m.
func (r *Rocket) Apogee() float64 {
	v1 := r.Boost * r.Burn.Seconds()
	return v1*r.Burn.Seconds()/2 + v1*v1/(2*StandardGravity)
}

// Duration returns the time from the start of the simulation to the
// landing.
func (r *Rocket) Duration() time.Duration {
	v1 := r.Boost * r.Burn.Seconds()
	d := r.Pad + r.Burn + time.Duration(v1/StandardGravity*float64(time.Second))
	if r.Descent > 0 {
		d += time.Duration(r.Apogee() / r.Descent * float64(time.Second))
	}
	return d
}

// Atmosphere is the standard atmosphere model used by the barometer.
type Atmosphere struct {
	// Pressure at the launch pad, in Pa.
	Pressure float64
	// Temperature at the launch pad, in °C.
	Temperature float64
	// LapseRate is the temperature drop per meter.
	LapseRate float64
}

// DefaultAtmosphere is the ICAO standard atmosphere at sea level.
var DefaultAtmosphere = Atmosphere{
	Pressure:    101325,
	Temperature: 15,
	LapseRate:   0.0065,
}

// At returns the pressure in Pa and the temperature in °C at altitude h,
// in m. The pressure is the inverse of bmp280.Altitude.
func (a *Atmosphere) At(h float64) (float64, float64) {
	p := a.Pressure * math.Pow(1-h/44330, 1/0.1903)
	return p, a.Temperature - a.LapseRate*h
}
