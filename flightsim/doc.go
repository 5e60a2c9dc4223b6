// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package flightsim simulates the sensors of a flight-data recorder on a
// twisim bus.
//
// A Profile scripts the flight. The BMP280 and LSM6DS3 register models
// compute their output registers from the profile at the moment the
// master addresses them for reading, so the real drivers in bmp280 and
// lsm6ds3 can be used unchanged against the simulation.
package flightsim
