// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package recorder implements the flight-data recorder application loop.
//
// The recorder opens the barometer and the inertial unit on an I²C bus,
// measures the ground level pressure, then periodically writes telemetry
// lines while animating the status LED. A failed initialization is shown
// by a blinking red LED.
package recorder
