// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package fdr is a flight data recorder.
//
// The twi package drives the I²C controller of the recorder board, bmp280
// and lsm6ds3 are the sensors it carries and recorder is the application
// loop. flightsim provides a simulated flight on a simulated controller,
// so the whole recorder runs on a host. cmd/fdr is the command line.
package fdr
