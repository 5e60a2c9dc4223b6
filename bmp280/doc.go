// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bmp280 controls a Bosch BMP280 digital pressure sensor over I²C.
//
// The driver verifies the chip id, loads the factory trimming parameters
// once and converts raw readings with the 32-bit fixed point compensation
// formulas of the datasheet: temperature in 0.01°C steps and pressure in
// whole pascals.
//
// Altitude converts a pressure into a height above a reference pressure,
// usually the pressure measured on the ground before take off.
//
// # Datasheet
//
// https://www.bosch-sensortec.com/media/boschsensortec/downloads/datasheets/bst-bmp280-ds001.pdf
package bmp280
