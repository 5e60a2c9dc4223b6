// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lsm6ds3 controls an ST LSM6DS3 or LSM6DS3TR-C 6-axis inertial
// measurement unit over I²C.
//
// Both sensors run continuously at the configured output data rate; Sense
// reads the latest gyroscope and accelerometer sample in one burst.
//
// # Datasheet
//
// https://www.st.com/resource/en/datasheet/lsm6ds3tr-c.pdf
package lsm6ds3
