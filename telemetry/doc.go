// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package telemetry defines the flight sample and its two encodings.
//
// The text encoding is the line the recorder prints on its serial port,
// for example:
//
//	Time: 1250 ms | Temp: 25.08°C | Pressure: 100656 Pa | Altitude: 12 m | Accel: [X: 0.01 g, Y: -0.02 g, Z: 1.00 g] | Gyro: [X: 0.35 dps, Y: -1.20 dps, Z: 0.00 dps]
//
// The binary encoding is a fixed size frame protected by a CRC-8, sized
// for a LoRa packet.
package telemetry
