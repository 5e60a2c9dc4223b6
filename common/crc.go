// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common holds the checksum of the telemetry radio frames.
package common

// CRC8Polynomial is x^8 + x^5 + x^4 + 1, the x^8 term being implicit.
const CRC8Polynomial = 0x31

var crc8Table = func() [256]byte {
	var t [256]byte
	for i := range t {
		c := byte(i)
		for j := 0; j < 8; j++ {
			if c&0x80 != 0 {
				c = c<<1 ^ CRC8Polynomial
			} else {
				c <<= 1
			}
		}
		t[i] = c
	}
	return t
}()

// CRC8 returns the CRC-8 of b: polynomial 0x31, initial value 0xFF, no
// reflection and no final xor.
func CRC8(b []byte) byte {
	crc := byte(0xFF)
	for _, v := range b {
		crc = crc8Table[crc^v]
	}
	return crc
}
