// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package common

import "testing"

func TestCRC8(t *testing.T) {
	var tests = []struct {
		bytes  []byte
		result byte
	}{
		{bytes: nil, result: 0xff},
		{bytes: []byte{0xbe, 0xef}, result: 0x92},
		{bytes: []byte{0x01, 0xa4}, result: 0x4d},
		{bytes: []byte{0xab, 0xcd}, result: 0x6f},
	}
	for _, test := range tests {
		res := CRC8(test.bytes)
		if res != test.result {
			t.Errorf("CRC8(%#v)!=%#02x received %#02x", test.bytes, test.result, res)
		}
	}
}

func TestCRC8Bitwise(t *testing.T) {
	b := make([]byte, 300)
	for i := range b {
		b[i] = byte(i * 7)
	}
	crc := byte(0xff)
	for _, v := range b {
		crc ^= v
		for j := 0; j < 8; j++ {
			if crc&0x80 == 0 {
				crc <<= 1
			} else {
				crc = crc<<1 ^ CRC8Polynomial
			}
		}
	}
	if got := CRC8(b); got != crc {
		t.Fatalf("CRC8()=%#02x, bitwise %#02x", got, crc)
	}
}
