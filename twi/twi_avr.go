// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build tinygo && avr

package twi

import "device/avr"

// TWI0 is the on-chip controller. It is configured for DefaultOpts when the
// program starts.
var TWI0 = New(hardware{}, nil)

// hardware maps Registers on the memory mapped TWI registers.
type hardware struct{}

func (hardware) Get(r Register) byte {
	switch r {
	case RegBitRate:
		return avr.TWBR.Get()
	case RegStatus:
		return avr.TWSR.Get()
	case RegData:
		return avr.TWDR.Get()
	default:
		return avr.TWCR.Get()
	}
}

func (hardware) Set(r Register, v byte) {
	switch r {
	case RegBitRate:
		avr.TWBR.Set(v)
	case RegStatus:
		avr.TWSR.Set(v)
	case RegData:
		avr.TWDR.Set(v)
	default:
		avr.TWCR.Set(v)
	}
}
