// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twi

import "fmt"

// Register names one of the controller registers reachable through the
// Registers facade.
type Register uint8

// The order matches the memory map of the ATmega328P (TWBR at 0xB8).
const (
	RegBitRate Register = iota // TWBR
	RegStatus                  // TWSR
	RegData                    // TWDR
	RegControl                 // TWCR
)

func (r Register) String() string {
	switch r {
	case RegBitRate:
		return "TWBR"
	case RegStatus:
		return "TWSR"
	case RegData:
		return "TWDR"
	case RegControl:
		return "TWCR"
	default:
		return fmt.Sprintf("Register(%d)", uint8(r))
	}
}

// Registers is the hardware facade of a TWI controller.
//
// Get and Set must behave like volatile 8-bit accesses: every Get of
// RegControl is one poll of the controller.
type Registers interface {
	Get(r Register) byte
	Set(r Register, v byte)
}

// TWCR bits.
const (
	TWIE  byte = 1 << 0 // interrupt enable
	TWEN  byte = 1 << 2 // controller enable
	TWWC  byte = 1 << 3 // write collision
	TWSTO byte = 1 << 4 // stop condition
	TWSTA byte = 1 << 5 // start condition
	TWEA  byte = 1 << 6 // enable acknowledge
	TWINT byte = 1 << 7 // phase complete; written as 1 to start the next phase
)

// TWSR layout: the status code lives in the upper five bits, the
// prescaler select in the lower two.
const (
	StatusMask    byte = 0xF8
	PrescalerMask byte = 0x03
)

// Code is a master-mode status code read from TWSR.
type Code byte

const (
	CodeBusError   Code = 0x00
	CodeStart      Code = 0x08
	CodeRepStart   Code = 0x10
	CodeSLAWAck    Code = 0x18
	CodeSLAWNack   Code = 0x20
	CodeDataTxAck  Code = 0x28
	CodeDataTxNack Code = 0x30
	CodeArbLost    Code = 0x38
	CodeSLARAck    Code = 0x40
	CodeSLARNack   Code = 0x48
	CodeDataRxAck  Code = 0x50
	CodeDataRxNack Code = 0x58
	CodeNoInfo     Code = 0xF8
)

func (c Code) String() string {
	switch c {
	case CodeBusError:
		return "bus error"
	case CodeStart:
		return "start"
	case CodeRepStart:
		return "repeated start"
	case CodeSLAWAck:
		return "SLA+W ack"
	case CodeSLAWNack:
		return "SLA+W nack"
	case CodeDataTxAck:
		return "data tx ack"
	case CodeDataTxNack:
		return "data tx nack"
	case CodeArbLost:
		return "arbitration lost"
	case CodeSLARAck:
		return "SLA+R ack"
	case CodeSLARNack:
		return "SLA+R nack"
	case CodeDataRxAck:
		return "data rx ack"
	case CodeDataRxNack:
		return "data rx nack"
	case CodeNoInfo:
		return "no info"
	default:
		return fmt.Sprintf("Code(%#02x)", byte(c))
	}
}
