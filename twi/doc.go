// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package twi is a polled master driver for the AVR two-wire interface
// (TWI), the I²C controller found on ATmega parts.
//
// The driver never touches memory directly. It drives the controller
// through the Registers facade, so the same code runs against the real
// peripheral (see TWI0 on tinygo/avr builds) and against the simulator in
// package twisim.
//
// Every bus phase (start, repeated start, address byte, data byte, stop)
// waits for the controller to signal completion for at most
// Opts.TimeoutCycles polls. A phase that never completes aborts the
// transaction; a stop condition is then attempted so the bus is released
// for the next caller, and Timeout is returned.
//
// The four register operations (WriteRegister, WriteRegisters,
// ReadRegister, ReadRegisters) return a Status. Bus also implements i2c.BusCloser so any
// periph device driver can run on top of it.
//
// # Datasheet
//
// https://ww1.microchip.com/downloads/en/DeviceDoc/Atmel-7810-Automotive-Microcontrollers-ATmega328P_Datasheet.pdf
// (section 21, 2-wire Serial Interface)
package twi
