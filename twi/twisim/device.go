// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twisim

import "sync"

// RegisterFile is a device exposing 256 byte-wide registers behind an
// auto-incrementing register pointer, the layout used by most sensors.
//
// The first byte written after SLA+W sets the pointer; every following
// byte written or read moves it forward by one, wrapping at 0xFF.
type RegisterFile struct {
	// OnWrite, when set, is called after a register is written by the
	// master. It runs with the register file locked and must not call
	// back into it; use Regs directly.
	OnWrite func(f *RegisterFile, reg, v byte)
	// OnSelect, when set, is called when the device is addressed, with the
	// same locking rule as OnWrite.
	OnSelect func(f *RegisterFile, read bool)

	// Regs holds the register content.
	Regs [256]byte

	mu     sync.Mutex
	ptr    byte
	setPtr bool
}

// Load copies data into consecutive registers starting at reg.
func (f *RegisterFile) Load(reg byte, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range data {
		f.Regs[reg] = b
		reg++
	}
}

// Dump returns n registers starting at reg.
func (f *RegisterFile) Dump(reg byte, n int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]byte, n)
	for i := range out {
		out[i] = f.Regs[reg]
		reg++
	}
	return out
}

// Address implements Device.
func (f *RegisterFile) Address(read bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setPtr = !read
	if f.OnSelect != nil {
		f.OnSelect(f, read)
	}
	return true
}

// Write implements Device.
func (f *RegisterFile) Write(b byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setPtr {
		f.ptr = b
		f.setPtr = false
		return true
	}
	reg := f.ptr
	f.Regs[reg] = b
	f.ptr++
	if f.OnWrite != nil {
		f.OnWrite(f, reg, b)
	}
	return true
}

// Read implements Device.
func (f *RegisterFile) Read() byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.Regs[f.ptr]
	f.ptr++
	return b
}

// Stop implements Device.
func (f *RegisterFile) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setPtr = false
}

var _ Device = &RegisterFile{}
