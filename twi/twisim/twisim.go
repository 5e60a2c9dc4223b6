// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package twisim simulates a TWI controller and the devices attached to it.
//
// Bus implements twi.Registers. Writing the control register with TWINT set
// executes the requested phase against the attached devices immediately and
// sets TWINT again, with the status code a real controller would report.
// The simulator records every phase in Events so tests can check the exact
// framing, and can be told to stop signalling completion to exercise the
// driver timeouts.
package twisim

import (
	"fmt"
	"sync"

	"github.com/GermanBionicSystems/fdr/twi"
)

// EventKind identifies a bus phase.
type EventKind uint8

const (
	EvStart EventKind = iota
	EvRepeatedStart
	EvAddr
	EvWrite
	EvRead
	EvStop
)

func (k EventKind) String() string {
	switch k {
	case EvStart:
		return "Start"
	case EvRepeatedStart:
		return "RepeatedStart"
	case EvAddr:
		return "Addr"
	case EvWrite:
		return "Write"
	case EvRead:
		return "Read"
	case EvStop:
		return "Stop"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event is one phase requested by the driver.
//
// Data is the byte on the wire for Addr, Write and Read. Ack is the
// acknowledge bit: driven by the device for Addr and Write, by the master
// for Read.
type Event struct {
	Kind EventKind
	Data byte
	Ack  bool
}

func (e Event) String() string {
	switch e.Kind {
	case EvAddr, EvWrite, EvRead:
		a := "NACK"
		if e.Ack {
			a = "ACK"
		}
		return fmt.Sprintf("%s(%#02x,%s)", e.Kind, e.Data, a)
	default:
		return e.Kind.String()
	}
}

// Device is a peripheral attached to the simulated bus.
type Device interface {
	// Address is called when the device is selected by SLA+W or SLA+R.
	// Returning false NACKs the address.
	Address(read bool) bool
	// Write receives a data byte and returns the acknowledge bit.
	Write(b byte) bool
	// Read returns the next data byte.
	Read() byte
	// Stop is called when the transaction ends.
	Stop()
}

// Bus is a simulated TWI controller.
type Bus struct {
	// Hang makes the controller stop signalling completion: no phase,
	// stop included, finishes once it is set.
	Hang bool
	// HangAfter, when positive, makes the controller hang once that many
	// phases have completed.
	HangAfter int
	// Quiet disables the event log, for long running simulations.
	Quiet bool

	mu      sync.Mutex
	regs    [4]byte
	last    byte
	devices map[byte]Device
	events  []Event
	polls   int
	phases  int

	active    bool
	selecting bool
	read      bool
	cur       Device
}

// New returns a bus with no device attached.
func New() *Bus {
	s := &Bus{devices: map[byte]Device{}}
	s.regs[twi.RegStatus] = byte(twi.CodeNoInfo)
	return s
}

// Attach connects d at the 7-bit address addr.
func (s *Bus) Attach(addr byte, d Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[addr&0x7F] = d
}

// Get implements twi.Registers. Every read of the control register counts
// as one poll.
func (s *Bus) Get(r twi.Register) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r == twi.RegControl {
		s.polls++
	}
	return s.regs[r&3]
}

// Set implements twi.Registers.
func (s *Bus) Set(r twi.Register, v byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch r {
	case twi.RegControl:
		s.control(v)
	case twi.RegStatus:
		s.regs[r] = s.regs[r]&twi.StatusMask | v&twi.PrescalerMask
	default:
		s.regs[r&3] = v
	}
}

// Events returns a copy of the phases recorded so far.
func (s *Bus) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// Polls returns the number of control register reads so far.
func (s *Bus) Polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

// LastControl returns the last value written to the control register.
func (s *Bus) LastControl() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Register returns the raw content of a controller register.
func (s *Bus) Register(r twi.Register) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[r&3]
}

// Reset clears the event log, the poll counter and the hang settings, and
// releases the bus as if a stop had completed.
func (s *Bus) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release()
	s.regs[twi.RegControl] &^= twi.TWSTO | twi.TWSTA
	s.events = nil
	s.polls = 0
	s.phases = 0
	s.Hang = false
	s.HangAfter = 0
}

func (s *Bus) control(v byte) {
	s.last = v
	if v&twi.TWEN == 0 {
		s.regs[twi.RegControl] = v
		s.release()
		return
	}
	if v&twi.TWINT == 0 {
		// Writing a zero to TWINT leaves the flag untouched and starts nothing.
		s.regs[twi.RegControl] = s.regs[twi.RegControl]&twi.TWINT | v
		return
	}
	s.regs[twi.RegControl] = v &^ twi.TWINT

	switch {
	case v&twi.TWSTO != 0:
		s.log(Event{Kind: EvStop})
		if s.hung() {
			return
		}
		s.release()
		s.regs[twi.RegControl] &^= twi.TWSTO
		s.setCode(twi.CodeNoInfo)

	case v&twi.TWSTA != 0:
		kind, code := EvStart, twi.CodeStart
		if s.active {
			kind, code = EvRepeatedStart, twi.CodeRepStart
		}
		s.log(Event{Kind: kind})
		if s.hung() {
			return
		}
		s.active = true
		s.selecting = true
		s.complete(code)

	case s.selecting:
		a := s.regs[twi.RegData]
		s.read = a&1 != 0
		d := s.devices[a>>1]
		ack := d != nil && d.Address(s.read)
		s.log(Event{Kind: EvAddr, Data: a, Ack: ack})
		if s.hung() {
			return
		}
		s.selecting = false
		s.cur = nil
		if ack {
			s.cur = d
		}
		switch {
		case s.read && ack:
			s.complete(twi.CodeSLARAck)
		case s.read:
			s.complete(twi.CodeSLARNack)
		case ack:
			s.complete(twi.CodeSLAWAck)
		default:
			s.complete(twi.CodeSLAWNack)
		}

	case s.read:
		ack := v&twi.TWEA != 0
		b := byte(0xFF)
		if s.cur != nil {
			b = s.cur.Read()
		}
		s.log(Event{Kind: EvRead, Data: b, Ack: ack})
		if s.hung() {
			return
		}
		s.regs[twi.RegData] = b
		if ack {
			s.complete(twi.CodeDataRxAck)
		} else {
			s.complete(twi.CodeDataRxNack)
		}

	default:
		b := s.regs[twi.RegData]
		ack := s.cur != nil && s.cur.Write(b)
		s.log(Event{Kind: EvWrite, Data: b, Ack: ack})
		if s.hung() {
			return
		}
		if ack {
			s.complete(twi.CodeDataTxAck)
		} else {
			s.complete(twi.CodeDataTxNack)
		}
	}
}

func (s *Bus) log(e Event) {
	if !s.Quiet {
		s.events = append(s.events, e)
	}
}

func (s *Bus) hung() bool {
	return s.Hang || (s.HangAfter > 0 && s.phases >= s.HangAfter)
}

func (s *Bus) complete(c twi.Code) {
	s.setCode(c)
	s.regs[twi.RegControl] |= twi.TWINT
	s.phases++
}

func (s *Bus) setCode(c twi.Code) {
	s.regs[twi.RegStatus] = byte(c) | s.regs[twi.RegStatus]&twi.PrescalerMask
}

func (s *Bus) release() {
	if s.cur != nil {
		s.cur.Stop()
	}
	s.cur = nil
	s.active = false
	s.selecting = false
	s.read = false
}

var _ twi.Registers = &Bus{}
