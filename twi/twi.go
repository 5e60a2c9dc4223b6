// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twi

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// DebugF the debug function type.
type DebugF func(string, ...interface{})

// Opts holds the configuration options for the bus.
type Opts struct {
	// Clock is the controller input clock (F_CPU). Default is 16MHz.
	Clock physic.Frequency
	// Speed is the SCL frequency applied by New. Default is 100kHz.
	Speed physic.Frequency
	// TimeoutCycles is the number of control register polls a single phase
	// may take before the transaction is aborted. Default is 10000.
	TimeoutCycles int
	// CheckAck verifies the controller status code after every phase. A NACK
	// from the device, a lost arbitration or a bus error then fails the
	// transaction with Error. When false only timeouts are detected.
	CheckAck bool
	// Name is returned by String. Default is "TWI0".
	Name string
}

// DefaultOpts holds the default configuration options for the bus: 100kHz
// from a 16MHz clock.
var DefaultOpts = Opts{
	Clock:         16 * physic.MegaHertz,
	Speed:         100 * physic.KiloHertz,
	TimeoutCycles: 10000,
	Name:          "TWI0",
}

// Bus is a TWI controller operated in master mode.
//
// There is one Bus per physical controller and it lives as long as the
// program. Transactions block until they complete or a phase times out.
type Bus struct {
	regs  Registers
	opts  Opts
	debug DebugF

	mu        sync.Mutex
	enabled   bool
	bitRate   byte
	prescaler byte
	state     State
	// Where and why the last transaction failed.
	failed State
	code   Code
}

// New returns the bus driving regs and runs Init with opts.Speed. The Opts
// can be nil; zero fields take their value from DefaultOpts.
func New(regs Registers, opts *Opts) *Bus {
	o := DefaultOpts
	if opts != nil {
		o = *opts
		if o.Clock <= 0 {
			o.Clock = DefaultOpts.Clock
		}
		if o.Speed <= 0 {
			o.Speed = DefaultOpts.Speed
		}
		if o.TimeoutCycles <= 0 {
			o.TimeoutCycles = DefaultOpts.TimeoutCycles
		}
		if o.Name == "" {
			o.Name = DefaultOpts.Name
		}
	}
	b := &Bus{regs: regs, opts: o, debug: noop}
	b.Init(o.Speed)
	return b
}

// EnableDebug sets a function that receives every state transition.
func (b *Bus) EnableDebug(f DebugF) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if f == nil {
		f = noop
	}
	b.debug = f
}

// Init programs the bit rate divisor for speed and enables the controller.
//
// Calling it again re-applies the configuration. A speed that cannot be
// represented is clamped to the nearest reachable one; use SetSpeed to get
// an error instead.
func (b *Bus) Init(speed physic.Frequency) {
	b.mu.Lock()
	defer b.mu.Unlock()
	br, ps, _ := Divisor(b.opts.Clock, speed)
	b.apply(br, ps)
}

// SetSpeed implements i2c.Bus.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	br, ps, err := Divisor(b.opts.Clock, f)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.apply(br, ps)
	return nil
}

// Speed returns the SCL frequency produced by the programmed divisor.
func (b *Bus) Speed() physic.Frequency {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opts.Clock / physic.Frequency(16+int64(b.bitRate)<<(1+2*b.prescaler))
}

// Close implements i2c.BusCloser. It disables the controller; Init enables
// it again.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.regs.Set(RegControl, 0)
	b.enabled = false
	return nil
}

// String implements conn.Resource.
func (b *Bus) String() string {
	return b.opts.Name
}

// State returns the state the last transaction ended in. It is Idle unless
// the driver is in the middle of a transaction.
func (b *Bus) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// WriteRegister writes data to register reg of the device at addr.
//
// Frame: start, SLA+W, reg, data, stop.
func (b *Bus) WriteRegister(addr, reg, data byte) Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf := [2]byte{reg, data}
	return b.run(&transaction{addr: addr, reg: buf[:1], w: buf[1:]})
}

// WriteRegisters writes data to consecutive registers starting at reg. The
// device increments its register pointer after every byte. An empty data
// only addresses the register.
func (b *Bus) WriteRegisters(addr, reg byte, data []byte) Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf := [1]byte{reg}
	return b.run(&transaction{addr: addr, reg: buf[:], w: data})
}

// ReadRegister reads register reg of the device at addr.
//
// Frame: start, SLA+W, reg, repeated start, SLA+R, data with NACK, stop.
func (b *Bus) ReadRegister(addr, reg byte) (byte, Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf := [2]byte{reg}
	st := b.run(&transaction{addr: addr, reg: buf[:1], r: buf[1:], read: true})
	return buf[1], st
}

// ReadRegisters fills data from consecutive registers starting at reg.
// Every byte but the last is acknowledged; the last one is NACKed so the
// device releases the bus. An empty data performs the addressing phases
// only.
func (b *Bus) ReadRegisters(addr, reg byte, data []byte) Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf := [1]byte{reg}
	return b.run(&transaction{addr: addr, reg: buf[:], r: data, read: true})
}

// Tx implements i2c.Bus.
//
// The first byte of w is sent as the register address and the rest as data.
// If r is not empty a repeated start follows and len(r) bytes are read. An
// empty w with a non-empty r reads without addressing a register; both
// empty probes addr.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7F {
		return fmt.Errorf("%w: %#x is not a 7-bit address", ErrProtocol, addr)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.enabled {
		return fmt.Errorf("%w: %s is closed", ErrProtocol, b.opts.Name)
	}
	t := transaction{addr: byte(addr), r: r, read: len(r) != 0}
	if len(w) != 0 {
		t.reg, t.w = w[:1], w[1:]
	}
	switch b.run(&t) {
	case Success:
		return nil
	case Timeout:
		return fmt.Errorf("%w: %s at %#02x, state %s", ErrTimeout, b.opts.Name, addr, b.failed)
	default:
		return fmt.Errorf("%w: %s at %#02x, state %s: %s", ErrProtocol, b.opts.Name, addr, b.failed, b.code)
	}
}

// transaction describes one framed exchange with a device.
type transaction struct {
	addr byte
	reg  []byte // register pointer, sent right after SLA+W
	w    []byte
	r    []byte
	read bool
}

// writes reports whether the transaction has a write-addressed part. A
// transaction without anything to send still addresses the device for
// writing unless it is a plain read.
func (t *transaction) writes() bool {
	return len(t.reg) != 0 || len(t.w) != 0 || !t.read
}

type phase uint8

const (
	phaseStart phase = iota
	phaseSend
	phaseRecvAck
	phaseRecvNack
	phaseStop
)

// runPhase starts one bus phase and polls the controller until it reports
// completion or the poll budget is exhausted.
//
// Every phase but stop completes by setting TWINT. Stop completes when the
// controller clears TWSTO.
func (b *Bus) runPhase(p phase, data byte) Outcome {
	ctrl := TWINT | TWEN
	switch p {
	case phaseStart:
		ctrl |= TWSTA
	case phaseSend:
		b.regs.Set(RegData, data)
	case phaseRecvAck:
		ctrl |= TWEA
	case phaseStop:
		ctrl |= TWSTO
	}
	b.regs.Set(RegControl, ctrl)

	mask, want := TWINT, TWINT
	if p == phaseStop {
		mask, want = TWSTO, 0
	}
	for n := b.opts.TimeoutCycles; n > 0; n-- {
		if b.regs.Get(RegControl)&mask == want {
			return Done
		}
	}
	return TimedOut
}

// run executes t and always leaves the bus released.
func (b *Bus) run(t *transaction) Status {
	b.failed, b.code = Idle, CodeNoInfo
	if !b.enabled || t.addr > 0x7F {
		return Error
	}
	st := b.sequence(t)
	if st == Success {
		b.enter(Stop)
		if b.runPhase(phaseStop, 0) == Done {
			b.enter(Idle)
			return Success
		}
		b.failed = Stop
		st = Timeout
	}
	b.abort()
	return st
}

// sequence runs every phase of t up to, and excluding, the stop condition.
func (b *Bus) sequence(t *transaction) Status {
	if st := b.step(Start, phaseStart, 0, CodeStart); st != Success {
		return st
	}
	if t.writes() {
		if st := b.step(AddrWrite, phaseSend, t.addr<<1, CodeSLAWAck); st != Success {
			return st
		}
		for _, c := range t.reg {
			if st := b.step(RegAddr, phaseSend, c, CodeDataTxAck); st != Success {
				return st
			}
		}
		for _, c := range t.w {
			if st := b.step(DataWrite, phaseSend, c, CodeDataTxAck); st != Success {
				return st
			}
		}
	}
	if !t.read {
		return Success
	}
	if t.writes() {
		if st := b.step(RepeatedStart, phaseStart, 0, CodeRepStart); st != Success {
			return st
		}
	}
	if st := b.step(AddrRead, phaseSend, t.addr<<1|1, CodeSLARAck); st != Success {
		return st
	}
	for i := range t.r {
		s, p, c := DataReadAck, phaseRecvAck, CodeDataRxAck
		if i == len(t.r)-1 {
			s, p, c = DataReadNack, phaseRecvNack, CodeDataRxNack
		}
		if st := b.step(s, p, 0, c); st != Success {
			return st
		}
		t.r[i] = b.regs.Get(RegData)
	}
	return Success
}

// step enters s, runs the phase and, with CheckAck, verifies the status
// code against want.
func (b *Bus) step(s State, p phase, data byte, want Code) Status {
	b.enter(s)
	if b.runPhase(p, data) != Done {
		b.failed = s
		return Timeout
	}
	if b.opts.CheckAck {
		if c := Code(b.regs.Get(RegStatus) & StatusMask); c != want {
			b.failed, b.code = s, c
			return Error
		}
	}
	return Success
}

// abort attempts to release the bus after a failed phase. The outcome of
// the stop is not reported.
func (b *Bus) abort() {
	b.enter(Aborted)
	b.enter(Stop)
	_ = b.runPhase(phaseStop, 0)
	b.enter(Idle)
}

func (b *Bus) enter(s State) {
	b.state = s
	b.debug("%s: %s", b.opts.Name, s)
}

func (b *Bus) apply(br, ps byte) {
	b.regs.Set(RegStatus, ps&PrescalerMask)
	b.regs.Set(RegBitRate, br)
	b.regs.Set(RegControl, TWEN)
	b.bitRate, b.prescaler = br, ps
	b.enabled = true
	b.state = Idle
}

// Divisor returns TWBR and the TWPS prescaler select for speed, with
// SCL = clock / (16 + 2*TWBR*4^TWPS). The smallest prescaler that fits is
// used. On error the returned values are the closest reachable setting.
func Divisor(clock, speed physic.Frequency) (byte, byte, error) {
	if speed <= 0 {
		return 0xFF, 3, fmt.Errorf("%w: %s", ErrSpeed, speed)
	}
	ratio := int64(clock / speed)
	if ratio < 16 {
		return 0, 0, fmt.Errorf("%w: %s is above %s/16", ErrSpeed, speed, clock)
	}
	for ps := byte(0); ps < 4; ps++ {
		if br := (ratio - 16) >> (1 + 2*ps); br <= 0xFF {
			return byte(br), ps, nil
		}
	}
	return 0xFF, 3, fmt.Errorf("%w: %s is below the slowest divisor for %s", ErrSpeed, speed, clock)
}

func noop(string, ...interface{}) {}

var _ i2c.BusCloser = &Bus{}
var _ fmt.Stringer = &Bus{}
