// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twi_test

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/fdr/twi"
	"github.com/GermanBionicSystems/fdr/twi/twisim"
)

const devAddr = 0x76

func newBus(t *testing.T, opts *twi.Opts) (*twi.Bus, *twisim.Bus, *twisim.RegisterFile) {
	t.Helper()
	sim := twisim.New()
	dev := &twisim.RegisterFile{}
	sim.Attach(devAddr, dev)
	return twi.New(sim, opts), sim, dev
}

func TestInit(t *testing.T) {
	tests := []struct {
		speed     physic.Frequency
		bitRate   byte
		prescaler byte
	}{
		{100 * physic.KiloHertz, 72, 0},
		{400 * physic.KiloHertz, 12, 0},
		{10 * physic.KiloHertz, 198, 1},
	}
	for _, test := range tests {
		t.Run(test.speed.String(), func(t *testing.T) {
			sim := twisim.New()
			b := twi.New(sim, &twi.Opts{Speed: test.speed})
			if got := sim.Register(twi.RegBitRate); got != test.bitRate {
				t.Errorf("TWBR=%d expected %d", got, test.bitRate)
			}
			if got := sim.Register(twi.RegStatus) & twi.PrescalerMask; got != test.prescaler {
				t.Errorf("TWPS=%d expected %d", got, test.prescaler)
			}
			if got := sim.LastControl(); got != twi.TWEN {
				t.Errorf("TWCR=%#02x expected TWEN", got)
			}
			if got := b.Speed(); got != test.speed {
				t.Errorf("Speed()=%s expected %s", got, test.speed)
			}
		})
	}
}

func TestInitIdempotent(t *testing.T) {
	b, sim, _ := newBus(t, nil)
	b.Init(100 * physic.KiloHertz)
	b.Init(100 * physic.KiloHertz)
	if got := sim.Register(twi.RegBitRate); got != 72 {
		t.Errorf("TWBR=%d expected 72", got)
	}
	if len(sim.Events()) != 0 {
		t.Errorf("Init generated bus traffic: %v", sim.Events())
	}
}

func TestSetSpeed(t *testing.T) {
	b, sim, _ := newBus(t, nil)
	for _, f := range []physic.Frequency{2 * physic.MegaHertz, 100 * physic.Hertz, 0} {
		if err := b.SetSpeed(f); !errors.Is(err, twi.ErrSpeed) {
			t.Errorf("SetSpeed(%s) returned %v, expected ErrSpeed", f, err)
		}
	}
	if got := sim.Register(twi.RegBitRate); got != 72 {
		t.Errorf("failed SetSpeed changed TWBR to %d", got)
	}
	if err := b.SetSpeed(400 * physic.KiloHertz); err != nil {
		t.Fatal(err)
	}
	if got := sim.Register(twi.RegBitRate); got != 12 {
		t.Errorf("TWBR=%d expected 12", got)
	}

	// Init clamps instead.
	b.Init(2 * physic.MegaHertz)
	if got := sim.Register(twi.RegBitRate); got != 0 {
		t.Errorf("TWBR=%d expected clamp to 0", got)
	}
}

func TestWriteThenRead(t *testing.T) {
	b, _, _ := newBus(t, nil)
	for reg := 0; reg < 256; reg += 7 {
		v := byte(reg) ^ 0xA5
		if st := b.WriteRegister(devAddr, byte(reg), v); st != twi.Success {
			t.Fatalf("WriteRegister(%#02x)=%s", reg, st)
		}
		got, st := b.ReadRegister(devAddr, byte(reg))
		if st != twi.Success {
			t.Fatalf("ReadRegister(%#02x)=%s", reg, st)
		}
		if got != v {
			t.Errorf("register %#02x read %#02x expected %#02x", reg, got, v)
		}
	}
}

func TestWriteRegisterFrame(t *testing.T) {
	b, sim, dev := newBus(t, nil)
	if st := b.WriteRegister(devAddr, 0xF5, 0x10); st != twi.Success {
		t.Fatal(st)
	}
	expected := []twisim.Event{
		{Kind: twisim.EvStart},
		{Kind: twisim.EvAddr, Data: devAddr << 1, Ack: true},
		{Kind: twisim.EvWrite, Data: 0xF5, Ack: true},
		{Kind: twisim.EvWrite, Data: 0x10, Ack: true},
		{Kind: twisim.EvStop},
	}
	if diff := cmp.Diff(sim.Events(), expected); diff != "" {
		t.Errorf("frame difference (-got +want):\n%s", diff)
	}
	if dev.Regs[0xF5] != 0x10 {
		t.Errorf("register not written: %#02x", dev.Regs[0xF5])
	}
}

func TestWriteRegistersEmpty(t *testing.T) {
	b, sim, _ := newBus(t, nil)
	if st := b.WriteRegisters(devAddr, 0x20, nil); st != twi.Success {
		t.Fatal(st)
	}
	expected := []twisim.Event{
		{Kind: twisim.EvStart},
		{Kind: twisim.EvAddr, Data: devAddr << 1, Ack: true},
		{Kind: twisim.EvWrite, Data: 0x20, Ack: true},
		{Kind: twisim.EvStop},
	}
	if diff := cmp.Diff(sim.Events(), expected); diff != "" {
		t.Errorf("frame difference (-got +want):\n%s", diff)
	}
}

func TestReadRegistersAckNack(t *testing.T) {
	for n := 0; n <= 6; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			b, sim, dev := newBus(t, nil)
			dev.Load(0x40, []byte{1, 2, 3, 4, 5, 6})
			buf := make([]byte, n)
			if st := b.ReadRegisters(devAddr, 0x40, buf); st != twi.Success {
				t.Fatal(st)
			}
			expected := []twisim.Event{
				{Kind: twisim.EvStart},
				{Kind: twisim.EvAddr, Data: devAddr << 1, Ack: true},
				{Kind: twisim.EvWrite, Data: 0x40, Ack: true},
				{Kind: twisim.EvRepeatedStart},
				{Kind: twisim.EvAddr, Data: devAddr<<1 | 1, Ack: true},
			}
			for i := 0; i < n; i++ {
				expected = append(expected, twisim.Event{Kind: twisim.EvRead, Data: byte(i + 1), Ack: i < n-1})
			}
			expected = append(expected, twisim.Event{Kind: twisim.EvStop})
			if diff := cmp.Diff(sim.Events(), expected); diff != "" {
				t.Errorf("frame difference (-got +want):\n%s", diff)
			}
			if !bytes.Equal(buf, []byte{1, 2, 3, 4, 5, 6}[:n]) {
				t.Errorf("read %v", buf)
			}
		})
	}
}

func TestTimeout(t *testing.T) {
	const cycles = 50
	ops := map[string]func(b *twi.Bus) twi.Status{
		"WriteRegister": func(b *twi.Bus) twi.Status {
			return b.WriteRegister(devAddr, 1, 2)
		},
		"WriteRegisters": func(b *twi.Bus) twi.Status {
			return b.WriteRegisters(devAddr, 1, []byte{2, 3})
		},
		"ReadRegister": func(b *twi.Bus) twi.Status {
			_, st := b.ReadRegister(devAddr, 1)
			return st
		},
		"ReadRegisters": func(b *twi.Bus) twi.Status {
			return b.ReadRegisters(devAddr, 1, make([]byte, 4))
		},
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			b, sim, _ := newBus(t, &twi.Opts{TimeoutCycles: cycles})
			sim.Hang = true
			if st := op(b); st != twi.Timeout {
				t.Fatalf("got %s expected Timeout", st)
			}
			// One budget for the start, one for the stop attempt.
			if p := sim.Polls(); p != 2*cycles {
				t.Errorf("polled %d times, expected %d", p, 2*cycles)
			}
			if sim.LastControl()&twi.TWSTO == 0 {
				t.Errorf("no stop attempted, TWCR=%#02x", sim.LastControl())
			}
			if s := b.State(); s != twi.Idle {
				t.Errorf("state %s after abort", s)
			}
		})
	}
}

func TestTimeoutMidTransaction(t *testing.T) {
	b, sim, _ := newBus(t, &twi.Opts{TimeoutCycles: 20})
	var trace []string
	b.EnableDebug(func(format string, args ...interface{}) {
		trace = append(trace, fmt.Sprintf(format, args...))
	})
	sim.HangAfter = 3
	if st := b.ReadRegisters(devAddr, 0x88, make([]byte, 4)); st != twi.Timeout {
		t.Fatalf("got %s expected Timeout", st)
	}
	expected := []twisim.Event{
		{Kind: twisim.EvStart},
		{Kind: twisim.EvAddr, Data: devAddr << 1, Ack: true},
		{Kind: twisim.EvWrite, Data: 0x88, Ack: true},
		{Kind: twisim.EvRepeatedStart},
		{Kind: twisim.EvStop},
	}
	if diff := cmp.Diff(sim.Events(), expected); diff != "" {
		t.Errorf("frame difference (-got +want):\n%s", diff)
	}
	wantTrace := []string{
		"TWI0: Start", "TWI0: AddrWrite", "TWI0: RegAddr", "TWI0: RepeatedStart",
		"TWI0: Aborted", "TWI0: Stop", "TWI0: Idle",
	}
	if diff := cmp.Diff(trace, wantTrace); diff != "" {
		t.Errorf("trace difference (-got +want):\n%s", diff)
	}
}

func TestTransactionsIndependent(t *testing.T) {
	b, sim, dev := newBus(t, &twi.Opts{TimeoutCycles: 20})
	sim.HangAfter = 2
	if st := b.WriteRegisters(devAddr, 0x10, []byte{1, 2}); st != twi.Timeout {
		t.Fatalf("got %s expected Timeout", st)
	}
	sim.Reset()
	if st := b.WriteRegisters(devAddr, 0x20, []byte{3, 4}); st != twi.Success {
		t.Fatal(st)
	}
	if st := b.WriteRegisters(devAddr, 0x30, []byte{5}); st != twi.Success {
		t.Fatal(st)
	}
	expected := []twisim.Event{
		{Kind: twisim.EvStart},
		{Kind: twisim.EvAddr, Data: devAddr << 1, Ack: true},
		{Kind: twisim.EvWrite, Data: 0x20, Ack: true},
		{Kind: twisim.EvWrite, Data: 3, Ack: true},
		{Kind: twisim.EvWrite, Data: 4, Ack: true},
		{Kind: twisim.EvStop},
		{Kind: twisim.EvStart},
		{Kind: twisim.EvAddr, Data: devAddr << 1, Ack: true},
		{Kind: twisim.EvWrite, Data: 0x30, Ack: true},
		{Kind: twisim.EvWrite, Data: 5, Ack: true},
		{Kind: twisim.EvStop},
	}
	if diff := cmp.Diff(sim.Events(), expected); diff != "" {
		t.Errorf("frame difference (-got +want):\n%s", diff)
	}
	if got := dev.Dump(0x20, 2); !bytes.Equal(got, []byte{3, 4}) {
		t.Errorf("0x20: %v", got)
	}
	if got := dev.Dump(0x30, 1); !bytes.Equal(got, []byte{5}) {
		t.Errorf("0x30: %v", got)
	}
}

func TestCalibrationBurst(t *testing.T) {
	b, _, dev := newBus(t, nil)
	calib := []byte{
		0x70, 0x6b, 0x43, 0x67, 0x18, 0xfc, 0x7d, 0x8e, 0x43, 0xd6, 0xd0, 0x0b,
		0x27, 0x0b, 0x8c, 0x00, 0xf9, 0xff, 0x8c, 0x3c, 0xf8, 0xc6, 0x70, 0x17,
	}
	dev.Load(0x88, calib)
	if st := b.WriteRegisters(devAddr, 0xF4, []byte{0x6F}); st != twi.Success {
		t.Fatal(st)
	}
	got := make([]byte, 24)
	if st := b.ReadRegisters(devAddr, 0x88, got); st != twi.Success {
		t.Fatal(st)
	}
	if !bytes.Equal(got, calib) {
		t.Errorf("calibration %#v expected %#v", got, calib)
	}
	if dev.Regs[0xF4] != 0x6F {
		t.Errorf("ctrl_meas=%#02x", dev.Regs[0xF4])
	}
}

func TestCheckAck(t *testing.T) {
	b, sim, _ := newBus(t, &twi.Opts{CheckAck: true})
	if st := b.WriteRegister(0x42, 1, 2); st != twi.Error {
		t.Fatalf("got %s expected Error", st)
	}
	ev := sim.Events()
	if len(ev) != 3 || ev[1].Ack || ev[2].Kind != twisim.EvStop {
		t.Errorf("unexpected frame %v", ev)
	}
	err := b.Tx(0x42, []byte{1}, make([]byte, 1))
	if !errors.Is(err, twi.ErrProtocol) {
		t.Errorf("Tx returned %v", err)
	}

	// Without checking, an absent device reads as a released bus.
	b2, _, _ := newBus(t, nil)
	v, st := b2.ReadRegister(0x42, 0)
	if st != twi.Success || v != 0xFF {
		t.Errorf("got %#02x, %s", v, st)
	}
}

func TestTx(t *testing.T) {
	b, sim, dev := newBus(t, nil)
	if err := b.Tx(devAddr, []byte{0x10, 0xAA, 0xBB}, nil); err != nil {
		t.Fatal(err)
	}
	r := make([]byte, 2)
	if err := b.Tx(devAddr, []byte{0x10}, r); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r, []byte{0xAA, 0xBB}) {
		t.Errorf("read %v", r)
	}

	// A plain read continues from the register pointer.
	dev.Load(0x12, []byte{0xCC})
	sim.Reset()
	r = make([]byte, 1)
	if err := b.Tx(devAddr, nil, r); err != nil {
		t.Fatal(err)
	}
	expected := []twisim.Event{
		{Kind: twisim.EvStart},
		{Kind: twisim.EvAddr, Data: devAddr<<1 | 1, Ack: true},
		{Kind: twisim.EvRead, Data: 0xCC, Ack: false},
		{Kind: twisim.EvStop},
	}
	if diff := cmp.Diff(sim.Events(), expected); diff != "" {
		t.Errorf("frame difference (-got +want):\n%s", diff)
	}

	sim.Reset()
	if err := b.Tx(devAddr, nil, nil); err != nil {
		t.Fatal(err)
	}
	if n := len(sim.Events()); n != 3 {
		t.Errorf("probe generated %d events", n)
	}

	if err := b.Tx(0x80, nil, nil); !errors.Is(err, twi.ErrProtocol) {
		t.Errorf("10-bit address accepted: %v", err)
	}
	sim.Hang = true
	if err := b.Tx(devAddr, []byte{1}, nil); !errors.Is(err, twi.ErrTimeout) {
		t.Errorf("expected timeout, got %v", err)
	}
}

func TestClose(t *testing.T) {
	b, sim, _ := newBus(t, nil)
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if sim.LastControl()&twi.TWEN != 0 {
		t.Error("controller still enabled")
	}
	if st := b.WriteRegister(devAddr, 0, 0); st != twi.Error {
		t.Errorf("got %s on closed bus", st)
	}
	if err := b.Tx(devAddr, []byte{0}, nil); !errors.Is(err, twi.ErrProtocol) {
		t.Errorf("got %v on closed bus", err)
	}
	if len(sim.Events()) != 0 {
		t.Errorf("closed bus generated traffic: %v", sim.Events())
	}
	b.Init(100 * physic.KiloHertz)
	if st := b.WriteRegister(devAddr, 0, 0); st != twi.Success {
		t.Errorf("got %s after Init", st)
	}
}

func TestStateTrace(t *testing.T) {
	b, _, _ := newBus(t, nil)
	var trace []twi.State
	b.EnableDebug(func(format string, args ...interface{}) {
		trace = append(trace, args[1].(twi.State))
	})
	b.ReadRegisters(devAddr, 0, make([]byte, 3))
	expected := []twi.State{
		twi.Start, twi.AddrWrite, twi.RegAddr, twi.RepeatedStart, twi.AddrRead,
		twi.DataReadAck, twi.DataReadAck, twi.DataReadNack, twi.Stop, twi.Idle,
	}
	if diff := cmp.Diff(trace, expected); diff != "" {
		t.Errorf("trace difference (-got +want):\n%s", diff)
	}
}

func TestStatus(t *testing.T) {
	if twi.Success.Err() != nil {
		t.Error("Success is an error")
	}
	if !errors.Is(twi.Timeout.Err(), twi.ErrTimeout) {
		t.Error("Timeout")
	}
	if !errors.Is(twi.Error.Err(), twi.ErrProtocol) {
		t.Error("Error")
	}
	for _, s := range []twi.Status{twi.Success, twi.Error, twi.Timeout, 9} {
		if s.String() == "" {
			t.Errorf("empty String() for %d", s)
		}
	}
	if s := twi.CodeSLAWNack.String(); s != "SLA+W nack" {
		t.Errorf("Code.String()=%q", s)
	}
}
