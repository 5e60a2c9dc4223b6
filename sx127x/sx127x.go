// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sx127x

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Register map, LoRa mode.
const (
	RegFifo          byte = 0x00
	RegOpMode        byte = 0x01
	RegFrfMsb        byte = 0x06
	RegPaConfig      byte = 0x09
	RegLna           byte = 0x0C
	RegFifoAddrPtr   byte = 0x0D
	RegFifoTxBase    byte = 0x0E
	RegFifoRxBase    byte = 0x0F
	RegFifoRxCurrent byte = 0x10
	RegIrqFlagsMask  byte = 0x11
	RegIrqFlags      byte = 0x12
	RegRxNbBytes     byte = 0x13
	RegModemConfig1  byte = 0x1D
	RegModemConfig2  byte = 0x1E
	RegPreambleMsb   byte = 0x20
	RegPayloadLength byte = 0x22
	RegMaxPayload    byte = 0x23
	RegModemConfig3  byte = 0x26
	RegDioMapping1   byte = 0x40
	RegVersion       byte = 0x42
)

// IRQ flags.
const (
	IrqCadDetected byte = 0x01
	IrqFhssChange  byte = 0x02
	IrqCadDone     byte = 0x04
	IrqTxDone      byte = 0x08
	IrqValidHeader byte = 0x10
	IrqCRCError    byte = 0x20
	IrqRxDone      byte = 0x40
	IrqRxTimeout   byte = 0x80
)

// Version is the silicon revision reported by every SX1276/77/78/79.
const Version byte = 0x12

const (
	writeBit = 0x80

	modeLoRa      = 0x80
	modeLowFreq   = 0x08
	modeSleep     = 0x00
	modeStandby   = 0x01
	modeTx        = 0x03
	modeRxContinu = 0x05

	lnaBoost = 0x23 // G1, LNA boost on
	paBoost  = 0x80 | 0x70

	fxosc = 32000000
)

// Bandwidth is the signal bandwidth, encoded as in RegModemConfig1.
type Bandwidth uint8

const (
	BW7k8 Bandwidth = iota
	BW10k4
	BW15k6
	BW20k8
	BW31k25
	BW41k7
	BW62k5
	BW125k
	BW250k
	BW500k
)

// CodingRate is the error coding rate, encoded as in RegModemConfig1.
type CodingRate uint8

const (
	CR4_5 CodingRate = 1 + iota
	CR4_6
	CR4_7
	CR4_8
)

var (
	// ErrVersion is returned when the version register does not hold
	// Version.
	ErrVersion = errors.New("sx127x: unexpected version")
	// ErrCRC is returned by Receive when a packet failed its payload CRC.
	// The packet is dropped.
	ErrCRC = errors.New("sx127x: payload crc error")
	// ErrTxTimeout is returned when TxDone did not rise before the context
	// expired.
	ErrTxTimeout = errors.New("sx127x: transmit did not complete")
)

// Config is the radio configuration.
type Config struct {
	Frequency       physic.Frequency
	Bandwidth       Bandwidth
	SpreadingFactor uint8 // 6 to 12
	CodingRate      CodingRate
	// ImplicitHeader selects the fixed length packet format; PayloadLength
	// is then the length of every packet.
	ImplicitHeader      bool
	CRC                 bool
	LowDataRateOptimize bool
	PreambleLength      uint16
	PayloadLength       uint8
	TxPower             uint8 // 0 to 15
	TxBase              byte
	RxBase              byte
}

// DefaultConfig is the downlink of the recorder: 433MHz, SF7 at 125kHz.
var DefaultConfig = Config{
	Frequency:       433 * physic.MegaHertz,
	Bandwidth:       BW125k,
	SpreadingFactor: 7,
	CodingRate:      CR4_5,
	CRC:             true,
	PreambleLength:  8,
	PayloadLength:   64,
	TxPower:         15,
	TxBase:          0x80,
	RxBase:          0x00,
}

func (c *Config) validate() error {
	switch {
	case c.Frequency < 137*physic.MegaHertz || c.Frequency > 1020*physic.MegaHertz:
		return fmt.Errorf("sx127x: frequency %s out of range", c.Frequency)
	case c.Bandwidth > BW500k:
		return fmt.Errorf("sx127x: invalid bandwidth %d", c.Bandwidth)
	case c.SpreadingFactor < 6 || c.SpreadingFactor > 12:
		return fmt.Errorf("sx127x: invalid spreading factor %d", c.SpreadingFactor)
	case c.CodingRate < CR4_5 || c.CodingRate > CR4_8:
		return fmt.Errorf("sx127x: invalid coding rate %d", c.CodingRate)
	case c.TxPower > 15:
		return fmt.Errorf("sx127x: invalid tx power %d", c.TxPower)
	case c.PreambleLength < 4:
		return fmt.Errorf("sx127x: preamble of %d symbols is too short", c.PreambleLength)
	}
	return nil
}

// frf returns the 24-bit carrier frequency register value,
// f * 2^19 / FXOSC.
func frf(f physic.Frequency) uint32 {
	hz := uint64(f / physic.Hertz)
	return uint32(hz << 19 / fxosc)
}

// Opts holds the host side options.
type Opts struct {
	// Speed is the SPI clock. Default is 8MHz.
	Speed physic.Frequency
	// PollInterval is the delay between two IRQ flag reads while waiting
	// for TxDone. Default is 1ms.
	PollInterval time.Duration
}

// DefaultOpts holds the default host side options.
var DefaultOpts = Opts{
	Speed:        8 * physic.MegaHertz,
	PollInterval: time.Millisecond,
}

// Dev is a handle to the radio.
type Dev struct {
	c    spi.Conn
	opts Opts

	mu  sync.Mutex
	cfg Config
	lf  byte
}

// New connects to the radio on p, checks its version and applies cfg.
// Either argument may be nil to use DefaultConfig and DefaultOpts.
func New(p spi.Port, cfg *Config, opts *Opts) (*Dev, error) {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.Speed <= 0 {
		o.Speed = DefaultOpts.Speed
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultOpts.PollInterval
	}
	c, err := p.Connect(o.Speed, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("sx127x: %w", err)
	}
	d := &Dev{c: c, opts: o}
	v, err := d.readReg(RegVersion)
	if err != nil {
		return nil, fmt.Errorf("sx127x: reading version: %w", err)
	}
	if v != Version {
		return nil, fmt.Errorf("%w: %#02x", ErrVersion, v)
	}
	if err := d.SetConfig(*cfg); err != nil {
		return nil, err
	}
	return d, nil
}

// SetConfig applies cfg and leaves the radio in continuous receive mode.
func (d *Dev) SetConfig(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var lf byte
	if cfg.Frequency < 525*physic.MegaHertz {
		lf = modeLowFreq
	}
	f := frf(cfg.Frequency)
	mc1 := byte(cfg.Bandwidth)<<4 | byte(cfg.CodingRate)<<1
	if cfg.ImplicitHeader {
		mc1 |= 1
	}
	mc2 := cfg.SpreadingFactor << 4
	if cfg.CRC {
		mc2 |= 1 << 2
	}
	var mc3 byte
	if cfg.LowDataRateOptimize {
		mc3 |= 1 << 3
	}
	writes := []struct {
		reg  byte
		data []byte
	}{
		// LongRangeMode can only be changed in sleep.
		{RegOpMode, []byte{modeLoRa | modeSleep}},
		{RegFrfMsb, []byte{byte(f >> 16), byte(f >> 8), byte(f)}},
		{RegModemConfig1, []byte{mc1}},
		{RegModemConfig2, []byte{mc2}},
		{RegModemConfig3, []byte{mc3}},
		{RegPreambleMsb, []byte{byte(cfg.PreambleLength >> 8), byte(cfg.PreambleLength)}},
		{RegPayloadLength, []byte{cfg.PayloadLength}},
		{RegMaxPayload, []byte{cfg.PayloadLength}},
		{RegLna, []byte{lnaBoost}},
		{RegPaConfig, []byte{paBoost | cfg.TxPower}},
		{RegFifoTxBase, []byte{cfg.TxBase}},
		{RegFifoRxBase, []byte{cfg.RxBase}},
		{RegOpMode, []byte{modeLoRa | lf | modeStandby}},
		{RegOpMode, []byte{modeLoRa | lf | modeRxContinu}},
	}
	for _, w := range writes {
		if err := d.writeReg(w.reg, w.data...); err != nil {
			return fmt.Errorf("sx127x: configuring %#02x: %w", w.reg, err)
		}
	}
	d.cfg, d.lf = cfg, lf
	return nil
}

// Config returns the configuration in use.
func (d *Dev) Config() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Transmit sends payload and blocks until the radio reports TxDone or ctx
// is done. The radio goes back to continuous receive in both cases.
func (d *Dev) Transmit(ctx context.Context, payload []byte) error {
	if len(payload) == 0 || len(payload) > 255 {
		return fmt.Errorf("sx127x: invalid payload length %d", len(payload))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	setup := []struct {
		reg  byte
		data []byte
	}{
		{RegOpMode, []byte{modeLoRa | d.lf | modeStandby}},
		{RegPayloadLength, []byte{byte(len(payload))}},
		{RegFifoAddrPtr, []byte{d.cfg.TxBase}},
		{RegFifo, payload},
		{RegOpMode, []byte{modeLoRa | d.lf | modeTx}},
	}
	for _, w := range setup {
		if err := d.writeReg(w.reg, w.data...); err != nil {
			return fmt.Errorf("sx127x: transmit: %w", err)
		}
	}
	err := d.waitTxDone(ctx)
	if err2 := d.writeReg(RegOpMode, modeLoRa|d.lf|modeRxContinu); err == nil && err2 != nil {
		err = fmt.Errorf("sx127x: transmit: %w", err2)
	}
	return err
}

func (d *Dev) waitTxDone(ctx context.Context) error {
	t := time.NewTicker(d.opts.PollInterval)
	defer t.Stop()
	for {
		f, err := d.readReg(RegIrqFlags)
		if err != nil {
			return fmt.Errorf("sx127x: transmit: %w", err)
		}
		if f&IrqTxDone != 0 {
			if err := d.writeReg(RegIrqFlags, IrqTxDone); err != nil {
				return fmt.Errorf("sx127x: transmit: %w", err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrTxTimeout, ctx.Err())
		case <-t.C:
		}
	}
}

// Receive returns the packet waiting in the FIFO, or nil when none was
// received since the last call. A packet that failed its CRC is dropped
// and ErrCRC is returned.
func (d *Dev) Receive() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, err := d.readReg(RegIrqFlags)
	if err != nil {
		return nil, fmt.Errorf("sx127x: receive: %w", err)
	}
	if f&IrqRxDone == 0 {
		return nil, nil
	}
	if d.cfg.CRC && f&IrqCRCError != 0 {
		if err := d.writeReg(RegIrqFlags, IrqRxDone|IrqCRCError); err != nil {
			return nil, fmt.Errorf("sx127x: receive: %w", err)
		}
		return nil, ErrCRC
	}
	cur, err := d.readReg(RegFifoRxCurrent)
	if err != nil {
		return nil, fmt.Errorf("sx127x: receive: %w", err)
	}
	if err := d.writeReg(RegFifoAddrPtr, cur); err != nil {
		return nil, fmt.Errorf("sx127x: receive: %w", err)
	}
	n, err := d.readReg(RegRxNbBytes)
	if err != nil {
		return nil, fmt.Errorf("sx127x: receive: %w", err)
	}
	buf := make([]byte, n)
	if err := d.readRegs(RegFifo, buf); err != nil {
		return nil, fmt.Errorf("sx127x: receive: %w", err)
	}
	if err := d.writeReg(RegIrqFlags, IrqRxDone); err != nil {
		return nil, fmt.Errorf("sx127x: receive: %w", err)
	}
	return buf, nil
}

// EnableDIO0 maps DIO0 to the interrupt source m (0 RxDone, 1 TxDone,
// 2 CadDone in LoRa mode).
func (d *Dev) EnableDIO0(m uint8) error {
	if m > 3 {
		return fmt.Errorf("sx127x: invalid DIO0 mapping %d", m)
	}
	return d.updateDIO0(m << 6)
}

// DisableDIO0 resets the DIO0 mapping.
func (d *Dev) DisableDIO0() error {
	return d.updateDIO0(0)
}

func (d *Dev) updateDIO0(bits byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.readReg(RegDioMapping1)
	if err != nil {
		return fmt.Errorf("sx127x: dio mapping: %w", err)
	}
	if err := d.writeReg(RegDioMapping1, v&^0xC0|bits); err != nil {
		return fmt.Errorf("sx127x: dio mapping: %w", err)
	}
	return nil
}

// Halt implements conn.Resource. It puts the radio to sleep.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeReg(RegOpMode, modeLoRa|modeSleep)
}

func (d *Dev) String() string {
	return fmt.Sprintf("SX127x{%s}", d.c)
}

func (d *Dev) writeReg(reg byte, data ...byte) error {
	w := make([]byte, 1+len(data))
	w[0] = reg | writeBit
	copy(w[1:], data)
	return d.c.Tx(w, nil)
}

func (d *Dev) readReg(reg byte) (byte, error) {
	var b [1]byte
	err := d.readRegs(reg, b[:])
	return b[0], err
}

// readRegs is a full duplex burst read; the first byte clocked in is
// discarded.
func (d *Dev) readRegs(reg byte, data []byte) error {
	w := make([]byte, 1+len(data))
	r := make([]byte, len(w))
	w[0] = reg &^ writeBit
	if err := d.c.Tx(w, r); err != nil {
		return err
	}
	copy(data, r[1:])
	return nil
}

var _ fmt.Stringer = &Dev{}
