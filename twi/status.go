// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twi

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when a phase never signalled completion within
	// its poll budget.
	ErrTimeout = errors.New("twi: phase timed out")
	// ErrProtocol is returned for protocol level failures: a NACK or an
	// unexpected status code when Opts.CheckAck is set, a disabled
	// controller or an invalid address.
	ErrProtocol = errors.New("twi: protocol error")
	// ErrSpeed is returned by SetSpeed when the divisor cannot be
	// represented.
	ErrSpeed = errors.New("twi: bus speed out of range")
)

// Status is the result of a transaction.
type Status uint8

const (
	Success Status = iota
	Error
	Timeout
)

func (s Status) String() string {
	switch s {
	case Success:
		return "Success"
	case Error:
		return "Error"
	case Timeout:
		return "Timeout"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Err converts the status into an error value, nil for Success.
func (s Status) Err() error {
	switch s {
	case Success:
		return nil
	case Timeout:
		return ErrTimeout
	default:
		return ErrProtocol
	}
}

// Outcome is the result of a single bus phase.
type Outcome uint8

const (
	Done Outcome = iota
	TimedOut
)

func (o Outcome) String() string {
	if o == Done {
		return "Done"
	}
	return "TimedOut"
}

// State is a step of the transaction state machine:
//
//	Idle → Start → AddrWrite → RegAddr → {DataWrite* | RepeatedStart →
//	AddrRead → DataReadAck* → DataReadNack} → Stop → Idle
//
// Any phase that times out moves to Aborted, whose only exit is a best
// effort Stop.
type State uint8

const (
	Idle State = iota
	Start
	AddrWrite
	RegAddr
	DataWrite
	RepeatedStart
	AddrRead
	DataReadAck
	DataReadNack
	Stop
	Aborted
)

var stateNames = [...]string{
	Idle:          "Idle",
	Start:         "Start",
	AddrWrite:     "AddrWrite",
	RegAddr:       "RegAddr",
	DataWrite:     "DataWrite",
	RepeatedStart: "RepeatedStart",
	AddrRead:      "AddrRead",
	DataReadAck:   "DataReadAck",
	DataReadNack:  "DataReadNack",
	Stop:          "Stop",
	Aborted:       "Aborted",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}
