// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package recorder

import (
	"context"
	"sync"
	"time"
)

// Clock is the time base of the recorder.
type Clock interface {
	// Now returns the time elapsed since boot.
	Now() time.Duration
	// Sleep blocks for d or until ctx is done, in which case it returns
	// ctx.Err().
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock returns a Clock running in real time, booted now.
func SystemClock() Clock {
	return &systemClock{boot: time.Now()}
}

type systemClock struct {
	boot time.Time
}

func (c *systemClock) Now() time.Duration {
	return time.Since(c.boot)
}

func (c *systemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// StepClock is a simulated Clock: Sleep returns immediately after
// advancing the time. It replays a whole flight as fast as the sensors can
// be read.
type StepClock struct {
	mu  sync.Mutex
	now time.Duration
}

// Now implements Clock.
func (c *StepClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep implements Clock.
func (c *StepClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Advance(d)
	return nil
}

// Advance moves the clock forward by d.
func (c *StepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now += d
	}
}
