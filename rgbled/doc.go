// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package rgbled drives the status LED of the flight recorder.
//
// Dev controls a discrete RGB LED through three PWM capable pins. Console
// draws the same colour on a terminal with ANSI 256 colour codes, useful
// when running the recorder on a simulated bus.
//
// HSV converts a hue, saturation and value to RGB with integer math only;
// Rainbow and Blink are the two animations the recorder shows: a slow hue
// rotation while recording and a red blink when a sensor failed to
// initialize.
package rgbled
