// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package telemetry

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrFormat is returned by Parse for lines that are not telemetry lines.
var ErrFormat = errors.New("telemetry: not a telemetry line")

const sep = " | "

// Format returns the text line of s, without the trailing newline.
//
// Values with two decimals are truncated toward zero like the firmware
// does, but keep their sign even when the integer part is zero.
func Format(s *Sample) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Time: %d ms", s.Time/time.Millisecond)
	fmt.Fprintf(&b, "%sTemp: %s°C", sep, centi(int64(s.Temperature)))
	fmt.Fprintf(&b, "%sPressure: %d Pa", sep, s.Pressure)
	fmt.Fprintf(&b, "%sAltitude: %d m", sep, s.Altitude/100)
	fmt.Fprintf(&b, "%sAccel: [%s]", sep, axes(s.Accel, "g"))
	fmt.Fprintf(&b, "%sGyro: [%s]", sep, axes(s.Gyro, "dps"))
	return b.String()
}

func axes(v [3]float64, unit string) string {
	return fmt.Sprintf("X: %s %s, Y: %s %s, Z: %s %s",
		centi(hundredths(v[0])), unit, centi(hundredths(v[1])), unit, centi(hundredths(v[2])), unit)
}

// hundredths truncates f*100 toward zero. The bias absorbs the binary
// representation error of values that already have two decimals.
func hundredths(f float64) int64 {
	return int64(math.Trunc(f*100 + math.Copysign(1e-6, f)))
}

// centi formats v/100 with two decimals.
func centi(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Parse decodes a line produced by Format or by the recorder firmware.
// Leading and trailing white space is ignored. The altitude is only known
// to the meter.
func Parse(line string) (Sample, error) {
	var s Sample
	fields := strings.Split(strings.TrimSpace(line), sep)
	if len(fields) != 6 {
		return s, ErrFormat
	}
	v, err := field(fields[0], "Time: ", " ms")
	if err != nil {
		return s, err
	}
	ms, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return s, fmt.Errorf("telemetry: time: %w", err)
	}
	s.Time = time.Duration(ms) * time.Millisecond

	// The degree sign is not always valid UTF-8 after a serial link.
	v, err = field(fields[1], "Temp: ", "C")
	if err != nil {
		return s, err
	}
	t, err := parseCenti(strings.TrimRightFunc(v, func(r rune) bool { return r > 0x7F || r == 0xFFFD }))
	if err != nil {
		return s, fmt.Errorf("telemetry: temperature: %w", err)
	}
	s.Temperature = int32(t)

	if v, err = field(fields[2], "Pressure: ", " Pa"); err != nil {
		return s, err
	}
	p, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return s, fmt.Errorf("telemetry: pressure: %w", err)
	}
	s.Pressure = uint32(p)

	if v, err = field(fields[3], "Altitude: ", " m"); err != nil {
		return s, err
	}
	a, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return s, fmt.Errorf("telemetry: altitude: %w", err)
	}
	s.Altitude = int32(a) * 100

	if v, err = field(fields[4], "Accel: [", "]"); err != nil {
		return s, err
	}
	if s.Accel, err = parseAxes(v, "g"); err != nil {
		return s, fmt.Errorf("telemetry: accel: %w", err)
	}
	if v, err = field(fields[5], "Gyro: [", "]"); err != nil {
		return s, err
	}
	if s.Gyro, err = parseAxes(v, "dps"); err != nil {
		return s, fmt.Errorf("telemetry: gyro: %w", err)
	}
	return s, nil
}

func field(f, prefix, suffix string) (string, error) {
	if !strings.HasPrefix(f, prefix) || !strings.HasSuffix(f, suffix) {
		return "", fmt.Errorf("%w: unexpected field %q", ErrFormat, f)
	}
	return f[len(prefix) : len(f)-len(suffix)], nil
}

func parseAxes(v, unit string) ([3]float64, error) {
	var out [3]float64
	parts := strings.Split(v, ", ")
	if len(parts) != 3 {
		return out, fmt.Errorf("%w: %q", ErrFormat, v)
	}
	for i, name := range []string{"X: ", "Y: ", "Z: "} {
		n, err := field(parts[i], name, " "+unit)
		if err != nil {
			return out, err
		}
		c, err := parseCenti(n)
		if err != nil {
			return out, err
		}
		out[i] = float64(c) / 100
	}
	return out, nil
}

// parseCenti parses a decimal with at most two digits after the point into
// hundredths.
func parseCenti(v string) (int64, error) {
	neg := strings.HasPrefix(v, "-")
	v = strings.TrimPrefix(v, "-")
	ip, fp, _ := strings.Cut(v, ".")
	if len(fp) > 2 {
		return 0, fmt.Errorf("%w: too many decimals in %q", ErrFormat, v)
	}
	for len(fp) < 2 {
		fp += "0"
	}
	i, err := strconv.ParseInt(ip, 10, 64)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseInt(fp, 10, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("%w: %q", ErrFormat, v)
	}
	c := i*100 + f
	if neg {
		c = -c
	}
	return c, nil
}
