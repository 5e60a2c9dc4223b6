// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package flightplot

import (
	"bytes"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/GermanBionicSystems/fdr/flightsim"
	"github.com/GermanBionicSystems/fdr/telemetry"
)

func flight() []telemetry.Sample {
	r := flightsim.Rocket{Pad: time.Second, Burn: time.Second, Boost: 50, Descent: 20}
	var out []telemetry.Sample
	for t := time.Duration(0); t < r.Duration()+time.Second; t += 50 * time.Millisecond {
		s := r.At(t)
		out = append(out, telemetry.Sample{
			Time:     t,
			Altitude: int32(s.Altitude * 100),
			Accel:    s.Accel,
			Gyro:     s.Gyro,
		})
	}
	return out
}

func TestSummarize(t *testing.T) {
	s := Summarize(flight())
	if s.Apogee < 15000 || s.Apogee > 15300 {
		t.Fatalf("apogee %d", s.Apogee)
	}
	if s.ApogeeTime < 7*time.Second || s.ApogeeTime > 7200*time.Millisecond {
		t.Fatalf("apogee at %s", s.ApogeeTime)
	}
	if s.MaxAccel < 6.09 || s.MaxAccel > 6.1 {
		t.Fatalf("max accel %f", s.MaxAccel)
	}
	if s.Start != 0 || s.Samples != len(flight()) {
		t.Fatal(s)
	}
	if got := (Summary{}).String(); got != "0 samples over 0s, apogee 0.00m at 0s, max 0.00g" {
		t.Fatal(got)
	}
}

func TestRender(t *testing.T) {
	img, err := Render(flight(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 1200 || b.Dy() != 800 {
		t.Fatal(b)
	}
	h := (800 - marginTop - marginBottom - panelGap) / 2
	upper := image.Rect(marginLeft, marginTop, 1200-marginRight, marginTop+h)
	lower := image.Rect(marginLeft, marginTop+h+panelGap, 1200-marginRight, 800-marginBottom)
	if n := count(img, upper, isAltitude); n < 500 {
		t.Fatalf("%d altitude pixels in the upper panel", n)
	}
	if n := count(img, lower, isAltitude); n != 0 {
		t.Fatalf("%d altitude pixels in the lower panel", n)
	}
	if n := count(img, lower, isAccel); n < 500 {
		t.Fatalf("%d acceleration pixels in the lower panel", n)
	}
	if r, g, b, _ := img.At(2, 2).RGBA(); r != 0xFFFF || g != 0xFFFF || b != 0xFFFF {
		t.Fatal("background is not white")
	}
}

func TestRender_single(t *testing.T) {
	if _, err := Render(flight()[:1], &Opts{Width: 200, Height: 200}); err != nil {
		t.Fatal(err)
	}
}

func TestRender_errors(t *testing.T) {
	if _, err := Render(nil, nil); err != ErrNoSamples {
		t.Fatal(err)
	}
	if _, err := Render(flight(), &Opts{Width: 10, Height: 800}); err == nil {
		t.Fatal("expected error")
	}
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, flight(), &Opts{Width: 320, Height: 240}); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
		t.Fatal(b)
	}
}

func TestNiceStep(t *testing.T) {
	data := []struct {
		span float64
		n    int
		want float64
	}{
		{0, 10, 1},
		{-3, 10, 1},
		{10, 10, 1},
		{15, 10, 2},
		{40, 10, 5},
		{70, 10, 10},
		{152.3, 6, 50},
		{0.7, 6, 0.2},
	}
	for i, line := range data {
		if got := niceStep(line.span, line.n); got != line.want {
			t.Errorf("#%d: niceStep(%g, %d) = %g, want %g", i, line.span, line.n, got, line.want)
		}
	}
	if s := tick(0.4000000001, 0.2); s != "0.4" {
		t.Fatal(s)
	}
	if s := tick(-1e-12, 0.5); s != "0.0" {
		t.Fatal(s)
	}
	if s := tick(150, 50); s != "150" {
		t.Fatal(s)
	}
}

func count(img image.Image, r image.Rectangle, match func(r, g, b uint32) bool) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			if match(cr>>8, cg>>8, cb>>8) {
				n++
			}
		}
	}
	return n
}

func isAltitude(r, g, b uint32) bool {
	return b > 0x90 && r < 0x50 && g > 0x50 && g < 0x90
}

func isAccel(r, g, b uint32) bool {
	return r > 0xB0 && g < 0x50 && b < 0x50
}
