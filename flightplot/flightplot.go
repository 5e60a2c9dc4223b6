// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package flightplot

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/GermanBionicSystems/fdr/telemetry"
)

// ErrNoSamples is returned when there is nothing to plot.
var ErrNoSamples = errors.New("flightplot: no samples")

// Opts holds the rendering options.
type Opts struct {
	Width  int
	Height int
	// Title is drawn above the plots, followed by the flight summary.
	Title string
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Width:  1200,
	Height: 800,
	Title:  "Flight profile",
}

// Trace colours.
var (
	AltitudeColor = color.NRGBA{R: 0x1F, G: 0x77, B: 0xB4, A: 0xFF}
	AccelColor    = color.NRGBA{R: 0xD6, G: 0x27, B: 0x28, A: 0xFF}
)

const (
	marginLeft   = 80
	marginRight  = 30
	marginTop    = 60
	marginBottom = 50
	panelGap     = 60
)

// Render draws samples.
func Render(samples []telemetry.Sample, opts *Opts) (image.Image, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	if opts.Width < 100 || opts.Height < 100 {
		return nil, fmt.Errorf("flightplot: %dx%d is too small", opts.Width, opts.Height)
	}
	regular, small, err := faces()
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0, 0, 0)
	dc.SetFontFace(regular)
	title := Summarize(samples).String()
	if opts.Title != "" {
		title = opts.Title + ": " + title
	}
	dc.DrawStringAnchored(title, float64(opts.Width)/2, marginTop/2, 0.5, 0.5)

	t := make([]float64, len(samples))
	alt := make([]float64, len(samples))
	acc := make([]float64, len(samples))
	for i := range samples {
		t[i] = samples[i].Time.Seconds()
		alt[i] = float64(samples[i].Altitude) / 100
		acc[i] = samples[i].Accel[2]
	}

	w := float64(opts.Width - marginLeft - marginRight)
	h := float64(opts.Height-marginTop-marginBottom-panelGap) / 2
	dc.SetFontFace(small)
	top := panel{x0: marginLeft, y0: marginTop, w: w, h: h, label: "altitude (m)"}
	bottom := panel{x0: marginLeft, y0: marginTop + h + panelGap, w: w, h: h, label: "vertical acceleration (g)"}
	top.fit(t, alt)
	bottom.fit(t, acc)
	top.axes(dc, false)
	bottom.axes(dc, true)
	top.trace(dc, t, alt, AltitudeColor)
	bottom.trace(dc, t, acc, AccelColor)
	return dc.Image(), nil
}

// WritePNG renders samples and encodes the result as PNG.
func WritePNG(w io.Writer, samples []telemetry.Sample, opts *Opts) error {
	img, err := Render(samples, opts)
	if err != nil {
		return err
	}
	return gg.NewContextForImage(img).EncodePNG(w)
}

var (
	fontOnce sync.Once
	fontTTF  *truetype.Font
	fontErr  error
)

func faces() (font.Face, font.Face, error) {
	fontOnce.Do(func() {
		fontTTF, fontErr = truetype.Parse(goregular.TTF)
	})
	if fontErr != nil {
		return nil, nil, fmt.Errorf("flightplot: %w", fontErr)
	}
	return truetype.NewFace(fontTTF, &truetype.Options{Size: 16}),
		truetype.NewFace(fontTTF, &truetype.Options{Size: 12}), nil
}

// panel maps data coordinates to one plot area.
type panel struct {
	x0, y0, w, h float64
	label        string

	tmin, tmax float64
	ymin, ymax float64
	tstep      float64
	ystep      float64
}

func (p *panel) fit(t, y []float64) {
	p.tmin, p.tmax = bounds(t)
	p.ymin, p.ymax = bounds(y)
	p.tstep = niceStep(p.tmax-p.tmin, 10)
	p.ystep = niceStep(p.ymax-p.ymin, 6)
	p.tmin = math.Floor(p.tmin/p.tstep) * p.tstep
	p.tmax = math.Ceil(p.tmax/p.tstep) * p.tstep
	p.ymin = math.Floor(p.ymin/p.ystep) * p.ystep
	p.ymax = math.Ceil(p.ymax/p.ystep) * p.ystep
	if p.tmax == p.tmin {
		p.tmax += p.tstep
	}
	if p.ymax == p.ymin {
		p.ymax += p.ystep
	}
}

func (p *panel) x(t float64) float64 {
	return p.x0 + (t-p.tmin)/(p.tmax-p.tmin)*p.w
}

func (p *panel) y(v float64) float64 {
	return p.y0 + p.h - (v-p.ymin)/(p.ymax-p.ymin)*p.h
}

func (p *panel) axes(dc *gg.Context, timeLabel bool) {
	dc.SetLineWidth(1)
	dc.SetRGB(0.85, 0.85, 0.85)
	for v := p.ymin; v <= p.ymax+p.ystep/2; v += p.ystep {
		dc.DrawLine(p.x0, p.y(v), p.x0+p.w, p.y(v))
	}
	for v := p.tmin; v <= p.tmax+p.tstep/2; v += p.tstep {
		dc.DrawLine(p.x(v), p.y0, p.x(v), p.y0+p.h)
	}
	dc.Stroke()

	dc.SetRGB(0, 0, 0)
	dc.DrawRectangle(p.x0, p.y0, p.w, p.h)
	dc.Stroke()
	for v := p.ymin; v <= p.ymax+p.ystep/2; v += p.ystep {
		dc.DrawStringAnchored(tick(v, p.ystep), p.x0-6, p.y(v), 1, 0.5)
	}
	for v := p.tmin; v <= p.tmax+p.tstep/2; v += p.tstep {
		dc.DrawStringAnchored(tick(v, p.tstep), p.x(v), p.y0+p.h+6, 0.5, 1)
	}
	dc.Push()
	dc.RotateAbout(gg.Radians(-90), p.x0-60, p.y0+p.h/2)
	dc.DrawStringAnchored(p.label, p.x0-60, p.y0+p.h/2, 0.5, 0.5)
	dc.Pop()
	if timeLabel {
		dc.DrawStringAnchored("time (s)", p.x0+p.w/2, p.y0+p.h+30, 0.5, 0.5)
	}
}

func (p *panel) trace(dc *gg.Context, t, y []float64, c color.Color) {
	dc.SetColor(c)
	if len(t) == 1 {
		dc.DrawCircle(p.x(t[0]), p.y(y[0]), 3)
		dc.Fill()
		return
	}
	dc.SetLineWidth(2)
	dc.MoveTo(p.x(t[0]), p.y(y[0]))
	for i := 1; i < len(t); i++ {
		dc.LineTo(p.x(t[i]), p.y(y[i]))
	}
	dc.Stroke()
}

func bounds(v []float64) (float64, float64) {
	lo, hi := v[0], v[0]
	for _, x := range v[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

// niceStep returns a 1, 2 or 5 times a power of ten step dividing span in
// about n intervals.
func niceStep(span float64, n int) float64 {
	if span <= 0 || math.IsNaN(span) {
		return 1
	}
	raw := span / float64(n)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	switch f := raw / mag; {
	case f <= 1:
		return mag
	case f <= 2:
		return 2 * mag
	case f <= 5:
		return 5 * mag
	}
	return 10 * mag
}

// tick formats a tick value with as many decimals as the step needs.
func tick(v, step float64) string {
	d := 0
	if step < 1 {
		d = int(math.Ceil(-math.Log10(step)))
	}
	if math.Abs(v) < step/1e6 {
		v = 0
	}
	return fmt.Sprintf("%.*f", d, v)
}
