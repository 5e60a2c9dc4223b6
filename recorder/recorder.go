// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/fdr/bmp280"
	"github.com/GermanBionicSystems/fdr/lsm6ds3"
	"github.com/GermanBionicSystems/fdr/rgbled"
	"github.com/GermanBionicSystems/fdr/telemetry"
)

// ErrNoBaseline is returned by Run when no barometer reading succeeded
// while measuring the ground level pressure.
var ErrNoBaseline = errors.New("recorder: no barometer reading for the ground level")

// Config describes the instruments and the timing of a flight.
type Config struct {
	BaroAddress uint16
	Baro        bmp280.Opts
	IMUAddress  uint16
	IMU         lsm6ds3.Opts

	// BaselineReadings is the number of barometer readings taken at boot.
	// The last successful one is the ground level pressure.
	BaselineReadings int
	// SampleInterval is the period of the telemetry lines.
	SampleInterval time.Duration
	// LEDInterval is the period of one rainbow step.
	LEDInterval time.Duration
	// FaultBlink is the on and off time of the fault indicator.
	FaultBlink time.Duration
	// Duration, when positive, ends Run after sampling for that long.
	Duration time.Duration
}

// DefaultConfig is the recorder flight configuration.
var DefaultConfig = Config{
	BaroAddress:      bmp280.DefaultAddress,
	Baro:             bmp280.DefaultOpts,
	IMUAddress:       lsm6ds3.DefaultAddress,
	IMU:              lsm6ds3.DefaultOpts,
	BaselineReadings: 100,
	SampleInterval:   50 * time.Millisecond,
	LEDInterval:      2 * time.Millisecond,
	FaultBlink:       250 * time.Millisecond,
}

func (c *Config) validate() error {
	if c.BaselineReadings < 1 {
		return fmt.Errorf("recorder: baseline readings must be positive, got %d", c.BaselineReadings)
	}
	if c.SampleInterval <= 0 || c.LEDInterval <= 0 || c.FaultBlink <= 0 {
		return errors.New("recorder: intervals must be positive")
	}
	return nil
}

// Radio sends binary telemetry frames. sx127x.Dev implements it.
type Radio interface {
	Transmit(ctx context.Context, payload []byte) error
}

// Sensors is the hardware the recorder reads.
type Sensors struct {
	// Bus carries the barometer and the inertial unit.
	Bus i2c.Bus
	// Radio is optional. When set every sample is also transmitted.
	Radio Radio
}

// Opts holds the dependencies of a Recorder. Every field is optional.
type Opts struct {
	// Logger defaults to the logrus standard logger.
	Logger logrus.FieldLogger
	// Clock defaults to SystemClock().
	Clock Clock
	// OnSample is called with every sample after it is written.
	OnSample func(telemetry.Sample)
}

// Stats counts what happened during Run.
type Stats struct {
	Samples     int
	BaroErrors  int
	IMUErrors   int
	RadioErrors int
	LEDErrors   int
}

// Recorder is the application loop.
type Recorder struct {
	cfg      Config
	sensors  Sensors
	led      rgbled.LED
	w        io.Writer
	log      logrus.FieldLogger
	clock    Clock
	onSample func(telemetry.Sample)

	baro    *bmp280.Dev
	imu     *lsm6ds3.Dev
	rainbow rgbled.Rainbow

	mu     sync.Mutex
	stats  Stats
	ground physic.Pressure
	last   telemetry.Sample
}

// New returns a Recorder writing telemetry lines to w. led can be nil.
func New(cfg Config, s Sensors, led rgbled.LED, w io.Writer, opts *Opts) (*Recorder, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if s.Bus == nil {
		return nil, errors.New("recorder: no sensor bus")
	}
	if w == nil {
		return nil, errors.New("recorder: no telemetry output")
	}
	if opts == nil {
		opts = &Opts{}
	}
	r := &Recorder{
		cfg:      cfg,
		sensors:  s,
		led:      led,
		w:        w,
		log:      opts.Logger,
		clock:    opts.Clock,
		onSample: opts.OnSample,
	}
	if r.log == nil {
		r.log = logrus.StandardLogger()
	}
	if r.clock == nil {
		r.clock = SystemClock()
	}
	return r, nil
}

// Run initializes the sensors, measures the ground level and records until
// ctx is done or the configured duration elapsed.
//
// When initialization fails the LED blinks red until ctx is done and the
// initialization error is returned. Sensor read errors during the flight
// are logged and counted; the previous value is repeated. Run returns
// ctx.Err() when cancelled and nil when the duration elapsed.
func (r *Recorder) Run(ctx context.Context) error {
	if err := r.open(); err != nil {
		r.log.WithError(err).Error("sensor initialization failed")
		r.fault(ctx)
		return err
	}
	if err := r.baseline(); err != nil {
		r.log.WithError(err).Error("ground level measurement failed")
		r.fault(ctx)
		return err
	}
	r.log.WithFields(logrus.Fields{
		"ground":    r.Ground(),
		"readings":  r.cfg.BaselineReadings,
		"barometer": r.baro,
		"inertial":  r.imu,
		"sample":    r.cfg.SampleInterval,
		"radio":     r.sensors.Radio != nil,
	}).Info("recording")
	return r.loop(ctx)
}

// Ground returns the ground level pressure.
func (r *Recorder) Ground() physic.Pressure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ground
}

// Stats returns the counters so far.
func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Last returns the last sample written.
func (r *Recorder) Last() telemetry.Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *Recorder) open() error {
	var err error
	if r.baro, err = bmp280.NewI2C(r.sensors.Bus, r.cfg.BaroAddress, &r.cfg.Baro); err != nil {
		return err
	}
	if r.imu, err = lsm6ds3.NewI2C(r.sensors.Bus, r.cfg.IMUAddress, &r.cfg.IMU); err != nil {
		return err
	}
	return nil
}

// fault shows the fault indicator until ctx is done.
func (r *Recorder) fault(ctx context.Context) {
	if r.led == nil {
		<-ctx.Done()
		return
	}
	if err := rgbled.Blink(ctx, r.led, rgbled.Red, r.cfg.FaultBlink); err != nil && !errors.Is(err, ctx.Err()) {
		r.log.WithError(err).Warn("fault indicator")
	}
}

// baseline discards the first readings, which are not settled yet, and
// keeps the last one as the ground level.
func (r *Recorder) baseline() error {
	var e physic.Env
	ok := false
	for i := 0; i < r.cfg.BaselineReadings; i++ {
		if err := r.baro.Sense(&e); err != nil {
			r.count(&r.stats.BaroErrors)
			continue
		}
		ok = true
	}
	if !ok {
		return ErrNoBaseline
	}
	r.mu.Lock()
	r.ground = e.Pressure
	r.last.SetEnv(e)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) loop(ctx context.Context) error {
	start := r.clock.Now()
	lastSample, lastLED := start, start
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		now := r.clock.Now()
		if r.cfg.Duration > 0 && now-start >= r.cfg.Duration {
			r.log.WithField("samples", r.Stats().Samples).Info("recording complete")
			return nil
		}
		if now-lastSample >= r.cfg.SampleInterval {
			lastSample = now
			if err := r.sample(ctx, now); err != nil {
				return err
			}
		}
		next := lastSample + r.cfg.SampleInterval
		if r.led != nil {
			if now-lastLED >= r.cfg.LEDInterval {
				lastLED = now
				if err := r.rainbow.Tick(r.led); err != nil {
					r.count(&r.stats.LEDErrors)
					r.log.WithError(err).Debug("led")
				}
			}
			if n := lastLED + r.cfg.LEDInterval; n < next {
				next = n
			}
		}
		if end := start + r.cfg.Duration; r.cfg.Duration > 0 && end < next {
			next = end
		}
		if d := next - r.clock.Now(); d > 0 {
			if err := r.clock.Sleep(ctx, d); err != nil {
				return err
			}
		}
	}
}

// sample reads both sensors and emits one telemetry sample.
func (r *Recorder) sample(ctx context.Context, now time.Duration) error {
	s := r.Last()
	s.Time = now
	var e physic.Env
	if err := r.baro.Sense(&e); err != nil {
		r.count(&r.stats.BaroErrors)
		r.log.WithError(err).Warn("barometer")
	} else {
		s.SetEnv(e)
		s.Altitude = int32(bmp280.Altitude(e.Pressure, r.Ground()) / (10 * physic.MilliMetre))
	}
	if m, err := r.imu.Sense(); err != nil {
		r.count(&r.stats.IMUErrors)
		r.log.WithError(err).Warn("inertial")
	} else {
		s.Accel, s.Gyro = m.Accel, m.Gyro
	}

	if _, err := io.WriteString(r.w, telemetry.Format(&s)+"\n"); err != nil {
		return fmt.Errorf("recorder: writing telemetry: %w", err)
	}
	if r.sensors.Radio != nil {
		b, err := s.MarshalBinary()
		if err == nil {
			err = r.sensors.Radio.Transmit(ctx, b)
		}
		if err != nil {
			r.count(&r.stats.RadioErrors)
			r.log.WithError(err).Warn("radio")
		}
	}
	r.mu.Lock()
	r.stats.Samples++
	r.last = s
	r.mu.Unlock()
	if r.onSample != nil {
		r.onSample(s)
	}
	return nil
}

func (r *Recorder) count(c *int) {
	r.mu.Lock()
	*c++
	r.mu.Unlock()
}
