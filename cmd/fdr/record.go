// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-colorable"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/fdr/config"
	"github.com/GermanBionicSystems/fdr/flightsim"
	"github.com/GermanBionicSystems/fdr/groundlink"
	"github.com/GermanBionicSystems/fdr/recorder"
	"github.com/GermanBionicSystems/fdr/rgbled"
	"github.com/GermanBionicSystems/fdr/sx127x"
	"github.com/GermanBionicSystems/fdr/telemetry"
	"github.com/GermanBionicSystems/fdr/twi"
)

// session owns what record opens and releases it in reverse order.
type session struct {
	hostReady bool
	cleanup   []func() error
}

func (s *session) onClose(name string, f func() error) {
	s.cleanup = append(s.cleanup, func() error {
		return errors.Wrap(f(), name)
	})
}

func (s *session) close() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		if err := s.cleanup[i](); err != nil {
			log.WithError(err).Warn("release")
		}
	}
	s.cleanup = nil
}

func (s *session) initHost() error {
	if s.hostReady {
		return nil
	}
	st, err := host.Init()
	if err != nil {
		return errors.Wrap(err, "fdr: host")
	}
	log.WithField("drivers", len(st.Loaded)).Debug("host initialized")
	s.hostReady = true
	return nil
}

func record(c *cli.Context) error {
	cfg, err := load(c)
	if err != nil {
		return err
	}
	rc, err := cfg.RecorderConfig()
	if err != nil {
		return err
	}
	if c.IsSet("duration") {
		rc.Duration = c.Duration("duration")
	}
	name := cfg.Bus.Name
	if c.IsSet("bus") {
		name = c.String("bus")
	}
	fast := name == "" && (c.Bool("fast") || !cfg.Simulation.Realtime)

	s := &session{}
	defer s.close()

	var sensors recorder.Sensors
	var clock recorder.Clock
	if name == "" {
		sensors.Bus, clock = simulate(cfg, fast, &rc)
	} else {
		if sensors.Bus, err = s.openBus(name); err != nil {
			return err
		}
		clock = recorder.SystemClock()
	}

	var led rgbled.LED
	if !fast {
		if led, err = s.openLED(cfg); err != nil {
			return err
		}
	}
	if cfg.Radio.Port != "" {
		if sensors.Radio, err = s.openRadio(cfg); err != nil {
			return err
		}
	}

	opts := recorder.Opts{Logger: log.StandardLogger(), Clock: clock}
	if cfg.MQTT.URL != "" {
		o := cfg.GroundlinkOpts()
		p, err := groundlink.Dial(cfg.MQTT.URL, &o)
		if err != nil {
			return err
		}
		s.onClose("groundlink", p.Close)
		log.WithField("publisher", p).Info("ground link connected")
		opts.OnSample = func(smp telemetry.Sample) {
			if err := p.Publish(&smp); err != nil {
				log.WithError(err).Warn("ground link")
			}
		}
	}

	var w io.Writer = os.Stdout
	if out := c.String("output"); out != "" {
		f, err := os.Create(out)
		if err != nil {
			return errors.Wrap(err, "fdr")
		}
		s.onClose(out, f.Close)
		w = f
	}

	r, err := recorder.New(rc, sensors, led, w, &opts)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = r.Run(ctx)
	st := r.Stats()
	log.WithFields(log.Fields{
		"samples":      st.Samples,
		"baro_errors":  st.BaroErrors,
		"imu_errors":   st.IMUErrors,
		"radio_errors": st.RadioErrors,
	}).Info("stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// simulate returns the TWI controller of a simulated flight. A fast flight
// without a duration stops at the landing.
func simulate(cfg *config.Config, fast bool, rc *recorder.Config) (i2c.Bus, recorder.Clock) {
	clock := recorder.SystemClock()
	if fast {
		clock = &recorder.StepClock{}
	}
	rocket := cfg.Rocket()
	sim := flightsim.New(&rocket, clock.Now, nil)
	o := cfg.TWIOpts()
	bus := twi.New(sim.Bus, &o)
	if log.IsLevelEnabled(log.TraceLevel) {
		bus.EnableDebug(log.Tracef)
	}
	if fast && rc.Duration == 0 {
		rc.Duration = rocket.Duration()
	}
	log.WithFields(log.Fields{
		"bus":      bus,
		"speed":    bus.Speed(),
		"apogee":   rocket.Apogee(),
		"duration": rocket.Duration(),
		"fast":     fast,
	}).Info("simulated flight")
	return bus, clock
}

func (s *session) openBus(name string) (i2c.Bus, error) {
	if err := s.initHost(); err != nil {
		return nil, err
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "fdr: bus %q", name)
	}
	s.onClose("bus", b.Close)
	log.WithField("bus", b).Info("host bus")
	return b, nil
}

// openLED returns the PWM LED when its pins are configured, the terminal
// emulation otherwise.
func (s *session) openLED(cfg *config.Config) (rgbled.LED, error) {
	if cfg.LED.Red == "" {
		con := rgbled.NewConsole(&rgbled.ConsoleOpts{W: colorable.NewColorableStderr()})
		s.onClose("led", con.Halt)
		return con, nil
	}
	if err := s.initHost(); err != nil {
		return nil, err
	}
	var pins [3]gpio.PinIO
	for i, n := range []string{cfg.LED.Red, cfg.LED.Green, cfg.LED.Blue} {
		if pins[i] = gpioreg.ByName(n); pins[i] == nil {
			return nil, errors.Errorf("fdr: [led] no pin %q", n)
		}
	}
	o := cfg.LEDOpts()
	d, err := rgbled.New(pins[0], pins[1], pins[2], &o)
	if err != nil {
		return nil, err
	}
	s.onClose("led", d.Halt)
	return d, nil
}

func (s *session) openRadio(cfg *config.Config) (*sx127x.Dev, error) {
	rc, err := cfg.RadioConfig()
	if err != nil {
		return nil, err
	}
	if err := s.initHost(); err != nil {
		return nil, err
	}
	p, err := spireg.Open(cfg.Radio.Port)
	if err != nil {
		return nil, errors.Wrapf(err, "fdr: radio %q", cfg.Radio.Port)
	}
	s.onClose("spi", p.Close)
	d, err := sx127x.New(p, &rc, nil)
	if err != nil {
		return nil, err
	}
	s.onClose("radio", d.Halt)
	log.WithFields(log.Fields{"radio": d, "frequency": rc.Frequency}).Info("downlink")
	return d, nil
}
