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

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tarm/serial"
	"github.com/urfave/cli"

	"github.com/GermanBionicSystems/fdr/flightplot"
	"github.com/GermanBionicSystems/fdr/groundlink"
	"github.com/GermanBionicSystems/fdr/telemetry"
)

// monitor logs the lines received on the serial port, or read from the
// LOG argument, and relays them to the ground link.
func monitor(c *cli.Context) error {
	cfg, err := load(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var src io.ReadCloser
	if c.NArg() > 0 {
		if src, err = os.Open(c.Args().First()); err != nil {
			return errors.Wrap(err, "fdr")
		}
	} else {
		port, baud := cfg.Serial.Port, cfg.Serial.Baud
		if c.IsSet("port") {
			port = c.String("port")
		}
		if c.IsSet("baud") {
			baud = c.Int("baud")
		}
		if src, err = serial.OpenPort(&serial.Config{Name: port, Baud: baud}); err != nil {
			return errors.Wrapf(err, "fdr: serial port %s", port)
		}
		log.WithFields(log.Fields{"port": port, "baud": baud}).Info("listening")
	}
	// Closing the source unblocks the pending read.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		_ = src.Close()
	}()

	var save io.Writer
	if p := c.String("save"); p != "" {
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrap(err, "fdr")
		}
		defer f.Close()
		save = f
	}

	var pub *groundlink.Publisher
	if cfg.MQTT.URL != "" {
		o := cfg.GroundlinkOpts()
		if pub, err = groundlink.Dial(cfg.MQTT.URL, &o); err != nil {
			return err
		}
		defer pub.Close()
	}

	samples, err := relay(telemetry.NewReader(src), save, pub)
	if ctx.Err() != nil {
		err = nil
	}
	f := log.Fields{"summary": flightplot.Summarize(samples)}
	if pub != nil {
		f["published"] = pub.Published()
	}
	log.WithFields(f).Info("done")
	return err
}

// relay reads r until the end, logging every sample. It returns what it
// read.
func relay(r *telemetry.Reader, save io.Writer, pub *groundlink.Publisher) ([]telemetry.Sample, error) {
	var out []telemetry.Sample
	skipped := 0
	for {
		s, err := r.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, errors.Wrap(err, "fdr: reading telemetry")
		}
		if n := r.Skipped(); n != skipped {
			log.WithField("skipped", n-skipped).Warn("unparsable telemetry")
			skipped = n
		}
		out = append(out, s)
		log.Info(telemetry.Format(&s))
		if save != nil {
			if _, err := io.WriteString(save, telemetry.Format(&s)+"\n"); err != nil {
				return out, errors.Wrap(err, "fdr: saving telemetry")
			}
		}
		if pub != nil {
			if err := pub.Publish(&s); err != nil {
				log.WithError(err).Warn("ground link")
			}
		}
	}
}
