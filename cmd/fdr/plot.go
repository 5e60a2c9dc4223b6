// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/GermanBionicSystems/fdr/flightplot"
	"github.com/GermanBionicSystems/fdr/telemetry"
)

// plot renders the LOG argument, "-" being stdin.
func plot(c *cli.Context) error {
	cfg, err := load(c)
	if err != nil {
		return err
	}
	if c.NArg() != 1 {
		return cli.NewExitError("fdr: plot takes one telemetry log", 2)
	}
	var in io.Reader = os.Stdin
	if name := c.Args().First(); name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return errors.Wrap(err, "fdr")
		}
		defer f.Close()
		in = f
	}
	r := telemetry.NewReader(in)
	samples, err := r.ReadAll()
	if err != nil {
		return errors.Wrap(err, "fdr: reading telemetry")
	}

	opts := flightplot.DefaultOpts
	opts.Width, opts.Height = cfg.Plot.Width, cfg.Plot.Height
	if t := c.String("title"); t != "" {
		opts.Title = t
	}
	out := c.String("output")
	f, err := os.Create(out)
	if err != nil {
		return errors.Wrap(err, "fdr")
	}
	if err := flightplot.WritePNG(f, samples, &opts); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "fdr")
	}
	log.WithFields(log.Fields{
		"summary": flightplot.Summarize(samples),
		"skipped": r.Skipped(),
		"output":  out,
	}).Info("plotted")
	return nil
}
