// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// fdr runs the flight data recorder and its ground tools.
//
// Without a [bus] name in the configuration, record flies the simulated
// rocket of the flightsim package through the TWI driver.
package main

import (
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/GermanBionicSystems/fdr/config"
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "fdr"
	app.Usage = "flight data recorder"
	app.Version = "1.0.0"
	app.Copyright = "The Periph Authors"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "load configuration from `FILE`",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "override [log] level",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "record",
			Usage: "measure the ground level and record telemetry",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "bus",
					Usage: "override [bus] name, empty flies the simulation",
				},
				cli.DurationFlag{
					Name:  "duration",
					Usage: "stop recording after `DURATION`",
				},
				cli.BoolFlag{
					Name:  "fast",
					Usage: "replay the simulated flight without waiting",
				},
				cli.StringFlag{
					Name:  "output, o",
					Usage: "write telemetry lines to `FILE` instead of stdout",
				},
			},
			Action: record,
		},
		{
			Name:      "monitor",
			Usage:     "read telemetry lines from the serial port",
			ArgsUsage: "[LOG]",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "port, p",
					Usage: "override [serial] port",
				},
				cli.IntFlag{
					Name:  "baud",
					Usage: "override [serial] baud",
				},
				cli.StringFlag{
					Name:  "save",
					Usage: "append the received lines to `FILE`",
				},
			},
			Action: monitor,
		},
		{
			Name:      "plot",
			Usage:     "render a telemetry log to PNG",
			ArgsUsage: "LOG",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "output, o",
					Value: "flight.png",
					Usage: "write the image to `FILE`",
				},
				cli.StringFlag{
					Name:  "title",
					Usage: "title of the chart",
				},
			},
			Action: plot,
		},
	}
	return app
}

// load reads the configuration named by the global flags and applies its
// log level.
func load(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return nil, err
	}
	if l := c.GlobalString("log-level"); l != "" {
		cfg.Log.Level = l
	}
	lvl, err := cfg.LogLevel()
	if err != nil {
		return nil, errors.Wrap(err, "fdr")
	}
	log.SetLevel(lvl)
	return cfg, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
