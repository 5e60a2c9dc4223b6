// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package flightsim_test

import (
	"fmt"
	"time"

	"github.com/GermanBionicSystems/fdr/flightsim"
)

func ExampleRocket() {
	r := flightsim.DefaultRocket
	fmt.Printf("apogee %.1fm, landing after %s\n", r.Apogee(), r.Duration().Round(time.Second))
	fmt.Printf("on the pad %.0fg, after the burn %.0fm\n", r.At(0).Accel[2], r.At(r.Pad+r.Burn).Altitude)
	// Output:
	// apogee 480.5m, landing after 1m52s
	// on the pad 1g, after the burn 68m
}
