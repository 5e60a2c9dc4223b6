// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lsm6ds3_test

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/fdr/lsm6ds3"
)

func Example() {
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer bus.Close()

	dev, err := lsm6ds3.NewI2C(bus, lsm6ds3.DefaultAddress, nil)
	if err != nil {
		log.Fatal(err)
	}
	s, err := dev.Sense()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(s)
}
