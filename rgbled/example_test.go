// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rgbled_test

import (
	"fmt"

	"github.com/GermanBionicSystems/fdr/rgbled"
)

func ExampleHSV() {
	for _, h := range []uint16{0, 120, 240} {
		c := rgbled.HSV(h, 255, 255)
		fmt.Println(c.R, c.G, c.B)
	}
	// Output:
	// 255 0 0
	// 0 255 0
	// 0 0 255
}
