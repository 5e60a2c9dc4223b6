// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rgbled

import "image/color"

// HSV returns the colour of hue h in degrees, saturation s and value v.
//
// h is taken modulo 360. The conversion uses integer math and matches the
// firmware bit for bit.
func HSV(h uint16, s, v uint8) color.NRGBA {
	h %= 360
	region := h / 60
	rem := uint32(h%60) * 255 / 60
	vv, ss := uint32(v), uint32(s)

	p := byte(vv * (255 - ss) / 255)
	q := byte(vv * (255 - ss*rem/255) / 255)
	t := byte(vv * (255 - ss*(255-rem)/255) / 255)

	switch region {
	case 0:
		return color.NRGBA{v, t, p, 255}
	case 1:
		return color.NRGBA{q, v, p, 255}
	case 2:
		return color.NRGBA{p, v, t, 255}
	case 3:
		return color.NRGBA{p, q, v, 255}
	case 4:
		return color.NRGBA{t, p, v, 255}
	default:
		return color.NRGBA{v, p, q, 255}
	}
}
