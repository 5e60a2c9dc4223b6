// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package flightplot renders a recorded flight as an image.
//
// The upper panel is the altitude and the lower panel the vertical
// acceleration, both against the time since boot.
package flightplot
