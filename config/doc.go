// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads the flight-data recorder configuration.
//
// The configuration is a TOML file; every key has a default so an empty
// file is valid. Keys can be overridden by environment variables prefixed
// with FDR_, for example FDR_BUS_NAME=/dev/i2c-1.
//
//	[log]
//	level = "info"
//
//	[bus]
//	name = ""            # empty selects the simulated flight
//	clock_hz = 16000000
//	speed_hz = 100000
//	timeout_cycles = 10000
//	check_ack = false
//
//	[barometer]
//	address = 0x76
//	oversampling_temperature = 16
//	oversampling_pressure = 16
//	mode = "normal"
//	filter = 16
//	standby = "500us"
//
//	[imu]
//	address = 0x6b
//	accel_range_g = 16
//	gyro_range_dps = 2000
//	rate_hz = 1660
//
//	[recorder]
//	baseline_readings = 100
//	sample_interval = "50ms"
//	led_interval = "2ms"
//	fault_blink = "250ms"
//	duration = "0s"
//
//	[simulation]
//	realtime = true
//	pad = "5s"
//	burn = "1.5s"
//	boost = 60.0
//	descent = 5.0
//	spin = 90.0
//
//	[led]
//	red = ""             # PWM pins, empty selects the terminal emulation
//	green = ""
//	blue = ""
//	common_anode = true
//	frequency_hz = 62500
//
//	[radio]
//	port = ""            # SPI port, empty disables the radio
//	frequency_hz = 433000000
//	bandwidth_hz = 125000
//	spreading_factor = 7
//	coding_rate = 5
//	tx_power = 15
//
//	[serial]
//	port = "/dev/ttyUSB0"
//	baud = 115200
//
//	[mqtt]
//	url = ""             # empty disables publishing
//	qos = 0
//	retained = true
//	timeout = "5s"
//
//	[plot]
//	width = 1200
//	height = 800
package config
