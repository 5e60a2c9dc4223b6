// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sx127x drives a Semtech SX1276/77/78/79 LoRa transceiver over SPI.
//
// The radio is used in blocking mode: Transmit loads the FIFO, switches to
// transmit and polls the TxDone flag; Receive is called periodically and
// returns a packet when RxDone is set. Between transmissions the radio
// listens in continuous receive mode.
//
// # Datasheet
//
// https://www.semtech.com/products/wireless-rf/lora-connect/sx1276
package sx127x
