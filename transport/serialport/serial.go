// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package serialport provides sensor ports on top of an OS serial device
// or a serial-to-Ethernet converter.
package serialport

import (
	"fmt"
	"io"
	"time"

	"github.com/ffutop/soil-sensor/internal/config"
	"github.com/ffutop/soil-sensor/sensor"
)

const (
	// Default timeout
	serialTimeout     = 20 * time.Millisecond
	serialIdleTimeout = 60 * time.Second

	// discardLimit bounds how many reads ResetInput spends on a chatty line.
	discardLimit = 64
)

// Port is a sensor port backed by a serial device.
type Port interface {
	sensor.Port
	io.Closer
}

// Open creates the port selected by cfg.Driver. The device itself is opened
// lazily by Configure or the first I/O.
func Open(cfg config.SerialConfig) (Port, error) {
	switch cfg.Driver {
	case "", "gridx":
		return newGridxPort(cfg), nil
	case "bugst":
		return newBugstPort(cfg), nil
	case "tcp":
		return newTCPPort(cfg), nil
	default:
		return nil, fmt.Errorf("serialport: unknown driver %q", cfg.Driver)
	}
}

// calculateDelay calculates the time needed to shift chars out of the UART
// plus the 3.5 character inter-frame gap.
func calculateDelay(baudRate, chars int) time.Duration {
	var characterDelay, frameDelay int

	if baudRate <= 0 || baudRate > 19200 {
		characterDelay = 750
		frameDelay = 1750
	} else {
		characterDelay = 15000000 / baudRate
		frameDelay = 35000000 / baudRate
	}
	return time.Duration(characterDelay*chars+frameDelay) * time.Microsecond
}

// readFull fills buf from read until it is full or deadline passes. read
// reports (0, nil) or a timeout error when a poll slice saw no data.
func readFull(buf []byte, deadline time.Time, read func([]byte) (int, error), isTimeout func(error) bool) (int, error) {
	var got int
	for got < len(buf) {
		if !time.Now().Before(deadline) {
			break
		}
		n, err := read(buf[got:])
		got += n
		if err != nil && !isTimeout(err) {
			return got, err
		}
	}
	return got, nil
}
