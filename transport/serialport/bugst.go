// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package serialport

import (
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/ffutop/soil-sensor/internal/config"
)

// bugstDevice is the subset of serial.Port the backend uses.
type bugstDevice interface {
	SetMode(mode *serial.Mode) error
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Drain() error
	ResetInputBuffer() error
	SetReadTimeout(t time.Duration) error
	Close() error
}

// bugstPort uses the native drain and input flush of go.bug.st/serial.
type bugstPort struct {
	device string
	mode   serial.Mode

	mu   sync.Mutex
	port bugstDevice
	open func(name string, mode *serial.Mode) (bugstDevice, error)
}

func newBugstPort(cfg config.SerialConfig) *bugstPort {
	p := &bugstPort{
		device: cfg.Device,
		mode: serial.Mode{
			BaudRate: cfg.BaudRate,
			DataBits: cfg.DataBits,
			Parity:   bugstParity(cfg.Parity),
			StopBits: bugstStopBits(cfg.StopBits),
		},
		open: func(name string, mode *serial.Mode) (bugstDevice, error) {
			return serial.Open(name, mode)
		},
	}
	if p.mode.DataBits == 0 {
		p.mode.DataBits = 8
	}
	return p
}

func bugstParity(parity string) serial.Parity {
	switch parity {
	case "E":
		return serial.EvenParity
	case "O":
		return serial.OddParity
	default:
		return serial.NoParity
	}
}

func bugstStopBits(stopBits int) serial.StopBits {
	if stopBits == 2 {
		return serial.TwoStopBits
	}
	return serial.OneStopBit
}

// Configure applies baudRate, opening the device on first use.
func (p *bugstPort) Configure(baudRate int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.mode.BaudRate = baudRate
	if p.port != nil {
		if err := p.port.SetMode(&p.mode); err != nil {
			return fmt.Errorf("could not set mode on %s: %w", p.device, err)
		}
		return nil
	}
	return p.connect()
}

// connect opens the device if it is not open. Caller must hold the mutex.
func (p *bugstPort) connect() error {
	if p.port != nil {
		return nil
	}
	port, err := p.open(p.device, &p.mode)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", p.device, err)
	}
	p.port = port
	return nil
}

func (p *bugstPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(); err != nil {
		return 0, err
	}
	return p.port.Write(b)
}

func (p *bugstPort) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(); err != nil {
		return err
	}
	return p.port.Drain()
}

func (p *bugstPort) ResetInput() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(); err != nil {
		return err
	}
	return p.port.ResetInputBuffer()
}

// ReadFull shrinks the driver read timeout towards the deadline on every
// read. The driver signals a timeout with (0, nil).
func (p *bugstPort) ReadFull(buf []byte, timeout time.Duration) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(); err != nil {
		return 0, err
	}
	deadline := time.Now().Add(timeout)
	read := func(b []byte) (int, error) {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, nil
		}
		if err := p.port.SetReadTimeout(remaining); err != nil {
			return 0, err
		}
		return p.port.Read(b)
	}
	return readFull(buf, deadline, read, func(error) bool { return false })
}

func (p *bugstPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	return err
}
