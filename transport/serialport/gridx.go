// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package serialport

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/grid-x/serial"

	"github.com/ffutop/soil-sensor/internal/config"
)

// gridxPort has configuration and I/O controller.
type gridxPort struct {
	// Serial port configuration.
	serial.Config

	IdleTimeout time.Duration

	mu sync.Mutex
	// port is platform-dependent data structure for serial port.
	port         io.ReadWriteCloser
	lastActivity time.Time
	closeTimer   *time.Timer
	pending      int // bytes written since the last Flush
}

func newGridxPort(cfg config.SerialConfig) *gridxPort {
	p := &gridxPort{IdleTimeout: serialIdleTimeout}
	p.Config.Address = cfg.Device
	p.Config.BaudRate = cfg.BaudRate
	p.Config.DataBits = cfg.DataBits
	p.Config.StopBits = cfg.StopBits
	p.Config.Parity = cfg.Parity
	p.Config.Timeout = cfg.Timeout
	if p.Config.Timeout <= 0 {
		p.Config.Timeout = serialTimeout
	}
	if cfg.RS485 {
		p.Config.RS485.Enabled = true
		p.Config.RS485.DelayRtsBeforeSend = cfg.DelayRtsBeforeSend
		p.Config.RS485.DelayRtsAfterSend = cfg.DelayRtsAfterSend
		p.Config.RS485.RtsHighDuringSend = cfg.RtsHighDuringSend
		p.Config.RS485.RtsHighAfterSend = cfg.RtsHighAfterSend
		p.Config.RS485.RxDuringTx = cfg.RxDuringTx
	}
	return p
}

// Configure closes the device if open and reopens it at baudRate.
func (p *gridxPort) Configure(baudRate int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.close(); err != nil {
		return err
	}
	p.Config.BaudRate = baudRate
	return p.connect()
}

// connect connects to the serial port if it is not connected. Caller must hold the mutex.
func (p *gridxPort) connect() error {
	if p.port == nil {
		port, err := serial.Open(&p.Config)
		if err != nil {
			return fmt.Errorf("could not open %s: %w", p.Config.Address, err)
		}
		p.port = port
	}
	p.lastActivity = time.Now()
	p.startCloseTimer()
	return nil
}

func (p *gridxPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(); err != nil {
		return 0, err
	}
	n, err := p.port.Write(b)
	p.pending += n
	return n, err
}

// Flush waits for the bytes written since the last call to leave the wire.
// The driver has no drain call, so the wait is derived from the baud rate.
func (p *gridxPort) Flush() error {
	p.mu.Lock()
	chars := p.pending
	p.pending = 0
	baudRate := p.Config.BaudRate
	p.mu.Unlock()

	if chars > 0 {
		time.Sleep(calculateDelay(baudRate, chars))
	}
	return nil
}

// ResetInput reads and drops bytes until one poll slice passes silently.
func (p *gridxPort) ResetInput() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(); err != nil {
		return err
	}
	var scratch [64]byte
	for i := 0; i < discardLimit; i++ {
		n, err := p.port.Read(scratch[:])
		if err != nil {
			if isGridxTimeout(err) {
				return nil
			}
			return err
		}
		if n == 0 {
			return nil
		}
		p.logf("serialport: discarded stale input", "bytes", n)
	}
	return nil
}

func (p *gridxPort) ReadFull(buf []byte, timeout time.Duration) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(); err != nil {
		return 0, err
	}
	return readFull(buf, time.Now().Add(timeout), p.port.Read, isGridxTimeout)
}

func (p *gridxPort) Close() (err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.close()
}

// close closes the serial port if it is connected. Caller must hold the mutex.
func (p *gridxPort) close() (err error) {
	if p.port != nil {
		err = p.port.Close()
		p.port = nil
	}
	return
}

func (p *gridxPort) logf(msg string, v ...interface{}) {
	slog.Debug(msg, v...)
}

func (p *gridxPort) startCloseTimer() {
	if p.IdleTimeout <= 0 {
		return
	}
	if p.closeTimer == nil {
		p.closeTimer = time.AfterFunc(p.IdleTimeout, p.closeIdle)
	} else {
		p.closeTimer.Reset(p.IdleTimeout)
	}
}

// closeIdle closes the connection if last activity is passed behind IdleTimeout.
func (p *gridxPort) closeIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.IdleTimeout <= 0 {
		return
	}

	if idle := time.Since(p.lastActivity); idle >= p.IdleTimeout {
		p.logf("serialport: closing device due to idle timeout", "idle", idle, "device", p.Config.Address)
		p.close()
	}
}

func isGridxTimeout(err error) bool {
	return errors.Is(err, serial.ErrTimeout)
}
