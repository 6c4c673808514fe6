// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package serialport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/ffutop/soil-sensor/internal/config"
)

const (
	tcpTimeout = 10 * time.Second
	// tcpDrainSlice is how long ResetInput waits for stale bytes.
	tcpDrainSlice = 5 * time.Millisecond
)

// tcpPort carries raw RTU frames to a serial-to-Ethernet converter. The
// converter owns the line settings, so the baud rate is only recorded.
type tcpPort struct {
	Address string
	Timeout time.Duration

	mu       sync.Mutex
	conn     net.Conn
	baudRate int
	dial     func(network, address string, timeout time.Duration) (net.Conn, error)
}

func newTCPPort(cfg config.SerialConfig) *tcpPort {
	return &tcpPort{
		Address:  cfg.Device,
		Timeout:  tcpTimeout,
		baudRate: cfg.BaudRate,
		dial:     net.DialTimeout,
	}
}

// Configure records baudRate and dials the converter.
func (p *tcpPort) Configure(baudRate int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.baudRate = baudRate
	return p.connect()
}

// connect ensures there is an active connection. Caller must hold the mutex.
func (p *tcpPort) connect() error {
	if p.conn != nil {
		return nil
	}
	conn, err := p.dial("tcp", p.Address, p.Timeout)
	if err != nil {
		return fmt.Errorf("could not connect to %s: %w", p.Address, err)
	}
	p.conn = conn
	return nil
}

func (p *tcpPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(); err != nil {
		return 0, err
	}
	if err := p.conn.SetWriteDeadline(time.Now().Add(p.Timeout)); err != nil {
		p.close()
		return 0, err
	}
	n, err := p.conn.Write(b)
	if err != nil {
		// Close connection on write failure to force reconnect next time
		p.close()
	}
	return n, err
}

// Flush is a no-op: the converter paces the bytes onto the line.
func (p *tcpPort) Flush() error { return nil }

// ResetInput drops whatever the converter buffered since the last read.
func (p *tcpPort) ResetInput() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(); err != nil {
		return err
	}
	var scratch [64]byte
	for i := 0; i < discardLimit; i++ {
		if err := p.conn.SetReadDeadline(time.Now().Add(tcpDrainSlice)); err != nil {
			return err
		}
		n, err := p.conn.Read(scratch[:])
		if err != nil {
			if isNetTimeout(err) {
				return nil
			}
			p.close()
			return err
		}
		if n == 0 {
			return nil
		}
	}
	return nil
}

func (p *tcpPort) ReadFull(buf []byte, timeout time.Duration) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(); err != nil {
		return 0, err
	}
	deadline := time.Now().Add(timeout)
	if err := p.conn.SetReadDeadline(deadline); err != nil {
		return 0, err
	}
	n, err := readFull(buf, deadline, p.conn.Read, isNetTimeout)
	if err != nil {
		p.close()
	}
	return n, err
}

func (p *tcpPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.close()
	return nil
}

// close closes the connection and resets the state. Caller must hold the mutex.
func (p *tcpPort) close() {
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

func isNetTimeout(err error) bool {
	return errors.Is(err, os.ErrDeadlineExceeded)
}
