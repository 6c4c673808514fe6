// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package localslave answers soil sensor commands from an in-memory
// register table. It stands in for the device on a serial line.
package localslave

import (
	"context"
	"encoding/hex"
	"io"
	"log/slog"
	"time"

	"github.com/ffutop/soil-sensor/internal/local-slave/model"
	"github.com/ffutop/soil-sensor/modbus/rtu"
)

const pollTimeout = 200 * time.Millisecond

// Port is the serial side the slave listens on.
type Port interface {
	io.Writer
	Flush() error
	ReadFull(buf []byte, timeout time.Duration) (int, error)
}

// LocalSlave implements the sensor protocol on top of a DataModel.
type LocalSlave struct {
	model  *model.DataModel
	logger *slog.Logger
}

// NewLocalSlave creates a new LocalSlave.
func NewLocalSlave(m *model.DataModel, logger *slog.Logger) *LocalSlave {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalSlave{model: m, logger: logger}
}

// Process parses a command frame and builds the response frame. A request
// the device would ignore yields an error and no response.
func (s *LocalSlave) Process(frame []byte) ([]byte, error) {
	start, count, err := rtu.ParseCommand(frame)
	if err != nil {
		return nil, err
	}
	values, err := s.model.ReadHoldingRegisters(start, count)
	if err != nil {
		return nil, err
	}
	return rtu.EncodeResponse(values), nil
}

// Serve answers requests on port until ctx is done or the port fails.
// Partial frames are dropped once the line goes quiet.
func (s *LocalSlave) Serve(ctx context.Context, port Port) error {
	var buf [rtu.CommandSize]byte
	for ctx.Err() == nil {
		n, err := port.ReadFull(buf[:], pollTimeout)
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		if n < len(buf) {
			s.logger.Debug("dropped partial request", "request", hex.EncodeToString(buf[:n]))
			continue
		}

		s.logger.Debug("recv from master", "request", hex.EncodeToString(buf[:]))
		resp, err := s.Process(buf[:])
		if err != nil {
			s.logger.Warn("ignored request", "request", hex.EncodeToString(buf[:]), "err", err)
			continue
		}
		if _, err := port.Write(resp); err != nil {
			return err
		}
		if err := port.Flush(); err != nil {
			return err
		}
		s.logger.Debug("send to master", "response", hex.EncodeToString(resp))
	}
	return nil
}
