// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package sensor

import (
	"encoding/hex"
	"log/slog"
)

// Observer is notified at the protocol hook points. Frames passed to it are
// only valid for the duration of the call.
type Observer interface {
	FrameSent(q Quantity, frame []byte)
	FrameReceived(q Quantity, frame []byte)
	ValidationFailed(q Quantity, err error)
}

type logObserver struct {
	logger *slog.Logger
}

// NewLogObserver returns an Observer writing frames at debug level and
// validation failures at warn level.
func NewLogObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &logObserver{logger: logger}
}

func (o *logObserver) FrameSent(q Quantity, frame []byte) {
	o.logger.Debug("send to soil sensor", "quantity", q, "request", hex.EncodeToString(frame))
}

func (o *logObserver) FrameReceived(q Quantity, frame []byte) {
	o.logger.Debug("recv from soil sensor", "quantity", q, "response", hex.EncodeToString(frame), "length", len(frame))
}

func (o *logObserver) ValidationFailed(q Quantity, err error) {
	o.logger.Warn("invalid soil sensor response", "quantity", q, "err", err)
}

// Observers fans each hook out to every member in order.
type Observers []Observer

func (obs Observers) FrameSent(q Quantity, frame []byte) {
	for _, o := range obs {
		o.FrameSent(q, frame)
	}
}

func (obs Observers) FrameReceived(q Quantity, frame []byte) {
	for _, o := range obs {
		o.FrameReceived(q, frame)
	}
}

func (obs Observers) ValidationFailed(q Quantity, err error) {
	for _, o := range obs {
		o.ValidationFailed(q, err)
	}
}
