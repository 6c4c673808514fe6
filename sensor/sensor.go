// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package sensor drives an RS-485 soil sensor reporting temperature,
// humidity, EC, pH and NPK values over fixed Modbus RTU command frames.
//
// Every read performs exactly one request/response cycle on the port:
//
//	s := sensor.New(port)
//	if err := s.Initialize(ctx, sensor.DefaultBaudRate); err != nil { ... }
//	if err := s.ReadAll(ctx); err == nil && s.IsTemperatureFresh() {
//		fmt.Println(s.Temperature())
//	}
//
// A Sensor is not safe for concurrent use.
package sensor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ffutop/soil-sensor/modbus/rtu"
)

const (
	DefaultBaudRate    = 4800
	DefaultReadTimeout = time.Second
	DefaultSettleDelay = 100 * time.Millisecond

	// wakeupWrites is how many batch commands prime the device on startup.
	wakeupWrites = 3
)

// Port is the byte channel the sensor is attached to.
type Port interface {
	// Configure (re)opens the channel at the given baud rate.
	Configure(baudRate int) error
	Write(p []byte) (int, error)
	// Flush blocks until all written bytes have left the transmitter.
	Flush() error
	// ResetInput discards any bytes already received.
	ResetInput() error
	// ReadFull reads len(buf) bytes or stops once timeout elapses. A timeout
	// is reported as n < len(buf) with a nil error.
	ReadFull(buf []byte, timeout time.Duration) (n int, err error)
}

// Sensor is the protocol engine. It borrows the port and owns the decoded
// readings and the receive buffer.
type Sensor struct {
	port     Port
	logger   *slog.Logger
	observer Observer

	readTimeout time.Duration
	settleDelay time.Duration
	checkCRC    bool
	sleep       func(ctx context.Context, d time.Duration) error

	buf      [rtu.MaxResponseSize]byte
	readings [len(commands)]Reading
}

type Option func(*Sensor)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sensor) { s.logger = logger }
}

// WithObserver replaces the default logging observer.
func WithObserver(o Observer) Option {
	return func(s *Sensor) { s.observer = o }
}

func WithReadTimeout(d time.Duration) Option {
	return func(s *Sensor) {
		if d > 0 {
			s.readTimeout = d
		}
	}
}

func WithSettleDelay(d time.Duration) Option {
	return func(s *Sensor) {
		if d >= 0 {
			s.settleDelay = d
		}
	}
}

// WithCRCCheck enables verification of the response checksum.
func WithCRCCheck(enabled bool) Option {
	return func(s *Sensor) { s.checkCRC = enabled }
}

// WithSleep overrides how the settle delay is waited out.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Sensor) { s.sleep = sleep }
}

// New creates a Sensor on port. It does not touch the device.
func New(port Port, opts ...Option) *Sensor {
	s := &Sensor{
		port:        port,
		logger:      slog.Default(),
		readTimeout: DefaultReadTimeout,
		settleDelay: DefaultSettleDelay,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.observer == nil {
		s.observer = NewLogObserver(s.logger)
	}
	return s
}

// Initialize configures the port and primes the device by sending the batch
// command three times, then drains whatever the device answered.
func (s *Sensor) Initialize(ctx context.Context, baudRate int) error {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	if err := s.port.Configure(baudRate); err != nil {
		return fmt.Errorf("sensor: configure port at %d baud: %w", baudRate, err)
	}
	frame := Command(All)
	for i := 0; i < wakeupWrites; i++ {
		if err := s.send(All, frame[:]); err != nil {
			return fmt.Errorf("sensor: wake-up write %d: %w", i+1, err)
		}
	}
	if err := s.port.ResetInput(); err != nil {
		return fmt.Errorf("sensor: drain input: %w", err)
	}
	if err := s.sleep(ctx, s.settleDelay); err != nil {
		return err
	}
	s.logger.Info("soil sensor initialized", "baudRate", baudRate)
	return nil
}

// ReadAll reads all seven quantities in one cycle. On success every
// freshness flag is set.
func (s *Sensor) ReadAll(ctx context.Context) error { return s.Read(ctx, All) }

func (s *Sensor) ReadTemperature(ctx context.Context) error { return s.Read(ctx, Temperature) }
func (s *Sensor) ReadHumidity(ctx context.Context) error    { return s.Read(ctx, Humidity) }
func (s *Sensor) ReadEC(ctx context.Context) error          { return s.Read(ctx, EC) }
func (s *Sensor) ReadPH(ctx context.Context) error          { return s.Read(ctx, PH) }
func (s *Sensor) ReadNitrogen(ctx context.Context) error    { return s.Read(ctx, Nitrogen) }
func (s *Sensor) ReadPhosphorus(ctx context.Context) error  { return s.Read(ctx, Phosphorus) }
func (s *Sensor) ReadPotassium(ctx context.Context) error   { return s.Read(ctx, Potassium) }

// Read performs one request/response cycle for q. Readings are only updated
// once the whole response has been validated; there are no retries.
func (s *Sensor) Read(ctx context.Context, q Quantity) error {
	if !q.Valid() {
		return fmt.Errorf("sensor: unknown quantity %d", q)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	defer s.clearBuffer()

	// Stale bytes would shift the frame.
	if err := s.port.ResetInput(); err != nil {
		return fmt.Errorf("sensor: drain input: %w", err)
	}

	frame := Command(q)
	if err := s.send(q, frame[:]); err != nil {
		return err
	}

	expected := rtu.ExpectedResponseLength(frame[:])
	n, err := s.port.ReadFull(s.buf[:expected], s.readTimeout)
	if err != nil {
		return fmt.Errorf("sensor: read %s response: %w", q, err)
	}
	s.observer.FrameReceived(q, s.buf[:n])

	if err := rtu.Validate(s.buf[:], n, expected); err != nil {
		s.observer.ValidationFailed(q, err)
		return err
	}
	if s.checkCRC {
		if err := rtu.CheckCRC(s.buf[:n]); err != nil {
			s.observer.ValidationFailed(q, err)
			return err
		}
	}

	if q == All {
		for i, field := range Quantities {
			s.readings[field].set(decode(field, rtu.RegisterAt(s.buf[:], 3+2*i)))
		}
		return nil
	}
	s.readings[q].set(decode(q, rtu.RegisterAt(s.buf[:], 3)))
	return nil
}

func (s *Sensor) send(q Quantity, frame []byte) error {
	n, err := s.port.Write(frame)
	if err != nil {
		return fmt.Errorf("sensor: write %s command: %w", q, err)
	}
	if n != len(frame) {
		return fmt.Errorf("sensor: write %s command: %w", q, io.ErrShortWrite)
	}
	if err := s.port.Flush(); err != nil {
		return fmt.Errorf("sensor: flush %s command: %w", q, err)
	}
	s.observer.FrameSent(q, frame)
	return nil
}

func (s *Sensor) clearBuffer() {
	s.buf = [rtu.MaxResponseSize]byte{}
}

func (s *Sensor) Temperature() float64 { return s.readings[Temperature].Value() }
func (s *Sensor) Humidity() float64    { return s.readings[Humidity].Value() }
func (s *Sensor) EC() float64          { return s.readings[EC].Value() }
func (s *Sensor) PH() float64          { return s.readings[PH].Value() }
func (s *Sensor) Nitrogen() float64    { return s.readings[Nitrogen].Value() }
func (s *Sensor) Phosphorus() float64  { return s.readings[Phosphorus].Value() }
func (s *Sensor) Potassium() float64   { return s.readings[Potassium].Value() }

// IsFresh reports whether q was updated since the last call, and clears the
// flag. The freshness of All is never set.
func (s *Sensor) IsFresh(q Quantity) bool {
	if q == All || !q.Valid() {
		return false
	}
	return s.readings[q].Consume()
}

func (s *Sensor) IsTemperatureFresh() bool { return s.IsFresh(Temperature) }
func (s *Sensor) IsHumidityFresh() bool    { return s.IsFresh(Humidity) }
func (s *Sensor) IsECFresh() bool          { return s.IsFresh(EC) }
func (s *Sensor) IsPHFresh() bool          { return s.IsFresh(PH) }
func (s *Sensor) IsNitrogenFresh() bool    { return s.IsFresh(Nitrogen) }
func (s *Sensor) IsPhosphorusFresh() bool  { return s.IsFresh(Phosphorus) }
func (s *Sensor) IsPotassiumFresh() bool   { return s.IsFresh(Potassium) }

// Reading returns the current reading for q without consuming freshness.
func (s *Sensor) Reading(q Quantity) Reading {
	if q == All || !q.Valid() {
		return Reading{}
	}
	return s.readings[q]
}

func (s *Sensor) Snapshot() Snapshot {
	return Snapshot{
		Temperature: s.readings[Temperature],
		Humidity:    s.readings[Humidity],
		EC:          s.readings[EC],
		PH:          s.readings[PH],
		Nitrogen:    s.readings[Nitrogen],
		Phosphorus:  s.readings[Phosphorus],
		Potassium:   s.readings[Potassium],
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
