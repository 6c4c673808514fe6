// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package localslave

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ffutop/soil-sensor/internal/local-slave/model"
	"github.com/ffutop/soil-sensor/modbus/rtu"
	"github.com/ffutop/soil-sensor/sensor"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newSampleSlave(t *testing.T) *LocalSlave {
	t.Helper()
	m := model.NewDataModel()
	values := map[sensor.Quantity]float64{
		sensor.Humidity:    20.0,
		sensor.Temperature: 25.0,
		sensor.EC:          300,
		sensor.PH:          6.5,
		sensor.Nitrogen:    20,
		sensor.Phosphorus:  30,
		sensor.Potassium:   40,
	}
	for q, v := range values {
		if err := m.SetValue(q, v); err != nil {
			t.Fatal(err)
		}
	}
	return NewLocalSlave(m, discard)
}

func TestProcess(t *testing.T) {
	s := newSampleSlave(t)

	tests := []struct {
		name string
		q    sensor.Quantity
		want []byte
	}{
		{"all", sensor.All, []byte{0x01, 0x03, 0x0E, 0x00, 0xC8, 0x00, 0xFA, 0x01, 0x2C, 0x00, 0x41, 0x00, 0x14, 0x00, 0x1E, 0x00, 0x28, 0x4F, 0x9C}},
		{"ec", sensor.EC, []byte{0x01, 0x03, 0x02, 0x01, 0x2C, 0xB8, 0x09}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := sensor.Command(tt.q)
			got, err := s.Process(cmd[:])
			if err != nil {
				t.Fatalf("Process failed: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Process = % X, want % X", got, tt.want)
			}
		})
	}
}

func TestProcess_Rejects(t *testing.T) {
	s := newSampleSlave(t)

	badCRC := sensor.Command(sensor.PH)
	badCRC[7] ^= 0xFF
	outOfRange := rtu.EncodeCommand(5, 3)
	otherSlave := sensor.Command(sensor.PH)
	otherSlave[0] = 0x02

	for name, frame := range map[string][]byte{
		"crc":         badCRC[:],
		"range":       outOfRange[:],
		"address":     otherSlave[:],
		"short frame": {0x01, 0x03, 0x00},
	} {
		if _, err := s.Process(frame); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

// scriptedPort hands out queued requests and records responses.
type scriptedPort struct {
	requests [][]byte
	written  bytes.Buffer
	flushes  int
	cancel   context.CancelFunc
}

func (p *scriptedPort) ReadFull(buf []byte, timeout time.Duration) (int, error) {
	if len(p.requests) == 0 {
		p.cancel()
		return 0, nil
	}
	n := copy(buf, p.requests[0])
	p.requests = p.requests[1:]
	return n, nil
}

func (p *scriptedPort) Write(b []byte) (int, error) { return p.written.Write(b) }

func (p *scriptedPort) Flush() error {
	p.flushes++
	return nil
}

func TestServe(t *testing.T) {
	s := newSampleSlave(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	temp := sensor.Command(sensor.Temperature)
	bad := sensor.Command(sensor.Temperature)
	bad[6] = 0
	port := &scriptedPort{
		requests: [][]byte{{0x01, 0x03}, bad[:], temp[:]},
		cancel:   cancel,
	}
	if err := s.Serve(ctx, port); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}

	want := []byte{0x01, 0x03, 0x02, 0x00, 0xFA}
	if got := port.written.Bytes(); len(got) != 7 || !bytes.Equal(got[:5], want) {
		t.Errorf("written % X", got)
	}
	if port.flushes != 1 {
		t.Errorf("flushes = %d, want 1", port.flushes)
	}
}

func TestServe_ReadError(t *testing.T) {
	s := newSampleSlave(t)
	err := s.Serve(context.Background(), errPort{})
	if err == nil {
		t.Fatal("expected read error")
	}
}

type errPort struct{}

func (errPort) ReadFull([]byte, time.Duration) (int, error) { return 0, errors.New("unplugged") }
func (errPort) Write(b []byte) (int, error)                  { return len(b), nil }
func (errPort) Flush() error                                 { return nil }

// loopback connects a sensor.Sensor directly to a LocalSlave.
type loopback struct {
	slave *LocalSlave
	rx    []byte
}

func (l *loopback) Configure(int) error { return nil }
func (l *loopback) Flush() error        { return nil }

func (l *loopback) ResetInput() error {
	l.rx = nil
	return nil
}

func (l *loopback) Write(b []byte) (int, error) {
	if resp, err := l.slave.Process(b); err == nil {
		l.rx = append(l.rx, resp...)
	}
	return len(b), nil
}

func (l *loopback) ReadFull(buf []byte, timeout time.Duration) (int, error) {
	n := copy(buf, l.rx)
	l.rx = l.rx[n:]
	return n, nil
}

func TestSensorAgainstSlave(t *testing.T) {
	s := sensor.New(&loopback{slave: newSampleSlave(t)},
		sensor.WithLogger(discard),
		sensor.WithCRCCheck(true),
		sensor.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
	ctx := context.Background()
	if err := s.Initialize(ctx, 4800); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := s.ReadAll(ctx); err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if s.Humidity() != 20.0 || s.Temperature() != 25.0 || s.EC() != 300 || s.PH() != 6.5 ||
		s.Nitrogen() != 20 || s.Phosphorus() != 30 || s.Potassium() != 40 {
		t.Errorf("snapshot = %+v", s.Snapshot())
	}
	for _, q := range sensor.Quantities {
		if err := s.Read(ctx, q); err != nil {
			t.Errorf("Read(%s) failed: %v", q, err)
		}
		if !s.IsFresh(q) {
			t.Errorf("%s not fresh after read", q)
		}
	}
}
