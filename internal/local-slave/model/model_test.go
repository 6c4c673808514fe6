// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package model

import (
	"testing"

	"github.com/ffutop/soil-sensor/sensor"
)

func TestSetValue(t *testing.T) {
	tests := []struct {
		q    sensor.Quantity
		v    float64
		addr int
		want uint16
	}{
		{sensor.Humidity, 20.0, 0, 200},
		{sensor.Temperature, 25.04, 1, 250},
		{sensor.EC, 300, 2, 300},
		{sensor.PH, 6.5, 3, 65},
		{sensor.Nitrogen, 20, 4, 20},
		{sensor.Phosphorus, 30, 5, 30},
		{sensor.Potassium, 40, 6, 40},
		{sensor.Temperature, -5, 1, 0},
		{sensor.EC, 10000, 2, 0x0FFF},
	}
	for _, tt := range tests {
		m := NewDataModel()
		if err := m.SetValue(tt.q, tt.v); err != nil {
			t.Fatalf("SetValue(%s, %v) failed: %v", tt.q, tt.v, err)
		}
		if got := m.HoldingRegisters[tt.addr]; got != tt.want {
			t.Errorf("SetValue(%s, %v) register %d = %d, want %d", tt.q, tt.v, tt.addr, got, tt.want)
		}
	}

	if err := NewDataModel().SetValue(sensor.All, 1); err == nil {
		t.Error("expected error for the batch quantity")
	}
}

func TestReadHoldingRegisters(t *testing.T) {
	m := NewDataModel()
	for i := range m.HoldingRegisters {
		m.HoldingRegisters[i] = uint16(i + 1)
	}

	got, err := m.ReadHoldingRegisters(2, 3)
	if err != nil {
		t.Fatalf("ReadHoldingRegisters failed: %v", err)
	}
	if len(got) != 3 || got[0] != 3 || got[2] != 5 {
		t.Errorf("registers = %v", got)
	}

	for _, r := range [][2]uint16{{0, 0}, {0, 8}, {6, 2}, {7, 1}} {
		if _, err := m.ReadHoldingRegisters(r[0], r[1]); err == nil {
			t.Errorf("ReadHoldingRegisters(%d, %d): expected error", r[0], r[1])
		}
	}
}
