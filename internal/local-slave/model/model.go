// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package model

import (
	"fmt"
	"math"
	"sync"

	"github.com/ffutop/soil-sensor/modbus/rtu"
	"github.com/ffutop/soil-sensor/sensor"
)

// RegisterCount is the size of the sensor's holding register table.
const RegisterCount = rtu.AllRegisters

// DataModel holds the holding registers of a simulated soil sensor.
// Register addresses follow the batch response order.
type DataModel struct {
	mu sync.RWMutex

	HoldingRegisters [RegisterCount]uint16
}

// NewDataModel creates a new register table initialized to zero.
func NewDataModel() *DataModel {
	return &DataModel{}
}

// Address returns the register address holding q.
func Address(q sensor.Quantity) (uint16, error) {
	for i, each := range sensor.Quantities {
		if each == q {
			return uint16(i), nil
		}
	}
	return 0, fmt.Errorf("no register for quantity %s", q)
}

// ReadHoldingRegisters reads quantity registers starting at address.
func (m *DataModel) ReadHoldingRegisters(address, quantity uint16) ([]uint16, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := validateRange(address, quantity); err != nil {
		return nil, err
	}
	result := make([]uint16, quantity)
	copy(result, m.HoldingRegisters[address:])
	return result, nil
}

// WriteSingleRegister writes a raw register value.
func (m *DataModel) WriteSingleRegister(address uint16, value uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := validateRange(address, 1); err != nil {
		return err
	}
	m.HoldingRegisters[address] = value
	return nil
}

// SetValue stores an engineering value the way the device reports it:
// tenths for scaled quantities, clamped to the 12 bits the reader keeps.
func (m *DataModel) SetValue(q sensor.Quantity, v float64) error {
	address, err := Address(q)
	if err != nil {
		return err
	}
	if q.Scaled() {
		v *= 10
	}
	raw := math.Round(v)
	switch {
	case raw < 0:
		raw = 0
	case raw > rtu.RegisterMask:
		raw = rtu.RegisterMask
	}
	return m.WriteSingleRegister(address, uint16(raw))
}

func validateRange(address, quantity uint16) error {
	if quantity == 0 || int(address)+int(quantity) > RegisterCount {
		return fmt.Errorf("illegal data address: start %d, quantity %d", address, quantity)
	}
	return nil
}
