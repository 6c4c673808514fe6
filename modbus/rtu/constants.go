// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

const (
	// DeviceAddress is the fixed slave address of the soil sensor.
	DeviceAddress = 0x01

	FuncCodeReadHoldingRegister = 0x03
)

const (
	CommandSize = 8

	// ResponseOverhead is address + function + byte count + CRC(2).
	ResponseOverhead = 5

	// MaxResponseSize is the receive buffer size, enough for 7 registers.
	MaxResponseSize = 20

	// AllRegisters is the register count of the batch command.
	AllRegisters = 7

	AllResponseSize    = AllRegisters*2 + ResponseOverhead
	SingleResponseSize = 2 + ResponseOverhead

	// RegisterMask drops the vendor status nibble of every register.
	RegisterMask = 0x0FFF
)
