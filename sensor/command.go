// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package sensor

import "github.com/ffutop/soil-sensor/modbus/rtu"

// Quantity identifies one readable value, or All for the batch read.
type Quantity uint8

const (
	All Quantity = iota
	Temperature
	Humidity
	EC
	PH
	Nitrogen
	Phosphorus
	Potassium
)

// Quantities lists every measured quantity in batch response order.
var Quantities = [...]Quantity{Humidity, Temperature, EC, PH, Nitrogen, Phosphorus, Potassium}

var quantityNames = [...]string{
	All:         "all",
	Temperature: "temperature",
	Humidity:    "humidity",
	EC:          "ec",
	PH:          "ph",
	Nitrogen:    "nitrogen",
	Phosphorus:  "phosphorus",
	Potassium:   "potassium",
}

func (q Quantity) String() string {
	if int(q) < len(quantityNames) {
		return quantityNames[q]
	}
	return "unknown"
}

// Scaled reports whether the raw register holds tenths of a unit.
func (q Quantity) Scaled() bool {
	switch q {
	case Temperature, Humidity, PH:
		return true
	}
	return false
}

// Unit returns the engineering unit of the decoded value.
func (q Quantity) Unit() string {
	switch q {
	case Temperature:
		return "C"
	case Humidity:
		return "%RH"
	case EC:
		return "uS/cm"
	case PH:
		return "pH"
	case Nitrogen, Phosphorus, Potassium:
		return "mg/kg"
	}
	return ""
}

// Command frames with precomputed CRC. Register addresses: humidity 0x0000,
// temperature 0x0001, then EC, pH, N, P, K at 0x0002..0x0006.
var commands = [...][rtu.CommandSize]byte{
	All:         {0x01, 0x03, 0x00, 0x00, 0x00, 0x07, 0x04, 0x08},
	Temperature: {0x01, 0x03, 0x00, 0x01, 0x00, 0x01, 0xD5, 0xCA},
	Humidity:    {0x01, 0x03, 0x00, 0x00, 0x00, 0x01, 0x84, 0x0A},
	EC:          {0x01, 0x03, 0x00, 0x02, 0x00, 0x01, 0x25, 0xCA},
	PH:          {0x01, 0x03, 0x00, 0x03, 0x00, 0x01, 0x74, 0x0A},
	Nitrogen:    {0x01, 0x03, 0x00, 0x04, 0x00, 0x01, 0xC5, 0xCB},
	Phosphorus:  {0x01, 0x03, 0x00, 0x05, 0x00, 0x01, 0x94, 0x0B},
	Potassium:   {0x01, 0x03, 0x00, 0x06, 0x00, 0x01, 0x64, 0x0B},
}

// Command returns a copy of the command frame for q.
func Command(q Quantity) [rtu.CommandSize]byte {
	return commands[q]
}

// Valid reports whether q names a known command.
func (q Quantity) Valid() bool {
	return int(q) < len(commands)
}
