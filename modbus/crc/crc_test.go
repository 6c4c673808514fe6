// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package crc

import (
	"testing"
)

func TestCRC(t *testing.T) {
	var crc CRC
	crc.Reset()
	crc.PushBytes([]byte{0x02, 0x07})

	if crc.Value() != 0x1241 {
		t.Fatalf("crc expected %v, actual %v", 0x1241, crc.Value())
	}
}

func TestChecksum_ReadHoldingRequest(t *testing.T) {
	// 01 03 00 01 00 01 -> D5 CA on the wire
	sum := Checksum([]byte{0x01, 0x03, 0x00, 0x01, 0x00, 0x01})
	if byte(sum) != 0xD5 || byte(sum>>8) != 0xCA {
		t.Fatalf("crc expected D5 CA, actual %02X %02X", byte(sum), byte(sum>>8))
	}
}

func TestCRC_Incremental(t *testing.T) {
	data := []byte{0x01, 0x03, 0x0E, 0x00, 0xC8, 0x00, 0xFA}
	var c CRC
	c.Reset().PushBytes(data[:3]).PushBytes(data[3:])
	if c.Value() != Checksum(data) {
		t.Fatalf("incremental crc %04X != one-shot %04X", c.Value(), Checksum(data))
	}
}
