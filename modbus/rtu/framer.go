// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ffutop/soil-sensor/modbus/crc"
)

var (
	ErrShortResponse  = errors.New("modbus: short response")
	ErrHeaderMismatch = errors.New("modbus: response header mismatch")
	ErrLengthMismatch = errors.New("modbus: response length mismatch")
	ErrCRCMismatch    = errors.New("modbus: response crc mismatch")
	ErrInvalidCommand = errors.New("modbus: invalid command frame")
)

// ShortResponseError reports fewer (or more) bytes than the command implies.
type ShortResponseError struct {
	Got, Want int
}

func (e *ShortResponseError) Error() string {
	return fmt.Sprintf("modbus: received %d bytes, expected %d", e.Got, e.Want)
}

func (e *ShortResponseError) Unwrap() error { return ErrShortResponse }

type HeaderError struct {
	SlaveID, FunctionCode byte
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("modbus: response header %02X %02X does not match %02X %02X",
		e.SlaveID, e.FunctionCode, DeviceAddress, FuncCodeReadHoldingRegister)
}

func (e *HeaderError) Unwrap() error { return ErrHeaderMismatch }

// LengthError reports a byte count field that disagrees with the bytes received.
type LengthError struct {
	Length   byte
	Received int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("modbus: declared length %d implies %d bytes, received %d",
		e.Length, int(e.Length)+ResponseOverhead, e.Received)
}

func (e *LengthError) Unwrap() error { return ErrLengthMismatch }

// ExpectedResponseLength returns the response size for a command frame:
// 19 bytes for the 7-register batch read, 7 bytes otherwise.
func ExpectedResponseLength(cmd []byte) int {
	if len(cmd) > 5 && cmd[5] == AllRegisters {
		return AllResponseSize
	}
	return SingleResponseSize
}

// Validate checks a received response of n bytes against the expected size,
// the fixed header and the self-reported byte count, in that order.
func Validate(resp []byte, n, expected int) error {
	if n != expected || n > len(resp) {
		return &ShortResponseError{Got: n, Want: expected}
	}
	if resp[0] != DeviceAddress || resp[1] != FuncCodeReadHoldingRegister {
		return &HeaderError{SlaveID: resp[0], FunctionCode: resp[1]}
	}
	if int(resp[2])+ResponseOverhead != n {
		return &LengthError{Length: resp[2], Received: n}
	}
	return nil
}

// CheckCRC verifies the trailing checksum of a complete frame.
func CheckCRC(frame []byte) error {
	length := len(frame)
	if length < 4 {
		return &ShortResponseError{Got: length, Want: 4}
	}
	checksum := uint16(frame[length-1])<<8 | uint16(frame[length-2])
	if want := crc.Checksum(frame[:length-2]); checksum != want {
		return fmt.Errorf("%w: got %04X, want %04X", ErrCRCMismatch, checksum, want)
	}
	return nil
}

// Register decodes a big-endian register and masks it to 12 bits.
func Register(hi, lo byte) uint16 {
	return (uint16(hi)<<8 | uint16(lo)) & RegisterMask
}

// RegisterAt decodes the register whose high byte sits at frame[offset].
func RegisterAt(frame []byte, offset int) uint16 {
	return Register(frame[offset], frame[offset+1])
}

// EncodeCommand builds a read-holding-registers frame with its CRC.
func EncodeCommand(start, count uint16) [CommandSize]byte {
	var raw [CommandSize]byte
	raw[0] = DeviceAddress
	raw[1] = FuncCodeReadHoldingRegister
	binary.BigEndian.PutUint16(raw[2:], start)
	binary.BigEndian.PutUint16(raw[4:], count)
	sum := crc.Checksum(raw[:6])
	raw[6] = byte(sum)
	raw[7] = byte(sum >> 8)
	return raw
}

// ParseCommand decodes a command frame into its register range.
func ParseCommand(frame []byte) (start, count uint16, err error) {
	if len(frame) != CommandSize {
		return 0, 0, fmt.Errorf("%w: length %d", ErrInvalidCommand, len(frame))
	}
	if frame[0] != DeviceAddress || frame[1] != FuncCodeReadHoldingRegister {
		return 0, 0, fmt.Errorf("%w: header %02X %02X", ErrInvalidCommand, frame[0], frame[1])
	}
	if err := CheckCRC(frame); err != nil {
		return 0, 0, err
	}
	start = binary.BigEndian.Uint16(frame[2:])
	count = binary.BigEndian.Uint16(frame[4:])
	if count == 0 || count > AllRegisters {
		return 0, 0, fmt.Errorf("%w: register count %d", ErrInvalidCommand, count)
	}
	return start, count, nil
}

// EncodeResponse encodes a read-holding-registers response:
//
//	Slave Address   : 1 byte
//	Function        : 1 byte
//	Byte Count      : 1 byte
//	Data            : 2 bytes per register
//	CRC             : 2 bytes
func EncodeResponse(values []uint16) []byte {
	length := len(values)*2 + ResponseOverhead
	raw := make([]byte, length)
	raw[0] = DeviceAddress
	raw[1] = FuncCodeReadHoldingRegister
	raw[2] = byte(len(values) * 2)
	for i, v := range values {
		binary.BigEndian.PutUint16(raw[3+2*i:], v)
	}
	sum := crc.Checksum(raw[:length-2])
	raw[length-2] = byte(sum)
	raw[length-1] = byte(sum >> 8)
	return raw
}
