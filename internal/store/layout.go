// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package store

import (
	"encoding/binary"
	"errors"
	"math"
	"time"
)

// Binary layout, little endian:
//
//	magic     : 4 bytes  "SOIL"
//	version   : 1 byte
//	freshMask : 1 byte
//	reserved  : 2 bytes
//	updatedAt : 8 bytes  unix nanoseconds, 0 when empty
//	values    : 7 * 8 bytes  IEEE 754 float64
const (
	layoutVersion = 1

	offsetMagic     = 0
	offsetVersion   = 4
	offsetFreshMask = 5
	offsetUpdatedAt = 8
	offsetValues    = 16

	totalSize = offsetValues + 8*len(Record{}.Values)
)

var layoutMagic = [4]byte{'S', 'O', 'I', 'L'}

var errBadLayout = errors.New("store: unrecognized record layout")

func encodeRecord(dst []byte, r *Record) {
	copy(dst[offsetMagic:], layoutMagic[:])
	dst[offsetVersion] = layoutVersion
	dst[offsetFreshMask] = r.FreshMask
	dst[6], dst[7] = 0, 0
	var nanos int64
	if !r.UpdatedAt.IsZero() {
		nanos = r.UpdatedAt.UnixNano()
	}
	binary.LittleEndian.PutUint64(dst[offsetUpdatedAt:], uint64(nanos))
	for i, v := range r.Values {
		binary.LittleEndian.PutUint64(dst[offsetValues+8*i:], math.Float64bits(v))
	}
}

// decodeRecord returns an empty record for an all-zero (fresh) region.
func decodeRecord(src []byte) (*Record, error) {
	r := &Record{}
	if isZero(src) {
		return r, nil
	}
	if [4]byte(src[offsetMagic:offsetMagic+4]) != layoutMagic || src[offsetVersion] != layoutVersion {
		return nil, errBadLayout
	}
	r.FreshMask = src[offsetFreshMask]
	if nanos := int64(binary.LittleEndian.Uint64(src[offsetUpdatedAt:])); nanos != 0 {
		r.UpdatedAt = time.Unix(0, nanos)
	}
	for i := range r.Values {
		r.Values[i] = math.Float64frombits(binary.LittleEndian.Uint64(src[offsetValues+8*i:]))
	}
	return r, nil
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
