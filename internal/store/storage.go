// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package store persists the last known sensor reading across restarts.
package store

import (
	"fmt"
	"time"

	"github.com/ffutop/soil-sensor/internal/config"
	"github.com/ffutop/soil-sensor/sensor"
)

// Storage defines the interface for persisting the last reading.
type Storage interface {
	// Load returns the stored record, or an empty one if nothing was stored.
	Load() (*Record, error)

	// Save persists r.
	Save(r *Record) error

	Close() error
}

// Record is one stored reading. Values are indexed in sensor.Quantities order.
type Record struct {
	UpdatedAt time.Time
	Values    [len(sensor.Quantities)]float64
	// FreshMask has bit i set when Values[i] was updated by the cycle that
	// produced the record.
	FreshMask uint8
}

// NewRecord builds a record from a poll snapshot and the quantities it updated.
func NewRecord(at time.Time, snap sensor.Snapshot, fresh []sensor.Quantity) *Record {
	r := &Record{UpdatedAt: at}
	for i, q := range sensor.Quantities {
		r.Values[i] = snap.Get(q).Value()
	}
	for _, q := range fresh {
		if i := index(q); i >= 0 {
			r.FreshMask |= 1 << i
		}
	}
	return r
}

// Value returns the stored value for q.
func (r *Record) Value(q sensor.Quantity) float64 {
	if i := index(q); i >= 0 {
		return r.Values[i]
	}
	return 0
}

// Fresh reports whether q was updated by the cycle that produced r.
func (r *Record) Fresh(q sensor.Quantity) bool {
	i := index(q)
	return i >= 0 && r.FreshMask&(1<<i) != 0
}

// Empty reports whether nothing was ever stored.
func (r *Record) Empty() bool {
	return r.UpdatedAt.IsZero()
}

func index(q sensor.Quantity) int {
	for i, each := range sensor.Quantities {
		if each == q {
			return i
		}
	}
	return -1
}

// New creates the storage selected by cfg.
func New(cfg config.StoreConfig) (Storage, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStorage(), nil
	case "file":
		return NewFileStorage(cfg.Path), nil
	case "mmap":
		return NewMmapStorage(cfg.Path), nil
	default:
		return nil, fmt.Errorf("store: unknown type %q", cfg.Type)
	}
}
