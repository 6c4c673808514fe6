// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package poller

import (
	"context"
	"time"

	"github.com/ffutop/soil-sensor/sensor"
)

// Reader is the part of sensor.Sensor the poller drives.
type Reader interface {
	Read(ctx context.Context, q sensor.Quantity) error
	IsFresh(q sensor.Quantity) bool
	Snapshot() sensor.Snapshot
}

// Result is produced by one poll cycle.
type Result struct {
	At       time.Time
	Duration time.Duration

	// Snapshot is taken before freshness is consumed.
	Snapshot sensor.Snapshot
	// Commands lists the commands issued, in order.
	Commands []sensor.Quantity
	// Fresh lists the quantities updated by this cycle.
	Fresh []sensor.Quantity

	// Errors holds per-command failures, keyed by the command quantity.
	Errors map[sensor.Quantity]error
	Err    error // non-nil when nothing was updated
}

// OK reports whether every command of the cycle succeeded.
func (r Result) OK() bool {
	return r.Err == nil && len(r.Errors) == 0
}
