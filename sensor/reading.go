// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package sensor

// Reading is the last decoded value of a quantity and whether it has been
// updated since freshness was last consumed.
type Reading struct {
	value float64
	fresh bool
}

func (r Reading) Value() float64 { return r.value }

// Fresh peeks at the flag without clearing it.
func (r Reading) Fresh() bool { return r.fresh }

// Consume returns the freshness flag and clears it. The value is retained.
func (r *Reading) Consume() bool {
	fresh := r.fresh
	r.fresh = false
	return fresh
}

func (r *Reading) set(v float64) {
	r.value = v
	r.fresh = true
}

// decode converts a masked register into engineering units for q.
func decode(q Quantity, raw uint16) float64 {
	if q.Scaled() {
		return float64(raw) / 10.0
	}
	return float64(raw)
}

// Snapshot is a copy of all readings. Taking it does not consume freshness.
type Snapshot struct {
	Temperature Reading
	Humidity    Reading
	EC          Reading
	PH          Reading
	Nitrogen    Reading
	Phosphorus  Reading
	Potassium   Reading
}

// Get returns the reading for q, or the zero Reading for All.
func (s Snapshot) Get(q Quantity) Reading {
	switch q {
	case Temperature:
		return s.Temperature
	case Humidity:
		return s.Humidity
	case EC:
		return s.EC
	case PH:
		return s.PH
	case Nitrogen:
		return s.Nitrogen
	case Phosphorus:
		return s.Phosphorus
	case Potassium:
		return s.Potassium
	}
	return Reading{}
}
