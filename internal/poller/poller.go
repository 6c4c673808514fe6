// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ffutop/soil-sensor/internal/config"
	"github.com/ffutop/soil-sensor/sensor"
)

// Config is the minimal runtime config the poller needs.
type Config struct {
	Interval time.Duration
	Mode     string // config.PollModeAll or config.PollModeEach
}

// Poller is a clock-driven reader. It is the only goroutine touching the
// sensor, so freshness is consumed here and handed out in Result.
type Poller struct {
	cfg    Config
	reader Reader
}

// New creates a poller with immutable config.
func New(cfg Config, reader Reader) (*Poller, error) {
	if reader == nil {
		return nil, errors.New("poller: reader required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	switch cfg.Mode {
	case "":
		cfg.Mode = config.PollModeAll
	case config.PollModeAll, config.PollModeEach:
	default:
		return nil, fmt.Errorf("poller: unknown mode %q", cfg.Mode)
	}
	return &Poller{cfg: cfg, reader: reader}, nil
}

// PollOnce performs exactly one poll cycle. In each mode a failed command
// does not stop the remaining ones.
func (p *Poller) PollOnce(ctx context.Context) Result {
	res := Result{At: time.Now()}

	commands := []sensor.Quantity{sensor.All}
	if p.cfg.Mode == config.PollModeEach {
		commands = sensor.Quantities[:]
	}

	for _, q := range commands {
		res.Commands = append(res.Commands, q)
		if err := p.reader.Read(ctx, q); err != nil {
			if res.Errors == nil {
				res.Errors = make(map[sensor.Quantity]error)
			}
			res.Errors[q] = err
		}
		if ctx.Err() != nil {
			break
		}
	}
	res.Duration = time.Since(res.At)

	res.Snapshot = p.reader.Snapshot()
	for _, q := range sensor.Quantities {
		if p.reader.IsFresh(q) {
			res.Fresh = append(res.Fresh, q)
		}
	}

	if len(res.Fresh) == 0 && len(res.Errors) > 0 {
		errs := make([]error, 0, len(res.Errors))
		for _, q := range commands {
			if err, ok := res.Errors[q]; ok {
				errs = append(errs, fmt.Errorf("%s: %w", q, err))
			}
		}
		res.Err = errors.Join(errs...)
	}
	return res
}
