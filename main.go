// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ffutop/soil-sensor/internal/config"
	"github.com/ffutop/soil-sensor/internal/metrics"
	"github.com/ffutop/soil-sensor/internal/poller"
	"github.com/ffutop/soil-sensor/internal/store"
	"github.com/ffutop/soil-sensor/sensor"
	"github.com/ffutop/soil-sensor/transport/serialport"
)

func main() {
	configFile := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load Configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	slog.Info("Starting soil sensor daemon...", "device", cfg.Serial.Device, "driver", cfg.Serial.Driver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cfg, cancel); err != nil {
		slog.Error("Soil sensor daemon stopped with error", "err", err)
		os.Exit(1)
	}
	slog.Info("Goodbye.")
}

// run owns every resource of the daemon and returns once ctx is done or a
// signal arrives.
func run(ctx context.Context, cfg *config.Config, cancel context.CancelFunc) error {
	port, err := serialport.Open(cfg.Serial)
	if err != nil {
		return err
	}
	defer port.Close()

	storage, err := store.New(cfg.Store)
	if err != nil {
		return err
	}
	defer storage.Close()

	if prev, err := storage.Load(); err != nil {
		slog.Warn("Could not restore last reading", "store", cfg.Store.Type, "err", err)
	} else if !prev.Empty() {
		slog.Info("Restored last reading", recordAttrs(prev)...)
	}

	m := metrics.New()
	s := sensor.New(port,
		sensor.WithObserver(sensor.Observers{sensor.NewLogObserver(slog.Default()), m}),
		sensor.WithReadTimeout(cfg.Sensor.ReadTimeout),
		sensor.WithSettleDelay(cfg.Sensor.SettleDelay),
		sensor.WithCRCCheck(cfg.Sensor.CheckCRC),
	)
	if err := s.Initialize(ctx, cfg.Serial.BaudRate); err != nil {
		return fmt.Errorf("initialize sensor: %w", err)
	}

	p, err := poller.New(poller.Config{Interval: cfg.Poll.Interval, Mode: cfg.Poll.Mode}, s)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	if cfg.Metrics.Address != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Serve(ctx, cfg.Metrics.Address); err != nil {
				slog.Error("Metrics endpoint stopped with error", "err", err)
			}
		}()
	}

	results := make(chan poller.Result)
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.Run(ctx, results)
	}()
	go func() {
		defer wg.Done()
		consume(ctx, results, storage, m)
	}()

	// Wait for Signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	slog.Info("Shutting down...")
	cancel()
	wg.Wait()
	return nil
}

// consume persists and exports every poll result.
func consume(ctx context.Context, results <-chan poller.Result, storage store.Storage, m *metrics.Metrics) {
	for {
		var res poller.Result
		select {
		case <-ctx.Done():
			return
		case res = <-results:
		}

		m.Observe(res)
		if res.Err != nil {
			slog.Warn("Poll cycle failed", "duration", res.Duration, "err", res.Err)
			continue
		}
		for q, err := range res.Errors {
			slog.Warn("Read failed", "quantity", q, "err", err)
		}

		rec := store.NewRecord(res.At, res.Snapshot, res.Fresh)
		if err := storage.Save(rec); err != nil {
			slog.Error("Could not save reading", "err", err)
		}
		slog.Info("Soil reading", recordAttrs(rec)...)
	}
}

func recordAttrs(r *store.Record) []any {
	attrs := []any{"at", r.UpdatedAt.Format("2006-01-02T15:04:05Z07:00")}
	var fresh []string
	for _, q := range sensor.Quantities {
		attrs = append(attrs, q.String(), r.Value(q))
		if r.Fresh(q) {
			fresh = append(fresh, q.String())
		}
	}
	return append(attrs, "fresh", fresh)
}

func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.File != "" && cfg.File != "-" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("Failed to open log file, falling back to stdout: %v\n", err)
			handler = slog.NewTextHandler(os.Stdout, opts)
		} else {
			handler = slog.NewTextHandler(f, opts)
		}
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
