// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package metrics exports soil sensor readings and protocol health to
// Prometheus.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ffutop/soil-sensor/internal/poller"
	"github.com/ffutop/soil-sensor/modbus/rtu"
	"github.com/ffutop/soil-sensor/sensor"
)

const namespace = "soil_sensor"

// Metrics holds the collectors of one sensor. It also implements
// sensor.Observer to count validation failures by kind.
type Metrics struct {
	registry *prometheus.Registry

	value        *prometheus.GaugeVec
	lastUpdate   *prometheus.GaugeVec
	reads        *prometheus.CounterVec
	failures     *prometheus.CounterVec
	frames       *prometheus.CounterVec
	readDuration prometheus.Histogram
}

// New registers the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		value: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "value",
			Help:      "Last decoded value per quantity.",
		}, []string{"quantity"}),
		lastUpdate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_update_timestamp_seconds",
			Help:      "Unix time of the last successful update per quantity.",
		}, []string{"quantity"}),
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reads_total",
			Help:      "Read commands issued, by quantity and result.",
		}, []string{"quantity", "result"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Rejected responses, by quantity and reason.",
		}, []string{"quantity", "reason"}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames on the wire, by direction.",
		}, []string{"direction"}),
		readDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "read_duration_seconds",
			Help:      "Duration of the reads of one poll cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
	}
	m.registry.MustRegister(m.value, m.lastUpdate, m.reads, m.failures, m.frames, m.readDuration)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Observe records one poll result.
func (m *Metrics) Observe(res poller.Result) {
	m.readDuration.Observe(res.Duration.Seconds())
	for _, q := range res.Commands {
		result := "ok"
		if _, failed := res.Errors[q]; failed {
			result = "error"
		}
		m.reads.WithLabelValues(q.String(), result).Inc()
	}
	ts := float64(res.At.Unix())
	for _, q := range res.Fresh {
		m.value.WithLabelValues(q.String()).Set(res.Snapshot.Get(q).Value())
		m.lastUpdate.WithLabelValues(q.String()).Set(ts)
	}
}

func (m *Metrics) FrameSent(q sensor.Quantity, frame []byte) {
	m.frames.WithLabelValues("tx").Inc()
}

func (m *Metrics) FrameReceived(q sensor.Quantity, frame []byte) {
	m.frames.WithLabelValues("rx").Inc()
}

func (m *Metrics) ValidationFailed(q sensor.Quantity, err error) {
	m.failures.WithLabelValues(q.String(), Reason(err)).Inc()
}

// Reason maps a validation error onto a low-cardinality label.
func Reason(err error) string {
	switch {
	case errors.Is(err, rtu.ErrShortResponse):
		return "short"
	case errors.Is(err, rtu.ErrHeaderMismatch):
		return "header"
	case errors.Is(err, rtu.ErrLengthMismatch):
		return "length"
	case errors.Is(err, rtu.ErrCRCMismatch):
		return "crc"
	default:
		return "other"
	}
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
