// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.
package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ffutop/soil-sensor/internal/config"
	"github.com/ffutop/soil-sensor/sensor"
)

func sampleRecord() *Record {
	r := &Record{UpdatedAt: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}
	r.Values = [7]float64{20.0, 25.0, 300, 6.5, 20, 30, 40}
	r.FreshMask = 1<<0 | 1<<3
	return r
}

func assertRecord(t *testing.T, got, want *Record) {
	t.Helper()
	if !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, want.UpdatedAt)
	}
	if got.Values != want.Values {
		t.Errorf("Values = %v, want %v", got.Values, want.Values)
	}
	if got.FreshMask != want.FreshMask {
		t.Errorf("FreshMask = %08b, want %08b", got.FreshMask, want.FreshMask)
	}
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		cfg     config.StoreConfig
		wantErr bool
	}{
		{config.StoreConfig{Type: "memory"}, false},
		{config.StoreConfig{Type: "file", Path: filepath.Join(dir, "a.yaml")}, false},
		{config.StoreConfig{Type: "mmap", Path: filepath.Join(dir, "a.bin")}, false},
		{config.StoreConfig{Type: "sql"}, true},
	}
	for _, tt := range tests {
		s, err := New(tt.cfg)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%+v) error = %v", tt.cfg, err)
		}
		if s != nil {
			s.Close()
		}
	}
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	backends := map[string]func() Storage{
		"memory": func() Storage { return NewMemoryStorage() },
		"file":   func() Storage { return NewFileStorage(filepath.Join(dir, "last.yaml")) },
		"mmap":   func() Storage { return NewMmapStorage(filepath.Join(dir, "last.bin")) },
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			s := open()
			defer s.Close()

			empty, err := s.Load()
			if err != nil {
				t.Fatalf("Load on empty storage failed: %v", err)
			}
			if !empty.Empty() {
				t.Fatalf("expected empty record, got %+v", empty)
			}

			want := sampleRecord()
			if err := s.Save(want); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			got, err := s.Load()
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			assertRecord(t, got, want)
		})
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	for name, path := range map[string]string{"file": "last.yaml", "mmap": "last.bin"} {
		t.Run(name, func(t *testing.T) {
			cfg := config.StoreConfig{Type: name, Path: filepath.Join(dir, path)}
			s, _ := New(cfg)
			if err := s.Save(sampleRecord()); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			if err := s.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}

			reopened, _ := New(cfg)
			defer reopened.Close()
			got, err := reopened.Load()
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			assertRecord(t, got, sampleRecord())
		})
	}
}

func TestMmapRejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foreign.bin")
	if err := os.WriteFile(path, []byte("not a soil record, definitely not"), 0644); err != nil {
		t.Fatal(err)
	}
	s := NewMmapStorage(path)
	defer s.Close()
	if _, err := s.Load(); err == nil {
		t.Fatal("expected layout error")
	}
}

func TestFileStorageFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last.yaml")
	s := NewFileStorage(path)
	if err := s.Save(sampleRecord()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"updated_at:", "potassium: 40", "ph: 6.5", "- humidity", "- ph"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("document missing %q:\n%s", want, data)
		}
	}
}

func TestNewRecord(t *testing.T) {
	r := NewRecord(time.Unix(10, 0), sensor.Snapshot{}, []sensor.Quantity{sensor.Temperature, sensor.Potassium})
	if !r.Fresh(sensor.Temperature) || !r.Fresh(sensor.Potassium) || r.Fresh(sensor.EC) {
		t.Errorf("FreshMask = %08b", r.FreshMask)
	}
	if r.Fresh(sensor.All) || r.Value(sensor.All) != 0 {
		t.Error("All has no slot in a record")
	}
}
