// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
serial:
  driver: BUGST
  device: /dev/ttyS1
  baud_rate: 9600
  parity: e
  rs485: true
sensor:
  read_timeout: 2s
  check_crc: true
poll:
  interval: 30s
  mode: each
store:
  type: mmap
  path: /var/lib/soilsensor/last.bin
metrics:
  address: ":9105"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
	if cfg.Serial.Driver != "bugst" || cfg.Serial.Device != "/dev/ttyS1" || cfg.Serial.BaudRate != 9600 {
		t.Errorf("serial = %+v", cfg.Serial)
	}
	if cfg.Serial.Parity != "E" {
		t.Errorf("parity = %q, want E", cfg.Serial.Parity)
	}
	if !cfg.Serial.RS485 {
		t.Error("rs485 not set")
	}
	if cfg.Serial.DataBits != 8 || cfg.Serial.StopBits != 1 {
		t.Errorf("serial defaults not applied: %+v", cfg.Serial)
	}
	if cfg.Sensor.ReadTimeout != 2*time.Second || !cfg.Sensor.CheckCRC {
		t.Errorf("sensor = %+v", cfg.Sensor)
	}
	if cfg.Sensor.SettleDelay != 100*time.Millisecond {
		t.Errorf("settle delay = %v", cfg.Sensor.SettleDelay)
	}
	if cfg.Poll.Interval != 30*time.Second || cfg.Poll.Mode != PollModeEach {
		t.Errorf("poll = %+v", cfg.Poll)
	}
	if cfg.Store.Type != "mmap" || cfg.Metrics.Address != ":9105" {
		t.Errorf("store = %+v, metrics = %+v", cfg.Store, cfg.Metrics)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Serial.BaudRate != 4800 || cfg.Serial.Driver != "gridx" || cfg.Serial.Parity != "N" {
		t.Errorf("serial defaults = %+v", cfg.Serial)
	}
	if cfg.Serial.Timeout != 20*time.Millisecond {
		t.Errorf("serial timeout = %v", cfg.Serial.Timeout)
	}
	if cfg.Sensor.ReadTimeout != time.Second {
		t.Errorf("read timeout = %v", cfg.Sensor.ReadTimeout)
	}
	if cfg.Poll.Mode != PollModeAll || cfg.Store.Type != "memory" {
		t.Errorf("poll = %+v, store = %+v", cfg.Poll, cfg.Store)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Serial: SerialConfig{Driver: "gridx", Parity: "N"},
			Poll:   PollConfig{Interval: time.Second, Mode: PollModeAll},
			Store:  StoreConfig{Type: "memory"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"Valid", func(c *Config) {}, false},
		{"UnknownDriver", func(c *Config) { c.Serial.Driver = "tarm" }, true},
		{"BadParity", func(c *Config) { c.Serial.Parity = "X" }, true},
		{"ZeroInterval", func(c *Config) { c.Poll.Interval = 0 }, true},
		{"UnknownMode", func(c *Config) { c.Poll.Mode = "some" }, true},
		{"FileWithoutPath", func(c *Config) { c.Store.Type = "file" }, true},
		{"FileWithPath", func(c *Config) { c.Store.Type = "file"; c.Store.Path = "/tmp/x.yaml" }, false},
		{"UnknownStore", func(c *Config) { c.Store.Type = "sql" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
