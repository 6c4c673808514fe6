// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config defines the global configuration structure
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Serial  SerialConfig  `mapstructure:"serial"`
	Sensor  SensorConfig  `mapstructure:"sensor"`
	Poll    PollConfig    `mapstructure:"poll"`
	Store   StoreConfig   `mapstructure:"store"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LogConfig defines logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`  // Log file path
}

// SerialConfig defines RTU settings
type SerialConfig struct {
	Driver   string        `mapstructure:"driver"` // "gridx", "bugst" or "tcp"
	Device   string        `mapstructure:"device"` // Device path, or host:port for tcp
	BaudRate int           `mapstructure:"baud_rate"`
	DataBits int           `mapstructure:"data_bits"`
	Parity   string        `mapstructure:"parity"`
	StopBits int           `mapstructure:"stop_bits"`
	Timeout  time.Duration `mapstructure:"timeout"` // Poll slice for a single port read

	// RS485 specific
	RS485              bool          `mapstructure:"rs485"`
	DelayRtsBeforeSend time.Duration `mapstructure:"delay_rts_before_send"`
	DelayRtsAfterSend  time.Duration `mapstructure:"delay_rts_after_send"`
	RtsHighDuringSend  bool          `mapstructure:"rts_high_during_send"`
	RtsHighAfterSend   bool          `mapstructure:"rts_high_after_send"`
	RxDuringTx         bool          `mapstructure:"rx_during_tx"`
}

// SensorConfig defines protocol engine settings
type SensorConfig struct {
	ReadTimeout time.Duration `mapstructure:"read_timeout"` // Bound on a whole response
	SettleDelay time.Duration `mapstructure:"settle_delay"`
	CheckCRC    bool          `mapstructure:"check_crc"`
}

// PollConfig defines the acquisition loop
type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Mode     string        `mapstructure:"mode"` // "all" or "each"
}

// StoreConfig defines where the last reading is kept
type StoreConfig struct {
	Type string `mapstructure:"type"` // "memory", "file", "mmap"
	Path string `mapstructure:"path"` // File path for "file/mmap" type
}

// MetricsConfig defines the Prometheus endpoint, empty address disables it
type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

const (
	PollModeAll  = "all"
	PollModeEach = "each"
)

// LoadConfig loads configuration from file. Without an explicit path a
// missing file is not an error and defaults apply.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/soilsensor/")
		v.AddConfigPath("$HOME/.soilsensor")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	fixupSerial(&config.Serial)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("serial.driver", "gridx")
	v.SetDefault("serial.device", "/dev/ttyUSB0")
	v.SetDefault("serial.baud_rate", 4800)
	v.SetDefault("serial.data_bits", 8)
	v.SetDefault("serial.parity", "N")
	v.SetDefault("serial.stop_bits", 1)
	v.SetDefault("serial.timeout", 20*time.Millisecond)
	v.SetDefault("sensor.read_timeout", time.Second)
	v.SetDefault("sensor.settle_delay", 100*time.Millisecond)
	v.SetDefault("poll.interval", 10*time.Second)
	v.SetDefault("poll.mode", PollModeAll)
	v.SetDefault("store.type", "memory")
}

func fixupSerial(s *SerialConfig) {
	s.Driver = strings.ToLower(s.Driver)
	s.Parity = strings.ToUpper(s.Parity)
	if s.BaudRate == 0 {
		s.BaudRate = 4800
	}
	if s.Timeout == 0 {
		s.Timeout = 20 * time.Millisecond
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Serial.Driver {
	case "gridx", "bugst", "tcp":
	default:
		return fmt.Errorf("config: unknown serial driver %q", c.Serial.Driver)
	}
	switch c.Serial.Parity {
	case "N", "E", "O":
	default:
		return fmt.Errorf("config: invalid parity %q", c.Serial.Parity)
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("config: poll interval must be > 0")
	}
	switch c.Poll.Mode {
	case PollModeAll, PollModeEach:
	default:
		return fmt.Errorf("config: unknown poll mode %q", c.Poll.Mode)
	}
	switch c.Store.Type {
	case "memory":
	case "file", "mmap":
		if c.Store.Path == "" {
			return fmt.Errorf("config: store type %q requires a path", c.Store.Type)
		}
	default:
		return fmt.Errorf("config: unknown store type %q", c.Store.Type)
	}
	return nil
}
