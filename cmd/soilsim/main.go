// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Command soilsim answers soil sensor commands on a serial device. Pair it
// with soilsensord over a virtual pty or a USB RS-485 loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ffutop/soil-sensor/internal/config"
	localslave "github.com/ffutop/soil-sensor/internal/local-slave"
	"github.com/ffutop/soil-sensor/internal/local-slave/model"
	"github.com/ffutop/soil-sensor/sensor"
	"github.com/ffutop/soil-sensor/transport/serialport"
)

func main() {
	configFile := flag.String("config", "", "Path to config file (serial and log sections)")
	device := flag.String("device", "", "Serial device, overrides the config file")
	values := map[sensor.Quantity]*float64{
		sensor.Humidity:    flag.Float64("humidity", 20.0, "Humidity in %RH"),
		sensor.Temperature: flag.Float64("temperature", 25.0, "Temperature in C"),
		sensor.EC:          flag.Float64("ec", 300, "Conductivity in uS/cm"),
		sensor.PH:          flag.Float64("ph", 6.5, "pH"),
		sensor.Nitrogen:    flag.Float64("nitrogen", 20, "Nitrogen in mg/kg"),
		sensor.Phosphorus:  flag.Float64("phosphorus", 30, "Phosphorus in mg/kg"),
		sensor.Potassium:   flag.Float64("potassium", 40, "Potassium in mg/kg"),
	}
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *device != "" {
		cfg.Serial.Device = *device
	}

	level := slog.LevelInfo
	if cfg.Log.Level == "debug" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	m := model.NewDataModel()
	for q, v := range values {
		if err := m.SetValue(q, *v); err != nil {
			slog.Error("Invalid register value", "quantity", q, "err", err)
			os.Exit(1)
		}
	}

	port, err := serialport.Open(cfg.Serial)
	if err != nil {
		slog.Error("Failed to open serial port", "err", err)
		os.Exit(1)
	}
	defer port.Close()
	if err := port.Configure(cfg.Serial.BaudRate); err != nil {
		slog.Error("Failed to configure serial port", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Simulating soil sensor", "device", cfg.Serial.Device, "baud_rate", cfg.Serial.BaudRate)
	if err := localslave.NewLocalSlave(m, slog.Default()).Serve(ctx, port); err != nil {
		slog.Error("Simulator stopped with error", "err", err)
		os.Exit(1)
	}
	slog.Info("Goodbye.")
}
