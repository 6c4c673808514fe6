// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ffutop/soil-sensor/sensor"
)

// FileStorage keeps the record as a human-readable YAML document. Saves
// write a temporary file and rename it over the previous one.
type FileStorage struct {
	path string
}

// fileRecord is the YAML shape of a Record.
type fileRecord struct {
	UpdatedAt time.Time          `yaml:"updated_at"`
	Values    map[string]float64 `yaml:"values"`
	Fresh     []string           `yaml:"fresh,omitempty"`
}

// NewFileStorage creates a new FileStorage.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{
		path: path,
	}
}

func (s *FileStorage) Load() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var doc fileRecord
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.path, err)
	}

	r := &Record{UpdatedAt: doc.UpdatedAt}
	for i, q := range sensor.Quantities {
		r.Values[i] = doc.Values[q.String()]
	}
	for _, name := range doc.Fresh {
		for i, q := range sensor.Quantities {
			if q.String() == name {
				r.FreshMask |= 1 << i
			}
		}
	}
	return r, nil
}

func (s *FileStorage) Save(r *Record) error {
	doc := fileRecord{
		UpdatedAt: r.UpdatedAt,
		Values:    make(map[string]float64, len(sensor.Quantities)),
	}
	for i, q := range sensor.Quantities {
		doc.Values[q.String()] = r.Values[i]
		if r.Fresh(q) {
			doc.Fresh = append(doc.Fresh, q.String())
		}
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *FileStorage) Close() error { return nil }
