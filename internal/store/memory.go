// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package store

import "sync"

// MemoryStorage keeps the record in memory only (non-persistent).
type MemoryStorage struct {
	mu     sync.Mutex
	record Record
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (ms *MemoryStorage) Load() (*Record, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	r := ms.record
	return &r, nil
}

func (ms *MemoryStorage) Save(r *Record) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.record = *r
	return nil
}

func (ms *MemoryStorage) Close() error { return nil }
