// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/AleutianAI/SapheneiaStudio/pkg/validation"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
)

// MemoryStore is a map-backed Store for tests and single-shot CLI runs.
//
// Records are copied by value on Save and on read, so later top-level
// mutations (status transitions) on either side do not leak through.
//
// Thread Safety: safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	byHash map[string]*datatypes.CodeGenerationRecord
	byID   map[string]*datatypes.CodeGenerationRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byHash: make(map[string]*datatypes.CodeGenerationRecord),
		byID:   make(map[string]*datatypes.CodeGenerationRecord),
	}
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, record *datatypes.CodeGenerationRecord) error {
	if err := checkRecordKeys(record); err != nil {
		return err
	}

	stored := *record
	s.mu.Lock()
	s.byHash[hashKey(record.InstanceID, record.CodeHash)] = &stored
	s.byID[record.RecordID] = &stored
	s.mu.Unlock()
	return nil
}

// FindByHash implements Store.
func (s *MemoryStore) FindByHash(_ context.Context, instanceID, codeHash string) (*datatypes.CodeGenerationRecord, error) {
	if err := validation.ValidateIdentifier(instanceID); err != nil {
		return nil, fmt.Errorf("instance id: %w", err)
	}

	s.mu.RLock()
	record, ok := s.byHash[hashKey(instanceID, codeHash)]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("instance %q hash %s: %w", instanceID, codeHash, ErrRecordNotFound)
	}
	out := *record
	return &out, nil
}

// ListByInstance implements Store.
func (s *MemoryStore) ListByInstance(_ context.Context, instanceID string, limit int) ([]*datatypes.CodeGenerationRecord, error) {
	if err := validation.ValidateIdentifier(instanceID); err != nil {
		return nil, fmt.Errorf("instance id: %w", err)
	}

	s.mu.RLock()
	var records []*datatypes.CodeGenerationRecord
	for _, record := range s.byHash {
		if record.InstanceID == instanceID {
			out := *record
			records = append(records, &out)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(records, func(a, b *datatypes.CodeGenerationRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, recordID string) (*datatypes.CodeGenerationRecord, error) {
	if err := validation.ValidateIdentifier(recordID); err != nil {
		return nil, fmt.Errorf("record id: %w", err)
	}

	s.mu.RLock()
	record, ok := s.byID[recordID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("record %q: %w", recordID, ErrRecordNotFound)
	}
	out := *record
	return &out, nil
}

// Close implements Store. Nothing to release.
func (s *MemoryStore) Close() error {
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byHash)
}

func hashKey(instanceID, codeHash string) string {
	return instanceID + "/" + codeHash
}
