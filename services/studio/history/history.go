// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history persists code generation records.
//
// The store has one job: remember every completed generation attempt so the
// pipeline can deduplicate identical output (instance id + code hash is the
// dedup identity) and the API can show an instance's generation history.
// The primary implementation is an embedded BadgerDB; a map-backed store
// covers tests and single-shot CLI runs.
package history

import (
	"context"
	"errors"

	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
)

// ErrRecordNotFound is returned when a lookup resolves to nothing.
var ErrRecordNotFound = errors.New("generation record not found")

// Store is the persistence surface the pipeline and the API depend on.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save persists a completed generation record, overwriting any prior
	// record with the same instance id and code hash.
	Save(ctx context.Context, record *datatypes.CodeGenerationRecord) error

	// FindByHash returns the record for an instance's code hash, or an
	// error wrapping ErrRecordNotFound. This is the dedup lookup.
	FindByHash(ctx context.Context, instanceID, codeHash string) (*datatypes.CodeGenerationRecord, error)

	// ListByInstance returns an instance's records newest first. A limit
	// of 0 or less means no limit.
	ListByInstance(ctx context.Context, instanceID string, limit int) ([]*datatypes.CodeGenerationRecord, error)

	// Get returns a record by its id, or an error wrapping
	// ErrRecordNotFound.
	Get(ctx context.Context, recordID string) (*datatypes.CodeGenerationRecord, error)

	// Close releases the store's resources.
	Close() error
}
