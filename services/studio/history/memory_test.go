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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
)

// TestMemoryStore_Contract runs the Store contract against the map-backed
// implementation.
func TestMemoryStore_Contract(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Now().UTC()
	first := testRecord("strategy_1", "one", base.Add(-time.Hour))
	second := testRecord("strategy_1", "two", base)

	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, second))
	assert.Equal(t, 2, store.Len())

	found, err := store.FindByHash(ctx, "strategy_1", first.CodeHash)
	require.NoError(t, err)
	assert.Equal(t, first.RecordID, found.RecordID)

	_, err = store.FindByHash(ctx, "strategy_1", "0000000000000000000000000000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	got, err := store.Get(ctx, second.RecordID)
	require.NoError(t, err)
	assert.Equal(t, second.CodeHash, got.CodeHash)

	_, err = store.Get(ctx, "rec-missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	records, err := store.ListByInstance(ctx, "strategy_1", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second.RecordID, records[0].RecordID, "newest first")

	limited, err := store.ListByInstance(ctx, "strategy_1", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	require.NoError(t, store.Close())
}

// TestMemoryStore_CopiesRecords verifies mutations on either side of the
// store boundary do not leak through.
func TestMemoryStore_CopiesRecords(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	record := testRecord("strategy_1", "alpha", time.Now().UTC())
	record.ValidationStatus = datatypes.StatusPending
	require.NoError(t, store.Save(ctx, record))

	// Caller-side mutation after save.
	record.ValidationStatus = datatypes.StatusSyntaxError

	stored, err := store.FindByHash(ctx, "strategy_1", record.CodeHash)
	require.NoError(t, err)
	assert.Equal(t, datatypes.StatusPending, stored.ValidationStatus)

	// Mutating the returned copy leaves the stored record alone.
	stored.ValidationStatus = datatypes.StatusSecurityError
	again, err := store.FindByHash(ctx, "strategy_1", record.CodeHash)
	require.NoError(t, err)
	assert.Equal(t, datatypes.StatusPending, again.ValidationStatus)
}

// TestMemoryStore_RejectsUnsafeKeys mirrors the Badger store's key checks.
func TestMemoryStore_RejectsUnsafeKeys(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	record := testRecord("strategy_1", "alpha", time.Now().UTC())
	record.InstanceID = "strategy 1"
	assert.Error(t, store.Save(ctx, record))
	assert.Equal(t, 0, store.Len())
}
