// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for the history handlers

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/history"
)

func recordsRouter(store *history.MemoryStore) *gin.Engine {
	router := gin.New()
	router.GET("/v1/strategies/:instance_id/records", HandleListRecords(store))
	router.GET("/v1/records/:record_id", HandleGetRecord(store))
	return router
}

// seedRecords stores n records for one instance with ascending creation
// times, so index n-1 is the newest.
func seedRecords(t *testing.T, store *history.MemoryStore, instanceID string, n int) {
	t.Helper()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		err := store.Save(context.Background(), &datatypes.CodeGenerationRecord{
			RecordID:         fmt.Sprintf("rec-%04d", i),
			InstanceID:       instanceID,
			GeneratedCode:    "pass\n",
			CodeHash:         fmt.Sprintf("%064x", i),
			ValidationStatus: datatypes.StatusValid,
			CreatedAt:        base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
}

type listResponse struct {
	InstanceID string                            `json:"instance_id"`
	Records    []*datatypes.CodeGenerationRecord `json:"records"`
	Count      int                               `json:"count"`
}

// =============================================================================
// HandleListRecords Tests
// =============================================================================

func TestHandleListRecords_NewestFirst(t *testing.T) {
	store := history.NewMemoryStore()
	seedRecords(t, store, "momentum-1", 3)

	w := doJSON(t, recordsRouter(store), "GET", "/v1/strategies/momentum-1/records", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "momentum-1", resp.InstanceID)
	require.Equal(t, 3, resp.Count)
	assert.Equal(t, "rec-0002", resp.Records[0].RecordID)
	assert.Equal(t, "rec-0000", resp.Records[2].RecordID)
}

func TestHandleListRecords_LimitParam(t *testing.T) {
	store := history.NewMemoryStore()
	seedRecords(t, store, "momentum-1", 5)

	w := doJSON(t, recordsRouter(store), "GET", "/v1/strategies/momentum-1/records?limit=2", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "rec-0004", resp.Records[0].RecordID)
}

func TestHandleListRecords_DefaultLimit(t *testing.T) {
	store := history.NewMemoryStore()
	seedRecords(t, store, "momentum-1", datatypes.DefaultHistoryLimit+10)

	w := doJSON(t, recordsRouter(store), "GET", "/v1/strategies/momentum-1/records", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, datatypes.DefaultHistoryLimit, resp.Count)
}

func TestHandleListRecords_CapsLimit(t *testing.T) {
	store := history.NewMemoryStore()
	seedRecords(t, store, "momentum-1", datatypes.MaxHistoryLimit+5)

	w := doJSON(t, recordsRouter(store), "GET", "/v1/strategies/momentum-1/records?limit=100000", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, datatypes.MaxHistoryLimit, resp.Count)
}

func TestHandleListRecords_BadLimit(t *testing.T) {
	store := history.NewMemoryStore()
	seedRecords(t, store, "momentum-1", 1)
	router := recordsRouter(store)

	for _, limit := range []string{"abc", "0", "-1", "1.5"} {
		w := doJSON(t, router, "GET", "/v1/strategies/momentum-1/records?limit="+limit, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "limit=%s", limit)
	}
}

func TestHandleListRecords_EmptyHistory(t *testing.T) {
	store := history.NewMemoryStore()

	w := doJSON(t, recordsRouter(store), "GET", "/v1/strategies/momentum-1/records", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)
}

func TestHandleListRecords_InvalidInstanceID(t *testing.T) {
	store := history.NewMemoryStore()

	w := doJSON(t, recordsRouter(store), "GET", "/v1/strategies/-bad/records", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid instance id")
}

// =============================================================================
// HandleGetRecord Tests
// =============================================================================

func TestHandleGetRecord_Found(t *testing.T) {
	store := history.NewMemoryStore()
	seedRecords(t, store, "momentum-1", 2)

	w := doJSON(t, recordsRouter(store), "GET", "/v1/records/rec-0001", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var record datatypes.CodeGenerationRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	assert.Equal(t, "rec-0001", record.RecordID)
	assert.Equal(t, "momentum-1", record.InstanceID)
	assert.Equal(t, "pass\n", record.GeneratedCode)
}

func TestHandleGetRecord_NotFound(t *testing.T) {
	store := history.NewMemoryStore()

	w := doJSON(t, recordsRouter(store), "GET", "/v1/records/rec-ghost", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "record not found")
}

func TestHandleGetRecord_InvalidID(t *testing.T) {
	store := history.NewMemoryStore()

	w := doJSON(t, recordsRouter(store), "GET", "/v1/records/-bad", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid record id")
}
