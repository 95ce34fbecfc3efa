// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for the generation handler

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/SapheneiaStudio/pkg/extensions"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/history"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/middleware"
)

func generateRouter(t *testing.T, opts extensions.ServiceOptions) (*gin.Engine, *history.MemoryStore) {
	t.Helper()
	pipe, store := newTestPipeline(t)
	router := gin.New()
	router.POST("/v1/strategies/:instance_id/generate",
		middleware.AuthMiddleware(opts.AuthProvider),
		HandleGenerate(pipe, opts))
	return router, store
}

func generateBody() datatypes.GenerateRequest {
	return datatypes.GenerateRequest{
		Flow:       testFlow(),
		Parameters: testParameters(),
	}
}

// =============================================================================
// HandleGenerate Tests
// =============================================================================

func TestHandleGenerate_ProducesValidRecord(t *testing.T) {
	router, store := generateRouter(t, extensions.DefaultOptions())

	w := doJSON(t, router, "POST", "/v1/strategies/momentum-1/generate", generateBody())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Record)
	require.NotNil(t, resp.Report)
	assert.Equal(t, datatypes.StatusValid, resp.Record.ValidationStatus)
	assert.Equal(t, "momentum-1", resp.Record.InstanceID)
	assert.NotEmpty(t, resp.Record.GeneratedCode)
	assert.Len(t, resp.Record.CodeHash, 64)
	assert.True(t, resp.Report.Valid)
	assert.False(t, resp.Deduplicated)
	assert.Equal(t, 1, store.Len())
}

func TestHandleGenerate_DeduplicatesRepeat(t *testing.T) {
	router, store := generateRouter(t, extensions.DefaultOptions())

	first := doJSON(t, router, "POST", "/v1/strategies/momentum-1/generate", generateBody())
	require.Equal(t, http.StatusOK, first.Code)
	var firstResp GenerateResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &firstResp))

	second := doJSON(t, router, "POST", "/v1/strategies/momentum-1/generate", generateBody())
	require.Equal(t, http.StatusOK, second.Code)
	var secondResp GenerateResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &secondResp))

	assert.True(t, secondResp.Deduplicated)
	assert.Equal(t, firstResp.Record.RecordID, secondResp.Record.RecordID)
	assert.Equal(t, 1, store.Len(), "repeat must not grow history")
}

func TestHandleGenerate_SecurityBlockIsStillOK(t *testing.T) {
	// A blocked strategy is a completed generation with a SECURITY_ERROR
	// record, not an endpoint failure.
	router, store := generateRouter(t, extensions.DefaultOptions())

	body := datatypes.GenerateRequest{
		Flow: datatypes.LogicFlow{
			Nodes: []datatypes.GraphNode{{NodeID: "ex", TemplateID: "custom.subprocess"}},
			Edges: []datatypes.GraphEdge{},
		},
	}
	w := doJSON(t, router, "POST", "/v1/strategies/momentum-1/generate", body)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Record)
	assert.Equal(t, datatypes.StatusSecurityError, resp.Record.ValidationStatus)
	assert.Equal(t, 1, store.Len(), "blocked records are persisted for audit")
}

func TestHandleGenerate_RejectedFlowIs422(t *testing.T) {
	router, store := generateRouter(t, extensions.DefaultOptions())

	body := generateBody()
	body.Flow.Nodes[1].TemplateID = "indicator.ghost"
	w := doJSON(t, router, "POST", "/v1/strategies/momentum-1/generate", body)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Nil(t, resp.Record)
	require.NotNil(t, resp.Report)
	assert.False(t, resp.Report.Valid)
	assert.Equal(t, 0, store.Len(), "rejected flows never reach the store")
}

func TestHandleGenerate_InvalidInstanceID(t *testing.T) {
	router, _ := generateRouter(t, extensions.DefaultOptions())

	w := doJSON(t, router, "POST", "/v1/strategies/-bad/generate", generateBody())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid instance id")
}

func TestHandleGenerate_MalformedBody(t *testing.T) {
	router, _ := generateRouter(t, extensions.DefaultOptions())

	w := doJSON(t, router, "POST", "/v1/strategies/momentum-1/generate", "{not json")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestHandleGenerate_HostileNodeID(t *testing.T) {
	router, _ := generateRouter(t, extensions.DefaultOptions())

	body := generateBody()
	body.Flow.Nodes[0].NodeID = "rm -rf /"
	w := doJSON(t, router, "POST", "/v1/strategies/momentum-1/generate", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGenerate_ForbiddenWhenAuthzDenies(t *testing.T) {
	audit := &recordingAudit{}
	opts := extensions.DefaultOptions().WithAuthz(denyAuthz{}).WithAudit(audit)
	router, store := generateRouter(t, opts)

	w := doJSON(t, router, "POST", "/v1/strategies/momentum-1/generate", generateBody())

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "forbidden")
	assert.Equal(t, 0, store.Len())

	events := audit.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "authz.denied", events[0].EventType)
	assert.Equal(t, "blocked", events[0].Outcome)
	assert.Equal(t, "momentum-1", events[0].ResourceID)
}

func TestHandleGenerate_AuthzInfrastructureError(t *testing.T) {
	opts := extensions.DefaultOptions().WithAuthz(errorAuthz{})
	router, _ := generateRouter(t, opts)

	w := doJSON(t, router, "POST", "/v1/strategies/momentum-1/generate", generateBody())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "policy backend down",
		"backend details must not leak to the client")
}

func TestHandleGenerate_AuditsSuccess(t *testing.T) {
	audit := &recordingAudit{}
	opts := extensions.DefaultOptions().WithAudit(audit)
	router, _ := generateRouter(t, opts)

	w := doJSON(t, router, "POST", "/v1/strategies/momentum-1/generate", generateBody())
	require.Equal(t, http.StatusOK, w.Code)

	events := audit.snapshot()
	require.Len(t, events, 1)
	event := events[0]
	assert.Equal(t, "strategy.generate", event.EventType)
	assert.Equal(t, "success", event.Outcome)
	assert.Equal(t, "local-owner", event.UserID)
	assert.Equal(t, "strategy", event.ResourceType)
	assert.Equal(t, "momentum-1", event.ResourceID)
	assert.NotEmpty(t, event.Metadata["record_id"])
	assert.Equal(t, string(datatypes.StatusValid), event.Metadata["status"])
}

func TestHandleGenerate_MissingIdentityIs401(t *testing.T) {
	// Route wired without AuthMiddleware; the handler refuses to guess.
	pipe, _ := newTestPipeline(t)
	router := gin.New()
	router.POST("/v1/strategies/:instance_id/generate",
		HandleGenerate(pipe, extensions.DefaultOptions()))

	w := doJSON(t, router, "POST", "/v1/strategies/momentum-1/generate", generateBody())

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// =============================================================================
// Mocks
// =============================================================================

type denyAuthz struct{}

func (denyAuthz) Authorize(_ context.Context, req extensions.AuthzRequest) error {
	return fmt.Errorf("user %q may not %s: %w", req.User.UserID, req.Action, extensions.ErrUnauthorized)
}

type errorAuthz struct{}

func (errorAuthz) Authorize(_ context.Context, _ extensions.AuthzRequest) error {
	return fmt.Errorf("policy backend down")
}

type recordingAudit struct {
	mu     sync.Mutex
	events []extensions.AuditEvent
}

func (a *recordingAudit) Log(_ context.Context, event extensions.AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

func (a *recordingAudit) Query(_ context.Context, _ extensions.AuditFilter) ([]extensions.AuditEvent, error) {
	return nil, nil
}

func (a *recordingAudit) Flush(_ context.Context) error { return nil }

func (a *recordingAudit) snapshot() []extensions.AuditEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]extensions.AuditEvent, len(a.events))
	copy(out, a.events)
	return out
}
