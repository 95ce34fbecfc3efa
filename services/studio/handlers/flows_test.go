// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for the flow validation handler

package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/graph"
)

func validateRouter(t *testing.T) *gin.Engine {
	t.Helper()
	pipe, _ := newTestPipeline(t)
	router := gin.New()
	router.POST("/v1/flows/validate", HandleValidateFlow(pipe))
	return router
}

// =============================================================================
// HandleValidateFlow Tests
// =============================================================================

func TestHandleValidateFlow_ValidFlow(t *testing.T) {
	body := datatypes.ValidateFlowRequest{
		Flow:       testFlow(),
		Parameters: testParameters(),
	}
	w := doJSON(t, validateRouter(t), "POST", "/v1/flows/validate", body)

	assert.Equal(t, http.StatusOK, w.Code)

	var report graph.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.True(t, report.Valid)
	assert.Empty(t, report.Errors)
	assert.Equal(t, []string{"rsi", "entry"}, report.Order)
	assert.Equal(t, 2, report.Metadata.NodeCount)
}

func TestHandleValidateFlow_StructuralErrorsStillOK(t *testing.T) {
	// A broken flow is a successful validation request: the editor asked
	// what is wrong and gets a report, not an HTTP error.
	flow := testFlow()
	flow.Nodes[1].TemplateID = "indicator.ghost"

	body := datatypes.ValidateFlowRequest{Flow: flow}
	w := doJSON(t, validateRouter(t), "POST", "/v1/flows/validate", body)

	assert.Equal(t, http.StatusOK, w.Code)

	var report graph.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.False(t, report.Valid)
	require.NotEmpty(t, report.Errors)
	assert.Equal(t, "entry", report.Errors[0].NodeID)
}

func TestHandleValidateFlow_EmptyBody(t *testing.T) {
	// An empty canvas frame binds fine and fails structurally: nodes are
	// null, and the report says so.
	w := doJSON(t, validateRouter(t), "POST", "/v1/flows/validate", "{}")

	assert.Equal(t, http.StatusOK, w.Code)

	var report graph.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.False(t, report.Valid)
	require.NotEmpty(t, report.Errors)
	assert.Contains(t, report.Errors[0].Message, "nodes")
}

func TestHandleValidateFlow_MalformedJSON(t *testing.T) {
	w := doJSON(t, validateRouter(t), "POST", "/v1/flows/validate", "{not json")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestHandleValidateFlow_HostileNodeID(t *testing.T) {
	flow := testFlow()
	flow.Nodes[0].NodeID = "../escape"

	body := datatypes.ValidateFlowRequest{Flow: flow}
	w := doJSON(t, validateRouter(t), "POST", "/v1/flows/validate", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "identifier")
}

func TestHandleValidateFlow_ParameterErrors(t *testing.T) {
	body := datatypes.ValidateFlowRequest{
		Flow: testFlow(),
		Parameters: map[string]map[string]any{
			"rsi":   {"period": 0},
			"entry": {"side": "long"},
		},
	}
	w := doJSON(t, validateRouter(t), "POST", "/v1/flows/validate", body)

	assert.Equal(t, http.StatusOK, w.Code)

	var report graph.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.False(t, report.Valid)
	assert.Contains(t, report.Params, "rsi")
}
