// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Shared fixtures for handler tests

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/SapheneiaStudio/services/studio/catalog"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/history"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/pipeline"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func f64(v float64) *float64 { return &v }

// testTemplates mirrors the catalog shape the pipeline tests use: a typed
// indicator feeding a typed signal, plus a template whose import hint the
// security policy rejects.
func testTemplates() *catalog.StaticRepository {
	return catalog.NewStaticRepository(
		&datatypes.NodeTemplate{
			ID:      "indicator.rsi",
			Kind:    datatypes.KindIndicator,
			Name:    "RSI",
			Version: "1.0.0",
			ParameterSchema: datatypes.ParameterSchema{
				"period": {Type: datatypes.FieldInteger, Required: true, Minimum: f64(1), Maximum: f64(500)},
			},
			OutputPorts:  []datatypes.PortSpec{{Name: "value", Type: "series"}},
			CodeTemplate: datatypes.CodeHints{Imports: []string{"statistics"}},
		},
		&datatypes.NodeTemplate{
			ID:      "signal.entry",
			Kind:    datatypes.KindSignal,
			Name:    "Entry Signal",
			Version: "1.0.0",
			ParameterSchema: datatypes.ParameterSchema{
				"side": {Type: datatypes.FieldString, Required: true, Enum: []string{"long", "short"}},
			},
			InputPorts:  []datatypes.PortSpec{{Name: "trigger", Type: "series"}},
			OutputPorts: []datatypes.PortSpec{{Name: "signal", Type: "signal"}},
		},
		&datatypes.NodeTemplate{
			ID:           "custom.subprocess",
			Kind:         datatypes.KindCustom,
			Version:      "1.0.0",
			CodeTemplate: datatypes.CodeHints{Imports: []string{"subprocess"}},
		},
	)
}

func testFlow() datatypes.LogicFlow {
	return datatypes.LogicFlow{
		Nodes: []datatypes.GraphNode{
			{NodeID: "rsi", TemplateID: "indicator.rsi"},
			{NodeID: "entry", TemplateID: "signal.entry"},
		},
		Edges: []datatypes.GraphEdge{
			{SourceNodeID: "rsi", TargetNodeID: "entry"},
		},
	}
}

func testParameters() map[string]map[string]any {
	return map[string]map[string]any{
		"rsi":   {"period": 14},
		"entry": {"side": "long"},
	}
}

func newTestPipeline(t *testing.T) (*pipeline.Pipeline, *history.MemoryStore) {
	t.Helper()
	store := history.NewMemoryStore()
	p, err := pipeline.New(pipeline.Config{
		Templates: testTemplates(),
		History:   store,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return p, store
}

// doJSON serves one request against the router and returns the recorder.
// A nil body sends an empty request; a string body is sent raw (for
// malformed-JSON cases); anything else is marshalled.
func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	router.ServeHTTP(w, req)
	return w
}

// failingRepo satisfies catalog.Repository and fails every call. Backs
// the degraded-health and list-error tests.
type failingRepo struct{}

func (failingRepo) GetTemplate(_ context.Context, _ string) (*datatypes.NodeTemplate, error) {
	return nil, errors.New("catalog backend unavailable")
}

func (failingRepo) ListTemplates(_ context.Context) ([]*datatypes.NodeTemplate, error) {
	return nil, errors.New("catalog backend unavailable")
}
