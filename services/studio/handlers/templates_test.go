// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for the template catalog handlers

package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
)

func templatesRouter() *gin.Engine {
	router := gin.New()
	repo := testTemplates()
	router.GET("/v1/templates", HandleListTemplates(repo))
	router.GET("/v1/templates/:id", HandleGetTemplate(repo))
	return router
}

// =============================================================================
// HandleListTemplates Tests
// =============================================================================

func TestHandleListTemplates_ReturnsAllSorted(t *testing.T) {
	w := doJSON(t, templatesRouter(), "GET", "/v1/templates", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Templates []TemplateSummary `json:"templates"`
		Count     int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.Count)

	ids := make([]string, 0, len(resp.Templates))
	for _, tmpl := range resp.Templates {
		ids = append(ids, tmpl.ID)
	}
	assert.Equal(t, []string{"custom.subprocess", "indicator.rsi", "signal.entry"}, ids)
}

func TestHandleListTemplates_SummaryOmitsSchema(t *testing.T) {
	w := doJSON(t, templatesRouter(), "GET", "/v1/templates", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "parameter_schema",
		"listing should stay a palette view, not the full catalog dump")
}

func TestHandleListTemplates_RepositoryError(t *testing.T) {
	router := gin.New()
	router.GET("/v1/templates", HandleListTemplates(failingRepo{}))

	w := doJSON(t, router, "GET", "/v1/templates", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// =============================================================================
// HandleGetTemplate Tests
// =============================================================================

func TestHandleGetTemplate_ReturnsFullTemplate(t *testing.T) {
	w := doJSON(t, templatesRouter(), "GET", "/v1/templates/indicator.rsi", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var tmpl datatypes.NodeTemplate
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tmpl))
	assert.Equal(t, "indicator.rsi", tmpl.ID)
	assert.Equal(t, datatypes.KindIndicator, tmpl.Kind)
	require.Contains(t, tmpl.ParameterSchema, "period")
	assert.Equal(t, datatypes.FieldInteger, tmpl.ParameterSchema["period"].Type)
}

func TestHandleGetTemplate_NotFound(t *testing.T) {
	w := doJSON(t, templatesRouter(), "GET", "/v1/templates/indicator.ghost", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "template not found")
}

func TestHandleGetTemplate_RejectsHostileID(t *testing.T) {
	// Leading dash fails the identifier rule before the repository is
	// consulted.
	w := doJSON(t, templatesRouter(), "GET", "/v1/templates/-rsi", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid template id")
}
