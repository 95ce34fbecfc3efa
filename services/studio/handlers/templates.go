// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/SapheneiaStudio/pkg/validation"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/catalog"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
)

// TemplateSummary is the listing view of a catalog entry: enough for a
// palette sidebar without shipping every schema and render hint.
type TemplateSummary struct {
	ID          string               `json:"id"`
	Kind        datatypes.NodeKind   `json:"kind"`
	Name        string               `json:"name,omitempty"`
	Version     string               `json:"version,omitempty"`
	System      bool                 `json:"system,omitempty"`
	InputPorts  []datatypes.PortSpec `json:"input_ports,omitempty"`
	OutputPorts []datatypes.PortSpec `json:"output_ports,omitempty"`
}

// summarize projects a template onto its listing view.
func summarize(t *datatypes.NodeTemplate) TemplateSummary {
	return TemplateSummary{
		ID:          t.ID,
		Kind:        t.Kind,
		Name:        t.Name,
		Version:     t.Version,
		System:      t.System,
		InputPorts:  t.InputPorts,
		OutputPorts: t.OutputPorts,
	}
}

// HandleListTemplates returns summaries of every catalog entry.
func HandleListTemplates(templates catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := templates.ListTemplates(c.Request.Context())
		if err != nil {
			slog.Error("failed to list templates", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list templates"})
			return
		}

		summaries := make([]TemplateSummary, 0, len(list))
		for _, t := range list {
			summaries = append(summaries, summarize(t))
		}

		c.JSON(http.StatusOK, gin.H{
			"templates": summaries,
			"count":     len(summaries),
		})
	}
}

// HandleGetTemplate returns one full template, schema and render hints
// included.
func HandleGetTemplate(templates catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		templateID := c.Param("id")
		if err := validation.ValidateIdentifier(templateID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid template id"})
			return
		}

		tmpl, err := templates.GetTemplate(c.Request.Context(), templateID)
		if err != nil {
			if errors.Is(err, catalog.ErrTemplateNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
				return
			}
			slog.Error("failed to resolve template", "template_id", templateID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve template"})
			return
		}

		c.JSON(http.StatusOK, tmpl)
	}
}
