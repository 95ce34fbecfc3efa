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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/pipeline"
)

// HandleValidateFlow runs structural and parameter validation without
// generating anything. The report is the payload, so a structurally
// invalid flow is still a 200: the editor asked "what is wrong with
// this?" and got an answer. Only transport-level defects (unparseable
// JSON, hostile identifiers, oversized graphs) are HTTP errors.
func HandleValidateFlow(pipe *pipeline.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.ValidateFlowRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			slog.Warn("failed to parse validate request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		report := pipe.Validate(c.Request.Context(), &req.Flow, req.Parameters)

		c.JSON(http.StatusOK, report)
	}
}
