// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the Gin handlers for the studio HTTP API.
//
// Every handler is a closure over its collaborators
// (HandleX(deps) gin.HandlerFunc), so routes.SetupRoutes can assemble the
// API from explicitly injected pieces and tests can swap any of them.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/SapheneiaStudio/services/studio/catalog"
)

// HandleHealth reports liveness plus cheap component status: the service
// is up, the catalog resolves, and how many templates it currently holds.
// It never touches the history store; a liveness probe must not generate
// disk traffic.
func HandleHealth(templates catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		catalogStatus := "ok"
		templateCount := 0

		list, err := templates.ListTemplates(c.Request.Context())
		if err != nil {
			slog.Error("health check: catalog listing failed", "error", err)
			catalogStatus = "error"
		} else {
			templateCount = len(list)
		}

		status := "ok"
		code := http.StatusOK
		if catalogStatus != "ok" {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"status":  status,
			"service": "sapheneia-studio",
			"components": gin.H{
				"catalog": gin.H{
					"status":    catalogStatus,
					"templates": templateCount,
				},
			},
		})
	}
}
