// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/SapheneiaStudio/pkg/extensions"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/catalog"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/handlers"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/history"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/middleware"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/pipeline"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/telemetry"
)

// SetupRoutes assembles the studio API onto the router. Global
// middleware (recovery, request ids, request logging, otelgin) is the
// caller's business; this function owns the route table and the
// per-route middleware.
func SetupRoutes(router *gin.Engine, pipe *pipeline.Pipeline, templates catalog.Repository,
	store history.Store, opts extensions.ServiceOptions, limiter *middleware.RateLimiter) {

	router.GET("/health", handlers.HandleHealth(templates))

	// Prometheus endpoint exists only when the prometheus exporter is
	// active; otherwise the route stays unregistered.
	if h := telemetry.MetricsHandler(); h != nil {
		router.GET("/metrics", gin.WrapH(h))
	}

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.GET("/templates", handlers.HandleListTemplates(templates))
		v1.GET("/templates/:id", handlers.HandleGetTemplate(templates))
		v1.POST("/flows/validate", handlers.HandleValidateFlow(pipe))
		v1.GET("/flows/live", handlers.HandleLiveValidation(pipe))

		// Record reads return generated source, so they carry identity
		// like the strategy routes do.
		v1.GET("/records/:record_id", middleware.AuthMiddleware(opts.AuthProvider), handlers.HandleGetRecord(store))

		// Strategy routes: generation writes records and is the one
		// expensive operation, so it alone is rate limited.
		strategies := v1.Group("/strategies", middleware.AuthMiddleware(opts.AuthProvider))
		{
			strategies.POST("/:instance_id/generate", limiter.Middleware(), handlers.HandleGenerate(pipe, opts))
			strategies.GET("/:instance_id/records", handlers.HandleListRecords(store))
		}
	}
}
