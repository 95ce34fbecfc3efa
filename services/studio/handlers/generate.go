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
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/SapheneiaStudio/pkg/extensions"
	"github.com/AleutianAI/SapheneiaStudio/pkg/validation"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/graph"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/middleware"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/pipeline"
)

var generateTracer = otel.Tracer("studio.handlers")

// GenerateResponse is the body returned by the generate endpoint: the
// persisted record, the validation report that accompanied the attempt,
// and whether the record was served from the dedup index instead of a
// fresh generation.
type GenerateResponse struct {
	Record       *datatypes.CodeGenerationRecord `json:"record,omitempty"`
	Report       *graph.Report                   `json:"report,omitempty"`
	Deduplicated bool                            `json:"deduplicated"`
}

// HandleGenerate runs the full generation pipeline for one strategy
// instance.
//
// Status mapping:
//   - 400: unparseable body, hostile identifiers, oversized graphs
//   - 403: the authorization provider denied the generate action
//   - 422: the flow or its parameters failed validation (report attached)
//   - 200: a record was produced or deduplicated, whatever its
//     validation status; SECURITY_ERROR is an outcome, not a failure of
//     the endpoint
//   - 500: pipeline infrastructure failure (store, renderer)
//
// Every attempt that reaches authorization is audit-logged with its
// outcome.
func HandleGenerate(pipe *pipeline.Pipeline, opts extensions.ServiceOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := generateTracer.Start(c.Request.Context(), "HandleGenerate")
		defer span.End()

		instanceID := c.Param("instance_id")
		if err := validation.ValidateIdentifier(instanceID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid instance id"})
			return
		}
		span.SetAttributes(attribute.String("studio.instance_id", instanceID))

		var req datatypes.GenerateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Warn("failed to parse generate request", "instance_id", instanceID, "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		authInfo := middleware.GetAuthInfo(c)
		if authInfo == nil {
			// The route is always behind AuthMiddleware; a nil identity
			// means the route table regressed.
			slog.Error("generate reached without identity", "instance_id", instanceID)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		if err := opts.AuthzProvider.Authorize(ctx, extensions.AuthzRequest{
			User:         authInfo,
			Action:       "generate",
			ResourceType: "strategy",
			ResourceID:   instanceID,
		}); err != nil {
			if errors.Is(err, extensions.ErrUnauthorized) {
				auditGenerate(ctx, opts, authInfo, instanceID, "authz.denied", "blocked", nil, c)
				c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
				return
			}
			slog.Error("authorization check failed", "instance_id", instanceID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "authorization check failed"})
			return
		}

		outcome, report, err := pipe.Run(ctx, &pipeline.Request{
			InstanceID: instanceID,
			Flow:       &req.Flow,
			Parameters: req.Parameters,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("generation pipeline failed", "instance_id", instanceID, "error", err)
			auditGenerate(ctx, opts, authInfo, instanceID, "strategy.generate", "error", nil, c)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "generation failed"})
			return
		}

		if outcome == nil {
			// The flow or its parameters were rejected; the report says
			// exactly where.
			auditGenerate(ctx, opts, authInfo, instanceID, "strategy.generate", "failure", nil, c)
			c.JSON(http.StatusUnprocessableEntity, GenerateResponse{Report: report})
			return
		}

		eventType, auditOutcome := auditClassify(outcome.Record.ValidationStatus)
		auditGenerate(ctx, opts, authInfo, instanceID, eventType, auditOutcome, outcome, c)

		c.JSON(http.StatusOK, GenerateResponse{
			Record:       outcome.Record,
			Report:       report,
			Deduplicated: outcome.Deduplicated,
		})
	}
}

// auditClassify maps a record's final status onto an audit event type
// and outcome. A security block gets its own event type so SIEM rules
// can alert on it without parsing metadata.
func auditClassify(status datatypes.ValidationStatus) (eventType, outcome string) {
	switch status {
	case datatypes.StatusValid:
		return "strategy.generate", "success"
	case datatypes.StatusSecurityError:
		return "strategy.blocked", "blocked"
	default:
		return "strategy.generate", "failure"
	}
}

// auditGenerate records one generation attempt. Audit failures are
// logged, never surfaced: the caller's request already succeeded or
// failed on its own terms.
func auditGenerate(ctx context.Context, opts extensions.ServiceOptions, user *extensions.AuthInfo, instanceID, eventType, outcome string, result *pipeline.Outcome, c *gin.Context) {
	event := extensions.AuditEvent{
		EventType:    eventType,
		Timestamp:    time.Now().UTC(),
		UserID:       user.UserID,
		Action:       "generate",
		ResourceType: "strategy",
		ResourceID:   instanceID,
		Outcome:      outcome,
		Metadata: map[string]any{
			"request_id": middleware.GetRequestID(c),
			"ip_address": c.ClientIP(),
		},
	}
	if result != nil {
		event.Metadata["record_id"] = result.Record.RecordID
		event.Metadata["code_hash"] = result.Record.CodeHash
		event.Metadata["status"] = string(result.Record.ValidationStatus)
		event.Metadata["deduplicated"] = result.Deduplicated
	}

	if err := opts.AuditLogger.Log(ctx, event); err != nil {
		slog.Warn("failed to write audit event", "event_type", event.EventType, "error", err)
	}
}
