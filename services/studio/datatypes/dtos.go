// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Request bodies accepted by the HTTP and WebSocket surfaces. Response
// shapes that reference the graph report live in the handlers package to
// avoid an import cycle.

package datatypes

import (
	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/SapheneiaStudio/pkg/validation"
)

// =============================================================================
// Request Limits
// =============================================================================

const (
	// MaxFlowNodes caps the node count accepted in one request. Real
	// flows are tens of nodes; the cap only bounds hostile payloads.
	MaxFlowNodes = 500

	// MaxFlowEdges caps the edge count accepted in one request.
	MaxFlowEdges = 2000

	// MaxHistoryLimit caps the page size of history listings.
	MaxHistoryLimit = 200

	// DefaultHistoryLimit applies when a listing names no limit.
	DefaultHistoryLimit = 50
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// studioValidate is the validator instance for studio request types.
// Initialized in init() with custom validators.
var studioValidate *validator.Validate

func init() {
	studioValidate = validator.New()

	// "identifier" applies the same rule the CLI and catalog loaders use
	// for node ids, template ids, and instance ids.
	_ = studioValidate.RegisterValidation("identifier", validateIdentifierField)
}

// validateIdentifierField adapts pkg/validation's identifier rule to a
// validator tag.
func validateIdentifierField(fl validator.FieldLevel) bool {
	return validation.ValidateIdentifier(fl.Field().String()) == nil
}

// =============================================================================
// Flow Request Types
// =============================================================================

// ValidateFlowRequest is the body of POST /v1/flows/validate and of each
// live-validation WebSocket frame: the flow to check plus optional per-node
// parameter values.
//
// The flow is deliberately not tagged required. A malformed or absent flow
// still produces a structural report (nodes-must-be-a-sequence and friends)
// rather than a bare binding error, so the editor always has something to
// render.
type ValidateFlowRequest struct {
	Flow       LogicFlow                 `json:"flow"`
	Parameters map[string]map[string]any `json:"parameters,omitempty" validate:"max=500"`
}

// Validate applies the transport-level checks that precede structural
// validation: size caps and identifier hygiene on every node and edge.
// Graph defects (duplicates, ghost edges, cycles) are the graph
// validator's job, not this one's.
func (r *ValidateFlowRequest) Validate() error {
	return studioValidate.Struct(r)
}

// GenerateRequest is the body of POST /v1/strategies/:instance_id/generate.
// The instance id rides on the URL, not the body.
type GenerateRequest struct {
	Flow       LogicFlow                 `json:"flow"`
	Parameters map[string]map[string]any `json:"parameters,omitempty" validate:"max=500"`
}

// Validate applies the same transport-level checks as
// ValidateFlowRequest.Validate.
func (r *GenerateRequest) Validate() error {
	return studioValidate.Struct(r)
}
