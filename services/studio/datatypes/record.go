// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "time"

// =============================================================================
// Validation Status
// =============================================================================

// ValidationStatus is the lifecycle state of a CodeGenerationRecord.
//
// PENDING moves through the syntax and security checks to exactly one of
// VALID, SYNTAX_ERROR, or SECURITY_ERROR. RUNTIME_ERROR is reachable only
// from VALID and only by the external execution layer; nothing in this
// service produces it.
type ValidationStatus string

const (
	StatusPending       ValidationStatus = "PENDING"
	StatusValid         ValidationStatus = "VALID"
	StatusSyntaxError   ValidationStatus = "SYNTAX_ERROR"
	StatusSecurityError ValidationStatus = "SECURITY_ERROR"
	StatusRuntimeError  ValidationStatus = "RUNTIME_ERROR"
)

// IsValid reports whether s is a declared status value.
func (s ValidationStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusValid, StatusSyntaxError, StatusSecurityError, StatusRuntimeError:
		return true
	default:
		return false
	}
}

// Terminal reports whether s admits no further transition inside this
// service. VALID is terminal here even though the execution layer may later
// move it to RUNTIME_ERROR.
func (s ValidationStatus) Terminal() bool {
	switch s {
	case StatusSyntaxError, StatusSecurityError, StatusRuntimeError:
		return true
	default:
		return false
	}
}

// CanTransition reports whether the s -> to transition is legal.
func (s ValidationStatus) CanTransition(to ValidationStatus) bool {
	switch s {
	case StatusPending:
		return to == StatusValid || to == StatusSyntaxError || to == StatusSecurityError
	case StatusValid:
		// Reserved for the execution layer.
		return to == StatusRuntimeError
	default:
		return false
	}
}

// =============================================================================
// Validation Detail
// =============================================================================

// Severity grades a security violation. Severities are informational for
// the UI; any violation at any severity makes the code unusable.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// SyntaxIssue is one parse failure in generated code. Line and Column are
// 1-indexed.
type SyntaxIssue struct {
	Line       int    `json:"line"`
	Column     int    `json:"column"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// SecurityViolation is one disallowed capability found by the static
// security check.
type SecurityViolation struct {
	// Rule names the matched policy rule ("forbidden-import",
	// "unknown-import", "dangerous-call", "invalid-syntax").
	Rule string `json:"rule"`

	// Target is the offending module or fully-qualified callee.
	Target string `json:"target"`

	// Line is 1-indexed; 0 when the violation is not tied to a line.
	Line int `json:"line,omitempty"`

	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// =============================================================================
// Code Generation Record
// =============================================================================

// CodeGenerationRecord is the persisted artifact of one generation attempt.
// It is created once and mutated only to transition ValidationStatus and
// attach validation detail. CodeHash is the deduplication key, scoped to
// InstanceID: identical code for two different instances is two artifacts.
type CodeGenerationRecord struct {
	RecordID           string                    `json:"record_id"`
	InstanceID         string                    `json:"instance_id"`
	LogicFlowSnapshot  LogicFlow                 `json:"logic_flow_snapshot"`
	ParametersSnapshot map[string]map[string]any `json:"parameters_snapshot,omitempty"`

	// GeneratedCode is plain Python text; CodeHash is the lowercase hex
	// SHA-256 of it.
	GeneratedCode string `json:"generated_code"`
	CodeHash      string `json:"code_hash"`

	ValidationStatus    ValidationStatus `json:"validation_status"`
	SyntaxCheckPassed   bool             `json:"syntax_check_passed"`
	SecurityCheckPassed bool             `json:"security_check_passed"`

	SyntaxIssues []SyntaxIssue       `json:"syntax_issues,omitempty"`
	Violations   []SecurityViolation `json:"violations,omitempty"`
	Warnings     []string            `json:"warnings,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TransitionStatus applies the s -> to transition, returning false and
// leaving the record unchanged when the transition is illegal.
func (r *CodeGenerationRecord) TransitionStatus(to ValidationStatus) bool {
	if !r.ValidationStatus.CanTransition(to) {
		return false
	}
	r.ValidationStatus = to
	return true
}

// CloneParameters deep-copies a per-node parameter map for snapshotting.
// Values are copied per key; nested mutable values are assumed to be
// JSON-decoded scalars, slices, and maps owned by the request.
func CloneParameters(params map[string]map[string]any) map[string]map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]map[string]any, len(params))
	for nodeID, fields := range params {
		inner := make(map[string]any, len(fields))
		for k, v := range fields {
			inner[k] = v
		}
		out[nodeID] = inner
	}
	return out
}
