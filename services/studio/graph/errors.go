// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programmatic checks with errors.Is.
var (
	// ErrMalformedFlow indicates the flow failed the basic shape check
	// (nil collections, duplicate node ids).
	ErrMalformedFlow = errors.New("logic flow is malformed")

	// ErrCircularDependency indicates the flow contains at least one cycle.
	ErrCircularDependency = errors.New("circular dependency detected")

	// ErrInconsistentGraph indicates an internal invariant was violated,
	// e.g. an incomplete topological order on an acyclic graph. This is a
	// bug in the validator, never a user input problem.
	ErrInconsistentGraph = errors.New("internal graph inconsistency")
)

// Stage identifies which validation pass produced an error.
type Stage string

const (
	// StageShape covers nil collections and duplicate node ids.
	StageShape Stage = "shape"

	// StageTemplates covers unresolved template references.
	StageTemplates Stage = "templates"

	// StageEdges covers edges naming absent nodes.
	StageEdges Stage = "edges"

	// StageCycles covers circular dependencies.
	StageCycles Stage = "cycles"

	// StageOrder covers internal topological-order failures.
	StageOrder Stage = "order"

	// StagePorts covers port/type compatibility failures.
	StagePorts Stage = "ports"
)

// StructuralError describes one defect found during graph validation.
//
// NodeID is set for node-scoped defects, Edge ("src -> dst") for
// edge-scoped ones, and Cycle carries the ordered node ids of a detected
// cycle, each id once; the edge from the last id back to the first closes
// the loop.
type StructuralError struct {
	Stage   Stage    `json:"stage"`
	NodeID  string   `json:"node_id,omitempty"`
	Edge    string   `json:"edge,omitempty"`
	Cycle   []string `json:"cycle,omitempty"`
	Message string   `json:"message"`
}

// Error implements the error interface.
func (e *StructuralError) Error() string {
	switch {
	case e.NodeID != "":
		return fmt.Sprintf("[%s] node %q: %s", e.Stage, e.NodeID, e.Message)
	case e.Edge != "":
		return fmt.Sprintf("[%s] edge %s: %s", e.Stage, e.Edge, e.Message)
	default:
		return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
	}
}

// Unwrap maps the stage onto the matching sentinel so callers can use
// errors.Is without inspecting stages.
func (e *StructuralError) Unwrap() error {
	switch e.Stage {
	case StageShape:
		return ErrMalformedFlow
	case StageCycles:
		return ErrCircularDependency
	case StageOrder:
		return ErrInconsistentGraph
	default:
		return nil
	}
}

// CycleError is returned by TopologicalSort when the flow is cyclic. It
// carries the ordered cycle so callers can render the exact loop.
type CycleError struct {
	// Cycle holds the node ids along the cycle, each id once; the edge
	// from the last id back to the first closes the loop.
	Cycle []string
}

// Error implements the error interface. The loop is rendered with the
// entry node repeated so the closing edge is visible in the message.
func (e *CycleError) Error() string {
	if len(e.Cycle) == 0 {
		return "circular dependency detected"
	}
	return "circular dependency detected: " + strings.Join(e.Cycle, " -> ") + " -> " + e.Cycle[0]
}

// Unwrap allows errors.Is(err, ErrCircularDependency).
func (e *CycleError) Unwrap() error {
	return ErrCircularDependency
}
