// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph validates logic flows before code generation.
//
// A flow is checked in six stages that short-circuit once a structural
// defect makes later checks meaningless: shape, template references, edge
// integrity, cycle detection, topological ordering, and port/type
// compatibility. The validator is a pure synchronous transform over an
// immutable flow value; template resolution is delegated to an injected
// read-only lookup so callers control where templates come from.
//
// Determinism is a contract: identical input bytes produce an identical
// cycle report and an identical topological order. Roots are visited in
// node declaration order and neighbors in edge declaration order; the
// Kahn queue is seeded in declaration order and processed FIFO.
package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/params"
)

// TemplateLookup resolves template ids to node templates. The catalog
// repository satisfies this; tests substitute deterministic fixtures.
type TemplateLookup interface {
	GetTemplate(ctx context.Context, templateID string) (*datatypes.NodeTemplate, error)
}

// Metadata summarizes the validated flow for API consumers.
type Metadata struct {
	NodeCount         int `json:"node_count"`
	EdgeCount         int `json:"edge_count"`
	TemplatesResolved int `json:"templates_resolved"`
}

// Report is the full outcome of validating one flow.
//
// Valid is true only when Errors and Params are both empty. Order is the
// deterministic topological order and is populated only when the flow is
// acyclic with intact edges. Internal marks validator bugs (surfaced as
// server errors upstream, never as user input errors).
type Report struct {
	Valid    bool                           `json:"valid"`
	Errors   []*StructuralError             `json:"errors,omitempty"`
	Warnings []string                       `json:"warnings,omitempty"`
	Order    []string                       `json:"order,omitempty"`
	Params   map[string][]params.FieldError `json:"param_errors,omitempty"`
	Internal bool                           `json:"internal,omitempty"`
	Metadata Metadata                       `json:"metadata"`
}

// AddParamErrors attaches per-node parameter failures to the report and
// flips Valid. Used by the generation pipeline after template resolution.
func (r *Report) AddParamErrors(nodeID string, errs []params.FieldError) {
	if len(errs) == 0 {
		return
	}
	if r.Params == nil {
		r.Params = make(map[string][]params.FieldError)
	}
	r.Params[nodeID] = append(r.Params[nodeID], errs...)
	r.Valid = false
}

// addError appends a structural error and marks the report invalid.
func (r *Report) addError(e *StructuralError) {
	r.Errors = append(r.Errors, e)
	r.Valid = false
}

// Validator runs the staged structural checks over logic flows.
//
// Thread Safety: safe for concurrent use; all per-call state lives on the
// stack and flows are never mutated.
type Validator struct {
	logger *slog.Logger
}

// NewValidator creates a validator. A nil logger falls back to
// slog.Default().
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger}
}

// Validate checks a flow end to end and returns the full report.
//
// Description:
//
//	Stage 1 rejects malformed shapes (nil collections, duplicate node
//	ids) and stops. Stage 2 resolves every template reference through the
//	lookup, collecting unresolved ones per node. Stage 3 checks that
//	every edge endpoint names an existing node. Any error from stages 1-3
//	stops the run before traversal. Stage 4 detects cycles; stage 5
//	computes the topological order; stage 6 checks port/type
//	compatibility for edges where both endpoints declare a value type.
//
// Inputs:
//   - ctx: passed through to template lookups.
//   - flow: the flow to validate; never mutated.
//   - lookup: template resolution capability; must be non-nil.
//
// Outputs:
//   - *Report: never nil. Report.Valid reflects all stages run.
func (v *Validator) Validate(ctx context.Context, flow *datatypes.LogicFlow, lookup TemplateLookup) *Report {
	report := &Report{Valid: true}

	// Stage 1: shape.
	if !v.checkShape(flow, report) {
		return report
	}
	report.Metadata.NodeCount = len(flow.Nodes)
	report.Metadata.EdgeCount = len(flow.Edges)

	// Stage 2: template references.
	templates := v.resolveTemplates(ctx, flow, lookup, report)
	report.Metadata.TemplatesResolved = len(templates)

	// Stage 3: edge integrity.
	v.checkEdges(flow, report)

	if len(report.Errors) > 0 {
		return report
	}

	// Stages 4-5: traversal. The arena drops nothing at this point since
	// every edge endpoint has been verified above.
	a := newArena(flow)

	if cycle := a.findCycle(); cycle != nil {
		report.addError(&StructuralError{
			Stage:   StageCycles,
			Cycle:   cycle,
			Message: (&CycleError{Cycle: cycle}).Error(),
		})
		return report
	}

	order := a.kahn()
	if len(order) != len(a.seq) {
		// Acyclic per stage 4 yet Kahn could not place every node. That
		// contradicts the algorithm's own invariant, so this is a bug
		// here, not bad user input.
		v.logger.Error("topological order incomplete on acyclic flow",
			"nodes", len(a.seq),
			"ordered", len(order))
		report.Internal = true
		report.addError(&StructuralError{
			Stage:   StageOrder,
			Message: fmt.Sprintf("internal: ordered %d of %d nodes on an acyclic graph", len(order), len(a.seq)),
		})
		return report
	}
	report.Order = order

	if len(a.seq) > 1 {
		for _, id := range a.isolated() {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("node %q is not connected to any other node", id))
		}
	}

	// Stage 6: port/type compatibility.
	v.checkPorts(flow, templates, report)

	return report
}

// checkShape runs stage 1. Returns false when validation must stop.
func (v *Validator) checkShape(flow *datatypes.LogicFlow, report *Report) bool {
	if flow == nil {
		report.addError(&StructuralError{
			Stage:   StageShape,
			Message: "flow is missing",
		})
		return false
	}
	if flow.Nodes == nil {
		report.addError(&StructuralError{
			Stage:   StageShape,
			Message: "nodes must be a sequence, not null",
		})
	}
	if flow.Edges == nil {
		report.addError(&StructuralError{
			Stage:   StageShape,
			Message: "edges must be a sequence, not null",
		})
	}
	seen := make(map[string]bool, len(flow.Nodes))
	for i := range flow.Nodes {
		id := flow.Nodes[i].NodeID
		if seen[id] {
			report.addError(&StructuralError{
				Stage:   StageShape,
				NodeID:  id,
				Message: "duplicate node id",
			})
		}
		seen[id] = true
	}
	return len(report.Errors) == 0
}

// resolveTemplates runs stage 2 and returns the resolved templates keyed
// by node id. Unresolved references are collected per node; resolution
// continues so one report names every broken reference.
func (v *Validator) resolveTemplates(ctx context.Context, flow *datatypes.LogicFlow, lookup TemplateLookup, report *Report) map[string]*datatypes.NodeTemplate {
	templates := make(map[string]*datatypes.NodeTemplate, len(flow.Nodes))
	for i := range flow.Nodes {
		n := &flow.Nodes[i]
		tmpl, err := lookup.GetTemplate(ctx, n.TemplateID)
		if err != nil || tmpl == nil {
			msg := fmt.Sprintf("template %q not found", n.TemplateID)
			if err != nil {
				msg = fmt.Sprintf("template %q: %v", n.TemplateID, err)
			}
			report.addError(&StructuralError{
				Stage:   StageTemplates,
				NodeID:  n.NodeID,
				Message: msg,
			})
			continue
		}
		templates[n.NodeID] = tmpl
	}
	return templates
}

// checkEdges runs stage 3. Every dangling edge is reported; none are
// silently skipped.
func (v *Validator) checkEdges(flow *datatypes.LogicFlow, report *Report) {
	ids := make(map[string]bool, len(flow.Nodes))
	for i := range flow.Nodes {
		ids[flow.Nodes[i].NodeID] = true
	}
	for i, e := range flow.Edges {
		edge := fmt.Sprintf("%s -> %s", e.SourceNodeID, e.TargetNodeID)
		if !ids[e.SourceNodeID] {
			report.addError(&StructuralError{
				Stage:   StageEdges,
				Edge:    edge,
				Message: fmt.Sprintf("edge %d: source node %q does not exist", i, e.SourceNodeID),
			})
		}
		if !ids[e.TargetNodeID] {
			report.addError(&StructuralError{
				Stage:   StageEdges,
				Edge:    edge,
				Message: fmt.Sprintf("edge %d: target node %q does not exist", i, e.TargetNodeID),
			})
		}
	}
}

// checkPorts runs stage 6. A mismatch is an error only when both
// endpoints resolve to a concrete value type; one-sided typing passes
// silently. A named port missing from the template is reported: it is a
// dangling reference, same family as a dangling edge.
func (v *Validator) checkPorts(flow *datatypes.LogicFlow, templates map[string]*datatypes.NodeTemplate, report *Report) {
	nodes := make(map[string]*datatypes.GraphNode, len(flow.Nodes))
	for i := range flow.Nodes {
		nodes[flow.Nodes[i].NodeID] = &flow.Nodes[i]
	}

	for _, e := range flow.Edges {
		edge := fmt.Sprintf("%s -> %s", e.SourceNodeID, e.TargetNodeID)
		src, dst := nodes[e.SourceNodeID], nodes[e.TargetNodeID]

		srcType, srcErr := sourceType(src, templates[e.SourceNodeID], e.SourcePort)
		if srcErr != "" {
			report.addError(&StructuralError{Stage: StagePorts, Edge: edge, Message: srcErr})
			continue
		}
		dstType, dstErr := targetType(dst, templates[e.TargetNodeID], e.TargetPort)
		if dstErr != "" {
			report.addError(&StructuralError{Stage: StagePorts, Edge: edge, Message: dstErr})
			continue
		}

		if srcType != "" && dstType != "" && srcType != dstType {
			report.addError(&StructuralError{
				Stage:   StagePorts,
				Edge:    edge,
				Message: fmt.Sprintf("output type %q does not match input type %q", srcType, dstType),
			})
		}
	}
}

// sourceType resolves the value type leaving a node along an edge. An
// explicit port name on the edge wins, then the node-level override, then
// the template's default output port. Empty means untyped.
func sourceType(n *datatypes.GraphNode, tmpl *datatypes.NodeTemplate, port string) (string, string) {
	if port != "" {
		if p := tmpl.FindOutputPort(port); p != nil {
			return p.Type, ""
		}
		return "", fmt.Sprintf("source port %q is not declared by template %q", port, tmpl.ID)
	}
	if n.OutputType != "" {
		return n.OutputType, ""
	}
	return tmpl.OutputType(), ""
}

// targetType mirrors sourceType for the consuming end of an edge.
func targetType(n *datatypes.GraphNode, tmpl *datatypes.NodeTemplate, port string) (string, string) {
	if port != "" {
		if p := tmpl.FindInputPort(port); p != nil {
			return p.Type, ""
		}
		return "", fmt.Sprintf("target port %q is not declared by template %q", port, tmpl.ID)
	}
	if n.InputType != "" {
		return n.InputType, ""
	}
	return tmpl.InputType(), ""
}

// =============================================================================
// Standalone Traversal Helpers
// =============================================================================

// DetectCycle returns the ordered node ids of the first cycle found in
// declaration-order traversal, or nil when the flow is acyclic. Each id
// appears once; the edge from the last id back to the first closes the
// loop. Edges naming absent nodes are ignored; run Validate first when
// edge integrity matters.
func DetectCycle(flow *datatypes.LogicFlow) []string {
	if flow == nil {
		return nil
	}
	return newArena(flow).findCycle()
}

// TopologicalSort returns a deterministic dependency order for the flow.
// On a cyclic flow it returns a *CycleError carrying the cycle instead of
// a partial order.
func TopologicalSort(flow *datatypes.LogicFlow) ([]string, error) {
	if flow == nil {
		return nil, &StructuralError{Stage: StageShape, Message: "flow is missing"}
	}
	a := newArena(flow)
	if cycle := a.findCycle(); cycle != nil {
		return nil, &CycleError{Cycle: cycle}
	}
	return a.kahn(), nil
}
