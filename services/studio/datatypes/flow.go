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

// GraphNode is one node instance inside a LogicFlow. It references a catalog
// template and optionally overrides the template's declared value types.
// A GraphNode has no identity outside the flow that contains it.
type GraphNode struct {
	// NodeID is unique within the owning flow.
	NodeID string `json:"node_id" binding:"required" validate:"required,identifier"`

	// TemplateID references a catalog NodeTemplate.
	TemplateID string `json:"template_id" binding:"required" validate:"required,identifier"`

	// OutputType optionally overrides the template's declared output type.
	OutputType string `json:"output_type,omitempty"`

	// InputType optionally declares the expected input type for
	// single-input nodes.
	InputType string `json:"input_type,omitempty"`
}

// GraphEdge is a directed connection between two nodes of the same flow.
// Ports are optional; when set they select a specific declared port on each
// endpoint for type compatibility checks.
type GraphEdge struct {
	SourceNodeID string `json:"source_node_id" binding:"required" validate:"required,identifier"`
	TargetNodeID string `json:"target_node_id" binding:"required" validate:"required,identifier"`
	SourcePort   string `json:"source_port,omitempty"`
	TargetPort   string `json:"target_port,omitempty"`
}

// LogicFlow is the aggregate root: the user-authored directed graph for one
// strategy. Flows are constructed fresh from caller input on every request
// and never mutated in place; each edit produces a new value that is
// validated independently.
//
// After validation succeeds the flow is guaranteed to contain no cycle and
// every edge connects two existing nodes.
//
// Nodes order is meaningful: cycle reports and topological ordering are
// deterministic with respect to it.
type LogicFlow struct {
	Nodes []GraphNode `json:"nodes" validate:"max=500,dive"`
	Edges []GraphEdge `json:"edges" validate:"max=2000,dive"`
}

// NodeByID returns the node with the given id, or nil. Linear scan; flows
// are tens of nodes.
func (f *LogicFlow) NodeByID(id string) *GraphNode {
	for i := range f.Nodes {
		if f.Nodes[i].NodeID == id {
			return &f.Nodes[i]
		}
	}
	return nil
}

// Clone returns a deep copy. Records snapshot the flow at generation time,
// so the stored copy must not alias caller-owned slices.
func (f *LogicFlow) Clone() LogicFlow {
	out := LogicFlow{}
	if f.Nodes != nil {
		out.Nodes = make([]GraphNode, len(f.Nodes))
		copy(out.Nodes, f.Nodes)
	}
	if f.Edges != nil {
		out.Edges = make([]GraphEdge, len(f.Edges))
		copy(out.Edges, f.Edges)
	}
	return out
}
