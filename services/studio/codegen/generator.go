// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package codegen renders a validated logic flow into executable Python.
//
// Each node contributes one fragment, selected by node kind and rendered
// with text/template; fragments are composed in topological order between
// a fixed module header and footer, so a node's value is always assigned
// before any consumer reads it. The composed text is content-addressed
// with SHA-256 for deduplication.
//
// Generation is forgiving where validation is strict: an unknown node kind
// renders a placeholder fragment and an unresolvable template skips the
// node with a warning. Failing the whole module over one node would throw
// away work the builder can still use.
package codegen

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
)

// TemplateLookup resolves template ids to node templates. The catalog
// repository satisfies this.
type TemplateLookup interface {
	GetTemplate(ctx context.Context, templateID string) (*datatypes.NodeTemplate, error)
}

// Output is the result of one generation run.
type Output struct {
	// Code is the composed Python module.
	Code string `json:"code"`

	// Hash is the lowercase hex SHA-256 of Code, the dedup key scoped to
	// one strategy instance.
	Hash string `json:"hash"`

	// Warnings lists non-fatal oddities: skipped nodes, unknown kinds,
	// unknown render-hint template names.
	Warnings []string `json:"warnings,omitempty"`

	// Skipped lists node ids that contributed no fragment.
	Skipped []string `json:"skipped,omitempty"`
}

// Generator renders logic flows to Python modules.
//
// Thread Safety: safe for concurrent use once constructed; the parsed
// templates are read-only.
type Generator struct {
	fragments *template.Template
}

// NewGenerator parses the fragment templates. The only possible error is
// a defective built-in template, which is a programming mistake surfaced
// at startup rather than per request.
func NewGenerator() (*Generator, error) {
	root := template.New("fragments")
	for name, text := range fragmentTemplates {
		if _, err := root.New(name).Parse(text); err != nil {
			return nil, fmt.Errorf("parse fragment template %q: %w", name, err)
		}
	}
	return &Generator{fragments: root}, nil
}

// Generate renders the flow into a Python module.
//
// Description:
//
//	Nodes are rendered in the given topological order. For each node the
//	template is resolved, parameters are merged over the template's
//	declared defaults (explicit values win), and a fragment is rendered
//	by kind. The module is composed as header, imports (render-hint
//	imports deduplicated in first-seen order), strategy class with one
//	assignment per node, and a fixed factory footer. An empty node list
//	produces a minimal valid skeleton.
//
// Inputs:
//   - ctx: passed through to template lookups.
//   - flow: the validated flow; never mutated.
//   - order: topological node order from graph validation. Nil falls
//     back to declaration order (callers that skipped validation).
//   - parameters: per-node parameter values keyed by node id.
//   - lookup: template resolution capability.
//
// Outputs:
//   - *Output: composed code, content hash, warnings, skipped node ids.
//   - error: only for internal template-render failures.
func (g *Generator) Generate(ctx context.Context, flow *datatypes.LogicFlow, order []string, parameters map[string]map[string]any, lookup TemplateLookup) (*Output, error) {
	out := &Output{}

	if order == nil {
		order = make([]string, 0, len(flow.Nodes))
		for i := range flow.Nodes {
			order = append(order, flow.Nodes[i].NodeID)
		}
	}

	incoming := incomingByTarget(flow)

	var imports []string
	importSeen := make(map[string]bool)
	var blocks [][]string

	for _, nodeID := range order {
		node := flow.NodeByID(nodeID)
		if node == nil {
			// Order entries always come from the same flow; a miss here
			// is a caller bug, not a user error.
			return nil, fmt.Errorf("order references unknown node %q", nodeID)
		}

		tmpl, err := lookup.GetTemplate(ctx, node.TemplateID)
		if err != nil || tmpl == nil {
			out.Warnings = append(out.Warnings,
				fmt.Sprintf("node %q skipped: template %q could not be resolved", nodeID, node.TemplateID))
			out.Skipped = append(out.Skipped, nodeID)
			blocks = append(blocks, []string{
				fmt.Sprintf("# skipped: node %s references unknown template %s", pyString(nodeID), pyString(node.TemplateID)),
			})
			continue
		}

		for _, imp := range tmpl.CodeTemplate.Imports {
			if !importSeen[imp] {
				importSeen[imp] = true
				imports = append(imports, imp)
			}
		}

		fragment, warns, err := g.renderNode(node, tmpl, parameters[nodeID], incoming[nodeID])
		if err != nil {
			return nil, fmt.Errorf("render node %q: %w", nodeID, err)
		}
		out.Warnings = append(out.Warnings, warns...)
		blocks = append(blocks, fragment)
	}

	out.Code = compose(imports, blocks)
	out.Hash = CalculateCodeHash(out.Code)
	return out, nil
}

// renderNode renders one node's fragment lines (comment header included).
func (g *Generator) renderNode(node *datatypes.GraphNode, tmpl *datatypes.NodeTemplate, supplied map[string]any, inputs []string) ([]string, []string, error) {
	var warnings []string

	name, known := fragmentName(tmpl.Kind)
	if !known {
		warnings = append(warnings,
			fmt.Sprintf("node %q has unknown kind %q; rendered as placeholder", node.NodeID, tmpl.Kind))
	}
	if hint := tmpl.CodeTemplate.Template; hint != "" {
		if _, ok := fragmentTemplates[hint]; ok {
			name = hint
		} else {
			warnings = append(warnings,
				fmt.Sprintf("node %q names unknown render template %q; using %q", node.NodeID, hint, name))
		}
	}

	data := fragmentData{
		NodeID:     node.NodeID,
		Key:        pyString(node.NodeID),
		TemplateID: node.TemplateID,
		Kind:       string(tmpl.Kind),
		Op:         operationName(tmpl.ID),
		Args:       renderKwargs(mergeParameters(tmpl.ParameterSchema, supplied)),
		Inputs:     renderInputs(inputs),
	}

	var buf strings.Builder
	if err := g.fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, nil, err
	}

	lines := []string{fmt.Sprintf("# -- %s: %s", node.NodeID, node.TemplateID)}
	if doc := tmpl.CodeTemplate.Docstring; doc != "" {
		lines = append(lines, "# "+doc)
	}
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		lines = append(lines, line)
	}
	return lines, warnings, nil
}

// incomingByTarget maps each node id to the ids feeding it, in edge
// declaration order.
func incomingByTarget(flow *datatypes.LogicFlow) map[string][]string {
	in := make(map[string][]string)
	for _, e := range flow.Edges {
		in[e.TargetNodeID] = append(in[e.TargetNodeID], e.SourceNodeID)
	}
	return in
}

// operationName derives the runtime operation from a template id: the
// segment after the last dot ("indicator.rsi" -> "rsi").
func operationName(templateID string) string {
	if i := strings.LastIndexByte(templateID, '.'); i >= 0 {
		return templateID[i+1:]
	}
	return templateID
}
