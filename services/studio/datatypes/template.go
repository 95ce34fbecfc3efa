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

// =============================================================================
// Node Kinds
// =============================================================================

// NodeKind categorizes a node template. The code generator dispatches its
// renderer on this enum, so new kinds are a deliberate, compile-visible
// decision rather than open-ended string dispatch.
type NodeKind string

const (
	KindIndicator      NodeKind = "INDICATOR"
	KindCondition      NodeKind = "CONDITION"
	KindSignal         NodeKind = "SIGNAL"
	KindPosition       NodeKind = "POSITION"
	KindStopLoss       NodeKind = "STOP_LOSS"
	KindStopProfit     NodeKind = "STOP_PROFIT"
	KindRiskManagement NodeKind = "RISK_MANAGEMENT"
	KindCustom         NodeKind = "CUSTOM"
)

// allNodeKinds is the closed set of valid kinds.
var allNodeKinds = map[NodeKind]bool{
	KindIndicator:      true,
	KindCondition:      true,
	KindSignal:         true,
	KindPosition:       true,
	KindStopLoss:       true,
	KindStopProfit:     true,
	KindRiskManagement: true,
	KindCustom:         true,
}

// IsValid reports whether k is one of the declared node kinds.
func (k NodeKind) IsValid() bool {
	return allNodeKinds[k]
}

// =============================================================================
// Parameter Schema
// =============================================================================

// FieldType is the declared type of a template parameter field.
type FieldType string

const (
	FieldInteger FieldType = "integer"
	FieldNumber  FieldType = "number"
	FieldString  FieldType = "string"
	FieldBoolean FieldType = "boolean"
)

// IsValid reports whether t is a declared field type.
func (t FieldType) IsValid() bool {
	switch t {
	case FieldInteger, FieldNumber, FieldString, FieldBoolean:
		return true
	default:
		return false
	}
}

// FieldSpec declares the constraints for one parameter field.
//
// Minimum and Maximum apply to integer/number fields; Enum applies to
// string fields. Default is rendered when the caller supplies no value.
type FieldSpec struct {
	Type        FieldType `json:"type" yaml:"type"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty"`
	Default     any       `json:"default,omitempty" yaml:"default,omitempty"`
	Minimum     *float64  `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum     *float64  `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	Enum        []string  `json:"enum,omitempty" yaml:"enum,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// ParameterSchema maps field name to its spec.
type ParameterSchema map[string]FieldSpec

// =============================================================================
// Ports and Render Hints
// =============================================================================

// PortSpec declares one input or output port on a template. Type is the
// declared value type ("series", "number", "bool", "signal"); an empty Type
// means the port is untyped and edge compatibility checks skip it.
type PortSpec struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
}

// CodeHints carries the render hints attached to a template.
type CodeHints struct {
	// Template optionally overrides the kind-based renderer selection
	// with a named fragment template.
	Template string `json:"template,omitempty" yaml:"template,omitempty"`

	// Imports lists Python modules the rendered fragment relies on. They
	// are emitted in the module header, deduplicated in first-seen order,
	// and must survive the security validator's import policy.
	Imports []string `json:"imports,omitempty" yaml:"imports,omitempty"`

	// Docstring is rendered as the fragment's leading comment.
	Docstring string `json:"docstring,omitempty" yaml:"docstring,omitempty"`
}

// =============================================================================
// Node Template
// =============================================================================

// NodeTemplate is one immutable catalog entry: the schema, ports, and render
// hints for a reusable strategy building block. System templates are never
// user-editable; published templates never change (publish a new Version
// instead).
type NodeTemplate struct {
	ID              string          `json:"id" yaml:"id"`
	Kind            NodeKind        `json:"kind" yaml:"kind"`
	Name            string          `json:"name,omitempty" yaml:"name,omitempty"`
	Description     string          `json:"description,omitempty" yaml:"description,omitempty"`
	Version         string          `json:"version,omitempty" yaml:"version,omitempty"`
	System          bool            `json:"system,omitempty" yaml:"system,omitempty"`
	ParameterSchema ParameterSchema `json:"parameter_schema,omitempty" yaml:"parameter_schema,omitempty"`
	InputPorts      []PortSpec      `json:"input_ports,omitempty" yaml:"input_ports,omitempty"`
	OutputPorts     []PortSpec      `json:"output_ports,omitempty" yaml:"output_ports,omitempty"`
	CodeTemplate    CodeHints       `json:"code_template,omitempty" yaml:"code_template,omitempty"`
}

// OutputType returns the declared type of the template's first output port,
// or "" when the template declares no typed output.
func (t *NodeTemplate) OutputType() string {
	if len(t.OutputPorts) == 0 {
		return ""
	}
	return t.OutputPorts[0].Type
}

// InputType returns the declared type of the template's first input port,
// or "" when the template declares no typed input.
func (t *NodeTemplate) InputType() string {
	if len(t.InputPorts) == 0 {
		return ""
	}
	return t.InputPorts[0].Type
}

// FindInputPort returns the input port with the given name, or nil.
func (t *NodeTemplate) FindInputPort(name string) *PortSpec {
	for i := range t.InputPorts {
		if t.InputPorts[i].Name == name {
			return &t.InputPorts[i]
		}
	}
	return nil
}

// FindOutputPort returns the output port with the given name, or nil.
func (t *NodeTemplate) FindOutputPort(name string) *PortSpec {
	for i := range t.OutputPorts {
		if t.OutputPorts[i].Name == name {
			return &t.OutputPorts[i]
		}
	}
	return nil
}
