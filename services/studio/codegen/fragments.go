// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package codegen

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
)

// fragmentData is the render context for one node fragment. Everything is
// pre-formatted Python text so the templates stay declarative.
type fragmentData struct {
	NodeID     string
	Key        string // quoted Python string literal of the node id
	TemplateID string
	Kind       string
	Op         string // runtime operation name derived from the template id
	Args       string // "period=14, source='close'" or ""
	Inputs     string // "[results['a'], results['b']]"
}

// fragmentTemplates maps renderer names to their template text. Kind
// selection happens in fragmentName; render hints may address any entry
// here by name.
var fragmentTemplates = map[string]string{
	"indicator": `results[{{.Key}}] = indicators.compute('{{.Op}}', market{{if .Args}}, {{.Args}}{{end}})`,

	"condition": `results[{{.Key}}] = conditions.evaluate('{{.Op}}', {{.Inputs}}{{if .Args}}, {{.Args}}{{end}})`,

	"signal": `results[{{.Key}}] = signals.emit('{{.Op}}', {{.Inputs}}{{if .Args}}, {{.Args}}{{end}})`,

	"position": `results[{{.Key}}] = positions.size(self.context, {{.Inputs}}{{if .Args}}, {{.Args}}{{end}})`,

	"stop_loss": `results[{{.Key}}] = risk.stop_loss(self.context, {{.Inputs}}{{if .Args}}, {{.Args}}{{end}})`,

	"stop_profit": `results[{{.Key}}] = risk.take_profit(self.context, {{.Inputs}}{{if .Args}}, {{.Args}}{{end}})`,

	"risk_management": `results[{{.Key}}] = risk.apply(self.context, {{.Inputs}}{{if .Args}}, {{.Args}}{{end}})`,

	"generic": `# TODO: complete manually ({{.Kind}} node {{.Key}}, template '{{.TemplateID}}')
results[{{.Key}}] = None`,
}

// fragmentName selects the renderer for a node kind. The explicit default
// arm keeps generation alive for kinds added to the catalog before this
// switch learns about them.
func fragmentName(kind datatypes.NodeKind) (string, bool) {
	switch kind {
	case datatypes.KindIndicator:
		return "indicator", true
	case datatypes.KindCondition:
		return "condition", true
	case datatypes.KindSignal:
		return "signal", true
	case datatypes.KindPosition:
		return "position", true
	case datatypes.KindStopLoss:
		return "stop_loss", true
	case datatypes.KindStopProfit:
		return "stop_profit", true
	case datatypes.KindRiskManagement:
		return "risk_management", true
	case datatypes.KindCustom:
		return "generic", true
	default:
		return "generic", false
	}
}

// mergeParameters overlays supplied values on the schema's declared
// defaults. Explicit values win; fields with neither default nor value
// are omitted.
func mergeParameters(schema datatypes.ParameterSchema, supplied map[string]any) map[string]any {
	merged := make(map[string]any, len(schema))
	for name, spec := range schema {
		if spec.Default != nil {
			merged[name] = spec.Default
		}
	}
	for name, value := range supplied {
		if value == nil {
			continue
		}
		// Only schema-declared fields reach the rendered call; unknown
		// fields were already ignored by parameter validation.
		if _, declared := schema[name]; declared {
			merged[name] = value
		}
	}
	return merged
}

// renderKwargs formats merged parameters as Python keyword arguments in
// sorted key order so identical inputs give identical text.
func renderKwargs(merged map[string]any) string {
	if len(merged) == 0 {
		return ""
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, pyLiteral(merged[k])))
	}
	return strings.Join(parts, ", ")
}

// renderInputs formats upstream node results as a Python list literal in
// edge declaration order.
func renderInputs(sources []string) string {
	if len(sources) == 0 {
		return "[]"
	}
	parts := make([]string, 0, len(sources))
	for _, src := range sources {
		parts = append(parts, "results["+pyString(src)+"]")
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// pyLiteral renders a Go value as a Python literal. JSON decoding and
// YAML defaults only produce scalars here; anything exotic falls back to
// a quoted string so the output always parses.
func pyLiteral(value any) string {
	switch v := value.(type) {
	case nil:
		return "None"
	case bool:
		if v {
			return "True"
		}
		return "False"
	case string:
		return pyString(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return pyFloat(float64(v))
	case float64:
		return pyFloat(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, pyLiteral(item))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return pyString(fmt.Sprintf("%v", v))
	}
}

// pyFloat renders integral floats without the fractional tail: JSON turns
// 14 into 14.0 and the generated call should still read period=14.
func pyFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 && !math.IsInf(f, 0) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// pyString renders a single-quoted Python string literal.
func pyString(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
