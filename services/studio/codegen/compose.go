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

import "strings"

// moduleHeader opens every generated module. The runtime import is always
// present; fragments reference those helpers unconditionally.
const moduleHeader = `"""Trading strategy generated by Sapheneia Studio.

Produced from a visual logic flow. Edit the flow in the builder instead
of editing this file; regeneration overwrites it.
"""

from sapheneia.runtime import conditions, indicators, positions, risk, signals
`

// moduleFooter closes every generated module with the factory the
// execution layer imports.
const moduleFooter = `

def build_strategy(context):
    """Factory used by the execution layer."""
    return GeneratedStrategy(context)
`

const classOpen = `

class GeneratedStrategy:
    """Evaluates the composed logic flow for one market snapshot."""

    def __init__(self, context):
        self.context = context

    def evaluate(self, market):
`

// compose assembles the final module text: header, render-hint imports in
// first-seen order, the strategy class with one fragment block per node,
// and the factory footer. An empty body degrades to a pass statement so
// the module always parses.
func compose(imports []string, blocks [][]string) string {
	var b strings.Builder
	b.WriteString(moduleHeader)
	for _, imp := range imports {
		b.WriteString("import ")
		b.WriteString(imp)
		b.WriteByte('\n')
	}
	b.WriteString(classOpen)

	if len(blocks) == 0 {
		b.WriteString("        pass\n")
	} else {
		b.WriteString("        results = {}\n")
		for _, block := range blocks {
			b.WriteByte('\n')
			for _, line := range block {
				b.WriteString("        ")
				b.WriteString(line)
				b.WriteByte('\n')
			}
		}
		b.WriteString("\n        return results\n")
	}

	b.WriteString(moduleFooter)
	return b.String()
}
