// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package inspect

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
)

// maxViolations caps collection on hostile input.
const maxViolations = 100

// SecurityResult is the outcome of one security check. IsSafe is defined
// as "no violations at all"; severity is informational and never a
// threshold.
type SecurityResult struct {
	IsSafe         bool                          `json:"is_safe"`
	Violations     []datatypes.SecurityViolation `json:"violations,omitempty"`
	PatternVersion string                        `json:"pattern_version"`
	PolicyVersion  string                        `json:"policy_version"`
}

// SecurityChecker enforces the import policy and the dangerous-call
// database over parsed strategy code.
//
// Thread Safety: safe for concurrent use once constructed.
type SecurityChecker struct {
	parsers  *ParserRegistry
	policy   *ImportPolicy
	patterns []DangerousPattern
}

// NewSecurityChecker creates a checker backed by the embedded import
// policy. A nil registry falls back to DefaultRegistry().
func NewSecurityChecker(parsers *ParserRegistry) (*SecurityChecker, error) {
	if parsers == nil {
		parsers = DefaultRegistry()
	}
	policy, err := LoadEmbeddedPolicy()
	if err != nil {
		return nil, err
	}
	return &SecurityChecker{
		parsers:  parsers,
		policy:   policy,
		patterns: PythonCallPatterns(),
	}, nil
}

// Policy exposes the active import policy for display and fingerprinting.
func (c *SecurityChecker) Policy() *ImportPolicy {
	return c.policy
}

// InvalidSyntaxResult returns the uniform result for code that failed the
// syntax check: one CRITICAL violation, never a different shape. Callers
// always get the same response structure whether or not the code parsed.
func (c *SecurityChecker) InvalidSyntaxResult() *SecurityResult {
	return &SecurityResult{
		IsSafe: false,
		Violations: []datatypes.SecurityViolation{{
			Rule:       "invalid-syntax",
			Severity:   datatypes.SeverityCritical,
			Message:    "code does not parse; security analysis requires syntactically valid input",
			Suggestion: "fix the reported syntax errors and regenerate",
		}},
		PatternVersion: PatternVersion,
		PolicyVersion:  c.policy.Version,
	}
}

// Check statically analyzes code for disallowed capabilities.
//
// Description:
//
//	The parse tree is walked once. Import statements are reduced to
//	their top-level module name (aliased and from-imports included) and
//	evaluated against the policy: deny-list hits are CRITICAL, modules
//	on neither list are HIGH. Unknown capability is guilty until proven
//	safe. Call expressions are resolved to a fully-qualified callee name
//	(identifier or dotted attribute chain) and matched against the
//	dangerous-call database. Callees that cannot be statically resolved
//	(computed attributes, subscripts) are skipped; the check is
//	best-effort by design.
//
// Outputs:
//   - *SecurityResult: nil only on infrastructure failure.
//   - error: parser/infrastructure failures only. Unsafe code is a
//     result with violations, not an error.
func (c *SecurityChecker) Check(ctx context.Context, code string) (*SecurityResult, error) {
	if strings.TrimSpace(code) == "" {
		return c.InvalidSyntaxResult(), nil
	}

	parser, err := c.parsers.Get("python")
	if err != nil {
		return nil, err
	}

	source := []byte(code)
	tree, err := parser.Parse(ctx, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	result := &SecurityResult{
		PatternVersion: PatternVersion,
		PolicyVersion:  c.policy.Version,
	}
	c.walk(tree.RootNode(), source, result, 0)
	result.IsSafe = len(result.Violations) == 0
	return result, nil
}

// walk visits every named node, dispatching imports and calls.
func (c *SecurityChecker) walk(node *sitter.Node, source []byte, result *SecurityResult, depth int) {
	if node == nil || depth > maxWalkDepth || len(result.Violations) >= maxViolations {
		return
	}

	switch node.Type() {
	case "import_statement":
		c.checkImportStatement(node, source, result)
	case "import_from_statement":
		c.checkImportFrom(node, source, result)
	case "call":
		c.checkCall(node, source, result)
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		c.walk(node.NamedChild(i), source, result, depth+1)
	}
}

// checkImportStatement handles `import a.b, c as d`.
func (c *SecurityChecker) checkImportStatement(node *sitter.Node, source []byte, result *SecurityResult) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			c.evaluateImport(child.Content(source), child, result)
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				c.evaluateImport(name.Content(source), child, result)
			}
		}
	}
}

// checkImportFrom handles `from a.b import c`. Relative imports have no
// resolvable top-level module and are flagged as unknown capability.
func (c *SecurityChecker) checkImportFrom(node *sitter.Node, source []byte, result *SecurityResult) {
	module := node.ChildByFieldName("module_name")
	if module == nil {
		return
	}
	text := module.Content(source)
	if module.Type() == "relative_import" || strings.HasPrefix(text, ".") {
		result.Violations = append(result.Violations, datatypes.SecurityViolation{
			Rule:       "unknown-import",
			Target:     text,
			Line:       int(module.StartPoint().Row) + 1,
			Severity:   datatypes.SeverityHigh,
			Message:    "relative import cannot be checked against the import policy",
			Suggestion: "import the module by its absolute, allow-listed name",
		})
		return
	}
	c.evaluateImport(text, module, result)
}

// evaluateImport applies the allow/deny policy to one imported module.
func (c *SecurityChecker) evaluateImport(dotted string, node *sitter.Node, result *SecurityResult) {
	module := topLevelModule(dotted)
	if module == "" {
		return
	}
	line := int(node.StartPoint().Row) + 1

	if fm := c.policy.Forbidden(module); fm != nil {
		suggestion := fm.Suggestion
		if suggestion == "" {
			suggestion = fmt.Sprintf("remove the import of %q", module)
		}
		result.Violations = append(result.Violations, datatypes.SecurityViolation{
			Rule:       "forbidden-import",
			Target:     module,
			Line:       line,
			Severity:   datatypes.SeverityCritical,
			Message:    fmt.Sprintf("import of forbidden module %q (%s)", module, fm.Reason),
			Suggestion: suggestion,
		})
		return
	}

	if !c.policy.IsAllowed(module) {
		result.Violations = append(result.Violations, datatypes.SecurityViolation{
			Rule:       "unknown-import",
			Target:     module,
			Line:       line,
			Severity:   datatypes.SeverityHigh,
			Message:    fmt.Sprintf("module %q is not on the import allow list", module),
			Suggestion: fmt.Sprintf("use an approved module, or request an allow-list entry for %q", module),
		})
	}
}

// checkCall matches a call's resolved callee against the pattern database.
func (c *SecurityChecker) checkCall(node *sitter.Node, source []byte, result *SecurityResult) {
	callee := calleeName(node.ChildByFieldName("function"), source)
	if callee == "" {
		return
	}
	for _, p := range c.patterns {
		if p.MatchesCallee(callee) {
			result.Violations = append(result.Violations, datatypes.SecurityViolation{
				Rule:       "dangerous-call",
				Target:     callee,
				Line:       int(node.StartPoint().Row) + 1,
				Severity:   p.Severity,
				Message:    p.Message,
				Suggestion: p.Suggestion,
			})
			return
		}
	}
}

// calleeName resolves a call's function expression to a fully-qualified
// dotted name. Only identifiers and attribute chains over identifiers
// resolve; anything computed returns "" and is skipped.
func calleeName(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "identifier":
		return node.Content(source)
	case "attribute":
		object := calleeName(node.ChildByFieldName("object"), source)
		attr := node.ChildByFieldName("attribute")
		if object == "" || attr == nil {
			return ""
		}
		return object + "." + attr.Content(source)
	default:
		return ""
	}
}

// topLevelModule reduces a dotted module path to its first component.
func topLevelModule(dotted string) string {
	dotted = strings.TrimSpace(dotted)
	if i := strings.IndexByte(dotted, '.'); i >= 0 {
		return dotted[:i]
	}
	return dotted
}
