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

const (
	// maxSyntaxIssues caps collection on heavily malformed input.
	maxSyntaxIssues = 50

	// maxWalkDepth prevents stack exhaustion on pathologically nested trees.
	maxWalkDepth = 1000
)

// SyntaxResult is the outcome of one syntax check.
type SyntaxResult struct {
	Valid  bool                    `json:"valid"`
	Issues []datatypes.SyntaxIssue `json:"issues,omitempty"`
}

// SyntaxChecker validates that generated code parses.
//
// Thread Safety: safe for concurrent use.
type SyntaxChecker struct {
	parsers *ParserRegistry
}

// NewSyntaxChecker creates a checker. A nil registry falls back to
// DefaultRegistry().
func NewSyntaxChecker(parsers *ParserRegistry) *SyntaxChecker {
	if parsers == nil {
		parsers = DefaultRegistry()
	}
	return &SyntaxChecker{parsers: parsers}
}

// Check parses code and collects every syntax defect.
//
// Description:
//
//	Empty or whitespace-only input is rejected before parsing: the
//	returned result carries one issue and the error is ErrEmptyCode, so
//	callers can branch on the sentinel without re-deriving the reason.
//	Otherwise the code is parsed with the registered Python parser and
//	the tree is walked for ERROR and MISSING nodes, each yielding an
//	issue with 1-indexed line and column, a message, and a suggestion
//	where the defect has an obvious fix. Collection is capped at
//	maxSyntaxIssues.
//
// Outputs:
//   - *SyntaxResult: nil only when error is an infrastructure failure
//     (unsupported language, oversized input, canceled context).
//   - error: ErrEmptyCode for empty input (result still populated),
//     otherwise infrastructure failures only. Broken code is NOT an
//     error; it is a result with Valid=false.
func (c *SyntaxChecker) Check(ctx context.Context, code string) (*SyntaxResult, error) {
	if strings.TrimSpace(code) == "" {
		return &SyntaxResult{
			Valid: false,
			Issues: []datatypes.SyntaxIssue{{
				Line:       1,
				Column:     1,
				Message:    "code is empty or contains only whitespace",
				Suggestion: "generate the strategy before validating it",
			}},
		}, ErrEmptyCode
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

	issues := make([]datatypes.SyntaxIssue, 0)
	collectSyntaxIssues(tree.RootNode(), source, &issues, 0)

	return &SyntaxResult{
		Valid:  len(issues) == 0,
		Issues: issues,
	}, nil
}

// collectSyntaxIssues walks the tree for ERROR/MISSING nodes.
func collectSyntaxIssues(node *sitter.Node, source []byte, issues *[]datatypes.SyntaxIssue, depth int) {
	if node == nil || depth > maxWalkDepth || len(*issues) >= maxSyntaxIssues {
		return
	}

	if node.IsError() || node.IsMissing() {
		start := node.StartPoint()
		snippet := errorContext(node, source)

		msg := "syntax error"
		if node.IsMissing() {
			msg = fmt.Sprintf("missing %s", node.Type())
		} else if snippet != "" {
			msg = fmt.Sprintf("unexpected: %s", truncate(snippet, 50))
		}

		*issues = append(*issues, datatypes.SyntaxIssue{
			Line:       int(start.Row) + 1,
			Column:     int(start.Column) + 1,
			Message:    msg,
			Suggestion: suggestFix(node, snippet),
		})
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		collectSyntaxIssues(node.Child(i), source, issues, depth+1)
	}
}

// errorContext extracts the offending source range, clamped and bounded.
func errorContext(node *sitter.Node, source []byte) string {
	start, end := node.StartByte(), node.EndByte()
	if end > uint32(len(source)) {
		end = uint32(len(source))
	}
	if end <= start || end-start >= 100 {
		return ""
	}
	return string(source[start:end])
}

// suggestFix returns remediation text for defects with an obvious fix.
func suggestFix(node *sitter.Node, snippet string) string {
	if node.IsMissing() {
		switch t := node.Type(); t {
		case ")", "]", "}":
			return fmt.Sprintf("add the missing closing '%s'", t)
		case "(", "[", "{":
			return fmt.Sprintf("add the missing opening '%s'", t)
		case ":":
			return "add the missing colon"
		default:
			return fmt.Sprintf("add the missing '%s'", t)
		}
	}
	switch {
	case strings.Count(snippet, "(") != strings.Count(snippet, ")"):
		return "check for unbalanced parentheses"
	case strings.Count(snippet, "[") != strings.Count(snippet, "]"):
		return "check for unbalanced brackets"
	case strings.Count(snippet, "'")%2 != 0 || strings.Count(snippet, `"`)%2 != 0:
		return "check for an unterminated string"
	default:
		return ""
	}
}

// truncate shortens a string for display.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
