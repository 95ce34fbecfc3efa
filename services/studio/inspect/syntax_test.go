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
	"errors"
	"strings"
	"testing"
)

const validStrategy = `"""Minimal strategy module."""

import math


class GeneratedStrategy:

    def __init__(self, context):
        self.context = context

    def evaluate(self, market):
        results = {}
        results['rsi_1'] = math.floor(market.close)
        return results
`

func TestSyntaxCheck_ValidCode(t *testing.T) {
	checker := NewSyntaxChecker(nil)

	res, err := checker.Check(context.Background(), validStrategy)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !res.Valid {
		t.Errorf("expected valid, got issues: %+v", res.Issues)
	}
}

func TestSyntaxCheck_EmptyInput(t *testing.T) {
	checker := NewSyntaxChecker(nil)

	tests := []struct {
		name string
		code string
	}{
		{"empty string", ""},
		{"whitespace only", "   \n\t\n  "},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := checker.Check(context.Background(), tc.code)
			// Dedicated sentinel, not a parse failure; the result is
			// still populated for callers that only look at it.
			if !errors.Is(err, ErrEmptyCode) {
				t.Fatalf("err = %v, want ErrEmptyCode", err)
			}
			if res == nil || res.Valid {
				t.Fatal("empty input must yield an invalid result")
			}
			if len(res.Issues) != 1 {
				t.Fatalf("expected 1 issue, got %d", len(res.Issues))
			}
			if res.Issues[0].Line != 1 || res.Issues[0].Column != 1 {
				t.Errorf("issue position = %d:%d, want 1:1", res.Issues[0].Line, res.Issues[0].Column)
			}
		})
	}
}

func TestSyntaxCheck_BrokenCode(t *testing.T) {
	checker := NewSyntaxChecker(nil)

	tests := []struct {
		name string
		code string
	}{
		{"unclosed paren", "x = (1 + 2\n"},
		{"missing colon", "def evaluate(self, market)\n    return {}\n"},
		{"doubled assignment", "results = = 5\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := checker.Check(context.Background(), tc.code)
			if err != nil {
				t.Fatalf("broken code must not be an error, got %v", err)
			}
			if res.Valid {
				t.Fatal("expected invalid result")
			}
			if len(res.Issues) == 0 {
				t.Fatal("expected at least one issue")
			}
			for _, issue := range res.Issues {
				if issue.Line < 1 || issue.Column < 1 {
					t.Errorf("positions must be 1-indexed, got %d:%d", issue.Line, issue.Column)
				}
				if issue.Message == "" {
					t.Error("issue without a message")
				}
			}
		})
	}
}

func TestSyntaxCheck_IssueCountCapped(t *testing.T) {
	checker := NewSyntaxChecker(nil)

	// Heavily malformed input: one broken statement per line.
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("def ( broken\n")
	}

	res, err := checker.Check(context.Background(), b.String())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Valid {
		t.Fatal("expected invalid result")
	}
	if len(res.Issues) > maxSyntaxIssues {
		t.Errorf("issue count %d exceeds cap %d", len(res.Issues), maxSyntaxIssues)
	}
}

func TestSyntaxCheck_LineNumbersPointAtDefect(t *testing.T) {
	checker := NewSyntaxChecker(nil)
	code := "x = 1\ny = 2\nz = (3 + \n"

	res, err := checker.Check(context.Background(), code)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Valid {
		t.Fatal("expected invalid result")
	}
	// The defect is on line 3; no issue should point at the clean lines.
	for _, issue := range res.Issues {
		if issue.Line < 3 {
			t.Errorf("issue at line %d precedes the defect: %+v", issue.Line, issue)
		}
	}
}

func TestPythonParser_SizeLimit(t *testing.T) {
	parser := NewPythonParser(WithMaxCodeSize(16))

	_, err := parser.Parse(context.Background(), []byte("x = 'this is longer than sixteen bytes'"))
	if !errors.Is(err, ErrCodeTooLarge) {
		t.Errorf("err = %v, want ErrCodeTooLarge", err)
	}
}

func TestPythonParser_RejectsInvalidUTF8(t *testing.T) {
	parser := NewPythonParser()

	_, err := parser.Parse(context.Background(), []byte{0x78, 0x20, 0xff, 0xfe})
	if !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("err = %v, want ErrInvalidEncoding", err)
	}
}

func TestParserRegistry(t *testing.T) {
	registry := DefaultRegistry()

	p, err := registry.Get("python")
	if err != nil {
		t.Fatalf("Get(python): %v", err)
	}
	if p.Language() != "python" {
		t.Errorf("Language() = %q", p.Language())
	}

	// Case-insensitive lookup.
	if _, err := registry.Get("Python"); err != nil {
		t.Errorf("Get(Python): %v", err)
	}

	if _, err := registry.Get("cobol"); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Errorf("err = %v, want ErrUnsupportedLanguage", err)
	}
}
