// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package inspect runs syntax and security checks over generated strategy
// code before a generation record can become VALID.
//
// The syntax check walks the tree-sitter parse tree for error and missing
// nodes; the security check enforces an embedded import allow/deny policy
// and a dangerous-call pattern database over the same tree. Parsing sits
// behind a narrow Parser interface registered per language, so the walk
// logic never depends on a concrete parser and tests can target the
// interface.
package inspect

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// DefaultMaxCodeSize caps parser input at 1MB. Generated strategy modules
// are a few kilobytes; anything near this limit is hostile or broken.
const DefaultMaxCodeSize = 1 * 1024 * 1024

// Parser turns source text into a syntax tree. Implementations must be
// safe for concurrent use; the returned tree is owned by the caller, who
// must Close it.
type Parser interface {
	// Parse builds a syntax tree for source. Syntactically broken input
	// still yields a tree (error-tolerant parsing); a non-nil error means
	// parsing itself could not run.
	Parse(ctx context.Context, source []byte) (*sitter.Tree, error)

	// Language returns the language key this parser handles.
	Language() string
}

// =============================================================================
// Python Parser
// =============================================================================

// PythonParserOption configures a PythonParser.
type PythonParserOption func(*PythonParser)

// WithMaxCodeSize overrides the parser's input size cap.
func WithMaxCodeSize(bytes int64) PythonParserOption {
	return func(p *PythonParser) {
		if bytes > 0 {
			p.maxCodeSize = bytes
		}
	}
}

// PythonParser parses Python 3 source with tree-sitter.
//
// Thread Safety: safe for concurrent use; every Parse call creates its
// own tree-sitter parser instance.
type PythonParser struct {
	maxCodeSize int64
}

// NewPythonParser creates a Python parser with sensible defaults.
func NewPythonParser(opts ...PythonParserOption) *PythonParser {
	p := &PythonParser{maxCodeSize: DefaultMaxCodeSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Language implements Parser.
func (p *PythonParser) Language() string { return "python" }

// Parse implements Parser.
//
// Outputs:
//   - *sitter.Tree: error-tolerant parse tree; caller must Close it.
//   - error: ErrCodeTooLarge, ErrInvalidEncoding, context errors, or a
//     wrapped tree-sitter failure. Never non-nil for merely broken code.
func (p *PythonParser) Parse(ctx context.Context, source []byte) (*sitter.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}
	if int64(len(source)) > p.maxCodeSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrCodeTooLarge, len(source), p.maxCodeSize)
	}
	if !utf8.Valid(source) {
		return nil, ErrInvalidEncoding
	}

	// New parser instance per call keeps this method concurrency-safe.
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	if tree == nil {
		return nil, ErrParseFailed
	}
	return tree, nil
}

// =============================================================================
// Parser Registry
// =============================================================================

// ParserRegistry maps language keys to parsers. Generated code targets
// Python today; the registry keeps the door open without touching the
// checkers when another target language arrives.
//
// Thread Safety: safe for concurrent use.
type ParserRegistry struct {
	mu         sync.RWMutex
	byLanguage map[string]Parser
}

// NewParserRegistry creates an empty registry.
func NewParserRegistry() *ParserRegistry {
	return &ParserRegistry{byLanguage: make(map[string]Parser)}
}

// DefaultRegistry returns a registry with the Python parser registered.
func DefaultRegistry() *ParserRegistry {
	r := NewParserRegistry()
	r.Register(NewPythonParser())
	return r
}

// Register adds or replaces the parser for its language key.
func (r *ParserRegistry) Register(p Parser) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byLanguage[strings.ToLower(p.Language())] = p
}

// Get returns the parser for a language, or ErrUnsupportedLanguage.
func (r *ParserRegistry) Get(language string) (Parser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.byLanguage[strings.ToLower(language)]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
}

// Languages returns the registered language keys.
func (r *ParserRegistry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	langs := make([]string, 0, len(r.byLanguage))
	for l := range r.byLanguage {
		langs = append(langs, l)
	}
	return langs
}
