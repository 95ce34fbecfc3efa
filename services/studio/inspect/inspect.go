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
)

// Result pairs both checks for callers that want the full picture at once.
type Result struct {
	Syntax   *SyntaxResult   `json:"syntax"`
	Security *SecurityResult `json:"security"`
}

// Clean reports whether the code passed both checks.
func (r *Result) Clean() bool {
	return r.Syntax != nil && r.Syntax.Valid &&
		r.Security != nil && r.Security.IsSafe
}

// Inspector bundles the syntax and security checkers over one shared
// parser registry.
//
// Thread Safety: safe for concurrent use.
type Inspector struct {
	syntax   *SyntaxChecker
	security *SecurityChecker
}

// NewInspector builds an inspector with the default parser registry and
// the embedded import policy.
func NewInspector() (*Inspector, error) {
	registry := DefaultRegistry()
	security, err := NewSecurityChecker(registry)
	if err != nil {
		return nil, err
	}
	return &Inspector{
		syntax:   NewSyntaxChecker(registry),
		security: security,
	}, nil
}

// CheckSyntax runs only the syntax check.
func (i *Inspector) CheckSyntax(ctx context.Context, code string) (*SyntaxResult, error) {
	return i.syntax.Check(ctx, code)
}

// CheckSecurity runs the security check. When syntaxValid is false the
// parse is skipped and the uniform invalid-syntax result is returned, so
// the response shape never depends on whether the code parsed.
func (i *Inspector) CheckSecurity(ctx context.Context, code string, syntaxValid bool) (*SecurityResult, error) {
	if !syntaxValid {
		return i.security.InvalidSyntaxResult(), nil
	}
	return i.security.Check(ctx, code)
}

// Inspect runs syntax then security and returns both results. Empty code
// is reported through the results, not as an error.
func (i *Inspector) Inspect(ctx context.Context, code string) (*Result, error) {
	syntaxRes, err := i.syntax.Check(ctx, code)
	if err != nil && !errors.Is(err, ErrEmptyCode) {
		return nil, err
	}

	securityRes, err := i.CheckSecurity(ctx, code, syntaxRes.Valid)
	if err != nil {
		return nil, err
	}

	return &Result{Syntax: syntaxRes, Security: securityRes}, nil
}

// Policy exposes the active import policy.
func (i *Inspector) Policy() *ImportPolicy {
	return i.security.Policy()
}
