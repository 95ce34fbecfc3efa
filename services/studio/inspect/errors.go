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

import "errors"

var (
	// ErrEmptyCode is returned for empty or whitespace-only input. It is
	// a dedicated condition, not a parse failure: the parser never runs.
	ErrEmptyCode = errors.New("code is empty or contains only whitespace")

	// ErrCodeTooLarge is returned when input exceeds the parser's size cap.
	ErrCodeTooLarge = errors.New("code exceeds maximum size limit")

	// ErrInvalidEncoding is returned when input is not valid UTF-8.
	ErrInvalidEncoding = errors.New("code is not valid UTF-8")

	// ErrUnsupportedLanguage is returned when no parser is registered for
	// the requested language.
	ErrUnsupportedLanguage = errors.New("no parser registered for language")

	// ErrParseFailed is returned when the parser produced no tree at all.
	// Syntactically broken code does NOT hit this: tree-sitter returns an
	// error-tolerant tree that the syntax walk inspects.
	ErrParseFailed = errors.New("parser returned no syntax tree")
)
