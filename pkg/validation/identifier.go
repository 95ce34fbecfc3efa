// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided identifiers that end up
// in storage keys, file names, or generated source text. Using these
// validators prevents injection attacks (key-prefix forgery, path traversal,
// source-text injection through identifier fields).
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierPattern matches node, template, and instance identifiers.
// Allows: letters, digits, underscores, hyphens, dots. Must start with a
// letter or digit. Max length: 64 characters.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]{0,63}$`)

// portNamePattern matches port names declared on node templates.
// Python-identifier shaped because port names appear in generated source.
var portNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,31}$`)

// ValidateIdentifier validates a node, template, or instance identifier.
//
// Valid identifiers:
//   - 1-64 characters
//   - Letters, digits, underscores, dots, hyphens
//   - First character is a letter or digit
//
// Returns an error describing the constraint if the identifier is invalid.
//
// Example:
//
//	if err := validation.ValidateIdentifier(nodeID); err != nil {
//	    return fmt.Errorf("invalid node id: %w", err)
//	}
//	// Safe to use in a badger key or log attribute
func ValidateIdentifier(id string) error {
	if id == "" {
		return fmt.Errorf("identifier cannot be empty")
	}

	if !identifierPattern.MatchString(id) {
		return fmt.Errorf("invalid identifier format: %q (must be 1-64 alphanumeric chars, underscores, dots, or hyphens, starting alphanumeric)", id)
	}

	return nil
}

// ValidateIdentifiers validates multiple identifiers.
// Returns an error listing every invalid identifier if any fail.
func ValidateIdentifiers(ids []string) error {
	var invalid []string
	for _, id := range ids {
		if err := ValidateIdentifier(id); err != nil {
			invalid = append(invalid, id)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid identifiers: %v", invalid)
	}
	return nil
}

// ValidatePortName validates a template port name. Port names are rendered
// into generated Python source, so they are restricted to lowercase
// Python-identifier shape (max 32 characters).
func ValidatePortName(name string) error {
	if name == "" {
		return fmt.Errorf("port name cannot be empty")
	}

	if !portNamePattern.MatchString(name) {
		return fmt.Errorf("invalid port name: %q (must be 1-32 lowercase alphanumeric or underscore chars, starting with a letter or underscore)", name)
	}

	return nil
}

// SanitizeIdentifier trims whitespace and validates the result.
// Returns the trimmed identifier if valid, or an error.
//
// Use this on identifiers arriving from HTTP path segments:
//
//	instanceID, err := validation.SanitizeIdentifier(c.Param("instance_id"))
//	if err != nil {
//	    return err
//	}
func SanitizeIdentifier(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if err := ValidateIdentifier(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}
