// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package catalog

import (
	"fmt"

	"golang.org/x/mod/semver"

	"github.com/AleutianAI/SapheneiaStudio/pkg/validation"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/params"
)

// ValidateTemplate checks a template definition for publishability.
//
// Description:
//
//	A template that passes here can be served to graph validation and code
//	generation without further defensive checks: the id is key-safe, the
//	kind is known, the version is semver, every port name is a Python
//	identifier, and each schema field is internally consistent (bounds only
//	on numeric fields, enums only on strings, declared defaults that
//	satisfy their own spec).
//
// Inputs:
//   - t: the template to check. Must be non-nil.
//
// Outputs:
//   - error: nil when publishable; otherwise the first violation found,
//     always prefixed with the template id when one exists.
func ValidateTemplate(t *datatypes.NodeTemplate) error {
	if t == nil {
		return fmt.Errorf("template is nil")
	}
	if err := validation.ValidateIdentifier(t.ID); err != nil {
		return fmt.Errorf("template id: %w", err)
	}
	if !t.Kind.IsValid() {
		return fmt.Errorf("template %q: unknown kind %q", t.ID, t.Kind)
	}
	if t.Version == "" {
		return fmt.Errorf("template %q: version is required", t.ID)
	}
	// x/mod/semver wants the canonical "v" prefix; catalog versions omit it.
	if !semver.IsValid("v" + t.Version) {
		return fmt.Errorf("template %q: version %q is not valid semver", t.ID, t.Version)
	}

	if err := validatePorts(t.ID, "input", t.InputPorts); err != nil {
		return err
	}
	if err := validatePorts(t.ID, "output", t.OutputPorts); err != nil {
		return err
	}

	for name, spec := range t.ParameterSchema {
		if err := validateFieldSpec(name, spec); err != nil {
			return fmt.Errorf("template %q: field %q: %w", t.ID, name, err)
		}
	}
	return nil
}

// validatePorts checks one side's port list for valid, unique names.
func validatePorts(templateID, side string, ports []datatypes.PortSpec) error {
	seen := make(map[string]bool, len(ports))
	for _, p := range ports {
		if err := validation.ValidatePortName(p.Name); err != nil {
			return fmt.Errorf("template %q: %s port: %w", templateID, side, err)
		}
		if seen[p.Name] {
			return fmt.Errorf("template %q: duplicate %s port %q", templateID, side, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// validateFieldSpec checks one schema field for internal consistency.
func validateFieldSpec(name string, spec datatypes.FieldSpec) error {
	if !spec.Type.IsValid() {
		return fmt.Errorf("unsupported type %q", spec.Type)
	}

	numeric := spec.Type == datatypes.FieldInteger || spec.Type == datatypes.FieldNumber
	if !numeric && (spec.Minimum != nil || spec.Maximum != nil) {
		return fmt.Errorf("bounds declared on non-numeric type %s", spec.Type)
	}
	if spec.Minimum != nil && spec.Maximum != nil && *spec.Minimum > *spec.Maximum {
		return fmt.Errorf("minimum %g exceeds maximum %g", *spec.Minimum, *spec.Maximum)
	}
	if len(spec.Enum) > 0 && spec.Type != datatypes.FieldString {
		return fmt.Errorf("enum declared on non-string type %s", spec.Type)
	}

	// A declared default must satisfy the spec it belongs to, otherwise a
	// node that omits the field would render an out-of-contract value.
	if spec.Default != nil {
		probe := datatypes.ParameterSchema{name: spec}
		if res := params.Validate(map[string]any{name: spec.Default}, probe); !res.Valid {
			return fmt.Errorf("default %v violates the field's own spec: %s",
				spec.Default, res.Errors[0].Message)
		}
	}
	return nil
}
