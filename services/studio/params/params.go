// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package params validates user-supplied node parameters against the
// declarative schema a node template publishes.
//
// Validation is accumulating: every field is checked and every failure is
// reported, so a strategy author sees all problems in one round trip instead
// of fixing them one at a time. Unknown fields are ignored; the schema is the
// contract, not a filter.
package params

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
)

// =============================================================================
// Error Kinds
// =============================================================================

// ErrorKind classifies a single parameter failure.
type ErrorKind string

const (
	// KindMissingRequired reports a required field that was not supplied.
	KindMissingRequired ErrorKind = "MISSING_REQUIRED"

	// KindWrongType reports a value whose type does not match the schema.
	KindWrongType ErrorKind = "WRONG_TYPE"

	// KindBelowMinimum reports a numeric value under the declared minimum.
	KindBelowMinimum ErrorKind = "BELOW_MINIMUM"

	// KindAboveMaximum reports a numeric value over the declared maximum.
	KindAboveMaximum ErrorKind = "ABOVE_MAXIMUM"

	// KindNotInEnum reports a string outside the declared enum set.
	KindNotInEnum ErrorKind = "NOT_IN_ENUM"
)

// FieldError describes one validation failure for one schema field.
//
// Field is the schema key, Kind the failure class, and Message a
// human-readable sentence suitable for direct display in the builder UI.
type FieldError struct {
	Field   string    `json:"field"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e FieldError) Error() string {
	return fmt.Sprintf("parameter %q: %s", e.Field, e.Message)
}

// Result holds the outcome of validating one node's parameters.
type Result struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks supplied parameter values against a template's schema.
//
// Description:
//
//	Walks every field in the schema (sorted by name so error order is
//	stable), checking presence, type, numeric bounds, and enum membership.
//	All failures are accumulated; Validate never stops at the first error.
//	Fields supplied by the caller but absent from the schema are ignored.
//	An explicit null value is treated the same as an absent field.
//
// Inputs:
//   - supplied: parameter values as decoded from JSON (numbers arrive as
//     float64, which is why integer checking tolerates integral floats).
//   - schema: the template's parameter schema. A nil or empty schema
//     accepts anything.
//
// Outputs:
//   - Result: Valid is true iff Errors is empty.
func Validate(supplied map[string]any, schema datatypes.ParameterSchema) Result {
	res := Result{Valid: true}
	if len(schema) == 0 {
		return res
	}

	fields := make([]string, 0, len(schema))
	for name := range schema {
		fields = append(fields, name)
	}
	slices.Sort(fields)

	for _, name := range fields {
		spec := schema[name]
		value, present := supplied[name]
		if !present || value == nil {
			if spec.Required {
				res.Errors = append(res.Errors, FieldError{
					Field:   name,
					Kind:    KindMissingRequired,
					Message: fmt.Sprintf("required field of type %s is missing", spec.Type),
				})
			}
			continue
		}
		res.Errors = append(res.Errors, checkField(name, spec, value)...)
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// checkField validates a single present value against its spec.
func checkField(name string, spec datatypes.FieldSpec, value any) []FieldError {
	var errs []FieldError

	switch spec.Type {
	case datatypes.FieldInteger:
		num, ok := asInteger(value)
		if !ok {
			return append(errs, wrongType(name, spec.Type, value))
		}
		errs = append(errs, checkBounds(name, spec, num)...)

	case datatypes.FieldNumber:
		num, ok := asNumber(value)
		if !ok {
			return append(errs, wrongType(name, spec.Type, value))
		}
		errs = append(errs, checkBounds(name, spec, num)...)

	case datatypes.FieldString:
		str, ok := value.(string)
		if !ok {
			return append(errs, wrongType(name, spec.Type, value))
		}
		if len(spec.Enum) > 0 && !slices.Contains(spec.Enum, str) {
			errs = append(errs, FieldError{
				Field: name,
				Kind:  KindNotInEnum,
				Message: fmt.Sprintf("value %q is not one of [%s]",
					str, strings.Join(spec.Enum, ", ")),
			})
		}

	case datatypes.FieldBoolean:
		if _, ok := value.(bool); !ok {
			errs = append(errs, wrongType(name, spec.Type, value))
		}

	default:
		// Unknown schema type in a template is a catalog defect, not a
		// user error. Surface it as a type failure so it is visible.
		errs = append(errs, FieldError{
			Field:   name,
			Kind:    KindWrongType,
			Message: fmt.Sprintf("schema declares unsupported type %q", spec.Type),
		})
	}

	return errs
}

// checkBounds applies minimum/maximum limits to a numeric value.
func checkBounds(name string, spec datatypes.FieldSpec, num float64) []FieldError {
	var errs []FieldError
	if spec.Minimum != nil && num < *spec.Minimum {
		errs = append(errs, FieldError{
			Field:   name,
			Kind:    KindBelowMinimum,
			Message: fmt.Sprintf("value %s is below minimum %s", formatNum(num), formatNum(*spec.Minimum)),
		})
	}
	if spec.Maximum != nil && num > *spec.Maximum {
		errs = append(errs, FieldError{
			Field:   name,
			Kind:    KindAboveMaximum,
			Message: fmt.Sprintf("value %s is above maximum %s", formatNum(num), formatNum(*spec.Maximum)),
		})
	}
	return errs
}

// wrongType builds the WRONG_TYPE error with the observed Go type named.
func wrongType(name string, want datatypes.FieldType, got any) FieldError {
	return FieldError{
		Field:   name,
		Kind:    KindWrongType,
		Message: fmt.Sprintf("expected %s, got %s", want, typeName(got)),
	}
}

// asInteger reports whether value is usable as an integer.
//
// JSON decoding hands every number over as float64, so an integral float64
// is accepted. A bool is rejected before any numeric coercion: languages
// that subtype bool under int would otherwise let `true` pass as 1.
func asInteger(value any) (float64, bool) {
	if _, isBool := value.(bool); isBool {
		return 0, false
	}
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		f := float64(v)
		return f, f == math.Trunc(f)
	case float64:
		return v, v == math.Trunc(v) && !math.IsInf(v, 0) && !math.IsNaN(v)
	default:
		return 0, false
	}
}

// asNumber reports whether value is usable as a general number.
// Bools are rejected here for the same reason as in asInteger.
func asNumber(value any) (float64, bool) {
	if _, isBool := value.(bool); isBool {
		return 0, false
	}
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, false
		}
		return v, true
	default:
		return 0, false
	}
}

// typeName renders the observed value's type for error messages in
// JSON vocabulary rather than Go vocabulary.
func typeName(value any) string {
	switch value.(type) {
	case bool:
		return "boolean"
	case string:
		return "string"
	case int, int32, int64, float32, float64:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", value)
	}
}

// formatNum renders a float without a trailing ".0" when it is integral.
func formatNum(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
