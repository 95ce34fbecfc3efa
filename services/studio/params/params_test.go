// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package params

import (
	"testing"

	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
)

func fp(v float64) *float64 { return &v }

// rsiSchema mirrors a typical indicator template: a bounded required
// integer plus an optional enum string.
func rsiSchema() datatypes.ParameterSchema {
	return datatypes.ParameterSchema{
		"period": {
			Type:     datatypes.FieldInteger,
			Required: true,
			Minimum:  fp(1),
			Maximum:  fp(500),
		},
		"source": {
			Type: datatypes.FieldString,
			Enum: []string{"close", "open", "high", "low"},
		},
		"smoothed": {
			Type: datatypes.FieldBoolean,
		},
	}
}

func TestValidate_HappyPath(t *testing.T) {
	res := Validate(map[string]any{
		"period":   float64(14),
		"source":   "close",
		"smoothed": true,
	}, rsiSchema())

	if !res.Valid {
		t.Fatalf("expected valid result, got errors: %v", res.Errors)
	}
	if len(res.Errors) != 0 {
		t.Errorf("expected no errors, got %d", len(res.Errors))
	}
}

func TestValidate_EmptySchemaAcceptsAnything(t *testing.T) {
	res := Validate(map[string]any{"whatever": []any{1, 2}}, nil)
	if !res.Valid {
		t.Fatalf("nil schema should accept anything, got %v", res.Errors)
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	res := Validate(map[string]any{"source": "close"}, rsiSchema())

	if res.Valid {
		t.Fatal("expected invalid result for missing required field")
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d: %v", len(res.Errors), res.Errors)
	}
	if res.Errors[0].Field != "period" || res.Errors[0].Kind != KindMissingRequired {
		t.Errorf("unexpected error: %+v", res.Errors[0])
	}
}

func TestValidate_NullTreatedAsAbsent(t *testing.T) {
	res := Validate(map[string]any{"period": nil}, rsiSchema())

	if res.Valid {
		t.Fatal("explicit null for a required field must fail")
	}
	if res.Errors[0].Kind != KindMissingRequired {
		t.Errorf("expected MISSING_REQUIRED, got %s", res.Errors[0].Kind)
	}

	// Null for an optional field is fine.
	res = Validate(map[string]any{"period": float64(14), "source": nil}, rsiSchema())
	if !res.Valid {
		t.Errorf("null optional field should pass, got %v", res.Errors)
	}
}

func TestValidate_TypeChecks(t *testing.T) {
	tests := []struct {
		name     string
		supplied map[string]any
		wantKind ErrorKind
	}{
		{
			name:     "string for integer",
			supplied: map[string]any{"period": "14"},
			wantKind: KindWrongType,
		},
		{
			name:     "bool never passes as integer",
			supplied: map[string]any{"period": true},
			wantKind: KindWrongType,
		},
		{
			name:     "fractional float for integer",
			supplied: map[string]any{"period": 14.5},
			wantKind: KindWrongType,
		},
		{
			name:     "number for string",
			supplied: map[string]any{"period": float64(14), "source": 3.0},
			wantKind: KindWrongType,
		},
		{
			name:     "string for boolean",
			supplied: map[string]any{"period": float64(14), "smoothed": "yes"},
			wantKind: KindWrongType,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Validate(tc.supplied, rsiSchema())
			if res.Valid {
				t.Fatal("expected validation failure")
			}
			if res.Errors[0].Kind != tc.wantKind {
				t.Errorf("expected kind %s, got %s (%s)",
					tc.wantKind, res.Errors[0].Kind, res.Errors[0].Message)
			}
		})
	}
}

func TestValidate_IntegralFloatPassesAsInteger(t *testing.T) {
	// JSON decoding always produces float64; 14.0 must count as an integer.
	res := Validate(map[string]any{"period": 14.0}, rsiSchema())
	if !res.Valid {
		t.Errorf("integral float64 should pass integer check: %v", res.Errors)
	}
}

func TestValidate_Bounds(t *testing.T) {
	tests := []struct {
		name     string
		period   float64
		wantKind ErrorKind
	}{
		{"below minimum", -5, KindBelowMinimum},
		{"above maximum", 501, KindAboveMaximum},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Validate(map[string]any{"period": tc.period}, rsiSchema())
			if res.Valid {
				t.Fatal("expected bound violation")
			}
			if res.Errors[0].Kind != tc.wantKind {
				t.Errorf("expected %s, got %+v", tc.wantKind, res.Errors[0])
			}
		})
	}
}

func TestValidate_EnumMembership(t *testing.T) {
	res := Validate(map[string]any{
		"period": float64(14),
		"source": "median",
	}, rsiSchema())

	if res.Valid {
		t.Fatal("expected enum violation")
	}
	if res.Errors[0].Kind != KindNotInEnum {
		t.Errorf("expected NOT_IN_ENUM, got %+v", res.Errors[0])
	}
}

func TestValidate_UnknownFieldsIgnored(t *testing.T) {
	res := Validate(map[string]any{
		"period":      float64(14),
		"extra_knob":  "whatever",
		"another_one": 99,
	}, rsiSchema())

	if !res.Valid {
		t.Errorf("unknown fields must be ignored, got %v", res.Errors)
	}
}

func TestValidate_AccumulatesAllErrors(t *testing.T) {
	res := Validate(map[string]any{
		"source":   "median",
		"smoothed": "yes",
	}, rsiSchema())

	if res.Valid {
		t.Fatal("expected failures")
	}
	// Missing period, bad enum, bad bool: all three reported at once.
	if len(res.Errors) != 3 {
		t.Fatalf("expected 3 accumulated errors, got %d: %v", len(res.Errors), res.Errors)
	}

	// Sorted field order keeps error output deterministic.
	wantFields := []string{"period", "smoothed", "source"}
	for i, want := range wantFields {
		if res.Errors[i].Field != want {
			t.Errorf("error %d: expected field %s, got %s", i, want, res.Errors[i].Field)
		}
	}
}

func TestValidate_NumberFieldAcceptsFraction(t *testing.T) {
	schema := datatypes.ParameterSchema{
		"threshold": {Type: datatypes.FieldNumber, Required: true, Minimum: fp(0), Maximum: fp(1)},
	}

	res := Validate(map[string]any{"threshold": 0.35}, schema)
	if !res.Valid {
		t.Errorf("fractional number should pass: %v", res.Errors)
	}

	res = Validate(map[string]any{"threshold": true}, schema)
	if res.Valid || res.Errors[0].Kind != KindWrongType {
		t.Errorf("bool must not pass as number: %+v", res.Errors)
	}
}

func TestFieldError_ErrorString(t *testing.T) {
	err := FieldError{Field: "period", Kind: KindBelowMinimum, Message: "value -5 is below minimum 1"}
	want := `parameter "period": value -5 is below minimum 1`
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}
