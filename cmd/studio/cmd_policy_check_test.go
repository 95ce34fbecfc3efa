// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/SapheneiaStudio/services/studio/inspect"
)

func newTestInspector(t *testing.T) *inspect.Inspector {
	t.Helper()
	inspector, err := inspect.NewInspector()
	if err != nil {
		t.Fatalf("NewInspector failed: %v", err)
	}
	return inspector
}

func writePyFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	return path
}

// TestCheckSingleFile_Clean tests a file that passes both checks.
func TestCheckSingleFile_Clean(t *testing.T) {
	inspector := newTestInspector(t)
	path := writePyFixture(t, "clean.py", "import math\n\ndef run(ctx):\n    return math.sqrt(2.0)\n")

	got := checkSingleFile(context.Background(), inspector, path, inspect.DefaultMaxCodeSize)

	if got.Error != "" {
		t.Fatalf("Unexpected error: %s", got.Error)
	}
	if !got.SyntaxValid {
		t.Errorf("SyntaxValid = false, want true: %+v", got.SyntaxIssues)
	}
	if !got.Safe {
		t.Errorf("Safe = false, want true: %+v", got.Violations)
	}
}

// TestCheckSingleFile_ForbiddenImport tests that an os import is flagged.
func TestCheckSingleFile_ForbiddenImport(t *testing.T) {
	inspector := newTestInspector(t)
	path := writePyFixture(t, "bad.py", "import os\n\ndef run(ctx):\n    return os.getcwd()\n")

	got := checkSingleFile(context.Background(), inspector, path, inspect.DefaultMaxCodeSize)

	if got.Safe {
		t.Error("Safe = true, want false for os import")
	}
	if len(got.Violations) == 0 {
		t.Fatal("Expected violations for os import")
	}

	found := false
	for _, v := range got.Violations {
		if v.Rule == "forbidden-import" && v.Target == "os" {
			found = true
		}
	}
	if !found {
		t.Errorf("No forbidden-import violation for os: %+v", got.Violations)
	}
}

// TestCheckSingleFile_SyntaxError tests that unparsable code reports
// syntax issues and the uniform invalid-syntax security result.
func TestCheckSingleFile_SyntaxError(t *testing.T) {
	inspector := newTestInspector(t)
	path := writePyFixture(t, "broken.py", "def broken(:\n    pass\n")

	got := checkSingleFile(context.Background(), inspector, path, inspect.DefaultMaxCodeSize)

	if got.SyntaxValid {
		t.Error("SyntaxValid = true, want false")
	}
	if len(got.SyntaxIssues) == 0 {
		t.Error("Expected syntax issues")
	}
	if got.Safe {
		t.Error("Safe = true, want false for unparsable code")
	}
}

// TestCheckSingleFile_SkipsOversized tests the size cap.
func TestCheckSingleFile_SkipsOversized(t *testing.T) {
	inspector := newTestInspector(t)
	path := writePyFixture(t, "big.py", "import math\n")

	got := checkSingleFile(context.Background(), inspector, path, 4)

	if !got.Skipped {
		t.Error("Skipped = false, want true for oversized file")
	}
	if got.Error != "" {
		t.Errorf("Unexpected error: %s", got.Error)
	}
}

// TestCheckSingleFile_MissingFile tests the unreadable-file path.
func TestCheckSingleFile_MissingFile(t *testing.T) {
	inspector := newTestInspector(t)

	got := checkSingleFile(context.Background(), inspector,
		filepath.Join(t.TempDir(), "gone.py"), inspect.DefaultMaxCodeSize)

	if got.Error == "" {
		t.Error("Expected error for missing file")
	}
}

// TestCheckFilesParallel_PreservesOrder tests that results line up with
// the argument order regardless of worker scheduling.
func TestCheckFilesParallel_PreservesOrder(t *testing.T) {
	inspector := newTestInspector(t)

	files := make([]string, 8)
	for i := range files {
		content := "import math\n"
		if i%2 == 1 {
			content = "import os\n"
		}
		files[i] = writePyFixture(t, "strategy.py", content)
	}

	results := checkFilesParallel(context.Background(), inspector, files, 3, inspect.DefaultMaxCodeSize)

	if len(results) != len(files) {
		t.Fatalf("Results = %d, want %d", len(results), len(files))
	}
	for i, r := range results {
		if r.Path != files[i] {
			t.Errorf("results[%d].Path = %s, want %s", i, r.Path, files[i])
		}
		wantSafe := i%2 == 0
		if r.Safe != wantSafe {
			t.Errorf("results[%d].Safe = %v, want %v", i, r.Safe, wantSafe)
		}
	}
}
