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
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/AleutianAI/SapheneiaStudio/services/studio/graph"
)

// Exit codes for CLI commands.
const (
	CLIExitSuccess  = 0 // Operation completed successfully
	CLIExitFindings = 1 // Operation completed with findings/violations
	CLIExitError    = 2 // Operation failed
)

// OutputConfig controls output behavior.
type OutputConfig struct {
	JSON    bool // Output as JSON
	Compact bool // No indentation
	Quiet   bool // No output, exit code only
}

// CommandResult wraps command output with metadata.
type CommandResult struct {
	APIVersion string      `json:"api_version"`
	Command    string      `json:"command"`
	Timestamp  time.Time   `json:"timestamp"`
	DurationMs int64       `json:"duration_ms"`
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// OutputJSON writes structured data as JSON to stdout.
//
// # Inputs
//
//   - data: The data to encode. Must be JSON-serializable.
//   - compact: If true, output without indentation.
//
// # Outputs
//
//   - error: Non-nil if encoding fails.
func OutputJSON(data interface{}, compact bool) error {
	encoder := json.NewEncoder(os.Stdout)
	if !compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// OutputError writes an error in the appropriate format.
//
// # Inputs
//
//   - jsonMode: If true, output as JSON to stdout.
//   - msg: Human-readable error message.
//   - err: The underlying error.
func OutputError(jsonMode bool, msg string, err error) {
	if jsonMode {
		result := CommandResult{
			APIVersion: "1.0",
			Timestamp:  time.Now(),
			Success:    false,
			Error:      fmt.Sprintf("%s: %v", msg, err),
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		encoder.Encode(result)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	}
}

// OutputResult handles all output scenarios with proper formatting.
//
// # Inputs
//
//   - cfg: Output configuration.
//   - cmd: Command name for metadata.
//   - start: Start time for duration calculation.
//   - data: The data to output.
//   - hasFindings: Whether the operation found issues (for exit code).
//   - err: Any error that occurred.
//
// # Outputs
//
//   - int: The exit code to use.
func OutputResult(cfg OutputConfig, cmd string, start time.Time, data interface{}, hasFindings bool, err error) int {
	if cfg.Quiet {
		if err != nil {
			return CLIExitError
		}
		if hasFindings {
			return CLIExitFindings
		}
		return CLIExitSuccess
	}

	if err != nil {
		OutputError(cfg.JSON, "Command failed", err)
		return CLIExitError
	}

	if cfg.JSON {
		result := CommandResult{
			APIVersion: "1.0",
			Command:    cmd,
			Timestamp:  time.Now(),
			DurationMs: time.Since(start).Milliseconds(),
			Success:    true,
			Data:       data,
		}
		if encErr := OutputJSON(result, cfg.Compact); encErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", encErr)
			return CLIExitError
		}
	}

	if hasFindings {
		return CLIExitFindings
	}
	return CLIExitSuccess
}

// FlowValidation holds the outcome for one validated flow file.
type FlowValidation struct {
	Path   string        `json:"path"`
	Valid  bool          `json:"valid"`
	Report *graph.Report `json:"report,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// ValidateRunResult holds the aggregate outcome of a validate run.
type ValidateRunResult struct {
	Files   []FlowValidation `json:"files"`
	Valid   int              `json:"valid"`
	Invalid int              `json:"invalid"`
	Total   int              `json:"total"`
}

// GenerateFileResult holds generation output for one flow file.
type GenerateFileResult struct {
	Input        string        `json:"input"`
	Output       string        `json:"output,omitempty"`
	RecordID     string        `json:"record_id"`
	CodeHash     string        `json:"code_hash"`
	Status       string        `json:"status"`
	SizeBytes    int           `json:"size_bytes"`
	Deduplicated bool          `json:"deduplicated"`
	Report       *graph.Report `json:"report,omitempty"`
}

// CatalogListResult holds catalog list output.
type CatalogListResult struct {
	Templates []CatalogRow `json:"templates"`
	Count     int          `json:"count"`
	System    int          `json:"system"`
	Pack      int          `json:"pack"`
}

// CatalogRow represents one template in list output.
type CatalogRow struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	System  bool   `json:"system"`
}

// PolicyShowResult holds import policy display output.
type PolicyShowResult struct {
	Hash           string `json:"hash"`
	ByteSize       int    `json:"byte_size"`
	Version        string `json:"version,omitempty"`
	AllowedModules int    `json:"allowed_modules"`
	ForbiddenCount int    `json:"forbidden_modules"`
	Content        string `json:"content,omitempty"`
}
