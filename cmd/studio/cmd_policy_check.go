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
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/inspect"
)

// =============================================================================
// CONSTANTS AND TYPES
// =============================================================================

// Default values.
const (
	DefaultCheckWorkers = 4
	checkTimeout        = 5 * time.Minute
)

// PolicyCheckFile is the per-file outcome of a policy check.
type PolicyCheckFile struct {
	Path         string                        `json:"path"`
	SyntaxValid  bool                          `json:"syntax_valid"`
	Safe         bool                          `json:"safe"`
	Violations   []datatypes.SecurityViolation `json:"violations,omitempty"`
	SyntaxIssues []datatypes.SyntaxIssue       `json:"syntax_issues,omitempty"`
	Skipped      bool                          `json:"skipped,omitempty"`
	Error        string                        `json:"error,omitempty"`
}

// PolicyCheckResult holds the results of a policy check run.
type PolicyCheckResult struct {
	Files          []PolicyCheckFile `json:"files"`
	FilesScanned   int               `json:"files_scanned"`
	FilesSkipped   int               `json:"files_skipped"`
	ViolationCount int               `json:"violation_count"`
	SyntaxErrors   int               `json:"syntax_errors"`
	PatternVersion string            `json:"pattern_version,omitempty"`
	PolicyVersion  string            `json:"policy_version,omitempty"`
	DurationMs     int64             `json:"duration_ms"`
}

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	policyCheckJSON        bool
	policyCheckQuiet       bool
	policyCheckMaxFileSize int64
	policyCheckWorkers     int
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var policyCheckCmd = &cobra.Command{
	Use:   "check [strategy.py...]",
	Short: "Check Python files against the embedded import policy",
	Long: `Check runs the same security and syntax inspection that every generated
strategy goes through: tree-sitter parsing, import policy enforcement,
and the dangerous-call database. Use it to vet hand-edited strategy
files before deploying them next to generated ones.

Examples:
  studio policy check strategy.py
  studio policy check build/*.py --json
  studio policy check strategy.py --quiet && deploy.sh

Exit Codes:
  0 = All files passed
  1 = Violations or syntax errors found
  2 = Error (unreadable file, inspector failure)`,
	Args: cobra.MinimumNArgs(1),
	Run:  runPolicyCheck,
}

func init() {
	policyCheckCmd.Flags().BoolVar(&policyCheckJSON, "json", false,
		"Output as JSON")
	policyCheckCmd.Flags().BoolVar(&policyCheckQuiet, "quiet", false,
		"Only exit code, no output")
	policyCheckCmd.Flags().Int64Var(&policyCheckMaxFileSize, "max-file-size", inspect.DefaultMaxCodeSize,
		"Skip files larger than this size in bytes")
	policyCheckCmd.Flags().IntVar(&policyCheckWorkers, "workers", DefaultCheckWorkers,
		"Number of parallel workers")

	// Add to policy command
	policyCmd.AddCommand(policyCheckCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runPolicyCheck(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	start := time.Now()

	inspector, err := inspect.NewInspector()
	if err != nil {
		outputPolicyCheckError("Failed to initialize inspector", err)
		os.Exit(CLIExitError)
	}

	workers := policyCheckWorkers
	if workers <= 0 {
		workers = DefaultCheckWorkers
	}

	result := &PolicyCheckResult{
		Files:          checkFilesParallel(ctx, inspector, args, workers, policyCheckMaxFileSize),
		PatternVersion: inspect.PatternVersion,
		PolicyVersion:  inspector.Policy().Version,
	}

	hadError := false
	for _, f := range result.Files {
		switch {
		case f.Error != "":
			hadError = true
		case f.Skipped:
			result.FilesSkipped++
		default:
			result.FilesScanned++
		}
		result.ViolationCount += len(f.Violations)
		result.SyntaxErrors += len(f.SyntaxIssues)
	}
	result.DurationMs = time.Since(start).Milliseconds()

	if !policyCheckQuiet {
		if policyCheckJSON {
			if err := OutputJSON(result, false); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
				os.Exit(CLIExitError)
			}
		} else {
			outputPolicyCheckText(result)
		}
	}

	if hadError {
		os.Exit(CLIExitError)
	}
	if result.ViolationCount > 0 || result.SyntaxErrors > 0 {
		os.Exit(CLIExitFindings)
	}
	os.Exit(CLIExitSuccess)
}

// =============================================================================
// PARALLEL INSPECTION
// =============================================================================

// checkFilesParallel inspects files over a bounded worker pool and returns
// outcomes in argument order.
func checkFilesParallel(
	ctx context.Context,
	inspector *inspect.Inspector,
	files []string,
	workers int,
	maxSize int64,
) []PolicyCheckFile {
	var (
		wg       sync.WaitGroup
		results  = make([]PolicyCheckFile, len(files))
		fileChan = make(chan int, workers*2)
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case idx, ok := <-fileChan:
					if !ok {
						return
					}
					results[idx] = checkSingleFile(ctx, inspector, files[idx], maxSize)
				}
			}
		}()
	}

	for i := range files {
		select {
		case <-ctx.Done():
		case fileChan <- i:
			continue
		}
		break
	}
	close(fileChan)

	wg.Wait()
	return results
}

func checkSingleFile(ctx context.Context, inspector *inspect.Inspector, path string, maxSize int64) PolicyCheckFile {
	out := PolicyCheckFile{Path: path}

	info, err := os.Stat(path)
	if err != nil {
		out.Error = fmt.Sprintf("cannot stat: %v", err)
		return out
	}
	if info.Size() > maxSize {
		out.Skipped = true
		return out
	}

	content, err := os.ReadFile(path)
	if err != nil {
		out.Error = fmt.Sprintf("cannot read: %v", err)
		return out
	}

	res, err := inspector.Inspect(ctx, string(content))
	if err != nil {
		out.Error = fmt.Sprintf("inspection failed: %v", err)
		return out
	}

	out.SyntaxValid = res.Syntax.Valid
	out.SyntaxIssues = res.Syntax.Issues
	out.Safe = res.Security.IsSafe
	out.Violations = res.Security.Violations
	return out
}

// =============================================================================
// OUTPUT FUNCTIONS
// =============================================================================

func outputPolicyCheckError(msg string, err error) {
	if policyCheckJSON {
		OutputError(true, msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	}
}

func outputPolicyCheckText(result *PolicyCheckResult) {
	fmt.Println("Policy Check Results")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println()

	fmt.Printf("Files scanned: %d\n", result.FilesScanned)
	fmt.Printf("Files skipped: %d\n", result.FilesSkipped)
	fmt.Printf("Violations found: %d\n", result.ViolationCount)
	fmt.Printf("Syntax errors: %d\n", result.SyntaxErrors)
	fmt.Println()

	if result.ViolationCount == 0 && result.SyntaxErrors == 0 {
		fmt.Println("All files passed.")
		return
	}

	for _, f := range result.Files {
		if f.Error != "" {
			fmt.Printf("%-8s  %s\n", "ERROR", f.Path)
			fmt.Printf("          %s\n", f.Error)
			fmt.Println()
			continue
		}
		for _, issue := range f.SyntaxIssues {
			fmt.Printf("%-8s  %s:%d\n", "SYNTAX", f.Path, issue.Line)
			fmt.Printf("          %s\n", issue.Message)
			if issue.Suggestion != "" {
				fmt.Printf("          Suggestion: %s\n", issue.Suggestion)
			}
			fmt.Println()
		}
		for _, v := range f.Violations {
			fmt.Printf("%-8s  %s:%d\n", string(v.Severity), f.Path, v.Line)
			fmt.Printf("          %s\n", v.Message)
			fmt.Printf("          Rule: %s  Target: %s\n", v.Rule, v.Target)
			fmt.Println()
		}
	}

	fmt.Printf("Checked against pattern %s / policy %s in %dms\n",
		result.PatternVersion, result.PolicyVersion, result.DurationMs)
}
