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
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	"github.com/AleutianAI/SapheneiaStudio/pkg/ux"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/graph"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/history"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/pipeline"
)

// DefaultValidateWorkers bounds concurrent file validation. Validation is
// CPU-light; the bound mostly caps file handles on huge globs.
const DefaultValidateWorkers = 8

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	validateJSON    bool
	validateQuiet   bool
	validateWorkers int
	validatePackDir string
)

// =============================================================================
// VALIDATE COMMAND
// =============================================================================

// runValidate validates flow files concurrently and reports per-file
// results in input order.
//
// # Exit Codes
//
//   - 0: All files valid
//   - 1: At least one file invalid
//   - 2: Error (bad pack directory, unreadable catalog)
func runValidate(cmd *cobra.Command, args []string) {
	start := time.Now()
	cfg := OutputConfig{JSON: validateJSON, Quiet: validateQuiet}
	if cfg.JSON || cfg.Quiet {
		ux.SetPlain(true)
	}

	registry, err := buildCatalog(validatePackDir)
	if err != nil {
		os.Exit(OutputResult(cfg, "validate", start, nil, false, err))
	}

	pipe, err := pipeline.New(pipeline.Config{
		Templates: registry,
		History:   history.NewMemoryStore(),
		Logger:    cliLogger(),
	})
	if err != nil {
		os.Exit(OutputResult(cfg, "validate", start, nil, false, err))
	}

	workers := validateWorkers
	if workers < 1 {
		workers = 1
	}

	ctx := context.Background()
	sem := semaphore.NewWeighted(int64(workers))
	files := make([]FlowValidation, len(args))

	spin := ux.NewProgressSpinner("Validating flows", len(args))
	if !cfg.JSON && !cfg.Quiet {
		spin.Start()
	}

	var wg sync.WaitGroup
	for i, path := range args {
		wg.Add(1)
		go func(idx int, path string) {
			defer wg.Done()
			defer spin.Increment()

			if err := sem.Acquire(ctx, 1); err != nil {
				files[idx] = FlowValidation{Path: path, Error: err.Error()}
				return
			}
			defer sem.Release(1)

			files[idx] = validateFlowFile(ctx, pipe, path)
		}(i, path)
	}
	wg.Wait()
	spin.Stop()

	result := ValidateRunResult{Files: files, Total: len(files)}
	for _, f := range files {
		if f.Valid {
			result.Valid++
		} else {
			result.Invalid++
		}
	}

	if !cfg.JSON && !cfg.Quiet {
		renderValidateRun(result)
	}

	os.Exit(OutputResult(cfg, "validate", start, result, result.Invalid > 0, nil))
}

// validateFlowFile loads one flow file and runs structural + parameter
// validation over it.
func validateFlowFile(ctx context.Context, pipe *pipeline.Pipeline, path string) FlowValidation {
	req, err := loadFlowFile(path)
	if err != nil {
		return FlowValidation{Path: path, Error: err.Error()}
	}

	report := pipe.Validate(ctx, &req.Flow, req.Parameters)
	return FlowValidation{Path: path, Valid: report.Valid, Report: report}
}

// renderValidateRun prints the human-readable per-file report.
func renderValidateRun(result ValidateRunResult) {
	ux.Title("Flow Validation")
	for _, f := range result.Files {
		switch {
		case f.Error != "":
			ux.ItemStatus(f.Path, ux.IconError, f.Error)
		case f.Valid:
			ux.ItemStatus(f.Path, ux.IconSuccess, "")
		default:
			ux.ItemStatus(f.Path, ux.IconError, firstDefect(f.Report))
		}
	}
	ux.Summary(result.Valid, result.Invalid, result.Total)
}

// firstDefect summarizes a failed report in one line for list output.
// Structural errors win over parameter errors; parameter errors are
// reported for the lexically first failing node so output is stable.
func firstDefect(report *graph.Report) string {
	if report == nil {
		return "invalid"
	}
	if len(report.Errors) > 0 {
		return report.Errors[0].Error()
	}
	if len(report.Params) > 0 {
		nodes := make([]string, 0, len(report.Params))
		for node := range report.Params {
			nodes = append(nodes, node)
		}
		sort.Strings(nodes)
		for _, node := range nodes {
			if errs := report.Params[node]; len(errs) > 0 {
				return fmt.Sprintf("node %q: %s", node, errs[0].Error())
			}
		}
	}
	return "invalid"
}
