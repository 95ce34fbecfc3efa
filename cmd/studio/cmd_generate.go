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
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/SapheneiaStudio/pkg/ux"
	"github.com/AleutianAI/SapheneiaStudio/pkg/validation"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/history"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/pipeline"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	generateOut      string
	generateInstance string
	generateJSON     bool
	generatePackDir  string
)

// =============================================================================
// GENERATE COMMAND
// =============================================================================

// runGenerate runs the full pipeline over one flow file and writes the
// generated Python artifact.
//
// The .py file is written only for a VALID artifact. A generation that
// trips the security or syntax inspection is persisted in the run's
// history record but never lands on disk.
//
// # Exit Codes
//
//   - 0: Artifact generated and written
//   - 1: Flow rejected or artifact blocked by inspection
//   - 2: Error (unreadable input, generation failure)
func runGenerate(cmd *cobra.Command, args []string) {
	start := time.Now()
	cfg := OutputConfig{JSON: generateJSON}
	if cfg.JSON {
		ux.SetPlain(true)
	}

	if err := validation.ValidateIdentifier(generateInstance); err != nil {
		os.Exit(OutputResult(cfg, "generate", start, nil, false, fmt.Errorf("invalid --instance: %w", err)))
	}

	registry, err := buildCatalog(generatePackDir)
	if err != nil {
		os.Exit(OutputResult(cfg, "generate", start, nil, false, err))
	}

	pipe, err := pipeline.New(pipeline.Config{
		Templates: registry,
		History:   history.NewMemoryStore(),
		Logger:    cliLogger(),
	})
	if err != nil {
		os.Exit(OutputResult(cfg, "generate", start, nil, false, err))
	}

	input := args[0]
	req, err := loadFlowFile(input)
	if err != nil {
		os.Exit(OutputResult(cfg, "generate", start, nil, false, err))
	}

	spin := ux.NewSpinner("Generating strategy")
	if !cfg.JSON {
		spin.Start()
	}
	outcome, report, err := pipe.Run(context.Background(), &pipeline.Request{
		InstanceID: generateInstance,
		Flow:       &req.Flow,
		Parameters: req.Parameters,
	})
	spin.Stop()
	if err != nil {
		os.Exit(OutputResult(cfg, "generate", start, nil, false, err))
	}

	if outcome == nil {
		// The flow never reached generation.
		result := GenerateFileResult{Input: input, Status: "REJECTED", Report: report}
		if !cfg.JSON {
			ux.Error(fmt.Sprintf("%s: %s", input, firstDefect(report)))
		}
		os.Exit(OutputResult(cfg, "generate", start, result, true, nil))
	}

	record := outcome.Record
	result := GenerateFileResult{
		Input:        input,
		RecordID:     record.RecordID,
		CodeHash:     record.CodeHash,
		Status:       string(record.ValidationStatus),
		SizeBytes:    len(record.GeneratedCode),
		Deduplicated: outcome.Deduplicated,
		Report:       report,
	}

	if record.ValidationStatus != datatypes.StatusValid {
		if !cfg.JSON {
			ux.Error(fmt.Sprintf("%s: artifact blocked (%s)", input, record.ValidationStatus))
			for _, v := range record.Violations {
				ux.ItemStatus(v.Target, ux.IconError, v.Message)
			}
			for _, issue := range record.SyntaxIssues {
				ux.ItemStatus(fmt.Sprintf("line %d", issue.Line), ux.IconError, issue.Message)
			}
		}
		os.Exit(OutputResult(cfg, "generate", start, result, true, nil))
	}

	outPath := generateOut
	if outPath == "" {
		outPath = strings.TrimSuffix(input, ".json") + ".py"
	}
	if err := os.WriteFile(outPath, []byte(record.GeneratedCode), 0o644); err != nil {
		os.Exit(OutputResult(cfg, "generate", start, nil, false, err))
	}
	result.Output = outPath

	if !cfg.JSON {
		ux.Success(fmt.Sprintf("Generated %s", outPath))
		ux.Info(fmt.Sprintf("record %s  sha256 %s", record.RecordID, record.CodeHash))
		if outcome.Deduplicated {
			ux.Muted("served from history (identical flow already generated)")
		}
	}
	os.Exit(OutputResult(cfg, "generate", start, result, false, nil))
}
