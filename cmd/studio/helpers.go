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
	"log/slog"
	"os"

	"github.com/AleutianAI/SapheneiaStudio/pkg/logging"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/catalog"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
)

// cliLogger returns a logger for local commands. Warnings and errors only:
// command output belongs to ux/JSON rendering, not the log stream.
func cliLogger() *slog.Logger {
	return logging.New(logging.Config{
		Level:   logging.LevelWarn,
		Service: "studio-cli",
	}).Slog()
}

// buildCatalog creates a registry over the embedded catalog, optionally
// extended with a pack directory.
func buildCatalog(packDir string) (*catalog.Registry, error) {
	registry, err := catalog.NewRegistry(cliLogger())
	if err != nil {
		return nil, err
	}
	if packDir != "" {
		if err := registry.LoadPackDir(packDir); err != nil {
			return nil, fmt.Errorf("load pack directory %s: %w", packDir, err)
		}
	}
	return registry, nil
}

// loadFlowFile reads and checks a flow file. The file holds the same JSON
// document the editor submits: {"flow": {...}, "parameters": {...}}.
func loadFlowFile(path string) (*datatypes.ValidateFlowRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var req datatypes.ValidateFlowRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &req, nil
}
