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
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/SapheneiaStudio/pkg/ux"
	"github.com/AleutianAI/SapheneiaStudio/pkg/validation"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
)

var (
	catalogJSON    bool
	catalogPackDir string
)

// runCatalogList prints every template the generator can resolve: the
// embedded system catalog plus any packs loaded via --packs.
func runCatalogList(cmd *cobra.Command, args []string) {
	start := time.Now()
	cfg := OutputConfig{JSON: catalogJSON}
	if cfg.JSON {
		ux.SetPlain(true)
	}

	registry, err := buildCatalog(catalogPackDir)
	if err != nil {
		os.Exit(OutputResult(cfg, "catalog list", start, nil, false, err))
	}

	templates, err := registry.ListTemplates(cmd.Context())
	if err != nil {
		os.Exit(OutputResult(cfg, "catalog list", start, nil, false, err))
	}

	system, pack := registry.Counts()
	result := CatalogListResult{
		Templates: make([]CatalogRow, 0, len(templates)),
		Count:     len(templates),
		System:    system,
		Pack:      pack,
	}
	for _, t := range templates {
		result.Templates = append(result.Templates, CatalogRow{
			ID:      t.ID,
			Kind:    string(t.Kind),
			Name:    t.Name,
			Version: t.Version,
			System:  t.System,
		})
	}

	if !cfg.JSON {
		renderCatalogList(result)
	}
	os.Exit(OutputResult(cfg, "catalog list", start, result, false, nil))
}

// runCatalogShow prints a single template with its full parameter schema,
// ports, and render hints.
func runCatalogShow(cmd *cobra.Command, args []string) {
	start := time.Now()
	cfg := OutputConfig{JSON: catalogJSON}
	if cfg.JSON {
		ux.SetPlain(true)
	}

	templateID := args[0]
	if err := validation.ValidateIdentifier(templateID); err != nil {
		os.Exit(OutputResult(cfg, "catalog show", start, nil, false,
			fmt.Errorf("invalid template id: %w", err)))
	}

	registry, err := buildCatalog(catalogPackDir)
	if err != nil {
		os.Exit(OutputResult(cfg, "catalog show", start, nil, false, err))
	}

	template, err := registry.GetTemplate(cmd.Context(), templateID)
	if err != nil {
		os.Exit(OutputResult(cfg, "catalog show", start, nil, false, err))
	}

	if !cfg.JSON {
		renderCatalogShow(template)
	}
	os.Exit(OutputResult(cfg, "catalog show", start, template, false, nil))
}

func renderCatalogList(result CatalogListResult) {
	ux.Title("Node Template Catalog")
	for _, row := range result.Templates {
		origin := "system"
		if !row.System {
			origin = "pack"
		}
		fmt.Printf("%-28s %-12s %-8s %-7s %s\n", row.ID, row.Kind, row.Version, origin, row.Name)
	}
	fmt.Println()
	ux.Muted(fmt.Sprintf("%d templates (%d system, %d pack)", result.Count, result.System, result.Pack))
}

func renderCatalogShow(t *datatypes.NodeTemplate) {
	ux.Title(t.Name)
	origin := "system"
	if !t.System {
		origin = "pack"
	}
	fmt.Printf("ID:       %s\n", t.ID)
	fmt.Printf("Kind:     %s\n", t.Kind)
	fmt.Printf("Version:  %s\n", t.Version)
	fmt.Printf("Origin:   %s\n", origin)
	if t.Description != "" {
		fmt.Printf("\n%s\n", t.Description)
	}

	if len(t.InputPorts) > 0 || len(t.OutputPorts) > 0 {
		fmt.Println()
		for _, p := range t.InputPorts {
			fmt.Printf("%s in   %s\n", ux.IconArrow.Render(), formatPort(p))
		}
		for _, p := range t.OutputPorts {
			fmt.Printf("%s out  %s\n", ux.IconArrow.Render(), formatPort(p))
		}
	}

	if len(t.ParameterSchema) > 0 {
		fmt.Println()
		ux.Info("Parameters:")
		names := make([]string, 0, len(t.ParameterSchema))
		for name := range t.ParameterSchema {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-20s %s\n", name, formatFieldSpec(t.ParameterSchema[name]))
		}
	}

	if len(t.CodeTemplate.Imports) > 0 {
		fmt.Println()
		ux.Muted(fmt.Sprintf("imports: %v", t.CodeTemplate.Imports))
	}
}

func formatPort(p datatypes.PortSpec) string {
	if p.Type == "" {
		return p.Name
	}
	return fmt.Sprintf("%s (%s)", p.Name, p.Type)
}

// formatFieldSpec renders one schema field as a single human-readable line:
// type, requiredness, then whichever constraints the field declares.
func formatFieldSpec(spec datatypes.FieldSpec) string {
	line := string(spec.Type)
	if spec.Required {
		line += ", required"
	}
	if spec.Default != nil {
		line += fmt.Sprintf(", default=%v", spec.Default)
	}
	if spec.Minimum != nil {
		line += fmt.Sprintf(", min=%v", *spec.Minimum)
	}
	if spec.Maximum != nil {
		line += fmt.Sprintf(", max=%v", *spec.Maximum)
	}
	if len(spec.Enum) > 0 {
		line += fmt.Sprintf(", one of %v", spec.Enum)
	}
	return line
}
