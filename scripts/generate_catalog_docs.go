// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// generate_catalog_docs generates a markdown reference for the node template
// catalog from templates.yaml.
//
// Usage:
//
//	go run scripts/generate_catalog_docs.go > docs/studio/template_reference.md
//
// The generated documentation includes:
//   - Full template inventory grouped by kind
//   - Parameter schemas with types, bounds, and defaults
//   - Port signatures and Python import footprints
//   - Summary statistics
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CatalogYAML is the root structure for YAML deserialization.
type CatalogYAML struct {
	Version   string         `yaml:"version"`
	Templates []TemplateYAML `yaml:"templates"`
}

// TemplateYAML represents a single template entry in the YAML file.
type TemplateYAML struct {
	ID              string               `yaml:"id"`
	Kind            string               `yaml:"kind"`
	Name            string               `yaml:"name"`
	Description     string               `yaml:"description,omitempty"`
	Version         string               `yaml:"version"`
	System          bool                 `yaml:"system,omitempty"`
	ParameterSchema map[string]FieldYAML `yaml:"parameter_schema,omitempty"`
	InputPorts      []PortYAML           `yaml:"input_ports,omitempty"`
	OutputPorts     []PortYAML           `yaml:"output_ports,omitempty"`
	CodeTemplate    CodeTemplateYAML     `yaml:"code_template,omitempty"`
}

// FieldYAML represents one parameter field spec in YAML.
type FieldYAML struct {
	Type        string   `yaml:"type"`
	Required    bool     `yaml:"required,omitempty"`
	Default     any      `yaml:"default,omitempty"`
	Minimum     *float64 `yaml:"minimum,omitempty"`
	Maximum     *float64 `yaml:"maximum,omitempty"`
	Enum        []string `yaml:"enum,omitempty"`
	Description string   `yaml:"description,omitempty"`
}

// PortYAML represents a typed port in YAML.
type PortYAML struct {
	Name string `yaml:"name"`
	Type string `yaml:"type,omitempty"`
}

// CodeTemplateYAML represents the render hints in YAML.
type CodeTemplateYAML struct {
	Template  string   `yaml:"template,omitempty"`
	Imports   []string `yaml:"imports,omitempty"`
	Docstring string   `yaml:"docstring,omitempty"`
}

// KindSection groups templates of one kind for output.
type KindSection struct {
	Name        string
	Description string
	Templates   []TemplateYAML
}

func main() {
	// Read the YAML file
	data, err := os.ReadFile("services/studio/catalog/templates.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading templates.yaml: %v\n", err)
		os.Exit(1)
	}

	var catalogFile CatalogYAML
	if err := yaml.Unmarshal(data, &catalogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing YAML: %v\n", err)
		os.Exit(1)
	}

	sections := groupByKind(catalogFile.Templates)
	generateMarkdown(catalogFile, sections)
}

// groupByKind buckets templates by kind in the order a strategy reads:
// indicators first, then the logic that consumes them, then sizing and
// protection.
func groupByKind(templates []TemplateYAML) []KindSection {
	sectionMap := map[string]*KindSection{
		"INDICATOR": {
			Name:        "Indicators",
			Description: "Series transforms computed from market data. Every strategy starts here.",
		},
		"CONDITION": {
			Name:        "Conditions",
			Description: "Boolean logic over indicator output (thresholds, crossovers).",
		},
		"SIGNAL": {
			Name:        "Signals",
			Description: "Entry and exit triggers armed by conditions.",
		},
		"POSITION": {
			Name:        "Position Sizing",
			Description: "How much to commit when a signal fires.",
		},
		"STOP_LOSS": {
			Name:        "Stop Losses",
			Description: "Exit protection on the downside, including trailing stops.",
		},
		"STOP_PROFIT": {
			Name:        "Profit Targets",
			Description: "Exit protection on the upside once a gain threshold is reached.",
		},
		"RISK_MANAGEMENT": {
			Name:        "Risk Controls",
			Description: "Portfolio-level guards that override everything else.",
		},
		"CUSTOM": {
			Name:        "Custom Nodes",
			Description: "Hand-finished placeholders the generator emits as stubs.",
		},
	}

	for _, tmpl := range templates {
		if section, ok := sectionMap[tmpl.Kind]; ok {
			section.Templates = append(section.Templates, tmpl)
		}
	}

	order := []string{"INDICATOR", "CONDITION", "SIGNAL", "POSITION", "STOP_LOSS", "STOP_PROFIT", "RISK_MANAGEMENT", "CUSTOM"}

	var result []KindSection
	for _, key := range order {
		if section, ok := sectionMap[key]; ok && len(section.Templates) > 0 {
			sort.Slice(section.Templates, func(i, j int) bool {
				return section.Templates[i].ID < section.Templates[j].ID
			})
			result = append(result, *section)
		}
	}
	return result
}

// generateMarkdown outputs the full markdown documentation.
func generateMarkdown(catalogFile CatalogYAML, sections []KindSection) {
	fmt.Println("# Node Template Reference")
	fmt.Println()
	fmt.Println("## Overview")
	fmt.Println()
	fmt.Println("This document is the reference for every system node template in Sapheneia Studio.")
	fmt.Println("The catalog is defined in `services/studio/catalog/templates.yaml`, embedded into the")
	fmt.Println("binary at build time, and served to the visual editor via `GET /v1/templates`.")
	fmt.Println()
	fmt.Printf("**Catalog Version:** %s\n", catalogFile.Version)
	fmt.Println()
	fmt.Printf("**Generated:** %s\n", time.Now().UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Println()

	// Statistics
	totalParams := 0
	requiredParams := 0
	withImports := 0
	for _, tmpl := range catalogFile.Templates {
		totalParams += len(tmpl.ParameterSchema)
		for _, field := range tmpl.ParameterSchema {
			if field.Required {
				requiredParams++
			}
		}
		if len(tmpl.CodeTemplate.Imports) > 0 {
			withImports++
		}
	}

	fmt.Println("## Summary Statistics")
	fmt.Println()
	fmt.Println("| Metric | Count |")
	fmt.Println("|--------|-------|")
	fmt.Printf("| Total Templates | %d |\n", len(catalogFile.Templates))
	fmt.Printf("| Total Parameters | %d |\n", totalParams)
	fmt.Printf("| Required Parameters | %d |\n", requiredParams)
	fmt.Printf("| Templates with Imports | %d |\n", withImports)
	fmt.Printf("| Kinds | %d |\n", len(sections))
	fmt.Println()

	// Table of contents
	fmt.Println("## Table of Contents")
	fmt.Println()
	for i, section := range sections {
		fmt.Printf("%d. [%s](#%s)\n", i+1, section.Name,
			strings.ToLower(strings.ReplaceAll(section.Name, " ", "-")))
	}
	fmt.Println()

	// Quick reference table (all templates)
	fmt.Println("---")
	fmt.Println()
	fmt.Println("## Quick Reference")
	fmt.Println()
	fmt.Println("| Template | Kind | Version | Inputs | Outputs | Required Parameters |")
	fmt.Println("|----------|------|---------|--------|---------|---------------------|")
	for _, section := range sections {
		for _, tmpl := range section.Templates {
			fmt.Printf("| `%s` | %s | %s | %s | %s | %s |\n",
				tmpl.ID,
				tmpl.Kind,
				tmpl.Version,
				portList(tmpl.InputPorts),
				portList(tmpl.OutputPorts),
				requiredList(tmpl.ParameterSchema),
			)
		}
	}
	fmt.Println()

	// Detailed sections per kind
	fmt.Println("---")
	fmt.Println()
	for _, section := range sections {
		fmt.Printf("## %s\n", section.Name)
		fmt.Println()
		fmt.Println(section.Description)
		fmt.Println()

		for _, tmpl := range section.Templates {
			printTemplateDetails(tmpl)
		}
	}

	// Import footprint index
	fmt.Println("---")
	fmt.Println()
	fmt.Println("## Import Footprint")
	fmt.Println()
	fmt.Println("This index maps Python modules to the templates that emit them. Every module")
	fmt.Println("listed here must stay on the allowed side of the import policy, or generation")
	fmt.Println("from the affected templates will be blocked.")
	fmt.Println()

	importIndex := buildImportIndex(catalogFile.Templates)
	modules := make([]string, 0, len(importIndex))
	for m := range importIndex {
		modules = append(modules, m)
	}
	sort.Strings(modules)

	fmt.Println("| Module | Emitted By |")
	fmt.Println("|--------|------------|")
	for _, module := range modules {
		fmt.Printf("| `%s` | %s |\n", module, strings.Join(importIndex[module], ", "))
	}
	fmt.Println()

	// Footer
	fmt.Println("---")
	fmt.Println()
	fmt.Println("*This document is auto-generated from `services/studio/catalog/templates.yaml`.*")
	fmt.Println()
	fmt.Println("*To regenerate: `go run scripts/generate_catalog_docs.go > docs/studio/template_reference.md`*")
}

// printTemplateDetails prints detailed information for a single template.
func printTemplateDetails(tmpl TemplateYAML) {
	fmt.Printf("### `%s`\n", tmpl.ID)
	fmt.Println()
	if tmpl.Name != "" {
		fmt.Printf("**%s** (v%s)\n", tmpl.Name, tmpl.Version)
		fmt.Println()
	}
	if tmpl.Description != "" {
		fmt.Println(tmpl.Description)
		fmt.Println()
	}

	// Ports
	if len(tmpl.InputPorts) > 0 || len(tmpl.OutputPorts) > 0 {
		fmt.Println("| Direction | Port | Type |")
		fmt.Println("|-----------|------|------|")
		for _, p := range tmpl.InputPorts {
			fmt.Printf("| in | `%s` | %s |\n", p.Name, p.Type)
		}
		for _, p := range tmpl.OutputPorts {
			fmt.Printf("| out | `%s` | %s |\n", p.Name, p.Type)
		}
		fmt.Println()
	}

	// Parameters
	if len(tmpl.ParameterSchema) > 0 {
		names := make([]string, 0, len(tmpl.ParameterSchema))
		for name := range tmpl.ParameterSchema {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Println("**Parameters:**")
		fmt.Println()
		fmt.Println("| Name | Type | Required | Default | Constraints |")
		fmt.Println("|------|------|----------|---------|-------------|")
		for _, name := range names {
			field := tmpl.ParameterSchema[name]
			fmt.Printf("| `%s` | %s | %s | %s | %s |\n",
				name, field.Type, yesNo(field.Required), defaultCell(field.Default), constraintCell(field))
		}
		fmt.Println()
	}

	// Imports
	if len(tmpl.CodeTemplate.Imports) > 0 {
		fmt.Println("**Imports:**")
		fmt.Println()
		fmt.Print("`")
		fmt.Print(strings.Join(tmpl.CodeTemplate.Imports, "`, `"))
		fmt.Println("`")
		fmt.Println()
	}
}

// buildImportIndex creates a map of Python module -> template ids.
func buildImportIndex(templates []TemplateYAML) map[string][]string {
	index := make(map[string][]string)
	for _, tmpl := range templates {
		for _, module := range tmpl.CodeTemplate.Imports {
			index[module] = append(index[module], "`"+tmpl.ID+"`")
		}
	}
	return index
}

// portList renders ports as "name:type" pairs for the quick reference.
func portList(ports []PortYAML) string {
	if len(ports) == 0 {
		return "—"
	}
	parts := make([]string, 0, len(ports))
	for _, p := range ports {
		if p.Type != "" {
			parts = append(parts, fmt.Sprintf("`%s:%s`", p.Name, p.Type))
			continue
		}
		parts = append(parts, "`"+p.Name+"`")
	}
	return strings.Join(parts, ", ")
}

// requiredList renders the required parameter names for the quick reference.
func requiredList(schema map[string]FieldYAML) string {
	var required []string
	for name, field := range schema {
		if field.Required {
			required = append(required, "`"+name+"`")
		}
	}
	if len(required) == 0 {
		return "—"
	}
	sort.Strings(required)
	return strings.Join(required, ", ")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func defaultCell(v any) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("`%v`", v)
}

// constraintCell renders bounds and enums in one column.
func constraintCell(field FieldYAML) string {
	var parts []string
	if field.Minimum != nil {
		parts = append(parts, fmt.Sprintf("min %g", *field.Minimum))
	}
	if field.Maximum != nil {
		parts = append(parts, fmt.Sprintf("max %g", *field.Maximum))
	}
	if len(field.Enum) > 0 {
		parts = append(parts, "one of "+strings.Join(field.Enum, ", "))
	}
	if len(parts) == 0 {
		return "—"
	}
	return strings.Join(parts, "; ")
}
