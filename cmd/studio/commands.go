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
	"github.com/spf13/cobra"

	"github.com/AleutianAI/SapheneiaStudio/pkg/ux"
)

// --- Global Command Variables ---
var (
	noColor bool

	rootCmd = &cobra.Command{
		Use:   "studio",
		Short: "Sapheneia Studio: visual strategy validation and code generation",
		Long: `Studio turns logic-flow graphs authored in the Sapheneia visual editor
				into validated, security-checked Python strategy code. It runs the same
				validation and generation pipeline as the Studio API server, so flows
				can be checked locally before they are ever submitted.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				ux.SetPlain(true)
			}
		},
	}

	// --- Server ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the Studio API server",
		Run:   runServe, // Defined in cmd_serve.go
	}

	// --- Flow Validation / Generation ---
	validateCmd = &cobra.Command{
		Use:   "validate [flow.json...]",
		Short: "Validate one or more flow files without generating code",
		Long: `Validate runs structural and parameter validation over flow files.
				A flow file is the same JSON document the editor submits: a "flow"
				object with nodes and edges, plus optional per-node "parameters".`,
		Args: cobra.MinimumNArgs(1),
		Run:  runValidate, // Defined in cmd_validate.go
	}

	generateCmd = &cobra.Command{
		Use:   "generate [flow.json]",
		Short: "Generate strategy code from a flow file",
		Long: `Generate runs the full pipeline over a single flow file: structural
				validation, parameter checking, code generation, and the security and
				syntax inspection that every generated artifact goes through. The
				resulting .py file is written next to the input unless --out is given.`,
		Args: cobra.ExactArgs(1),
		Run:  runGenerate, // Defined in cmd_generate.go
	}

	// --- Catalog ---
	catalogCmd = &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the node template catalog",
	}
	catalogListCmd = &cobra.Command{
		Use:   "list",
		Short: "List all available node templates",
		Run:   runCatalogList, // Defined in cmd_catalog.go
	}
	catalogShowCmd = &cobra.Command{
		Use:   "show [template_id]",
		Short: "Show a single template with its full parameter schema",
		Args:  cobra.ExactArgs(1),
		Run:   runCatalogShow, // Defined in cmd_catalog.go
	}

	// --- Import Policy ---
	policyCmd = &cobra.Command{
		Use:   "policy",
		Short: "Base command to interact with the embedded import policy",
		Long: `Use policy + subcommands to interact with the import policy that is
				embedded in the studio binary. The policy decides which Python modules
				generated strategies may import. You can define new versions as long
				as you rebuild the binary.`,
	}
	policyShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the embedded import policy and its SHA256 fingerprint",
		Run:   runPolicyShow, // Defined in cmd_policy.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable styled terminal output")

	rootCmd.AddCommand(serveCmd)

	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output as JSON")
	validateCmd.Flags().BoolVar(&validateQuiet, "quiet", false, "Only exit code, no output")
	validateCmd.Flags().IntVar(&validateWorkers, "workers", DefaultValidateWorkers,
		"Maximum flow files validated concurrently")
	validateCmd.Flags().StringVar(&validatePackDir, "packs", "",
		"Directory of template pack YAML files to load alongside the embedded catalog")

	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "",
		"Output filename (default: <flow>.py next to the input)")
	generateCmd.Flags().StringVar(&generateInstance, "instance", "local",
		"Strategy instance id for deduplication scoping")
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "Output as JSON")
	generateCmd.Flags().StringVar(&generatePackDir, "packs", "",
		"Directory of template pack YAML files to load alongside the embedded catalog")

	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogShowCmd)
	catalogCmd.PersistentFlags().BoolVar(&catalogJSON, "json", false, "Output as JSON")
	catalogCmd.PersistentFlags().StringVar(&catalogPackDir, "packs", "",
		"Directory of template pack YAML files to load alongside the embedded catalog")

	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyShowCmd)
	policyShowCmd.Flags().BoolVar(&policyShowJSON, "json", false, "Output as JSON")
}
