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
	"crypto/sha256"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/SapheneiaStudio/services/studio/inspect"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var policyShowJSON bool

// =============================================================================
// POLICY SHOW COMMAND
// =============================================================================

// runPolicyShow is the CLI handler for the "studio policy show" command.
//
// It retrieves the raw bytes of the embedded import policy and calculates a
// SHA256 checksum, then prints the policy document itself.
//
// This allows operators to cryptographically verify that the binary they are
// running enforces the expected version of the import rules, ensuring that the
// policy has not been tampered with or accidentally swapped during the build
// process.
//
// # Exit Codes
//
//   - 0: Policy printed successfully
//   - 2: Error (should not happen for embedded policies)
func runPolicyShow(cmd *cobra.Command, args []string) {
	data := inspect.EmbeddedPolicyBytes()
	hash := sha256.Sum256(data)

	policy, err := inspect.LoadEmbeddedPolicy()
	if err != nil {
		OutputError(policyShowJSON, "Failed to parse embedded policy", err)
		os.Exit(CLIExitError)
	}

	if policyShowJSON {
		result := PolicyShowResult{
			Hash:           fmt.Sprintf("sha256:%x", hash),
			ByteSize:       len(data),
			Version:        policy.Version,
			AllowedModules: len(policy.AllowedModules),
			ForbiddenCount: len(policy.ForbiddenModules),
			Content:        string(data),
		}
		if err := OutputJSON(result, false); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			os.Exit(CLIExitError)
		}
		os.Exit(CLIExitSuccess)
	}

	fmt.Println("--- Embedded Import Policy ---")
	fmt.Printf("Policy version: %s\n", policy.Version)
	fmt.Printf("Policy byte size: %d bytes\n", len(data))
	fmt.Printf("SHA256 Fingerprint: %x\n", hash)
	fmt.Printf("Allowed modules: %d\n", len(policy.AllowedModules))
	fmt.Printf("Forbidden modules: %d\n", len(policy.ForbiddenModules))
	fmt.Println("------------------------------")
	fmt.Println()
	fmt.Println(string(data))
}
