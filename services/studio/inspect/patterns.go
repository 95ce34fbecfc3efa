// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package inspect

import (
	"strings"

	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
)

// PatternVersion is the current version of the dangerous-call database.
const PatternVersion = "2026.07.02"

// DangerousPattern describes one family of disallowed call targets.
//
// FuncNames entries are fully-qualified callee names; a trailing '*'
// marks a prefix match ("subprocess.*" matches every call into the
// module). Severity is informational: any match blocks.
type DangerousPattern struct {
	Name       string
	FuncNames  []string
	Severity   datatypes.Severity
	Message    string
	Suggestion string
}

// MatchesCallee reports whether a resolved callee name hits this pattern.
func (p DangerousPattern) MatchesCallee(name string) bool {
	for _, fn := range p.FuncNames {
		if prefix, ok := strings.CutSuffix(fn, "*"); ok {
			if strings.HasPrefix(name, prefix) {
				return true
			}
			continue
		}
		if name == fn {
			return true
		}
	}
	return false
}

// PythonCallPatterns returns the dangerous-call database for generated
// Python strategy code. Strategy modules are pure market-data transforms;
// every entry here is a capability they never legitimately need.
func PythonCallPatterns() []DangerousPattern {
	return []DangerousPattern{
		{
			Name:       "dynamic-execution",
			FuncNames:  []string{"eval", "exec", "compile"},
			Severity:   datatypes.SeverityCritical,
			Message:    "Dynamic code execution: arbitrary expressions can be run at evaluation time",
			Suggestion: "Express the computation directly; strategy code must be statically analyzable.",
		},
		{
			Name:       "dynamic-import",
			FuncNames:  []string{"__import__", "importlib.import_module"},
			Severity:   datatypes.SeverityCritical,
			Message:    "Dynamic import: modules loaded at runtime bypass the import policy",
			Suggestion: "Use a plain import statement for an allow-listed module.",
		},
		{
			Name:       "interactive-input",
			FuncNames:  []string{"input"},
			Severity:   datatypes.SeverityCritical,
			Message:    "Interactive input: strategies run unattended and must not block on stdin",
			Suggestion: "Take values from node parameters instead of prompting.",
		},
		{
			Name:       "raw-file-open",
			FuncNames:  []string{"open", "io.open"},
			Severity:   datatypes.SeverityCritical,
			Message:    "Raw file access: strategy code cannot read or write host files",
			Suggestion: "Market data and state arrive through the runtime context.",
		},
		{
			Name: "process-spawn",
			FuncNames: []string{
				"os.system", "os.popen", "os.exec*", "os.spawn*", "os.fork",
				"subprocess.*", "pty.spawn",
			},
			Severity:   datatypes.SeverityCritical,
			Message:    "Process execution: spawning commands from strategy code is never permitted",
			Suggestion: "Remove the call; there is no sanctioned way to run external processes.",
		},
		{
			Name:       "unsafe-deserialization",
			FuncNames:  []string{"pickle.load", "pickle.loads", "marshal.load", "marshal.loads"},
			Severity:   datatypes.SeverityCritical,
			Message:    "Unsafe deserialization: pickle/marshal payloads can execute arbitrary code",
			Suggestion: "Persist state as plain JSON through the runtime context.",
		},
	}
}
