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
	"crypto/sha256"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed import_policy.yaml
var embeddedPolicyYAML []byte

// ForbiddenModule is one deny-list entry with its author-facing reason.
type ForbiddenModule struct {
	Name       string `yaml:"name" json:"name"`
	Reason     string `yaml:"reason" json:"reason"`
	Suggestion string `yaml:"suggestion,omitempty" json:"suggestion,omitempty"`
}

// ImportPolicy is the parsed allow/deny import policy. Module names are
// top-level only: the security walk reduces every import to its first
// dotted component before consulting the policy, so allow-listing
// "sapheneia" covers "sapheneia.runtime" and every other submodule.
type ImportPolicy struct {
	Version          string            `yaml:"version" json:"version"`
	AllowedModules   []string          `yaml:"allowed_modules" json:"allowed_modules"`
	ForbiddenModules []ForbiddenModule `yaml:"forbidden_modules" json:"forbidden_modules"`

	allowed   map[string]bool
	forbidden map[string]*ForbiddenModule
}

// LoadEmbeddedPolicy parses the policy compiled into the binary.
func LoadEmbeddedPolicy() (*ImportPolicy, error) {
	return parsePolicy(embeddedPolicyYAML)
}

// EmbeddedPolicyBytes returns the raw embedded policy document, for
// display and fingerprinting by the CLI.
func EmbeddedPolicyBytes() []byte {
	out := make([]byte, len(embeddedPolicyYAML))
	copy(out, embeddedPolicyYAML)
	return out
}

// parsePolicy unmarshals and indexes a policy document.
func parsePolicy(raw []byte) (*ImportPolicy, error) {
	var p ImportPolicy
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse import policy: %w", err)
	}
	if p.Version == "" {
		return nil, fmt.Errorf("import policy has no version")
	}
	if len(p.AllowedModules) == 0 {
		return nil, fmt.Errorf("import policy allow list is empty")
	}

	p.allowed = make(map[string]bool, len(p.AllowedModules))
	for _, m := range p.AllowedModules {
		p.allowed[m] = true
	}
	p.forbidden = make(map[string]*ForbiddenModule, len(p.ForbiddenModules))
	for i := range p.ForbiddenModules {
		fm := &p.ForbiddenModules[i]
		if fm.Name == "" {
			return nil, fmt.Errorf("import policy deny entry %d has no name", i)
		}
		p.forbidden[fm.Name] = fm
	}
	return &p, nil
}

// IsAllowed reports whether a top-level module is on the allow list.
func (p *ImportPolicy) IsAllowed(module string) bool {
	return p.allowed[module]
}

// Forbidden returns the deny-list entry for a top-level module, or nil.
func (p *ImportPolicy) Forbidden(module string) *ForbiddenModule {
	return p.forbidden[module]
}

// Fingerprint returns "sha256:<hex>" over the embedded policy document,
// so operators can verify which policy a binary enforces.
func (p *ImportPolicy) Fingerprint() string {
	hash := sha256.Sum256(embeddedPolicyYAML)
	return fmt.Sprintf("sha256:%x", hash)
}
