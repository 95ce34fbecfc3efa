// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
)

// embeddedCatalogYAML is the system catalog baked into the binary. Baking
// it in keeps the baseline template set immutable at runtime: it cannot be
// edited on the host without recompiling.
//
//go:embed templates.yaml
var embeddedCatalogYAML []byte

// catalogFile is the on-disk shape shared by the embedded catalog and
// template pack files.
type catalogFile struct {
	Version   string                    `yaml:"version"`
	Templates []*datatypes.NodeTemplate `yaml:"templates"`
}

// LoadSystemCatalog parses and validates the embedded system catalog.
//
// The embedded data is trusted at build time but still fully validated at
// load: a malformed entry is a packaging defect that must fail startup, not
// surface later as a confusing generation error.
func LoadSystemCatalog() ([]*datatypes.NodeTemplate, error) {
	templates, err := parseCatalogFile(embeddedCatalogYAML)
	if err != nil {
		return nil, fmt.Errorf("embedded catalog: %w", err)
	}
	return templates, nil
}

// parseCatalogFile decodes one catalog YAML document and validates every
// template in it. Duplicate ids within a single file are rejected.
func parseCatalogFile(data []byte) ([]*datatypes.NodeTemplate, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if file.Version == "" {
		return nil, fmt.Errorf("missing version field")
	}
	if len(file.Templates) == 0 {
		return nil, fmt.Errorf("no templates declared")
	}

	seen := make(map[string]bool, len(file.Templates))
	for i, t := range file.Templates {
		if t == nil {
			return nil, fmt.Errorf("entry %d is empty", i)
		}
		if err := ValidateTemplate(t); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("duplicate template id %q", t.ID)
		}
		seen[t.ID] = true
	}
	return file.Templates, nil
}
