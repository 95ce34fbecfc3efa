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
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
)

// Registry is the live Repository: the embedded system catalog plus any
// loaded template packs.
//
// System templates are resolved first and can never be shadowed by a pack.
// The pack set is replaced wholesale on each load, so deleting a pack file
// and reloading removes its templates.
//
// Thread Safety: safe for concurrent use. System templates are immutable
// after construction; the pack map is guarded by an RWMutex and swapped
// atomically on reload.
type Registry struct {
	logger *slog.Logger
	system map[string]*datatypes.NodeTemplate

	mu    sync.RWMutex
	packs map[string]*datatypes.NodeTemplate
}

// NewRegistry loads the embedded system catalog. A nil logger falls back to
// slog.Default().
func NewRegistry(logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	templates, err := LoadSystemCatalog()
	if err != nil {
		return nil, err
	}

	system := make(map[string]*datatypes.NodeTemplate, len(templates))
	for _, t := range templates {
		system[t.ID] = t
	}

	logger.Info("system catalog loaded", "templates", len(system))
	return &Registry{
		logger: logger,
		system: system,
		packs:  make(map[string]*datatypes.NodeTemplate),
	}, nil
}

// GetTemplate implements Repository.
func (r *Registry) GetTemplate(_ context.Context, templateID string) (*datatypes.NodeTemplate, error) {
	if t, ok := r.system[templateID]; ok {
		return t, nil
	}

	r.mu.RLock()
	t, ok := r.packs[templateID]
	r.mu.RUnlock()
	if ok {
		return t, nil
	}
	return nil, templateNotFound(templateID)
}

// ListTemplates implements Repository.
func (r *Registry) ListTemplates(_ context.Context) ([]*datatypes.NodeTemplate, error) {
	r.mu.RLock()
	merged := make(map[string]*datatypes.NodeTemplate, len(r.system)+len(r.packs))
	for id, t := range r.packs {
		merged[id] = t
	}
	r.mu.RUnlock()

	// System entries win over any same-id pack entry; loading already
	// refuses the collision, this is just the same rule applied twice.
	for id, t := range r.system {
		merged[id] = t
	}
	return sortedTemplates(merged), nil
}

// Counts returns the number of system and pack templates currently served.
func (r *Registry) Counts() (system, pack int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.system), len(r.packs)
}

// LoadPackDir loads every template pack (*.yaml, *.yml) under dir and
// replaces the current pack set with the result.
//
// Description:
//
//	Pack loading is tolerant at file granularity and strict within a file:
//	an unreadable or malformed pack file is logged and skipped so one bad
//	pack cannot take down the rest, but a file either contributes all of
//	its templates or none. A pack template whose id collides with a system
//	template is ignored with a warning; across packs, the first occurrence
//	of an id wins.
//
// Inputs:
//   - dir: directory containing pack files. Must exist.
//
// Outputs:
//   - error: non-nil only when dir itself cannot be read.
func (r *Registry) LoadPackDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read pack dir: %w", err)
	}

	next := make(map[string]*datatypes.NodeTemplate)
	var loaded, skipped int
	for _, entry := range entries {
		if entry.IsDir() || !isPackFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			r.logger.Warn("template pack unreadable, skipping", "path", path, "error", err)
			continue
		}
		templates, err := parseCatalogFile(data)
		if err != nil {
			r.logger.Warn("template pack rejected", "path", path, "error", err)
			continue
		}

		for _, t := range templates {
			if _, isSystem := r.system[t.ID]; isSystem {
				r.logger.Warn("pack template shadows a system id, ignored",
					"path", path, "template_id", t.ID)
				skipped++
				continue
			}
			if _, dup := next[t.ID]; dup {
				r.logger.Warn("duplicate pack template id, keeping first",
					"path", path, "template_id", t.ID)
				skipped++
				continue
			}
			next[t.ID] = t
			loaded++
		}
	}

	r.mu.Lock()
	r.packs = next
	r.mu.Unlock()

	r.logger.Info("template packs loaded", "dir", dir, "templates", loaded, "skipped", skipped)
	return nil
}

// isPackFile reports whether a directory entry name looks like a pack.
func isPackFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// templateNotFound wraps the sentinel with the offending id.
func templateNotFound(templateID string) error {
	return fmt.Errorf("template %q: %w", templateID, ErrTemplateNotFound)
}

// sortedTemplates flattens a template map ordered by id.
func sortedTemplates(m map[string]*datatypes.NodeTemplate) []*datatypes.NodeTemplate {
	out := make([]*datatypes.NodeTemplate, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *datatypes.NodeTemplate) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}
