// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package catalog is the node template registry: the immutable inventory of
// building blocks a strategy graph may reference.
//
// The system catalog is compiled into the binary (templates.yaml via
// go:embed) so every deployment carries the same vetted baseline. Optional
// "template packs" — plain YAML files in a directory — extend the catalog at
// runtime and can be hot-reloaded, but they can never shadow a system
// template id.
//
// Templates returned by a Repository are shared, read-only values. Callers
// must not mutate them; a template changes only by publishing a new version.
package catalog

import (
	"context"
	"errors"

	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
)

// ErrTemplateNotFound is returned when a template id resolves to nothing.
var ErrTemplateNotFound = errors.New("template not found")

// Repository is the read surface the validators and the code generator
// depend on. Implementations must be safe for concurrent use.
type Repository interface {
	// GetTemplate returns the template with the given id, or an error
	// wrapping ErrTemplateNotFound.
	GetTemplate(ctx context.Context, templateID string) (*datatypes.NodeTemplate, error)

	// ListTemplates returns every known template ordered by id.
	ListTemplates(ctx context.Context) ([]*datatypes.NodeTemplate, error)
}

// StaticRepository is a fixed, map-backed Repository. It backs tests and
// single-shot CLI runs where the full registry (packs, watcher) is overkill.
type StaticRepository struct {
	templates map[string]*datatypes.NodeTemplate
}

// NewStaticRepository builds a StaticRepository from a template list.
// Later entries with a duplicate id replace earlier ones.
func NewStaticRepository(templates ...*datatypes.NodeTemplate) *StaticRepository {
	m := make(map[string]*datatypes.NodeTemplate, len(templates))
	for _, t := range templates {
		if t != nil && t.ID != "" {
			m[t.ID] = t
		}
	}
	return &StaticRepository{templates: m}
}

// GetTemplate implements Repository.
func (r *StaticRepository) GetTemplate(_ context.Context, templateID string) (*datatypes.NodeTemplate, error) {
	if t, ok := r.templates[templateID]; ok {
		return t, nil
	}
	return nil, templateNotFound(templateID)
}

// ListTemplates implements Repository.
func (r *StaticRepository) ListTemplates(_ context.Context) ([]*datatypes.NodeTemplate, error) {
	return sortedTemplates(r.templates), nil
}
