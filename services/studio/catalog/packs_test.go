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
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vwapPack = `version: "2026.07.02"
templates:
  - id: pack.vwap
    kind: INDICATOR
    name: VWAP
    version: 0.1.0
    output_ports:
      - name: value
        type: series
  - id: pack.obv
    kind: INDICATOR
    name: On-Balance Volume
    version: 0.2.0
    output_ports:
      - name: value
        type: series
`

const shadowPack = `version: "2026.07.02"
templates:
  - id: indicator.rsi
    kind: INDICATOR
    name: Impostor RSI
    version: 9.9.9
    output_ports:
      - name: value
        type: series
`

func writePack(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRegistry_LoadPackDir(t *testing.T) {
	dir := t.TempDir()
	writePack(t, dir, "vwap.yaml", vwapPack)
	writePack(t, dir, "shadow.yaml", shadowPack)
	writePack(t, dir, "broken.yaml", "version: [unclosed")
	writePack(t, dir, "notes.txt", "not a pack")

	reg, err := NewRegistry(nil)
	require.NoError(t, err)
	require.NoError(t, reg.LoadPackDir(dir))

	ctx := context.Background()

	// Both templates from the good pack resolve.
	vwap, err := reg.GetTemplate(ctx, "pack.vwap")
	require.NoError(t, err)
	assert.Equal(t, "VWAP", vwap.Name)

	_, err = reg.GetTemplate(ctx, "pack.obv")
	require.NoError(t, err)

	// The shadow entry must not displace the system template.
	rsi, err := reg.GetTemplate(ctx, "indicator.rsi")
	require.NoError(t, err)
	assert.NotEqual(t, "9.9.9", rsi.Version)
	assert.True(t, rsi.System)

	system, pack := reg.Counts()
	assert.Greater(t, system, 0)
	assert.Equal(t, 2, pack)
}

func TestRegistry_LoadPackDir_ReplacesPreviousSet(t *testing.T) {
	dir := t.TempDir()
	path := writePack(t, dir, "vwap.yaml", vwapPack)

	reg, err := NewRegistry(nil)
	require.NoError(t, err)
	require.NoError(t, reg.LoadPackDir(dir))

	ctx := context.Background()
	_, err = reg.GetTemplate(ctx, "pack.vwap")
	require.NoError(t, err)

	// Deleting the file and reloading must drop its templates.
	require.NoError(t, os.Remove(path))
	require.NoError(t, reg.LoadPackDir(dir))

	_, err = reg.GetTemplate(ctx, "pack.vwap")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestRegistry_LoadPackDir_MissingDir(t *testing.T) {
	reg, err := NewRegistry(nil)
	require.NoError(t, err)

	err = reg.LoadPackDir(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestPackWatcher_HotReload(t *testing.T) {
	if testing.Short() {
		t.Skip("filesystem watcher test")
	}

	dir := t.TempDir()
	reg, err := NewRegistry(nil)
	require.NoError(t, err)

	watcher, err := NewPackWatcher(reg, dir, 50*time.Millisecond)
	require.NoError(t, err)
	defer watcher.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	// Appearing file is picked up after the debounce window.
	path := writePack(t, dir, "vwap.yaml", vwapPack)
	waitForTemplate(t, reg, "pack.vwap", true)

	// Removing it drops the templates again.
	require.NoError(t, os.Remove(path))
	waitForTemplate(t, reg, "pack.vwap", false)
}

// waitForTemplate polls the registry until the template's presence matches
// want, failing after a generous deadline.
func waitForTemplate(t *testing.T, reg *Registry, id string, want bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		_, err := reg.GetTemplate(context.Background(), id)
		if want && err == nil {
			return
		}
		if !want && errors.Is(err, ErrTemplateNotFound) {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("template %q presence never became %v", id, want)
}
