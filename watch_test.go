package grimoire

import (
	"os"
	"testing"
	"time"
)

const alphaV1 = `package main

const scriptName = "Alpha One"
const scriptAuthor = "Tester"
const scriptVersion = 1.0
const scriptAPIVersion = 1
`

const alphaV2 = `package main

const scriptName = "Alpha One"
const scriptAuthor = "Tester"
const scriptVersion = 2.0
const scriptAPIVersion = 1
`

const betaV1 = `package main

const scriptName = "Beta One"
const scriptAuthor = "Tester"
const scriptVersion = 1.0
const scriptAPIVersion = 1
`

// Test that a rescan reloads surviving scripts and drops scripts whose
// files are gone.
func TestRescanRemovedScript(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "a.go", alphaV1)
	bPath := writeScript(t, dir, "b.go", betaV1)

	h := NewHost(Options{ScriptDirs: []string{dir}})
	h.LoadAll()
	if h.IsDisabled("Alpha One_a") || h.IsDisabled("Beta One_b") {
		t.Fatalf("scripts not loaded: %v", h.Messages())
	}

	if err := os.Remove(bPath); err != nil {
		t.Fatalf("remove script: %v", err)
	}
	h.Rescan()

	scripts := h.Scripts()
	if len(scripts) != 1 || scripts[0] != "Alpha One_a" {
		t.Fatalf("scripts after rescan %v", scripts)
	}
	if h.IsDisabled("Alpha One_a") {
		t.Fatalf("survivor not reloaded")
	}
	if !containsMessage(h, "[script:Beta One] stopped: removed") {
		t.Fatalf("removal not reported: %v", h.Messages())
	}
}

// Test that a rescan picks up edited metadata.
func TestRescanEditedScript(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "a.go", alphaV1)

	h := NewHost(Options{ScriptDirs: []string{dir}})
	h.LoadAll()
	h.mu.RLock()
	v := h.versions["Alpha One_a"]
	h.mu.RUnlock()
	if v != 1.0 {
		t.Fatalf("initial version %v", v)
	}

	writeScript(t, dir, "a.go", alphaV2)
	h.Rescan()
	h.mu.RLock()
	v = h.versions["Alpha One_a"]
	h.mu.RUnlock()
	if v != 2.0 {
		t.Fatalf("version after rescan %v", v)
	}
	if h.IsDisabled("Alpha One_a") {
		t.Fatalf("edited script not reloaded")
	}
}

// Test that CheckEdits rescans only when a script file's mod time moved
// forward.
func TestCheckEditsDetectsChange(t *testing.T) {
	dir := t.TempDir()
	aPath := writeScript(t, dir, "a.go", alphaV1)

	h := NewHost(Options{ScriptDirs: []string{dir}})
	h.LoadAll()

	// Unchanged files: no rescan, no new stop messages.
	h.CheckEdits()
	if containsMessage(h, "[script:Alpha One] stopped: reloaded") {
		t.Fatalf("rescan without change: %v", h.Messages())
	}

	writeScript(t, dir, "a.go", alphaV2)
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(aPath, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	h.watchMu.Lock()
	h.modCheck = time.Time{}
	h.watchMu.Unlock()

	h.CheckEdits()
	if !containsMessage(h, "[script:Alpha One] stopped: reloaded") {
		t.Fatalf("edit not detected: %v", h.Messages())
	}
	h.mu.RLock()
	v := h.versions["Alpha One_a"]
	h.mu.RUnlock()
	if v != 2.0 {
		t.Fatalf("version after edit %v", v)
	}
}
