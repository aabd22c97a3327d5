package grimoire

import (
	"os"
	"sort"
	"strings"
	"time"
)

// refreshMod records the newest mod time across the script dirs.
func (h *Host) refreshMod() {
	latest := time.Time{}
	for _, dir := range h.opts.ScriptDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".go") {
				continue
			}
			if info, err := e.Info(); err == nil {
				if info.ModTime().After(latest) {
					latest = info.ModTime()
				}
			}
		}
	}
	h.watchMu.Lock()
	h.modTime = latest
	h.watchMu.Unlock()
}

// CheckEdits polls the script dirs at most twice a second and rescans when
// a file changed. The host engine calls this from its frame loop.
func (h *Host) CheckEdits() {
	h.watchMu.Lock()
	if time.Since(h.modCheck) < 500*time.Millisecond {
		h.watchMu.Unlock()
		return
	}
	h.modCheck = time.Now()
	old := h.modTime
	h.watchMu.Unlock()
	h.refreshMod()
	h.watchMu.Lock()
	changed := h.modTime.After(old)
	h.watchMu.Unlock()
	if changed {
		h.Rescan()
	}
}

// Rescan re-reads the script dirs. Scripts whose files are gone get
// disabled and dropped; everything still present is stopped and loaded
// fresh so edits take effect.
func (h *Host) Rescan() {
	scanned := h.scan()

	h.mu.RLock()
	oldOwners := make([]string, 0, len(h.displayNames))
	for o := range h.displayNames {
		oldOwners = append(oldOwners, o)
	}
	h.mu.RUnlock()
	sort.Strings(oldOwners)

	for _, o := range oldOwners {
		if _, ok := scanned[o]; ok {
			h.Disable(o, "reloaded")
			continue
		}
		h.Disable(o, "removed")
		h.mu.Lock()
		delete(h.displayNames, o)
		delete(h.authors, o)
		delete(h.versions, o)
		delete(h.requires, o)
		delete(h.paths, o)
		delete(h.sizes, o)
		delete(h.modTimes, o)
		delete(h.invalid, o)
		delete(h.disabled, o)
		h.mu.Unlock()
	}

	h.loadScanned(scanned)
	h.refreshMod()
}
