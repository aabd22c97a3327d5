package grimoire

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

const scriptAPICurrentVersion = 1

var scriptAllowedPkgs = []string{
	"bytes/bytes",
	"encoding/json/json",
	"errors/errors",
	"fmt/fmt",
	"math/big/big",
	"math/math",
	"math/rand/rand",
	"regexp/regexp",
	"sort/sort",
	"strconv/strconv",
	"strings/strings",
	"time/time",
	"unicode/utf8/utf8",
}

func restrictedStdlib() interp.Exports {
	restricted := interp.Exports{}
	for _, key := range scriptAllowedPkgs {
		if syms, ok := stdlib.Symbols[key]; ok {
			restricted[key] = syms
		}
	}
	return restricted
}

// exportsForScript builds the per-owner script API. Yaegi expects keys as
// "importPath/pkgName"; scripts import "gr".
func exportsForScript(h *Host, owner string) interp.Exports {
	m := map[string]reflect.Value{
		"Print":  reflect.ValueOf(func(msg string) { h.scriptPrint(owner, msg) }),
		"Notify": reflect.ValueOf(func(msg string) { h.Notify(msg) }),
		"Run":    reflect.ValueOf(func(text string) { h.runFromScript(owner, strings.TrimSpace(text)) }),
		"RegisterCommand": reflect.ValueOf(func(name string, handler func(string)) {
			h.RegisterCommand(owner, name, handler)
		}),
		"AliasCommand": reflect.ValueOf(func(alias, original string) {
			h.AliasCommand(owner, alias, original)
		}),
		"OverwriteNext": reflect.ValueOf(func() {
			if !h.IsDisabled(owner) {
				h.tracker.OverwriteNext(commandScope)
			}
		}),
		"Overwrites": reflect.ValueOf(func(names ...string) {
			if err := h.DeclareOverwrites(owner, names...); err != nil {
				h.logError("[script:%s] %v", h.DisplayName(owner), err)
			}
		}),
		"Console": reflect.ValueOf(func(phrase string, handler func(string)) {
			p := strings.TrimSpace(phrase)
			if p != "" && handler != nil && !h.IsDisabled(owner) {
				h.console.Trigger(owner, []string{p}, handler)
			}
		}),
		"NoteTag": reflect.ValueOf(func(pattern string, action any) {
			h.NoteTag(owner, pattern, action)
		}),
		"CommentTag": reflect.ValueOf(func(pattern string, action any) {
			h.CommentTag(owner, pattern, action)
		}),
		"Require": reflect.ValueOf(func(name string, min float64) bool {
			return h.scriptRequire(owner, name, min)
		}),
		"Installed": reflect.ValueOf(func(name string) bool {
			return h.registry.Include(name)
		}),
		"Save": reflect.ValueOf(func(key, value string) { h.StorageSet(owner, key, value) }),
		"Load": reflect.ValueOf(func(key string) string {
			if v, ok := h.StorageGet(owner, key).(string); ok {
				return v
			}
			return ""
		}),
		"Delete":        reflect.ValueOf(func(key string) { h.StorageDelete(owner, key) }),
		"StorageGet":    reflect.ValueOf(func(key string) any { return h.StorageGet(owner, key) }),
		"StorageSet":    reflect.ValueOf(func(key string, value any) { h.StorageSet(owner, key, value) }),
		"StorageDelete": reflect.ValueOf(func(key string) { h.StorageDelete(owner, key) }),
		"After": reflect.ValueOf(func(ms int, fn func()) {
			if fn == nil || ms <= 0 || h.IsDisabled(owner) {
				return
			}
			h.timers.after(owner, time.Duration(ms)*time.Millisecond, fn)
		}),
		"Every": reflect.ValueOf(func(ms int, fn func()) {
			if fn == nil || ms <= 0 || h.IsDisabled(owner) {
				return
			}
			h.timers.every(owner, time.Duration(ms)*time.Millisecond, fn)
		}),
		"SleepTicks": reflect.ValueOf(func(ticks int) { h.timers.sleepTicks(owner, ticks) }),
	}
	return interp.Exports{"gr/gr": m}
}

func (h *Host) scriptPrint(owner, msg string) {
	if h.IsDisabled(owner) {
		return
	}
	h.console.Message(msg)
	h.logDebug("[script:%s] %s", h.DisplayName(owner), msg)
}

// scriptRequire is the script-facing requirement check. Failures land on
// the console instead of propagating into interpreted code.
func (h *Host) scriptRequire(owner, name string, min float64) bool {
	if h.IsDisabled(owner) {
		return false
	}
	if _, err := h.registry.Require(map[string]float64{name: min}); err != nil {
		h.logError("[script:%s] %v", h.DisplayName(owner), err)
		return false
	}
	return true
}

// stripGoBuildDirectives removes leading build constraints (//go:build,
// // +build) which are meaningful to the Go toolchain but can confuse the
// interpreter.
func stripGoBuildDirectives(src []byte) []byte {
	lines := strings.Split(string(src), "\n")
	out := make([]string, 0, len(lines))
	i := 0
	for i < len(lines) {
		l := strings.TrimSpace(lines[i])
		if strings.HasPrefix(l, "package ") {
			break
		}
		if strings.HasPrefix(l, "//go:build") || strings.HasPrefix(l, "// +build") || l == "" {
			i++
			continue
		}
		break
	}
	if i > 0 {
		out = append(out, lines[i:]...)
		return []byte(strings.Join(out, "\n"))
	}
	return src
}

// loadSource runs one script through a fresh interpreter. Init runs
// synchronously so a caller observes a fully started script; long-running
// work belongs in After/Every timers.
func (h *Host) loadSource(owner, name, path string, src []byte) {
	i := interp.New(interp.Options{})
	if restricted := restrictedStdlib(); len(restricted) > 0 {
		i.Use(restricted)
	}
	i.Use(exportsForScript(h, owner))
	h.mu.Lock()
	h.disabled[owner] = false
	h.mu.Unlock()
	src = stripGoBuildDirectives(src)
	if _, err := i.Eval(string(src)); err != nil {
		h.logError("[script] load error for %s: %v", path, err)
		h.Disable(owner, "load error")
		return
	}
	if v, err := i.Eval("Terminate"); err == nil {
		if fn, ok := v.Interface().(func()); ok {
			h.mu.Lock()
			h.terminators[owner] = fn
			h.mu.Unlock()
		}
	}
	if v, err := i.Eval("Init"); err == nil {
		if fn, ok := v.Interface().(func()); ok {
			fn()
		}
	}
	h.logDebug("loaded script %s", path)
	h.console.Message("[script] loaded: " + name)
}

// LoadAll scans the script dirs, enters every valid script into the
// registry, then checks requirements and loads in owner order.
func (h *Host) LoadAll() {
	if h.opts.InstallSamples && len(h.opts.ScriptDirs) > 0 {
		h.installSamples(h.opts.ScriptDirs[0])
	}
	h.loadScanned(h.scan())
	h.refreshMod()
}

func (h *Host) scan() map[string]scriptInfo {
	return scanScripts(h.opts.ScriptDirs, h.console.Message, func(name, path string) {
		h.logError("[script] duplicate name: %s (%s)", name, path)
	})
}

// loadScanned enters every valid script into the registry first, then
// checks requirements and loads in owner order. Entering everything first
// means requirement checks see the whole installation, not just the scripts
// that happened to load earlier.
func (h *Host) loadScanned(scanned map[string]scriptInfo) {
	owners := make([]string, 0, len(scanned))
	for o := range scanned {
		owners = append(owners, o)
	}
	sort.Strings(owners)

	var total int64
	for _, o := range owners {
		info := scanned[o]
		total += info.size
		invalid := info.invalid
		if !invalid && info.apiVer != scriptAPICurrentVersion {
			h.logError("[script] wrong API version in %s: have %d, want %d",
				info.path, info.apiVer, scriptAPICurrentVersion)
			invalid = true
		}
		h.mu.Lock()
		h.displayNames[o] = info.name
		h.authors[o] = info.author
		h.versions[o] = info.version
		h.requires[o] = info.requires
		h.paths[o] = info.path
		h.sizes[o] = info.size
		h.modTimes[o] = info.modTime
		h.invalid[o] = invalid
		h.disabled[o] = true
		h.names[strings.ToLower(info.name)] = true
		h.mu.Unlock()
		if invalid {
			continue
		}
		rec := Record{Name: info.name, Version: info.version, Authors: splitAuthors(info.author)}
		if _, err := h.registry.Enter(rec); err != nil {
			h.logError("[script] enter %s: %v", info.name, err)
			h.mu.Lock()
			h.invalid[o] = true
			h.mu.Unlock()
		}
	}
	h.console.Message(fmt.Sprintf("[script] scanned %d scripts (%s)",
		len(owners), humanize.Bytes(uint64(total))))

	for _, o := range owners {
		h.mu.RLock()
		invalid := h.invalid[o]
		requires := h.requires[o]
		name := h.displayNames[o]
		h.mu.RUnlock()
		if invalid {
			continue
		}
		if len(requires) > 0 {
			if _, err := h.registry.Require(requires); err != nil {
				h.logError("[script] requirement failed for %s: %v", name, err)
				h.Notify("script " + name + " not loaded: " + err.Error())
				continue
			}
		}
		info := scanned[o]
		h.loadSource(o, name, info.path, info.src)
	}
}

func splitAuthors(s string) []string {
	return dedupAuthors(strings.Split(s, ","))
}

// scriptEvaluator runs tag-action code strings through a shared restricted
// interpreter, created on first use.
type scriptEvaluator struct {
	mu sync.Mutex
	i  *interp.Interpreter
}

func (e *scriptEvaluator) Eval(src string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.i == nil {
		e.i = interp.New(interp.Options{})
		if restricted := restrictedStdlib(); len(restricted) > 0 {
			e.i.Use(restricted)
		}
	}
	_, err := e.i.Eval(src)
	return err
}
