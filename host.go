package grimoire

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"
)

const defaultGoroutineLimit = 1024

// Options configures a Host. The zero value works: no script dirs, storage
// under "data", notifications off.
type Options struct {
	// ScriptDirs are searched in order for *.go script files.
	ScriptDirs []string
	// DataDir holds per-script storage files. Empty means "data".
	DataDir string
	// ImportPrefix namespaces the legacy import-announcement flags. Empty
	// means "Grimoire".
	ImportPrefix string
	// Notifications lets load failures and script Notify calls raise
	// desktop notifications.
	Notifications bool
	// SpamKill disables a script that sends more than 30 commands in 5s.
	SpamKill bool
	// Debug mirrors script event reports to the process log.
	Debug bool
	// TimestampFormat and Timestamps control console rendering.
	TimestampFormat string
	Timestamps      bool
	// GoroutineLimit stops every script when the process exceeds it. Zero
	// means 1024.
	GoroutineLimit int
	// InstallSamples populates the first script dir with the embedded
	// sample scripts when it holds no scripts yet.
	InstallSamples bool
}

// Host owns one Registry, one Tracker, and the script runtime around them:
// discovery, loading, commands, tags, storage, timers, and the console. All
// public methods are safe for concurrent use.
type Host struct {
	opts     Options
	registry *Registry
	tracker  *Tracker
	console  *Console
	commands *commandSet
	tags     *tagTable
	stores   *storeSet
	timers   *timerSet
	eval     *scriptEvaluator

	mu           sync.RWMutex
	displayNames map[string]string
	authors      map[string]string
	versions     map[string]float64
	requires     map[string]map[string]float64
	paths        map[string]string
	sizes        map[string]int64
	modTimes     map[string]time.Time
	invalid      map[string]bool
	disabled     map[string]bool
	terminators  map[string]func()
	names        map[string]bool

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter

	watchMu  sync.Mutex
	modTime  time.Time
	modCheck time.Time

	startMu   sync.Mutex
	startedAt time.Time
	stop      chan struct{}
}

func NewHost(opts Options) *Host {
	if opts.DataDir == "" {
		opts.DataDir = "data"
	}
	h := &Host{
		opts:         opts,
		registry:     NewRegistry(opts.ImportPrefix),
		tracker:      NewTracker(),
		console:      newConsole(opts.TimestampFormat, opts.Timestamps),
		displayNames: map[string]string{},
		authors:      map[string]string{},
		versions:     map[string]float64{},
		requires:     map[string]map[string]float64{},
		paths:        map[string]string{},
		sizes:        map[string]int64{},
		modTimes:     map[string]time.Time{},
		invalid:      map[string]bool{},
		disabled:     map[string]bool{},
		terminators:  map[string]func(){},
		names:        map[string]bool{},
		limiters:     map[string]*rate.Limiter{},
	}
	h.commands = newCommandSet()
	h.tags = newTagTable()
	h.stores = newStoreSet(opts.DataDir)
	h.timers = newTimerSet()
	h.eval = &scriptEvaluator{}
	return h
}

// Registry returns the host's script registry.
func (h *Host) Registry() *Registry { return h.registry }

// Tracker returns the host's change tracker.
func (h *Host) Tracker() *Tracker { return h.tracker }

// Message appends a line to the console.
func (h *Host) Message(msg string) { h.console.Message(msg) }

// Messages returns the console buffer.
func (h *Host) Messages() []string { return h.console.Messages() }

// Notify raises a desktop notification and echoes it to the console.
func (h *Host) Notify(msg string) {
	if msg == "" {
		return
	}
	h.console.Message("[notice] " + msg)
	if h.opts.Notifications {
		notifyDesktop("grimoire", msg)
	}
}

func (h *Host) logError(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	log.Print(msg)
	h.console.Message(msg)
}

func (h *Host) logDebug(format string, v ...any) {
	if !h.opts.Debug {
		return
	}
	log.Printf(format, v...)
}

// Start launches the goroutine watchdog and the storage flush ticker. It
// does not load scripts; call LoadAll for that.
func (h *Host) Start() {
	h.startMu.Lock()
	defer h.startMu.Unlock()
	if h.stop != nil {
		return
	}
	h.stop = make(chan struct{})
	h.startedAt = time.Now()
	go h.watchdog(h.stop)
	go h.flushLoop(h.stop)
}

// Stop disables every script, flushes storage, and halts the background
// loops.
func (h *Host) Stop() {
	h.startMu.Lock()
	stop := h.stop
	h.stop = nil
	h.startMu.Unlock()
	if stop != nil {
		close(stop)
	}
	h.StopAll("host stopped")
	h.stores.SaveAll()
}

func (h *Host) watchdog(stop <-chan struct{}) {
	limit := h.opts.GoroutineLimit
	if limit <= 0 {
		limit = defaultGoroutineLimit
	}
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if runtime.NumGoroutine() > limit {
				h.logError("[script] goroutine limit exceeded; stopping all scripts")
				h.StopAll("goroutine limit exceeded")
				return
			}
		}
	}
}

func (h *Host) flushLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.stores.SaveAll()
		}
	}
}

// Scripts returns every known owner key, sorted.
func (h *Host) Scripts() []string {
	h.mu.RLock()
	out := make([]string, 0, len(h.displayNames))
	for o := range h.displayNames {
		out = append(out, o)
	}
	h.mu.RUnlock()
	sort.Strings(out)
	return out
}

// DisplayName returns the declared name for an owner key, or the key itself
// when unknown.
func (h *Host) DisplayName(owner string) string {
	h.mu.RLock()
	name := h.displayNames[owner]
	h.mu.RUnlock()
	if name == "" {
		return owner
	}
	return name
}

// IsDisabled reports whether owner is currently disabled.
func (h *Host) IsDisabled(owner string) bool {
	h.mu.RLock()
	disabled := h.disabled[owner]
	h.mu.RUnlock()
	return disabled
}

// Enable reloads owner's script from disk and runs it.
func (h *Host) Enable(owner string) {
	h.mu.RLock()
	path := h.paths[owner]
	name := h.displayNames[owner]
	invalid := h.invalid[owner]
	h.mu.RUnlock()
	if path == "" || invalid {
		return
	}
	src, err := os.ReadFile(path)
	if err != nil {
		h.logError("[script] read error for %s: %v", path, err)
		return
	}
	h.loadSource(owner, name, path, src)
}

// Disable stops owner's script and tears down everything it registered:
// commands, tags, console triggers, timers, tick waiters, and its send
// limiter. The Terminate func runs on its own goroutine. Storage stays on
// disk. The tracker log is an audit trail and is left alone.
func (h *Host) Disable(owner, reason string) {
	h.mu.Lock()
	if h.disabled[owner] {
		h.mu.Unlock()
		return
	}
	h.disabled[owner] = true
	term := h.terminators[owner]
	delete(h.terminators, owner)
	disp := h.displayNames[owner]
	h.mu.Unlock()
	if term != nil {
		go term()
	}

	h.commands.removeOwner(owner)
	h.tags.removeOwner(owner)
	h.console.RemoveTriggers(owner)
	h.timers.stopOwner(owner)

	h.limiterMu.Lock()
	delete(h.limiters, owner)
	h.limiterMu.Unlock()

	if disp == "" {
		disp = owner
	}
	h.console.Message("[script:" + disp + "] stopped: " + reason)
}

// StopAll disables every script that is still running.
func (h *Host) StopAll(reason string) {
	h.mu.RLock()
	owners := make([]string, 0, len(h.displayNames))
	for o := range h.displayNames {
		if !h.disabled[o] {
			owners = append(owners, o)
		}
	}
	h.mu.RUnlock()
	sort.Strings(owners)
	for _, o := range owners {
		h.Disable(o, reason)
	}
	if len(owners) > 0 {
		h.console.Message("[script] all scripts stopped")
	}
}

// recordSend counts one outgoing command against owner's limiter and
// reports whether the script was disabled for spamming.
func (h *Host) recordSend(owner string) bool {
	if !h.opts.SpamKill {
		return false
	}
	h.limiterMu.Lock()
	lim, ok := h.limiters[owner]
	if !ok {
		lim = rate.NewLimiter(rate.Every(5*time.Second/30), 30)
		h.limiters[owner] = lim
	}
	h.limiterMu.Unlock()
	if lim.Allow() {
		return false
	}
	h.Disable(owner, "sent too many lines")
	return true
}

// ListScripts renders one line per script plus an uptime header, for the
// built-in /scripts command and host UIs.
func (h *Host) ListScripts() []string {
	h.mu.RLock()
	owners := make([]string, 0, len(h.displayNames))
	for o := range h.displayNames {
		owners = append(owners, o)
	}
	sort.Strings(owners)

	titler := cases.Title(language.AmericanEnglish)
	lines := make([]string, 0, len(owners)+1)
	h.startMu.Lock()
	startedAt := h.startedAt
	h.startMu.Unlock()
	header := fmt.Sprintf("%d scripts", len(owners))
	if !startedAt.IsZero() {
		up := durafmt.Parse(time.Since(startedAt).Round(time.Second)).LimitFirstN(2)
		header += ", up " + up.String()
	}
	lines = append(lines, header)
	for _, o := range owners {
		status := "enabled"
		if h.invalid[o] {
			status = "invalid"
		} else if h.disabled[o] {
			status = "disabled"
		}
		line := fmt.Sprintf("%s v%v by %s (%s, %s, edited %s)",
			titler.String(FormatName(h.displayNames[o])),
			h.versions[o],
			h.authors[o],
			status,
			humanize.Bytes(uint64(h.sizes[o])),
			humanize.Time(h.modTimes[o]))
		lines = append(lines, line)
	}
	h.mu.RUnlock()
	return lines
}

// DeclareOverwrites is the explicit overwrite declaration for the shared
// command table. With no names it arms the table for the next registration;
// with names each must already be a registered command.
func (h *Host) DeclareOverwrites(owner string, names ...string) error {
	if h.IsDisabled(owner) {
		return nil
	}
	keys := make([]string, 0, len(names))
	for _, n := range names {
		k := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(n), "/"))
		if k != "" {
			keys = append(keys, k)
		}
	}
	return h.tracker.Overwrites(commandScope, h.commands.has, keys...)
}
