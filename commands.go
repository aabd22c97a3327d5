package grimoire

import (
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/f1monkey/spellchecker"
)

// commandScope is the tracker owner for the shared slash-command table.
// Aliases and overwrites of commands are logged under it.
const commandScope = "commands"

type commandHandler func(args string)

type commandSet struct {
	mu       sync.RWMutex
	handlers map[string]commandHandler
	owners   map[string]string
}

func newCommandSet() *commandSet {
	return &commandSet{
		handlers: map[string]commandHandler{},
		owners:   map[string]string{},
	}
}

func (cs *commandSet) has(key string) bool {
	cs.mu.RLock()
	_, ok := cs.handlers[key]
	cs.mu.RUnlock()
	return ok
}

func (cs *commandSet) get(key string) (commandHandler, bool) {
	cs.mu.RLock()
	fn, ok := cs.handlers[key]
	cs.mu.RUnlock()
	return fn, ok
}

func (cs *commandSet) ownerOf(key string) (string, bool) {
	cs.mu.RLock()
	o, ok := cs.owners[key]
	cs.mu.RUnlock()
	return o, ok
}

func (cs *commandSet) set(key, owner string, fn commandHandler) {
	cs.mu.Lock()
	cs.handlers[key] = fn
	cs.owners[key] = owner
	cs.mu.Unlock()
}

func (cs *commandSet) removeOwner(owner string) {
	cs.mu.Lock()
	for key, o := range cs.owners {
		if o == owner {
			delete(cs.handlers, key)
			delete(cs.owners, key)
		}
	}
	cs.mu.Unlock()
}

func (cs *commandSet) names() []string {
	cs.mu.RLock()
	out := make([]string, 0, len(cs.handlers))
	for key := range cs.handlers {
		out = append(out, key)
	}
	cs.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (cs *commandSet) suggest(miss string) string {
	names := cs.names()
	if len(names) == 0 {
		return ""
	}
	sc, err := spellchecker.New(suggestAlphabet, spellchecker.WithMaxErrors(2))
	if err != nil {
		return ""
	}
	sc.Add(names...)
	got, err := sc.Suggest(strings.ToLower(miss), 1)
	if err != nil || len(got) == 0 {
		return ""
	}
	return got[0]
}

func commandKey(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
}

// RegisterCommand lets a script handle a local slash command like
// "/example". The name is matched case-insensitively, with or without the
// leading slash. Redefining an existing command needs an armed or declared
// overwrite; an unannounced redefine keeps the first handler and reports the
// conflict. Every registration is reported to the tracker as a definition
// event, so an armed overwrite-next flag is consumed here.
func (h *Host) RegisterCommand(owner, name string, handler func(args string)) {
	if name == "" || handler == nil {
		return
	}
	if h.IsDisabled(owner) {
		return
	}
	key := commandKey(name)
	if key == "" {
		return
	}
	armed := h.tracker.ObserveDefine(commandScope, key)
	if prev, exists := h.commands.ownerOf(key); exists {
		if !armed && !h.tracker.HasOverwrite(commandScope, key) {
			h.logError("[script] command conflict: /%s already registered", key)
			return
		}
		h.commands.set(key, owner, handler)
		msg := "[script] command replaced: /" + key + " (" + h.DisplayName(owner) + " overwrites " + h.DisplayName(prev) + ")"
		h.console.Message(msg)
		log.Print(msg)
		return
	}
	h.commands.set(key, owner, handler)
	h.console.Message("[script] command registered: /" + key)
	log.Printf("[script] command registered: /%s", key)
}

// AliasCommand binds a new name to an existing command's handler and logs
// the alias with the tracker. The original must exist and the alias must be
// free.
func (h *Host) AliasCommand(owner, alias, original string) {
	if h.IsDisabled(owner) {
		return
	}
	aliasKey := commandKey(alias)
	origKey := commandKey(original)
	if aliasKey == "" || origKey == "" {
		return
	}
	handler, ok := h.commands.get(origKey)
	if !ok {
		h.logError("[script] cannot alias unknown command: /%s", origKey)
		return
	}
	if h.commands.has(aliasKey) {
		h.logError("[script] command conflict: /%s already registered", aliasKey)
		return
	}
	h.commands.set(aliasKey, owner, handler)
	h.tracker.RegisterAlias(commandScope, aliasKey, origKey)
	msg := "[script] command aliased: /" + aliasKey + " -> /" + origKey
	h.console.Message(msg)
	log.Print(msg)
}

// Commands returns the registered command names, sorted.
func (h *Host) Commands() []string { return h.commands.names() }

// RunCommand echoes and dispatches a slash command line. "/scripts" is
// built in; unknown names get a did-you-mean hint.
func (h *Host) RunCommand(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	h.console.Message("> " + line)
	body := strings.TrimPrefix(line, "/")
	name, args := body, ""
	if i := strings.IndexByte(body, ' '); i >= 0 {
		name, args = body[:i], strings.TrimSpace(body[i+1:])
	}
	key := strings.ToLower(name)
	if key == "scripts" {
		for _, l := range h.ListScripts() {
			h.console.Message(l)
		}
		return
	}
	handler, ok := h.commands.get(key)
	if !ok {
		if hint := h.commands.suggest(key); hint != "" {
			h.console.Message("unknown command: /" + key + " (did you mean /" + hint + "?)")
		} else {
			h.console.Message("unknown command: /" + key)
		}
		return
	}
	h.logDebug("[script] run /%s %s", key, args)
	handler(args)
}

// runFromScript is the script-facing send path: rate limited, counted
// against the owner's spam limiter.
func (h *Host) runFromScript(owner, line string) {
	if h.IsDisabled(owner) {
		return
	}
	if h.recordSend(owner) {
		return
	}
	h.RunCommand(line)
}
