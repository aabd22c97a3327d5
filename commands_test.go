package grimoire

import (
	"errors"
	"strings"
	"testing"
)

// lastMessage returns the newest console line, or "".
func lastMessage(h *Host) string {
	msgs := h.Messages()
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

func containsMessage(h *Host, want string) bool {
	for _, m := range h.Messages() {
		if m == want {
			return true
		}
	}
	return false
}

// Test registering a mixed-case command and running it through the command
// line entry point.
func TestHostRegisterAndRunCommand(t *testing.T) {
	h := NewHost(Options{})
	h.RegisterCommand("tester", "MiXeD", func(args string) {
		h.Message("handled " + args)
	})

	cmds := h.Commands()
	if len(cmds) != 1 || cmds[0] != "mixed" {
		t.Fatalf("commands %v", cmds)
	}

	h.RunCommand("/MIXED input text")
	if got := lastMessage(h); got != "handled input text" {
		t.Fatalf("last message %q", got)
	}
	if !containsMessage(h, "> /MIXED input text") {
		t.Fatalf("command not echoed: %v", h.Messages())
	}
}

// Test that a second registration of the same name without an overwrite
// declaration keeps the first handler and reports the conflict.
func TestHostCommandConflictKeepsFirst(t *testing.T) {
	h := NewHost(Options{})
	h.RegisterCommand("first_a", "wave", func(args string) { h.Message("first") })
	h.RegisterCommand("second_b", "wave", func(args string) { h.Message("second") })

	if !containsMessage(h, "[script] command conflict: /wave already registered") {
		t.Fatalf("conflict not reported: %v", h.Messages())
	}
	h.RunCommand("/wave")
	if got := lastMessage(h); got != "first" {
		t.Fatalf("handler replaced without declaration: %q", got)
	}
}

// Test that arming the table with OverwriteNext lets the next registration
// replace an existing command, and that the overwrite lands in the tracker.
func TestHostCommandOverwriteArmed(t *testing.T) {
	h := NewHost(Options{})
	h.RegisterCommand("first_a", "wave", func(args string) { h.Message("first") })
	h.Tracker().OverwriteNext(commandScope)
	h.RegisterCommand("second_b", "wave", func(args string) { h.Message("second") })

	h.RunCommand("/wave")
	if got := lastMessage(h); got != "second" {
		t.Fatalf("armed overwrite did not replace: %q", got)
	}
	over := h.Tracker().OverwrittenBy(commandScope)
	if len(over) != 1 || over[0] != "wave" {
		t.Fatalf("overwrite log %v", over)
	}

	// The logged overwrite keeps the name open for later redefinitions.
	h.RegisterCommand("third_c", "wave", func(args string) { h.Message("third") })
	h.RunCommand("/wave")
	if got := lastMessage(h); got != "third" {
		t.Fatalf("logged overwrite did not stay open: %q", got)
	}
}

// Test the explicit overwrite declaration: named commands must already
// exist, a missing one raises and keeps the earlier names, and an empty
// declaration arms the table.
func TestHostDeclareOverwrites(t *testing.T) {
	h := NewHost(Options{})
	h.RegisterCommand("tester", "wave", func(args string) {})
	h.RegisterCommand("tester", "bow", func(args string) {})

	if err := h.DeclareOverwrites("tester", "wave"); err != nil {
		t.Fatalf("declare existing: %v", err)
	}
	if !h.Tracker().HasOverwrite(commandScope, "wave") {
		t.Fatalf("wave not logged")
	}

	err := h.DeclareOverwrites("tester", "bow", "missing")
	var mm *MissingMethodError
	if !errors.As(err, &mm) {
		t.Fatalf("got %v, want MissingMethodError", err)
	}
	if mm.Name != "missing" {
		t.Fatalf("error names %q", mm.Name)
	}
	if !h.Tracker().HasOverwrite(commandScope, "bow") {
		t.Fatalf("bow dropped by later failure")
	}

	if err := h.DeclareOverwrites("tester"); err != nil {
		t.Fatalf("empty declaration: %v", err)
	}
	if !h.Tracker().Pending(commandScope) {
		t.Fatalf("empty declaration did not arm")
	}
}

// Test aliasing a command: both names dispatch, and the alias is logged
// with the tracker under the original name.
func TestHostAliasCommand(t *testing.T) {
	h := NewHost(Options{})
	h.RegisterCommand("tester", "wave", func(args string) { h.Message("waved " + args) })
	h.AliasCommand("tester", "w", "wave")

	h.RunCommand("/w hello")
	if got := lastMessage(h); got != "waved hello" {
		t.Fatalf("alias did not dispatch: %q", got)
	}

	aliases := h.Tracker().AliasesOf(commandScope)
	if got := aliases["wave"]; len(got) != 1 || got[0] != "w" {
		t.Fatalf("alias log %v", aliases)
	}

	h.AliasCommand("tester", "w", "wave")
	if !containsMessage(h, "[script] command conflict: /w already registered") {
		t.Fatalf("alias conflict not reported: %v", h.Messages())
	}
	h.AliasCommand("tester", "ww", "nosuch")
	if !containsMessage(h, "[script] cannot alias unknown command: /nosuch") {
		t.Fatalf("unknown original not reported: %v", h.Messages())
	}
}

// Test that an unknown command gets a near-miss suggestion.
func TestHostRunCommandSuggestion(t *testing.T) {
	h := NewHost(Options{})
	h.RegisterCommand("tester", "wave", func(args string) {})

	h.RunCommand("/wav")
	if got := lastMessage(h); got != "unknown command: /wav (did you mean /wave?)" {
		t.Fatalf("suggestion line %q", got)
	}
}

// Test that disabling a script removes its commands and that the script
// send path refuses to run for a disabled owner.
func TestHostDisabledCommandRemoved(t *testing.T) {
	h := NewHost(Options{})
	owner := "tester_file"
	h.RegisterCommand(owner, "wave", func(args string) { h.Message("waved") })
	h.Disable(owner, "testing")

	if cmds := h.Commands(); len(cmds) != 0 {
		t.Fatalf("commands survived disable: %v", cmds)
	}
	before := len(h.Messages())
	h.runFromScript(owner, "/wave")
	if after := len(h.Messages()); after != before {
		t.Fatalf("disabled owner still ran commands: %v", h.Messages()[before:])
	}
}

// Test that the spam limiter disables a script that sends too many
// commands at once.
func TestHostSpamKill(t *testing.T) {
	h := NewHost(Options{SpamKill: true})
	owner := "spammy_file"
	h.RegisterCommand(owner, "noop", func(args string) {})

	for i := 0; i < 40; i++ {
		h.runFromScript(owner, "/noop")
		if h.IsDisabled(owner) {
			break
		}
	}
	if !h.IsDisabled(owner) {
		t.Fatalf("spammer not disabled")
	}
	if !containsMessage(h, "[script:spammy_file] stopped: sent too many lines") {
		t.Fatalf("spam stop not reported: %v", h.Messages())
	}
}

// Test the built-in /scripts listing.
func TestHostRunCommandScripts(t *testing.T) {
	h := NewHost(Options{})
	h.mu.Lock()
	h.displayNames["Greeter_greeter"] = "Greeter"
	h.authors["Greeter_greeter"] = "Alice"
	h.versions["Greeter_greeter"] = 1.5
	h.sizes["Greeter_greeter"] = 2048
	h.mu.Unlock()

	h.RunCommand("/scripts")
	msgs := h.Messages()
	if len(msgs) < 3 {
		t.Fatalf("listing too short: %v", msgs)
	}
	if msgs[len(msgs)-2] != "1 scripts" {
		t.Fatalf("header %q", msgs[len(msgs)-2])
	}
	line := msgs[len(msgs)-1]
	if !strings.HasPrefix(line, "Greeter v1.5 by Alice (enabled, ") {
		t.Fatalf("listing line %q", line)
	}
}
