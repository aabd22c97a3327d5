package grimoire

import (
	"os"
	"path/filepath"
	"testing"
)

func writeScript(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

// Test that scanScripts extracts every metadata constant, including the
// requirement declaration, and keys the result by name plus file base.
func TestScanScriptsMetadata(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "greeter.go", `package main

const scriptName = "Greeter"
const scriptAuthor = "Alice, Bob"
const scriptVersion = 1.5
const scriptAPIVersion = 1
const scriptRequires = "Widgets>=1.5, Core>=2"
`)

	scanned := scanScripts([]string{dir}, nil, nil)
	info, ok := scanned["Greeter_greeter"]
	if !ok {
		t.Fatalf("owner key missing: %v", scanned)
	}
	if info.invalid {
		t.Fatalf("script marked invalid")
	}
	if info.name != "Greeter" || info.author != "Alice, Bob" {
		t.Fatalf("got name %q author %q", info.name, info.author)
	}
	if info.version != 1.5 || info.apiVer != 1 {
		t.Fatalf("got version %v api %d", info.version, info.apiVer)
	}
	if info.requires["Widgets"] != 1.5 || info.requires["Core"] != 2 {
		t.Fatalf("requires not parsed: %v", info.requires)
	}
	if info.size == 0 || info.modTime.IsZero() {
		t.Fatalf("file stats not recorded: size=%d mod=%v", info.size, info.modTime)
	}
}

// Test that a missing version defaults to 1.0 and a missing API version to 0.
func TestScanScriptsDefaults(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "plain.go", `package main

const scriptName = "Plain Script"
const scriptAuthor = "Carol"
`)

	scanned := scanScripts([]string{dir}, nil, nil)
	info, ok := scanned["Plain Script_plain"]
	if !ok {
		t.Fatalf("owner key missing: %v", scanned)
	}
	if info.invalid {
		t.Fatalf("script marked invalid")
	}
	if info.version != 1.0 {
		t.Fatalf("version %v, want 1.0", info.version)
	}
	if info.apiVer != 0 {
		t.Fatalf("apiVer %d, want 0", info.apiVer)
	}
	if len(info.requires) != 0 {
		t.Fatalf("unexpected requires: %v", info.requires)
	}
}

// Test that missing or out-of-range metadata marks the script invalid and
// reports each problem.
func TestScanScriptsInvalidMeta(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "noname.go", `package main

const scriptAuthor = "Carol"
`)
	writeScript(t, dir, "shortname.go", `package main

const scriptName = "X"
const scriptAuthor = "Carol"
`)
	writeScript(t, dir, "badver.go", `package main

const scriptName = "Bad Version"
const scriptAuthor = "Carol"
const scriptVersion = 1.2.3
`)

	var reports []string
	scanned := scanScripts([]string{dir}, func(msg string) { reports = append(reports, msg) }, nil)

	info, ok := scanned["noname_noname"]
	if !ok || !info.invalid {
		t.Fatalf("missing-name script not invalid: %+v", scanned)
	}
	info, ok = scanned["X_shortname"]
	if !ok || !info.invalid {
		t.Fatalf("short-name script not invalid: %+v", scanned)
	}
	info, ok = scanned["Bad Version_badver"]
	if !ok || !info.invalid {
		t.Fatalf("bad-version script not invalid: %+v", scanned)
	}

	want := map[string]bool{
		"[script] missing name: " + filepath.Join(dir, "noname.go"):    false,
		"[script] invalid name: " + filepath.Join(dir, "shortname.go"): false,
		"[script] invalid version: " + filepath.Join(dir, "badver.go"): false,
	}
	for _, r := range reports {
		if _, ok := want[r]; ok {
			want[r] = true
		}
	}
	for msg, seen := range want {
		if !seen {
			t.Fatalf("report %q not seen in %v", msg, reports)
		}
	}
}

// Test that a malformed requires declaration invalidates the script.
func TestScanScriptsBadRequires(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "badreq.go", `package main

const scriptName = "Bad Requires"
const scriptAuthor = "Carol"
const scriptRequires = "Widgets"
`)

	var reports []string
	scanned := scanScripts([]string{dir}, func(msg string) { reports = append(reports, msg) }, nil)
	info, ok := scanned["Bad Requires_badreq"]
	if !ok {
		t.Fatalf("owner key missing: %v", scanned)
	}
	if !info.invalid {
		t.Fatalf("script not marked invalid")
	}
	found := false
	for _, r := range reports {
		if r == "[script] invalid requires: "+filepath.Join(dir, "badreq.go") {
			found = true
		}
	}
	if !found {
		t.Fatalf("invalid requires not reported: %v", reports)
	}
}

// Test that two files declaring the same name keep the first and report the
// second through the duplicate callback, matching case-insensitively.
func TestScanScriptsDuplicateName(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "aaa.go", `package main

const scriptName = "Twin"
const scriptAuthor = "Carol"
`)
	writeScript(t, dir, "bbb.go", `package main

const scriptName = "twin"
const scriptAuthor = "Dave"
`)

	var dups []string
	scanned := scanScripts([]string{dir}, nil, func(name, path string) {
		dups = append(dups, name+"|"+path)
	})
	if _, ok := scanned["Twin_aaa"]; !ok {
		t.Fatalf("first file not kept: %v", scanned)
	}
	if _, ok := scanned["twin_bbb"]; ok {
		t.Fatalf("duplicate file kept: %v", scanned)
	}
	if len(dups) != 1 || dups[0] != "twin|"+filepath.Join(dir, "bbb.go") {
		t.Fatalf("duplicate callback %v", dups)
	}
}

// Test parseRequires against well-formed and malformed declarations.
func TestParseRequires(t *testing.T) {
	got, ok := parseRequires("Widgets>=1.5, Core>=2")
	if !ok || got["Widgets"] != 1.5 || got["Core"] != 2 {
		t.Fatalf("got %v ok=%v", got, ok)
	}
	if got, ok := parseRequires(""); !ok || len(got) != 0 {
		t.Fatalf("empty declaration: %v ok=%v", got, ok)
	}
	if _, ok := parseRequires("Widgets"); ok {
		t.Fatalf("missing operator accepted")
	}
	if _, ok := parseRequires("Widgets>=abc"); ok {
		t.Fatalf("bad version accepted")
	}
	if _, ok := parseRequires(">=1.5"); ok {
		t.Fatalf("missing name accepted")
	}
}
