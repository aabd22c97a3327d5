package grimoire

import (
	"embed"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/remeh/sizedwaitgroup"
)

//go:embed scripts
var sampleScripts embed.FS

const (
	minScriptMetaLen = 2
	maxScriptMetaLen = 40
)

func invalidScriptValue(s string) bool {
	l := len(s)
	return l < minScriptMetaLen || l > maxScriptMetaLen
}

type scriptInfo struct {
	name     string
	author   string
	version  float64
	requires map[string]float64
	path     string
	src      []byte
	invalid  bool
	apiVer   int
	size     int64
	modTime  time.Time
}

// parseRequires reads a comma-separated "Name>=1.5, Other>=2" declaration.
func parseRequires(s string) (map[string]float64, bool) {
	out := map[string]float64{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, verText, ok := strings.Cut(part, ">=")
		name = strings.TrimSpace(name)
		verText = strings.TrimSpace(verText)
		if !ok || name == "" || verText == "" {
			return nil, false
		}
		ver, err := strconv.ParseFloat(verText, 64)
		if err != nil {
			return nil, false
		}
		out[name] = ver
	}
	return out, true
}

type scriptCandidate struct {
	path    string
	base    string
	size    int64
	modTime time.Time
	src     []byte
	readErr error
}

// scanScripts walks the script dirs and extracts the metadata constants from
// every *.go file. Problems are sent to report; duplicate declared names
// keep the first file and send the rest to dup.
func scanScripts(scriptDirs []string, report func(string), dup func(name, path string)) map[string]scriptInfo {
	nameRE := regexp.MustCompile(`(?m)^\s*(?:var|const)\s+scriptName\s*=\s*"([^"]+)"`)
	authorRE := regexp.MustCompile(`(?m)^\s*(?:var|const)\s+scriptAuthor\s*=\s*"([^"]+)"`)
	versionRE := regexp.MustCompile(`(?m)^\s*(?:var|const)\s+scriptVersion\s*=\s*([0-9.]+)\s*$`)
	apiVerRE := regexp.MustCompile(`(?m)^\s*(?:var|const)\s+scriptAPIVersion\s*=\s*([0-9]+)\s*$`)
	requiresRE := regexp.MustCompile(`(?m)^\s*(?:var|const)\s+scriptRequires\s*=\s*"([^"]+)"`)
	if report == nil {
		report = func(string) {}
	}

	var candidates []*scriptCandidate
	for _, dir := range scriptDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				report("[script] read script dir " + dir + ": " + err.Error())
			}
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".go") {
				continue
			}
			c := &scriptCandidate{
				path: filepath.Join(dir, e.Name()),
				base: strings.TrimSuffix(e.Name(), ".go"),
			}
			if info, err := e.Info(); err == nil {
				c.size = info.Size()
				c.modTime = info.ModTime()
			}
			candidates = append(candidates, c)
		}
	}

	swg := sizedwaitgroup.New(runtime.NumCPU())
	for _, c := range candidates {
		swg.Add()
		go func(c *scriptCandidate) {
			defer swg.Done()
			c.src, c.readErr = os.ReadFile(c.path)
		}(c)
	}
	swg.Wait()

	scripts := map[string]scriptInfo{}
	seenNames := map[string]bool{}
	for _, c := range candidates {
		if c.readErr != nil {
			report("[script] read " + c.path + ": " + c.readErr.Error())
			continue
		}
		src := c.src
		name := c.base
		invalid := false
		nameMatch := nameRE.FindSubmatch(src)
		if len(nameMatch) >= 2 {
			name = strings.TrimSpace(string(nameMatch[1]))
		}
		if len(nameMatch) < 2 || name == "" || invalidScriptValue(name) {
			if len(nameMatch) < 2 || name == "" {
				report("[script] missing name: " + c.path)
				name = c.base
			} else {
				report("[script] invalid name: " + c.path)
			}
			invalid = true
		}
		author := ""
		if m := authorRE.FindSubmatch(src); len(m) >= 2 {
			author = strings.TrimSpace(string(m[1]))
		}
		if author == "" || invalidScriptValue(author) {
			if author == "" {
				report("[script] missing author: " + c.path)
			} else {
				report("[script] invalid author: " + c.path)
			}
			invalid = true
		}
		version := 1.0
		if m := versionRE.FindSubmatch(src); len(m) >= 2 {
			v, err := strconv.ParseFloat(strings.TrimSpace(string(m[1])), 64)
			if err != nil {
				report("[script] invalid version: " + c.path)
				invalid = true
			} else {
				version = v
			}
		}
		apiVer := 0
		if m := apiVerRE.FindSubmatch(src); len(m) >= 2 {
			if n, err := strconv.Atoi(strings.TrimSpace(string(m[1]))); err == nil {
				apiVer = n
			}
		}
		requires := map[string]float64{}
		if m := requiresRE.FindSubmatch(src); len(m) >= 2 {
			var ok bool
			requires, ok = parseRequires(string(m[1]))
			if !ok {
				report("[script] invalid requires: " + c.path)
				requires = map[string]float64{}
				invalid = true
			}
		}
		lower := strings.ToLower(name)
		if seenNames[lower] {
			if dup != nil {
				dup(name, c.path)
			}
			continue
		}
		seenNames[lower] = true
		owner := name + "_" + c.base
		scripts[owner] = scriptInfo{
			name:     name,
			author:   author,
			version:  version,
			requires: requires,
			path:     c.path,
			src:      src,
			invalid:  invalid,
			apiVer:   apiVer,
			size:     c.size,
			modTime:  c.modTime,
		}
	}
	return scripts
}

// installSamples populates dir with the embedded sample scripts when it has
// no scripts yet.
func (h *Host) installSamples(dir string) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		h.logError("[script] create scripts dir: %v", err)
		return
	}
	if entries, err := os.ReadDir(dir); err == nil {
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".go") {
				return
			}
		}
	}
	entries, err := sampleScripts.ReadDir("scripts")
	if err != nil {
		h.logError("[script] read embedded scripts: %v", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := sampleScripts.ReadFile(path.Join("scripts", e.Name()))
		if err != nil {
			h.logError("[script] read embedded %s: %v", e.Name(), err)
			continue
		}
		dst := filepath.Join(dir, e.Name())
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			h.logError("[script] write %s: %v", dst, err)
		}
	}
}
