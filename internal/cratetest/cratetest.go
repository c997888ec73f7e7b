// Package cratetest provides an in-memory crate registry and a fake runner
// that answers cargo, cargo_embargo and patch invocations against it.
package cratetest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"cratehealth/internal/runner"
	"cratehealth/internal/semver"
)

// Package is one published crate version.
type Package struct {
	Name        string
	Version     string
	License     string
	Repository  string
	Description string
	// Deps maps dependency names to requirements. "" means any version.
	Deps map[string]string
	// Files are extra files written next to Cargo.toml when vendored.
	Files map[string]string
}

// Manifest renders the package's Cargo.toml.
func (p Package) Manifest() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[package]\nname = %q\nversion = %q\n", p.Name, p.Version)
	if p.License != "" {
		fmt.Fprintf(&b, "license = %q\n", p.License)
	}
	if p.Repository != "" {
		fmt.Fprintf(&b, "repository = %q\n", p.Repository)
	}
	if p.Description != "" {
		fmt.Fprintf(&b, "description = %q\n", p.Description)
	}
	if len(p.Deps) > 0 {
		b.WriteString("\n[dependencies]\n")
		for _, name := range sortedKeys(p.Deps) {
			req := p.Deps[name]
			if req == "" {
				req = "*"
			}
			fmt.Fprintf(&b, "%s = %q\n", name, req)
		}
	}
	return b.String()
}

// WriteTo materializes the package in dir.
func (p Package) WriteTo(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(p.Manifest()), 0o644); err != nil {
		return err
	}
	for name, content := range p.Files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// Registry is a set of published packages.
type Registry struct {
	packages map[string][]Package
}

func NewRegistry(pkgs ...Package) *Registry {
	r := &Registry{packages: map[string][]Package{}}
	for _, p := range pkgs {
		r.Publish(p)
	}
	return r
}

func (r *Registry) Publish(p Package) {
	r.packages[p.Name] = append(r.packages[p.Name], p)
}

// Select returns the highest published version of name matching req, which
// is either "=x.y.z", a caret requirement, or "" / "*" for any.
func (r *Registry) Select(name, req string) (Package, bool) {
	var best Package
	found := false
	for _, p := range r.packages[name] {
		if !matches(p.Version, req) {
			continue
		}
		if !found || semver.Compare(semver.MustParseVersion(p.Version), semver.MustParseVersion(best.Version)) > 0 {
			best, found = p, true
		}
	}
	return best, found
}

func matches(version, req string) bool {
	req = strings.TrimSpace(req)
	if req == "" || req == "*" {
		return true
	}
	if !strings.HasPrefix(req, "=") && !strings.HasPrefix(req, "^") && !strings.HasPrefix(req, "~") && !strings.HasPrefix(req, ">") && !strings.HasPrefix(req, "<") {
		req = "^" + req
	}
	c, err := semver.ParseConstraint(req)
	if err != nil {
		return false
	}
	return semver.Satisfies(semver.MustParseVersion(version), c)
}

// Runner fakes the external tools. It is safe for use by one goroutine at a
// time, like the code under test.
type Runner struct {
	Registry *Registry
	// FailingPatches names patch files whose application fails.
	FailingPatches map[string]bool
	// Generate replaces the default cargo_embargo generate behavior, which
	// leaves Android.bp untouched and drops a cargo.out intermediate.
	Generate func(dir string) runner.Output
	// Autoconfig replaces the default cargo_embargo autoconfig behavior.
	Autoconfig func(dir string) runner.Output

	mu    sync.Mutex
	calls []string
}

// Calls returns every command line run so far.
func (r *Runner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// CallsTo returns the command lines whose tool base name is tool.
func (r *Runner) CallsTo(tool string) []string {
	var out []string
	for _, c := range r.Calls() {
		if strings.HasPrefix(c, tool+" ") || c == tool {
			out = append(out, c)
		}
	}
	return out
}

func (r *Runner) Run(ctx context.Context, command string, args []string, opts runner.RunOptions) (runner.Output, error) {
	tool := filepath.Base(command)
	r.mu.Lock()
	r.calls = append(r.calls, runner.CommandLine(tool, args))
	r.mu.Unlock()

	out := runner.Output{Command: runner.CommandLine(command, args)}
	switch tool {
	case "cargo":
		return r.cargo(out, args, opts.Dir)
	case "cargo_embargo":
		if len(args) > 0 && args[0] == "autoconfig" {
			if r.Autoconfig != nil {
				return withCommand(r.Autoconfig(opts.Dir), out.Command), nil
			}
			return out, os.WriteFile(filepath.Join(opts.Dir, "cargo_embargo.json"), []byte("{}\n"), 0o644)
		}
		if r.Generate != nil {
			return withCommand(r.Generate(opts.Dir), out.Command), nil
		}
		return out, os.WriteFile(filepath.Join(opts.Dir, "cargo.out"), []byte("ok\n"), 0o644)
	case "patch":
		if file := patchArg(args); r.FailingPatches[filepath.Base(file)] {
			out.ExitCode = 1
			out.Stdout = []byte("1 out of 1 hunk FAILED\n")
		}
		return out, nil
	default:
		out.ExitCode = 127
		return out, fmt.Errorf("run %s: executable file not found", command)
	}
}

func withCommand(out runner.Output, command string) runner.Output {
	out.Command = command
	return out
}

func patchArg(args []string) string {
	for i, a := range args {
		if a == "-i" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func fail(out runner.Output, format string, v ...any) (runner.Output, error) {
	out.ExitCode = 101
	out.Stderr = []byte("error: " + fmt.Sprintf(format, v...) + "\n")
	return out, nil
}

func (r *Runner) cargo(out runner.Output, args []string, dir string) (runner.Output, error) {
	if len(args) == 0 {
		return fail(out, "no subcommand")
	}
	manifestPath := filepath.Join(dir, "Cargo.toml")
	doc := map[string]any{}
	if _, err := toml.DecodeFile(manifestPath, &doc); err != nil {
		return out, err
	}
	deps, _ := doc["dependencies"].(map[string]any)
	if deps == nil {
		deps = map[string]any{}
	}

	switch args[0] {
	case "add":
		name, req, _ := strings.Cut(args[1], "@")
		p, ok := r.Registry.Select(name, req)
		if !ok {
			return fail(out, "the crate `%s` could not be found in registry index.", args[1])
		}
		if req == "" {
			req = p.Version
		}
		deps[name] = req
	case "remove":
		if _, ok := deps[args[1]]; !ok {
			return fail(out, "the dependency `%s` could not be found in `dependencies`.", args[1])
		}
		delete(deps, args[1])
	case "vendor":
		if err := r.vendor(dir, deps); err != nil {
			return fail(out, "%v", err)
		}
		return out, nil
	default:
		return fail(out, "no such command: `%s`", args[0])
	}

	doc["dependencies"] = deps
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return out, err
	}
	return out, os.WriteFile(manifestPath, buf.Bytes(), 0o644)
}

func (r *Runner) vendor(dir string, deps map[string]any) error {
	selected := map[string]Package{}
	var visit func(name, req string) error
	visit = func(name, req string) error {
		if _, done := selected[name]; done {
			return nil
		}
		p, ok := r.Registry.Select(name, req)
		if !ok {
			return fmt.Errorf("failed to select a version for the requirement `%s = \"%s\"`", name, req)
		}
		selected[name] = p
		for _, dep := range sortedKeys(p.Deps) {
			if err := visit(dep, p.Deps[dep]); err != nil {
				return err
			}
		}
		return nil
	}
	for _, name := range sortedKeys(deps) {
		req, _ := deps[name].(string)
		if err := visit(name, req); err != nil {
			return err
		}
	}

	vendorDir := filepath.Join(dir, "vendor")
	if err := os.RemoveAll(vendorDir); err != nil {
		return err
	}
	for name, p := range selected {
		if err := p.WriteTo(filepath.Join(vendorDir, name)); err != nil {
			return err
		}
		checksum := filepath.Join(vendorDir, name, ".cargo-checksum.json")
		if err := os.WriteFile(checksum, []byte("{\"files\":{}}"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// WritePseudoCrate creates an empty pseudo-crate manifest in dir.
func WritePseudoCrate(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	manifest := "[package]\nname = \"android-pseudo-crate\"\nversion = \"0.1.0\"\nedition = \"2021\"\npublish = false\n\n[dependencies]\n"
	return os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(manifest), 0o644)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ runner.Runner = (*Runner)(nil)
