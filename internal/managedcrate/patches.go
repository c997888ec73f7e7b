package managedcrate

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cratehealth/internal/fsutil"
	"cratehealth/internal/runner"
)

// patchFiles lists stored patches in the order they are applied.
func patchFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.patch", "*.diff"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Slice(files, func(i, j int) bool {
		return filepath.Base(files[i]) < filepath.Base(files[j])
	})
	return files, nil
}

// applyPatches applies every stored patch and records each outcome. A failed
// patch does not stop the remaining ones from being tried.
func (m *ManagedCrate) applyPatches(ctx context.Context, s *Staged) error {
	files, err := patchFiles(filepath.Join(s.stagingPath, "patches"))
	if err != nil {
		return err
	}
	s.patchSuccess = true
	for _, file := range files {
		args := []string{"-p1", "--no-backup-if-mismatch", "-i", file}
		out, err := m.opts.Runner.Run(ctx, m.opts.PatchCommand, args, runner.RunOptions{Dir: s.stagingPath})
		if err != nil {
			return err
		}
		name := filepath.Base(file)
		s.patches = append(s.patches, PatchResult{Patch: name, Output: out})
		if !out.Success() {
			m.opts.Logger.Printf("managedcrate: %s: patch %s failed: %v", m.krate, name, out.SuccessOrError())
			s.patchSuccess = false
		}
	}
	return nil
}

// RecontextualizePatches rewrites the file headers of the crate's stored
// patches so that every path is relative to the crate root with the usual
// a/ and b/ prefixes, as `patch -p1` expects.
func (m *ManagedCrate) RecontextualizePatches() error {
	files, err := patchFiles(m.PatchDir())
	if err != nil {
		return err
	}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		rewritten, err := recontextualize(data, m.krate.Name(), m.krate.Path())
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		if bytes.Equal(rewritten, data) {
			continue
		}
		m.opts.Logger.Printf("managedcrate: rewrote %s", file)
		if err := os.WriteFile(file, rewritten, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func recontextualize(data []byte, crateName, root string) ([]byte, error) {
	lines := strings.SplitAfter(string(data), "\n")
	var out strings.Builder
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch {
		// A file header is a ---/+++ pair; a lone "--- " is a removed line.
		case strings.HasPrefix(line, "--- ") && i+1 < len(lines) && strings.HasPrefix(lines[i+1], "+++ "):
			out.WriteString("--- " + rewriteHeaderPath(line[4:], "a/", crateName, root))
			out.WriteString("+++ " + rewriteHeaderPath(lines[i+1][4:], "b/", crateName, root))
			i++
		case strings.HasPrefix(line, "diff --git "):
			fields := strings.Fields(line[len("diff --git "):])
			if len(fields) == 2 {
				line = "diff --git " + rewritePath(fields[0], "a/", crateName, root) + " " + rewritePath(fields[1], "b/", crateName, root) + "\n"
			}
			out.WriteString(line)
		default:
			out.WriteString(line)
		}
	}
	return []byte(out.String()), nil
}

// rewriteHeaderPath keeps any tab-separated timestamp after the path.
func rewriteHeaderPath(header, prefix, crateName, root string) string {
	header, nl := strings.CutSuffix(header, "\n")
	path, rest, found := strings.Cut(header, "\t")
	path = rewritePath(path, prefix, crateName, root)
	if found {
		path += "\t" + rest
	}
	if nl {
		path += "\n"
	}
	return path
}

// rewritePath strips everything up to and including the crate directory
// when the path does not already start at an entry of the crate root.
func rewritePath(path, prefix, crateName, root string) string {
	if path == "/dev/null" {
		return path
	}
	rel := strings.TrimPrefix(strings.TrimPrefix(path, "a/"), "b/")
	first, _, _ := strings.Cut(rel, "/")
	if fsutil.Exists(filepath.Join(root, first)) {
		return prefix + rel
	}
	if i := strings.Index("/"+rel, "/"+crateName+"/"); i >= 0 {
		rel = rel[i+len(crateName)+1:]
	}
	return prefix + rel
}
