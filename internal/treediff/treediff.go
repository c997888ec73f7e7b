// Package treediff compares crate directory trees and build files the way
// `diff -r -w --no-dereference --exclude=... -I ...` would, without shelling
// out. Unified output is produced with github.com/pmezard/go-difflib.
package treediff

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/bmatcuk/doublestar"
	difflib "github.com/pmezard/go-difflib/difflib"
)

// Kind classifies a single difference between two trees.
type Kind string

const (
	OnlyInA      Kind = "only-in-a"
	OnlyInB      Kind = "only-in-b"
	Differ       Kind = "differ"
	TypeMismatch Kind = "type-mismatch"
)

// Options controls a tree comparison.
type Options struct {
	// Exclude holds base-name patterns; matching files and directories are
	// skipped on both sides.
	Exclude []string
	// IgnoreLine drops lines matching the expression before comparing.
	IgnoreLine *regexp.Regexp
	// IgnoreWhitespace compares lines with all whitespace removed.
	IgnoreWhitespace bool
	// Detail attaches a unified diff to each differing text file.
	Detail bool
	// Context is the number of context lines in unified output. 0 means 3.
	Context int
}

// DefaultOptions returns the comparison used for migration health checks.
func DefaultOptions() Options {
	return Options{
		Exclude:          append([]string(nil), IgnoredFiles...),
		IgnoreLine:       regexp.MustCompile(regexp.QuoteMeta(DefaultTeamLine)),
		IgnoreWhitespace: true,
	}
}

type Difference struct {
	Path   string
	Kind   Kind
	Detail string
}

func (d Difference) String() string {
	switch d.Kind {
	case OnlyInA:
		return "only in a: " + d.Path
	case OnlyInB:
		return "only in b: " + d.Path
	case TypeMismatch:
		return "file types differ: " + d.Path
	default:
		return "files differ: " + d.Path
	}
}

// Result lists differences in path order.
type Result struct {
	A           string
	B           string
	Differences []Difference
}

// Equal reports whether no differences were found.
func (r Result) Equal() bool {
	return len(r.Differences) == 0
}

// Paths returns the relative paths of all differences.
func (r Result) Paths() []string {
	out := make([]string, len(r.Differences))
	for i, d := range r.Differences {
		out[i] = d.Path
	}
	return out
}

// Summary renders one line per difference, followed by unified diffs when
// they were computed.
func (r Result) Summary() string {
	var b strings.Builder
	for _, d := range r.Differences {
		b.WriteString(d.String())
		b.WriteByte('\n')
	}
	for _, d := range r.Differences {
		if d.Detail != "" {
			b.WriteString(d.Detail)
		}
	}
	return b.String()
}

type entry struct {
	mode   fs.FileMode
	target string
}

// Dirs compares the trees rooted at a and b.
func Dirs(a, b string, opt Options) (Result, error) {
	res := Result{A: a, B: b}
	left, err := listTree(a, opt)
	if err != nil {
		return res, err
	}
	right, err := listTree(b, opt)
	if err != nil {
		return res, err
	}

	paths := make([]string, 0, len(left)+len(right))
	for p := range left {
		paths = append(paths, p)
	}
	for p := range right {
		if _, ok := left[p]; !ok {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	for _, rel := range paths {
		l, inLeft := left[rel]
		r, inRight := right[rel]
		switch {
		case !inLeft:
			if !coveredByOnly(res.Differences, rel, OnlyInB) {
				res.Differences = append(res.Differences, Difference{Path: rel, Kind: OnlyInB})
			}
		case !inRight:
			if !coveredByOnly(res.Differences, rel, OnlyInA) {
				res.Differences = append(res.Differences, Difference{Path: rel, Kind: OnlyInA})
			}
		case l.mode.Type() != r.mode.Type():
			res.Differences = append(res.Differences, Difference{Path: rel, Kind: TypeMismatch})
		case l.mode&fs.ModeSymlink != 0:
			if l.target != r.target {
				res.Differences = append(res.Differences, Difference{Path: rel, Kind: Differ})
			}
		case l.mode.IsRegular():
			d, same, err := compareFiles(filepath.Join(a, rel), filepath.Join(b, rel), rel, opt)
			if err != nil {
				return res, err
			}
			if !same {
				res.Differences = append(res.Differences, d)
			}
		}
	}
	return res, nil
}

// coveredByOnly suppresses entries nested below a directory already reported
// as present on one side only, or as a file on the other side.
func coveredByOnly(diffs []Difference, rel string, kind Kind) bool {
	for i := len(diffs) - 1; i >= 0; i-- {
		d := diffs[i]
		if (d.Kind == kind || d.Kind == TypeMismatch) && strings.HasPrefix(rel, d.Path+"/") {
			return true
		}
	}
	return false
}

func listTree(root string, opt Options) (map[string]entry, error) {
	out := map[string]entry{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if excluded(d.Name(), opt.Exclude) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		e := entry{mode: info.Mode()}
		if info.Mode()&fs.ModeSymlink != 0 {
			if e.target, err = os.Readlink(path); err != nil {
				return err
			}
		}
		out[rel] = e
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("compare trees: %w", err)
		}
		return nil, err
	}
	return out, nil
}

func excluded(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

func compareFiles(aPath, bPath, rel string, opt Options) (Difference, bool, error) {
	a, err := os.ReadFile(aPath)
	if err != nil {
		return Difference{}, false, err
	}
	b, err := os.ReadFile(bPath)
	if err != nil {
		return Difference{}, false, err
	}
	d := Difference{Path: rel, Kind: Differ}
	if isBinary(a) || isBinary(b) {
		return d, bytes.Equal(a, b), nil
	}
	if Equivalent(a, b, opt) {
		return d, true, nil
	}
	if opt.Detail {
		d.Detail = Unified("a/"+rel, "b/"+rel, a, b, opt.Context)
	}
	return d, false, nil
}

// Equivalent compares two text blobs under the whitespace and ignored-line
// rules in opt.
func Equivalent(a, b []byte, opt Options) bool {
	if !opt.IgnoreWhitespace && opt.IgnoreLine == nil {
		return bytes.Equal(a, b)
	}
	la := normalize(a, opt)
	lb := normalize(b, opt)
	if len(la) != len(lb) {
		return false
	}
	for i := range la {
		if la[i] != lb[i] {
			return false
		}
	}
	return true
}

func normalize(data []byte, opt Options) []string {
	lines := strings.Split(string(data), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if opt.IgnoreLine != nil && opt.IgnoreLine.MatchString(line) {
			continue
		}
		if opt.IgnoreWhitespace {
			line = stripSpace(line)
		}
		out = append(out, line)
	}
	return out
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func isBinary(data []byte) bool {
	n := len(data)
	if n > 8000 {
		n = 8000
	}
	return bytes.IndexByte(data[:n], 0) >= 0
}

// Unified produces a classic unified patch for a↦b. An empty string means the
// inputs are identical.
func Unified(aName, bName string, a, b []byte, context int) string {
	if context <= 0 {
		context = 3
	}
	u := difflib.UnifiedDiff{
		A:        splitLinesKeepNL(string(a)),
		B:        splitLinesKeepNL(string(b)),
		FromFile: aName,
		ToFile:   bName,
		Context:  context,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return ""
	}
	return s
}

// Added produces a patch that creates bName with content b.
func Added(bName string, b []byte) string {
	return Unified("/dev/null", bName, nil, b, 3)
}

func splitLinesKeepNL(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.SplitAfter(s, "\n")
}
