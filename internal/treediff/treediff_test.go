package treediff

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestDirsIgnoresListedFiles(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeTree(t, a, map[string]string{
		"src/lib.rs":           "fn a() {}\n",
		"Cargo.lock":           "lock a\n",
		".github/workflows/ci": "on: push\n",
	})
	writeTree(t, b, map[string]string{
		"src/lib.rs":           "fn a() {}\n",
		".cargo-checksum.json": "{}\n",
		"cargo.out":            "log\n",
	})

	res, err := Dirs(a, b, DefaultOptions())
	require.NoError(t, err)
	require.True(t, res.Equal(), res.Summary())
}

func TestDirsWhitespaceAndDefaultTeam(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeTree(t, a, map[string]string{
		"Android.bp": "rust_library {\n    name: \"libfoo\",\n}\n",
	})
	writeTree(t, b, map[string]string{
		"Android.bp": "rust_library {\n\tname:\"libfoo\",\n    default_team: \"trendy_team_android_rust\",\n}\n",
	})

	res, err := Dirs(a, b, DefaultOptions())
	require.NoError(t, err)
	require.True(t, res.Equal(), res.Summary())

	strict := DefaultOptions()
	strict.IgnoreWhitespace = false
	strict.IgnoreLine = nil
	res, err = Dirs(a, b, strict)
	require.NoError(t, err)
	require.Equal(t, []string{"Android.bp"}, res.Paths())
}

func TestDirsReportsEveryKind(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeTree(t, a, map[string]string{
		"same.rs":        "x\n",
		"changed.rs":     "old\n",
		"only_a/one.rs":  "1\n",
		"only_a/two.rs":  "2\n",
		"kind":           "file\n",
		"link_target.rs": "t\n",
	})
	writeTree(t, b, map[string]string{
		"same.rs":        "x\n",
		"changed.rs":     "new\n",
		"only_b.rs":      "b\n",
		"kind/inner.rs":  "dir\n",
		"link_target.rs": "t\n",
	})
	require.NoError(t, os.Symlink("link_target.rs", filepath.Join(a, "LICENSE")))
	require.NoError(t, os.Symlink("same.rs", filepath.Join(b, "LICENSE")))

	opt := DefaultOptions()
	opt.Detail = true
	res, err := Dirs(a, b, opt)
	require.NoError(t, err)

	kinds := map[string]Kind{}
	for _, d := range res.Differences {
		kinds[d.Path] = d.Kind
	}
	require.Equal(t, map[string]Kind{
		"LICENSE":    Differ,
		"changed.rs": Differ,
		"kind":       TypeMismatch,
		"only_a":     OnlyInA,
		"only_b.rs":  OnlyInB,
	}, kinds)

	summary := res.Summary()
	require.Contains(t, summary, "files differ: changed.rs")
	require.Contains(t, summary, "-old")
	require.Contains(t, summary, "+new")
}

func TestDirsExtraExcludeGlob(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeTree(t, a, map[string]string{"notes.md": "a\n"})
	writeTree(t, b, map[string]string{"notes.md": "b\n"})

	opt := DefaultOptions()
	opt.Exclude = append(opt.Exclude, "*.md")
	res, err := Dirs(a, b, opt)
	require.NoError(t, err)
	require.True(t, res.Equal())
}

func TestDirsMissingRoot(t *testing.T) {
	_, err := Dirs(filepath.Join(t.TempDir(), "missing"), t.TempDir(), DefaultOptions())
	require.Error(t, err)
}

func TestEquivalentIgnoreLine(t *testing.T) {
	opt := Options{IgnoreLine: regexp.MustCompile(`^// generated`)}
	require.True(t, Equivalent([]byte("// generated 1\nx\n"), []byte("x\n"), opt))
	require.False(t, Equivalent([]byte("x \n"), []byte("x\n"), opt))
	require.True(t, Equivalent([]byte("same"), []byte("same"), Options{}))
}

func TestUnifiedAndAdded(t *testing.T) {
	require.Empty(t, Unified("a", "b", []byte("x\n"), []byte("x\n"), 0))

	patch := Added("b/LICENSE", []byte("Apache\n"))
	require.True(t, strings.HasPrefix(patch, "--- /dev/null\n+++ b/LICENSE\n"), patch)
	require.Contains(t, patch, "+Apache\n")
}
