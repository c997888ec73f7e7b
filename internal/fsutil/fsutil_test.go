package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
}

func TestCopyDirPreservesFilesModesAndLinks(t *testing.T) {
	src := t.TempDir()
	write(t, filepath.Join(src, "src", "lib.rs"), "pub fn f() {}\n", 0o644)
	write(t, filepath.Join(src, "build.sh"), "#!/bin/sh\n", 0o755)
	require.NoError(t, os.Symlink("src/lib.rs", filepath.Join(src, "LICENSE")))

	dst := filepath.Join(t.TempDir(), "out")
	require.NoError(t, CopyDir(src, dst))

	data, err := os.ReadFile(filepath.Join(dst, "src", "lib.rs"))
	require.NoError(t, err)
	require.Equal(t, "pub fn f() {}\n", string(data))

	info, err := os.Stat(filepath.Join(dst, "build.sh"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	require.True(t, IsSymlink(filepath.Join(dst, "LICENSE")))
	target, err := os.Readlink(filepath.Join(dst, "LICENSE"))
	require.NoError(t, err)
	require.Equal(t, "src/lib.rs", target)
}

func TestCopyFileReplacesSymlink(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "real"), "real\n", 0o644)
	write(t, filepath.Join(dir, "src"), "copied\n", 0o644)
	require.NoError(t, os.Symlink("real", filepath.Join(dir, "dst")))

	require.NoError(t, CopyFile(filepath.Join(dir, "src"), filepath.Join(dir, "dst")))

	require.False(t, IsSymlink(filepath.Join(dir, "dst")))
	data, err := os.ReadFile(filepath.Join(dir, "real"))
	require.NoError(t, err)
	require.Equal(t, "real\n", string(data), "link target must not be written through")
}

func TestReplaceDirRemovesStaleFiles(t *testing.T) {
	src := t.TempDir()
	write(t, filepath.Join(src, "a"), "a\n", 0o644)
	dst := t.TempDir()
	write(t, filepath.Join(dst, "stale"), "old\n", 0o644)

	require.NoError(t, ReplaceDir(src, dst))

	require.True(t, Exists(filepath.Join(dst, "a")))
	require.False(t, Exists(filepath.Join(dst, "stale")))
}

func TestCopyDirRejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f")
	write(t, file, "x", 0o644)
	require.Error(t, CopyDir(file, t.TempDir()))
}

func TestDirExistsAndRemoveIfExists(t *testing.T) {
	dir := t.TempDir()
	ok, err := DirExists(dir)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = DirExists(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, RemoveIfExists(filepath.Join(dir, "missing")))
	write(t, filepath.Join(dir, "f"), "x", 0o644)
	require.NoError(t, RemoveIfExists(filepath.Join(dir, "f")))
	require.False(t, Exists(filepath.Join(dir, "f")))
}
