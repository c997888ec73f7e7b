// Package fsutil holds the file-copy and symlink primitives used to
// materialize crates on disk. Symlinks are copied as links, never followed.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// CopyDir recursively copies src into dst, creating dst if needed. Existing
// files in dst are overwritten; files only present in dst are left alone.
func CopyDir(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("copy %s: not a directory", src)
	}
	if err := os.MkdirAll(dst, info.Mode().Perm()|0o700); err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		return CopyEntry(path, filepath.Join(dst, rel), d)
	})
}

// CopyEntry copies a single directory entry. Directories are created but not
// descended into; callers walking a tree handle recursion.
func CopyEntry(src, dst string, d fs.DirEntry) error {
	switch {
	case d.Type()&fs.ModeSymlink != 0:
		return CopySymlink(src, dst)
	case d.IsDir():
		info, err := d.Info()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dst, info.Mode().Perm()|0o700); err != nil {
			return fmt.Errorf("create %s: %w", dst, err)
		}
		return nil
	case d.Type().IsRegular():
		return CopyFile(src, dst)
	default:
		return nil
	}
}

// CopyFile copies a regular file, preserving its permission bits.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := removeIfSymlink(dst); err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}

// CopySymlink recreates the link at src with the same target at dst.
func CopySymlink(src, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return fmt.Errorf("readlink %s: %w", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	return os.Symlink(target, dst)
}

// ReplaceDir makes dst an exact copy of src.
func ReplaceDir(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("remove %s: %w", dst, err)
	}
	return CopyDir(src, dst)
}

// Exists reports whether path exists without following a final symlink.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// IsSymlink reports whether path is a symbolic link.
func IsSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&fs.ModeSymlink != 0
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// RemoveIfExists deletes a file, treating a missing file as success.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func removeIfSymlink(path string) error {
	if IsSymlink(path) {
		return os.Remove(path)
	}
	return nil
}
