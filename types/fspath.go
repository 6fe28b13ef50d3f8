// Package types holds the data model shared by every file-groups component:
// canonical paths, protect patterns, per-directory configuration, and the
// two file groups a directory walk produces.
package types

import (
	"fmt"
	"path/filepath"
)

// FsPath is an absolute, symlink-resolved filesystem path. Every path stored
// by the core is canonicalized at ingress via Canonicalize.
type FsPath string

// String implements fmt.Stringer so FsPath prints like a plain path in logs
// and error messages.
func (p FsPath) String() string { return string(p) }

// Canonicalize resolves path to an absolute, symlink-resolved FsPath. The
// path itself need not exist; only as much of it as exists is resolved
// (mirroring os.path.realpath, which resolves symlinks along any existing
// prefix and leaves the rest untouched).
func Canonicalize(path string) (FsPath, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path for %q: %w", path, err)
	}

	resolved, err := realpath(abs)
	if err != nil {
		return "", fmt.Errorf("resolving symlinks for %q: %w", path, err)
	}

	return FsPath(resolved), nil
}

// realpath resolves symlinks along the longest existing prefix of path,
// falling back to the unresolved suffix when the path (or part of it) does
// not exist yet -- e.g. a rename/move destination.
func realpath(path string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved, nil
	}

	dir, base := filepath.Dir(path), filepath.Base(path)
	if dir == path {
		// Reached the root without finding an existing prefix.
		return path, nil
	}

	resolvedDir, err := realpath(dir)
	if err != nil {
		return "", err
	}

	return filepath.Join(resolvedDir, base), nil
}
