// Package localfs provides the host-side filesystem collaborators:
// best-effort tree sizing and directory creation.
package localfs

import (
	"io/fs"
	"os"
	"path/filepath"
)

// TreeSize returns the total size of regular files under root.
// Symlinks are not followed and contribute nothing, so a link cycle cannot
// trap the walk and a link to a large external file cannot inflate the
// estimate. Unreadable entries are skipped; the result is best-effort and
// zero is a valid, non-fatal answer.
func TreeSize(root string) int64 {
	var total int64
	_ = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total
}

// EnsureDir creates the directory if missing, parents included.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// DirExists reports whether path names an existing directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
