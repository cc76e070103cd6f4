package kernel

import (
	"io/fs"
	"path/filepath"
)

// filepathWalkDirs calls fn for root and every subdirectory beneath it,
// skipping version-control and session-state directories that generate
// their own write events and would otherwise re-trigger the watcher.
func filepathWalkDirs(root string, fn func(dir string) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if name == ".git" || name == ".orchestra" || name == "node_modules" {
			return filepath.SkipDir
		}
		return fn(path)
	})
}
