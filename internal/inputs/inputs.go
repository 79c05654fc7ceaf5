// Package inputs resolves command-line paths into the list of files to scan.
package inputs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

type FileInfo struct {
	Path string
	Size int64
}

type Walker struct {
	extensions []string
}

// New returns a walker that keeps files with one of the given extensions.
// With no extensions every regular file is kept.
func New(extensions ...string) *Walker {
	return &Walker{extensions: extensions}
}

// Collect expands paths into files. Directories are walked recursively and
// filtered by extension; files named explicitly are always kept. The result
// is sorted by path and free of duplicates.
func (w *Walker) Collect(paths ...string) ([]FileInfo, error) {
	seen := make(map[string]bool)
	var files []FileInfo
	add := func(path string, size int64) {
		if seen[path] {
			return
		}
		seen[path] = true
		files = append(files, FileInfo{Path: path, Size: size})
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("error accessing %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root, info.Size())
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !w.isTargetFile(path) {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			if fi.Mode().IsRegular() {
				add(path, fi.Size())
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error walking %s: %w", root, err)
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// Match reports whether a file found while walking a directory would be
// kept.
func (w *Walker) Match(path string) bool {
	return w.isTargetFile(path)
}

func (w *Walker) isTargetFile(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}

	ext := filepath.Ext(path)
	for _, targetExt := range w.extensions {
		if ext == targetExt {
			return true
		}
	}
	return false
}
