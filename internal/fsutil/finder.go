// Package fsutil provides file system utility functions.
package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// FindFilesByExtension recursively searches the given root path for all files ending
// with the specified extension. It returns a slice of their full paths in
// lexical order. A missing root yields no files.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}
	return walk(rootPath, func(d fs.DirEntry) bool {
		return strings.HasSuffix(d.Name(), extension)
	})
}

// FindFilesByName recursively searches rootPath for every regular file whose
// final path component equals name, including files directly under rootPath.
// The order of the result is whatever the walk produced; use Canonical to
// pick a single match.
func FindFilesByName(rootPath string, name string) ([]string, error) {
	if name == "" {
		panic("name must not be empty")
	}
	return walk(rootPath, func(d fs.DirEntry) bool {
		return d.Name() == name
	})
}

// Canonical picks the preferred path from matches: the shallowest one, with
// ties broken by the lexically smallest path. The result does not depend on
// the order of matches. It reports false when matches is empty.
func Canonical(matches []string) (string, bool) {
	if len(matches) == 0 {
		return "", false
	}
	sorted := append([]string(nil), matches...)
	sort.Slice(sorted, func(i, j int) bool {
		di, dj := Depth(sorted[i]), Depth(sorted[j])
		if di != dj {
			return di < dj
		}
		return sorted[i] < sorted[j]
	})
	return sorted[0], true
}

// Depth counts the path separators in p.
func Depth(p string) int {
	return strings.Count(filepath.ToSlash(p), "/")
}

// FindFile returns the canonical match for name under rootPath, and false if
// there is none.
func FindFile(rootPath string, name string) (string, bool, error) {
	matches, err := FindFilesByName(rootPath, name)
	if err != nil {
		return "", false, err
	}
	p, ok := Canonical(matches)
	return p, ok, nil
}

// WalkFinder searches the local file system.
type WalkFinder struct{}

// FindFilesByName implements discovery.Finder.
func (WalkFinder) FindFilesByName(rootPath, name string) ([]string, error) {
	return FindFilesByName(rootPath, name)
}

func walk(rootPath string, match func(fs.DirEntry) bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == rootPath && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() && match(d) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}
