// Package file implements the local filesystem side of the job: discovering
// input files below a data root and opening them for the parsers.
package file

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultPattern matches the JSON documents under both data roots.
const DefaultPattern = "*.json"

// Discover walks root recursively and returns the absolute paths of all
// regular files whose base name matches pattern (filepath.Match syntax).
//
// Paths come back in lexical walk order, which is stable for a given tree.
// A missing root is an error wrapping fs.ErrNotExist; a root without matches
// yields an empty slice and a nil error.
func Discover(root, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("discover: pattern %q: %w", pattern, err)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("discover: abs %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("discover: %s is not a directory", abs)
	}

	files := []string{}
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		ok, _ := filepath.Match(pattern, d.Name())
		if ok {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover: walk %s: %w", abs, err)
	}
	return files, nil
}
