// Package fsutil provides file system utility functions.
package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// yaml documents may carry either extension.
var yamlExtensions = []string{".yaml", ".yml"}

// ResolveDocumentPath takes a path and returns the yaml documents it
// names. A file path returns itself; a directory is searched recursively
// and its documents are returned in lexical order so that merge order is
// deterministic.
func ResolveDocumentPath(path string) ([]string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("document path not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", path, err)
	}

	if info.IsDir() {
		return findYAMLFilesRecursive(path)
	}

	if !hasYAMLExtension(path) {
		return nil, fmt.Errorf("specified file is not a yaml document: %s", path)
	}
	return []string{path}, nil
}

// hasYAMLExtension matches case-insensitively so an explicitly named
// file and a directory scan accept the same documents.
func hasYAMLExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range yamlExtensions {
		if ext == want {
			return true
		}
	}
	return false
}

func findYAMLFilesRecursive(rootDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && hasYAMLExtension(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
