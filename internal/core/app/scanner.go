package app

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// CollectModules expands paths into the Python files beneath them. Files named
// directly are kept even when an exclude pattern matches them.
func CollectModules(paths, excludeDirs, excludeFiles []string) ([]string, error) {
	dirGlobs, err := compileGlobs(excludeDirs)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude dir pattern: %w", err)
	}
	fileGlobs, err := compileGlobs(excludeFiles)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude file pattern: %w", err)
	}

	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		path = filepath.Clean(path)
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			base := filepath.Base(path)
			if d.IsDir() {
				if path != root && matchAny(dirGlobs, base) {
					return filepath.SkipDir
				}
				return nil
			}
			if !IsPythonSource(path) || matchAny(fileGlobs, base) {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

func IsPythonSource(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".py")
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func matchAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
