// Package scan discovers Gradle build scripts on disk.
package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// descriptor file names the scanner recognizes.
var fileNames = map[string]bool{
	"build.gradle":     true,
	"build.gradle.kts": true,
}

// directories never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	".gradle":      true,
	".idea":        true,
	"build":        true,
	"node_modules": true,
}

// IsDescriptor reports whether path names a build script by convention.
func IsDescriptor(path string) bool {
	return fileNames[filepath.Base(path)]
}

// Discover expands each argument into build-script paths: files are taken
// as-is, directories are walked recursively. The result is sorted and
// de-duplicated so batch runs are deterministic.
func Discover(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string

	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if skipDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if IsDescriptor(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", p, err)
		}
	}

	sort.Strings(out)
	return out, nil
}
