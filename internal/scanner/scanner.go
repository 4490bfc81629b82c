// Package scanner discovers git repositories under a projects directory
// for the workspace audit. A .sentei index file in a directory lists group
// subdirectories to descend into and children to ignore.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agrahamlincoln/sentei/pkg/git"
)

// IndexFileName is the per-directory index file.
const IndexFileName = ".sentei"

// index is the schema of an index file.
type index struct {
	Groups  []string `yaml:"groups"`
	Ignores []string `yaml:"ignores"`
}

// Options controls scanning behavior.
type Options struct {
	ExcludePatterns []string
}

// Scan returns the git repositories among the children of rootPath, in
// directory order. Groups named by index files are descended into, hidden
// and excluded directories are skipped, and symlink cycles are followed
// only once.
func Scan(rootPath string, opts Options) ([]string, error) {
	s := scanner{opts: opts, visited: make(map[string]bool)}
	if err := s.scan(rootPath); err != nil {
		return nil, err
	}
	return s.repos, nil
}

type scanner struct {
	opts    Options
	visited map[string]bool
	repos   []string
}

func (s *scanner) scan(dir string) error {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return fmt.Errorf("resolving symlink %s: %w", dir, err)
	}
	if s.visited[resolved] {
		return nil
	}
	s.visited[resolved] = true

	idx, err := loadIndex(dir)
	if err != nil {
		return err
	}

	for _, group := range idx.Groups {
		if slices.Contains(idx.Ignores, group) {
			continue
		}
		groupPath := filepath.Join(dir, group)
		if info, err := os.Stat(groupPath); err != nil || !info.IsDir() {
			continue
		}
		if err := s.scan(groupPath); err != nil {
			return err
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if slices.Contains(idx.Groups, name) || slices.Contains(idx.Ignores, name) || isExcluded(name, s.opts.ExcludePatterns) {
			continue
		}
		child := filepath.Join(dir, name)
		if git.IsRepo(child) {
			s.repos = append(s.repos, child)
		}
	}
	return nil
}

// loadIndex reads the index file of dir. A missing or blank file yields an
// empty index; unknown keys are rejected.
func loadIndex(dir string) (index, error) {
	path := filepath.Clean(filepath.Join(dir, IndexFileName))
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return index{}, nil
	}
	if err != nil {
		return index{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return index{}, nil
	}

	var idx index
	if err := yaml.UnmarshalWithOptions(data, &idx, yaml.DisallowUnknownField()); err != nil {
		return index{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return idx, nil
}

func isExcluded(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}
