// Package scanner expands input globs into the list of files to query.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

// DefaultIgnoreDirs returns the default list of directories to ignore.
func DefaultIgnoreDirs() map[string]struct{} {
	return map[string]struct{}{
		".git":          {},
		".hg":           {},
		".svn":          {},
		".jj":           {},
		"node_modules":  {},
		"vendor":        {},
		"dist":          {},
		"build":         {},
		"target":        {},
		".venv":         {},
		"__pycache__":   {},
		".mypy_cache":   {},
		".pytest_cache": {},
		".next":         {},
		".cache":        {},
		".turbo":        {},
		"coverage":      {},
	}
}

// Config holds scanner configuration.
type Config struct {
	// Excludes are paths or glob patterns whose files are never returned.
	// They are compared by canonical path, so "./a.js" excludes "a.js".
	Excludes []string

	// IgnoreDirs names directories skipped below the static prefix of a glob.
	// A directory spelled out literally in the pattern is still searched.
	IgnoreDirs map[string]struct{}

	// MaxBytes skips larger files. Zero means no limit.
	MaxBytes int64

	Logger *zap.Logger
}

// Scanner discovers files for processing.
type Scanner struct {
	cfg      Config
	excluded map[string]struct{}
}

// New creates a Scanner and resolves its exclusion set. A literal exclude path
// that does not exist is an error.
func New(cfg Config) (*Scanner, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &Scanner{cfg: cfg, excluded: make(map[string]struct{})}
	for _, pattern := range cfg.Excludes {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("exclude %q: %w", pattern, err)
		}
		if len(matches) == 0 && !hasMeta(pattern) {
			if _, err := os.Stat(pattern); err != nil {
				return nil, fmt.Errorf("exclude %q: %w", pattern, err)
			}
			matches = []string{pattern}
		}
		for _, m := range matches {
			s.excluded[canonical(m)] = struct{}{}
		}
	}
	return s, nil
}

// Collect expands globs in order and returns the matching regular files. Paths
// are returned as the glob produced them; a file reached by more than one glob
// is returned once, at its first position.
func (s *Scanner) Collect(globs []string) ([]string, error) {
	var (
		files []string
		seen  = make(map[string]struct{})
	)
	for _, pattern := range globs {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			s.cfg.Logger.Debug("glob matched nothing", zap.String("pattern", pattern))
			continue
		}

		base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
		for _, path := range matches {
			if s.inIgnoredDir(base, path) {
				continue
			}

			info, err := os.Stat(path)
			if err != nil {
				return nil, fmt.Errorf("stat %s: %w", path, err)
			}
			if info.IsDir() {
				continue
			}
			if s.cfg.MaxBytes > 0 && info.Size() > s.cfg.MaxBytes {
				s.cfg.Logger.Debug("skipping large file",
					zap.String("path", path),
					zap.Int64("size", info.Size()),
				)
				continue
			}

			key := canonical(path)
			if _, ok := s.excluded[key]; ok {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			files = append(files, path)
		}
	}
	return files, nil
}

// Excluded reports whether path is in the exclusion set.
func (s *Scanner) Excluded(path string) bool {
	_, ok := s.excluded[canonical(path)]
	return ok
}

func (s *Scanner) inIgnoredDir(base, path string) bool {
	if len(s.cfg.IgnoreDirs) == 0 {
		return false
	}
	rel, err := filepath.Rel(filepath.FromSlash(base), filepath.Dir(path))
	if err != nil {
		return false
	}
	for _, dir := range strings.Split(filepath.ToSlash(rel), "/") {
		if _, ok := s.cfg.IgnoreDirs[dir]; ok {
			return true
		}
	}
	return false
}

// canonical resolves path to an absolute, symlink-free form. Paths that cannot
// be resolved fall back to their absolute form.
func canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, `*?[{\`)
}
