package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTree creates files (with the given sizes) under a fresh directory.
func makeTree(t *testing.T, files map[string]int) string {
	t.Helper()
	dir := t.TempDir()
	for name, size := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", size)), 0644))
	}
	return dir
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestCollect(t *testing.T) {
	dir := makeTree(t, map[string]int{
		"a.js":                  1,
		"b.ts":                  1,
		"src/c.js":              1,
		"src/deep/d.js":         1,
		"node_modules/lib/e.js": 1,
	})

	tests := []struct {
		name     string
		globs    []string
		cfg      Config
		expected []string
	}{
		{
			name:     "single_pattern",
			globs:    []string{"*.js"},
			expected: []string{"a.js"},
		},
		{
			name:     "recursive",
			globs:    []string{"**/*.js"},
			expected: []string{"a.js", "node_modules/lib/e.js", "src/c.js", "src/deep/d.js"},
		},
		{
			name:     "patterns_keep_order",
			globs:    []string{"*.ts", "*.js"},
			expected: []string{"b.ts", "a.js"},
		},
		{
			name:     "duplicates_dropped",
			globs:    []string{"src/*.js", "src/**/*.js", "./src/c.js"},
			expected: []string{"src/c.js", "src/deep/d.js"},
		},
		{
			name:     "directories_skipped",
			globs:    []string{"src/*"},
			expected: []string{"src/c.js"},
		},
		{
			name:     "ignore_dirs",
			globs:    []string{"**/*.js"},
			cfg:      Config{IgnoreDirs: DefaultIgnoreDirs()},
			expected: []string{"a.js", "src/c.js", "src/deep/d.js"},
		},
		{
			name:     "ignore_dirs_literal_prefix",
			globs:    []string{"node_modules/**/*.js"},
			cfg:      Config{IgnoreDirs: DefaultIgnoreDirs()},
			expected: []string{"node_modules/lib/e.js"},
		},
		{
			name:     "excludes",
			globs:    []string{"**/*.js"},
			cfg:      Config{Excludes: []string{"a.js", "./src/deep/d.js"}},
			expected: []string{"node_modules/lib/e.js", "src/c.js"},
		},
		{
			name:     "exclude_glob",
			globs:    []string{"**/*.js"},
			cfg:      Config{Excludes: []string{"node_modules/**"}},
			expected: []string{"a.js", "src/c.js", "src/deep/d.js"},
		},
		{
			name:     "no_matches",
			globs:    []string{"*.rs"},
			expected: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			chdir(t, dir)

			s, err := New(tc.cfg)
			require.NoError(t, err)

			files, err := s.Collect(tc.globs)
			require.NoError(t, err)

			var got []string
			for _, f := range files {
				got = append(got, filepath.ToSlash(filepath.Clean(f)))
			}
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestCollect_MaxBytes(t *testing.T) {
	dir := makeTree(t, map[string]int{
		"small.js": 10,
		"big.js":   100,
	})

	s, err := New(Config{MaxBytes: 50})
	require.NoError(t, err)

	files, err := s.Collect([]string{filepath.Join(dir, "*.js")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "small.js")}, files)
}

func TestCollect_BadPattern(t *testing.T) {
	s, err := New(Config{})
	require.NoError(t, err)

	_, err = s.Collect([]string{"[unterminated"})
	require.Error(t, err)
}

func TestNew_MissingExclude(t *testing.T) {
	_, err := New(Config{Excludes: []string{filepath.Join(t.TempDir(), "nope.js")}})
	require.ErrorIs(t, err, os.ErrNotExist)

	// A pattern that matches nothing is fine.
	_, err = New(Config{Excludes: []string{filepath.Join(t.TempDir(), "*.nope")}})
	require.NoError(t, err)
}

func TestExcluded_Symlink(t *testing.T) {
	dir := makeTree(t, map[string]int{"real.js": 1})
	link := filepath.Join(dir, "link.js")
	require.NoError(t, os.Symlink(filepath.Join(dir, "real.js"), link))

	s, err := New(Config{Excludes: []string{link}})
	require.NoError(t, err)

	assert.True(t, s.Excluded(filepath.Join(dir, "real.js")))
	files, err := s.Collect([]string{filepath.Join(dir, "*.js")})
	require.NoError(t, err)
	assert.Empty(t, files)
}
