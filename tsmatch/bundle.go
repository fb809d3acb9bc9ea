package tsmatch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arjunmahishi/tsmatch/grammar"
)

// LanguageSpec is a parsed "ext,ext=language" mapping.
type LanguageSpec struct {
	Extensions []string
	Language   string
}

// ParseLanguageSpec parses "ext1,ext2=language". Extensions are given without
// the leading dot; a leading dot is tolerated and stripped.
func ParseLanguageSpec(spec string) (LanguageSpec, error) {
	exts, lang, ok := strings.Cut(spec, "=")
	if !ok {
		return LanguageSpec{}, &InvalidLanguageSpecError{Spec: spec, Reason: "missing '='"}
	}

	lang = strings.TrimSpace(lang)
	if lang == "" {
		return LanguageSpec{}, &InvalidLanguageSpecError{Spec: spec, Reason: "empty language name"}
	}
	if strings.Contains(lang, "=") {
		return LanguageSpec{}, &InvalidLanguageSpecError{Spec: spec, Reason: "more than one '='"}
	}

	var result LanguageSpec
	result.Language = lang
	for _, ext := range strings.Split(exts, ",") {
		ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if ext == "" {
			return LanguageSpec{}, &InvalidLanguageSpecError{Spec: spec, Reason: "empty extension"}
		}
		result.Extensions = append(result.Extensions, ext)
	}
	return result, nil
}

// Bundle pairs a grammar with the query compiled against it. A Bundle is
// immutable and shared by every extension that maps to its language.
type Bundle struct {
	Language *grammar.Language
	Query    *Query
}

// BundleTable maps file extensions to bundles. It is built once, before any
// file is processed, and is read-only afterwards.
//
// When two specs name the same extension, the later spec wins.
type BundleTable struct {
	byExt  map[string]*Bundle
	byLang map[string]*Bundle
}

// NewBundleTable compiles queryText against the grammar of every spec and
// registers the resulting bundles under the spec's extensions. All specs are
// validated before any grammar is loaded.
func NewBundleTable(reg *grammar.Registry, queryText string, specs []string) (*BundleTable, error) {
	parsed := make([]LanguageSpec, 0, len(specs))
	for _, spec := range specs {
		ls, err := ParseLanguageSpec(spec)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, ls)
	}

	t := &BundleTable{
		byExt:  make(map[string]*Bundle),
		byLang: make(map[string]*Bundle),
	}
	for _, ls := range parsed {
		bundle, err := t.bundleFor(reg, queryText, ls.Language)
		if err != nil {
			return nil, err
		}
		for _, ext := range ls.Extensions {
			t.byExt[ext] = bundle
		}
	}
	return t, nil
}

func (t *BundleTable) bundleFor(reg *grammar.Registry, queryText, name string) (*Bundle, error) {
	if b, ok := t.byLang[name]; ok {
		return b, nil
	}

	lang, err := reg.Get(name)
	if err != nil {
		return nil, err
	}
	query, err := compileQuery(queryText, lang)
	if err != nil {
		return nil, err
	}

	b := &Bundle{Language: lang, Query: query}
	t.byLang[name] = b
	return b, nil
}

// Lookup returns the bundle registered for ext (without the leading dot).
func (t *BundleTable) Lookup(ext string) (*Bundle, bool) {
	b, ok := t.byExt[ext]
	return b, ok
}

// Extensions returns the registered extensions in sorted order.
func (t *BundleTable) Extensions() []string {
	exts := make([]string, 0, len(t.byExt))
	for ext := range t.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Len returns the number of distinct bundles.
func (t *BundleTable) Len() int {
	return len(t.byLang)
}

// FileJob is an input file with its resolved bundle.
type FileJob struct {
	Path   string
	Ext    string
	Bundle *Bundle
}

// Plan resolves the bundle of every path, in order, before any file is
// processed. The first path with an unregistered extension fails the plan.
func (t *BundleTable) Plan(paths []string) ([]FileJob, error) {
	jobs := make([]FileJob, 0, len(paths))
	for _, path := range paths {
		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		bundle, ok := t.byExt[ext]
		if !ok || ext == "" {
			return nil, &UnsupportedExtensionError{Path: path, Ext: ext}
		}
		jobs = append(jobs, FileJob{Path: path, Ext: ext, Bundle: bundle})
	}
	return jobs, nil
}

// LoadQuery reads a query file.
func LoadQuery(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read query: %w", err)
	}
	return string(data), nil
}
