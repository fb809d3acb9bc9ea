// Package grammar resolves tree-sitter language names to loaded grammars.
//
// Grammars are native modules laid out as <dir>/<name>/parser, each exporting a
// zero-argument entry point named tree_sitter_<name>. A Registry loads every
// module at most once and keeps it loaded for the rest of the process: the
// *sitter.Language returned by an entry point points into the module's static
// data, so there is no way to release a module or a Language once issued.
package grammar

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"
)

// ModuleFile is the file name of a grammar module inside its language directory.
const ModuleFile = "parser"

// Language is a loaded grammar. Two Languages from the same Registry are equal
// if and only if they have the same name.
type Language struct {
	name   string
	origin string
	ts     *sitter.Language
}

// Name returns the grammar name the language was requested by.
func (l *Language) Name() string {
	return l.name
}

// Origin returns the module path the grammar was loaded from, or "builtin".
func (l *Language) Origin() string {
	return l.origin
}

// TreeSitter returns the underlying tree-sitter language.
func (l *Language) TreeSitter() *sitter.Language {
	return l.ts
}

// LoadError reports a grammar that could not be loaded.
type LoadError struct {
	Language string
	Path     string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load grammar %q from %s: %v", e.Language, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Option configures a Registry.
type Option func(*Registry)

// WithLoader replaces the native module loader.
func WithLoader(loader Loader) Option {
	return func(r *Registry) {
		r.loader = loader
	}
}

// WithBuiltins lets the registry fall back to compiled-in grammars when the
// grammar directory has no module for a name.
func WithBuiltins(enabled bool) Option {
	return func(r *Registry) {
		r.builtins = enabled
	}
}

// WithLogger sets the logger used for load and cache events.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Registry is a process-wide, append-only cache of loaded grammars.
// It is safe for concurrent use; each name is loaded at most once.
type Registry struct {
	dir      string
	loader   Loader
	builtins bool
	logger   *zap.Logger

	mu    sync.Mutex
	cache map[string]*Language
	loads int
}

// NewRegistry creates a registry that loads modules from dir.
func NewRegistry(dir string, opts ...Option) *Registry {
	r := &Registry{
		dir:    dir,
		loader: NewDlopenLoader(),
		logger: zap.NewNop(),
		cache:  make(map[string]*Language),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the grammar directory.
func (r *Registry) Dir() string {
	return r.dir
}

// EntryPoint returns the C symbol exported by the grammar module for name.
func EntryPoint(name string) string {
	return "tree_sitter_" + strings.ReplaceAll(name, "-", "_")
}

// ModulePath returns the expected module location for name.
func (r *Registry) ModulePath(name string) string {
	return filepath.Join(r.dir, name, ModuleFile)
}

// Get returns the grammar for name, loading it on first use. Later calls for
// the same name return the identical *Language without touching the disk.
func (r *Registry) Get(name string) (*Language, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.cache[name]; ok {
		r.logger.Debug("grammar cache hit", zap.String("language", name))
		return cached, nil
	}

	path := r.ModulePath(name)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, &LoadError{Language: name, Path: path, Err: fmt.Errorf("invalid language name")}
	}

	lang, err := r.load(name, path)
	if err != nil {
		return nil, err
	}

	r.cache[name] = lang
	r.loads++
	r.logger.Debug("grammar loaded",
		zap.String("language", name),
		zap.String("origin", lang.origin),
	)
	return lang, nil
}

func (r *Registry) load(name, path string) (*Language, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if r.builtins {
			if ts, ok := Builtin(name); ok {
				return &Language{name: name, origin: "builtin", ts: ts}, nil
			}
		}
		return nil, &LoadError{Language: name, Path: path, Err: statErr}
	}
	if info.IsDir() {
		return nil, &LoadError{Language: name, Path: path, Err: fmt.Errorf("module is a directory")}
	}

	ts, err := r.loader.Load(path, EntryPoint(name))
	if err != nil {
		return nil, &LoadError{Language: name, Path: path, Err: err}
	}
	if ts == nil {
		return nil, &LoadError{Language: name, Path: path, Err: fmt.Errorf("%s returned no language", EntryPoint(name))}
	}
	return &Language{name: name, origin: path, ts: ts}, nil
}

// Loads reports how many grammars have been loaded (cache misses that succeeded).
func (r *Registry) Loads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loads
}

// Installed lists the grammar names that have a module in the grammar directory.
func (r *Registry) Installed() []string {
	if r.dir == "" {
		return nil
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := os.Stat(filepath.Join(r.dir, e.Name(), ModuleFile))
		if err != nil || info.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}
