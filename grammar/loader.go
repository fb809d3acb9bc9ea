package grammar

import sitter "github.com/smacker/go-tree-sitter"

// Loader opens the grammar module at path and calls its entry point symbol.
type Loader interface {
	Load(path, symbol string) (*sitter.Language, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(path, symbol string) (*sitter.Language, error)

// Load calls f(path, symbol).
func (f LoaderFunc) Load(path, symbol string) (*sitter.Language, error) {
	return f(path, symbol)
}
