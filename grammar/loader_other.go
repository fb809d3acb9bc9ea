//go:build !(darwin || freebsd || linux)

package grammar

import (
	"errors"
	"runtime"

	sitter "github.com/smacker/go-tree-sitter"
)

// DlopenLoader is unavailable on this platform; use builtin grammars instead.
type DlopenLoader struct{}

// NewDlopenLoader returns a loader that always fails on this platform.
func NewDlopenLoader() *DlopenLoader {
	return &DlopenLoader{}
}

// Load implements Loader.
func (dl *DlopenLoader) Load(path, symbol string) (*sitter.Language, error) {
	return nil, errors.New("native grammar modules are not supported on " + runtime.GOOS)
}

// Modules always reports zero.
func (dl *DlopenLoader) Modules() int {
	return 0
}
