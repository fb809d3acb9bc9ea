//go:build darwin || freebsd || linux

package grammar

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	sitter "github.com/smacker/go-tree-sitter"
)

// DlopenLoader loads grammar modules with dlopen via purego.
//
// Module handles are retained and never passed to dlclose: languages obtained
// from a module reference its static tables for as long as the process runs.
type DlopenLoader struct {
	mu      sync.Mutex
	handles map[string]uintptr
}

// NewDlopenLoader returns a loader backed by the system dynamic linker.
func NewDlopenLoader() *DlopenLoader {
	return &DlopenLoader{handles: make(map[string]uintptr)}
}

// Load implements Loader.
func (dl *DlopenLoader) Load(path, symbol string) (*sitter.Language, error) {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	handle, ok := dl.handles[path]
	if !ok {
		h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
		if err != nil {
			return nil, fmt.Errorf("dlopen: %w", err)
		}
		handle = h
		dl.handles[path] = handle
	}

	sym, err := purego.Dlsym(handle, symbol)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", symbol, err)
	}

	var entry func() uintptr
	purego.RegisterFunc(&entry, sym)

	ptr := entry()
	if ptr == 0 {
		return nil, fmt.Errorf("%s() returned null", symbol)
	}

	// ptr is a static TSLanguage* inside the module, not Go memory.
	return sitter.NewLanguage(*(*unsafe.Pointer)(unsafe.Pointer(&ptr))), nil
}

// Modules reports how many distinct modules are held open.
func (dl *DlopenLoader) Modules() int {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	return len(dl.handles)
}
