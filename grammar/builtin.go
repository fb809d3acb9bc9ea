package grammar

import (
	"sort"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// builtinGrammars maps grammar names to compiled-in tree-sitter languages.
// Lazily initialized on first call via sync.Once.
var (
	builtinGrammars map[string]*sitter.Language
	builtinOnce     sync.Once
)

func initBuiltins() {
	builtinOnce.Do(func() {
		builtinGrammars = map[string]*sitter.Language{
			"bash":       bash.GetLanguage(),
			"c":          c.GetLanguage(),
			"go":         golang.GetLanguage(),
			"java":       java.GetLanguage(),
			"javascript": javascript.GetLanguage(),
			"python":     python.GetLanguage(),
			"ruby":       ruby.GetLanguage(),
			"rust":       rust.GetLanguage(),
			"tsx":        tsx.GetLanguage(),
			"typescript": typescript.GetLanguage(),
		}
	})
}

// Builtin returns the compiled-in grammar for name.
func Builtin(name string) (*sitter.Language, bool) {
	initBuiltins()
	l, ok := builtinGrammars[name]
	return l, ok
}

// Builtins lists the names of all compiled-in grammars.
func Builtins() []string {
	initBuiltins()
	names := make([]string, 0, len(builtinGrammars))
	for name := range builtinGrammars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
