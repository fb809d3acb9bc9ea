package tsmatch

import (
	"go.uber.org/zap"

	"github.com/arjunmahishi/tsmatch/grammar"
	"github.com/arjunmahishi/tsmatch/output"
)

// Options configures a Runner.
type Options struct {
	// Grammars resolves language names (required).
	Grammars *grammar.Registry

	// QueryText is the tree-sitter query shared by every language (required).
	QueryText string

	// Languages holds "ext,ext=language" mappings (at least one).
	Languages []string

	// Format selects the renderer. Defaults to Terse.
	Format output.Format

	// Output configures the renderer.
	Output output.Config

	// Jobs is the number of files processed in parallel.
	// If 0 or 1, files are processed one after another.
	Jobs int

	// KeepGoing skips files that fail to read, parse or render instead of
	// stopping the run; the failures are returned together at the end.
	KeepGoing bool

	// Logger receives diagnostics. Defaults to a no-op logger.
	Logger *zap.Logger
}
