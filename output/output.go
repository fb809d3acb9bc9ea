// Package output renders query matches for one file.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arjunmahishi/tsmatch/types"
)

// Format selects a renderer.
type Format int

const (
	// Terse emits one JSON object per match, mapping capture names to text.
	Terse Format = iota
	// Verbose emits one JSON document per file with full node metadata.
	Verbose
	// Snippet renders annotated source excerpts for humans.
	Snippet
)

var formatNames = []string{"terse", "verbose", "snippet"}

func (f Format) String() string {
	if int(f) < 0 || int(f) >= len(formatNames) {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formatNames[f]
}

// FormatNames returns the accepted format names.
func FormatNames() []string {
	return append([]string(nil), formatNames...)
}

// ParseFormat resolves a format name.
func ParseFormat(name string) (Format, error) {
	for i, n := range formatNames {
		if strings.EqualFold(name, n) {
			return Format(i), nil
		}
	}
	return 0, fmt.Errorf("unknown format %q (want one of %s)", name, strings.Join(formatNames, ", "))
}

// Formatter consumes the match sequence of one file exactly once, in order,
// and renders it to w. names maps capture indices to capture names.
type Formatter interface {
	Format(w io.Writer, names []string, source, path string, matches types.MatchSequence) error
}

// Config holds output configuration.
type Config struct {
	// Pretty indents Verbose documents.
	Pretty bool

	// Color enables ANSI colours in Snippet output.
	Color bool
}

// New returns the formatter for f.
func New(f Format, cfg Config) (Formatter, error) {
	switch f {
	case Terse:
		return &TerseFormatter{}, nil
	case Verbose:
		return &VerboseFormatter{pretty: cfg.Pretty}, nil
	case Snippet:
		return NewSnippetFormatter(cfg.Color), nil
	default:
		return nil, fmt.Errorf("unknown format %v", f)
	}
}

func newEncoder(w io.Writer, pretty bool) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc
}

// captureName looks up a capture index in the name table.
func captureName(names []string, index uint32) string {
	if int(index) >= len(names) {
		return fmt.Sprintf("capture_%d", index)
	}
	return names[index]
}

// WriteError writes an error as a JSON object to stderr.
func WriteError(err error) {
	enc := newEncoder(os.Stderr, false)
	_ = enc.Encode(map[string]string{
		"error": err.Error(),
	})
}
