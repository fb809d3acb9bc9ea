package output

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/arjunmahishi/tsmatch/types"
)

// VerboseFormatter aggregates every match of a file into one JSON document
// carrying the file path and, per capture, the matched text and node metadata.
// Duplicate capture names within a match keep the last capture.
type VerboseFormatter struct {
	pretty bool
}

type verboseCapture struct {
	Content string     `json:"content"`
	Node    types.Node `json:"node"`
}

type verboseDocument struct {
	File    *string                     `json:"file"`
	Matches []map[string]verboseCapture `json:"matches"`
}

// Format implements Formatter.
func (f *VerboseFormatter) Format(w io.Writer, names []string, source, path string, matches types.MatchSequence) error {
	doc := verboseDocument{
		Matches: []map[string]verboseCapture{},
	}
	if path != "" && utf8.ValidString(path) {
		doc.File = &path
	}

	for {
		m, ok := matches.Next()
		if !ok {
			break
		}

		captures := make(map[string]verboseCapture, len(m.Captures))
		for _, c := range m.Captures {
			captures[captureName(names, c.Index)] = verboseCapture{
				Content: c.Node.Content(source),
				Node:    c.Node,
			}
		}
		doc.Matches = append(doc.Matches, captures)
	}

	if err := newEncoder(w, f.pretty).Encode(doc); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}
