package output

import (
	"fmt"
	"io"

	"github.com/arjunmahishi/tsmatch/types"
)

// TerseFormatter writes one compact JSON object per match, one per line,
// mapping each capture name to its matched text. When a name is captured more
// than once in a match, the last capture wins.
type TerseFormatter struct{}

// Format implements Formatter.
func (TerseFormatter) Format(w io.Writer, names []string, source, _ string, matches types.MatchSequence) error {
	enc := newEncoder(w, false)
	for {
		m, ok := matches.Next()
		if !ok {
			return nil
		}

		record := make(map[string]string, len(m.Captures))
		for _, c := range m.Captures {
			record[captureName(names, c.Index)] = c.Node.Content(source)
		}

		if err := enc.Encode(record); err != nil {
			return fmt.Errorf("write match: %w", err)
		}
	}
}
