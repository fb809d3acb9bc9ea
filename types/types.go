// Package types defines the value types shared by the match pipeline and the
// output formatters.
package types

// Point is a zero-based (row, column) position; column counts bytes.
type Point struct {
	Row    uint32 `json:"row"`
	Column uint32 `json:"column"`
}

// Node is a read-only copy of a syntax tree node.
type Node struct {
	Kind          string `json:"kind"`
	StartByte     uint32 `json:"start_byte"`
	EndByte       uint32 `json:"end_byte"`
	StartPosition Point  `json:"start_position"`
	EndPosition   Point  `json:"end_position"`
}

// Content returns the exact source text spanned by the node.
func (n Node) Content(source string) string {
	return source[n.StartByte:n.EndByte]
}

// Capture binds one node to a capture name, referenced by index into the
// query's capture name table.
type Capture struct {
	Index uint32
	Node  Node
}

// Match is one occurrence of a query pattern. Capture names may repeat.
type Match struct {
	PatternIndex int
	Captures     []Capture
}

// MatchSequence is a lazy, forward-only sequence of matches. Each sequence can
// be consumed once; after it is exhausted Next keeps returning false. A
// sequence is only valid while the file it was produced from is being
// processed.
type MatchSequence interface {
	Next() (Match, bool)
}

// SliceSequence is a MatchSequence over an in-memory slice.
type SliceSequence struct {
	matches []Match
	pos     int
}

// NewSliceSequence returns a sequence that yields matches in order.
func NewSliceSequence(matches ...Match) *SliceSequence {
	return &SliceSequence{matches: matches}
}

// Next implements MatchSequence.
func (s *SliceSequence) Next() (Match, bool) {
	if s.pos >= len(s.matches) {
		return Match{}, false
	}
	m := s.matches[s.pos]
	s.pos++
	return m, true
}
