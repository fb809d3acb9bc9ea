package tsmatch

import (
	"context"
	"errors"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/arjunmahishi/tsmatch/grammar"
	"github.com/arjunmahishi/tsmatch/types"
)

// parser wraps a tree-sitter parser for a specific language.
type parser struct {
	parser *sitter.Parser
	lang   *grammar.Language
}

// newParser creates a new parser for the given language.
func newParser(language *grammar.Language) *parser {
	p := sitter.NewParser()
	p.SetLanguage(language.TreeSitter())
	return &parser{
		parser: p,
		lang:   language,
	}
}

// parse parses source code and returns the syntax tree.
func (p *parser) parse(ctx context.Context, source []byte) (*sitter.Tree, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, errors.New("parser returned no tree")
	}
	return tree, nil
}

func (p *parser) close() {
	p.parser.Close()
}

// Query is a tree-sitter query compiled against one grammar.
type Query struct {
	query        *sitter.Query
	language     *grammar.Language
	captureNames []string
}

// compileQuery compiles a tree-sitter query string.
func compileQuery(queryStr string, language *grammar.Language) (*Query, error) {
	q, err := sitter.NewQuery([]byte(queryStr), language.TreeSitter())
	if err != nil {
		compileErr := &QueryCompileError{Language: language.Name(), Err: err}
		var qe *sitter.QueryError
		if errors.As(err, &qe) {
			compileErr.Offset = qe.Offset
			compileErr.Row, compileErr.Column = position(queryStr, int(qe.Offset))
		}
		return nil, compileErr
	}
	if err := checkRegexPredicates(q, queryStr, language); err != nil {
		q.Close()
		return nil, err
	}

	captureCount := int(q.CaptureCount())
	captureNames := make([]string, captureCount)
	for i := 0; i < captureCount; i++ {
		captureNames[i] = q.CaptureNameForId(uint32(i))
	}

	return &Query{
		query:        q,
		language:     language,
		captureNames: captureNames,
	}, nil
}

// checkRegexPredicates compiles the pattern of every #match? and #not-match?
// predicate. The cursor compiles them again per match and panics on a bad one.
func checkRegexPredicates(q *sitter.Query, queryStr string, language *grammar.Language) error {
	for i := uint32(0); i < q.PatternCount(); i++ {
		for _, steps := range q.PredicatesForPattern(i) {
			if len(steps) < 3 {
				continue
			}
			switch q.StringValueForId(steps[0].ValueId) {
			case "match?", "not-match?":
			default:
				continue
			}
			pattern := q.StringValueForId(steps[2].ValueId)
			if _, err := regexp.Compile(pattern); err != nil {
				compileErr := &QueryCompileError{Language: language.Name(), Err: err}
				if at := strings.Index(queryStr, `"`+pattern); at >= 0 {
					compileErr.Offset = uint32(at + 1)
					compileErr.Row, compileErr.Column = position(queryStr, at+1)
				}
				return compileErr
			}
		}
	}
	return nil
}

// CaptureNames returns the capture name table, indexed by capture index.
func (q *Query) CaptureNames() []string {
	return q.captureNames
}

// Language returns the grammar the query was compiled against.
func (q *Query) Language() *grammar.Language {
	return q.language
}

// exec starts the query over the tree and returns its lazy match sequence.
// The caller must close the sequence once the formatter has returned.
func (q *Query) exec(tree *sitter.Tree, source []byte) *matchSequence {
	cursor := sitter.NewQueryCursor()
	cursor.Exec(q.query, tree.RootNode())
	return &matchSequence{cursor: cursor, source: source}
}

// matchSequence streams matches straight off a query cursor, copying every
// captured node out of the tree.
type matchSequence struct {
	cursor *sitter.QueryCursor
	source []byte
	done   bool
	count  int
}

// Next implements types.MatchSequence.
func (s *matchSequence) Next() (types.Match, bool) {
	if s.done {
		return types.Match{}, false
	}
	for {
		m, ok := s.cursor.NextMatch()
		if !ok {
			s.done = true
			return types.Match{}, false
		}

		// Matches rejected by #eq?/#match? predicates come back without captures.
		filtered := s.cursor.FilterPredicates(m, s.source)
		if len(filtered.Captures) == 0 && len(m.Captures) > 0 {
			continue
		}

		s.count++
		return convertMatch(filtered), true
	}
}

func (s *matchSequence) close() {
	s.done = true
	s.cursor.Close()
}

func convertMatch(m *sitter.QueryMatch) types.Match {
	result := types.Match{
		PatternIndex: int(m.PatternIndex),
		Captures:     make([]types.Capture, 0, len(m.Captures)),
	}
	for _, c := range m.Captures {
		result.Captures = append(result.Captures, types.Capture{
			Index: c.Index,
			Node:  convertNode(c.Node),
		})
	}
	return result
}

func convertNode(n *sitter.Node) types.Node {
	start := n.StartPoint()
	end := n.EndPoint()
	return types.Node{
		Kind:          n.Type(),
		StartByte:     n.StartByte(),
		EndByte:       n.EndByte(),
		StartPosition: types.Point{Row: start.Row, Column: start.Column},
		EndPosition:   types.Point{Row: end.Row, Column: end.Column},
	}
}

// position converts a byte offset in text to a zero-based row and column.
func position(text string, offset int) (row, col int) {
	if offset > len(text) {
		offset = len(text)
	}
	row = strings.Count(text[:offset], "\n")
	col = offset - (strings.LastIndexByte(text[:offset], '\n') + 1)
	return row, col
}
