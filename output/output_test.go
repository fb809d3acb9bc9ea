package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjunmahishi/tsmatch/types"
)

// twoLineSource has key/value pairs on two lines; node offsets below index into it.
const twoLineSource = "let a = 1;\nlet b = 2;"

var keyValueNames = []string{"key", "value"}

func node(kind string, source string, start, end int) types.Node {
	return types.Node{
		Kind:          kind,
		StartByte:     uint32(start),
		EndByte:       uint32(end),
		StartPosition: pointAt(source, start),
		EndPosition:   pointAt(source, end),
	}
}

func pointAt(source string, offset int) types.Point {
	row := strings.Count(source[:offset], "\n")
	col := offset - (strings.LastIndexByte(source[:offset], '\n') + 1)
	return types.Point{Row: uint32(row), Column: uint32(col)}
}

func keyValueMatches() []types.Match {
	return []types.Match{
		{Captures: []types.Capture{
			{Index: 0, Node: node("identifier", twoLineSource, 4, 5)},
			{Index: 1, Node: node("number", twoLineSource, 8, 9)},
		}},
		{Captures: []types.Capture{
			{Index: 0, Node: node("identifier", twoLineSource, 15, 16)},
			{Index: 1, Node: node("number", twoLineSource, 19, 20)},
		}},
	}
}

// countingSequence records how often Next is called.
type countingSequence struct {
	inner types.MatchSequence
	calls int
}

func (s *countingSequence) Next() (types.Match, bool) {
	s.calls++
	return s.inner.Next()
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in       string
		expected Format
	}{
		{"terse", Terse},
		{"verbose", Verbose},
		{"snippet", Snippet},
		{"Snippet", Snippet},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f, err := ParseFormat(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, f)
			assert.Equal(t, strings.ToLower(tt.in), f.String())
		})
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)
	assert.Equal(t, []string{"terse", "verbose", "snippet"}, FormatNames())
	assert.Equal(t, "Format(7)", Format(7).String())
}

func TestNew(t *testing.T) {
	for _, f := range []Format{Terse, Verbose, Snippet} {
		formatter, err := New(f, Config{})
		require.NoError(t, err)
		assert.NotNil(t, formatter)
	}
	_, err := New(Format(42), Config{})
	assert.Error(t, err)
}

func TestTerse_KeyValue(t *testing.T) {
	var buf bytes.Buffer
	seq := &countingSequence{inner: types.NewSliceSequence(keyValueMatches()...)}

	err := TerseFormatter{}.Format(&buf, keyValueNames, twoLineSource, "a.js", seq)
	require.NoError(t, err)

	assert.Equal(t, "{\"key\":\"a\",\"value\":\"1\"}\n{\"key\":\"b\",\"value\":\"2\"}\n", buf.String())
	assert.Equal(t, 3, seq.calls, "one pass: two matches plus the terminating call")
}

func TestTerse_DuplicateCaptureLastWins(t *testing.T) {
	m := types.Match{Captures: []types.Capture{
		{Index: 0, Node: node("identifier", twoLineSource, 4, 5)},
		{Index: 0, Node: node("identifier", twoLineSource, 15, 16)},
	}}

	var buf bytes.Buffer
	err := TerseFormatter{}.Format(&buf, []string{"name"}, twoLineSource, "", types.NewSliceSequence(m))
	require.NoError(t, err)
	assert.Equal(t, "{\"name\":\"b\"}\n", buf.String())
}

func TestTerse_NoEscaping(t *testing.T) {
	source := `x = "<a & b>"`
	m := types.Match{Captures: []types.Capture{{Index: 0, Node: node("string", source, 4, len(source))}}}

	var buf bytes.Buffer
	err := TerseFormatter{}.Format(&buf, []string{"s"}, source, "", types.NewSliceSequence(m))
	require.NoError(t, err)
	assert.Equal(t, `{"s":"\"<a & b>\""}`+"\n", buf.String())
}

func TestTerse_UnknownCaptureIndex(t *testing.T) {
	m := types.Match{Captures: []types.Capture{{Index: 3, Node: node("identifier", twoLineSource, 4, 5)}}}

	var buf bytes.Buffer
	err := TerseFormatter{}.Format(&buf, nil, twoLineSource, "", types.NewSliceSequence(m))
	require.NoError(t, err)
	assert.Equal(t, "{\"capture_3\":\"a\"}\n", buf.String())
}

func TestVerbose_KeyValue(t *testing.T) {
	var buf bytes.Buffer
	seq := &countingSequence{inner: types.NewSliceSequence(keyValueMatches()...)}

	f := &VerboseFormatter{}
	require.NoError(t, f.Format(&buf, keyValueNames, twoLineSource, "a.js", seq))
	assert.Equal(t, 3, seq.calls)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "\n"), "one document per file")
	assert.True(t, strings.HasPrefix(out, `{"file":"a.js","matches":[{"key":{"content":"a","node":{"kind":"identifier","start_byte":4,"end_byte":5,"start_position":{"row":0,"column":4},"end_position":{"row":0,"column":5}}}`))

	var doc struct {
		File    *string `json:"file"`
		Matches []map[string]struct {
			Content string     `json:"content"`
			Node    types.Node `json:"node"`
		} `json:"matches"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.NotNil(t, doc.File)
	assert.Equal(t, "a.js", *doc.File)
	require.Len(t, doc.Matches, 2)

	for i, m := range keyValueMatches() {
		for _, c := range m.Captures {
			got := doc.Matches[i][keyValueNames[c.Index]]
			assert.Equal(t, twoLineSource[c.Node.StartByte:c.Node.EndByte], got.Content)
			assert.Equal(t, c.Node, got.Node)
		}
	}
	assert.Equal(t, types.Point{Row: 1, Column: 4}, doc.Matches[1]["key"].Node.StartPosition)
}

func TestVerbose_EmptyAndNullFile(t *testing.T) {
	var buf bytes.Buffer
	f := &VerboseFormatter{}
	require.NoError(t, f.Format(&buf, nil, "", "", types.NewSliceSequence()))
	assert.Equal(t, "{\"file\":null,\"matches\":[]}\n", buf.String())

	buf.Reset()
	require.NoError(t, f.Format(&buf, nil, "", "bad\xffname.js", types.NewSliceSequence()))
	assert.Equal(t, "{\"file\":null,\"matches\":[]}\n", buf.String())
}

func TestVerbose_Pretty(t *testing.T) {
	var buf bytes.Buffer
	formatter, err := New(Verbose, Config{Pretty: true})
	require.NoError(t, err)
	require.NoError(t, formatter.Format(&buf, nil, "", "x.js", types.NewSliceSequence()))
	assert.Equal(t, "{\n  \"file\": \"x.js\",\n  \"matches\": []\n}\n", buf.String())
}

func TestFormatters_WriteFailure(t *testing.T) {
	for _, f := range []Format{Terse, Verbose, Snippet} {
		t.Run(f.String(), func(t *testing.T) {
			formatter, err := New(f, Config{})
			require.NoError(t, err)
			err = formatter.Format(failingWriter{}, keyValueNames, twoLineSource, "a.js",
				types.NewSliceSequence(keyValueMatches()...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "disk full")
		})
	}
}

func TestWindow(t *testing.T) {
	source := "first line\nlet x = foo(1,\n  2);\nlast"
	call := strings.Index(source, "foo")
	arg := strings.Index(source, "2)")

	tests := []struct {
		name     string
		captures []types.Capture
		start    int
		end      int
	}{
		{
			name:     "single line",
			captures: []types.Capture{{Node: node("identifier", source, call, call+3)}},
			start:    11,
			end:      25,
		},
		{
			name: "spans lines",
			captures: []types.Capture{
				{Node: node("number", source, arg, arg+1)},
				{Node: node("identifier", source, call, call+3)},
			},
			start: 11,
			end:   31,
		},
		{
			name:     "first line",
			captures: []types.Capture{{Node: node("word", source, 0, 5)}},
			start:    0,
			end:      10,
		},
		{
			name:     "last line without newline",
			captures: []types.Capture{{Node: node("word", source, len(source)-4, len(source))}},
			start:    len(source) - 4,
			end:      len(source),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, ok := Window(source, types.Match{Captures: tt.captures})
			require.True(t, ok)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}

	_, _, ok := Window(source, types.Match{})
	assert.False(t, ok)
}

// TestWindow_LineBoundaries checks the window properties for every single-byte
// capture position in a multi-line source.
func TestWindow_LineBoundaries(t *testing.T) {
	source := "a\n\nbc def\n  ghi\n"
	for i := 0; i < len(source); i++ {
		for j := i; j <= len(source); j++ {
			m := types.Match{Captures: []types.Capture{{Node: node("x", source, i, j)}}}
			start, end, ok := Window(source, m)
			require.True(t, ok)

			assert.LessOrEqual(t, start, i)
			assert.GreaterOrEqual(t, end, j)
			assert.True(t, start == 0 || source[start-1] == '\n', "start %d for [%d,%d)", start, i, j)
			assert.True(t, end == len(source) || source[end] == '\n', "end %d for [%d,%d)", end, i, j)
		}
	}
}

func TestNewBlock(t *testing.T) {
	b, ok := NewBlock(keyValueNames, twoLineSource, "a.js", keyValueMatches()[1])
	require.True(t, ok)
	assert.Equal(t, Block{
		Path:   "a.js",
		Line:   2,
		Source: "let b = 2;",
		Annotations: []Annotation{
			{Label: "key", Start: 4, End: 5},
			{Label: "value", Start: 8, End: 9},
		},
	}, b)

	_, ok = NewBlock(nil, twoLineSource, "a.js", types.Match{})
	assert.False(t, ok)
}

func TestSnippet_Render(t *testing.T) {
	var buf bytes.Buffer
	f := NewSnippetFormatter(false)
	require.NoError(t, f.Format(&buf, keyValueNames, twoLineSource, "a.js",
		types.NewSliceSequence(keyValueMatches()...)))

	expected := "" +
		"info: query matched\n" +
		" --> a.js:1\n" +
		"  |\n" +
		"1 | let a = 1;\n" +
		"  |     ^ key\n" +
		"  |         ^ value\n" +
		"\n" +
		"info: query matched\n" +
		" --> a.js:2\n" +
		"  |\n" +
		"2 | let b = 2;\n" +
		"  |     ^ key\n" +
		"  |         ^ value\n" +
		"\n"
	assert.Equal(t, expected, buf.String())
}

func TestSnippet_RenderMultiLine(t *testing.T) {
	source := "x\n\tcall(\n\t\targ)\n"
	call := strings.Index(source, "call")
	arg := strings.Index(source, "arg")
	m := types.Match{Captures: []types.Capture{
		{Index: 0, Node: node("call_expression", source, call, arg+4)},
		{Index: 1, Node: node("identifier", source, arg, arg+3)},
	}}

	var buf bytes.Buffer
	f := NewSnippetFormatter(false)
	require.NoError(t, f.Format(&buf, []string{"call", "arg"}, source, "m.js", types.NewSliceSequence(m)))

	expected := "" +
		"info: query matched\n" +
		" --> m.js:2\n" +
		"  |\n" +
		"2 | \tcall(\n" +
		"  | \t^^^^^ call\n" +
		"3 | \t\targ)\n" +
		"  | \t\t^^^ arg\n" +
		"\n"
	assert.Equal(t, expected, buf.String())
}

func TestSnippet_SkipsEmptyMatches(t *testing.T) {
	var buf bytes.Buffer
	f := NewSnippetFormatter(false)
	require.NoError(t, f.Format(&buf, nil, twoLineSource, "a.js", types.NewSliceSequence(types.Match{})))
	assert.Empty(t, buf.String())
}

func TestSnippet_Color(t *testing.T) {
	b, ok := NewBlock(keyValueNames, twoLineSource, "a.js", keyValueMatches()[0])
	require.True(t, ok)

	assert.Contains(t, NewSnippetFormatter(true).Render(b), "\x1b[")
	assert.NotContains(t, NewSnippetFormatter(false).Render(b), "\x1b[")
}
