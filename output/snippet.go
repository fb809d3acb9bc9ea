package output

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/arjunmahishi/tsmatch/types"
)

// Annotation labels a byte range of a Block's source.
type Annotation struct {
	Label string
	Start int
	End   int
}

// Block is the rendered unit for one match: the whole lines covering every
// capture, the 1-based number of the first line, and one annotation per
// capture with offsets relative to the start of Source.
type Block struct {
	Path        string
	Line        int
	Source      string
	Annotations []Annotation
}

// Window returns the byte range [start, end) of the whole source lines that
// cover every capture of m. start is 0 or just past a newline; end is len(source)
// or the index of a newline. ok is false when m has no captures.
func Window(source string, m types.Match) (start, end int, ok bool) {
	if len(m.Captures) == 0 {
		return 0, 0, false
	}

	earliest := int(m.Captures[0].Node.StartByte)
	latest := int(m.Captures[0].Node.EndByte)
	for _, c := range m.Captures[1:] {
		earliest = min(earliest, int(c.Node.StartByte))
		latest = max(latest, int(c.Node.EndByte))
	}

	start = strings.LastIndexByte(source[:earliest], '\n') + 1
	end = len(source)
	if i := strings.IndexByte(source[latest:], '\n'); i >= 0 {
		end = latest + i
	}
	return start, end, true
}

// NewBlock builds the snippet block for m.
func NewBlock(names []string, source, path string, m types.Match) (Block, bool) {
	start, end, ok := Window(source, m)
	if !ok {
		return Block{}, false
	}

	row := m.Captures[0].Node.StartPosition.Row
	annotations := make([]Annotation, 0, len(m.Captures))
	for _, c := range m.Captures {
		row = min(row, c.Node.StartPosition.Row)
		annotations = append(annotations, Annotation{
			Label: captureName(names, c.Index),
			Start: int(c.Node.StartByte) - start,
			End:   int(c.Node.EndByte) - start,
		})
	}

	return Block{
		Path:        path,
		Line:        int(row) + 1,
		Source:      source[start:end],
		Annotations: annotations,
	}, true
}

// SnippetFormatter renders each match as an independent annotated excerpt:
//
//	info: query matched
//	 --> src/app.js:3
//	  |
//	3 | let a = 1;
//	  |     ^ name
type SnippetFormatter struct {
	title  *color.Color
	header *color.Color
	gutter *color.Color
	file   *color.Color
	mark   *color.Color
}

// NewSnippetFormatter returns a snippet renderer; colour is forced on or off
// regardless of the terminal.
func NewSnippetFormatter(useColor bool) *SnippetFormatter {
	f := &SnippetFormatter{
		title:  color.New(color.FgCyan, color.Bold),
		header: color.New(color.Bold),
		gutter: color.New(color.FgHiBlue, color.Bold),
		file:   color.New(color.FgCyan),
		mark:   color.New(color.FgYellow, color.Bold),
	}
	for _, c := range []*color.Color{f.title, f.header, f.gutter, f.file, f.mark} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return f
}

// Format implements Formatter. Matches without captures have nothing to show
// and are skipped.
func (f *SnippetFormatter) Format(w io.Writer, names []string, source, path string, matches types.MatchSequence) error {
	for {
		m, ok := matches.Next()
		if !ok {
			return nil
		}
		block, ok := NewBlock(names, source, path, m)
		if !ok {
			continue
		}
		if _, err := io.WriteString(w, f.Render(block)); err != nil {
			return fmt.Errorf("write snippet: %w", err)
		}
	}
}

// Render formats a single block, followed by an empty line.
func (f *SnippetFormatter) Render(b Block) string {
	lines := strings.Split(b.Source, "\n")
	width := len(fmt.Sprint(b.Line + len(lines) - 1))
	padding := strings.Repeat(" ", width)

	var sb strings.Builder
	sb.WriteString(f.title.Sprint("info") + f.header.Sprint(": query matched") + "\n")
	sb.WriteString(f.gutter.Sprintf("%s--> ", padding) + f.file.Sprintf("%s:%d", b.Path, b.Line) + "\n")
	sb.WriteString(f.gutter.Sprintf("%s |", padding) + "\n")

	offset := 0
	for i, line := range lines {
		lineEnd := offset + len(line)
		sb.WriteString(f.gutter.Sprintf("%*d | ", width, b.Line+i) + line + "\n")

		for _, a := range b.Annotations {
			if a.Start < offset || a.Start > lineEnd {
				continue
			}
			from := a.Start - offset
			to := min(a.End, lineEnd) - offset
			carets := max(utf8.RuneCountInString(line[from:to]), 1)

			sb.WriteString(f.gutter.Sprintf("%s | ", padding))
			sb.WriteString(indentFor(line[:from]))
			sb.WriteString(f.mark.Sprint(strings.Repeat("^", carets) + " " + a.Label))
			sb.WriteString("\n")
		}
		offset = lineEnd + 1
	}
	sb.WriteString("\n")
	return sb.String()
}

// indentFor returns whitespace that lines up with the end of prefix, keeping
// tabs so the caret lands under the right column.
func indentFor(prefix string) string {
	var sb strings.Builder
	for _, r := range prefix {
		if r == '\t' {
			sb.WriteByte('\t')
		} else {
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}
