package tsmatch

import (
	"context"
	"io"
	"os"
	"unicode/utf8"

	"github.com/arjunmahishi/tsmatch/output"
)

// ProcessFile reads, parses and queries one file, then hands the lazy match
// sequence to the formatter, which renders it to w. It returns the number of
// matches the formatter consumed.
//
// Read and parse failures happen before anything is written for the file.
func ProcessFile(ctx context.Context, w io.Writer, path string, bundle *Bundle, formatter output.Formatter) (int, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return 0, &ReadError{Path: path, Err: err}
	}
	if !utf8.Valid(source) {
		return 0, &ReadError{Path: path, Err: errInvalidUTF8}
	}

	p := newParser(bundle.Language)
	defer p.close()

	tree, err := p.parse(ctx, source)
	if err != nil {
		return 0, &ParseError{Path: path, Err: err}
	}
	defer tree.Close()

	matches := bundle.Query.exec(tree, source)
	defer matches.close()

	err = formatter.Format(w, bundle.Query.CaptureNames(), string(source), path, matches)
	if err != nil {
		return matches.count, &OutputError{Path: path, Err: err}
	}
	return matches.count, nil
}
