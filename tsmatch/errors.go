package tsmatch

import (
	"errors"
	"fmt"
	"strings"
)

var errInvalidUTF8 = errors.New("file is not valid UTF-8")

// InvalidLanguageSpecError reports a language mapping that is not of the form
// "ext,ext=language".
type InvalidLanguageSpecError struct {
	Spec   string
	Reason string
}

func (e *InvalidLanguageSpecError) Error() string {
	return fmt.Sprintf("invalid language spec %q: %s (want ext,ext=language)", e.Spec, e.Reason)
}

// QueryCompileError reports a query that does not compile against a grammar.
// Offset, Row and Column locate the problem in the query text when the engine
// reports a position.
type QueryCompileError struct {
	Language string
	Offset   uint32
	Row      int
	Column   int
	Err      error
}

func (e *QueryCompileError) Error() string {
	return fmt.Sprintf("compile query for %s at %d:%d: %v", e.Language, e.Row+1, e.Column+1, e.Err)
}

func (e *QueryCompileError) Unwrap() error {
	return e.Err
}

// UnsupportedExtensionError reports an input file whose extension has no bundle.
type UnsupportedExtensionError struct {
	Path string
	Ext  string
}

func (e *UnsupportedExtensionError) Error() string {
	if e.Ext == "" {
		return fmt.Sprintf("%s: no extension, cannot pick a language", e.Path)
	}
	return fmt.Sprintf("%s: no language registered for extension %q", e.Path, e.Ext)
}

// ReadError reports a file that could not be read as text.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// ParseError reports a file the parser produced no tree for.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// OutputError reports a failure to render or write the output of a file.
type OutputError struct {
	Path string
	Err  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("output %s: %v", e.Path, e.Err)
}

func (e *OutputError) Unwrap() error {
	return e.Err
}

// RunError collects the per-file failures skipped by a keep-going run.
type RunError struct {
	Failures []error
}

func (e *RunError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, err := range e.Failures {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d file(s) failed: %s", len(e.Failures), strings.Join(msgs, "; "))
}

func (e *RunError) Unwrap() []error {
	return e.Failures
}
