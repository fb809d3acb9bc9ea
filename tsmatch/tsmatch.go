// Package tsmatch runs a structural tree-sitter query over source files and
// streams the captures through an output formatter.
package tsmatch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/arjunmahishi/tsmatch/output"
)

// Summary counts the outcome of a run.
type Summary struct {
	Files   int
	Matches int
	Failed  int
}

// Runner holds the bundle table and formatter built once at startup and
// processes batches of files with them.
type Runner struct {
	table     *BundleTable
	formatter output.Formatter
	jobs      int
	keepGoing bool
	logger    *zap.Logger
}

// NewRunner validates opts, loads every grammar it names and compiles the
// query for each of them.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Grammars == nil {
		return nil, errors.New("grammar registry is required")
	}
	if opts.QueryText == "" {
		return nil, errors.New("query is required")
	}
	if len(opts.Languages) == 0 {
		return nil, errors.New("at least one language mapping is required")
	}
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	formatter, err := output.New(opts.Format, opts.Output)
	if err != nil {
		return nil, err
	}

	table, err := NewBundleTable(opts.Grammars, opts.QueryText, opts.Languages)
	if err != nil {
		return nil, err
	}
	opts.Logger.Debug("bundle table ready",
		zap.Strings("extensions", table.Extensions()),
		zap.Int("bundles", table.Len()),
	)

	return &Runner{
		table:     table,
		formatter: formatter,
		jobs:      opts.Jobs,
		keepGoing: opts.KeepGoing,
		logger:    opts.Logger,
	}, nil
}

// Run is a convenience wrapper around NewRunner and Runner.Run.
func Run(ctx context.Context, w io.Writer, opts Options, paths []string) (Summary, error) {
	r, err := NewRunner(opts)
	if err != nil {
		return Summary{}, err
	}
	return r.Run(ctx, w, paths)
}

// Table returns the runner's bundle table.
func (r *Runner) Table() *BundleTable {
	return r.table
}

// Run processes paths in order and writes their output to w in the same
// order. Every path's extension is resolved before the first file is read.
func (r *Runner) Run(ctx context.Context, w io.Writer, paths []string) (Summary, error) {
	jobs, err := r.table.Plan(paths)
	if err != nil {
		return Summary{}, err
	}
	if r.jobs <= 1 || len(jobs) <= 1 {
		return r.runSequential(ctx, w, jobs)
	}
	return r.runWorkers(ctx, w, jobs)
}

func (r *Runner) runSequential(ctx context.Context, w io.Writer, jobs []FileJob) (Summary, error) {
	var (
		sum      Summary
		failures []error
	)
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		matches, err := ProcessFile(ctx, w, job.Path, job.Bundle, r.formatter)
		if stop := r.record(&sum, &failures, job, matches, err); stop != nil {
			return sum, stop
		}
	}
	return sum, r.finish(failures)
}

type fileResult struct {
	index   int
	out     bytes.Buffer
	matches int
	err     error
}

// runWorkers renders files in parallel into per-file buffers and writes the
// buffers in input order, so the output is identical to a sequential run.
func (r *Runner) runWorkers(parent context.Context, w io.Writer, jobs []FileJob) (Summary, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	results := make(chan *fileResult, 128)
	jobQueue := make(chan int, 128)
	var wg sync.WaitGroup

	workerCount := r.jobs
	if workerCount > len(jobs) {
		workerCount = len(jobs)
	}

	worker := func() {
		defer wg.Done()
		for i := range jobQueue {
			res := &fileResult{index: i}
			if err := ctx.Err(); err != nil {
				res.err = err
			} else {
				res.matches, res.err = ProcessFile(ctx, &res.out, jobs[i].Path, jobs[i].Bundle, r.formatter)
			}
			results <- res
		}
	}

	wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go worker()
	}

	go func() {
		for i := range jobs {
			jobQueue <- i
		}
		close(jobQueue)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var (
		sum      Summary
		failures []error
		runErr   error
		pending  = make(map[int]*fileResult)
		next     int
	)
	for res := range results {
		pending[res.index] = res
		for runErr == nil {
			ready, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++

			job := jobs[ready.index]
			err := ready.err
			if err == nil {
				if _, werr := w.Write(ready.out.Bytes()); werr != nil {
					err = &OutputError{Path: job.Path, Err: werr}
				}
			}
			if stop := r.record(&sum, &failures, job, ready.matches, err); stop != nil {
				runErr = stop
				cancel()
			}
		}
	}

	if runErr != nil {
		return sum, runErr
	}
	if err := parent.Err(); err != nil {
		return sum, err
	}
	return sum, r.finish(failures)
}

// record accounts for one processed file and returns the error that stops the
// run, if any.
func (r *Runner) record(sum *Summary, failures *[]error, job FileJob, matches int, err error) error {
	if err == nil {
		sum.Files++
		sum.Matches += matches
		r.logger.Debug("processed file",
			zap.String("path", job.Path),
			zap.String("language", job.Bundle.Language.Name()),
			zap.Int("matches", matches),
		)
		return nil
	}

	sum.Failed++
	if !r.keepGoing {
		return err
	}
	r.logger.Warn("skipping file", zap.String("path", job.Path), zap.Error(err))
	*failures = append(*failures, err)
	return nil
}

func (r *Runner) finish(failures []error) error {
	if len(failures) == 0 {
		return nil
	}
	return &RunError{Failures: failures}
}
