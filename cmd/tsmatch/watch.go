package main

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/arjunmahishi/tsmatch/scanner"
	"github.com/arjunmahishi/tsmatch/tsmatch"
)

// Editors often write a file several times per save.
const debounceInterval = 50 * time.Millisecond

// debouncer drops repeated events for a path that arrive within interval of
// the last accepted one.
type debouncer struct {
	interval time.Duration
	now      func() time.Time
	last     map[string]time.Time
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{
		interval: interval,
		now:      time.Now,
		last:     make(map[string]time.Time),
	}
}

func (d *debouncer) allow(path string) bool {
	now := d.now()
	if last, ok := d.last[path]; ok && now.Sub(last) < d.interval {
		return false
	}
	d.last[path] = now
	return true
}

// watchSet tracks the files the globs currently expand to and the directories
// that hold them.
type watchSet struct {
	files map[string]struct{}
	dirs  map[string]struct{}
}

func newWatchSet() *watchSet {
	return &watchSet{
		files: make(map[string]struct{}),
		dirs:  make(map[string]struct{}),
	}
}

// update replaces the file set and returns directories not seen before.
func (s *watchSet) update(files []string) []string {
	s.files = make(map[string]struct{}, len(files))
	var added []string
	for _, f := range files {
		f = filepath.Clean(f)
		s.files[f] = struct{}{}
		dir := filepath.Dir(f)
		if _, ok := s.dirs[dir]; !ok {
			s.dirs[dir] = struct{}{}
			added = append(added, dir)
		}
	}
	return added
}

func (s *watchSet) contains(path string) bool {
	_, ok := s.files[filepath.Clean(path)]
	return ok
}

// watch re-runs the query on every matched file that is written or created
// until ctx is cancelled. Events are handled one at a time; failures are
// logged and do not stop the loop.
func watch(
	ctx context.Context,
	w io.Writer,
	runner *tsmatch.Runner,
	scan *scanner.Scanner,
	globs []string,
	logger *zap.Logger,
) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	set := newWatchSet()
	rescan := func() {
		files, err := scan.Collect(globs)
		if err != nil {
			logger.Warn("rescan failed", zap.Error(err))
			return
		}
		for _, dir := range set.update(files) {
			if err := fw.Add(dir); err != nil {
				logger.Warn("cannot watch directory", zap.String("dir", dir), zap.Error(err))
			}
		}
	}
	rescan()
	logger.Info("watching for changes", zap.Int("files", len(set.files)), zap.Int("dirs", len(set.dirs)))

	debounce := newDebouncer(debounceInterval)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if event.Has(fsnotify.Create) {
				rescan()
			}
			if !set.contains(event.Name) || !debounce.allow(event.Name) {
				continue
			}

			if _, err := runner.Run(ctx, w, []string{event.Name}); err != nil {
				logger.Warn("re-run failed", zap.String("path", event.Name), zap.Error(err))
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))
		}
	}
}
