// Package warmup feeds target images from a directory into the warm-up queue.
package warmup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/okian/promptmatch/internal/domain/dedupe"
	"github.com/okian/promptmatch/internal/domain/embedcache"
	"github.com/okian/promptmatch/internal/domain/model"
	"github.com/okian/promptmatch/pkg/logger"
)

// ErrNoDir is returned when the warm-up directory is not a directory.
var ErrNoDir = errors.New("warm-up path is not a directory")

// Sink receives jobs. It is satisfied by the warm-up queue.
type Sink interface {
	Put(ctx context.Context, j model.WarmupJob) error
}

// Result summarises a scan.
type Result struct {
	Queued  int `json:"queued"`
	Skipped int `json:"skipped"`
}

// Scanner reads images out of a directory.
type Scanner struct {
	dir      string
	maxBytes int
	sink     Sink
	seen     dedupe.Deduper
	log      logger.Logger
}

// Option applies a configuration option to the Scanner.
type Option func(*Scanner)

// WithMaxBytes skips files larger than n bytes.
func WithMaxBytes(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithDeduper skips images whose content was already queued.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Scanner) { s.seen = d }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.log = l
		}
	}
}

// NewScanner builds a scanner over dir.
func NewScanner(dir string, sink Sink, opts ...Option) *Scanner {
	s := &Scanner{dir: dir, sink: sink, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsImage reports whether name has a supported image extension.
func IsImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// Scan walks the directory once and queues every image. Unreadable or
// oversized files are skipped; a sink error stops the walk.
func (s *Scanner) Scan(ctx context.Context) (Result, error) {
	var res Result
	info, err := os.Stat(s.dir)
	if err != nil {
		return res, fmt.Errorf("warm-up dir: %w", err)
	}
	if !info.IsDir() {
		return res, fmt.Errorf("%w: %s", ErrNoDir, s.dir)
	}

	err = filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, werr error) error {
		if werr != nil {
			res.Skipped++
			return nil
		}
		if d.IsDir() || !IsImage(path) {
			return nil
		}
		queued, err := s.enqueue(ctx, path)
		if err != nil {
			return err
		}
		if queued {
			res.Queued++
		} else {
			res.Skipped++
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	s.log.Info(ctx, "warm-up scan finished",
		logger.String("dir", s.dir),
		logger.Int("queued", res.Queued),
		logger.Int("skipped", res.Skipped),
	)
	return res, nil
}

// enqueue reports false for files that were skipped.
func (s *Scanner) enqueue(ctx context.Context, path string) (bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		s.log.Warn(ctx, "skipping unreadable image", logger.String("path", path), logger.Error(err))
		return false, nil
	}
	if len(b) == 0 || (s.maxBytes > 0 && len(b) > s.maxBytes) {
		s.log.Warn(ctx, "skipping image", logger.String("path", path), logger.Int("bytes", len(b)))
		return false, nil
	}
	key := embedcache.Key(embedcache.KindImage, b)
	if s.seen != nil && s.seen.SeenAndRecord(ctx, key) {
		s.log.Debug(ctx, "skipping duplicate image", logger.String("path", path))
		return false, nil
	}
	job := model.WarmupJob{ID: uuid.NewString(), Source: path, Image: b}
	if err := s.sink.Put(ctx, job); err != nil {
		if s.seen != nil {
			s.seen.Unrecord(ctx, key)
		}
		return false, fmt.Errorf("queue %s: %w", path, err)
	}
	return true, nil
}

// Watch queues images created or rewritten in the directory until ctx is
// done. Writes are debounced so half-written files are not read.
func (s *Scanner) Watch(ctx context.Context, debounce time.Duration) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(s.dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	pending := map[string]time.Time{}
	tick := time.NewTicker(debounce)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
				if IsImage(ev.Name) {
					pending[ev.Name] = time.Now()
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn(ctx, "warm-up watcher error", logger.Error(err))
		case now := <-tick.C:
			for path, at := range pending {
				if now.Sub(at) < debounce {
					continue
				}
				delete(pending, path)
				if _, err := s.enqueue(ctx, path); err != nil {
					return err
				}
			}
		}
	}
}
