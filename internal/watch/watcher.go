// SPDX-License-Identifier: MPL-2.0

// Package watch reports debounced filesystem changes under a directory.
//
// The daemon runs one watcher on the configuration directory to hot-reload
// config.toml and one on the wallpaper directory to rebuild the playlist.
// Events within the debounce window are coalesced so the callback fires once
// with the full set of changed paths.
package watch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is the quiet period before the callback fires. Editors
// often write a temp file and rename it over the original; both events
// land in one window.
const defaultDebounce = 500 * time.Millisecond

// defaultIgnores are never reported: hidden files and directories (the
// category directories live there), editor swap and backup files, and
// partial downloads.
var defaultIgnores = []string{
	"**/.*",
	"**/.*/**",
	"**/*.swp",
	"**/*.swx",
	"**/*~",
	"**/4913",
	"**/*.part",
	"**/*.crdownload",
}

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("watch: Run called more than once")

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Dir is the directory to watch. An empty value is an error.
		Dir string

		// Recursive extends the watch to every non-ignored subdirectory,
		// including ones created later.
		Recursive bool

		// Patterns are doublestar globs, relative to Dir, selecting the files
		// that trigger the callback. An empty slice selects every
		// non-ignored file.
		Patterns []string

		// Ignore adds patterns to the built-in ignores.
		Ignore []string

		// Debounce is the quiet period after the last event before the
		// callback fires. Zero or negative values use defaultDebounce.
		Debounce time.Duration

		// OnChange receives the deduplicated paths, relative to Dir, that
		// changed during the window. A nil callback is a no-op.
		OnChange func(ctx context.Context, changed []string) error

		// Logger defaults to log.Default().
		Logger *log.Logger
	}

	// Watcher monitors a directory and fires a debounced callback when
	// matching files change. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		ignores  []string
		logger   *log.Logger
		debounce time.Duration
		dir      string
		started  atomic.Bool

		// dirs holds the watched directories, so removing one is reported
		// even though its name matches no file pattern.
		dirsMu sync.Mutex
		dirs   map[string]struct{}
	}
)

// New validates cfg and registers Dir, and its subdirectories when
// Recursive is set, with fsnotify.
func New(cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, errors.New("watch: no directory given")
	}
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve %s: %w", cfg.Dir, err)
	}

	if err := validatePatterns(cfg.Patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		ignores:  slices.Concat(defaultIgnores, cfg.Ignore),
		logger:   logger,
		debounce: debounce,
		dir:      dir,
		dirs:     make(map[string]struct{}),
	}

	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("watch: close after init failure", "error", closeErr)
		}
		return nil, err
	}
	return w, nil
}

// Dir returns the absolute watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Close releases the fsnotify watch of a Watcher that will not be Run.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run processes events until ctx is cancelled. It returns nil on
// cancellation and an error when fsnotify breaks beyond recovery.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu       sync.Mutex
		pending  = make(map[string]struct{})
		timer    *time.Timer
		closed   bool
		running  atomic.Bool
		inflight sync.WaitGroup
	)

	// fire drains the pending set into OnChange. A callback that outlasts
	// the debounce window is not re-entered; the batch is retried later.
	fire := func() {
		mu.Lock()
		if closed || ctx.Err() != nil {
			mu.Unlock()
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("watch: callback still running, deferring batch", "dir", w.dir)
			timer.Reset(w.debounce)
			mu.Unlock()
			return
		}
		if len(pending) == 0 {
			running.Store(false)
			mu.Unlock()
			return
		}
		inflight.Add(1)
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		defer inflight.Done()
		defer running.Store(false)
		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Warn("watch: callback failed", "dir", w.dir, "error", err)
			}
		}
	}

	// No callback starts once closed is set, and Run returns only after
	// the one in flight has finished.
	defer func() {
		mu.Lock()
		closed = true
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		inflight.Wait()
		if err := w.fsw.Close(); err != nil {
			w.logger.Debug("watch: close fsnotify", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			rel, relevant := w.classify(evt)
			if !relevant {
				continue
			}

			mu.Lock()
			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatal(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("watch: fsnotify error", "dir", w.dir, "error", err)
		}
	}
}

// classify returns the path relative to Dir and whether the event should be
// reported. Creating a directory extends a recursive watch.
func (w *Watcher) classify(evt fsnotify.Event) (string, bool) {
	if evt.Op == fsnotify.Chmod {
		return "", false
	}
	rel, err := filepath.Rel(w.dir, evt.Name)
	if err != nil {
		return "", false
	}
	if w.isIgnored(rel) {
		return "", false
	}

	if evt.Has(fsnotify.Create) && w.cfg.Recursive && w.maybeAddDir(evt.Name) {
		return rel, true
	}
	if evt.Has(fsnotify.Remove) || evt.Has(fsnotify.Rename) {
		w.dirsMu.Lock()
		_, wasDir := w.dirs[evt.Name]
		delete(w.dirs, evt.Name)
		w.dirsMu.Unlock()
		if wasDir {
			return rel, true
		}
	}
	return rel, w.matchesPatterns(rel)
}

// addDirectories registers Dir and, when recursive, every non-ignored
// directory below it. Unreadable subdirectories are skipped.
func (w *Watcher) addDirectories() error {
	if !w.cfg.Recursive {
		return w.add(w.dir)
	}
	walkErr := filepath.WalkDir(w.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == w.dir {
				return err
			}
			w.logger.Debug("watch: skipping inaccessible path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.dir {
			rel, relErr := filepath.Rel(w.dir, path)
			if relErr != nil || w.isIgnored(rel) {
				return filepath.SkipDir
			}
		}
		return w.add(path)
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk %s: %w", w.dir, walkErr)
	}
	return nil
}

// maybeAddDir watches path if it is a new directory and reports whether it
// was one.
func (w *Watcher) maybeAddDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	if err := w.add(path); err != nil {
		w.logger.Warn("watch: add new directory", "path", path, "error", err)
	}
	return true
}

func (w *Watcher) add(path string) error {
	if err := w.fsw.Add(path); err != nil {
		return fmt.Errorf("watch: add directory %q: %w", path, err)
	}
	w.dirsMu.Lock()
	w.dirs[path] = struct{}{}
	w.dirsMu.Unlock()
	return nil
}

func (w *Watcher) isIgnored(rel string) bool {
	return matchAny(w.ignores, rel)
}

// matchesPatterns reports whether rel matches a watch pattern. Without
// patterns everything matches.
func (w *Watcher) matchesPatterns(rel string) bool {
	if len(w.cfg.Patterns) == 0 {
		return true
	}
	return matchAny(w.cfg.Patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range patterns {
		if matched, err := doublestar.Match(pat, normalized); err == nil && matched {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid %s pattern %q", label, pat)
		}
	}
	return nil
}

// isFatal reports inotify resource exhaustion: the watch limit (ENOSPC) or
// the per-process and system file descriptor limits.
func isFatal(err error) bool {
	return errors.Is(err, syscall.ENOSPC) ||
		errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE)
}
