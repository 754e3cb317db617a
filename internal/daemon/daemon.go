// SPDX-License-Identifier: MPL-2.0

// Package daemon wires the long-running walrus process together: the
// single-instance lock, logging, configuration, the playlist, the scheduler,
// the file watchers and the control socket.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/walrus-wm/walrus/internal/clock"
	"github.com/walrus-wm/walrus/internal/config"
	"github.com/walrus-wm/walrus/internal/display"
	"github.com/walrus-wm/walrus/internal/ipc"
	"github.com/walrus-wm/walrus/internal/logging"
	"github.com/walrus-wm/walrus/internal/playlist"
	"github.com/walrus-wm/walrus/internal/scheduler"
	"github.com/walrus-wm/walrus/internal/transition"
	"github.com/walrus-wm/walrus/internal/watch"
)

// ErrAlreadyRunning is wrapped by AlreadyRunningError.
var ErrAlreadyRunning = errors.New("walrus daemon is already running")

type (
	// AlreadyRunningError is returned when another daemon holds the lock.
	AlreadyRunningError struct {
		Lock string
		PID  string
	}

	// Options configures Run. Zero values select the production
	// collaborators.
	Options struct {
		Paths config.Paths
		// ConfigFile overrides Paths.ConfigFile().
		ConfigFile string
		// Verbose forces debug logging.
		Verbose bool
		// Console receives log output; defaults to os.Stderr.
		Console io.Writer
		Getenv  func(string) string
		Lister  display.Lister
		Invoker transition.Invoker
		Clock   clock.Clock
		// OnReady is called once the control socket accepts commands.
		OnReady func()
	}

	daemon struct {
		opts   Options
		logger *logging.Logger
		loader *config.Loader
		sched  *scheduler.Scheduler
		walls  *wallpaperWatch
	}
)

// Error implements the error interface.
func (e *AlreadyRunningError) Error() string {
	if pid := strings.TrimSpace(e.PID); pid != "" {
		return fmt.Sprintf("%s (pid %s holds %s)", ErrAlreadyRunning, pid, e.Lock)
	}
	return fmt.Sprintf("%s (%s is locked)", ErrAlreadyRunning, e.Lock)
}

// Unwrap returns ErrAlreadyRunning.
func (e *AlreadyRunningError) Unwrap() error { return ErrAlreadyRunning }

// Run starts the daemon and blocks until ctx is cancelled or a client sends
// shutdown. Only start-up failures are returned; everything after that is
// logged and survived.
func Run(ctx context.Context, opts Options) error {
	if opts.ConfigFile == "" {
		opts.ConfigFile = opts.Paths.ConfigFile()
	}
	if opts.Lister == nil {
		opts.Lister = display.NewCommandLister()
	}
	if opts.Invoker == nil {
		opts.Invoker = transition.NewExec(nil)
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}

	lock, err := acquireLock(opts.Paths.Lock())
	if err != nil {
		return err
	}
	defer lock.Release()

	logger, err := logging.New(logging.Options{
		Level:   config.LogLevelInfo,
		Verbose: opts.Verbose,
		Console: opts.Console,
		File:    opts.Paths.LogFile(),
	})
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logger.Close() //nolint:errcheck // nothing left to report to

	d := &daemon{
		opts:   opts,
		logger: logger,
		loader: &config.Loader{
			Path:   opts.ConfigFile,
			Lister: opts.Lister,
			Logger: logger.Logger,
			Getenv: opts.Getenv,
		},
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := d.loader.Load(ctx)
	logger.Apply(cfg)
	logger.Info("starting", "config", opts.ConfigFile, "wallpapers", cfg.General.WallpaperPath,
		"interval", cfg.General.IntervalDuration(), "resolution", cfg.General.Resolution)

	d.sched, err = scheduler.New(scheduler.Options{
		Config:   cfg,
		Playlist: d.buildPlaylist(cfg),
		Invoker:  opts.Invoker,
		Clock:    opts.Clock,
		Logger:   logger.Logger,
		OnReload: logger.Apply,
	})
	if err != nil {
		return err
	}

	// Both watchers register before the socket accepts commands, so an
	// edit made once a client sees the daemon is never missed.
	d.walls = &wallpaperWatch{d: d}
	d.walls.restart(ctx, cfg)
	defer d.walls.stop()
	configWatcher := d.newConfigWatcher()

	server := ipc.NewServer(ipc.ServerOptions{
		Socket:     opts.Paths.Socket(),
		Controller: d.sched,
		Reload:     d.reload,
		Shutdown:   cancel,
		Logger:     logger.Logger,
	})
	if err := server.Start(ctx); err != nil {
		if configWatcher != nil {
			_ = configWatcher.Close()
		}
		return err
	}
	defer func() {
		if err := server.Stop(context.Background()); err != nil {
			logger.Warn("control socket shutdown", "error", err)
		}
	}()

	if err := d.sched.Show(ctx); err != nil && !errors.Is(err, playlist.ErrEmpty) {
		logger.Warn("initial wallpaper not set", "error", err)
	}

	var wg sync.WaitGroup
	defer wg.Wait()
	// Cancel before waiting: deferred calls run in reverse order.
	defer cancel()

	if configWatcher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := configWatcher.Run(ctx); err != nil {
				logger.Warn("config watcher stopped", "error", err)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = d.sched.Run(ctx)
	}()

	logger.Info("ready", "socket", server.Socket(), "wallpapers", d.sched.Len())
	if opts.OnReady != nil {
		opts.OnReady()
	}

	select {
	case <-ctx.Done():
	case err := <-server.Err():
		logger.Error("control socket failed", "error", err)
		cancel()
	}
	logger.Info("shutting down")
	return nil
}

// reload re-reads the config file, rebuilds the playlist and restarts the
// wallpaper watcher when its settings changed.
func (d *daemon) reload(ctx context.Context) error {
	cfg := d.loader.Load(ctx)
	d.sched.Reload(cfg, d.buildPlaylist(cfg))
	if d.walls != nil {
		d.walls.restart(ctx, cfg)
	}
	return nil
}

func (d *daemon) buildPlaylist(cfg *config.Config) *playlist.Playlist {
	g := cfg.General
	pl, err := playlist.Build(g.WallpaperPath, g.Shuffle,
		playlist.WithRecursive(g.Recursive),
		playlist.WithPatterns(g.Patterns...),
	)
	if err != nil {
		d.logger.Error("cannot read wallpaper directory", "path", g.WallpaperPath, "error", err)
		return playlist.Empty(g.WallpaperPath)
	}
	if pl.Len() == 0 {
		d.logger.Warn("wallpaper directory holds no wallpapers", "path", g.WallpaperPath)
	}
	return pl
}

// newConfigWatcher returns a watcher that reloads whenever the config file
// is written or replaced, or nil when hot reload is unavailable. The
// directory is watched rather than the file so editors that save by rename
// are seen.
func (d *daemon) newConfigWatcher() *watch.Watcher {
	dir, name := filepath.Split(d.opts.ConfigFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		d.logger.Warn("config hot reload disabled", "error", err)
		return nil
	}
	w, err := watch.New(watch.Config{
		Dir:      dir,
		Patterns: []string{name},
		Logger:   d.logger.Logger,
		OnChange: func(ctx context.Context, _ []string) error {
			d.logger.Info("config file changed")
			return d.reload(ctx)
		},
	})
	if err != nil {
		d.logger.Warn("config hot reload disabled", "error", err)
		return nil
	}
	d.logger.Debug("watching config", "dir", w.Dir(), "file", name)
	return w
}

// wallpaperWatch rebuilds the playlist when the wallpaper directory
// changes. It is restarted when a reload changes what it watches. While
// the directory does not exist it watches the nearest existing parent and
// switches over once the directory appears.
type wallpaperWatch struct {
	d *daemon

	mu     sync.Mutex
	key    string
	closed bool
	cancel context.CancelFunc
	done   chan struct{}

	// retargets tracks switches started from a parent watcher's callback.
	retargets sync.WaitGroup
}

func (ww *wallpaperWatch) restart(ctx context.Context, cfg *config.Config) {
	g := cfg.General
	key := fmt.Sprintf("%s|%t|%s", g.WallpaperPath, g.Recursive, strings.Join(g.Patterns, ","))
	parent, missing := awaitingDir(g.WallpaperPath)
	if parent != "" {
		key = "await|" + key
	}

	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed || (key == ww.key && ww.cancel != nil) {
		return
	}
	ww.stopLocked()
	ww.key = key

	wcfg := watch.Config{
		Dir:       g.WallpaperPath,
		Recursive: g.Recursive,
		Patterns:  slices.Clone(g.Patterns),
		Logger:    ww.d.logger.Logger,
		OnChange: func(_ context.Context, changed []string) error {
			ww.d.logger.Debug("wallpaper directory changed", "paths", changed)
			ww.d.sched.SetPlaylist(ww.d.buildPlaylist(ww.d.sched.Config()))
			return nil
		},
	}
	if parent != "" {
		wcfg.Dir, wcfg.Recursive, wcfg.Patterns = parent, false, []string{missing}
		wcfg.OnChange = func(ctx context.Context, _ []string) error {
			// Switching watchers stops this one, so it cannot happen on
			// this watcher's own callback.
			ww.retargets.Add(1)
			go func() {
				defer ww.retargets.Done()
				ww.retarget(ctx)
			}()
			return nil
		}
	}

	w, err := watch.New(wcfg)
	if err != nil {
		ww.d.logger.Warn("not watching wallpaper directory", "error", err)
		return
	}

	// The watcher outlives the reload request that started it.
	wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	ww.cancel, ww.done = cancel, done
	if parent != "" {
		ww.d.logger.Info("waiting for wallpaper directory", "path", g.WallpaperPath, "watching", w.Dir())
	} else {
		ww.d.logger.Debug("watching wallpapers", "dir", w.Dir(), "recursive", g.Recursive)
	}
	go func() {
		defer close(done)
		if err := w.Run(wctx); err != nil {
			ww.d.logger.Warn("wallpaper watcher stopped", "error", err)
		}
	}()
}

// retarget re-evaluates the watch after a missing directory's parent
// changed, and rebuilds the playlist once the new watch is in place.
func (ww *wallpaperWatch) retarget(ctx context.Context) {
	cfg := ww.d.sched.Config()
	ww.restart(ctx, cfg)
	if parent, _ := awaitingDir(cfg.General.WallpaperPath); parent == "" {
		ww.d.sched.SetPlaylist(ww.d.buildPlaylist(cfg))
	}
}

// awaitingDir returns the nearest existing ancestor of a missing dir and
// the name of its child on the way to dir. parent is empty when dir exists
// or no ancestor does.
func awaitingDir(dir string) (parent, child string) {
	if _, err := os.Stat(dir); !errors.Is(err, fs.ErrNotExist) {
		return "", ""
	}
	for p := filepath.Clean(dir); ; {
		up := filepath.Dir(p)
		if up == p {
			return "", ""
		}
		if info, err := os.Stat(up); err == nil && info.IsDir() {
			return up, filepath.Base(p)
		}
		p = up
	}
}

func (ww *wallpaperWatch) stop() {
	ww.mu.Lock()
	ww.closed = true
	ww.stopLocked()
	ww.mu.Unlock()
	ww.retargets.Wait()
}

func (ww *wallpaperWatch) stopLocked() {
	if ww.cancel == nil {
		return
	}
	ww.cancel()
	<-ww.done
	ww.cancel, ww.done = nil, nil
}
