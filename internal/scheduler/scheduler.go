// SPDX-License-Identifier: MPL-2.0

// Package scheduler owns playback: the play/pause state, the deadline of the
// next automatic advance and the playlist cursor. Every state-changing
// operation is serialized, so a command that arrives while swww is running
// waits for it to finish.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/walrus-wm/walrus/internal/clock"
	"github.com/walrus-wm/walrus/internal/config"
	"github.com/walrus-wm/walrus/internal/playlist"
	"github.com/walrus-wm/walrus/internal/transition"
)

var (
	// ErrNoConfig is returned by New without a configuration.
	ErrNoConfig = errors.New("scheduler: configuration is required")
	// ErrNoPlaylist is returned by New without a playlist.
	ErrNoPlaylist = errors.New("scheduler: playlist is required")
	// ErrNoInvoker is returned by New without an invoker.
	ErrNoInvoker = errors.New("scheduler: invoker is required")
)

type (
	// Options configures a Scheduler.
	Options struct {
		Config   *config.Config
		Playlist *playlist.Playlist
		Invoker  transition.Invoker
		// Clock defaults to the system clock.
		Clock clock.Clock
		// Logger defaults to log.Default().
		Logger *log.Logger
		// Paused starts the scheduler without an armed deadline.
		Paused bool
		// OnReload is called after a new configuration has been swapped in.
		OnReload func(*config.Config)
	}

	// Scheduler drives wallpaper changes. The zero value is not usable;
	// construct one with New.
	Scheduler struct {
		// opMu serializes operations that may invoke swww or move the cursor.
		opMu sync.Mutex

		// mu guards the fields below so Status stays readable during an
		// invocation.
		mu       sync.Mutex
		state    State
		deadline deadline
		pl       *playlist.Playlist
		lastErr  string

		cfg      atomic.Pointer[config.Config]
		invoker  transition.Invoker
		clock    clock.Clock
		logger   *log.Logger
		onReload func(*config.Config)

		// wake interrupts Run's wait after the deadline moved.
		wake chan struct{}
	}
)

// New creates a Scheduler. It starts Playing with the first deadline one
// interval from now unless opts.Paused is set.
func New(opts Options) (*Scheduler, error) {
	switch {
	case opts.Config == nil:
		return nil, ErrNoConfig
	case opts.Playlist == nil:
		return nil, ErrNoPlaylist
	case opts.Invoker == nil:
		return nil, ErrNoInvoker
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	s := &Scheduler{
		pl:       opts.Playlist,
		invoker:  opts.Invoker,
		clock:    opts.Clock,
		logger:   opts.Logger,
		onReload: opts.OnReload,
		wake:     make(chan struct{}, 1),
	}
	s.cfg.Store(opts.Config)
	if opts.Paused {
		s.state = Paused
	} else {
		s.state = Playing
		s.deadline.set(s.clock.Now().Add(opts.Config.General.IntervalDuration()))
	}
	return s, nil
}

// Config returns the configuration snapshot in effect.
func (s *Scheduler) Config() *config.Config {
	return s.cfg.Load()
}

// Pause stops automatic advances. Pausing while paused does nothing.
func (s *Scheduler) Pause() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.pause()
}

// Resume restarts automatic advances one full interval from now. Resuming
// while playing does nothing.
func (s *Scheduler) Resume() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.resume()
}

// Toggle flips between Playing and Paused and returns the new state.
func (s *Scheduler) Toggle() State {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.State() == Playing {
		s.pause()
		return Paused
	}
	s.resume()
	return Playing
}

// Advance shows the neighbouring wallpaper in direction d, in either state.
// The cursor moves only when swww succeeds. While playing, the next
// automatic advance is one interval after the invocation finished,
// whether or not it succeeded.
func (s *Scheduler) Advance(ctx context.Context, d playlist.Direction) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.advance(ctx, d)
}

// Tick is the automatic advance: forward when playing, nothing when paused.
func (s *Scheduler) Tick(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.State() != Playing {
		return nil
	}
	return s.advance(ctx, playlist.Forward)
}

// Show sets the wallpaper under the cursor without moving it. The daemon
// calls it once at startup.
func (s *Scheduler) Show(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.prune()
	path, ok := s.pl.Current()
	s.mu.Unlock()
	if !ok {
		s.emptyPlaylist()
		return playlist.ErrEmpty
	}
	return s.invoke(ctx, path, nil)
}

// Reload swaps in a new configuration and, when pl is non-nil, a new
// playlist. The current wallpaper keeps its place when the new playlist
// still holds it. While playing, the next advance is rescheduled one new
// interval from now.
func (s *Scheduler) Reload(cfg *config.Config, pl *playlist.Playlist) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.cfg.Store(cfg)

	s.mu.Lock()
	if pl != nil {
		s.replacePlaylist(pl)
	}
	if s.state == Playing {
		s.deadline.set(s.clock.Now().Add(cfg.General.IntervalDuration()))
	}
	s.mu.Unlock()

	if s.onReload != nil {
		s.onReload(cfg)
	}
	s.logger.Info("configuration reloaded", "interval", cfg.General.IntervalDuration(), "wallpapers", s.Len())
	s.wakeup()
}

// SetPlaylist replaces the playlist after the wallpaper directory changed.
// The deadline is left alone.
func (s *Scheduler) SetPlaylist(pl *playlist.Playlist) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.replacePlaylist(pl)
	s.mu.Unlock()

	s.logger.Debug("playlist rebuilt", "wallpapers", pl.Len())
}

// Reshuffle draws a new order for a shuffled playlist and restarts it
// from the beginning. The wallpaper on screen does not change.
func (s *Scheduler) Reshuffle() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	shuffled := s.pl.Shuffled()
	s.pl.Reshuffle()
	s.mu.Unlock()

	if !shuffled {
		s.logger.Info("reshuffle ignored: shuffle is off")
		return
	}
	s.logger.Info("playlist reshuffled")
}

// State returns the playback state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Len returns the number of wallpapers in the playlist.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pl.Len()
}

// Status returns a snapshot of the scheduler. It does not wait for an
// in-flight invocation.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, _ := s.pl.Current()
	return Status{
		State:     s.state,
		Current:   current,
		Index:     s.pl.Index(),
		Length:    s.pl.Len(),
		Shuffle:   s.pl.Shuffled(),
		Root:      s.pl.Root(),
		Interval:  s.cfg.Load().General.IntervalDuration(),
		Next:      s.deadline.at,
		LastError: s.lastErr,
	}
}

func (s *Scheduler) pause() {
	s.mu.Lock()
	changed := s.state == Playing
	s.state = Paused
	s.deadline.clear()
	s.mu.Unlock()

	if changed {
		s.logger.Info("playback paused")
		s.wakeup()
	}
}

func (s *Scheduler) resume() {
	s.mu.Lock()
	changed := s.state == Paused
	if changed {
		s.state = Playing
		s.deadline.set(s.clock.Now().Add(s.cfg.Load().General.IntervalDuration()))
	}
	s.mu.Unlock()

	if changed {
		s.logger.Info("playback resumed")
		s.wakeup()
	}
}

// advance must be called with opMu held.
func (s *Scheduler) advance(ctx context.Context, d playlist.Direction) error {
	s.mu.Lock()
	s.prune()
	path, ok := s.pl.Peek(d)
	s.mu.Unlock()

	if !ok {
		s.emptyPlaylist()
		return playlist.ErrEmpty
	}
	return s.invoke(ctx, path, func() { s.pl.Step(d) })
}

// invoke runs swww for path. commit runs under mu when swww succeeded.
func (s *Scheduler) invoke(ctx context.Context, path string, commit func()) error {
	cfg := s.cfg.Load()
	res, err := s.invoker.Invoke(ctx, path, cfg)
	done := s.clock.Now()

	s.mu.Lock()
	if err == nil && commit != nil {
		commit()
	}
	if err != nil {
		s.lastErr = err.Error()
	} else {
		s.lastErr = ""
	}
	if s.state == Playing {
		s.deadline.set(done.Add(cfg.General.IntervalDuration()))
	}
	s.mu.Unlock()
	s.wakeup()

	if err != nil {
		s.logger.Error("failed to set wallpaper", "path", path, "error", err)
		return fmt.Errorf("advance: %w", err)
	}
	fields := []any{"path", path}
	if res != nil {
		fields = append(fields, "flavour", res.Plan.Flavour, "elapsed", res.Elapsed)
	}
	s.logger.Info("wallpaper set", fields...)
	return nil
}

// emptyPlaylist keeps the loop from spinning on a past deadline when there
// is nothing to show.
func (s *Scheduler) emptyPlaylist() {
	s.mu.Lock()
	if s.state == Playing {
		s.deadline.set(s.clock.Now().Add(s.cfg.Load().General.IntervalDuration()))
	}
	s.mu.Unlock()
	s.logger.Warn("no wallpaper to show", "path", s.cfg.Load().General.WallpaperPath)
}

// prune must be called with mu held.
func (s *Scheduler) prune() {
	if n := s.pl.Prune(); n > 0 {
		s.logger.Info("dropped missing wallpapers", "count", n)
	}
}

// replacePlaylist must be called with mu held.
func (s *Scheduler) replacePlaylist(pl *playlist.Playlist) {
	if current, ok := s.pl.Current(); ok {
		pl.Seek(current)
	}
	s.pl = pl
}

func (s *Scheduler) wakeup() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
