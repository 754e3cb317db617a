// SPDX-License-Identifier: MPL-2.0

// Package playlist maintains the circular sequence of wallpapers the
// scheduler walks through.
package playlist

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// Forward moves to the next wallpaper.
	Forward Direction = 1
	// Backward moves to the previous wallpaper.
	Backward Direction = -1
)

// ErrEmpty is reported when an operation needs a wallpaper but the
// directory held none.
var ErrEmpty = errors.New("no wallpaper: playlist is empty")

type (
	// Direction is the step taken through the playlist.
	Direction int

	// Option configures Build.
	Option func(*builder)

	// Playlist is an ordered list of absolute wallpaper paths with a cursor.
	// The cursor is always in range when the playlist is non-empty. A
	// Playlist is not safe for concurrent use; the scheduler owns it.
	Playlist struct {
		root    string
		entries []string
		cursor  int
		shuffle bool
		rnd     *rand.Rand
	}

	builder struct {
		recursive bool
		patterns  []string
		rnd       *rand.Rand
	}
)

// String returns "next" or "previous".
func (d Direction) String() string {
	if d == Backward {
		return "previous"
	}
	return "next"
}

// WithRecursive controls whether subdirectories are walked. Defaults to true.
func WithRecursive(recursive bool) Option {
	return func(b *builder) { b.recursive = recursive }
}

// WithPatterns restricts the playlist to files whose path relative to the
// directory matches one of the doublestar patterns. No patterns admits
// every regular file.
func WithPatterns(patterns ...string) Option {
	return func(b *builder) { b.patterns = patterns }
}

// WithRand sets the source used for shuffling. Defaults to a source seeded
// from the build time.
func WithRand(r *rand.Rand) Option {
	return func(b *builder) { b.rnd = r }
}

// Build enumerates the wallpapers under dir. Hidden directories are skipped
// and symbolic links are followed. Entries are sorted by path, then shuffled
// when shuffle is set. A directory with no eligible files yields an empty,
// usable playlist; only an unreadable dir or a bad pattern is an error.
func Build(dir string, shuffle bool, opts ...Option) (*Playlist, error) {
	b := builder{recursive: true}
	for _, opt := range opts {
		opt(&b)
	}
	for _, pat := range b.patterns {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("playlist: invalid pattern %q", pat)
		}
	}
	if b.rnd == nil {
		seed := uint64(time.Now().UnixNano())
		b.rnd = rand.New(rand.NewPCG(seed, seed>>1|1))
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("playlist: resolve %s: %w", dir, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("playlist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("playlist: %s is not a directory", root)
	}

	w := walker{root: root, builder: b, visited: make(map[string]struct{})}
	if err := w.walk(root); err != nil {
		return nil, err
	}

	p := &Playlist{root: root, entries: w.found, shuffle: shuffle, rnd: b.rnd}
	slices.Sort(p.entries)
	p.entries = slices.Compact(p.entries)
	if shuffle {
		p.permute()
	}
	return p, nil
}

// Empty returns a playlist with no wallpapers rooted at dir. The daemon
// uses it when the wallpaper directory cannot be read, so it keeps running
// until a reload points it somewhere valid.
func Empty(dir string) *Playlist {
	root, err := filepath.Abs(dir)
	if err != nil {
		root = filepath.Clean(dir)
	}
	return &Playlist{root: root}
}

// Root returns the absolute directory the playlist was built from.
func (p *Playlist) Root() string { return p.root }

// Len returns the number of wallpapers.
func (p *Playlist) Len() int { return len(p.entries) }

// Index returns the cursor position, or -1 when the playlist is empty.
func (p *Playlist) Index() int {
	if len(p.entries) == 0 {
		return -1
	}
	return p.cursor
}

// Shuffled reports whether the order is a random permutation.
func (p *Playlist) Shuffled() bool { return p.shuffle }

// Entries returns a copy of the playlist in traversal order.
func (p *Playlist) Entries() []string { return slices.Clone(p.entries) }

// Current returns the wallpaper under the cursor. ok is false when the
// playlist is empty.
func (p *Playlist) Current() (path string, ok bool) {
	if len(p.entries) == 0 {
		return "", false
	}
	return p.entries[p.cursor], true
}

// Next moves the cursor forward, wrapping at the end, and returns the new
// current wallpaper. It is a no-op on an empty playlist.
func (p *Playlist) Next() (string, bool) {
	return p.Step(Forward)
}

// Previous moves the cursor backward, wrapping at the start, and returns
// the new current wallpaper. It is a no-op on an empty playlist.
func (p *Playlist) Previous() (string, bool) {
	return p.Step(Backward)
}

// Peek returns the wallpaper one step in direction d without moving.
func (p *Playlist) Peek(d Direction) (string, bool) {
	if len(p.entries) == 0 {
		return "", false
	}
	return p.entries[p.offset(d)], true
}

// Step moves the cursor one step in direction d.
func (p *Playlist) Step(d Direction) (string, bool) {
	if len(p.entries) == 0 {
		return "", false
	}
	p.cursor = p.offset(d)
	return p.entries[p.cursor], true
}

// Seek places the cursor on path and reports whether it was found.
func (p *Playlist) Seek(path string) bool {
	i := slices.Index(p.entries, path)
	if i < 0 {
		return false
	}
	p.cursor = i
	return true
}

// Reshuffle draws a new permutation and resets the cursor to the start.
// It does nothing for an unshuffled playlist.
func (p *Playlist) Reshuffle() {
	if !p.shuffle {
		return
	}
	p.permute()
}

// Prune drops entries whose file no longer exists and keeps the cursor on
// the same wallpaper when possible. When the current wallpaper itself is
// gone the cursor moves to the entry before it, so the next step forward
// lands on its surviving successor. It returns the number of entries
// removed.
func (p *Playlist) Prune() int {
	kept := p.entries[:0]
	cursor, successor := -1, 0
	for i, path := range p.entries {
		if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
			continue
		}
		if i == p.cursor {
			cursor = len(kept)
		}
		if i < p.cursor {
			successor = len(kept) + 1
		}
		kept = append(kept, path)
	}
	removed := len(p.entries) - len(kept)
	clear(p.entries[len(kept):])
	p.entries = kept
	if removed == 0 {
		return 0
	}

	switch {
	case len(p.entries) == 0:
		p.cursor = 0
	case cursor >= 0:
		p.cursor = cursor
	default:
		p.cursor = (successor - 1 + len(p.entries)) % len(p.entries)
	}
	return removed
}

// Rel returns path relative to the playlist root.
func (p *Playlist) Rel(path string) (string, error) {
	rel, err := filepath.Rel(p.root, path)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", path, p.root)
	}
	return rel, nil
}

func (p *Playlist) offset(d Direction) int {
	n := len(p.entries)
	return ((p.cursor+int(d))%n + n) % n
}

func (p *Playlist) permute() {
	p.rnd.Shuffle(len(p.entries), func(i, j int) {
		p.entries[i], p.entries[j] = p.entries[j], p.entries[i]
	})
	p.cursor = 0
}
