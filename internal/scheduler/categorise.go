// SPDX-License-Identifier: MPL-2.0

package scheduler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/walrus-wm/walrus/internal/playlist"
)

var (
	// ErrInvalidCategory is returned for an empty category name or one that
	// is not a single path element.
	ErrInvalidCategory = errors.New("invalid category name")
	// ErrCategoryConflict is returned when the link location is taken by
	// something other than a link to the current wallpaper.
	ErrCategoryConflict = errors.New("category entry already exists")
)

// Categorise files the current wallpaper under the hidden directory
// .<name> in the wallpaper root, mirroring its relative path, as a
// symbolic link to the original. Categorising the same wallpaper twice is
// a no-op. It returns the link path.
func (s *Scheduler) Categorise(name string) (string, error) {
	if err := validateCategory(name); err != nil {
		return "", err
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	current, ok := s.pl.Current()
	root := s.pl.Root()
	rel, relErr := s.pl.Rel(current)
	s.mu.Unlock()
	if !ok {
		return "", playlist.ErrEmpty
	}
	if relErr != nil {
		return "", fmt.Errorf("categorise %s: %w", current, relErr)
	}

	link := filepath.Join(root, "."+name, rel)
	if existing, err := os.Readlink(link); err == nil {
		if existing == current {
			return link, nil
		}
		return "", fmt.Errorf("%w: %s", ErrCategoryConflict, link)
	} else if _, statErr := os.Lstat(link); statErr == nil {
		return "", fmt.Errorf("%w: %s", ErrCategoryConflict, link)
	}

	if err := os.MkdirAll(filepath.Dir(link), 0o755); err != nil {
		return "", fmt.Errorf("categorise: %w", err)
	}
	if err := os.Symlink(current, link); err != nil {
		return "", fmt.Errorf("categorise: %w", err)
	}

	s.logger.Info("wallpaper categorised", "category", name, "path", current)
	return link, nil
}

func validateCategory(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidCategory, name)
	case strings.ContainsAny(name, `/\`), strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q must be a plain name", ErrInvalidCategory, name)
	}
	return nil
}
