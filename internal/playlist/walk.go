// SPDX-License-Identifier: MPL-2.0

package playlist

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// walker collects eligible files, following symbolic links. visited holds
// the resolved path of every directory entered so link cycles terminate.
type walker struct {
	builder
	root    string
	visited map[string]struct{}
	found   []string
}

func (w *walker) walk(dir string) error {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return w.skip(dir, err)
	}
	if _, seen := w.visited[resolved]; seen {
		return nil
	}
	w.visited[resolved] = struct{}{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return w.skip(dir, err)
	}

	for _, e := range entries {
		path := filepath.Join(dir, e.Name())

		mode := e.Type()
		if mode&fs.ModeSymlink != 0 {
			info, statErr := os.Stat(path)
			if statErr != nil {
				continue // dangling link
			}
			mode = info.Mode().Type()
		}

		switch {
		case mode.IsDir():
			if !w.recursive || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			if err := w.walk(path); err != nil {
				return err
			}
		case mode.IsRegular():
			if w.eligible(path) {
				w.found = append(w.found, path)
			}
		}
	}
	return nil
}

// skip tolerates unreadable subdirectories but not an unreadable root.
func (w *walker) skip(dir string, err error) error {
	if dir == w.root {
		return fmt.Errorf("playlist: read %s: %w", dir, err)
	}
	return nil
}

func (w *walker) eligible(path string) bool {
	if len(w.patterns) == 0 {
		return true
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pat := range w.patterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}
