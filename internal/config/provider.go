// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/walrus-wm/walrus/internal/display"
)

// listTimeout bounds the monitor query so a hung compositor tool cannot
// stall start-up or a reload.
const listTimeout = 5 * time.Second

type (
	// Provider produces a complete configuration snapshot.
	Provider interface {
		Load(ctx context.Context) *Config
	}

	// Loader is the file-backed Provider. Its zero value is not usable; Path
	// must be set. A nil Lister skips monitor detection and uses the fallback
	// resolution and frame rate.
	Loader struct {
		Path   string
		Lister display.Lister
		Logger *log.Logger
		// Getenv resolves "~" and $VAR in paths. nil uses os.Getenv.
		Getenv func(string) string
	}
)

// Load reads the config file and completes it. It never fails: a missing or
// invalid file is logged and replaced by DefaultConfig.
func (l *Loader) Load(ctx context.Context) *Config {
	logger := l.logger()

	cfg, err := LoadFile(l.Path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Missing() {
			logger.Info("no config file, using defaults", "path", l.Path)
		} else {
			logger.Warn("config unusable, using defaults", "err", err)
		}
		cfg = DefaultConfig()
	}

	l.Resolve(ctx, cfg)
	return cfg
}

// Resolve expands paths and fills inferred fields in place.
func (l *Loader) Resolve(ctx context.Context, cfg *Config) {
	logger := l.logger()

	for _, p := range []*string{&cfg.General.WallpaperPath, &cfg.General.SwwwPath} {
		expanded, err := ExpandPath(*p, l.Getenv)
		if err != nil {
			logger.Warn("cannot expand path", "path", *p, "err", err)
			continue
		}
		*p = expanded
	}

	if cfg.General.Resolution != nil && cfg.Transition.FPS != nil {
		return
	}

	best, err := l.detect(ctx)
	if err != nil {
		logger.Warn("cannot list monitors, using fallback",
			"resolution", Resolution{Width: FallbackWidth, Height: FallbackHeight}, "fps", FallbackFPS, "err", err)
		best = display.Monitor{Width: FallbackWidth, Height: FallbackHeight, Refresh: FallbackFPS}
	}

	if cfg.General.Resolution == nil {
		cfg.General.Resolution = &Resolution{Width: best.Width, Height: best.Height}
		logger.Debug("inferred resolution", "monitor", best.Name, "resolution", cfg.General.Resolution)
	}
	if cfg.Transition.FPS == nil {
		fps := best.FPS()
		if fps <= 0 {
			fps = FallbackFPS
		}
		cfg.Transition.FPS = &fps
		logger.Debug("inferred fps", "monitor", best.Name, "fps", fps)
	}
}

func (l *Loader) detect(ctx context.Context) (display.Monitor, error) {
	if l.Lister == nil {
		return display.Monitor{}, display.ErrNoMonitors
	}
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	monitors, err := l.Lister.Monitors(ctx)
	if err != nil {
		return display.Monitor{}, err
	}
	best, ok := display.Best(monitors)
	if !ok || best.Width <= 0 || best.Height <= 0 {
		return display.Monitor{}, display.ErrNoMonitors
	}
	return best, nil
}

func (l *Loader) logger() *log.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return log.Default()
}
