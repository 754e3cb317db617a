// SPDX-License-Identifier: MPL-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const fileHeader = `# walrus configuration
# Omitted keys take their built-in default. Leave general.resolution and
# transition.fps unset to infer them from the connected monitors.

`

// ErrConfigExists is returned by WriteDefault when a file is already present
// and overwriting was not requested.
var ErrConfigExists = errors.New("config file already exists")

// Encode renders cfg as TOML with field comments.
func Encode(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(false)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteDefault writes the default configuration to path, creating its
// directory. A positive interval replaces the default interval. An existing
// file is kept unless force is set.
func WriteDefault(path string, interval int, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}

	cfg := DefaultConfig()
	if interval > 0 {
		cfg.General.Interval = interval
	}
	body, err := Encode(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(fileHeader), body...), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
