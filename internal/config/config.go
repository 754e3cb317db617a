// SPDX-License-Identifier: MPL-2.0

package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"mvdan.cc/sh/v3/shell"
)

const (
	// AppName is the application name used for per-user directories.
	AppName = "walrus"
	// ConfigFileName is the name of the config file inside ConfigDir.
	ConfigFileName = "config.toml"

	socketName  = "walrus.sock"
	lockName    = "walrus.lock"
	logDirName  = "logs"
	logFileName = "walrus.log"

	// maxConfigSize rejects files that cannot plausibly be a config.
	maxConfigSize = 1 << 20
)

// ErrNoHomeDir is returned when $HOME is unset, which leaves no place for the
// configuration, the state directory or "~" paths.
var ErrNoHomeDir = errors.New("cannot resolve home directory: $HOME is not set")

//go:embed config_schema.cue
var configSchema string

type (
	// Paths are the per-user locations walrus reads and writes.
	Paths struct {
		ConfigDir  string
		StateDir   string
		RuntimeDir string
	}

	// LoadError describes why a config file could not be used.
	LoadError struct {
		Path string
		Err  error
	}
)

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("load config %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error { return e.Err }

// Missing reports whether the file simply does not exist.
func (e *LoadError) Missing() bool {
	return errors.Is(e.Err, fs.ErrNotExist)
}

// ResolvePaths computes the per-user directories from the environment,
// honouring the XDG base directory variables. A nil getenv uses os.Getenv.
func ResolvePaths(getenv func(string) string) (Paths, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	home := getenv("HOME")
	if home == "" {
		return Paths{}, ErrNoHomeDir
	}

	configHome := getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(home, ".config")
	}
	stateHome := getenv("XDG_STATE_HOME")
	if stateHome == "" {
		stateHome = filepath.Join(home, ".local", "state")
	}
	runtimeDir := getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = filepath.Join(os.TempDir(), AppName+"-"+strconv.Itoa(os.Getuid()))
	} else {
		runtimeDir = filepath.Join(runtimeDir, AppName)
	}

	return Paths{
		ConfigDir:  filepath.Join(configHome, AppName),
		StateDir:   filepath.Join(stateHome, AppName),
		RuntimeDir: runtimeDir,
	}, nil
}

// ConfigFile returns the default config file path.
func (p Paths) ConfigFile() string { return filepath.Join(p.ConfigDir, ConfigFileName) }

// LogDir returns the directory of the daemon's log files.
func (p Paths) LogDir() string { return filepath.Join(p.StateDir, logDirName) }

// LogFile returns the daemon's current log file.
func (p Paths) LogFile() string { return filepath.Join(p.LogDir(), logFileName) }

// Socket returns the control socket path.
func (p Paths) Socket() string { return filepath.Join(p.RuntimeDir, socketName) }

// Lock returns the single-instance lock file path.
func (p Paths) Lock() string { return filepath.Join(p.RuntimeDir, lockName) }

// LoadFile reads and parses path strictly. Missing files, unreadable files
// and invalid contents are all reported as *LoadError.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if len(data) > maxConfigSize {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("file is %d bytes, limit is %d", len(data), maxConfigSize)}
	}
	cfg, err := Parse(data, path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return cfg, nil
}

// Parse decodes TOML data, validates it against the #Config schema, and
// merges it over the defaults. filename is only used in error messages.
func Parse(data []byte, filename string) (*Config, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("%s:%d:%d: %w: %w", filename, row, col, ErrInvalidConfig, err)
		}
		return nil, fmt.Errorf("%w: decode TOML: %w", ErrInvalidConfig, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	if err := validateSchema(raw, filename); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	if err := v.MergeConfigMap(raw); err != nil {
		return nil, fmt.Errorf("%w: merge: %w", ErrInvalidConfig, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validateSchema unifies the decoded document with #Config. All user values
// are concrete, so validation requires concreteness to catch half-filled
// tables such as a resolution without a height.
func validateSchema(raw map[string]any, filename string) error {
	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.Encode(raw)
	if userValue.Err() != nil {
		return fmt.Errorf("%s: %w: %w", filename, ErrInvalidConfig, userValue.Err())
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s: %w: schema violation:\n%s", filename, ErrInvalidConfig, strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}

// ExpandPath expands a leading "~" and any $VAR references in p. A nil
// getenv uses os.Getenv.
func ExpandPath(p string, getenv func(string) string) (string, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home := getenv("HOME")
		if home == "" {
			return p, ErrNoHomeDir
		}
		p = home + p[1:]
	}
	expanded, err := shell.Expand(p, getenv)
	if err != nil {
		return p, fmt.Errorf("expand %q: %w", p, err)
	}
	return filepath.Clean(expanded), nil
}
