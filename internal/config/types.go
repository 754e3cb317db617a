// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// LogLevelDebug logs every scheduling decision and invocation.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs wallpaper changes and lifecycle events.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs recoverable failures only.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs failures that stop a feature from working.
	LogLevelError LogLevel = "error"

	// FilterNearest is nearest-neighbour scaling.
	FilterNearest FilterMethod = "Nearest"
	// FilterBilinear is bilinear scaling.
	FilterBilinear FilterMethod = "Bilinear"
	// FilterCatmullRom is Catmull-Rom cubic scaling.
	FilterCatmullRom FilterMethod = "CatmullRom"
	// FilterMitchell is Mitchell-Netravali cubic scaling.
	FilterMitchell FilterMethod = "Mitchell"
	// FilterLanczos3 is Lanczos scaling with a window of 3.
	FilterLanczos3 FilterMethod = "Lanczos3"

	// ResizeNo keeps the image at its native size and pads with the fill colour.
	ResizeNo ResizeMethod = "no"
	// ResizeCrop scales the image to cover the output and crops the overflow.
	ResizeCrop ResizeMethod = "crop"
	// ResizeFit scales the image to fit inside the output.
	ResizeFit ResizeMethod = "fit"

	// FlavourWipe sweeps the new wallpaper in along an angle.
	FlavourWipe Flavour = "wipe"
	// FlavourWave sweeps the new wallpaper in along a wavy edge.
	FlavourWave Flavour = "wave"
	// FlavourGrow grows a circle from a point.
	FlavourGrow Flavour = "grow"
	// FlavourOuter shrinks a circle towards a point.
	FlavourOuter Flavour = "outer"
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidFilterMethod is returned when a FilterMethod value is not recognized.
	ErrInvalidFilterMethod = errors.New("invalid filter method")
	// ErrInvalidResizeMethod is returned when a ResizeMethod value is not recognized.
	ErrInvalidResizeMethod = errors.New("invalid resize method")
	// ErrInvalidFlavour is returned when a Flavour value is not recognized.
	ErrInvalidFlavour = errors.New("invalid transition flavour")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")

	allFilters = []FilterMethod{FilterNearest, FilterBilinear, FilterCatmullRom, FilterMitchell, FilterLanczos3}
	allFlavours = []Flavour{FlavourWipe, FlavourWave, FlavourGrow, FlavourOuter}
)

type (
	// LogLevel is the minimum severity the daemon writes.
	LogLevel string

	// FilterMethod is the scaling filter swww applies when resizing.
	FilterMethod string

	// ResizeMethod controls how swww fits the image to the output.
	ResizeMethod string

	// Flavour is a named transition style understood by swww.
	Flavour string

	// InvalidValueError is returned when an enumerated field holds an
	// unrecognized value. It wraps the field's sentinel for errors.Is().
	InvalidValueError struct {
		Field    string
		Value    string
		sentinel error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from both sections.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Resolution is an output size in pixels.
	Resolution struct {
		Width  int `toml:"width" mapstructure:"width"`
		Height int `toml:"height" mapstructure:"height"`
	}

	// Bezier holds the two control points of the easing curve as x1, y1, x2, y2.
	Bezier [4]float64

	// WaveSize bounds the random wave dimensions as
	// width min, width max, height min, height max.
	WaveSize [4]int

	// General holds the [general] section.
	General struct {
		LogLevel      LogLevel    `toml:"log_level" mapstructure:"log_level" comment:"debug, info, warn or error"`
		Interval      int         `toml:"interval" mapstructure:"interval" comment:"Seconds between wallpaper changes"`
		Shuffle       bool        `toml:"shuffle" mapstructure:"shuffle"`
		SwwwPath      string      `toml:"swww_path" mapstructure:"swww_path"`
		WallpaperPath string      `toml:"wallpaper_path" mapstructure:"wallpaper_path"`
		Recursive     bool        `toml:"recursive" mapstructure:"recursive" comment:"Descend into subdirectories (hidden ones are skipped)"`
		Patterns      []string    `toml:"patterns" mapstructure:"patterns" comment:"Globs of eligible files, relative to wallpaper_path"`
		InvokeTimeout int         `toml:"invoke_timeout" mapstructure:"invoke_timeout" comment:"Seconds to wait for swww, 0 waits forever"`
		Resolution    *Resolution `toml:"resolution,inline,omitempty" mapstructure:"resolution" comment:"Unset infers the resolution of the active monitor"`
	}

	// Transition holds the [transition] section.
	Transition struct {
		Bezier          Bezier       `toml:"bezier" mapstructure:"bezier"`
		Duration        float64      `toml:"duration" mapstructure:"duration" comment:"Seconds, scaled by travel distance when dynamic_duration is on"`
		DynamicDuration bool         `toml:"dynamic_duration" mapstructure:"dynamic_duration"`
		Fill            string       `toml:"fill" mapstructure:"fill" comment:"Padding colour as RRGGBB"`
		Filter          FilterMethod `toml:"filter" mapstructure:"filter" comment:"Nearest, Bilinear, CatmullRom, Mitchell or Lanczos3"`
		Flavour         []Flavour    `toml:"flavour" mapstructure:"flavour" comment:"One is picked at random per change"`
		FPS             *int         `toml:"fps,omitempty" mapstructure:"fps" comment:"Unset infers the highest monitor refresh rate"`
		Resize          ResizeMethod `toml:"resize" mapstructure:"resize" comment:"no, crop or fit"`
		Step            int          `toml:"step" mapstructure:"step"`
		WaveSize        WaveSize     `toml:"wave_size" mapstructure:"wave_size" comment:"[width_min, width_max, height_min, height_max]"`
	}

	// Config holds the application configuration.
	Config struct {
		General    General    `toml:"general" mapstructure:"general"`
		Transition Transition `toml:"transition" mapstructure:"transition"`
	}
)

// IntervalDuration returns the advance interval as a time.Duration.
func (g General) IntervalDuration() time.Duration {
	return time.Duration(g.Interval) * time.Second
}

// InvokeTimeoutDuration returns the invocation bound, zero meaning unbounded.
func (g General) InvokeTimeoutDuration() time.Duration {
	return time.Duration(g.InvokeTimeout) * time.Second
}

// String returns the resolution as WIDTHxHEIGHT.
func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Error implements the error interface for InvalidValueError.
func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("%s: invalid value %q", e.Field, e.Value)
}

// Unwrap returns the field's sentinel error for errors.Is() compatibility.
func (e *InvalidValueError) Unwrap() error { return e.sentinel }

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Validate returns nil if the LogLevel is recognized.
func (l LogLevel) Validate() error {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return nil
	default:
		return &InvalidValueError{Field: "general.log_level", Value: string(l), sentinel: ErrInvalidLogLevel}
	}
}

// ParseFilterMethod matches s case-insensitively against the known filters
// and returns the canonical spelling.
func ParseFilterMethod(s string) (FilterMethod, error) {
	for _, f := range allFilters {
		if strings.EqualFold(string(f), s) {
			return f, nil
		}
	}
	return "", &InvalidValueError{Field: "transition.filter", Value: s, sentinel: ErrInvalidFilterMethod}
}

// ParseResizeMethod matches s case-insensitively against the resize modes.
func ParseResizeMethod(s string) (ResizeMethod, error) {
	switch r := ResizeMethod(strings.ToLower(s)); r {
	case ResizeNo, ResizeCrop, ResizeFit:
		return r, nil
	default:
		return "", &InvalidValueError{Field: "transition.resize", Value: s, sentinel: ErrInvalidResizeMethod}
	}
}

// ParseFlavour matches s case-insensitively against the transition flavours.
func ParseFlavour(s string) (Flavour, error) {
	for _, f := range allFlavours {
		if strings.EqualFold(string(f), s) {
			return f, nil
		}
	}
	return "", &InvalidValueError{Field: "transition.flavour", Value: s, sentinel: ErrInvalidFlavour}
}

// Flavours returns every known transition flavour.
func Flavours() []Flavour {
	out := make([]Flavour, len(allFlavours))
	copy(out, allFlavours)
	return out
}

// normalize canonicalizes the case-insensitive enumerations and checks
// the cross-field constraints the schema cannot express.
func (c *Config) normalize() error {
	var errs []error

	c.General.LogLevel = LogLevel(strings.ToLower(string(c.General.LogLevel)))
	if err := c.General.LogLevel.Validate(); err != nil {
		errs = append(errs, err)
	}

	if f, err := ParseFilterMethod(string(c.Transition.Filter)); err != nil {
		errs = append(errs, err)
	} else {
		c.Transition.Filter = f
	}

	if r, err := ParseResizeMethod(string(c.Transition.Resize)); err != nil {
		errs = append(errs, err)
	} else {
		c.Transition.Resize = r
	}

	if len(c.Transition.Flavour) == 0 {
		errs = append(errs, &InvalidValueError{Field: "transition.flavour", Value: "[]", sentinel: ErrInvalidFlavour})
	}
	for i, raw := range c.Transition.Flavour {
		f, err := ParseFlavour(string(raw))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.Transition.Flavour[i] = f
	}

	ws := c.Transition.WaveSize
	if ws[0] > ws[1] || ws[2] > ws[3] {
		errs = append(errs, fmt.Errorf("transition.wave_size: minimum exceeds maximum in %v", ws))
	}

	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}
