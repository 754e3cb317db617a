// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"
)

func TestParseFilterMethod(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    FilterMethod
		wantErr bool
	}{
		{in: "Lanczos3", want: FilterLanczos3},
		{in: "lanczos3", want: FilterLanczos3},
		{in: "NEAREST", want: FilterNearest},
		{in: "catmullROM", want: FilterCatmullRom},
		{in: "mitchell", want: FilterMitchell},
		{in: "bilinear", want: FilterBilinear},
		{in: "box", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseFilterMethod(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidFilterMethod) {
				t.Errorf("ParseFilterMethod(%q) error = %v, want ErrInvalidFilterMethod", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseFilterMethod(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestParseFlavour(t *testing.T) {
	t.Parallel()

	for _, f := range Flavours() {
		got, err := ParseFlavour(string(f))
		if err != nil || got != f {
			t.Errorf("ParseFlavour(%q) = %q, %v", f, got, err)
		}
	}

	_, err := ParseFlavour("fade")
	var valueErr *InvalidValueError
	if !errors.As(err, &valueErr) || valueErr.Field != "transition.flavour" {
		t.Errorf("ParseFlavour(fade) error = %v, want *InvalidValueError on transition.flavour", err)
	}
	if !errors.Is(err, ErrInvalidFlavour) {
		t.Errorf("ParseFlavour(fade) error should wrap ErrInvalidFlavour")
	}
}

func TestParseResizeMethod(t *testing.T) {
	t.Parallel()

	if r, err := ParseResizeMethod("No"); err != nil || r != ResizeNo {
		t.Errorf("ParseResizeMethod(No) = %q, %v", r, err)
	}
	if _, err := ParseResizeMethod("stretch"); !errors.Is(err, ErrInvalidResizeMethod) {
		t.Errorf("ParseResizeMethod(stretch) error = %v", err)
	}
}

func TestLogLevel_Validate(t *testing.T) {
	t.Parallel()

	for _, l := range []LogLevel{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError} {
		if err := l.Validate(); err != nil {
			t.Errorf("LogLevel(%q).Validate() = %v", l, err)
		}
	}
	if err := LogLevel("verbose").Validate(); !errors.Is(err, ErrInvalidLogLevel) {
		t.Errorf("LogLevel(verbose).Validate() = %v, want ErrInvalidLogLevel", err)
	}
}

func TestNormalize_CollectsAllErrors(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Transition.Filter = "blur"
	cfg.Transition.Flavour = []Flavour{"spin"}
	cfg.Transition.WaveSize = WaveSize{10, 5, 1, 2}

	err := cfg.normalize()
	var invalid *InvalidConfigError
	if !errors.As(err, &invalid) {
		t.Fatalf("normalize() error = %v, want *InvalidConfigError", err)
	}
	if len(invalid.FieldErrors) != 3 {
		t.Errorf("FieldErrors = %v, want 3 entries", invalid.FieldErrors)
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Error("InvalidConfigError should wrap ErrInvalidConfig")
	}
}
