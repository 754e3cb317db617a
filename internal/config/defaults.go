// SPDX-License-Identifier: MPL-2.0

package config

import "github.com/spf13/viper"

const (
	// DefaultInterval is the number of seconds between wallpaper changes.
	DefaultInterval = 300
	// DefaultSwwwPath is where distributions install swww.
	DefaultSwwwPath = "/usr/bin/swww"
	// DefaultWallpaperPath is expanded against $HOME at load time.
	DefaultWallpaperPath = "~/Pictures/Wallpapers"
	// DefaultInvokeTimeout bounds a single swww invocation in seconds.
	DefaultInvokeTimeout = 60

	// FallbackWidth, FallbackHeight and FallbackFPS are used when the
	// monitors cannot be listed.
	FallbackWidth  = 1920
	FallbackHeight = 1080
	FallbackFPS    = 60
)

// defaultPatterns lists the image formats swww can decode.
var defaultPatterns = []string{
	"**/*.{png,PNG,jpg,JPG,jpeg,JPEG,gif,GIF,bmp,BMP,webp,WEBP}",
	"**/*.{tga,TGA,tif,TIF,tiff,TIFF,pnm,PNM,ff,farbfeld}",
}

// DefaultConfig returns the built-in configuration. Resolution and FPS are
// left unset so they get inferred.
func DefaultConfig() *Config {
	return &Config{
		General: General{
			LogLevel:      LogLevelInfo,
			Interval:      DefaultInterval,
			Shuffle:       true,
			SwwwPath:      DefaultSwwwPath,
			WallpaperPath: DefaultWallpaperPath,
			Recursive:     true,
			Patterns:      append([]string(nil), defaultPatterns...),
			InvokeTimeout: DefaultInvokeTimeout,
		},
		Transition: Transition{
			Bezier:          Bezier{0.4, 0.0, 0.6, 1.0},
			Duration:        1.0,
			DynamicDuration: true,
			Fill:            "000000",
			Filter:          FilterLanczos3,
			Flavour:         Flavours(),
			Resize:          ResizeCrop,
			Step:            60,
			WaveSize:        WaveSize{70, 80, 35, 40},
		},
	}
}

// setDefaults registers every defaulted key with v so a partial file is
// completed field by field.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("general.log_level", d.General.LogLevel)
	v.SetDefault("general.interval", d.General.Interval)
	v.SetDefault("general.shuffle", d.General.Shuffle)
	v.SetDefault("general.swww_path", d.General.SwwwPath)
	v.SetDefault("general.wallpaper_path", d.General.WallpaperPath)
	v.SetDefault("general.recursive", d.General.Recursive)
	v.SetDefault("general.patterns", d.General.Patterns)
	v.SetDefault("general.invoke_timeout", d.General.InvokeTimeout)

	v.SetDefault("transition.bezier", d.Transition.Bezier)
	v.SetDefault("transition.duration", d.Transition.Duration)
	v.SetDefault("transition.dynamic_duration", d.Transition.DynamicDuration)
	v.SetDefault("transition.fill", d.Transition.Fill)
	v.SetDefault("transition.filter", d.Transition.Filter)
	v.SetDefault("transition.flavour", d.Transition.Flavour)
	v.SetDefault("transition.resize", d.Transition.Resize)
	v.SetDefault("transition.step", d.Transition.Step)
	v.SetDefault("transition.wave_size", d.Transition.WaveSize)
}
