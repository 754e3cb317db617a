// SPDX-License-Identifier: MPL-2.0

package transition

import (
	"math"
	"strconv"
	"strings"

	"github.com/walrus-wm/walrus/internal/config"
)

type (
	// Rand is the randomness a transition plan draws from.
	// *math/rand/v2.Rand satisfies it.
	Rand interface {
		Float64() float64
		IntN(n int) int
	}

	// Wave is the wave size of a wave transition in pixels.
	Wave struct {
		Width  int
		Height int
	}

	// Pos is the normalized origin of a grow or outer transition.
	Pos struct {
		X float64
		Y float64
	}

	// Plan holds the per-invocation random choices. Only the fields the
	// flavour uses are meaningful.
	Plan struct {
		Flavour  config.Flavour
		Angle    float64
		Duration float64
		Wave     Wave
		Pos      Pos
	}
)

// NewPlan draws a flavour, an angle and the flavour's parameters from rnd.
// With dynamic duration on, wipe and wave durations are stretched by the
// distance the edge travels at that angle.
func NewPlan(cfg *config.Config, rnd Rand) Plan {
	t := cfg.Transition
	flavours := t.Flavour
	if len(flavours) == 0 {
		flavours = config.Flavours()
	}

	p := Plan{
		Flavour:  flavours[rnd.IntN(len(flavours))],
		Angle:    rnd.Float64() * 360,
		Duration: t.Duration,
	}

	switch p.Flavour {
	case config.FlavourWipe, config.FlavourWave:
		if t.DynamicDuration {
			p.Duration = NormalizeDuration(t.Duration, resolution(cfg), p.Angle)
		}
	}

	switch p.Flavour {
	case config.FlavourWave:
		ws := t.WaveSize
		p.Wave = Wave{Width: between(rnd, ws[0], ws[1]), Height: between(rnd, ws[2], ws[3])}
	case config.FlavourGrow, config.FlavourOuter:
		p.Pos = Pos{X: rnd.Float64(), Y: rnd.Float64()}
	}
	return p
}

// NormalizeDuration scales base by the ratio of the screen diagonal to the
// distance an edge at angleDeg has to sweep, so every angle looks equally fast.
func NormalizeDuration(base float64, res config.Resolution, angleDeg float64) float64 {
	w, h := float64(res.Width), float64(res.Height)
	theta := angleDeg * math.Pi / 180
	dist := w*math.Abs(math.Cos(theta)) + h*math.Abs(math.Sin(theta))
	if dist == 0 {
		return base
	}
	return base * math.Hypot(w, h) / dist
}

// Args builds the swww command line for path. The wallpaper path is last.
func Args(path string, cfg *config.Config, p Plan) []string {
	t := cfg.Transition
	fps := config.FallbackFPS
	if t.FPS != nil {
		fps = *t.FPS
	}

	args := []string{
		"img",
		"--transition-type", string(p.Flavour),
		"--transition-duration", formatFloat(p.Duration),
		"--fill-color", t.Fill,
		"--filter", string(t.Filter),
		"--transition-fps", strconv.Itoa(fps),
		"--resize", string(t.Resize),
		"--transition-step", strconv.Itoa(t.Step),
		"--transition-bezier", joinFloats(t.Bezier[:]...),
	}

	switch p.Flavour {
	case config.FlavourWipe:
		args = append(args, "--transition-angle", formatFloat(p.Angle))
	case config.FlavourWave:
		// swww measures wave angles from a different axis than wipes.
		angle := math.Mod(360+p.Angle-90, 360)
		args = append(args,
			"--transition-angle", formatFloat(angle),
			"--transition-wave", strconv.Itoa(p.Wave.Width)+","+strconv.Itoa(p.Wave.Height),
		)
	case config.FlavourGrow, config.FlavourOuter:
		args = append(args, "--transition-pos", joinFloats(p.Pos.X, p.Pos.Y))
	}

	return append(args, path)
}

func resolution(cfg *config.Config) config.Resolution {
	if cfg.General.Resolution != nil {
		return *cfg.General.Resolution
	}
	return config.Resolution{Width: config.FallbackWidth, Height: config.FallbackHeight}
}

func between(rnd Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rnd.IntN(hi-lo+1)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func joinFloats(fs ...float64) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = formatFloat(f)
	}
	return strings.Join(parts, ",")
}
