// SPDX-License-Identifier: MPL-2.0

package transition

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/walrus-wm/walrus/internal/config"
)

// fixedRand replays queued values; IntN returns its queued value modulo n.
type fixedRand struct {
	floats []float64
	ints   []int
}

func (r *fixedRand) Float64() float64 {
	f := r.floats[0]
	r.floats = r.floats[1:]
	return f
}

func (r *fixedRand) IntN(n int) int {
	i := r.ints[0]
	r.ints = r.ints[1:]
	return i % n
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	fps := 60
	cfg.Transition.FPS = &fps
	cfg.General.Resolution = &config.Resolution{Width: 1920, Height: 1080}
	return cfg
}

func TestArgs_Wipe(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Transition.Bezier = config.Bezier{0, 0.4, 0, 0.6}
	plan := Plan{Flavour: config.FlavourWipe, Angle: 69, Duration: 1}

	got := Args("/walls/a.png", cfg, plan)
	want := []string{
		"img",
		"--transition-type", "wipe",
		"--transition-duration", "1",
		"--fill-color", "000000",
		"--filter", "Lanczos3",
		"--transition-fps", "60",
		"--resize", "crop",
		"--transition-step", "60",
		"--transition-bezier", "0,0.4,0,0.6",
		"--transition-angle", "69",
		"/walls/a.png",
	}
	if !slices.Equal(got, want) {
		t.Errorf("Args() =\n%q\nwant\n%q", got, want)
	}
}

func TestArgs_FlavourSpecificTail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		plan Plan
		tail []string
	}{
		{
			name: "wave rotates angle and sets size",
			plan: Plan{Flavour: config.FlavourWave, Angle: 45, Duration: 2.5, Wave: Wave{Width: 75, Height: 38}},
			tail: []string{"--transition-angle", "315", "--transition-wave", "75,38", "/w.png"},
		},
		{
			name: "wave wraps small angles",
			plan: Plan{Flavour: config.FlavourWave, Angle: 120, Duration: 1, Wave: Wave{Width: 70, Height: 35}},
			tail: []string{"--transition-angle", "30", "--transition-wave", "70,35", "/w.png"},
		},
		{
			name: "grow sets position",
			plan: Plan{Flavour: config.FlavourGrow, Duration: 1, Pos: Pos{X: 0.25, Y: 1}},
			tail: []string{"--transition-pos", "0.25,1", "/w.png"},
		},
		{
			name: "outer sets position",
			plan: Plan{Flavour: config.FlavourOuter, Duration: 1, Pos: Pos{X: 0, Y: 0.5}},
			tail: []string{"--transition-pos", "0,0.5", "/w.png"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Args("/w.png", testConfig(), tt.plan)
			if !slices.Equal(got[len(got)-len(tt.tail):], tt.tail) {
				t.Errorf("Args() tail = %q, want %q", got[len(got)-len(tt.tail):], tt.tail)
			}
			if got[2] != string(tt.plan.Flavour) {
				t.Errorf("transition type = %q, want %q", got[2], tt.plan.Flavour)
			}
		})
	}
}

func TestNormalizeDuration(t *testing.T) {
	t.Parallel()

	res := config.Resolution{Width: 1920, Height: 1080}
	diag := math.Hypot(1920, 1080)

	tests := []struct {
		angle float64
		want  float64
	}{
		{angle: 0, want: diag / 1920},
		{angle: 90, want: diag / 1080},
		{angle: 180, want: diag / 1920},
		{angle: 45, want: diag / ((1920 + 1080) * math.Sqrt2 / 2)},
	}
	for _, tt := range tests {
		got := NormalizeDuration(1, res, tt.angle)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("NormalizeDuration(1, 1920x1080, %v) = %v, want %v", tt.angle, got, tt.want)
		}
	}

	if got := NormalizeDuration(2, res, 0); math.Abs(got-2*diag/1920) > 1e-9 {
		t.Errorf("NormalizeDuration scales linearly with base, got %v", got)
	}
}

func TestNewPlan(t *testing.T) {
	t.Parallel()

	cfg := testConfig()

	// Flavour index 1 (wave), angle 0.5*360, wave width 70+3, height 35+5.
	p := NewPlan(cfg, &fixedRand{floats: []float64{0.5}, ints: []int{1, 3, 5}})
	if p.Flavour != config.FlavourWave {
		t.Fatalf("Flavour = %q, want wave", p.Flavour)
	}
	if p.Angle != 180 {
		t.Errorf("Angle = %v, want 180", p.Angle)
	}
	if p.Wave != (Wave{Width: 73, Height: 40}) {
		t.Errorf("Wave = %+v, want 73x40", p.Wave)
	}
	if want := NormalizeDuration(1, *cfg.General.Resolution, 180); p.Duration != want {
		t.Errorf("Duration = %v, want dynamic %v", p.Duration, want)
	}

	cfg.Transition.DynamicDuration = false
	p = NewPlan(cfg, &fixedRand{floats: []float64{0.1, 0.2, 0.3}, ints: []int{2}})
	if p.Flavour != config.FlavourGrow {
		t.Fatalf("Flavour = %q, want grow", p.Flavour)
	}
	if p.Pos != (Pos{X: 0.2, Y: 0.3}) {
		t.Errorf("Pos = %+v", p.Pos)
	}
	if p.Duration != 1 {
		t.Errorf("Duration = %v, want static 1", p.Duration)
	}
}

func TestNewPlan_DynamicDurationOnlyForSweeps(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Transition.Flavour = []config.Flavour{config.FlavourOuter}
	p := NewPlan(cfg, &fixedRand{floats: []float64{0.25, 0.5, 0.5}, ints: []int{0}})
	if p.Duration != cfg.Transition.Duration {
		t.Errorf("outer Duration = %v, want unscaled %v", p.Duration, cfg.Transition.Duration)
	}
}

// fakeSwww writes an executable script that records its arguments and exits
// with code.
func fakeSwww(t *testing.T, code int, stderr string) (bin, argsFile string) {
	t.Helper()
	dir := t.TempDir()
	bin = filepath.Join(dir, "swww")
	argsFile = filepath.Join(dir, "args")
	script := "#!/bin/sh\nprintf '%s\\n' \"$@\" > " + argsFile + "\n"
	if stderr != "" {
		script += "echo '" + stderr + "' >&2\n"
	}
	script += "exit " + string(rune('0'+code)) + "\n"
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake swww: %v", err)
	}
	return bin, argsFile
}

func TestExec_Invoke(t *testing.T) {
	t.Parallel()

	bin, argsFile := fakeSwww(t, 0, "")
	cfg := testConfig()
	cfg.General.SwwwPath = bin
	cfg.Transition.Flavour = []config.Flavour{config.FlavourWipe}

	res, err := NewExec(nil).Invoke(context.Background(), "/walls/b.png", cfg)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if !res.Success() {
		t.Errorf("Result.Success() = false, exit %d", res.ExitCode)
	}

	recorded, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read recorded args: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(recorded)), "\n")
	if !slices.Equal(lines, res.Args) {
		t.Errorf("swww received %q, Result.Args = %q", lines, res.Args)
	}
	if lines[len(lines)-1] != "/walls/b.png" {
		t.Errorf("last argument = %q, want wallpaper path", lines[len(lines)-1])
	}
}

func TestExec_InvokeNonZeroExit(t *testing.T) {
	t.Parallel()

	bin, _ := fakeSwww(t, 3, "daemon not running")
	cfg := testConfig()
	cfg.General.SwwwPath = bin

	res, err := NewExec(nil).Invoke(context.Background(), "/walls/c.png", cfg)
	var invErr *InvocationError
	if !errors.As(err, &invErr) {
		t.Fatalf("Invoke() error = %v, want *InvocationError", err)
	}
	if invErr.ExitCode != 3 || res.ExitCode != 3 {
		t.Errorf("exit code = %d/%d, want 3", invErr.ExitCode, res.ExitCode)
	}
	if !strings.Contains(invErr.Error(), "daemon not running") {
		t.Errorf("error %q should carry swww's stderr", invErr)
	}
	if !errors.Is(err, ErrInvocation) {
		t.Error("InvocationError should wrap ErrInvocation")
	}
}

func TestExec_InvokeSpawnFailure(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.General.SwwwPath = filepath.Join(t.TempDir(), "no-such-swww")

	_, err := NewExec(nil).Invoke(context.Background(), "/walls/d.png", cfg)
	var invErr *InvocationError
	if !errors.As(err, &invErr) || invErr.Err == nil {
		t.Fatalf("Invoke() error = %v, want spawn *InvocationError", err)
	}
	if !errors.Is(err, ErrInvocation) {
		t.Error("spawn failure should wrap ErrInvocation")
	}
}

func TestExec_InvokeTimeout(t *testing.T) {
	t.Parallel()

	bin := filepath.Join(t.TempDir(), "swww")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\nexec sleep 30\n"), 0o755); err != nil {
		t.Fatalf("write fake swww: %v", err)
	}
	cfg := testConfig()
	cfg.General.SwwwPath = bin
	cfg.General.InvokeTimeout = 1

	start := time.Now()
	res, err := NewExec(nil).Invoke(context.Background(), "/walls/e.png", cfg)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Invoke() error = %v, want deadline exceeded", err)
	}
	if res.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", res.ExitCode)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("Invoke() took %v, the timeout was not enforced", elapsed)
	}
}
