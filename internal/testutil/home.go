// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"path/filepath"
	"testing"
)

// SetHomeDir points HOME and the XDG base directories at dir so code that
// resolves per-user paths stays inside the test's temporary tree. It returns
// a cleanup function that restores every variable it touched.
//
// Usage:
//
//	t.Cleanup(testutil.SetHomeDir(t, t.TempDir()))
func SetHomeDir(t testing.TB, dir string) func() {
	t.Helper()

	restores := []func(){
		MustSetenv(t, "HOME", dir),
		MustSetenv(t, "XDG_CONFIG_HOME", filepath.Join(dir, ".config")),
		MustSetenv(t, "XDG_STATE_HOME", filepath.Join(dir, ".local", "state")),
		MustSetenv(t, "XDG_RUNTIME_DIR", filepath.Join(dir, "run")),
	}
	return func() {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
	}
}
