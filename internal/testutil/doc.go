// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers include environment management (MustSetenv, SetHomeDir),
// wallpaper fixtures (MustWriteFile, MustTouchAll) and a FakeClock that lets
// scheduler tests fire deadlines without real delays.
package testutil
