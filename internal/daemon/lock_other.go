// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package daemon

import "errors"

// swww only exists on Wayland compositors, so there is nothing to guard
// elsewhere; the daemon refuses to start instead.
func acquireLock(string) (*instanceLock, error) {
	return nil, errors.New("walrus daemon requires a unix system")
}

type instanceLock struct{}

// Release is a no-op.
func (l *instanceLock) Release() {}
