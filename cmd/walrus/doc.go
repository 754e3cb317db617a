// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the walrus command line: the daemon entry point and
// the client commands that drive it over the control socket.
package cmd
