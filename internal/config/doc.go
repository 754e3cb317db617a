// SPDX-License-Identifier: MPL-2.0

// Package config loads the walrus configuration.
//
// The file lives at $XDG_CONFIG_HOME/walrus/config.toml (falling back to
// ~/.config/walrus/config.toml). It is decoded with go-toml, validated against
// an embedded CUE schema (config_schema.cue), and merged over built-in
// defaults with Viper. Loading never fails outward: a missing or malformed
// file yields the full default configuration and a log line.
//
// Resolution and frame rate may be left unset, in which case they are
// inferred from the connected monitors through a display.Lister.
package config
