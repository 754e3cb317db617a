// SPDX-License-Identifier: MPL-2.0

// Package ipc is the control channel between the walrus CLI and the
// running daemon: JSON requests over HTTP on a unix socket that only the
// owning user can open.
//
// Endpoints:
//
//	POST /command  {"id","command","argument"} -> {"id","ok","error","result","status"}
//	GET  /status   -> {"ok":true,"status":{...}}
//	GET  /health   -> 200 "ok"
package ipc
