//go:build !debug

package xdebug

// Enabled is false in ordinary builds; Log is compiled to a no-op that
// the inliner removes entirely.
const Enabled = false

// Log is a no-op outside of -tags debug builds.
func Log(op, format string, args ...any) {}
