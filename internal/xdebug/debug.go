//go:build debug

// Package xdebug provides opt-in trace logging for the allocator's data
// plane, compiled in only under the "debug" build tag so the hot path
// carries zero overhead in normal builds.
package xdebug

import (
	"fmt"
	"os"

	"github.com/timandy/routine"
)

// Enabled is true when the package was built with -tags debug.
const Enabled = true

// Log prints a trace line identifying the calling goroutine, mirroring
// the "g<goid> op: msg" shape used by the debug packages this is
// grounded on.
func Log(op, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "g%d %s: "+format+"\n",
		append([]any{routine.Goid(), op}, args...)...)
}
