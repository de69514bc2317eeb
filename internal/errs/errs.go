// Package errs provides standardized error messaging for the allocator's
// two diagnosable failure paths: fatal initialization failure and
// defensive invariant violations. Ordinary allocation failure (OOM) is
// never represented here — per the allocator's contract it is always a
// plain nil return.
package errs

import (
	"fmt"
	"runtime"
)

// Category groups errors by the subsystem that raised them.
type Category string

const (
	CategoryInit   Category = "INIT"
	CategorySystem Category = "SYSTEM"
	CategoryMemory Category = "MEMORY"
)

// StandardError is a consistently formatted, caller-annotated error.
type StandardError struct {
	Category Category
	Code     string
	Message  string
	Context  map[string]interface{}
	Caller   string
}

// Error implements the error interface.
func (e *StandardError) Error() string {
	return fmt.Sprintf("[%s:%s] %s (caller: %s)", e.Category, e.Code, e.Message, e.Caller)
}

// New creates a StandardError, capturing the immediate caller for
// diagnostics.
func New(category Category, code, message string, context map[string]interface{}) *StandardError {
	pc, _, _, ok := runtime.Caller(1)
	caller := "unknown"

	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}

	return &StandardError{
		Category: category,
		Code:     code,
		Message:  message,
		Context:  context,
		Caller:   caller,
	}
}

// InitFailed reports that process-wide initialization could not bring
// the allocator up, e.g. because the configured block size or slice
// unit is invalid. Per the allocator's contract this is fatal: no subsequent
// allocation can succeed, so callers of the convenience wrapper should
// treat it as unrecoverable.
func InitFailed(reason string, workers int) *StandardError {
	return New(CategoryInit, "INIT_FAILED",
		fmt.Sprintf("allocator initialization failed: %s", reason),
		map[string]interface{}{"workers": workers})
}

// PoolCounterCorrupt reports that the recycled-block pool counter
// exceeds its cap, which can only happen if a block was pushed or
// popped outside of the documented protocol.
func PoolCounterCorrupt(count int64) *StandardError {
	return New(CategoryMemory, "POOL_COUNTER_CORRUPT",
		fmt.Sprintf("recycled-block pool counter %d violates its invariant", count),
		map[string]interface{}{"count": count})
}

// SystemMappingFailed reports that the system pager could not satisfy a
// reservation or resize request for reasons other than plain OOM (e.g.
// an alignment invariant the pager itself could not establish).
func SystemMappingFailed(op string, length uintptr) *StandardError {
	return New(CategorySystem, "MAPPING_FAILED",
		fmt.Sprintf("system pager %s failed for length %d", op, length),
		map[string]interface{}{"op": op, "length": uintptr(length)})
}
