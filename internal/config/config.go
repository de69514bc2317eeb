// Package config holds the tunable constants and build-time switches for
// the slab allocator. It follows the functional-options pattern used
// throughout the Orizon runtime's allocator configuration.
package config

// Config carries every size and policy parameter the allocator needs. A
// zero Config is invalid; use Default() and apply Options to it.
type Config struct {
	// BlockSize is B, the fixed size and alignment of every slab block.
	BlockSize uintptr

	// SliceUnit is U, the allocation granularity and minimum alignment
	// of small allocations, and the size of the large-allocation length
	// header.
	SliceUnit uintptr

	// Threshold is the request size at or above which the large
	// allocation path (direct OS mapping) is used instead of slicing a
	// block.
	Threshold uintptr

	// MaxBlocksPerWorker bounds the recycled-block pool: at most
	// MaxBlocksPerWorker*Workers blocks are kept for reuse before excess
	// freed blocks are returned to the system pager.
	MaxBlocksPerWorker int

	// Workers overrides the detected hardware worker count. Zero means
	// "detect at Init time" (runtime.GOMAXPROCS(0)).
	Workers int

	// ForcePlatformAllocator routes every public operation through Go's
	// built-in allocator instead of the arena/pager path. This is the
	// Go-native analogue of facil.io's FIO_FORCE_MALLOC switch.
	ForcePlatformAllocator bool
}

// HeaderUnits is the block header size expressed in slice units. The
// header is fixed at one cache-line-ish 16-byte multiple regardless of
// Config, so it lives here as a derived constant rather than a field.
const HeaderUnits = 1

// Option mutates a Config during construction.
type Option func(*Config)

// Default returns the spec-mandated defaults: 64KiB blocks, 16-byte
// slice units, a threshold of half a block, and 32 recycled blocks per
// worker (matching the pre-seed pool size used at Init).
func Default() *Config {
	return &Config{
		BlockSize:              64 * 1024,
		SliceUnit:              16,
		Threshold:              32 * 1024,
		MaxBlocksPerWorker:     32,
		Workers:                0,
		ForcePlatformAllocator: false,
	}
}

// New builds a Config from Default() with the given Options applied.
func New(opts ...Option) *Config {
	c := Default()
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithBlockSize overrides B. Must be a power of two and a multiple of
// the OS page size; this is validated by Init, not here.
func WithBlockSize(size uintptr) Option {
	return func(c *Config) { c.BlockSize = size }
}

// WithSliceUnit overrides U.
func WithSliceUnit(size uintptr) Option {
	return func(c *Config) { c.SliceUnit = size }
}

// WithThreshold overrides the small/large allocation boundary.
func WithThreshold(size uintptr) Option {
	return func(c *Config) { c.Threshold = size }
}

// WithMaxBlocksPerWorker overrides the recycled-pool cap per worker.
func WithMaxBlocksPerWorker(n int) Option {
	return func(c *Config) { c.MaxBlocksPerWorker = n }
}

// WithWorkers overrides the detected worker count, mainly useful for
// deterministic tests.
func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

// WithForcePlatformAllocator enables the force-platform-allocator
// build-time switch at runtime.
func WithForcePlatformAllocator(enabled bool) Option {
	return func(c *Config) { c.ForcePlatformAllocator = enabled }
}
