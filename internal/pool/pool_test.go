//go:build unix

package pool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orizon-lang/slabmalloc/internal/block"
	"github.com/orizon-lang/slabmalloc/internal/config"
)

func TestPopOnEmptyPoolReturnsNil(t *testing.T) {
	p := New(config.New(), 4)

	b := p.Pop()
	require.True(t, b.IsNil())
}

func TestPushThenPopRoundTrip(t *testing.T) {
	cfg := config.New()
	p := New(cfg, 1)

	fresh := block.New(cfg)
	require.False(t, fresh.IsNil())
	require.True(t, fresh.Release())

	p.Push(fresh)

	got := p.Pop()
	require.False(t, got.IsNil())
	require.Equal(t, fresh.Pointer(), got.Pointer())
}

func TestPushBeyondCapReturnsToPager(t *testing.T) {
	cfg := config.New(config.WithMaxBlocksPerWorker(1))
	p := New(cfg, 1)

	// Bias is -workers == -1, so the cap is 1*1 == 1; the first two
	// pushes are within bias + cap, and only the third genuinely
	// exceeds it.
	for i := 0; i < 3; i++ {
		b := block.New(cfg)
		require.False(t, b.IsNil())
		require.True(t, b.Release())
		p.Push(b)
	}

	require.LessOrEqual(t, p.Count(), int64(cfg.MaxBlocksPerWorker))
}

func TestPrefillSeedsUpToN(t *testing.T) {
	cfg := config.New()
	p := New(cfg, 4)

	filled := p.Prefill(4)
	require.Equal(t, 4, filled)

	seen := 0
	for {
		b := p.Pop()
		if b.IsNil() {
			break
		}

		seen++
	}

	require.Equal(t, 4, seen)
}

func TestDrainReleasesEverything(t *testing.T) {
	cfg := config.New()
	p := New(cfg, 2)

	p.Prefill(2)

	released := p.Drain()
	require.Equal(t, 2, released)
	require.True(t, p.Pop().IsNil())
}

func TestCheckInvariantNeverTrips(t *testing.T) {
	cfg := config.New()
	p := New(cfg, 4)

	p.Prefill(4)
	require.NoError(t, p.CheckInvariant())
}
