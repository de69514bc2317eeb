package errs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorFormatsCategoryAndCode(t *testing.T) {
	err := New(CategoryMemory, "TEST_CODE", "something broke", nil)

	require.Contains(t, err.Error(), "MEMORY")
	require.Contains(t, err.Error(), "TEST_CODE")
	require.Contains(t, err.Error(), "something broke")
}

func TestInitFailedCarriesWorkerCount(t *testing.T) {
	err := InitFailed("reservation failed", 8)

	require.Equal(t, CategoryInit, err.Category)
	require.Equal(t, 8, err.Context["workers"])
}

func TestPoolCounterCorruptCarriesCount(t *testing.T) {
	err := PoolCounterCorrupt(42)

	require.Equal(t, CategoryMemory, err.Category)
	require.Equal(t, int64(42), err.Context["count"])
}

func TestSystemMappingFailedCarriesOpAndLength(t *testing.T) {
	err := SystemMappingFailed("reserve", 4096)

	require.Equal(t, CategorySystem, err.Category)
	require.Equal(t, "reserve", err.Context["op"])
	require.Equal(t, uintptr(4096), err.Context["length"])
}
