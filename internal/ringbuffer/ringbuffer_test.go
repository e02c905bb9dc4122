package ringbuffer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCapacityUsesBytesEquivalentFormula(t *testing.T) {
	r := New(1.2, 16000)
	require.Equal(t, 38400, r.Capacity()) // 1.2 * 16000 * 2
}

func TestExtendAndSnapshotOrdering(t *testing.T) {
	r := New(0.001, 1000) // capacity 2 samples
	r.Extend([]int16{1, 2})
	require.Equal(t, []int16{1, 2}, r.Snapshot())

	r.Extend([]int16{3})
	require.Equal(t, []int16{2, 3}, r.Snapshot(), "oldest sample must be evicted")
}

func TestExtendNeverExceedsCapacity(t *testing.T) {
	r := New(0.001, 1000) // capacity 2 samples
	r.Extend([]int16{1, 2, 3, 4, 5})
	require.LessOrEqual(t, r.Len(), r.Capacity())
	require.Equal(t, []int16{4, 5}, r.Snapshot())
}

func TestClearEmptiesBuffer(t *testing.T) {
	r := New(0.001, 1000)
	r.Extend([]int16{1, 2})
	r.Clear()
	require.Equal(t, 0, r.Len())
	require.Empty(t, r.Snapshot())
}

func TestLenNeverExceedsCapacityInvariant(t *testing.T) {
	r := New(1.0, 100)
	for i := 0; i < 10; i++ {
		r.Extend([]int16{int16(i)})
		require.LessOrEqual(t, r.Len(), r.Capacity())
	}
}
