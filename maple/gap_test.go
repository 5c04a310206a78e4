package maple

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGap_AllocFindsLowestFit exercises P7's forward case: alloc(min, max,
// n, v) returns the smallest index x with x >= min, x+n-1 <= max, and
// [x, x+n-1] entirely absent.
func TestGap_AllocFindsLowestFit(t *testing.T) {
	tr := New(WithAllocMode())
	defer tr.Close()
	ctx := context.Background()

	require.NoError(t, tr.Store(ctx, 0, 99, "reserved"))

	pos, err := tr.Alloc(ctx, 0, 1000, 10, "payload")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), pos, "expected the allocator to skip the reserved prefix")

	for i := pos; i < pos+10; i++ {
		v, ok := tr.Load(ctx, i)
		require.True(t, ok)
		assert.Equal(t, "payload", v)
	}
}

// TestGap_AllocRevFindsHighestFit exercises P7's reverse case.
func TestGap_AllocRevFindsHighestFit(t *testing.T) {
	tr := New(WithAllocMode())
	defer tr.Close()
	ctx := context.Background()

	require.NoError(t, tr.Store(ctx, 900, 999, "reserved"))

	pos, err := tr.AllocRev(ctx, 0, 999, 10, "payload")
	require.NoError(t, err)
	assert.Equal(t, uint64(890), pos, "expected the allocator to fit just below the reserved suffix")
}

// TestGap_AllocBusyWhenNoFit exercises P7's failure case.
func TestGap_AllocBusyWhenNoFit(t *testing.T) {
	tr := New(WithAllocMode())
	defer tr.Close()
	ctx := context.Background()

	require.NoError(t, tr.Store(ctx, 0, 99, "a"))

	_, err := tr.Alloc(ctx, 0, 99, 1, "b")
	assert.ErrorIs(t, err, ErrBusy)
}

// TestGap_NotAllocMode rejects gap operations on a plain range tree.
func TestGap_NotAllocMode(t *testing.T) {
	tr := New()
	defer tr.Close()
	ctx := context.Background()

	_, err := tr.Alloc(ctx, 0, 100, 1, "v")
	assert.ErrorIs(t, err, ErrNotAllocMode)
}

func TestGap_InvalidArguments(t *testing.T) {
	tr := New(WithAllocMode())
	defer tr.Close()
	ctx := context.Background()

	_, err := tr.Alloc(ctx, 10, 5, 1, "v")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = tr.Alloc(ctx, 0, 10, 0, "v")
	assert.ErrorIs(t, err, ErrInvalidRange)
}

// TestGap_SequentialAllocsDoNotOverlap allocates repeatedly and checks no
// two allocations ever collide, a cheap stand-in for P4's invariant that
// the gap index never reports room that is already occupied.
func TestGap_SequentialAllocsDoNotOverlap(t *testing.T) {
	tr := New(WithAllocMode())
	defer tr.Close()
	ctx := context.Background()

	seen := map[uint64]bool{}
	for i := 0; i < 20; i++ {
		pos, err := tr.Alloc(ctx, 0, 10000, 5, i)
		require.NoError(t, err)
		for k := pos; k < pos+5; k++ {
			assert.False(t, seen[k], "index %d allocated twice", k)
			seen[k] = true
		}
	}
}
