package maple

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWrite_LoadReturnsStoredValueEverywhereInRange exercises P6: load(i)
// after store_range(a,b,v) returns v for every i in [a,b], absent any
// intervening write.
func TestWrite_LoadReturnsStoredValueEverywhereInRange(t *testing.T) {
	tr := New()
	defer tr.Close()
	ctx := context.Background()

	require.NoError(t, tr.Store(ctx, 100, 300, "v"))

	for _, i := range []uint64{100, 101, 150, 299, 300} {
		v, ok := tr.Load(ctx, i)
		require.True(t, ok, "index %d should be present", i)
		assert.Equal(t, "v", v)
	}
	_, ok := tr.Load(ctx, 99)
	assert.False(t, ok)
	_, ok = tr.Load(ctx, 301)
	assert.False(t, ok)
}

// TestWrite_SpanningWriteOverwritesMultipleLeaves forces the decomposed
// spanning-write loop (write.go) to cross several physical leaves by
// first fragmenting the key space into many small ranges, then issuing a
// single store_range across all of them.
func TestWrite_SpanningWriteOverwritesMultipleLeaves(t *testing.T) {
	tr := New()
	defer tr.Close()
	ctx := context.Background()

	for i := uint64(0); i < 4000; i += 4 {
		require.NoError(t, tr.Store(ctx, i, i+1, "old"))
	}
	require.True(t, tr.Height() > 0)

	require.NoError(t, tr.Store(ctx, 0, 3999, "new"))

	for _, i := range []uint64{0, 1000, 2000, 3999} {
		v, ok := tr.Load(ctx, i)
		require.True(t, ok, "index %d should be present", i)
		assert.Equal(t, "new", v)
	}
	_, ok := tr.Load(ctx, 4000)
	assert.False(t, ok)
}

// TestWrite_RoundTripStoreThenErase exercises P9: store_range(r,v) then
// erase(any index in r) returns the tree to its prior contents outside r.
func TestWrite_RoundTripStoreThenErase(t *testing.T) {
	tr := New()
	defer tr.Close()
	ctx := context.Background()

	require.NoError(t, tr.Store(ctx, 0, 9, "before"))
	require.NoError(t, tr.Store(ctx, 50, 59, "after"))

	require.NoError(t, tr.Store(ctx, 20, 30, "temp"))
	require.NoError(t, tr.Erase(ctx, 20, 30))

	vBefore, ok := tr.Load(ctx, 5)
	require.True(t, ok)
	assert.Equal(t, "before", vBefore)

	vAfter, ok := tr.Load(ctx, 55)
	require.True(t, ok)
	assert.Equal(t, "after", vAfter)

	_, ok = tr.Load(ctx, 25)
	assert.False(t, ok)
}

// TestWrite_PivotsStayOrderedAndDisjoint exercises P2 at the node level:
// after a sequence of stores and erases, every node's pivots are strictly
// increasing and its slot ranges partition its own [min,max] without
// overlap.
func TestWrite_PivotsStayOrderedAndDisjoint(t *testing.T) {
	tr := New()
	defer tr.Close()
	ctx := context.Background()

	for i := uint64(0); i < 500; i += 3 {
		require.NoError(t, tr.Store(ctx, i, i+2, i))
	}
	for i := uint64(0); i < 500; i += 9 {
		require.NoError(t, tr.Erase(ctx, i, i+1))
	}

	assertWellFormed(t, tr.loadRoot(), 0, MaxKey)
}

func assertWellFormed(t *testing.T, e encPtr, nodeMin, nodeMax uint64) {
	if e.isNil() {
		return
	}
	n := e.n
	prev := nodeMin - 1
	hasPrev := nodeMin != 0
	for i := 0; i < n.nslots(); i++ {
		lo, hi := n.slotRange(i, nodeMin, nodeMax)
		assert.LessOrEqual(t, lo, hi, "slot %d has an inverted range", i)
		if hasPrev {
			assert.Greater(t, lo, prev, "slot %d overlaps the previous slot", i)
		}
		prev = hi
		hasPrev = true
		if n.variant.isInternal() {
			assertWellFormed(t, n.children[i], lo, hi)
		}
	}
}

// TestWrite_DeficientLeafMergesIntoPreviousSibling exercises P3's
// merge-on-deficiency path (rebalance.go): erasing most of a leaf's
// content should fold it into its previous sibling rather than leaving a
// near-empty node behind. The sequential stores leave [0,31] and [32,63]
// as the first two leaves, so the erases below empty most of the second
// one, which has [0,31] as its previous sibling.
func TestWrite_DeficientLeafMergesIntoPreviousSibling(t *testing.T) {
	tr := New()
	defer tr.Close()
	ctx := context.Background()

	for i := uint64(0); i < 1000; i += 2 {
		require.NoError(t, tr.Store(ctx, i, i+1, i))
	}
	before := tr.Height()

	for i := uint64(34); i < 60; i += 2 {
		require.NoError(t, tr.Erase(ctx, i, i+1))
	}

	v, ok := tr.Load(ctx, 32)
	require.True(t, ok)
	assert.Equal(t, uint64(32), v)
	_, ok = tr.Load(ctx, 40)
	assert.False(t, ok)

	assert.True(t, tr.Height() <= before, "expected rebalance, not unbounded growth")
}

// TestWrite_DeficientLeafPushesRightWhenNoPreviousSibling exercises the
// slot-0 case of rebalance.go's merge fallback: a leaf with no previous
// sibling under its parent must still merge (with its next sibling)
// rather than being left under minSlots, per P3.
func TestWrite_DeficientLeafPushesRightWhenNoPreviousSibling(t *testing.T) {
	tr := New()
	defer tr.Close()
	ctx := context.Background()

	for i := uint64(0); i < 2000; i += 2 {
		require.NoError(t, tr.Store(ctx, i, i+1, i))
	}
	before := tr.Height()
	require.True(t, before > 0, "expected a multi-level tree to exercise a real slot-0 case")

	// Walk the leftmost path to find the leaf that sits at slot 0 of its
	// parent at every level, regardless of tree depth.
	firstLo, firstHi := uint64(0), uint64(MaxKey)
	e := tr.loadRoot()
	for e.v.isInternal() {
		firstLo, firstHi = e.n.slotRange(0, firstLo, firstHi)
		e = e.n.children[0]
	}

	// Erase all but one slot of the leftmost leaf, forcing it deficient
	// with no previous sibling to push-left into.
	require.NoError(t, tr.Erase(ctx, firstLo+2, firstHi))

	v, ok := tr.Load(ctx, firstLo)
	require.True(t, ok)
	assert.Equal(t, firstLo, v)

	assertWellFormed(t, tr.loadRoot(), 0, MaxKey)
	assert.True(t, tr.Height() <= before, "expected rebalance via push-right, not unbounded growth")
}

// TestWrite_InsertIsAtomicAcrossSpanningWrite exercises spec.md §7's
// propagation policy for Insert specifically: if any leaf segment inside
// [first,last] already holds a value, the whole call fails with
// ErrAlreadyExists and the tree is left completely unchanged, even when
// the range spans several leaves and an earlier segment would otherwise
// have been free to commit.
func TestWrite_InsertIsAtomicAcrossSpanningWrite(t *testing.T) {
	tr := New()
	defer tr.Close()
	ctx := context.Background()

	for i := uint64(0); i < 4000; i += 4 {
		require.NoError(t, tr.Store(ctx, i, i+1, "seed"))
	}
	require.True(t, tr.Height() > 0)

	// [2,3001] spans several leaves and overlaps seeded ranges in each of
	// them, from [4,5] up to [3000,3001]. The free indices (index mod 4
	// in {2,3}) across the whole span must still be absent afterwards,
	// and the seeded values must be untouched.
	err := tr.Insert(ctx, 2, 3001, "new")
	require.ErrorIs(t, err, ErrAlreadyExists)

	for _, i := range []uint64{2, 1002, 2002} {
		_, ok := tr.Load(ctx, i)
		assert.False(t, ok, "index %d must still be absent after the failed Insert", i)
	}
	v, ok := tr.Load(ctx, 3000)
	require.True(t, ok)
	assert.Equal(t, "seed", v, "the pre-existing value at the conflict must be untouched")
}
