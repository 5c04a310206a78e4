package maple

import (
	"context"
	"fmt"
)

// ErrNotAllocMode is returned by gap operations on a Tree not constructed
// with WithAllocMode.
var ErrNotAllocMode = fmt.Errorf("maple: tree is not in allocation mode")

// clip narrows [lo,hi] to its intersection with [min,max]. A caller must
// check lo<=hi on the result before treating it as non-empty.
func clip(lo, hi, min, max uint64) (uint64, uint64) {
	if lo < min {
		lo = min
	}
	if hi > max {
		hi = max
	}
	return lo, hi
}

// Alloc finds the lowest-addressed empty sub-range of at least size
// within [min,max], stores value there, and returns the range's first
// index (spec.md §6's alloc). Gap tracking only spans a single leaf's
// merged fragments — an empty run that happens to straddle two physical
// leaves is not detected as one contiguous gap (SPEC_FULL.md §D).
func (t *Tree) Alloc(ctx context.Context, min, max, size uint64, value Value) (uint64, error) {
	return t.allocDirectional(ctx, min, max, size, value, true)
}

// AllocRev is Alloc's highest-fit mirror.
func (t *Tree) AllocRev(ctx context.Context, min, max, size uint64, value Value) (uint64, error) {
	return t.allocDirectional(ctx, min, max, size, value, false)
}

func (t *Tree) allocDirectional(ctx context.Context, min, max, size uint64, value Value, lowest bool) (uint64, error) {
	if ctx == nil {
		return 0, ErrNilContext
	}
	if t.mode != ModeAlloc {
		return 0, ErrNotAllocMode
	}
	if min > max || size == 0 {
		return 0, ErrInvalidRange
	}
	if isReserved(value) {
		return 0, ErrReservedValue
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.loadRoot().isNil() {
		t.initEmptyRoot()
	}

	var pos uint64
	var found bool
	if lowest {
		pos, found = searchGapLowest(t.loadRoot(), 0, MaxKey, min, max, size)
	} else {
		pos, found = searchGapHighest(t.loadRoot(), 0, MaxKey, min, max, size)
	}
	if !found {
		return 0, ErrBusy
	}

	if err := t.writeRangeLocked(ctx, pos, pos+size-1, value, true); err != nil {
		return 0, err
	}
	return pos, nil
}

func searchGapLowest(e encPtr, lo, hi, min, max, size uint64) (uint64, bool) {
	if e.isNil() {
		clo, chi := clip(lo, hi, min, max)
		if clo <= chi && gapSize(clo, chi) >= size {
			return clo, true
		}
		return 0, false
	}
	n := e.n
	runLo := lo
	for i := 0; i < n.nslots(); i++ {
		slotHi := lastOr(n, i, hi)
		clo, chi := clip(runLo, slotHi, min, max)
		if clo <= chi {
			if n.variant.isLeaf() {
				if n.values[i] == nil && gapSize(clo, chi) >= size {
					return clo, true
				}
			} else if gapOf(n, i) >= size {
				if pos, ok := searchGapLowest(n.children[i], runLo, slotHi, min, max, size); ok {
					return pos, true
				}
			}
		}
		runLo = slotHi + 1
	}
	return 0, false
}

func searchGapHighest(e encPtr, lo, hi, min, max, size uint64) (uint64, bool) {
	if e.isNil() {
		clo, chi := clip(lo, hi, min, max)
		if clo <= chi && gapSize(clo, chi) >= size {
			return chi - size + 1, true
		}
		return 0, false
	}
	n := e.n
	ns := n.nslots()
	hiBound := hi
	for i := ns - 1; i >= 0; i-- {
		var slotLo uint64
		if i == 0 {
			slotLo = lo
		} else {
			slotLo = n.pivots[i-1] + 1
		}
		clo, chi := clip(slotLo, hiBound, min, max)
		if clo <= chi {
			if n.variant.isLeaf() {
				if n.values[i] == nil && gapSize(clo, chi) >= size {
					return chi - size + 1, true
				}
			} else if gapOf(n, i) >= size {
				if pos, ok := searchGapHighest(n.children[i], slotLo, hiBound, min, max, size); ok {
					return pos, true
				}
			}
		}
		hiBound = slotLo - 1
	}
	return 0, false
}

func lastOr(n *node, i int, hi uint64) uint64 {
	if i == n.nslots()-1 {
		return hi
	}
	return n.pivots[i]
}
