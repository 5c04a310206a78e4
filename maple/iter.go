package maple

import "context"

// Iterator walks a Tree's stored ranges in key order. It holds no lock:
// per spec.md §5's reader policy, it snapshots the root once per step and
// walks an immutable subtree, so a concurrent writer can never leave it
// looking at a half-built node — only, in the worst case, a slightly
// stale one.
type Iterator struct {
	w *Walker
}

// Cursor returns an Iterator whose first Next call lands on the first
// stored entry at or after from.
func (t *Tree) Cursor(from uint64) *Iterator {
	return &Iterator{w: newWalker(t, from, MaxKey)}
}

// Next returns the next stored (first,last,value) triple at or after the
// cursor's current position, advancing past it, or ok=false once the
// cursor runs off the top of the key space.
func (it *Iterator) Next(ctx context.Context) (first, last uint64, v Value, ok bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	firstTime := it.w.state == wsStart
	for {
		if err := ctx.Err(); err != nil {
			return 0, 0, nil, false
		}
		if firstTime {
			it.w.walkTo(it.w.index)
			firstTime = false
		} else if !it.w.walkNext() {
			return 0, 0, nil, false
		}
		switch it.w.state {
		case wsNone, wsError:
			return 0, 0, nil, false
		}
		lo, hi := it.w.slotBounds()
		if val := it.w.node.values[it.w.offset]; val != nil {
			return lo, hi, val, true
		}
	}
}

// Prev is Next's mirror, walking toward lower keys.
func (it *Iterator) Prev(ctx context.Context) (first, last uint64, v Value, ok bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	firstTime := it.w.state == wsStart
	for {
		if err := ctx.Err(); err != nil {
			return 0, 0, nil, false
		}
		if firstTime {
			it.w.walkTo(it.w.index)
			firstTime = false
		} else if !it.w.walkPrev() {
			return 0, 0, nil, false
		}
		switch it.w.state {
		case wsNone, wsError:
			return 0, 0, nil, false
		}
		lo, hi := it.w.slotBounds()
		if val := it.w.node.values[it.w.offset]; val != nil {
			return lo, hi, val, true
		}
	}
}

// Pause reports the index one past the last entry this cursor returned,
// suitable for handing to Cursor to resume iteration later (spec.md §5's
// "pause" operation: save the last observed key, re-enter at last+1).
func (it *Iterator) Pause() (resumeAt uint64, ok bool) {
	if it.w.state != wsLive {
		return 0, false
	}
	_, hi := it.w.slotBounds()
	if hi == MaxKey {
		return 0, false
	}
	return hi + 1, true
}

// FindNext returns the first stored entry with an index >= from.
func (t *Tree) FindNext(ctx context.Context, from uint64) (uint64, uint64, Value, bool) {
	return t.Cursor(from).Next(ctx)
}

// FindPrev returns the stored entry nearest to, and not exceeding, from.
func (t *Tree) FindPrev(ctx context.Context, from uint64) (uint64, uint64, Value, bool) {
	return t.Cursor(from).Prev(ctx)
}
