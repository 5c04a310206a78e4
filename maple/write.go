package maple

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Store writes value over [first,last], overwriting any prior content in
// that range (spec.md §4.4's unconditional store).
func (t *Tree) Store(ctx context.Context, first, last uint64, value Value) error {
	return t.writeRange(ctx, first, last, value, false)
}

// Insert writes value over [first,last] only if every index in that range
// is currently absent, returning ErrAlreadyExists without modifying the
// tree otherwise (spec.md §4.4's mas_insert semantics).
func (t *Tree) Insert(ctx context.Context, first, last uint64, value Value) error {
	return t.writeRange(ctx, first, last, value, true)
}

// Erase removes any values stored over [first,last], equivalent to
// Store(ctx, first, last, nil).
func (t *Tree) Erase(ctx context.Context, first, last uint64) error {
	return t.writeRange(ctx, first, last, nil, false)
}

func (t *Tree) writeRange(ctx context.Context, first, last uint64, value Value, requireEmpty bool) error {
	if ctx == nil {
		return ErrNilContext
	}
	if first > last {
		return ErrInvalidRange
	}
	if isReserved(value) {
		return ErrReservedValue
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writeRangeLocked(ctx, first, last, value, requireEmpty)
}

// writeRangeLocked is writeRange's body, factored out so Alloc/AllocRev can
// run a gap search and the resulting store under the same critical
// section without recursively locking t.mu.
func (t *Tree) writeRangeLocked(ctx context.Context, first, last uint64, value Value, requireEmpty bool) error {
	id := t.opID()

	if t.loadRoot().isNil() {
		t.initEmptyRoot()
	}

	// requireEmpty (Insert) must be all-or-nothing across the whole
	// [first,last] span, per spec.md §7's propagation policy: a failed
	// operation leaves the tree logically unchanged. The loop below
	// commits leaf by leaf, so checking emptiness inside it would let an
	// Insert that spans several leaves commit the first few and then
	// fail on a later one, leaving a partial write behind. Scanning every
	// leaf segment up front, before any commit begins, rules that out.
	if requireEmpty {
		if err := t.checkRangeEmpty(ctx, first, last); err != nil {
			return err
		}
	}

	cur := first
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		w := newWalker(t, cur, last)
		w.walkTo(cur)
		if w.state != wsLive {
			t.log.Error("write landed off-tree", zap.Uint64("op", uint64(id)), zap.Uint64("index", cur))
			return fmt.Errorf("maple: write at %d: %w", cur, ErrCorrupt)
		}

		segHi := last
		if w.nodeMax < segHi {
			segHi = w.nodeMax
		}

		// Worst-case new-node count for one local rewrite-leaf-then-ascend
		// pass: "1 + 2*height" for a split cascading to the root, plus
		// "2*empty_count" for a deficiency merge consuming one sibling
		// (spec.md §4.10); at most one merge happens per leaf segment, so
		// empty_count is at most 1 here.
		need := 1 + 2*int64(t.height.Load()) + 2
		if !t.pool.reserve(need) {
			return ErrOOM
		}

		before := w.node.nslots()
		chunks := t.rewriteLeaf(w, cur, segHi, value)
		t.size.Add(deltaSlots(before, w.node, chunks, value))
		oldLeaf := w.node
		hadParent := len(w.path) > 0
		var retire []*node
		if !t.tryMergeDeficient(w.path, w.nodeMin, w.nodeMax, chunks, &retire) {
			t.ascend(w.path, w.nodeMin, w.nodeMax, chunks, &retire)
		}
		t.pool.release(need)
		// When the leaf has a parent, ascend has already published the
		// rebuilt ancestor chain (its recursion bottoms out in a
		// storeRoot swap before returning here) and retired every
		// superseded ancestor up to, but not including, the leaf itself.
		// The final root swap retires whatever the old root was — never
		// the leaf. When the leaf *is* the root, that same swap already
		// retires it, so only defer it here in the parented case, and
		// only now that the swap is known to have happened.
		if hadParent {
			t.reclm.defer_(oldLeaf)
		}

		if segHi == MaxKey || segHi == last {
			break
		}
		cur = segHi + 1
	}

	t.log.Debug("write committed",
		zap.Uint64("op", uint64(id)),
		zap.Uint64("first", first),
		zap.Uint64("last", last),
	)
	return nil
}

// checkRangeEmpty walks every leaf segment overlapping [first,last] and
// reports ErrAlreadyExists if any of them holds a live value, without
// mutating anything. Called before writeRangeLocked commits a single
// segment of a requireEmpty write, so an Insert spanning several leaves
// either finds the whole range clear or touches nothing at all.
func (t *Tree) checkRangeEmpty(ctx context.Context, first, last uint64) error {
	cur := first
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		w := newWalker(t, cur, last)
		w.walkTo(cur)
		if w.state != wsLive {
			return fmt.Errorf("maple: write at %d: %w", cur, ErrCorrupt)
		}

		segHi := last
		if w.nodeMax < segHi {
			segHi = w.nodeMax
		}
		if !leafSegmentEmpty(w, cur, segHi) {
			return ErrAlreadyExists
		}

		if segHi == MaxKey || segHi == last {
			return nil
		}
		cur = segHi + 1
	}
}

// leafSegmentEmpty reports whether every slot in w.node overlapping
// [lo,hi] currently holds the absent value.
func leafSegmentEmpty(w *Walker, lo, hi uint64) bool {
	n := w.node
	runLo := w.nodeMin
	for i := 0; i < n.nslots(); i++ {
		var slotHi uint64
		if i == n.nslots()-1 {
			slotHi = w.nodeMax
		} else {
			slotHi = n.pivots[i]
		}
		if slotHi >= lo && runLo <= hi && n.values[i] != nil {
			return false
		}
		runLo = slotHi + 1
	}
	return true
}

// rewriteLeaf builds w.node's post-write image over [lo,hi] := value and
// chops it into the replacement physical leaf node(s).
func (t *Tree) rewriteLeaf(w *Walker, lo, hi uint64, value Value) []nodeChunk {
	n := w.node
	st := newLeafStage()
	runLo := w.nodeMin
	inserted := false

	for i := 0; i < n.nslots(); i++ {
		var slotHi uint64
		if i == n.nslots()-1 {
			slotHi = w.nodeMax
		} else {
			slotHi = n.pivots[i]
		}

		switch {
		case slotHi < lo || runLo > hi:
			st.append(slotHi, n.values[i])
		default:
			if runLo < lo {
				st.append(lo-1, n.values[i])
			}
			if !inserted {
				st.append(hi, value)
				inserted = true
			}
			if slotHi > hi {
				st.append(slotHi, n.values[i])
			}
		}
		runLo = slotHi + 1
	}
	if !inserted {
		st.append(hi, value)
	}
	st.mergeNilRuns()
	return chopLeaf(t.pool, st.frags, w.nodeMin)
}

// deltaSlots estimates the change in distinct stored ranges a write
// produced, by comparing how many non-absent fragments existed before
// against how many the replacement chunks hold after. It is an estimate,
// not an exact count of index-level insertions/removals: Len reports
// range-slot occupancy, not covered-key count (spec.md's size accounting
// is explicitly scoped to the former, §6).
func deltaSlots(beforeSlots int, oldLeaf *node, chunks []nodeChunk, value Value) int64 {
	var before int64
	for i := 0; i < beforeSlots; i++ {
		if oldLeaf.values[i] != nil {
			before++
		}
	}
	var after int64
	for _, c := range chunks {
		if c.enc.v.isLeaf() {
			for _, v := range c.enc.n.values {
				if v != nil {
					after++
				}
			}
		}
	}
	return after - before
}

// initEmptyRoot installs a single leaf node spanning the whole key domain
// with every slot absent, the starting state for a freshly constructed
// Tree (spec.md §3's "empty tree" case).
func (t *Tree) initEmptyRoot() {
	v := leafNarrow
	n := newLeaf(t.pool, v)
	n.values = []Value{nil}
	t.storeRoot(encode(n, v))
	t.height.Store(0)
}
