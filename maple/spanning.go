package maple

// expandFrags rebuilds node n's full child-fragment list with the single
// slot at index slot replaced by the (possibly several, if that slot's
// subtree just split) chunks produced below it. lo/hi are n's own incoming
// bounds, needed to recover the implicit lower bound of slot 0 and the
// implicit upper bound of the last slot (neither is stored in n.pivots).
func expandFrags(n *node, slot int, lo, hi uint64, chunks []nodeChunk) []childFrag {
	return expandFragsRange(n, slot, slot, lo, hi, chunks)
}

// expandFragsRange is expandFrags generalized to replace an inclusive
// slot range [slotLo,slotHi] at once, used by the deficient-leaf merge
// path (rebalance.go) where a borrow/merge consumes two adjacent slots
// and replaces them with however many chunks the merge produced.
func expandFragsRange(n *node, slotLo, slotHi int, lo, hi uint64, chunks []nodeChunk) []childFrag {
	cnt := n.nslots()
	out := make([]childFrag, 0, cnt-(slotHi-slotLo+1)+len(chunks))
	for i := 0; i < cnt; i++ {
		var sHi uint64
		if i == cnt-1 {
			sHi = hi
		} else {
			sHi = n.pivots[i]
		}
		switch {
		case i < slotLo || i > slotHi:
			out = append(out, childFrag{hi: sHi, c: n.children[i], gap: gapOf(n, i)})
		case i == slotLo:
			for _, c := range chunks {
				out = append(out, childFrag{hi: c.hi, c: c.enc, gap: c.gap})
			}
		default:
			// i in (slotLo, slotHi]: already folded into the slotLo case.
		}
	}
	return out
}

// ascend installs the replacement chunks for one subtree (the one that
// used to sit at path[len(path)-1]'s slot, if path is non-empty, or the
// whole tree otherwise) up through each ancestor that must be rebuilt to
// reflect it, growing the tree by a level whenever the root itself
// overflows. This is the generalized form of spec.md §4.5's "lockstep
// ascent": it rebuilds one ancestor per call rather than every level of a
// single spanning write at once, trading a few extra intermediate node
// allocations for a much simpler implementation (SPEC_FULL.md §D).
//
// Superseded ancestors are appended to *retire rather than handed to the
// reclaimer immediately: spec.md §5 marks a node dead only after its
// replacement has been published, and the replacement here isn't
// published until the recursion bottoms out at installRoot's storeRoot.
// Marking top.n dead mid-ascent would be visible to a reader who loaded
// the OLD (still-current) root a moment earlier and is walking down into
// exactly this still-live subtree.
func (t *Tree) ascend(path []pathFrame, lo, hi uint64, chunks []nodeChunk, retire *[]*node) {
	if len(path) == 0 {
		t.installRoot(chunks, retire)
		return
	}
	top := path[len(path)-1]
	rest := path[:len(path)-1]
	frags := expandFrags(top.n, top.slot, top.lo, top.hi, chunks)
	newChunks := chopInternal(t.pool, frags, top.lo, t.mode == ModeAlloc)
	*retire = append(*retire, top.n)
	t.ascend(rest, top.lo, top.hi, newChunks, retire)
}

func (t *Tree) installRoot(chunks []nodeChunk, retire *[]*node) {
	if len(chunks) == 1 {
		t.collapseAndStoreRoot(chunks[0].enc, retire)
		return
	}
	frags := chunksToFrags(chunks)
	for {
		cs := chopInternal(t.pool, frags, 0, t.mode == ModeAlloc)
		t.height.Add(1)
		if len(cs) == 1 {
			t.publish(cs[0].enc, retire)
			return
		}
		frags = chunksToFrags(cs)
	}
}

// collapseAndStoreRoot implements spec.md §4.7's root-shrink rule: if the
// new root is an internal node with exactly one child, that child becomes
// the new root instead, and height decreases — repeated until the root
// is a leaf or a genuinely multi-child internal node.
func (t *Tree) collapseAndStoreRoot(e encPtr, retire *[]*node) {
	for !e.isNil() && e.v.isInternal() && e.n.nslots() == 1 {
		child := e.n.children[0]
		*retire = append(*retire, e.n)
		e = child
		t.height.Add(^uint32(0)) // decrement by one
	}
	t.publish(e, retire)
}

// publish installs e as the tree's new root — the single pointer store
// spec.md §5 calls the publication point — and only then marks every
// node collected in *retire dead and hands it to the reclaimer. Doing
// this after the swap, not before, is what keeps a concurrent reader who
// is still walking the old (pre-swap) tree from ever observing a dead
// node that, from its perspective, hasn't been superseded yet.
//
// storeRoot already retires the old root, so publish skips it in *retire
// and every superseded node is handed to the reclaimer exactly once.
func (t *Tree) publish(e encPtr, retire *[]*node) {
	old := t.loadRoot()
	t.storeRoot(e)
	for _, n := range *retire {
		if n == old.n {
			continue
		}
		t.reclm.defer_(n)
	}
	*retire = nil
}
