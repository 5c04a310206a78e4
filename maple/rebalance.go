package maple

// tryMergeDeficient implements spec.md §4.7's rebalance rule for the
// common case a local write produces: if the single replacement leaf
// chunk fell below its variant's minSlots, merge it into a sibling
// rather than leaving an undersized node in the tree. The previous
// sibling is tried first (push-left); if there is none under the same
// parent, or it isn't a usable leaf, the next sibling is tried instead
// (push-right) — slot 0 of its parent is therefore not, on its own, a
// reason for a leaf to stay under minSlots. P3's only standing exception
// remains the one spec.md states: a leaf that is the sole child of the
// root. Only a full merge is implemented, not the narrower steal-a-few-
// slots borrow spec.md §4.7 also allows; that scope reduction is
// documented in SPEC_FULL.md §D. It reports whether it fully installed
// the result (true) or left the caller to run the ordinary single-slot
// ascend (false).
func (t *Tree) tryMergeDeficient(path []pathFrame, lo, hi uint64, chunks []nodeChunk, retire *[]*node) bool {
	if len(chunks) != 1 || len(path) == 0 {
		return false
	}
	n := chunks[0].enc.n
	if n.nslots() >= n.variant.minSlots() {
		return false
	}

	top := path[len(path)-1]
	parent := top.n
	slot := top.slot

	if slot > 0 {
		if sib := parent.children[slot-1]; usableLeafSibling(sib) {
			sibLo, sibHi := parent.slotRange(slot-1, top.lo, top.hi)
			merged := mergeLeaves(t.pool, sib.n, sibLo, sibHi, n, lo, hi)
			t.installMerge(path, top, slot-1, slot, sib.n, merged, retire)
			return true
		}
	}
	if slot < parent.nslots()-1 {
		if sib := parent.children[slot+1]; usableLeafSibling(sib) {
			sibLo, sibHi := parent.slotRange(slot+1, top.lo, top.hi)
			merged := mergeLeaves(t.pool, n, lo, hi, sib.n, sibLo, sibHi)
			t.installMerge(path, top, slot, slot+1, sib.n, merged, retire)
			return true
		}
	}
	return false
}

func usableLeafSibling(e encPtr) bool {
	return !e.isNil() && !e.isDead() && e.v.isLeaf()
}

// installMerge splices merged — the staged replacement for the adjacent
// parent slots [slotLo,slotHi] — back into parent and recurses up
// through ascend exactly as a single-slot replacement would. sib is the
// one published node the merge absorbed; it is queued for retirement,
// same as parent, but only by ascend's eventual publish, never here
// (spec.md §5's dead-marking-after-publication rule). The freshly built
// deficient chunk itself is never queued: it was never published, so no
// reader can be walking it.
func (t *Tree) installMerge(path []pathFrame, top pathFrame, slotLo, slotHi int, sib *node, merged []nodeChunk, retire *[]*node) {
	parent := top.n
	rest := path[:len(path)-1]

	*retire = append(*retire, sib)

	frags := expandFragsRange(parent, slotLo, slotHi, top.lo, top.hi, merged)
	newChunks := chopInternal(t.pool, frags, top.lo, t.mode == ModeAlloc)
	*retire = append(*retire, parent)
	t.ascend(rest, top.lo, top.hi, newChunks, retire)
}

// mergeLeaves concatenates two adjacent leaves' content into one staged
// image and re-chops it, splitting back into two physical nodes if the
// combined count still overflows a single variant.
func mergeLeaves(pool *nodePool, a *node, aLo, aHi uint64, b *node, bLo, bHi uint64) []nodeChunk {
	st := newLeafStage()
	appendLeafFrags(st, a, aHi)
	appendLeafFrags(st, b, bHi)
	st.mergeNilRuns()
	return chopLeaf(pool, st.frags, aLo)
}

func appendLeafFrags(st *leafStage, n *node, nodeHi uint64) {
	for i := 0; i < n.nslots(); i++ {
		var sHi uint64
		if i == n.nslots()-1 {
			sHi = nodeHi
		} else {
			sHi = n.pivots[i]
		}
		st.append(sHi, n.values[i])
	}
}
