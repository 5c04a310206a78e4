package maple

// MaxKey is the largest representable index: the key domain is [0, MaxKey]
// (spec.md §1).
const MaxKey = ^uint64(0)

// walkTo descends from the tree root to the leaf slot that covers index,
// following spec.md §4.3's range_walk: at each level, find the slot whose
// pivot range contains the index, then step into that slot's child. Two
// conditions force a restart from the root rather than a silent wrong
// answer: stepping into a node the dead-node protocol marks dead, and
// stepping into a nil child slot (a concurrent writer tore the subtree out
// from under this reader mid-descent).
//
// On a live landing, w.nodeMin/w.nodeMax hold the *leaf's own* incoming
// bounds (the range its parent handed it), not the narrower bounds of the
// single slot at w.offset — callers recover the slot's own [lo,hi] with
// w.node.slotRange(w.offset, w.nodeMin, w.nodeMax).
func (w *Walker) walkTo(index uint64) {
	for {
		w.reset(index, w.last)
		if w.descendOnce() {
			return
		}
		w.restartBudget--
		if w.restartBudget <= 0 {
			w.fail(ErrCorrupt)
			return
		}
	}
}

func (w *Walker) descendOnce() bool {
	root := w.tree.loadRoot()
	if root.isNil() {
		w.state = wsNone
		return true
	}
	if root.isDead() {
		return false
	}

	cur := root
	nodeMin, nodeMax := uint64(0), MaxKey
	w.path = w.path[:0]

	for {
		n := cur.n
		off, lo, hi, found := n.findSlot(nodeMin, nodeMax, w.index)
		if !found {
			w.state = wsNone
			return true
		}

		if n.variant.isLeaf() {
			w.node = n
			w.nodeMin = nodeMin
			w.nodeMax = nodeMax
			w.offset = off
			w.state = wsLive
			return true
		}

		child := n.children[off]
		if child.isNil() || child.isDead() {
			return false
		}

		w.path = append(w.path, pathFrame{n: n, slot: off, fam: n.variant.family(), lo: nodeMin, hi: nodeMax})
		cur = child
		nodeMin, nodeMax = lo, hi
	}
}

// slotBounds returns the [lo,hi] of the slot the walker currently sits on.
func (w *Walker) slotBounds() (lo, hi uint64) {
	return w.node.slotRange(w.offset, w.nodeMin, w.nodeMax)
}

// walkNext/walkPrev step to the adjacent live leaf slot, crossing node
// boundaries by re-walking from the root at the adjacent key. This is the
// always-correct fallback the kernel itself takes once an in-node fast
// step runs off the end (mas_next/mas_prev's "node walk" path, spec.md
// §4.8); this implementation has no same-node fast path.
func (w *Walker) walkNext() bool {
	if w.state != wsLive {
		return false
	}
	_, hi := w.slotBounds()
	if hi == MaxKey {
		w.state = wsNone
		return true
	}
	w.walkTo(hi + 1)
	return true
}

func (w *Walker) walkPrev() bool {
	if w.state != wsLive {
		return false
	}
	lo, _ := w.slotBounds()
	if lo == 0 {
		w.state = wsNone
		return true
	}
	w.walkTo(lo - 1)
	return true
}
