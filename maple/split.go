package maple

// nodeChunk is one physical node produced by chopping a stage: its own
// [lo,hi] bounds, its encoded pointer, and (allocation-mode trees only)
// the largest empty sub-range anywhere beneath it.
type nodeChunk struct {
	lo, hi uint64
	enc    encPtr
	gap    uint64
}

// chopLeaf turns a leaf's staged post-write fragments into one or more
// physical leaf nodes, splitting in half whenever the fragment count
// exceeds the widest leaf variant's slot count (spec.md §4.6's overflow
// path). nodeMin is the lower bound of frags[0]; every other fragment's
// lower bound is implicit (one past its predecessor's hi).
func chopLeaf(pool *nodePool, frags []leafFrag, nodeMin uint64) []nodeChunk {
	if v := narrowestFor(len(frags), true, false); v != variantNone {
		return []nodeChunk{buildLeafChunk(pool, frags, nodeMin, v)}
	}
	mid := len(frags) / 2
	splitHi := frags[mid-1].hi
	left := chopLeaf(pool, frags[:mid], nodeMin)
	right := chopLeaf(pool, frags[mid:], splitHi+1)
	return append(left, right...)
}

func buildLeafChunk(pool *nodePool, frags []leafFrag, nodeMin uint64, v variant) nodeChunk {
	n := newLeaf(pool, v)
	cnt := len(frags)
	n.values = make([]Value, cnt)
	if cnt > 1 {
		n.pivots = make([]uint64, cnt-1)
	}
	lo := nodeMin
	var maxGap uint64
	for i, f := range frags {
		n.values[i] = f.v
		if f.v == nil {
			if g := gapSize(lo, f.hi); g > maxGap {
				maxGap = g
			}
		}
		if i < cnt-1 {
			n.pivots[i] = f.hi
		}
		lo = f.hi + 1
	}
	hi := frags[cnt-1].hi
	return nodeChunk{lo: nodeMin, hi: hi, enc: encode(n, v), gap: maxGap}
}

// chopInternal is chopLeaf's internal-node counterpart: it turns a
// post-write child list into one or more physical internal nodes.
func chopInternal(pool *nodePool, frags []childFrag, nodeMin uint64, allocMode bool) []nodeChunk {
	if v := narrowestFor(len(frags), false, allocMode); v != variantNone {
		return []nodeChunk{buildInternalChunk(pool, frags, nodeMin, v, allocMode)}
	}
	mid := len(frags) / 2
	splitHi := frags[mid-1].hi
	left := chopInternal(pool, frags[:mid], nodeMin, allocMode)
	right := chopInternal(pool, frags[mid:], splitHi+1, allocMode)
	return append(left, right...)
}

func buildInternalChunk(pool *nodePool, frags []childFrag, nodeMin uint64, v variant, allocMode bool) nodeChunk {
	n := newInternal(pool, v)
	cnt := len(frags)
	n.children = make([]encPtr, cnt)
	if cnt > 1 {
		n.pivots = make([]uint64, cnt-1)
	}
	if allocMode {
		n.gaps = make([]uint64, cnt)
	}
	var maxGap uint64
	for i, f := range frags {
		n.children[i] = f.c
		if allocMode {
			n.gaps[i] = f.gap
			if f.gap > maxGap {
				maxGap = f.gap
			}
		}
		if i < cnt-1 {
			n.pivots[i] = f.hi
		}
	}
	n.adoptChildren()
	hi := frags[cnt-1].hi
	return nodeChunk{lo: nodeMin, hi: hi, enc: encode(n, v), gap: maxGap}
}

func gapSize(lo, hi uint64) uint64 {
	if hi < lo {
		return 0
	}
	return hi - lo + 1
}

func gapOf(n *node, slot int) uint64 {
	if !n.variant.isAlloc() {
		return 0
	}
	return n.gaps[slot]
}

func chunksToFrags(chunks []nodeChunk) []childFrag {
	out := make([]childFrag, len(chunks))
	for i, c := range chunks {
		out[i] = childFrag{hi: c.hi, c: c.enc, gap: c.gap}
	}
	return out
}
