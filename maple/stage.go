package maple

// maxFanout is the widest real node variant's slot count.
const maxFanout = 32

// stageCap bounds a staging buffer at "2*max-fanout + 2" (spec.md §2.6): a
// single local write can touch at most a full leaf's worth of existing
// slots plus the up-to-two new fragments a mid-leaf insert introduces, so
// this ceiling is never reached in practice, but callers still size their
// backing arrays to it rather than growing unbounded.
const stageCap = 2*maxFanout + 2

// leafFrag is one candidate slot in a leaf's post-write image: the value
// and the inclusive upper bound of the range it covers. The lower bound
// is implicit — one past the previous fragment's hi, or the leaf's own
// incoming nodeMin for the first fragment.
type leafFrag struct {
	hi uint64
	v  Value
}

// leafStage assembles a leaf's full post-write content before it is
// chopped (split.go) into one or more physical leaf nodes.
type leafStage struct {
	frags []leafFrag
}

func newLeafStage() *leafStage {
	return &leafStage{frags: make([]leafFrag, 0, stageCap)}
}

func (s *leafStage) append(hi uint64, v Value) {
	s.frags = append(s.frags, leafFrag{hi: hi, v: v})
}

// mergeNilRuns coalesces adjacent fragments that both hold the absent
// value: two neighboring absent ranges are one logical gap and must not
// occupy two slots (spec.md §4.4's "extend-null" rule; also needed to
// keep gap tracking in allocInternalWide ancestors meaningful).
func (s *leafStage) mergeNilRuns() {
	out := s.frags[:0]
	for _, f := range s.frags {
		if n := len(out); n > 0 && out[n-1].v == nil && f.v == nil {
			out[n-1].hi = f.hi
			continue
		}
		out = append(out, f)
	}
	s.frags = out
}

// childFrag is one candidate child-slot in an internal node's post-write
// image.
type childFrag struct {
	hi  uint64
	c   encPtr
	gap uint64
}

type internalStage struct {
	frags []childFrag
}

func newInternalStage() *internalStage {
	return &internalStage{frags: make([]childFrag, 0, stageCap)}
}

func (s *internalStage) append(hi uint64, c encPtr, gap uint64) {
	s.frags = append(s.frags, childFrag{hi: hi, c: c, gap: gap})
}
