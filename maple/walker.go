package maple

// walkState is the state machine driving a walker's descent, per spec.md
// §4.9: start (not yet descended), live inside a leaf slot, exhausted (ran
// off the end of the key space or landed on an empty tree), or wedged on a
// structural error.
type walkState uint8

const (
	wsStart walkState = iota
	wsLive
	wsNone
	wsError
)

// pathFrame records one internal node crossed during a descent: the node
// itself, which of its slots was taken, that slot's reconstructable
// family, and the node's own incoming [lo,hi] bounds (as handed down by
// its parent). ascend walks this path back toward the root after a leaf
// write, rebuilding exactly the ancestors whose child set changed.
type pathFrame struct {
	n      *node
	slot   int
	fam    family
	lo, hi uint64
}

// Walker is the per-operation cursor that range_walk descends with. It is
// reused across restarts (dead-node / concurrent-mutation retries) rather
// than reallocated, mirroring ma_state reuse in the kernel source.
type Walker struct {
	tree *Tree
	state walkState
	err   error

	node    *node
	nodeMin uint64 // the LEAF's own incoming bounds, not the slot's
	nodeMax uint64
	offset  int
	index   uint64
	last    uint64

	path []pathFrame

	restartBudget int
}

func newWalker(t *Tree, index, last uint64) *Walker {
	return &Walker{
		tree:          t,
		state:         wsStart,
		index:         index,
		last:          last,
		restartBudget: 64,
	}
}

func (w *Walker) reset(index, last uint64) {
	w.state = wsStart
	w.err = nil
	w.node = nil
	w.nodeMin = 0
	w.nodeMax = MaxKey
	w.offset = 0
	w.index = index
	w.last = last
	w.path = w.path[:0]
}

func (w *Walker) fail(err error) {
	w.state = wsError
	w.err = err
}

func (w *Walker) ok() bool { return w.state != wsError }
