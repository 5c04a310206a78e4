package maple

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

// Mode selects whether a Tree tracks per-subtree empty-range gaps. Gap
// tracking costs an extra slice per internal node and extra bookkeeping on
// every structural change, so it is opt-in (spec.md §6).
type Mode uint8

const (
	ModeRange Mode = iota
	ModeAlloc
)

// Tree is a single ordered, range-keyed associative container over
// [0, MaxKey]. The zero value is not usable; construct with New.
//
// Readers take no lock: they load the root pointer once (an atomic
// acquire-load) and then walk an immutable snapshot of the tree, per
// spec.md §2's copy-on-modify discipline. Writers serialize on mu for the
// whole duration of a single logical operation, matching the kernel's
// single-writer-lock model.
type Tree struct {
	mu     sync.RWMutex
	root   atomic.Pointer[encPtr]
	mode   Mode
	size   atomic.Int64
	height atomic.Uint32

	log        *zap.Logger
	ids        *snowflake.Node
	pool       *nodePool
	reclm      *reclaimer
	nodeBudget int64
}

// Option configures a Tree at construction time.
type Option func(*Tree)

// WithAllocMode enables gap-tracking internal nodes, needed for Alloc and
// AllocRev (spec.md §6). It cannot be changed after construction.
func WithAllocMode() Option {
	return func(t *Tree) { t.mode = ModeAlloc }
}

// WithLogger installs a structured logger; the default is zap's no-op
// logger so a Tree is silent unless the caller opts in.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tree) {
		if l != nil {
			t.log = l
		}
	}
}

// WithNodeID seeds the snowflake node used to stamp operation IDs in log
// lines. Each write carries its ID on its own log lines (a failed descent
// and the commit); splits and the background reclaimer log no op ID.
func WithNodeID(id int64) Option {
	return func(t *Tree) {
		n, err := snowflake.NewNode(id)
		if err == nil {
			t.ids = n
		}
	}
}

// WithNodeBudget caps the allocation cache (spec.md §2 item 12): the most
// nodes a single writer operation may reserve headroom for before it
// starts mutating the tree. Exceeding it fails the whole operation with
// ErrOOM before any node is touched. Zero (the default) is unbounded.
func WithNodeBudget(max int64) Option {
	return func(t *Tree) { t.nodeBudget = max }
}

// New constructs an empty Tree.
func New(opts ...Option) *Tree {
	t := &Tree{
		log: zap.NewNop(),
	}
	if n, err := snowflake.NewNode(1); err == nil {
		t.ids = n
	}
	for _, o := range opts {
		o(t)
	}
	t.pool = newNodePool()
	t.pool.budget = t.nodeBudget
	t.reclm = newReclaimer(t.log)
	t.reclm.attachPool(t.pool)
	t.root.Store(&encPtr{})
	return t
}

func (t *Tree) loadRoot() encPtr {
	p := t.root.Load()
	if p == nil {
		return encPtr{}
	}
	return *p
}

func (t *Tree) storeRoot(e encPtr) {
	e.root = true
	if e.n != nil {
		e.n.setRootParent(t)
	}
	old := t.root.Swap(&e)
	if old != nil && old.n != nil {
		t.reclm.defer_(old.n)
	}
}

func (t *Tree) opID() int64 {
	if t.ids == nil {
		return 0
	}
	return t.ids.Generate().Int64()
}

// Len reports the number of distinct stored (non-absent) ranges.
func (t *Tree) Len() int64 { return t.size.Load() }

// Height reports the current root-to-leaf distance, 0 for an empty tree.
func (t *Tree) Height() uint32 { return t.height.Load() }

// Destroy empties the tree, scheduling every live node for deferred
// reclamation (spec.md §6's destroy()). The Tree remains usable
// afterward; the next write lazily reinitializes an empty root.
func (t *Tree) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()
	// storeRoot publishes the new (empty) root before marking the old one
	// dead, so a reader who loaded the old root a moment before Destroy
	// never sees it go dead out from under an in-flight descent.
	t.storeRoot(encPtr{})
	t.size.Store(0)
	t.height.Store(0)
}

// Close stops the background reclaimer. A Tree is still readable and
// writable after Close; Close only ensures the reclaimer goroutine is not
// leaked, mirroring how database/scheduler's workers are torn down.
func (t *Tree) Close() error {
	t.reclm.stop()
	return nil
}

// Load returns the value stored at index, or (nil, false) if index falls
// in an absent range or is out of bounds.
func (t *Tree) Load(ctx context.Context, index uint64) (Value, bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	w := newWalker(t, index, index)
	w.walkTo(index)
	if w.state != wsLive {
		return nil, false
	}
	v := w.node.values[w.offset]
	if v == nil {
		return nil, false
	}
	return v, true
}

// LoadRange returns the single slot's range and value covering index, or
// ok=false if index is absent. The returned [lo,hi] may extend beyond
// [index,index] — callers that need exact bounds can rely on this to
// discover a whole contiguous run in one walk.
func (t *Tree) LoadRange(ctx context.Context, index uint64) (lo, hi uint64, v Value, ok bool) {
	w := newWalker(t, index, index)
	w.walkTo(index)
	if w.state != wsLive {
		return 0, 0, nil, false
	}
	v = w.node.values[w.offset]
	if v == nil {
		return 0, 0, nil, false
	}
	lo, hi = w.slotBounds()
	return lo, hi, v, true
}
