package maple

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultReclaimInterval is how often the background sweeper drains
// retired nodes, in the style of database/scheduler's Default*Interval
// knobs.
var DefaultReclaimInterval = 50 * time.Millisecond

// reclaimer defers freeing a superseded subtree until no reader can still
// be walking it, the Go analogue of the kernel's RCU callback queue
// (spec.md §2's "deferred reclamation"). Readers here never pin an epoch
// explicitly; instead the sweeper simply waits one grace interval before
// returning a retired node to the pool, which is sound because a Walker
// never retains a node reference across a root reload and Go's GC keeps
// any node a live reader still holds reachable regardless of what the
// pool does with it.
type reclaimer struct {
	mu      sync.Mutex
	pending []retired
	pool    *nodePool
	log     *zap.Logger

	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

type retired struct {
	n       *node
	bornAt  time.Time
}

func newReclaimer(log *zap.Logger) *reclaimer {
	if log == nil {
		log = zap.NewNop()
	}
	r := &reclaimer{
		log:    log,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *reclaimer) attachPool(p *nodePool) {
	r.mu.Lock()
	r.pool = p
	r.mu.Unlock()
}

// defer_ marks n dead and queues it for reclamation. Only n itself is
// queued; nodes it points to are not. Named with a trailing underscore
// because "defer" is a keyword.
func (r *reclaimer) defer_(n *node) {
	if n == nil {
		return
	}
	n.markDead()
	r.mu.Lock()
	r.pending = append(r.pending, retired{n: n, bornAt: time.Now()})
	r.mu.Unlock()
}

func (r *reclaimer) run() {
	defer close(r.doneCh)
	t := time.NewTicker(DefaultReclaimInterval)
	defer t.Stop()
	for {
		select {
		case <-r.stopCh:
			return
		case <-t.C:
			r.sweep()
		}
	}
}

func (r *reclaimer) sweep() {
	r.mu.Lock()
	if len(r.pending) == 0 {
		r.mu.Unlock()
		return
	}
	cutoff := time.Now().Add(-DefaultReclaimInterval)
	ready := r.pending[:0:0]
	var keep []retired
	for _, e := range r.pending {
		if e.bornAt.Before(cutoff) {
			ready = append(ready, e)
		} else {
			keep = append(keep, e)
		}
	}
	r.pending = keep
	pool := r.pool
	r.mu.Unlock()

	if pool == nil {
		return
	}
	for _, e := range ready {
		pool.put(e.n)
	}
	if len(ready) > 0 {
		r.log.Debug("reclaimed nodes", zap.Int("count", len(ready)))
	}
}

func (r *reclaimer) stop() {
	r.once.Do(func() {
		close(r.stopCh)
		<-r.doneCh
	})
}
