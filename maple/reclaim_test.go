package maple

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReclaimer_DefersAndSweepsNode(t *testing.T) {
	r := newReclaimer(nil)
	defer r.stop()
	pool := newNodePool()
	r.attachPool(pool)

	n := &node{variant: leafNarrow}
	r.defer_(n)
	assert.True(t, n.isDead(), "a deferred node must be marked dead immediately")

	r.mu.Lock()
	require.Len(t, r.pending, 1)
	r.mu.Unlock()

	// force the entry past the grace window and sweep it by hand rather
	// than sleeping a full interval.
	r.mu.Lock()
	r.pending[0].bornAt = time.Now().Add(-2 * DefaultReclaimInterval)
	r.mu.Unlock()
	r.sweep()

	r.mu.Lock()
	assert.Len(t, r.pending, 0)
	r.mu.Unlock()
}

func TestReclaimer_StopIsIdempotent(t *testing.T) {
	r := newReclaimer(nil)
	r.stop()
	assert.NotPanics(t, func() { r.stop() })
}
