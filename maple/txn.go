package maple

import (
	"context"
	"sync"
)

// Txn batches a sequence of writes against a Tree and applies or discards
// them as one unit. Adapted from database/transaction/tx.go's queued
// operation/rollback-closure design, generalized from single-key
// set/delete to range stores: queuing a write first snapshots whatever
// the affected window currently holds, so Rollback can restore it
// slot-for-slot regardless of how many prior entries the window touched.
type Txn struct {
	tree       *Tree
	operations []func(ctx context.Context) error
	rollback   []func(ctx context.Context)
	m          sync.Mutex
	cancelled  bool
	done       bool
}

// NewTxn constructs a transaction bound to tree. Mirrors the teacher's
// choice to panic on misuse rather than return an error for what it
// treats as a programming mistake, not a runtime condition.
func NewTxn(tree *Tree) *Txn {
	if tree == nil {
		panic("maple: NewTxn called with nil tree")
	}
	return &Txn{tree: tree}
}

type rangeSnapshot struct {
	first, last uint64
	value       Value
}

func snapshotRange(t *Tree, first, last uint64) []rangeSnapshot {
	var out []rangeSnapshot
	it := t.Cursor(first)
	ctx := context.Background()
	for {
		lo, hi, v, ok := it.Next(ctx)
		if !ok || lo > last {
			break
		}
		out = append(out, rangeSnapshot{first: lo, last: hi, value: v})
	}
	return out
}

func restoreRange(ctx context.Context, t *Tree, first, last uint64, prevs []rangeSnapshot) {
	_ = t.Store(ctx, first, last, nil)
	for _, p := range prevs {
		_ = t.Store(ctx, p.first, p.last, p.value)
	}
}

// Store queues a store_range operation.
func (tx *Txn) Store(first, last uint64, value Value) {
	tx.m.Lock()
	defer tx.m.Unlock()

	prevs := snapshotRange(tx.tree, first, last)
	tx.rollback = append(tx.rollback, func(ctx context.Context) {
		restoreRange(ctx, tx.tree, first, last, prevs)
	})
	tx.operations = append(tx.operations, func(ctx context.Context) error {
		return tx.tree.Store(ctx, first, last, value)
	})
}

// Erase queues an erase over [first,last].
func (tx *Txn) Erase(first, last uint64) {
	tx.Store(first, last, nil)
}

// Commit applies all queued operations to the tree in order, each as its
// own tree write. It stops at the first error (or context cancellation),
// leaving the operations before it applied. After a Rollback that
// discarded the queue, Commit applies nothing and returns nil.
func (tx *Txn) Commit(ctx context.Context) error {
	if ctx == nil {
		panic("maple: Commit called with nil context")
	}
	tx.m.Lock()
	defer tx.m.Unlock()

	if tx.cancelled {
		return nil
	}
	if tx.done {
		panic("maple: transaction has already been committed; create a new Txn")
	}

	for _, op := range tx.operations {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := op(ctx); err != nil {
				return err
			}
		}
	}
	tx.done = true
	tx.operations = nil
	return nil
}

// Rollback reverts all operations applied by Commit, restoring each queued
// write's snapshot in reverse order, one tree write at a time. Unlike a
// traditional transaction, it may also be called before Commit, in which
// case it simply discards the queue.
func (tx *Txn) Rollback(ctx context.Context) {
	if ctx == nil {
		panic("maple: Rollback called with nil context")
	}
	tx.m.Lock()
	defer tx.m.Unlock()

	if !tx.done {
		tx.rollback = nil
		tx.operations = nil
		tx.cancelled = true
		return
	}

	for i := len(tx.rollback) - 1; i >= 0; i-- {
		select {
		case <-ctx.Done():
			return
		default:
			tx.rollback[i](ctx)
		}
	}
	tx.rollback = nil
}
