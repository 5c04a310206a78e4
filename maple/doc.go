// Package maple implements an ordered, range-keyed associative container
// over the unsigned 64-bit key domain [0, MaxKey]. Keys are half-open,
// inclusive-inclusive ranges [first, last]; values are opaque pointers.
//
// The container is a B-tree variant: internal and leaf nodes hold several
// key boundaries ("pivots") and corresponding child or value slots, so a
// single node encodes many contiguous ranges at once. Writers are
// serialized by the tree's lock; readers run lock-free against a
// copy-on-modify structure and are published new subtrees with a single
// pointer swap, never observing a partially built node.
package maple
