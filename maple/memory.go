package maple

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	KiB float64 = 1 << (10 * (iota + 1))
	MiB
	GiB
	TiB

	KB = 1000
	MB = KB * 1000
	GB = MB * 1000
	TB = GB * 1000
)

// Memory is a byte count with human-readable formatting, adapted from the
// teacher's byte-accounting type (database/btree/memory.go) to report a
// Tree's estimated in-memory node footprint.
type Memory uint64

func (m Memory) Bytes() uint64 { return uint64(m) }

func (m Memory) KiB() float64 { return float64(m) / KiB }
func (m Memory) MiB() float64 { return float64(m) / MiB }
func (m Memory) GiB() float64 { return float64(m) / GiB }
func (m Memory) TiB() float64 { return float64(m) / TiB }

func (m Memory) KB() float64 { return float64(m) / KB }
func (m Memory) MB() float64 { return float64(m) / MB }
func (m Memory) GB() float64 { return float64(m) / GB }
func (m Memory) TB() float64 { return float64(m) / TB }

func (m Memory) String() string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%d Bytes", m.Bytes())
}

// Stats summarizes a Tree's current shape and footprint.
type Stats struct {
	Entries    int64
	Height     uint32
	NodeMemory Memory
}

// Stats walks the live tree once to estimate its node memory footprint.
// It takes no lock: like any reader, it only ever follows pointers a
// writer has already published.
func (t *Tree) Stats() Stats {
	return Stats{
		Entries:    t.Len(),
		Height:     t.Height(),
		NodeMemory: Memory(estimateMemory(t.loadRoot())),
	}
}

// nodeOverhead approximates the fixed cost of a node struct plus its
// slice headers, in bytes, on a 64-bit platform.
const nodeOverhead = 64

func estimateMemory(e encPtr) uint64 {
	if e.isNil() {
		return 0
	}
	n := e.n
	size := uint64(nodeOverhead) + uint64(len(n.pivots))*8
	if n.variant.isLeaf() {
		return size + uint64(len(n.values))*16
	}
	size += uint64(len(n.children)) * 24
	size += uint64(len(n.gaps)) * 8
	for _, c := range n.children {
		size += estimateMemory(c)
	}
	return size
}
