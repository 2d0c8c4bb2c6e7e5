package vm

import "github.com/DavidWilson4242/spyre/internal/spyreerr"

// segment is one heap record: a struct-type name (for diagnostics), its
// declared member count, and a mark bit flipped by the collector. Members
// are stored as raw 64-bit words; a word is treated as a segment id (and
// recursed into by the collector) whenever it is non-zero, since the
// bytecode format carries no per-member type tag once codegen has erased
// struct field types into flat word slots (spec.md 9, "cyclic heap" note —
// "either is acceptable provided member offsets are preserved").
type segment struct {
	typeName string
	members  []uint64
	marked   bool
}

// Heap is the segment allocator spec.md 4.H describes: allocs is a sparse
// vector of segment pointers, index is the next fresh id, avail is a stack
// of reclaimed ids. Segment id 0 is reserved as the null sentinel and is
// never allocated.
type Heap struct {
	allocs []*segment
	avail  []int
	index  int
}

// NewHeap returns an empty heap with the null sentinel reserved at id 0.
func NewHeap() *Heap {
	return &Heap{allocs: []*segment{nil}, index: 1}
}

// Alloc reserves a segment of nmembers words (at least 1), repeated
// elemCount times to back a flattened multi-dimensional `new`; elemCount is
// 1 for a plain `new T`. Returns the fresh or reclaimed segment id.
func (h *Heap) Alloc(typeName string, nmembers int, elemCount int) (int, error) {
	if nmembers < 1 {
		nmembers = 1
	}
	if elemCount < 1 {
		elemCount = 1
	}
	seg := &segment{
		typeName: typeName,
		members:  make([]uint64, nmembers*elemCount),
	}

	if n := len(h.avail); n > 0 {
		id := h.avail[n-1]
		h.avail = h.avail[:n-1]
		h.allocs[id] = seg
		return id, nil
	}

	id := h.index
	h.index++
	h.allocs = append(h.allocs, seg)
	return id, nil
}

func (h *Heap) get(id int) (*segment, error) {
	if id <= 0 || id >= len(h.allocs) {
		return nil, spyreerr.New(spyreerr.Runtime, "", 0, "segment id %d out of range", id)
	}
	seg := h.allocs[id]
	if seg == nil {
		return nil, spyreerr.New(spyreerr.Runtime, "", 0, "use of freed segment %d", id)
	}
	return seg, nil
}

// Free deallocates id, nulling its slot and pushing it onto the reclaimed
// list. Freeing the null sentinel or an already-free id is a runtime error.
func (h *Heap) Free(id int) error {
	if _, err := h.get(id); err != nil {
		return err
	}
	h.allocs[id] = nil
	h.avail = append(h.avail, id)
	return nil
}

// GC runs the three-phase stop-the-world mark-and-sweep (spec.md 4.H):
// unmark every live segment, mark everything reachable from roots, then
// sweep (free) whatever is left unmarked. Returns the count of segments
// freed by this run.
func (h *Heap) GC(roots []uint64) int {
	for _, seg := range h.allocs {
		if seg != nil {
			seg.marked = false
		}
	}

	for _, rootID := range roots {
		h.mark(int(rootID))
	}

	freed := 0
	for id, seg := range h.allocs {
		if id == 0 || seg == nil {
			continue
		}
		if !seg.marked {
			h.allocs[id] = nil
			h.avail = append(h.avail, id)
			freed++
		}
	}
	return freed
}

// mark is idempotent (it returns immediately on an already-marked segment),
// so cyclic heaps terminate.
func (h *Heap) mark(id int) {
	if id <= 0 || id >= len(h.allocs) {
		return
	}
	seg := h.allocs[id]
	if seg == nil || seg.marked {
		return
	}
	seg.marked = true
	for _, m := range seg.members {
		if m != 0 {
			h.mark(int(m))
		}
	}
}
