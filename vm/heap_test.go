package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario 5: a cyclic heap of two Node{next: Node} segments. While both
// are rooted, GC frees 0; once both roots are gone, GC frees 2 (the cycle
// is only collectible via mark-sweep, not refcounting).
func TestHeapGCCyclicHeapTerminates(t *testing.T) {
	h := NewHeap()
	a, err := h.Alloc("Node", 1, 1)
	require.NoError(t, err)
	b, err := h.Alloc("Node", 1, 1)
	require.NoError(t, err)

	segA, err := h.get(a)
	require.NoError(t, err)
	segB, err := h.get(b)
	require.NoError(t, err)
	segA.members[0] = uint64(b)
	segB.members[0] = uint64(a)

	freed := h.GC([]uint64{uint64(a), uint64(b)})
	assert.Equal(t, 0, freed)

	freed = h.GC(nil)
	assert.Equal(t, 2, freed)
}

// GC mark-and-sweep is idempotent: running it twice with no mutator
// activity between frees no additional segments on the second run.
func TestHeapGCIsIdempotent(t *testing.T) {
	h := NewHeap()
	_, err := h.Alloc("Point", 2, 1)
	require.NoError(t, err)

	freed := h.GC(nil)
	assert.Equal(t, 1, freed)

	freed = h.GC(nil)
	assert.Equal(t, 0, freed)
}

func TestHeapAllocReusesFreedID(t *testing.T) {
	h := NewHeap()
	id1, err := h.Alloc("Point", 2, 1)
	require.NoError(t, err)
	require.NoError(t, h.Free(id1))

	id2, err := h.Alloc("Point", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestHeapFreeingNullSentinelFails(t *testing.T) {
	h := NewHeap()
	assert.Error(t, h.Free(0))
}

func TestHeapMultiDimensionalAllocSizesByElementCount(t *testing.T) {
	h := NewHeap()
	id, err := h.Alloc("Point", 2, 3)
	require.NoError(t, err)
	seg, err := h.get(id)
	require.NoError(t, err)
	assert.Len(t, seg.members, 6)
}
