package hash_test

import (
	"testing"

	"github.com/DavidWilson4242/spyre/hash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertGet(t *testing.T) {
	h := hash.New()
	h.Insert("foo", 1)
	h.Insert("bar", 2)

	v, ok := h.Get("foo")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = h.Get("bar")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestGetMissing(t *testing.T) {
	h := hash.New()
	_, ok := h.Get("nope")
	assert.False(t, ok)
}

func TestShadowing(t *testing.T) {
	h := hash.New()
	h.Insert("x", 1)
	h.Insert("x", 2)
	assert.Equal(t, 2, h.Size())

	v, ok := h.Get("x")
	require.True(t, ok)
	assert.Equal(t, 2, v, "most recent insert should shadow the older one")
}

func TestForeachVisitsAll(t *testing.T) {
	h := hash.New()
	want := map[string]int{"a": 1, "b": 2, "c": 3}
	for k, v := range want {
		h.Insert(k, v)
	}

	got := map[string]int{}
	h.Foreach(func(key string, value interface{}) {
		got[key] = value.(int)
	})

	assert.Equal(t, want, got)
}

func TestRemoveUnlinksMostRecentEntry(t *testing.T) {
	h := hash.New()
	h.Insert("x", 1)
	h.Insert("x", 2)

	v, ok := h.Remove("x")
	require.True(t, ok)
	assert.Equal(t, 2, v, "remove should take the most recent insert, matching Get")
	assert.Equal(t, 1, h.Size())

	v, ok = h.Get("x")
	require.True(t, ok)
	assert.Equal(t, 1, v, "the shadowed entry is still reachable after removing the shadowing one")
}

func TestRemoveMissingKeyIsNoop(t *testing.T) {
	h := hash.New()
	h.Insert("a", 1)

	_, ok := h.Remove("nope")
	assert.False(t, ok)
	assert.Equal(t, 1, h.Size())
}

func TestManyEntriesNoRehash(t *testing.T) {
	h := hash.New()
	for i := 0; i < 500; i++ {
		h.Insert(string(rune('a'+(i%26)))+string(rune(i)), i)
	}
	assert.Equal(t, 500, h.Size())
}
