// Package hash implements the chained string-keyed hash table shared by the
// parser's type/function/cfunc registries and the VM's native-binding
// registry. Struct member tables are plain Go maps, not this table.
package hash

const initialCapacity = 16

type entry struct {
	key   string
	value interface{}
	next  *entry
}

// Table is a chaining hash table with string keys and opaque values. It
// does not rehash as it grows past its initial capacity; see the Open
// Questions note in SPEC_FULL.md for why that's a kept design choice rather
// than an oversight.
type Table struct {
	buckets  []*entry
	capacity int
	size     int
}

// New returns an empty table with the default initial capacity.
func New() *Table {
	return &Table{
		buckets:  make([]*entry, initialCapacity),
		capacity: initialCapacity,
	}
}

// djb2, seed 5381: h = ((h << 5) + h) + c, i.e. h = h*33 + c.
func stringHash(key string) uint64 {
	h := uint64(5381)
	for i := 0; i < len(key); i++ {
		h = ((h << 5) + h) + uint64(key[i])
	}
	return h
}

func (t *Table) index(key string) int {
	return int(stringHash(key) % uint64(t.capacity))
}

// Insert adds key -> value. Duplicate keys are not checked; the newest
// insert shadows older ones with the same key during Get, matching the
// chain-prepend behavior of the original table.
func (t *Table) Insert(key string, value interface{}) {
	idx := t.index(key)
	t.buckets[idx] = &entry{key: key, value: value, next: t.buckets[idx]}
	t.size++
}

// Get returns the value for key and whether it was found.
func (t *Table) Get(key string) (interface{}, bool) {
	for e := t.buckets[t.index(key)]; e != nil; e = e.next {
		if e.key == key {
			return e.value, true
		}
	}
	return nil, false
}

// Remove deletes the most recently inserted entry for key (the one Get
// would return) and reports whether one was found. original_source's own
// hash_remove is an unfinished stub (always returns NULL without touching
// the chain); this unlinks the matching entry from its bucket instead,
// since spec 4.A lists remove as a required table operation.
func (t *Table) Remove(key string) (interface{}, bool) {
	idx := t.index(key)
	var prev *entry
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.key == key {
			if prev != nil {
				prev.next = e.next
			} else {
				t.buckets[idx] = e.next
			}
			t.size--
			return e.value, true
		}
		prev = e
	}
	return nil, false
}

// Size returns the number of inserted entries (including shadowed
// duplicates), matching the original's unconditional size++ on insert.
func (t *Table) Size() int { return t.size }

// Foreach visits every entry in unspecified order, invoking fn on each.
func (t *Table) Foreach(fn func(key string, value interface{})) {
	for _, bucket := range t.buckets {
		for e := bucket; e != nil; e = e.next {
			fn(e.key, e.value)
		}
	}
}
