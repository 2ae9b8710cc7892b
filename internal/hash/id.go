package hash

import "github.com/cespare/xxhash/v2"

// ID computes the xxHash64 of the given string.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}

// Index maps names to dense positions through their xxHash64.
//
// Distinct names that share a hash are chained, so lookups stay exact even
// on collision. The zero value is not usable; call NewIndex.
type Index struct {
	buckets map[uint64][]entry
	count   int
}

type entry struct {
	name string
	pos  int
}

// NewIndex creates an index sized for n names.
func NewIndex(n int) *Index {
	return &Index{buckets: make(map[uint64][]entry, n)}
}

// Add records name at pos. It returns false if name is already present.
func (x *Index) Add(name string, pos int) bool {
	h := ID(name)
	for _, e := range x.buckets[h] {
		if e.name == name {
			return false
		}
	}
	x.buckets[h] = append(x.buckets[h], entry{name: name, pos: pos})
	x.count++

	return true
}

// Get returns the position recorded for name.
func (x *Index) Get(name string) (int, bool) {
	for _, e := range x.buckets[ID(name)] {
		if e.name == name {
			return e.pos, true
		}
	}

	return 0, false
}

// Len returns the number of names in the index.
func (x *Index) Len() int {
	return x.count
}

// Reset clears the index while keeping its allocated buckets.
func (x *Index) Reset() {
	clear(x.buckets)
	x.count = 0
}
