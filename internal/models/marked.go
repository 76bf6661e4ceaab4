package models

// MarkedSet holds the items whose deletion has already been decided earlier
// in the same cleanup pass. Later in-use checks consult it so that, for
// example, an image is not kept alive by an instance that is itself about to
// be deleted. The set is transient: it is created empty for each pass and
// must never be shared between passes.
type MarkedSet struct {
	keys map[Key]struct{}
}

// NewMarkedSet creates an empty marked set
func NewMarkedSet() *MarkedSet {
	return &MarkedSet{keys: make(map[Key]struct{})}
}

// Add marks an item for deletion
func (s *MarkedSet) Add(item Item) {
	s.keys[KeyOf(item)] = struct{}{}
}

// Contains reports whether the item is already marked for deletion
func (s *MarkedSet) Contains(item Item) bool {
	return s.ContainsKey(KeyOf(item))
}

// ContainsKey reports whether the identity is already marked for deletion
func (s *MarkedSet) ContainsKey(key Key) bool {
	_, ok := s.keys[key]
	return ok
}

// Len returns the number of marked items
func (s *MarkedSet) Len() int {
	return len(s.keys)
}
