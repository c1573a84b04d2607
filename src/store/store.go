package store

// Store holds the set of broadcast values a node has learned. Values are only
// ever added.
type Store interface {
	// Add inserts v and reports whether it was new.
	Add(v int32) (bool, error)
	// Contains reports whether v is known.
	Contains(v int32) bool
	// Values returns every known value in ascending order.
	Values() []int32
	// Len returns the number of known values.
	Len() int
	// Close releases the resources of the store.
	Close() error
}
