// Package favorite models a user's durable set of favorite heads.
package favorite

// Key identifies a head by category and item name.
type Key struct {
	Category string
	Item     string
}

// Record is one stored favorite. Unique per (UserID, Category, Item).
type Record struct {
	UserID   string
	Category string
	Item     string
}

// Key returns the (category, item) pair of the record.
func (r Record) Key() Key {
	return Key{Category: r.Category, Item: r.Item}
}

// Outcome is the result of a toggle.
type Outcome int

const (
	Added Outcome = iota + 1
	Removed
)

func (o Outcome) String() string {
	switch o {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Set is an immutable snapshot of favorite keys. Use With and Without to
// derive new sets.
type Set struct {
	keys map[Key]struct{}
}

// NewSet builds a set from stored records.
func NewSet(records []Record) Set {
	keys := make(map[Key]struct{}, len(records))
	for _, r := range records {
		keys[r.Key()] = struct{}{}
	}
	return Set{keys: keys}
}

// Has reports whether k is in the set.
func (s Set) Has(k Key) bool {
	_, ok := s.keys[k]
	return ok
}

// Len returns the number of keys.
func (s Set) Len() int {
	return len(s.keys)
}

// With returns a copy of s containing k.
func (s Set) With(k Key) Set {
	next := s.clone(1)
	next.keys[k] = struct{}{}
	return next
}

// Without returns a copy of s without k.
func (s Set) Without(k Key) Set {
	next := s.clone(0)
	delete(next.keys, k)
	return next
}

func (s Set) clone(extra int) Set {
	keys := make(map[Key]struct{}, len(s.keys)+extra)
	for k := range s.keys {
		keys[k] = struct{}{}
	}
	return Set{keys: keys}
}
