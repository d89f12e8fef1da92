package model

// ID identifies an item within a list. Assigned once by an Allocator and
// never reused for another item of the same list.
type ID int64

// Item is the domain model for a todo entry.
type Item struct {
	ID   ID     `json:"id"`
	Text string `json:"text"`
}

// List is the ordered set of items shown to the user.
type List []Item

// Clone returns a copy that shares no backing array with l.
// A nil list clones to an empty, non-nil list so it serializes as [].
func (l List) Clone() List {
	out := make(List, len(l))
	copy(out, l)
	return out
}

// IndexOf returns the position of the item with the given id, or -1.
func (l List) IndexOf(id ID) int {
	for i, it := range l {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// MaxID returns the largest id in the list (0 for an empty list).
func (l List) MaxID() ID {
	var max ID
	for _, it := range l {
		if it.ID > max {
			max = it.ID
		}
	}
	return max
}

// Equal reports whether both lists hold the same items in the same order.
func (l List) Equal(other List) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}
