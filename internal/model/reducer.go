package model

// IDSource allocates ids for new items. *Allocator implements it.
type IDSource interface {
	Next() ID
}

// Reducer computes the next list from the current one and an action.
type Reducer struct {
	ids IDSource
}

// NewReducer returns a reducer drawing ids for new items from ids.
func NewReducer(ids IDSource) Reducer {
	return Reducer{ids: ids}
}

// Reduce never mutates state; the returned list has its own backing array.
func (r Reducer) Reduce(state List, action Action) (List, error) {
	switch a := action.(type) {
	case Add:
		next := make(List, len(state), len(state)+1)
		copy(next, state)
		return append(next, Item{ID: r.ids.Next(), Text: a.Text}), nil

	case Update:
		next := state.Clone()
		// unknown id: leave the list alone rather than inserting a duplicate
		if i := next.IndexOf(a.Item.ID); i >= 0 {
			next[i] = a.Item
		}
		return next, nil

	case Remove:
		next := make(List, 0, len(state))
		for _, it := range state {
			if it.ID != a.Item.ID {
				next = append(next, it)
			}
		}
		return next, nil
	}
	return nil, &UnknownActionError{Tag: tagOf(action)}
}
