package model

import (
	"errors"
	"testing"
)

type noopAction struct{}

func (noopAction) Tag() string { return "NOOP" }

func sample() List {
	return List{{ID: 1, Text: "buy milk"}, {ID: 2, Text: "walk dog"}, {ID: 3, Text: "file taxes"}}
}

func TestAddAppendsWithFreshID(t *testing.T) {
	ids := NewAllocator()
	state := sample()
	ids.Observe(state)
	r := NewReducer(ids)

	next, err := r.Reduce(state, Add{Text: "call mom"})
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if len(next) != len(state)+1 {
		t.Fatalf("expected %d items, got %d", len(state)+1, len(next))
	}
	added := next[len(next)-1]
	if added.Text != "call mom" {
		t.Fatalf("expected appended text %q, got %q", "call mom", added.Text)
	}
	if state.IndexOf(added.ID) != -1 {
		t.Fatalf("new id %d collides with existing item", added.ID)
	}
}

func TestAddAcceptsEmptyText(t *testing.T) {
	r := NewReducer(NewAllocator())
	next, err := r.Reduce(nil, Add{})
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if len(next) != 1 || next[0].Text != "" || next[0].ID != 1 {
		t.Fatalf("unexpected list %+v", next)
	}
}

func TestUpdateKeepsPosition(t *testing.T) {
	r := NewReducer(NewAllocator())
	state := sample()
	repl := Item{ID: 2, Text: "walk the dog twice"}

	next, err := r.Reduce(state, Update{Item: repl})
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if len(next) != len(state) {
		t.Fatalf("length changed: %d -> %d", len(state), len(next))
	}
	if next[1] != repl {
		t.Fatalf("expected %+v at index 1, got %+v", repl, next[1])
	}
	if next[0] != state[0] || next[2] != state[2] {
		t.Fatalf("neighbours changed: %+v", next)
	}
}

func TestUpdateUnknownIDIsNoop(t *testing.T) {
	r := NewReducer(NewAllocator())
	state := sample()

	next, err := r.Reduce(state, Update{Item: Item{ID: 42, Text: "ghost"}})
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if !next.Equal(state) {
		t.Fatalf("expected unchanged list, got %+v", next)
	}
}

func TestRemoveDropsItemAndIsIdempotent(t *testing.T) {
	r := NewReducer(NewAllocator())
	state := sample()
	target := state[1]

	once, err := r.Reduce(state, Remove{Item: target})
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if len(once) != len(state)-1 {
		t.Fatalf("expected %d items, got %d", len(state)-1, len(once))
	}
	if once.IndexOf(target.ID) != -1 {
		t.Fatalf("item %d still present", target.ID)
	}
	if once[0] != state[0] || once[1] != state[2] {
		t.Fatalf("relative order not kept: %+v", once)
	}

	twice, err := r.Reduce(once, Remove{Item: target})
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if !twice.Equal(once) {
		t.Fatalf("second remove changed the list: %+v", twice)
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	ids := NewAllocator()
	state := sample()
	ids.Observe(state)
	before := state.Clone()
	r := NewReducer(ids)

	actions := []Action{
		Add{Text: "x"},
		Update{Item: Item{ID: 1, Text: "changed"}},
		Remove{Item: Item{ID: 3}},
	}
	for _, a := range actions {
		if _, err := r.Reduce(state, a); err != nil {
			t.Fatalf("%s: %v", a.Tag(), err)
		}
		if !state.Equal(before) {
			t.Fatalf("%s mutated input: %+v", a.Tag(), state)
		}
	}
}

func TestAddDoesNotAliasSpareCapacity(t *testing.T) {
	r := NewReducer(NewAllocator())
	state := make(List, 1, 8)
	state[0] = Item{ID: 100, Text: "a"}

	a, _ := r.Reduce(state, Add{Text: "first"})
	b, _ := r.Reduce(state, Add{Text: "second"})
	if a[1].Text != "first" || b[1].Text != "second" {
		t.Fatalf("results share a backing array: %+v %+v", a, b)
	}
}

func TestUnknownActionFails(t *testing.T) {
	r := NewReducer(NewAllocator())
	_, err := r.Reduce(sample(), noopAction{})
	if !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
	var ua *UnknownActionError
	if !errors.As(err, &ua) || ua.Tag != "NOOP" {
		t.Fatalf("expected tag NOOP, got %v", err)
	}

	if _, err := r.Reduce(sample(), nil); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected nil action to be rejected, got %v", err)
	}
}
