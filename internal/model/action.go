package model

import (
	"encoding/json"
	"fmt"
)

// Action tags, as they appear on the wire.
const (
	TagAdd    = "ADD_TODO"
	TagUpdate = "UPDATE_TODO"
	TagRemove = "REMOVE_TODO"
)

// Action is a request to change a List. The reducer handles Add, Update and
// Remove; anything else is rejected with an UnknownActionError.
type Action interface {
	Tag() string
}

// Add appends a new item holding Text.
type Add struct {
	Text string
}

// Update replaces the item sharing Item.ID.
type Update struct {
	Item Item
}

// Remove drops the item with Item.ID.
type Remove struct {
	Item Item
}

func (Add) Tag() string    { return TagAdd }
func (Update) Tag() string { return TagUpdate }
func (Remove) Tag() string { return TagRemove }

// wireAction is the tagged JSON form of an action.
type wireAction struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Item *Item  `json:"item,omitempty"`
}

// DecodeAction parses a tagged action such as {"type":"ADD_TODO","text":"milk"}.
func DecodeAction(b []byte) (Action, error) {
	var w wireAction
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	switch w.Type {
	case TagAdd:
		return Add{Text: w.Text}, nil
	case TagUpdate, TagRemove:
		if w.Item == nil {
			return nil, fmt.Errorf("%s: missing item", w.Type)
		}
		if w.Type == TagUpdate {
			return Update{Item: *w.Item}, nil
		}
		return Remove{Item: *w.Item}, nil
	}
	return nil, &UnknownActionError{Tag: w.Type}
}

func tagOf(a Action) string {
	if a == nil {
		return "<nil>"
	}
	return a.Tag()
}
