package model

import (
	"errors"
	"testing"
)

func TestDecodeAction(t *testing.T) {
	a, err := DecodeAction([]byte(`{"type":"ADD_TODO","text":"buy milk"}`))
	if err != nil {
		t.Fatalf("decode add: %v", err)
	}
	if add, ok := a.(Add); !ok || add.Text != "buy milk" {
		t.Fatalf("unexpected action %#v", a)
	}

	a, err = DecodeAction([]byte(`{"type":"REMOVE_TODO","item":{"id":4,"text":"x"}}`))
	if err != nil {
		t.Fatalf("decode remove: %v", err)
	}
	if rm, ok := a.(Remove); !ok || rm.Item.ID != 4 {
		t.Fatalf("unexpected action %#v", a)
	}

	if _, err := DecodeAction([]byte(`{"type":"UPDATE_TODO"}`)); err == nil {
		t.Fatalf("expected error for update without item")
	}
}

func TestDecodeUnknownTag(t *testing.T) {
	_, err := DecodeAction([]byte(`{"type":"NOOP"}`))
	var ua *UnknownActionError
	if !errors.As(err, &ua) || ua.Tag != "NOOP" {
		t.Fatalf("expected UnknownAction(NOOP), got %v", err)
	}
}
