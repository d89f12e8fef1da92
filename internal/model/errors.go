package model

import (
	"errors"
	"fmt"
)

// ErrUnknownAction matches every UnknownActionError via errors.Is.
var ErrUnknownAction = errors.New("unknown action")

// UnknownActionError is returned when the reducer or the decoder meets an
// action tag it does not handle. It signals a programming error.
type UnknownActionError struct {
	Tag string
}

func (e *UnknownActionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("unknown action: %s", e.Tag)
}

func (e *UnknownActionError) Is(target error) bool {
	return target == ErrUnknownAction
}
