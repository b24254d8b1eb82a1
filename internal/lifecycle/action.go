package lifecycle

import (
	"errors"
	"fmt"
)

// ErrUnknownAction is returned by ParseAction for keys outside the closed action set.
var ErrUnknownAction = errors.New("lifecycle: unknown action")

// Action is an inline button press on a staged submission.
type Action uint8

const (
	ActionPublish Action = iota + 1
	ActionDiscard
	ActionPreview
)

// Actions lists every action in button order.
func Actions() []Action {
	return []Action{ActionPublish, ActionDiscard, ActionPreview}
}

// String returns the callback key of the action.
func (a Action) String() string {
	switch a {
	case ActionPublish:
		return "publish"
	case ActionDiscard:
		return "discard"
	case ActionPreview:
		return "preview"
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

// ParseAction maps a callback key back to its Action.
func ParseAction(key string) (Action, error) {
	for _, a := range Actions() {
		if a.String() == key {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, key)
}
