package locker

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidAction = errors.New("invalid action")

type Status string

const (
	StatusOpen    Status = "open"
	StatusClosed  Status = "closed"
	StatusOpening Status = "opening"
	StatusClosing Status = "closing"
)

// Transitional reports whether the status is waiting to settle.
func (s Status) Transitional() bool {
	return s == StatusOpening || s == StatusClosing
}

func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusClosed, StatusOpening, StatusClosing:
		return true
	}
	return false
}

// AllStatuses lists every status in display order.
func AllStatuses() []Status {
	return []Status{StatusOpen, StatusClosed, StatusOpening, StatusClosing}
}

type Action string

const (
	ActionOpen  Action = "open"
	ActionClose Action = "close"
)

func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionOpen, ActionClose:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
}

// transition returns the transitional status an action moves to and the status it settles in.
func (a Action) transition() (pending, settled Status) {
	if a == ActionOpen {
		return StatusOpening, StatusOpen
	}
	return StatusClosing, StatusClosed
}

// State is the locker record. LastUpdate is serialized as Unix milliseconds.
type State struct {
	Status     Status
	LastUpdate time.Time
}

type stateJSON struct {
	Status     Status `json:"status"`
	LastUpdate int64  `json:"last_update"`
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateJSON{Status: s.Status, LastUpdate: s.LastUpdate.UnixMilli()})
}

func (s *State) UnmarshalJSON(data []byte) error {
	var v stateJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	s.Status = v.Status
	s.LastUpdate = time.UnixMilli(v.LastUpdate)
	return nil
}
