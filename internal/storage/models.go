package storage

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("record not found")

// LogName selects one of the bounded activity logs.
type LogName string

const (
	LogActivity LogName = "activity"
	LogQR       LogName = "qr"
)

type LockerState struct {
	LockerID   string    `db:"locker_id"`
	Status     string    `db:"status"`
	LastUpdate time.Time `db:"-"`
}

type ActivityEntry struct {
	ID        string    `db:"id"`
	Log       LogName   `db:"log"`
	Action    string    `db:"action"`
	Type      string    `db:"type"`
	User      string    `db:"user"`
	Data      string    `db:"data"`
	Metadata  string    `db:"metadata"` // JSON object, empty when unset
	Timestamp time.Time `db:"-"`
}
