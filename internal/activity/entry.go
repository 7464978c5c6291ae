package activity

import (
	"encoding/json"
	"fmt"
	"time"

	"smart-locker-control/internal/storage"
)

// Entry types.
const (
	TypeUserAction   = "user_action"
	TypeStatusChange = "status_change"
	TypeSystem       = "system"
	TypeError        = "error"
	TypeSecurity     = "security"
	TypeInfo         = "info"
)

// Well known actions.
const (
	ActionLogin       = "User login"
	ActionCleared     = "Activity cleared"
	ActionLockerOpen  = "Locker open"
	ActionLockerClose = "Locker close"

	ActionQRProcessed = "QR Code processed"
	ActionQRGranted   = "Access granted via QR"
	ActionQRDenied    = "Access denied"
	ActionQRGenerated = "QR Code generated"
)

type Entry struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	Type      string         `json:"type"`
	User      string         `json:"user"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Data      string         `json:"data,omitempty"`
}

// QRGenerated builds the QR log entry for a generated code. expiresAt is set
// for access codes, whose payload is a bearer secret and is not recorded.
func QRGenerated(user, data, kind string, expiresAt *time.Time) Entry {
	meta := map[string]any{"kind": kind}
	if expiresAt != nil {
		meta["expires_at"] = expiresAt.Unix()
	} else {
		meta["data"] = data
	}
	return Entry{
		Action:   ActionQRGenerated,
		Type:     TypeInfo,
		User:     user,
		Metadata: meta,
	}
}

func (e Entry) toRecord(log storage.LogName) (storage.ActivityEntry, error) {
	rec := storage.ActivityEntry{
		ID:        e.ID,
		Log:       log,
		Action:    e.Action,
		Type:      e.Type,
		User:      e.User,
		Data:      e.Data,
		Timestamp: e.Timestamp,
	}
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return rec, fmt.Errorf("failed to encode metadata: %w", err)
		}
		rec.Metadata = string(b)
	}
	return rec, nil
}

func fromRecord(rec storage.ActivityEntry) Entry {
	e := Entry{
		ID:        rec.ID,
		Action:    rec.Action,
		Type:      rec.Type,
		User:      rec.User,
		Data:      rec.Data,
		Timestamp: rec.Timestamp,
	}
	if rec.Metadata != "" {
		// Metadata was written by toRecord, a decode failure only loses the extras.
		_ = json.Unmarshal([]byte(rec.Metadata), &e.Metadata)
	}
	return e
}
