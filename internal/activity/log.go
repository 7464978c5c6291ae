// Package activity records what happened to the locker and derives analytics from it.
package activity

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"smart-locker-control/internal/storage"
)

var ErrMissingAction = errors.New("action is required")

type Store interface {
	AppendActivity(ctx context.Context, entry storage.ActivityEntry, maxEntries int) error
	ListActivity(ctx context.Context, log storage.LogName, limit int) ([]storage.ActivityEntry, error)
	ClearActivity(ctx context.Context, log storage.LogName) error
}

// Listener is called after an entry has been stored.
type Listener func(log storage.LogName, e Entry)

// Log is a bounded FIFO activity log. Reads are most recent first.
type Log struct {
	name        storage.LogName
	store       Store
	cap         int
	readLimit   int
	defaultType string
	logger      *slog.Logger

	// Serializes writers so a clear and its marker are never interleaved with appends.
	wmu sync.Mutex

	lmu       sync.RWMutex
	listeners []Listener
}

func NewLog(name storage.LogName, store Store, capacity, readLimit int, defaultType string) *Log {
	return &Log{
		name:        name,
		store:       store,
		cap:         capacity,
		readLimit:   readLimit,
		defaultType: defaultType,
		logger:      slog.With("component", "activity", "log", string(name)),
	}
}

func (l *Log) Name() storage.LogName { return l.name }

func (l *Log) OnAppend(fn Listener) {
	l.lmu.Lock()
	defer l.lmu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Append stamps the entry with an ID, timestamp and default type when missing and stores it.
func (l *Log) Append(ctx context.Context, e Entry) (Entry, error) {
	l.wmu.Lock()
	defer l.wmu.Unlock()
	return l.append(ctx, e)
}

func (l *Log) append(ctx context.Context, e Entry) (Entry, error) {
	e.Action = strings.TrimSpace(e.Action)
	if e.Action == "" {
		return Entry{}, ErrMissingAction
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Type == "" {
		e.Type = l.defaultType
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	rec, err := e.toRecord(l.name)
	if err != nil {
		return Entry{}, err
	}
	if err := l.store.AppendActivity(ctx, rec, l.cap); err != nil {
		return Entry{}, err
	}

	l.logger.Debug("Activity recorded", "action", e.Action, "type", e.Type, "user", e.User)

	l.lmu.RLock()
	listeners := l.listeners
	l.lmu.RUnlock()
	for _, fn := range listeners {
		fn(l.name, e)
	}
	return e, nil
}

// Recent returns at most the configured read limit of entries.
func (l *Log) Recent(ctx context.Context) ([]Entry, error) {
	return l.list(ctx, l.readLimit)
}

// All returns every retained entry.
func (l *Log) All(ctx context.Context) ([]Entry, error) {
	return l.list(ctx, 0)
}

func (l *Log) list(ctx context.Context, limit int) ([]Entry, error) {
	recs, err := l.store.ListActivity(ctx, l.name, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(recs))
	for _, rec := range recs {
		entries = append(entries, fromRecord(rec))
	}
	return entries, nil
}

// Clear empties the log and records who cleared it. The marker is returned.
func (l *Log) Clear(ctx context.Context, user string) (Entry, error) {
	l.wmu.Lock()
	defer l.wmu.Unlock()

	if err := l.store.ClearActivity(ctx, l.name); err != nil {
		return Entry{}, err
	}
	l.logger.Info("Activity log cleared", "user", user)
	return l.append(ctx, Entry{Action: ActionCleared, Type: TypeSystem, User: user})
}
