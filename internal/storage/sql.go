package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"smart-locker-control/internal/config"
)

type SQLProvider struct {
	db *sqlx.DB

	config *config.Storage

	logger *slog.Logger
}

func NewSQLProvider(cfg *config.Storage, driverName string, dataSource string) (*SQLProvider, error) {
	db, err := sqlx.Open(driverName, dataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driverName, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", driverName, err)
	}

	return &SQLProvider{
		db:     db,
		config: cfg,
		logger: slog.With("component", "storage", "driver", driverName),
	}, nil
}

func (p *SQLProvider) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *SQLProvider) GetSchemaVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	if err := p.db.GetContext(ctx, &version, `SELECT MAX(version) FROM schema_migrations`); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(version.Int64), nil
}

type lockerStateRow struct {
	LockerState
	LastUpdate int64 `db:"last_update"`
}

func (p *SQLProvider) GetLockerState(ctx context.Context, lockerID string) (*LockerState, error) {
	var row lockerStateRow
	err := p.db.GetContext(ctx, &row,
		`SELECT locker_id, status, last_update FROM locker_state WHERE locker_id = ?`, lockerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load locker state: %w", err)
	}
	state := row.LockerState
	state.LastUpdate = time.UnixMilli(row.LastUpdate)
	return &state, nil
}

func (p *SQLProvider) SaveLockerState(ctx context.Context, state LockerState) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO locker_state (locker_id, status, last_update) VALUES (?, ?, ?)
		ON CONFLICT (locker_id) DO UPDATE SET status = excluded.status, last_update = excluded.last_update`,
		state.LockerID, state.Status, state.LastUpdate.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save locker state: %w", err)
	}
	return nil
}

type activityRow struct {
	ActivityEntry
	Timestamp int64 `db:"timestamp"`
}

func (p *SQLProvider) AppendActivity(ctx context.Context, entry ActivityEntry, maxEntries int) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO activity (id, log, action, type, user, data, metadata, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Log, entry.Action, entry.Type, entry.User, entry.Data, entry.Metadata, entry.Timestamp.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}

	if maxEntries > 0 {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM activity WHERE log = ? AND seq NOT IN (
				SELECT seq FROM activity WHERE log = ? ORDER BY seq DESC LIMIT ?
			)`, entry.Log, entry.Log, maxEntries)
		if err != nil {
			return fmt.Errorf("failed to trim activity log: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			p.logger.Debug("Evicted activity entries", "log", entry.Log, "count", n)
		}
	}
	return tx.Commit()
}

func (p *SQLProvider) ListActivity(ctx context.Context, log LogName, limit int) ([]ActivityEntry, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	var rows []activityRow
	err := p.db.SelectContext(ctx, &rows, `
		SELECT id, log, action, type, user, data, metadata, timestamp
		FROM activity WHERE log = ? ORDER BY seq DESC LIMIT ?`, log, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}

	entries := make([]ActivityEntry, 0, len(rows))
	for _, row := range rows {
		e := row.ActivityEntry
		e.Timestamp = time.UnixMilli(row.Timestamp)
		entries = append(entries, e)
	}
	return entries, nil
}

func (p *SQLProvider) ClearActivity(ctx context.Context, log LogName) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM activity WHERE log = ?`, log); err != nil {
		return fmt.Errorf("failed to clear activity log: %w", err)
	}
	return nil
}

func (p *SQLProvider) CreateNonce(ctx context.Context, nonce string, expiresAt time.Time) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO nonces (nonce, expires_at) VALUES (?, ?)`, nonce, expiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to store nonce: %w", err)
	}
	return nil
}

func (p *SQLProvider) ExistsNonce(ctx context.Context, nonce string, now time.Time) (bool, error) {
	var count int
	err := p.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM nonces WHERE nonce = ? AND expires_at > ?`, nonce, now.UnixMilli())
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ConsumeNonce deletes a live nonce. It reports false when the nonce is unknown or expired.
func (p *SQLProvider) ConsumeNonce(ctx context.Context, nonce string, now time.Time) (bool, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM nonces WHERE nonce = ? AND expires_at > ?`, nonce, now.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to consume nonce: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (p *SQLProvider) ExpireNonces(ctx context.Context, now time.Time) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM nonces WHERE expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to expire nonces: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		p.logger.Debug("Expired nonces", "count", n)
	}
	return nil
}
