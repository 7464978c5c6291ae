package storage

import (
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"smart-locker-control/internal/config"
)

const sqliteDriver = "sqlite3"

type SQLiteProvider struct {
	SQLProvider
}

func NewSQLiteProvider(cfg *config.Storage) (*SQLiteProvider, error) {
	if cfg.SQLite == nil || cfg.SQLite.Path == "" {
		return nil, fmt.Errorf("sqlite storage requires a path")
	}
	if cfg.SQLite.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	provider, err := NewSQLProvider(cfg, sqliteDriver, cfg.SQLite.Path+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	provider.db.SetMaxOpenConns(1)
	return &SQLiteProvider{SQLProvider: *provider}, nil
}

func (p *SQLiteProvider) runMigrations() error {
	return NewMigrationRunner(sqliteDriver).Run(p.db.DB)
}
