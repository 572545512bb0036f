package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/propform/proposals-tracker/internal/common"
)

// Open opens (creating if needed) the SQLite database and applies migrations.
// The store assumes a single writer process, so the pool is capped at one
// connection.
func Open(ctx context.Context, path string, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" && !strings.HasPrefix(path, ":memory:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, common.WrapError(err, "create database directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		logger.Error("store.open_failed", "path", path, "error", err)
		return nil, common.WrapError(err, "open database")
	}
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		logger.Error("store.migrate_failed", "path", path, "error", err)
		return nil, common.WrapError(err, "migrate database")
	}

	logger.Info("store.open", "path", path)
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS proposals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			client_name TEXT NOT NULL,
			proposal_value REAL,
			product_or_service TEXT,
			proposal_type TEXT,
			terms TEXT,
			ai_summary TEXT,
			source_filename TEXT,
			content_hash TEXT,
			processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			status TEXT NOT NULL DEFAULT 'pending'
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_proposals_content_hash
			ON proposals(content_hash) WHERE content_hash <> '';`,
		`CREATE INDEX IF NOT EXISTS idx_proposals_status ON proposals(status);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
