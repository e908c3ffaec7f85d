package store

import (
	"context"
	"embed"
	"fmt"

	"github.com/apex/log"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// sqliteMigrations mirrors the goose postgres schema for the sqlite driver
// used under go test.
var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		description TEXT NOT NULL,
		media_json TEXT NOT NULL DEFAULT '[]',
		lat REAL NOT NULL DEFAULT 0,
		lng REAL NOT NULL DEFAULT 0,
		address TEXT NOT NULL DEFAULT '',
		contact_police INTEGER NOT NULL DEFAULT 0,
		contact_method TEXT NOT NULL DEFAULT 'NONE',
		contact_value TEXT NOT NULL DEFAULT '',
		safe_to_voicemail INTEGER NOT NULL DEFAULT 0,
		safe_time TEXT NOT NULL DEFAULT '',
		immediate_help INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'Pending',
		assigned_org_id TEXT,
		assigned_org_name TEXT NOT NULL DEFAULT '',
		claimed_at TIMESTAMP,
		is_priority INTEGER NOT NULL DEFAULT 0,
		is_escalated INTEGER NOT NULL DEFAULT 0,
		resolved_by TEXT NOT NULL DEFAULT '',
		resolved_at TIMESTAMP,
		resolution_notes TEXT NOT NULL DEFAULT '',
		resolution_proof_json TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS organizations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		org_type TEXT NOT NULL,
		access_code TEXT NOT NULL UNIQUE,
		country TEXT NOT NULL DEFAULT '',
		region TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		contact_email TEXT NOT NULL DEFAULT '',
		contact_phone TEXT NOT NULL DEFAULT '',
		website TEXT NOT NULL DEFAULT '',
		registration_number TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		documents_json TEXT NOT NULL DEFAULT '[]',
		allowed_categories_json TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL DEFAULT 'PENDING',
		created_at TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		details TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);`,
	`CREATE INDEX IF NOT EXISTS idx_reports_assigned_org ON reports(assigned_org_id);`,
	`CREATE INDEX IF NOT EXISTS idx_reports_category ON reports(category);`,
	`CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_audit_log_created ON audit_log(created_at);`,
}

func ApplyMigrations(ctx context.Context, db *DB, logger log.Interface) error {
	if db.IsPostgres() {
		goose.SetBaseFS(embedMigrations)
		goose.SetLogger(goose.NopLogger())
		if err := goose.SetDialect("postgres"); err != nil {
			return err
		}
		if err := goose.UpContext(ctx, db.DB, "migrations"); err != nil {
			return fmt.Errorf("goose up: %w", err)
		}
		if logger != nil {
			logger.Info("postgres migrations applied")
		}
		return nil
	}
	if !isTestRuntime() {
		return fmt.Errorf("only postgres is supported outside go test runtime")
	}
	for i, stmt := range sqliteMigrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite migration #%d failed: %w", i+1, err)
		}
	}
	return nil
}
