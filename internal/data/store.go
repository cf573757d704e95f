package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/commzilla/slack-mcp-server/internal/biz/domain"

	_ "modernc.org/sqlite"
)

// Store is the shared SQLite handle behind all storage repositories.
// One Store is constructed at startup, injected into every component,
// and closed once during shutdown.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at dataDir/slack.db and
// bootstraps the schema. WAL mode is enabled so the daemon can write
// while the MCP server reads concurrently.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "slack.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA foreign_keys = ON`,
		`PRAGMA busy_timeout = 5000`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := initTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func initTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			user_id TEXT NOT NULL,
			is_primary BOOLEAN DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS watched_channels (
			channel_id TEXT NOT NULL,
			profile_id TEXT NOT NULL,
			channel_name TEXT NOT NULL,
			priority TEXT DEFAULT 'normal' CHECK(priority IN ('high', 'normal', 'low')),
			description TEXT,
			added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (channel_id, profile_id),
			FOREIGN KEY (profile_id) REFERENCES profiles(id)
		);

		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TEXT NOT NULL,
			profile_id TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			channel_name TEXT,
			user_id TEXT NOT NULL,
			username TEXT,
			text TEXT NOT NULL,
			thread_ts TEXT,
			is_own_message BOOLEAN DEFAULT 0,
			needs_reply BOOLEAN DEFAULT 0,
			replied BOOLEAN DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(ts, profile_id, channel_id),
			FOREIGN KEY (profile_id) REFERENCES profiles(id)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_profile ON messages(profile_id);
		CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(profile_id, channel_id);
		CREATE INDEX IF NOT EXISTS idx_messages_needs_reply ON messages(profile_id, needs_reply, replied);
		CREATE INDEX IF NOT EXISTS idx_messages_own ON messages(profile_id, is_own_message);
		CREATE INDEX IF NOT EXISTS idx_messages_ts ON messages(ts);

		CREATE TABLE IF NOT EXISTS style_profiles (
			profile_id TEXT PRIMARY KEY,
			profile_json TEXT NOT NULL,
			sample_messages TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (profile_id) REFERENCES profiles(id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// SyncProfiles upserts the configured profiles by id
func (s *Store) SyncProfiles(ctx context.Context, profiles []domain.Profile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin profile sync: %w", err)
	}
	defer tx.Rollback()

	for _, p := range profiles {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO profiles (id, display_name, user_id, is_primary)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				display_name = excluded.display_name,
				user_id = excluded.user_id,
				is_primary = excluded.is_primary
		`, p.ID, p.DisplayName, p.UserID, boolToInt(p.IsPrimary))
		if err != nil {
			return fmt.Errorf("failed to sync profile %q: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit profile sync: %w", err)
	}
	return nil
}

// Close closes the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
