package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	// SQLite driver.
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var driver = "sqlite"

// Installation holds the credentials issued to one room installation.
// Records are immutable; uninstall-then-reinstall is the only update path.
type Installation struct {
	OAuthID     string
	RoomID      int64
	GroupID     int64
	OAuthSecret string
	TokenURL    string
	APIURL      string
}

// Store persists installations and audit events in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at the provided path and runs migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "data/manabot"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open(driver, sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(driver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

func sqliteDSN(path string) string {
	values := url.Values{}
	values.Set("_fk", "1")
	values.Add("_pragma", "foreign_keys(ON)")
	values.Add("_pragma", "journal_mode(WAL)")
	values.Add("_pragma", "synchronous(NORMAL)")
	values.Add("_pragma", "busy_timeout(5000)")
	return fmt.Sprintf("file:%s.sqlite?%s", path, values.Encode())
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// UpsertInstallation stores an installation record keyed by its OAuth ID.
// Installing over an existing record replaces every field.
func (s *Store) UpsertInstallation(ctx context.Context, inst Installation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO installations (oauth_id, room_id, group_id, oauth_secret, token_url, api_url)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(oauth_id) DO UPDATE SET
			room_id = excluded.room_id,
			group_id = excluded.group_id,
			oauth_secret = excluded.oauth_secret,
			token_url = excluded.token_url,
			api_url = excluded.api_url,
			created_at = CURRENT_TIMESTAMP
	`, inst.OAuthID, inst.RoomID, inst.GroupID, inst.OAuthSecret, inst.TokenURL, inst.APIURL)
	return err
}

// GetInstallation returns the installation for the given OAuth ID, or
// sql.ErrNoRows when the integration is not installed for that tenant.
func (s *Store) GetInstallation(ctx context.Context, oauthID string) (Installation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT oauth_id, room_id, group_id, oauth_secret, token_url, api_url
		FROM installations
		WHERE oauth_id = ?
	`, strings.TrimSpace(oauthID))
	var inst Installation
	err := row.Scan(&inst.OAuthID, &inst.RoomID, &inst.GroupID, &inst.OAuthSecret, &inst.TokenURL, &inst.APIURL)
	if err != nil {
		return Installation{}, err
	}
	return inst, nil
}

// DeleteInstallation removes the installation for the given OAuth ID.
// Deleting a missing record is a no-op.
func (s *Store) DeleteInstallation(ctx context.Context, oauthID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM installations WHERE oauth_id = ?`, strings.TrimSpace(oauthID))
	return err
}

// CountInstallations reports how many installations currently exist.
func (s *Store) CountInstallations(ctx context.Context) (int64, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM installations`)
	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// AppendAuditEvent stores one serialized audit event.
func (s *Store) AppendAuditEvent(ctx context.Context, id, eventType, source string, occurredAt time.Time, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, type, source, occurred_at, payload)
		VALUES (?, ?, ?, ?, ?)
	`, id, eventType, source, occurredAt.UTC().Format(time.RFC3339), string(payload))
	return err
}

// CountAuditEventsByType reports how many audit events of one type exist.
func (s *Store) CountAuditEventsByType(ctx context.Context, eventType string) (int64, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_events WHERE type = ?`, eventType)
	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
