package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"annobot/internal/announce"
	kit "annobot/internal/transport"
	logx "annobot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// SQLite implements announce.Store.
type SQLite struct {
	db  *sql.DB
	log logx.Logger
}

func Open(cfg Config, log logx.Logger) (*SQLite, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	// Cascade from configs to targets depends on this.
	_, _ = db.Exec("PRAGMA foreign_keys = ON")

	s := &SQLite{db: db, log: log}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const configColumns = `id, scope_id, title, description, color, image_url, thumbnail_url,
	author_name, author_icon_url, footer_text, footer_icon_url, timestamp,
	enabled, buttons, enable_buttons, primary_message_id, created_by, created_at, updated_at`

func (s *SQLite) CreateConfig(ctx context.Context, cfg *announce.Config) error {
	authorName, authorIcon := cfg.AuthorFields()
	footerText, footerIcon := cfg.FooterFields()
	buttons, err := json.Marshal(cfg.Buttons)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO announcement_configs (`+configColumns+`)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		cfg.ID, cfg.ScopeID, cfg.Title, cfg.Description, cfg.Color, cfg.ImageURL, cfg.ThumbnailURL,
		authorName, authorIcon, footerText, footerIcon, nullTime(cfg.Timestamp),
		cfg.Enabled, string(buttons), cfg.EnableButtons, nullInt(cfg.PrimaryMessageID),
		cfg.CreatedBy, cfg.CreatedAt.Format(time.RFC3339Nano), cfg.UpdatedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLite) UpdateConfig(ctx context.Context, cfg *announce.Config) error {
	authorName, authorIcon := cfg.AuthorFields()
	footerText, footerIcon := cfg.FooterFields()
	buttons, err := json.Marshal(cfg.Buttons)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE announcement_configs SET
			title=?, description=?, color=?, image_url=?, thumbnail_url=?,
			author_name=?, author_icon_url=?, footer_text=?, footer_icon_url=?, timestamp=?,
			enabled=?, buttons=?, enable_buttons=?, updated_at=?
		 WHERE id=? AND scope_id=?`,
		cfg.Title, cfg.Description, cfg.Color, cfg.ImageURL, cfg.ThumbnailURL,
		authorName, authorIcon, footerText, footerIcon, nullTime(cfg.Timestamp),
		cfg.Enabled, string(buttons), cfg.EnableButtons, cfg.UpdatedAt.Format(time.RFC3339Nano),
		cfg.ID, cfg.ScopeID,
	)
	return err
}

func (s *SQLite) DeleteConfig(ctx context.Context, id string, scopeID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM announcement_configs WHERE id=? AND scope_id=?`, id, scopeID)
	return err
}

func (s *SQLite) GetConfig(ctx context.Context, id string, scopeID int64) (*announce.Config, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+configColumns+` FROM announcement_configs WHERE id=? AND scope_id=?`, id, scopeID)
	cfg, err := scanConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return cfg, err
}

func (s *SQLite) ListConfigs(ctx context.Context, scopeID int64) ([]*announce.Config, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+configColumns+` FROM announcement_configs WHERE scope_id=? ORDER BY created_at`, scopeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectConfigs(rows)
}

func (s *SQLite) ListEnabled(ctx context.Context) ([]*announce.Config, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+configColumns+` FROM announcement_configs WHERE enabled=1 ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectConfigs(rows)
}

func (s *SQLite) ListTargets(ctx context.Context, configID string) ([]announce.Target, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT config_id, scope_id, channel_id, external_message_id
		 FROM channel_targets WHERE config_id=? ORDER BY position`, configID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []announce.Target
	for rows.Next() {
		var t announce.Target
		var msgID sql.NullInt64
		if err := rows.Scan(&t.ConfigID, &t.ScopeID, &t.ChannelID, &msgID); err != nil {
			return nil, err
		}
		if msgID.Valid {
			id := int(msgID.Int64)
			t.MessageID = &id
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ReplaceTargets swaps the whole target set in one transaction. There is no
// partial-update path: callers re-attach preserved message ids before calling.
func (s *SQLite) ReplaceTargets(ctx context.Context, configID string, targets []announce.Target) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM channel_targets WHERE config_id=?`, configID); err != nil {
		return err
	}
	for i, t := range targets {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO channel_targets (config_id, scope_id, channel_id, external_message_id, position)
			 VALUES (?,?,?,?,?)`,
			configID, t.ScopeID, t.ChannelID, nullInt(t.MessageID), i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLite) SetPrimaryMessage(ctx context.Context, configID string, messageID *int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE announcement_configs SET primary_message_id=? WHERE id=?`,
		nullInt(messageID), configID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(r rowScanner) (*announce.Config, error) {
	var (
		cfg       announce.Config
		ts        sql.NullString
		buttons   string
		primary   sql.NullInt64
		createdAt string
		updatedAt string
	)
	err := r.Scan(
		&cfg.ID, &cfg.ScopeID, &cfg.Title, &cfg.Description, &cfg.Color, &cfg.ImageURL, &cfg.ThumbnailURL,
		&cfg.AuthorName, &cfg.AuthorIconURL, &cfg.FooterText, &cfg.FooterIconURL, &ts,
		&cfg.Enabled, &buttons, &cfg.EnableButtons, &primary, &cfg.CreatedBy, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if ts.Valid {
		if t, perr := time.Parse(time.RFC3339Nano, ts.String); perr == nil {
			cfg.Timestamp = &t
		}
	}
	if buttons != "" {
		var btns []kit.Button
		if jerr := json.Unmarshal([]byte(buttons), &btns); jerr == nil {
			cfg.Buttons = btns
		}
	}
	if primary.Valid {
		id := int(primary.Int64)
		cfg.PrimaryMessageID = &id
	}
	if t, perr := time.Parse(time.RFC3339Nano, createdAt); perr == nil {
		cfg.CreatedAt = t
	}
	if t, perr := time.Parse(time.RFC3339Nano, updatedAt); perr == nil {
		cfg.UpdatedAt = t
	}
	return &cfg, nil
}

func collectConfigs(rows *sql.Rows) ([]*announce.Config, error) {
	var out []*announce.Config
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(time.RFC3339Nano)
}
