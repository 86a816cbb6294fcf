// Package sqlite is the on-disk store backend. One database file holds both
// collections and survives restarts.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/MrSnakeDoc/storysync/internal/domain"
)

const schemaVersion = 1

// synced stays nullable: rows written before the column existed read as unsynced.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS pending_stories (
	temp_id     TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	photo       TEXT NOT NULL,
	lat         REAL,
	lon         REAL,
	created_at  TEXT NOT NULL,
	synced      INTEGER,
	server_id   TEXT NOT NULL DEFAULT '',
	synced_at   TEXT
);
CREATE INDEX IF NOT EXISTS idx_pending_created ON pending_stories(created_at, temp_id);

CREATE TABLE IF NOT EXISTS bookmarked_stories (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	photo_url     TEXT NOT NULL DEFAULT '',
	created_at    TEXT,
	lat           REAL,
	lon           REAL,
	bookmarked_at TEXT NOT NULL
);
`

const pendingColumns = `temp_id, description, photo, lat, lon, created_at, synced, server_id, synced_at`

const bookmarkColumns = `id, name, description, photo_url, created_at, lat, lon, bookmarked_at`

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates the database file (and its directory) if needed and applies
// the schema. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, domain.NewStorageError("open", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, domain.NewStorageError("open", err)
	}
	// One writer keeps every statement serialized and makes ":memory:" a single database.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, domain.NewStorageError("open", err)
	}
	if err := applySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, domain.NewStorageError("open", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < schemaVersion {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return domain.NewStorageError("ping", err)
	}
	return nil
}

// ─────────────────────────────
// Pending stories
// ─────────────────────────────

func (s *Store) PutPending(ctx context.Context, p *domain.PendingStory) error {
	if p == nil || p.TempID == "" {
		return domain.NewValidationError("tempId", "tempId is required")
	}
	if err := putPending(ctx, s.db, p); err != nil {
		return domain.NewStorageError("put pending", err)
	}
	return nil
}

func (s *Store) GetPending(ctx context.Context, tempID string) (*domain.PendingStory, bool, error) {
	p, ok, err := getPending(ctx, s.db, tempID)
	if err != nil {
		return nil, false, domain.NewStorageError("get pending", err)
	}
	return p, ok, nil
}

func (s *Store) GetAllPending(ctx context.Context) ([]*domain.PendingStory, error) {
	return s.listPending(ctx, "")
}

// GetUnsyncedPending treats a NULL synced column as unsynced.
func (s *Store) GetUnsyncedPending(ctx context.Context) ([]*domain.PendingStory, error) {
	return s.listPending(ctx, "WHERE COALESCE(synced, 0) = 0")
}

func (s *Store) listPending(ctx context.Context, where string) ([]*domain.PendingStory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pendingColumns+` FROM pending_stories `+where+` ORDER BY created_at, temp_id`)
	if err != nil {
		return nil, domain.NewStorageError("list pending", err)
	}
	defer rows.Close()

	out := make([]*domain.PendingStory, 0)
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, domain.NewStorageError("list pending", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list pending", err)
	}
	return out, nil
}

// MarkPendingSynced reads and rewrites the row inside one transaction so
// concurrent marks settle on the first SyncedAt.
func (s *Store) MarkPendingSynced(ctx context.Context, tempID, serverID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("mark synced", err)
	}
	defer func() { _ = tx.Rollback() }()

	p, ok, err := getPending(ctx, tx, tempID)
	if err != nil {
		return domain.NewStorageError("mark synced", err)
	}
	if !ok {
		return nil
	}

	p.MarkSynced(serverID, s.now())
	if err := putPending(ctx, tx, p); err != nil {
		return domain.NewStorageError("mark synced", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.NewStorageError("mark synced", err)
	}
	return nil
}

func (s *Store) RemovePending(ctx context.Context, tempID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_stories WHERE temp_id = ?`, tempID); err != nil {
		return domain.NewStorageError("remove pending", err)
	}
	return nil
}

// ─────────────────────────────
// Bookmarks
// ─────────────────────────────

func (s *Store) PutBookmark(ctx context.Context, b *domain.BookmarkedStory) error {
	if err := b.Validate(); err != nil {
		return err
	}
	at := b.BookmarkedAt
	if at.IsZero() {
		at = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO bookmarked_stories (`+bookmarkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		b.Name,
		b.Description,
		b.PhotoURL,
		nullableTS(b.CreatedAt),
		nullableFloat(b.Lat),
		nullableFloat(b.Lon),
		toTS(at),
	)
	if err != nil {
		return domain.NewStorageError("put bookmark", err)
	}
	return nil
}

func (s *Store) RemoveBookmark(ctx context.Context, id string) error {
	if id == "" {
		return domain.NewValidationError("id", "story ID is required")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM bookmarked_stories WHERE id = ?`, id); err != nil {
		return domain.NewStorageError("remove bookmark", err)
	}
	return nil
}

func (s *Store) GetBookmark(ctx context.Context, id string) (*domain.BookmarkedStory, bool, error) {
	if id == "" {
		return nil, false, domain.NewValidationError("id", "story ID is required")
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarked_stories WHERE id = ?`, id)
	b, err := scanBookmark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, domain.NewStorageError("get bookmark", err)
	}
	return b, true, nil
}

func (s *Store) GetAllBookmarks(ctx context.Context) ([]*domain.BookmarkedStory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarked_stories ORDER BY bookmarked_at DESC, id`)
	if err != nil {
		return nil, domain.NewStorageError("list bookmarks", err)
	}
	defer rows.Close()

	out := make([]*domain.BookmarkedStory, 0)
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, domain.NewStorageError("list bookmarks", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list bookmarks", err)
	}
	return out, nil
}

func (s *Store) IsBookmarked(ctx context.Context, id string) (bool, error) {
	_, ok, err := s.GetBookmark(ctx, id)
	return ok, err
}

// ─────────────────────────────
// Row helpers
// ─────────────────────────────

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func putPending(ctx context.Context, db execer, p *domain.PendingStory) error {
	var syncedAt any
	if p.SyncedAt != nil {
		syncedAt = toTS(*p.SyncedAt)
	}
	_, err := db.ExecContext(ctx, `
		INSERT OR REPLACE INTO pending_stories (`+pendingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.TempID,
		p.Description,
		p.Photo,
		nullableFloat(p.Lat),
		nullableFloat(p.Lon),
		toTS(p.CreatedAt),
		boolToInt(p.Synced),
		p.ServerID,
		syncedAt,
	)
	return err
}

func getPending(ctx context.Context, db execer, tempID string) (*domain.PendingStory, bool, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+pendingColumns+` FROM pending_stories WHERE temp_id = ?`, tempID)
	p, err := scanPending(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

func scanPending(row scanner) (*domain.PendingStory, error) {
	var (
		p         domain.PendingStory
		lat, lon  sql.NullFloat64
		createdAt string
		synced    sql.NullInt64
		syncedAt  sql.NullString
	)
	err := row.Scan(
		&p.TempID,
		&p.Description,
		&p.Photo,
		&lat,
		&lon,
		&createdAt,
		&synced,
		&p.ServerID,
		&syncedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Lat = floatPtr(lat)
	p.Lon = floatPtr(lon)
	p.CreatedAt = fromTS(createdAt)
	p.Synced = synced.Valid && synced.Int64 != 0
	if syncedAt.Valid {
		at := fromTS(syncedAt.String)
		p.SyncedAt = &at
	}
	return &p, nil
}

func scanBookmark(row scanner) (*domain.BookmarkedStory, error) {
	var (
		b            domain.BookmarkedStory
		createdAt    sql.NullString
		lat, lon     sql.NullFloat64
		bookmarkedAt string
	)
	err := row.Scan(
		&b.ID,
		&b.Name,
		&b.Description,
		&b.PhotoURL,
		&createdAt,
		&lat,
		&lon,
		&bookmarkedAt,
	)
	if err != nil {
		return nil, err
	}

	if createdAt.Valid {
		b.CreatedAt = fromTS(createdAt.String)
	}
	b.Lat = floatPtr(lat)
	b.Lon = floatPtr(lon)
	b.BookmarkedAt = fromTS(bookmarkedAt)
	return &b, nil
}

// tsLayout is fixed width so ORDER BY on the text column is chronological.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

func toTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func nullableTS(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return toTS(t)
}

func fromTS(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return domain.Float(v.Float64)
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
