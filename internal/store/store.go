package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mediavault/pkg/models"
)

// Store wraps the sqlite-backed persistent state: the already-exported
// identity index, the cross-restart page cache and the user-scope
// marker. Each piece is mutated only by its owning component.
type Store struct {
	DB *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{DB: db}
}

// --- already-exported identity index ---

// MarkExported records every identity key of a delivered batch. All
// keys of a batch land in one transaction so a crash can never leave
// an item half-marked.
func (s *Store) MarkExported(ctx context.Context, category string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO exported_items (key, category, exported_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
		  category = excluded.category,
		  exported_at = excluded.exported_at
	`)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for _, key := range keys {
		if _, err := stmt.ExecContext(ctx, key, category, now); err != nil {
			return fmt.Errorf("exec upsert for %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// IsExported reports whether any of the given identity keys has been
// exported before.
func (s *Store) IsExported(ctx context.Context, keys []string) (bool, error) {
	if len(keys) == 0 {
		return false, nil
	}

	placeholders := strings.Repeat("?,", len(keys))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	row := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM exported_items WHERE key IN (`+placeholders+`)`, args...)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, fmt.Errorf("exported scan: %w", err)
	}
	return n > 0, nil
}

// ExportedCount returns how many keys are marked for a category.
func (s *Store) ExportedCount(ctx context.Context, category string) (int, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM exported_items WHERE category = ?`, category)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("exported count scan: %w", err)
	}
	return n, nil
}

// ClearExported drops the exported index for a category.
func (s *Store) ClearExported(ctx context.Context, category string) error {
	if _, err := s.DB.ExecContext(ctx,
		`DELETE FROM exported_items WHERE category = ?`, category); err != nil {
		return fmt.Errorf("clear exported: %w", err)
	}
	return nil
}

// --- cross-restart page cache ---

func (s *Store) SavePage(ctx context.Context, page models.Page) error {
	records, err := json.Marshal(page.Records)
	if err != nil {
		return fmt.Errorf("marshal records for page %d: %w", page.Number, err)
	}

	if _, err := s.DB.ExecContext(ctx, `
		INSERT INTO cached_pages (category, page, records, cursor, next_cursor, saved_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(category, page) DO UPDATE SET
		  records = excluded.records,
		  cursor = excluded.cursor,
		  next_cursor = excluded.next_cursor,
		  saved_at = excluded.saved_at
	`, page.Category, page.Number, string(records), page.Cursor, page.NextCursor, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("exec upsert page %d: %w", page.Number, err)
	}
	return nil
}

func (s *Store) LoadPages(ctx context.Context, category string) ([]models.Page, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT page, records, cursor, next_cursor
		FROM cached_pages
		WHERE category = ?
		ORDER BY page ASC
	`, category)
	if err != nil {
		return nil, fmt.Errorf("load pages query: %w", err)
	}
	defer rows.Close()

	var out []models.Page
	for rows.Next() {
		var (
			page       models.Page
			records    string
			cursor     sql.NullString
			nextCursor sql.NullString
		)
		if err := rows.Scan(&page.Number, &records, &cursor, &nextCursor); err != nil {
			return nil, fmt.Errorf("load pages scan: %w", err)
		}
		page.Category = category
		if cursor.Valid {
			page.Cursor = &cursor.String
		}
		if nextCursor.Valid {
			page.NextCursor = &nextCursor.String
		}
		if err := json.Unmarshal([]byte(records), &page.Records); err != nil {
			return nil, fmt.Errorf("unmarshal records for page %d: %w", page.Number, err)
		}
		out = append(out, page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load pages rows: %w", err)
	}
	return out, nil
}

func (s *Store) DeletePagesExcept(ctx context.Context, category string, keep []int) error {
	if len(keep) == 0 {
		return s.ClearPages(ctx, category)
	}

	placeholders := strings.Repeat("?,", len(keep))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(keep)+1)
	args = append(args, category)
	for _, p := range keep {
		args = append(args, p)
	}

	if _, err := s.DB.ExecContext(ctx,
		`DELETE FROM cached_pages WHERE category = ? AND page NOT IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("prune pages: %w", err)
	}
	return nil
}

func (s *Store) ClearPages(ctx context.Context, category string) error {
	if _, err := s.DB.ExecContext(ctx,
		`DELETE FROM cached_pages WHERE category = ?`, category); err != nil {
		return fmt.Errorf("clear pages: %w", err)
	}
	return nil
}

// --- user-scope marker ---

const scopeKey = "user_scope"

func (s *Store) ScopeMarker(ctx context.Context) (string, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, scopeKey)
	var v string
	if err := row.Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("scope scan: %w", err)
	}
	return v, nil
}

func (s *Store) SetScopeMarker(ctx context.Context, scope string) error {
	if _, err := s.DB.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, scopeKey, scope); err != nil {
		return fmt.Errorf("set scope: %w", err)
	}
	return nil
}
