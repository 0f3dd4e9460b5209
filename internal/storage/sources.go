package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Source kinds.
const (
	SourceLocal = "local"
	SourceGit   = "git"
)

// Source is a registered origin of card files feeding one deck.
type Source struct {
	ID           int64
	UserID       int64
	DeckID       int64
	Path         string
	Kind         string
	LastSyncedAt sql.NullTime
}

// UpsertSource registers a source path for a deck, or returns the existing
// row for that path.
func (db *DB) UpsertSource(ctx context.Context, src *Source) error {
	existing, err := db.FindSourceByPath(ctx, src.Path)
	if err != nil {
		return err
	}
	if existing != nil {
		*src = *existing
		return nil
	}

	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO sources (user_id, deck_id, path, kind) VALUES (?, ?, ?, ?)
	`, src.UserID, src.DeckID, src.Path, src.Kind)
	if err != nil {
		return fmt.Errorf("failed to insert source %s: %w", src.Path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get ID for source %s: %w", src.Path, err)
	}
	src.ID = id
	return nil
}

// FindSourceByPath retrieves a source, or nil if none is registered for the
// path.
func (db *DB) FindSourceByPath(ctx context.Context, path string) (*Source, error) {
	var s Source
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, user_id, deck_id, path, kind, last_synced_at
		FROM sources WHERE path = ?
	`, path)
	if err := row.Scan(&s.ID, &s.UserID, &s.DeckID, &s.Path, &s.Kind, &s.LastSyncedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find source %s: %w", path, err)
	}
	return &s, nil
}

// AllSources retrieves every registered source.
func (db *DB) AllSources(ctx context.Context) ([]Source, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, deck_id, path, kind, last_synced_at
		FROM sources ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.UserID, &s.DeckID, &s.Path, &s.Kind, &s.LastSyncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// UpdateSourceSynced records when a source was last reconciled.
func (db *DB) UpdateSourceSynced(ctx context.Context, sourceID int64, at time.Time) error {
	if _, err := db.conn.ExecContext(ctx, `
		UPDATE sources SET last_synced_at = ? WHERE id = ?
	`, at, sourceID); err != nil {
		return fmt.Errorf("failed to update last synced for source %d: %w", sourceID, err)
	}
	return nil
}
