package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cardamom-srs/cardamom/internal/domain"
)

// ReviewState returns the state for (userID, cardID), or nil if the card
// has never been reviewed.
func (db *DB) ReviewState(ctx context.Context, userID, cardID int64) (*domain.ReviewState, error) {
	var s domain.ReviewState
	row := db.conn.QueryRowContext(ctx, `
		SELECT user_id, card_id, repetitions, ease_factor, interval_days,
			due_at, last_reviewed_at, version
		FROM review_states WHERE user_id = ? AND card_id = ?
	`, userID, cardID)
	err := row.Scan(
		&s.UserID, &s.CardID, &s.Repetitions, &s.EaseFactor, &s.IntervalDays,
		&s.DueAt, &s.LastReviewedAt, &s.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find review state for card %d: %w", cardID, err)
	}
	return &s, nil
}

// UpsertReviewState writes a review state using an optimistic version
// check. A state with Version 0 must insert a fresh row; any other version
// must match the stored row exactly. Interference either way surfaces as
// domain.ErrConflict so the caller can retry. Timestamps are stored in
// UTC so that sqlite's lexical text comparison orders them by instant.
func (db *DB) UpsertReviewState(ctx context.Context, s *domain.ReviewState) error {
	if s.Version == 0 {
		_, err := db.conn.ExecContext(ctx, `
			INSERT INTO review_states
				(user_id, card_id, repetitions, ease_factor, interval_days, due_at, last_reviewed_at, version)
			VALUES (?, ?, ?, ?, ?, ?, ?, 1)
		`, s.UserID, s.CardID, s.Repetitions, s.EaseFactor, s.IntervalDays, s.DueAt.UTC(), s.LastReviewedAt.UTC())
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: card %d", domain.ErrConflict, s.CardID)
			}
			return fmt.Errorf("failed to insert review state for card %d: %w", s.CardID, err)
		}
		s.Version = 1
		return nil
	}

	res, err := db.conn.ExecContext(ctx, `
		UPDATE review_states
		SET repetitions = ?, ease_factor = ?, interval_days = ?,
			due_at = ?, last_reviewed_at = ?, version = version + 1
		WHERE user_id = ? AND card_id = ? AND version = ?
	`, s.Repetitions, s.EaseFactor, s.IntervalDays, s.DueAt.UTC(), s.LastReviewedAt.UTC(),
		s.UserID, s.CardID, s.Version)
	if err != nil {
		return fmt.Errorf("failed to update review state for card %d: %w", s.CardID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected for card %d: %w", s.CardID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: card %d", domain.ErrConflict, s.CardID)
	}
	s.Version++
	return nil
}

// ReviewCounts computes the aggregate counts for a user, optionally scoped
// to one deck, in a single indexed pass. Due counts only reviewed cards
// whose due date has passed; new cards are handled by the aggregator.
func (db *DB) ReviewCounts(ctx context.Context, userID int64, deckID *int64, now time.Time) (total, reviewed, due int, err error) {
	query := `
		SELECT COUNT(*),
			COUNT(rs.card_id),
			COUNT(CASE WHEN rs.due_at <= ? THEN 1 END)
		FROM cards c
		JOIN decks d ON d.id = c.deck_id
		LEFT JOIN review_states rs ON rs.card_id = c.id AND rs.user_id = ?
		WHERE d.user_id = ?`
	args := []any{now.UTC(), userID, userID}
	if deckID != nil {
		query += ` AND d.id = ?`
		args = append(args, *deckID)
	}

	row := db.conn.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&total, &reviewed, &due); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count review states for user %d: %w", userID, err)
	}
	return total, reviewed, due, nil
}

// isUniqueViolation reports whether err is a primary key or unique index
// violation from the sqlite driver. Matched by message since modernc's
// error type does not export a stable code accessor across versions.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
