package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cardamom-srs/cardamom/internal/domain"
)

// InsertCard inserts a card and fills in its ID.
func (db *DB) InsertCard(ctx context.Context, card *domain.Card) error {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO cards (deck_id, front, back, fingerprint)
		VALUES (?, ?, ?, ?)
	`, card.DeckID, card.Front, card.Back, card.Fingerprint)
	if err != nil {
		return fmt.Errorf("failed to insert card in deck %d: %w", card.DeckID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get ID for inserted card: %w", err)
	}
	card.ID = id
	return nil
}

// DeleteCard removes a card; review state and tag links cascade.
func (db *DB) DeleteCard(ctx context.Context, cardID int64) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, cardID); err != nil {
		return fmt.Errorf("failed to delete card %d: %w", cardID, err)
	}
	return nil
}

// CardsForDeck retrieves all cards in a deck, ordered by ID, without tags.
func (db *DB) CardsForDeck(ctx context.Context, deckID int64) ([]domain.Card, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, deck_id, front, back, fingerprint
		FROM cards WHERE deck_id = ? ORDER BY id
	`, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for deck %d: %w", deckID, err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		var c domain.Card
		if err := rows.Scan(&c.ID, &c.DeckID, &c.Front, &c.Back, &c.Fingerprint); err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// FindOwnedCard resolves a card only if its deck belongs to userID.
// A card that exists under someone else's deck is reported as not found, so
// the response does not leak which IDs exist.
func (db *DB) FindOwnedCard(ctx context.Context, userID, cardID int64) (*domain.Card, error) {
	var c domain.Card
	row := db.conn.QueryRowContext(ctx, `
		SELECT c.id, c.deck_id, c.front, c.back, c.fingerprint
		FROM cards c
		JOIN decks d ON d.id = c.deck_id
		WHERE c.id = ? AND d.user_id = ?
	`, cardID, userID)
	if err := row.Scan(&c.ID, &c.DeckID, &c.Front, &c.Back, &c.Fingerprint); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: card %d", domain.ErrNotFound, cardID)
		}
		return nil, fmt.Errorf("failed to find card %d: %w", cardID, err)
	}
	return &c, nil
}

// CardWithState pairs a card with its deck and, when the card has been
// reviewed, its review state. State is nil for new cards.
type CardWithState struct {
	Card  domain.Card
	Deck  domain.Deck
	State *domain.ReviewState
}

// CardsWithState retrieves every card owned by userID, optionally scoped to
// one deck, joined with its review state. Rows come back ordered by card ID;
// the queue builder applies session ordering on top.
func (db *DB) CardsWithState(ctx context.Context, userID int64, deckID *int64) ([]CardWithState, error) {
	query := `
		SELECT c.id, c.deck_id, c.front, c.back, c.fingerprint,
			d.id, d.user_id, d.name, d.description, d.template_front, d.template_back,
			rs.repetitions, rs.ease_factor, rs.interval_days, rs.due_at, rs.last_reviewed_at, rs.version
		FROM cards c
		JOIN decks d ON d.id = c.deck_id
		LEFT JOIN review_states rs ON rs.card_id = c.id AND rs.user_id = ?
		WHERE d.user_id = ?`
	args := []any{userID, userID}
	if deckID != nil {
		query += ` AND d.id = ?`
		args = append(args, *deckID)
	}
	query += ` ORDER BY c.id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards with state for user %d: %w", userID, err)
	}
	defer rows.Close()

	var entries []CardWithState
	for rows.Next() {
		var e CardWithState
		var reps, intervalDays sql.NullInt64
		var ease sql.NullFloat64
		var dueAt, lastReviewedAt sql.NullTime
		var version sql.NullInt64
		if err := rows.Scan(
			&e.Card.ID, &e.Card.DeckID, &e.Card.Front, &e.Card.Back, &e.Card.Fingerprint,
			&e.Deck.ID, &e.Deck.UserID, &e.Deck.Name, &e.Deck.Description, &e.Deck.TemplateFront, &e.Deck.TemplateBack,
			&reps, &ease, &intervalDays, &dueAt, &lastReviewedAt, &version,
		); err != nil {
			return nil, fmt.Errorf("failed to scan card state row: %w", err)
		}
		if dueAt.Valid {
			e.State = &domain.ReviewState{
				UserID:         userID,
				CardID:         e.Card.ID,
				Repetitions:    int(reps.Int64),
				EaseFactor:     ease.Float64,
				IntervalDays:   int(intervalDays.Int64),
				DueAt:          dueAt.Time,
				LastReviewedAt: lastReviewedAt.Time,
				Version:        version.Int64,
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read card state rows: %w", err)
	}

	if err := db.attachTags(ctx, userID, deckID, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// attachTags loads the tag sets for the same scope in one query and merges
// them into the entries.
func (db *DB) attachTags(ctx context.Context, userID int64, deckID *int64, entries []CardWithState) error {
	if len(entries) == 0 {
		return nil
	}
	query := `
		SELECT ct.card_id, t.id, t.name
		FROM card_tags ct
		JOIN tags t ON t.id = ct.tag_id
		JOIN cards c ON c.id = ct.card_id
		JOIN decks d ON d.id = c.deck_id
		WHERE d.user_id = ?`
	args := []any{userID}
	if deckID != nil {
		query += ` AND d.id = ?`
		args = append(args, *deckID)
	}
	query += ` ORDER BY ct.card_id, t.name`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to get tags for user %d: %w", userID, err)
	}
	defer rows.Close()

	byCard := make(map[int64][]domain.Tag)
	for rows.Next() {
		var cardID int64
		var t domain.Tag
		if err := rows.Scan(&cardID, &t.ID, &t.Name); err != nil {
			return fmt.Errorf("failed to scan tag row: %w", err)
		}
		byCard[cardID] = append(byCard[cardID], t)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read tag rows: %w", err)
	}

	for i := range entries {
		entries[i].Card.Tags = byCard[entries[i].Card.ID]
	}
	return nil
}

// EnsureTag returns the ID of the named tag for a user, creating it if
// needed. Names are stored trimmed and lowercased.
func (db *DB) EnsureTag(ctx context.Context, userID int64, name string) (int64, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, err := db.conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO tags (user_id, name) VALUES (?, ?)
	`, userID, name); err != nil {
		return 0, fmt.Errorf("failed to insert tag %s: %w", name, err)
	}
	var id int64
	row := db.conn.QueryRowContext(ctx, `
		SELECT id FROM tags WHERE user_id = ? AND name = ?
	`, userID, name)
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to find tag %s: %w", name, err)
	}
	return id, nil
}

// TagCard links a tag to a card. Linking twice is a no-op.
func (db *DB) TagCard(ctx context.Context, cardID, tagID int64) error {
	if _, err := db.conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO card_tags (card_id, tag_id) VALUES (?, ?)
	`, cardID, tagID); err != nil {
		return fmt.Errorf("failed to tag card %d with tag %d: %w", cardID, tagID, err)
	}
	return nil
}
