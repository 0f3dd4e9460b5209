package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cardamom-srs/cardamom/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB wraps the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to
// date. Foreign keys, WAL and a busy timeout are enabled on every
// connection via DSN pragmas.
func Open(path string) (*DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// CreateUser inserts a user and fills in its ID.
func (db *DB) CreateUser(ctx context.Context, user *domain.User) error {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO users (username, name) VALUES (?, ?)
	`, user.Username, user.Name)
	if err != nil {
		return fmt.Errorf("failed to insert user %s: %w", user.Username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get ID for user %s: %w", user.Username, err)
	}
	user.ID = id
	return nil
}

// FindUserByUsername retrieves a user, or domain.ErrNotFound.
func (db *DB) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, username, name FROM users WHERE username = ?
	`, username)
	if err := row.Scan(&u.ID, &u.Username, &u.Name); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, username)
		}
		return nil, fmt.Errorf("failed to find user %s: %w", username, err)
	}
	return &u, nil
}

// CreateDeck inserts a deck and fills in its ID.
func (db *DB) CreateDeck(ctx context.Context, deck *domain.Deck) error {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO decks (user_id, name, description, template_front, template_back)
		VALUES (?, ?, ?, ?, ?)
	`, deck.UserID, deck.Name, deck.Description, deck.TemplateFront, deck.TemplateBack)
	if err != nil {
		return fmt.Errorf("failed to insert deck %s: %w", deck.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get ID for deck %s: %w", deck.Name, err)
	}
	deck.ID = id
	return nil
}

// FindDeck retrieves a deck by ID, or domain.ErrNotFound.
func (db *DB) FindDeck(ctx context.Context, deckID int64) (*domain.Deck, error) {
	var d domain.Deck
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, user_id, name, description, template_front, template_back
		FROM decks WHERE id = ?
	`, deckID)
	if err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Description, &d.TemplateFront, &d.TemplateBack); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: deck %d", domain.ErrNotFound, deckID)
		}
		return nil, fmt.Errorf("failed to find deck %d: %w", deckID, err)
	}
	return &d, nil
}

// FindDeckByName retrieves a user's deck by name, or nil if absent.
func (db *DB) FindDeckByName(ctx context.Context, userID int64, name string) (*domain.Deck, error) {
	var d domain.Deck
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, user_id, name, description, template_front, template_back
		FROM decks WHERE user_id = ? AND name = ?
	`, userID, name)
	if err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Description, &d.TemplateFront, &d.TemplateBack); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find deck %s for user %d: %w", name, userID, err)
	}
	return &d, nil
}

// DecksForUser retrieves all decks owned by a user, ordered by ID.
func (db *DB) DecksForUser(ctx context.Context, userID int64) ([]domain.Deck, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, name, description, template_front, template_back
		FROM decks WHERE user_id = ? ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get decks for user %d: %w", userID, err)
	}
	defer rows.Close()

	var decks []domain.Deck
	for rows.Next() {
		var d domain.Deck
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Description, &d.TemplateFront, &d.TemplateBack); err != nil {
			return nil, fmt.Errorf("failed to scan deck row: %w", err)
		}
		decks = append(decks, d)
	}
	return decks, rows.Err()
}
