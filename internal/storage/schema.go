package storage

const schema = `
-- Users own decks and review history. Authentication lives outside the
-- engine; this table only anchors ownership.
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS decks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    template_front TEXT NOT NULL DEFAULT '',
    template_back TEXT NOT NULL DEFAULT '',

    FOREIGN KEY(user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS cards (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    deck_id INTEGER NOT NULL,
    front TEXT NOT NULL,
    back TEXT NOT NULL,
    fingerprint TEXT NOT NULL,

    FOREIGN KEY(deck_id) REFERENCES decks(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_cards_deck ON cards(deck_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_cards_deck_fingerprint
    ON cards(deck_id, fingerprint);

CREATE TABLE IF NOT EXISTS tags (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    name TEXT NOT NULL,

    UNIQUE(user_id, name),
    FOREIGN KEY(user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS card_tags (
    card_id INTEGER NOT NULL,
    tag_id INTEGER NOT NULL,

    PRIMARY KEY (card_id, tag_id),
    FOREIGN KEY(card_id) REFERENCES cards(id) ON DELETE CASCADE,
    FOREIGN KEY(tag_id) REFERENCES tags(id) ON DELETE CASCADE
);

-- One row per user x card, created lazily on the first review. A card with
-- no row here is "new". The version column backs the optimistic write check.
CREATE TABLE IF NOT EXISTS review_states (
    user_id INTEGER NOT NULL,
    card_id INTEGER NOT NULL,
    repetitions INTEGER NOT NULL DEFAULT 0,
    ease_factor REAL NOT NULL,
    interval_days INTEGER NOT NULL DEFAULT 0,
    due_at DATETIME NOT NULL,
    last_reviewed_at DATETIME NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,

    PRIMARY KEY (user_id, card_id),
    FOREIGN KEY(user_id) REFERENCES users(id),
    FOREIGN KEY(card_id) REFERENCES cards(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_review_states_due
    ON review_states(user_id, due_at);

-- Card sources feed decks: a local directory or a git repository of
-- markdown card files, reconciled into the target deck on each sync.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    deck_id INTEGER NOT NULL,
    path TEXT NOT NULL UNIQUE,
    kind TEXT NOT NULL DEFAULT 'local',
    last_synced_at DATETIME,

    FOREIGN KEY(user_id) REFERENCES users(id),
    FOREIGN KEY(deck_id) REFERENCES decks(id) ON DELETE CASCADE
);
`
