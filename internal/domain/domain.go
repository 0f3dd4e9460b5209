package domain

import "time"

// User is the owner of decks and review history. Authentication is handled
// by an external collaborator; the engine only needs the identity.
type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Deck groups cards and carries the presentation templates the UI wraps
// around card text. Templates are stored and returned verbatim.
type Deck struct {
	ID            int64  `json:"id"`
	UserID        int64  `json:"-"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	TemplateFront string `json:"templateFront"`
	TemplateBack  string `json:"templateBack"`
}

// Card is a single front/back entry. Content is edited externally; the
// engine treats it as immutable and only schedules it.
type Card struct {
	ID          int64  `json:"id"`
	DeckID      int64  `json:"-"`
	Front       string `json:"front"`
	Back        string `json:"back"`
	Fingerprint string `json:"-"`
	Tags        []Tag  `json:"tags,omitempty"`
}

// Tag is an opaque label attached to a card. Tag management is out of
// scope; the engine just carries the shape through queue responses.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ReviewState is the per user, per card memory state. A card with no
// ReviewState row is "new". Created lazily on the first submitted grade.
type ReviewState struct {
	UserID         int64
	CardID         int64
	Repetitions    int
	EaseFactor     float64
	IntervalDays   int
	DueAt          time.Time
	LastReviewedAt time.Time
	// Version increments on every write; used for the optimistic
	// concurrency check in the store.
	Version int64
}

// StudyStats is the aggregate the deck list refreshes per row.
// NewCards + ReviewedCards == TotalCards always holds.
type StudyStats struct {
	DueCards      int `json:"dueCards"`
	NewCards      int `json:"newCards"`
	ReviewedCards int `json:"reviewedCards"`
	TotalCards    int `json:"totalCards"`
}
