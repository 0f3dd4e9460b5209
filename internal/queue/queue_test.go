package queue

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cardamom-srs/cardamom/internal/domain"
	"github.com/cardamom-srs/cardamom/internal/srs"
	"github.com/cardamom-srs/cardamom/internal/storage"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db    *storage.DB
	user  domain.User
	deck  domain.Deck
	cards []domain.Card
}

// newFixture seeds one user with one deck of four cards:
//
//	cards[0] due an hour ago
//	cards[1] due yesterday
//	cards[2] not due until tomorrow
//	cards[3] new (never reviewed)
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	f := &fixture{db: db}
	f.user = domain.User{Username: "johndoe", Name: "John Doe"}
	if err := db.CreateUser(ctx, &f.user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	f.deck = domain.Deck{UserID: f.user.ID, Name: "Japanese I", TemplateFront: "## {{front}}"}
	if err := db.CreateDeck(ctx, &f.deck); err != nil {
		t.Fatalf("Failed to create deck: %v", err)
	}

	fronts := []string{"犬", "猫", "鳥", "魚"}
	dues := []time.Duration{-time.Hour, -24 * time.Hour, 24 * time.Hour, 0}
	for i, front := range fronts {
		card := domain.Card{DeckID: f.deck.ID, Front: front, Back: "…", Fingerprint: front}
		if err := db.InsertCard(ctx, &card); err != nil {
			t.Fatalf("Failed to insert card: %v", err)
		}
		f.cards = append(f.cards, card)

		if i == 3 {
			continue // stays new
		}
		state := &domain.ReviewState{
			UserID: f.user.ID, CardID: card.ID,
			Repetitions: 1, EaseFactor: 2.5, IntervalDays: 1,
			DueAt:          testNow.Add(dues[i]),
			LastReviewedAt: testNow.Add(-48 * time.Hour),
		}
		if err := db.UpsertReviewState(ctx, state); err != nil {
			t.Fatalf("Failed to upsert state: %v", err)
		}
	}
	return f
}

func cardIDs(entries []Entry) []int64 {
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.Card.ID
	}
	return ids
}

func TestReviewQueueOrdering(t *testing.T) {
	f := newFixture(t)
	b := NewBuilder(f.db, srs.FixedClock{At: testNow})

	entries, err := b.ReviewQueue(context.Background(), f.user.ID, nil)
	if err != nil {
		t.Fatalf("ReviewQueue failed: %v", err)
	}

	// Due cards first by ascending due date, then new cards by ID; the
	// card due tomorrow is excluded.
	want := []int64{f.cards[1].ID, f.cards[0].ID, f.cards[3].ID}
	got := cardIDs(entries)
	if len(got) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected queue order %v, got %v", want, got)
		}
	}

	for _, e := range entries {
		isNew := e.Card.ID == f.cards[3].ID
		if e.IsNew != isNew {
			t.Errorf("Card %d: expected isNew=%v, got %v", e.Card.ID, isNew, e.IsNew)
		}
		if e.Deck.TemplateFront != "## {{front}}" {
			t.Errorf("Card %d: expected deck denormalized onto the entry", e.Card.ID)
		}
	}
}

func TestReviewQueueDeckScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Second deck with one new card; all-decks queue must include it, the
	// scoped queue must not.
	other := domain.Deck{UserID: f.user.ID, Name: "Marathi I"}
	if err := f.db.CreateDeck(ctx, &other); err != nil {
		t.Fatalf("Failed to create deck: %v", err)
	}
	card := domain.Card{DeckID: other.ID, Front: "पाणी", Back: "water", Fingerprint: "fp-water"}
	if err := f.db.InsertCard(ctx, &card); err != nil {
		t.Fatalf("Failed to insert card: %v", err)
	}

	b := NewBuilder(f.db, srs.FixedClock{At: testNow})

	all, err := b.ReviewQueue(ctx, f.user.ID, nil)
	if err != nil {
		t.Fatalf("ReviewQueue failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("Expected 4 entries across decks, got %d", len(all))
	}

	scoped, err := b.ReviewQueue(ctx, f.user.ID, &f.deck.ID)
	if err != nil {
		t.Fatalf("ReviewQueue failed: %v", err)
	}
	for _, e := range scoped {
		if e.Card.DeckID != f.deck.ID {
			t.Errorf("Scoped queue leaked card %d from deck %d", e.Card.ID, e.Card.DeckID)
		}
	}
}

func TestReviewQueueEmptyDeck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty := domain.Deck{UserID: f.user.ID, Name: "Empty"}
	if err := f.db.CreateDeck(ctx, &empty); err != nil {
		t.Fatalf("Failed to create deck: %v", err)
	}

	b := NewBuilder(f.db, srs.FixedClock{At: testNow})
	entries, err := b.ReviewQueue(ctx, f.user.ID, &empty.ID)
	if err != nil {
		t.Fatalf("Expected empty queue, not an error: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("Expected empty non-nil queue, got %v", entries)
	}

	cram, err := b.CramQueue(ctx, f.user.ID, empty.ID)
	if err != nil {
		t.Fatalf("Expected empty cram queue, not an error: %v", err)
	}
	if len(cram) != 0 {
		t.Errorf("Expected empty cram queue, got %v", cram)
	}
}

func TestQueueOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := domain.User{Username: "janedoe"}
	if err := f.db.CreateUser(ctx, &other); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	b := NewBuilder(f.db, srs.FixedClock{At: testNow})

	if _, err := b.CramQueue(ctx, other.ID, f.deck.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("Expected ErrForbidden for another user's deck, got %v", err)
	}
	if _, err := b.ReviewQueue(ctx, other.ID, &f.deck.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("Expected ErrForbidden for another user's deck, got %v", err)
	}
	if _, err := b.CramQueue(ctx, f.user.ID, 9999); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown deck, got %v", err)
	}
}

func TestCramQueueIgnoresDueStatus(t *testing.T) {
	f := newFixture(t)
	b := NewBuilder(f.db, srs.FixedClock{At: testNow})

	entries, err := b.CramQueue(context.Background(), f.user.ID, f.deck.ID)
	if err != nil {
		t.Fatalf("CramQueue failed: %v", err)
	}
	if len(entries) != len(f.cards) {
		t.Fatalf("Expected all %d cards, got %d", len(f.cards), len(entries))
	}
	for i, e := range entries {
		if e.Card.ID != f.cards[i].ID {
			t.Errorf("Expected ascending card IDs, got %v", cardIDs(entries))
			break
		}
	}
}

func TestCramQueueUnaffectedByReviews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clock := srs.FixedClock{At: testNow}
	b := NewBuilder(f.db, clock)

	before, err := b.CramQueue(ctx, f.user.ID, f.deck.ID)
	if err != nil {
		t.Fatalf("CramQueue failed: %v", err)
	}

	svc := srs.NewService(f.db, srs.DefaultParams(), clock)
	if _, err := svc.SubmitReview(ctx, f.user.ID, f.cards[1].ID, domain.GradeAgain); err != nil {
		t.Fatalf("SubmitReview failed: %v", err)
	}

	after, err := b.CramQueue(ctx, f.user.ID, f.deck.ID)
	if err != nil {
		t.Fatalf("CramQueue failed: %v", err)
	}
	beforeIDs, afterIDs := cardIDs(before), cardIDs(after)
	if len(beforeIDs) != len(afterIDs) {
		t.Fatalf("Cram set changed: %v vs %v", beforeIDs, afterIDs)
	}
	for i := range beforeIDs {
		if beforeIDs[i] != afterIDs[i] {
			t.Fatalf("Cram order changed: %v vs %v", beforeIDs, afterIDs)
		}
	}
}
