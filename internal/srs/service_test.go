package srs

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cardamom-srs/cardamom/internal/domain"
	"github.com/cardamom-srs/cardamom/internal/storage"
)

// Compile-time check that the storage layer satisfies the service's view
// of it.
var _ StateStore = (*storage.DB)(nil)

func newServiceFixture(t *testing.T) (*Service, *storage.DB, int64, int64) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	user := domain.User{Username: "johndoe", Name: "John Doe"}
	if err := db.CreateUser(ctx, &user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	deck := domain.Deck{UserID: user.ID, Name: "Japanese I"}
	if err := db.CreateDeck(ctx, &deck); err != nil {
		t.Fatalf("Failed to create deck: %v", err)
	}
	card := domain.Card{DeckID: deck.ID, Front: "犬", Back: "dog", Fingerprint: "fp-dog"}
	if err := db.InsertCard(ctx, &card); err != nil {
		t.Fatalf("Failed to insert card: %v", err)
	}

	svc := NewService(db, DefaultParams(), FixedClock{At: testNow})
	return svc, db, user.ID, card.ID
}

func TestSubmitReviewCreatesStateLazily(t *testing.T) {
	svc, db, userID, cardID := newServiceFixture(t)
	ctx := context.Background()

	before, err := db.ReviewState(ctx, userID, cardID)
	if err != nil {
		t.Fatalf("ReviewState failed: %v", err)
	}
	if before != nil {
		t.Fatal("Expected no review state before the first submission")
	}

	state, err := svc.SubmitReview(ctx, userID, cardID, domain.GradeGood)
	if err != nil {
		t.Fatalf("SubmitReview failed: %v", err)
	}
	if state.Repetitions != 1 || state.IntervalDays != 1 {
		t.Errorf("Expected repetitions=1 interval=1 after first review, got %d/%d", state.Repetitions, state.IntervalDays)
	}

	stored, err := db.ReviewState(ctx, userID, cardID)
	if err != nil {
		t.Fatalf("ReviewState failed: %v", err)
	}
	if stored == nil {
		t.Fatal("Expected a persisted review state after the first submission")
	}
	if stored.Version != 1 {
		t.Errorf("Expected version 1 after first write, got %d", stored.Version)
	}
}

func TestSubmitReviewAdvancesState(t *testing.T) {
	svc, db, userID, cardID := newServiceFixture(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if _, err := svc.SubmitReview(ctx, userID, cardID, domain.GradeGood); err != nil {
			t.Fatalf("SubmitReview %d failed: %v", i, err)
		}
	}

	stored, err := db.ReviewState(ctx, userID, cardID)
	if err != nil {
		t.Fatalf("ReviewState failed: %v", err)
	}
	if stored.Repetitions != 3 {
		t.Errorf("Expected repetitions 3, got %d", stored.Repetitions)
	}
	if stored.IntervalDays != 15 {
		t.Errorf("Expected interval 15, got %d", stored.IntervalDays)
	}
	if stored.Version != 3 {
		t.Errorf("Expected version 3 after three writes, got %d", stored.Version)
	}
}

func TestSubmitReviewRejectsInvalidGrade(t *testing.T) {
	svc, _, userID, cardID := newServiceFixture(t)

	for _, grade := range []domain.Grade{0, 2, 7} {
		_, err := svc.SubmitReview(context.Background(), userID, cardID, grade)
		if !errors.Is(err, domain.ErrInvalidGrade) {
			t.Errorf("Expected ErrInvalidGrade for grade %d, got %v", grade, err)
		}
	}
}

func TestSubmitReviewUnknownOrForeignCard(t *testing.T) {
	svc, db, userID, cardID := newServiceFixture(t)
	ctx := context.Background()

	if _, err := svc.SubmitReview(ctx, userID, 9999, domain.GradeGood); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown card, got %v", err)
	}

	other := domain.User{Username: "janedoe", Name: "Jane Doe"}
	if err := db.CreateUser(ctx, &other); err != nil {
		t.Fatalf("Failed to create second user: %v", err)
	}
	if _, err := svc.SubmitReview(ctx, other.ID, cardID, domain.GradeGood); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for another user's card, got %v", err)
	}
}

func TestSubmitReviewConcurrentSameCard(t *testing.T) {
	svc, db, userID, cardID := newServiceFixture(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.SubmitReview(ctx, userID, cardID, domain.GradeGood); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Concurrent SubmitReview failed: %v", err)
	}

	stored, err := db.ReviewState(ctx, userID, cardID)
	if err != nil {
		t.Fatalf("ReviewState failed: %v", err)
	}
	// Serialized submissions: no lost updates.
	if stored.Version != workers {
		t.Errorf("Expected version %d after %d serialized writes, got %d", workers, workers, stored.Version)
	}
	if stored.Repetitions != workers {
		t.Errorf("Expected repetitions %d, got %d", workers, stored.Repetitions)
	}
}
