package srs

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/cardamom-srs/cardamom/internal/domain"
)

// StateStore is the slice of the storage layer the review service needs.
type StateStore interface {
	// FindOwnedCard resolves a card only if it belongs to a deck owned by
	// userID; otherwise it returns domain.ErrNotFound.
	FindOwnedCard(ctx context.Context, userID, cardID int64) (*domain.Card, error)
	// ReviewState returns the state for (userID, cardID), or nil if the
	// card has never been reviewed.
	ReviewState(ctx context.Context, userID, cardID int64) (*domain.ReviewState, error)
	// UpsertReviewState writes the state, failing with domain.ErrConflict
	// if the stored version no longer matches state.Version.
	UpsertReviewState(ctx context.Context, state *domain.ReviewState) error
}

// Service orchestrates a review submission: ownership check, read state,
// compute the next state, persist. Submissions for the same (user, card)
// pair are serialized through a striped lock so a double-click cannot run
// the read-modify-write cycle twice concurrently; the store's version check
// backstops anything that slips past (e.g. a second process).
type Service struct {
	store  StateStore
	params Params
	clock  Clock
	locks  keyLocks
}

// NewService wires a review service. A nil clock defaults to the system
// clock.
func NewService(store StateStore, params Params, clock Clock) *Service {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Service{store: store, params: params, clock: clock}
}

// SubmitReview applies a grade to a card and persists the resulting state.
func (s *Service) SubmitReview(ctx context.Context, userID, cardID int64, grade domain.Grade) (*domain.ReviewState, error) {
	if !grade.IsValid() {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidGrade, int(grade))
	}
	if _, err := s.store.FindOwnedCard(ctx, userID, cardID); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(userID, cardID)
	defer unlock()

	state, err := s.store.ReviewState(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		initial := s.params.NewState(userID, cardID)
		state = &initial
	}

	next, err := s.params.Next(*state, grade, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.store.UpsertReviewState(ctx, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

// keyLocks is a fixed array of mutexes striped by (userID, cardID).
// Distinct keys may share a stripe; that only costs a little parallelism.
type keyLocks struct {
	stripes [64]sync.Mutex
}

func (k *keyLocks) lock(userID, cardID int64) func() {
	h := fnv.New64a()
	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(userID >> (8 * i))
		buf[8+i] = byte(cardID >> (8 * i))
	}
	h.Write(buf[:])
	m := &k.stripes[h.Sum64()%uint64(len(k.stripes))]
	m.Lock()
	return m.Unlock
}
