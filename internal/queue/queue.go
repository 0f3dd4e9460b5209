// Package queue selects and orders the cards a study session presents.
//
// Ordering is a contract the session UI depends on. Review queues return
// due cards first, ascending by due date (ties broken by ascending card
// ID), followed by new cards ascending by card ID. Cram queues return the
// whole deck ascending by card ID. Shuffling, when the UI wants it, happens
// client-side over the returned list.
package queue

import (
	"context"
	"fmt"
	"sort"

	"github.com/cardamom-srs/cardamom/internal/domain"
	"github.com/cardamom-srs/cardamom/internal/srs"
	"github.com/cardamom-srs/cardamom/internal/storage"
)

// Entry is one card of a session, with its deck denormalized so the UI can
// render the deck templates without a second fetch.
type Entry struct {
	Card  domain.Card `json:"card"`
	Deck  domain.Deck `json:"deck"`
	IsNew bool        `json:"isNew"`
}

// Builder computes session queues. It only reads; review submissions go
// through the srs service.
type Builder struct {
	store *storage.DB
	clock srs.Clock
}

// NewBuilder wires a queue builder. A nil clock defaults to the system
// clock.
func NewBuilder(store *storage.DB, clock srs.Clock) *Builder {
	if clock == nil {
		clock = srs.SystemClock{}
	}
	return &Builder{store: store, clock: clock}
}

// ReviewQueue returns the cards a user should review now: cards with no
// review state ("new") and cards whose due date has passed. A nil deckID
// spans every deck the user owns. The queue is recomputed fresh on each
// call.
func (b *Builder) ReviewQueue(ctx context.Context, userID int64, deckID *int64) ([]Entry, error) {
	if deckID != nil {
		if err := b.checkDeckOwnership(ctx, userID, *deckID); err != nil {
			return nil, err
		}
	}

	rows, err := b.store.CardsWithState(ctx, userID, deckID)
	if err != nil {
		return nil, err
	}

	now := b.clock.Now()
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		switch {
		case row.State == nil:
			entries = append(entries, Entry{Card: row.Card, Deck: row.Deck, IsNew: true})
		case !row.State.DueAt.After(now):
			entries = append(entries, Entry{Card: row.Card, Deck: row.Deck})
		}
	}

	dueAt := make(map[int64]int64, len(rows))
	for _, row := range rows {
		if row.State != nil {
			dueAt[row.Card.ID] = row.State.DueAt.UnixNano()
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, z := entries[i], entries[j]
		if a.IsNew != z.IsNew {
			return !a.IsNew // due cards before new cards
		}
		if a.IsNew {
			return a.Card.ID < z.Card.ID
		}
		if dueAt[a.Card.ID] != dueAt[z.Card.ID] {
			return dueAt[a.Card.ID] < dueAt[z.Card.ID]
		}
		return a.Card.ID < z.Card.ID
	})
	return entries, nil
}

// CramQueue returns every card of one deck regardless of due status. Cram
// sessions are drills: they never touch review state, so interleaved
// reviews do not change the set or its order.
func (b *Builder) CramQueue(ctx context.Context, userID, deckID int64) ([]Entry, error) {
	if err := b.checkDeckOwnership(ctx, userID, deckID); err != nil {
		return nil, err
	}

	rows, err := b.store.CardsWithState(ctx, userID, &deckID)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, Entry{Card: row.Card, Deck: row.Deck, IsNew: row.State == nil})
	}
	// CardsWithState already orders by ascending card ID.
	return entries, nil
}

func (b *Builder) checkDeckOwnership(ctx context.Context, userID, deckID int64) error {
	deck, err := b.store.FindDeck(ctx, deckID)
	if err != nil {
		return err
	}
	if deck.UserID != userID {
		return fmt.Errorf("%w: deck %d", domain.ErrForbidden, deckID)
	}
	return nil
}
