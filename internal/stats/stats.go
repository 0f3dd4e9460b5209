// Package stats computes the study-progress counts the deck list refreshes
// on every row.
package stats

import (
	"context"
	"fmt"

	"github.com/cardamom-srs/cardamom/internal/domain"
	"github.com/cardamom-srs/cardamom/internal/srs"
	"github.com/cardamom-srs/cardamom/internal/storage"
)

// Aggregator answers stats queries from a single indexed pass over the
// store.
type Aggregator struct {
	store *storage.DB
	clock srs.Clock
}

// NewAggregator wires a stats aggregator. A nil clock defaults to the
// system clock.
func NewAggregator(store *storage.DB, clock srs.Clock) *Aggregator {
	if clock == nil {
		clock = srs.SystemClock{}
	}
	return &Aggregator{store: store, clock: clock}
}

// Summary returns the counts for a user, optionally scoped to one deck.
// New cards count as due (they are ready to study) and are also reported
// separately; NewCards+ReviewedCards always equals TotalCards.
func (a *Aggregator) Summary(ctx context.Context, userID int64, deckID *int64) (domain.StudyStats, error) {
	if deckID != nil {
		deck, err := a.store.FindDeck(ctx, *deckID)
		if err != nil {
			return domain.StudyStats{}, err
		}
		if deck.UserID != userID {
			return domain.StudyStats{}, fmt.Errorf("%w: deck %d", domain.ErrForbidden, *deckID)
		}
	}

	total, reviewed, due, err := a.store.ReviewCounts(ctx, userID, deckID, a.clock.Now())
	if err != nil {
		return domain.StudyStats{}, err
	}

	newCards := total - reviewed
	return domain.StudyStats{
		DueCards:      due + newCards,
		NewCards:      newCards,
		ReviewedCards: reviewed,
		TotalCards:    total,
	}, nil
}
