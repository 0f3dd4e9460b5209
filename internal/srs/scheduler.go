package srs

import (
	"fmt"
	"math"
	"time"

	"github.com/cardamom-srs/cardamom/internal/domain"
)

// NewState returns the implicit starting state of a card that has never
// been reviewed. It is not persisted; the store only sees states produced
// by Next.
func (p Params) NewState(userID, cardID int64) domain.ReviewState {
	return domain.ReviewState{
		UserID:      userID,
		CardID:      cardID,
		Repetitions: 0,
		EaseFactor:  p.InitialEase,
	}
}

// Next computes the state that follows a graded review. It is a pure
// function of (state, grade, now); the caller persists the result.
func (p Params) Next(state domain.ReviewState, grade domain.Grade, now time.Time) (domain.ReviewState, error) {
	if !grade.IsValid() {
		return domain.ReviewState{}, fmt.Errorf("%w: %d", domain.ErrInvalidGrade, int(grade))
	}

	next := state
	if grade.IsLapse() {
		next.Repetitions = 0
		next.IntervalDays = p.RelearnIntervalDays
		next.EaseFactor = p.clampEase(state.EaseFactor - p.LapsePenalty)
	} else {
		next.Repetitions = state.Repetitions + 1
		switch next.Repetitions {
		case 1:
			next.IntervalDays = p.FirstIntervalDays
		case 2:
			next.IntervalDays = p.SecondIntervalDays
		default:
			next.IntervalDays = growInterval(state.IntervalDays, state.EaseFactor)
		}
		if p.MaxIntervalDays > 0 && next.IntervalDays > p.MaxIntervalDays {
			next.IntervalDays = p.MaxIntervalDays
		}
		next.EaseFactor = p.clampEase(adjustEase(state.EaseFactor, grade))
	}

	next.LastReviewedAt = now
	next.DueAt = now.AddDate(0, 0, next.IntervalDays)
	return next, nil
}

// adjustEase applies the SM-2 ease formula:
// EF' = EF + (0.1 - (5-q)*(0.08 + (5-q)*0.02))
// which raises ease for grade 5, holds it near steady for 4, and lowers it
// slightly for 3. No upper clamp.
func adjustEase(ease float64, grade domain.Grade) float64 {
	q := float64(grade)
	return ease + (0.1 - (5-q)*(0.08+(5-q)*0.02))
}

// growInterval multiplies the previous interval by the ease factor and
// rounds to whole days, never shrinking below one day.
func growInterval(prevDays int, ease float64) int {
	days := int(math.Round(float64(prevDays) * ease))
	if days < 1 {
		days = 1
	}
	return days
}

func (p Params) clampEase(ease float64) float64 {
	if ease < p.MinEase {
		return p.MinEase
	}
	return ease
}
