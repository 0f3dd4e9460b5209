package srs

// Params holds the tunable constants of the SM-2 scheduler. The original
// deployment's exact constants are unknown, so all of them are plain
// configuration with conventional defaults rather than hard-coded.
type Params struct {
	// InitialEase is the ease factor a card starts with before its first
	// review.
	InitialEase float64
	// MinEase is the algorithm floor; ease never drops below it.
	MinEase float64
	// LapsePenalty is subtracted from ease on a failed recall.
	LapsePenalty float64
	// FirstIntervalDays and SecondIntervalDays are the fixed steps for the
	// first two successful reviews.
	FirstIntervalDays  int
	SecondIntervalDays int
	// RelearnIntervalDays is the interval a card drops to after a lapse.
	RelearnIntervalDays int
	// MaxIntervalDays caps interval growth. Zero means uncapped.
	MaxIntervalDays int
}

// DefaultParams returns the conventional SM-2 defaults.
func DefaultParams() Params {
	return Params{
		InitialEase:         2.5,
		MinEase:             1.3,
		LapsePenalty:        0.2,
		FirstIntervalDays:   1,
		SecondIntervalDays:  6,
		RelearnIntervalDays: 1,
		MaxIntervalDays:     365,
	}
}
