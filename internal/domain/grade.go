package domain

// Grade is the quality score the UI posts after a review.
// The values mirror the four buttons the study screen offers; 0 and 2 are
// reserved by the SM-2 family for gradations the UI does not expose.
type Grade int

const (
	GradeAgain Grade = 1 // completely forgot
	GradeHard  Grade = 3 // recalled with difficulty
	GradeGood  Grade = 4 // recalled after brief hesitation
	GradeEasy  Grade = 5 // perfect recall
)

// IsValid reports whether g is one of the accepted grades.
func (g Grade) IsValid() bool {
	switch g {
	case GradeAgain, GradeHard, GradeGood, GradeEasy:
		return true
	}
	return false
}

// IsLapse reports whether g counts as a failed recall.
func (g Grade) IsLapse() bool { return g == GradeAgain }

func (g Grade) String() string {
	switch g {
	case GradeAgain:
		return "Again"
	case GradeHard:
		return "Hard"
	case GradeGood:
		return "Good"
	case GradeEasy:
		return "Easy"
	}
	return "Grade(?)"
}
