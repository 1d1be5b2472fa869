package searcher

import (
	"fmt"
	"math"
)

// Scoring selects how the exploitation term of the selection score is computed.
type Scoring int

const (
	// FractionalWinRatio uses wins/visits as a real number.
	FractionalWinRatio Scoring = iota
	// TruncatedWinRatio divides wins by visits in integers, so the ratio is 1
	// only for children that won every visit and 0 otherwise.
	TruncatedWinRatio
)

func (s Scoring) String() string {
	switch s {
	case FractionalWinRatio:
		return "fractional"
	case TruncatedWinRatio:
		return "truncated"
	default:
		return fmt.Sprintf("scoring(%d)", int(s))
	}
}

// ParseScoring is the inverse of Scoring.String.
func ParseScoring(name string) (Scoring, error) {
	switch name {
	case "fractional", "":
		return FractionalWinRatio, nil
	case "truncated":
		return TruncatedWinRatio, nil
	default:
		return 0, fmt.Errorf("unknown scoring %q", name)
	}
}

// ucb scores a child from the parent's point of view:
// winRatio + c * sqrt(ln(parentVisits) / childVisits)
func ucb(scoring Scoring, c float64, parent, child ScoreRecord) float64 {
	// Prioritize children that were never visited
	if child.Visits == 0 {
		return math.Inf(1)
	}

	var winRatio float64
	if scoring == TruncatedWinRatio {
		winRatio = float64(child.Wins / child.Visits)
	} else {
		winRatio = float64(child.Wins) / float64(child.Visits)
	}
	visitRatio := math.Log(float64(parent.Visits)) / float64(child.Visits)

	return winRatio + c*math.Sqrt(visitRatio)
}
