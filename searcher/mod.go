package searcher

import (
	"fmt"

	"github.com/pkg/errors"
)

// NoMove is returned when a search establishes no move, e.g. with a zero budget.
const NoMove = -1

// ScoreRecord holds the statistics of one distinct game state.
// Visits >= Wins >= 0 holds at all times.
type ScoreRecord struct {
	Wins   int
	Visits int
}

// Invariant violations. They abort the current search and indicate a bug in
// the traversal or in the game implementation, never an expected condition.
var (
	ErrNullPath          = errors.New("null node in search path")
	ErrUnexploredNode    = errors.New("node missing from score table")
	ErrNoValidChild      = errors.New("no valid child")
	ErrNoMoveFound       = errors.New("no move found in search path")
	ErrInvalidIterations = errors.New("invalid iteration count")
)

// Stats is a snapshot of an engine's counters.
type Stats struct {
	Expanded        int
	TotalIterations int
	GamesPlayed     int
	Wins            int
}

func (s Stats) String() string {
	return fmt.Sprintf("Total Expanded: %d Total Iterations: %d Games Played: %d Wins: %d",
		s.Expanded, s.TotalIterations, s.GamesPlayed, s.Wins)
}
