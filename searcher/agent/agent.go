package agent

import (
	"connectfour/experiments/metrics"
	"connectfour/game"
)

type Agent interface {
	// FindMove returns the chosen move and performance metrics (if collected) from the search
	FindMove(state game.State) (int, metrics.SearchMetric, error)
}

// Recorder is implemented by agents that keep track of finished games.
type Recorder interface {
	RecordGame(won bool)
}
