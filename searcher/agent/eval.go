package agent

import (
	"connectfour/experiments/metrics"
	"connectfour/game"
	"connectfour/searcher"

	"github.com/pkg/errors"
)

type evaluationAgent struct {
	mcts       *searcher.MCTS
	iterations int
}

// NewEvaluationAgent returns an agent that plays the move found by the search.
func NewEvaluationAgent(mcts *searcher.MCTS, iterations int) *evaluationAgent {
	return &evaluationAgent{mcts: mcts, iterations: iterations}
}

func (a *evaluationAgent) FindMove(state game.State) (int, metrics.SearchMetric, error) {
	if a.iterations < 1 {
		return searcher.NoMove, metrics.SearchMetric{}, errors.Wrapf(searcher.ErrInvalidIterations, "agent needs a positive budget to move, got %d", a.iterations)
	}
	move, err := a.mcts.Search(state, a.iterations)
	if err != nil {
		return searcher.NoMove, metrics.SearchMetric{}, err
	}
	return move, a.mcts.Metrics(), nil
}

func (a *evaluationAgent) RecordGame(won bool) {
	a.mcts.RecordGame(won)
}

func (a *evaluationAgent) Stats() searcher.Stats {
	return a.mcts.Stats()
}
