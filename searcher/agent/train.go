package agent

import (
	"math"
	"sort"

	"connectfour/experiments/metrics"
	"connectfour/game"
	"connectfour/searcher"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

type trainingAgent struct {
	mcts        *searcher.MCTS
	iterations  int
	temperature float64
	rng         *rand.Rand
}

// NewTrainingAgent returns an agent for self-play that samples moves from the
// visit counts of the root's children instead of playing the search's move.
func NewTrainingAgent(mcts *searcher.MCTS, iterations int, temperature float64, seed uint64) *trainingAgent {
	if temperature <= 0 {
		temperature = 1.0
	}
	return &trainingAgent{
		mcts:        mcts,
		iterations:  iterations,
		temperature: temperature,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

func (a *trainingAgent) FindMove(state game.State) (int, metrics.SearchMetric, error) {
	if a.iterations < 1 {
		return searcher.NoMove, metrics.SearchMetric{}, errors.Wrapf(searcher.ErrInvalidIterations, "agent needs a positive budget to move, got %d", a.iterations)
	}
	move, err := a.mcts.Search(state, a.iterations)
	if err != nil {
		return searcher.NoMove, metrics.SearchMetric{}, err
	}

	policy := a.mcts.Policy(state)
	if len(policy) == 0 {
		return move, a.mcts.Metrics(), nil
	}
	policy = adjustTemperature(policy, a.temperature)
	return sample(policy, a.rng.Float64()), a.mcts.Metrics(), nil
}

func (a *trainingAgent) RecordGame(won bool) {
	a.mcts.RecordGame(won)
}

func adjustTemperature(policy map[int]float64, temperature float64) map[int]float64 {
	// Compute temperature-adjusted move probabilities
	exponent := 1.0 / temperature
	sum := 0.0
	adjusted := make(map[int]float64, len(policy))
	for move, visit := range policy {
		prob := math.Pow(visit, exponent)
		sum += prob
		adjusted[move] = prob
	}
	// Normalize
	for move := range adjusted {
		adjusted[move] /= sum
	}
	return adjusted
}

// sample picks a move by walking the cumulative distribution in move order.
func sample(policy map[int]float64, sampled float64) int {
	moves := make([]int, 0, len(policy))
	for move := range policy {
		moves = append(moves, move)
	}
	sort.Ints(moves)

	cumulative := 0.0
	for _, move := range moves {
		cumulative += policy[move]
		if sampled < cumulative {
			return move
		}
	}
	return moves[len(moves)-1] // Fallback in case of rounding errors
}
