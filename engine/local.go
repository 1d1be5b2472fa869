package engine

import (
	"time"

	"connectfour/experiments/metrics"
	"connectfour/game"
	"connectfour/meta"
	"connectfour/searcher/agent"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type localEngine struct {
	state    *game.Board
	agents   map[game.Cell]agent.Agent
	maxTurns int
}

// LocalEngine plays red against yellow in process, starting from start
// (the empty board when nil).
func LocalEngine(red, yellow agent.Agent, start *game.Board) *localEngine {
	if red == nil || yellow == nil {
		panic("need an agent for both players")
	}
	state := game.NewBoard()
	if start != nil {
		state = start.Copy()
	}
	return &localEngine{
		state:    state,
		agents:   map[game.Cell]agent.Agent{game.Red: red, game.Yellow: yellow},
		maxTurns: meta.MaxTurns,
	}
}

func (e *localEngine) State() *game.Board {
	return e.state
}

// Run executes the entire game loop until the game is over or the turn limit is hit.
func (e *localEngine) Run() (string, metrics.GameMetric, []metrics.MoveMetric, error) {
	gameMetric := metrics.GameMetric{
		StartingPlayer: e.state.ToMove().String(),
		StartTime:      time.Now(),
	}
	log.Info().Msgf("%s is starting", gameMetric.StartingPlayer)

	var moveMetrics []metrics.MoveMetric
	turnCount := 1
	for !e.state.GameOver() && turnCount <= e.maxTurns {
		player := e.state.ToMove()

		move, searchMetric, err := e.agents[player].FindMove(e.state.Copy())
		if err != nil {
			return "", gameMetric, moveMetrics, errors.Wrapf(err, "%s failed to find a move at turn %d", player, turnCount)
		}
		if !e.state.ValidMove(move) {
			return "", gameMetric, moveMetrics, errors.Wrapf(game.ErrIllegalMove, "%s played column %d at turn %d", player, move, turnCount)
		}
		if err := e.state.AddPiece(move); err != nil {
			return "", gameMetric, moveMetrics, err
		}

		moveMetrics = append(moveMetrics, metrics.MoveMetric{
			Step:         turnCount,
			Player:       player.String(),
			Move:         move,
			SearchMetric: searchMetric,
		})
		log.Debug().Msgf("turn %d: %s played column %d", turnCount, player, move)
		turnCount++
	}

	winner := ""
	switch {
	case e.state.Winner() != game.None:
		winner = e.state.Winner().String()
		log.Info().Msgf("game ended with a winner: %s", winner)
	case e.state.GameOver():
		winner = Draw
		log.Info().Msg("game ended in a draw")
	default:
		log.Info().Msgf("stopped after %d turns (no winner yet)", e.maxTurns)
	}

	gameMetric.Winner = winner
	gameMetric.EndTime = time.Now()
	gameMetric.Duration = gameMetric.EndTime.Sub(gameMetric.StartTime)
	gameMetric.TotalMoves = len(moveMetrics)

	e.record()
	return winner, gameMetric, moveMetrics, nil
}

// record reports a finished game to agents that keep track of results. An agent
// playing both sides records the game once, as a win unless it was drawn.
func (e *localEngine) record() {
	if !e.state.GameOver() {
		return
	}
	red, yellow := e.agents[game.Red], e.agents[game.Yellow]
	if red == yellow {
		if r, ok := red.(agent.Recorder); ok {
			r.RecordGame(e.state.Winner() != game.None)
		}
		return
	}
	for player, a := range e.agents {
		if r, ok := a.(agent.Recorder); ok {
			r.RecordGame(e.state.Winner() == player)
		}
	}
}
