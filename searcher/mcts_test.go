package searcher

import (
	"testing"

	"connectfour/game"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

/**
Searching is covered on two kinds of roots:
- hand-built mock graphs, to pin down each phase and each invariant violation
- real Connect Four boards, for end to end behaviour:
	- empty board: one iteration gives a legal move
	- win in one: the winning column dominates the root statistics
	- full column: never returned
	- terminal root: reported without touching statistics
*/

func winInOne(t *testing.T) *game.Board {
	// Red wins at column 3, Yellow threatens column 6
	b, err := game.ParseBoard([]string{
		".......",
		".......",
		".......",
		"......Y",
		"......Y",
		"RRR...Y",
	})
	require.NoError(t, err)
	require.True(t, b.IsRed())
	return b
}

func sumScores(m *MCTS) (wins, visits int) {
	for _, score := range m.scores {
		wins += score.Wins
		visits += score.Visits
	}
	return wins, visits
}

func TestSearchOnBoard(t *testing.T) {
	t.Run("single iteration on the empty board returns a legal move", func(t *testing.T) {
		b := game.NewBoard()
		m := NewMCTS(WithSeed(1))

		move, err := m.Search(b, 1)

		require.NoError(t, err)
		require.True(t, b.ValidMove(move), "Move %d should be legal", move)
		require.Equal(t, 2, m.Stats().Expanded, "Root and one expanded child should be recorded")
		require.Equal(t, 1, m.TotalIterations())
		root, ok := m.Score(b)
		require.True(t, ok)
		require.Equal(t, 2, root.Visits, "Seeded root should gain one visit")
	})

	t.Run("finding a win in one", func(t *testing.T) {
		hits := 0
		for seed := uint64(1); seed <= 10; seed++ {
			b := winInOne(t)
			m := NewMCTS(WithSeed(seed))

			move, err := m.Search(b, 500)
			require.NoError(t, err)
			if move == 3 {
				hits++
			}

			policy := m.Policy(b)
			best, bestVisits := NoMove, 0.0
			for move, visits := range policy {
				if visits > bestVisits {
					best, bestVisits = move, visits
				}
			}
			require.Equal(t, 3, best, "Winning column should be the most visited (seed %d, policy %v)", seed, policy)
		}
		require.GreaterOrEqual(t, hits, 8, "Winning column should be returned reliably")
	})

	t.Run("full column is never returned", func(t *testing.T) {
		b, err := game.FromMoves([]int{3, 3, 3, 3, 3, 3})
		require.NoError(t, err)
		require.False(t, b.ValidMove(3))

		for _, iterations := range []int{1, 10, 100, 400} {
			m := NewMCTS(WithSeed(uint64(iterations)))
			move, err := m.Search(b, iterations)

			require.NoError(t, err)
			require.NotEqual(t, 3, move, "Full column should not be selected")
			require.True(t, b.ValidMove(move))
		}
	})

	t.Run("terminal root is reported without touching statistics", func(t *testing.T) {
		b, err := game.FromMoves([]int{0, 1, 0, 1, 0, 1, 0})
		require.NoError(t, err)
		m := NewMCTS(WithSeed(1))

		move, err := m.Search(b, 5)

		require.True(t, errors.Is(err, ErrNoMoveFound), "Should report that no move exists, got %v", err)
		require.Equal(t, NoMove, move)
		require.Equal(t, 1, m.Stats().Expanded, "Only the root should be seeded")
		root, _ := m.Score(b)
		require.Equal(t, ScoreRecord{Wins: 1, Visits: 1}, root)
		require.Equal(t, 0, m.TotalIterations())
	})

	t.Run("zero iterations seeds the root and returns no move", func(t *testing.T) {
		b := game.NewBoard()
		m := NewMCTS(WithSeed(1))

		move, err := m.Search(b, 0)

		require.NoError(t, err)
		require.Equal(t, NoMove, move)
		require.Equal(t, 1, m.Stats().Expanded)
	})

	t.Run("negative iterations are rejected", func(t *testing.T) {
		m := NewMCTS(WithSeed(1))
		_, err := m.Search(game.NewBoard(), -1)
		require.True(t, errors.Is(err, ErrInvalidIterations))
	})

	t.Run("nil root is rejected", func(t *testing.T) {
		m := NewMCTS(WithSeed(1))
		_, err := m.Search(nil, 1)
		require.True(t, errors.Is(err, ErrNullPath))
	})
}

func TestSearchProperties(t *testing.T) {
	t.Run("same seed gives the same search", func(t *testing.T) {
		b, err := game.FromMoves([]int{3, 2, 4})
		require.NoError(t, err)
		first := NewMCTS(WithSeed(7))
		second := NewMCTS(WithSeed(7))

		move1, err := first.Search(b, 300)
		require.NoError(t, err)
		move2, err := second.Search(b, 300)
		require.NoError(t, err)

		require.Equal(t, move1, move2, "Moves should match under a fixed seed")
		require.Equal(t, first.scores, second.scores, "Statistics should match under a fixed seed")
	})

	t.Run("iterations accumulate across searches", func(t *testing.T) {
		b := game.NewBoard()
		m := NewMCTS(WithSeed(3))

		_, err := m.Search(b, 40)
		require.NoError(t, err)
		expanded := m.Stats().Expanded
		_, err = m.Search(b, 60)
		require.NoError(t, err)

		require.Equal(t, 100, m.TotalIterations())
		require.Equal(t, 100, m.Stats().TotalIterations)
		require.GreaterOrEqual(t, m.Stats().Expanded, expanded, "Table should never shrink")
	})

	t.Run("visits bound wins for every recorded state", func(t *testing.T) {
		m := NewMCTS(WithSeed(11))
		_, err := m.Search(game.NewBoard(), 300)
		require.NoError(t, err)

		for id, score := range m.scores {
			require.GreaterOrEqual(t, score.Wins, 0, "state %s", id)
			require.GreaterOrEqual(t, score.Visits, score.Wins, "state %s", id)
			require.GreaterOrEqual(t, score.Visits, 1, "state %s", id)
		}
	})

	t.Run("one iteration adds one visit per path node", func(t *testing.T) {
		b := game.NewBoard()
		m := NewMCTS(WithSeed(5))
		_, err := m.Search(b, 50)
		require.NoError(t, err)

		winsBefore, visitsBefore := sumScores(m)
		path, err := m.traverse(b)
		require.NoError(t, err)
		redWon, err := m.rollout(path[len(path)-1])
		require.NoError(t, err)
		_, err = m.backpropagate(path, redWon)
		require.NoError(t, err)
		winsAfter, visitsAfter := sumScores(m)

		require.Equal(t, len(path), visitsAfter-visitsBefore, "Each path node should gain exactly one visit")
		require.LessOrEqual(t, winsAfter-winsBefore, visitsAfter-visitsBefore, "Wins credited should not exceed visits credited")
	})

	t.Run("metrics are collected when enabled", func(t *testing.T) {
		m := NewMCTS(WithSeed(5), WithMetrics())
		_, err := m.Search(game.NewBoard(), 25)
		require.NoError(t, err)

		metric := m.Metrics()
		require.Equal(t, 25, metric.Iterations)
		require.Equal(t, 25, metric.Episodes)
		require.Equal(t, 25, metric.Expansions, "Every iteration from a shallow root should expand")
		require.Greater(t, metric.PlayoutMoves, 0)
		require.Equal(t, m.Stats().Expanded, metric.TableSize)
	})

	t.Run("failed search replaces the previous metrics", func(t *testing.T) {
		m := NewMCTS(WithSeed(5), WithMetrics())
		_, err := m.Search(game.NewBoard(), 25)
		require.NoError(t, err)

		terminal, err := game.FromMoves([]int{0, 1, 0, 1, 0, 1, 0})
		require.NoError(t, err)
		_, err = m.Search(terminal, 5)
		require.True(t, errors.Is(err, ErrNoMoveFound))

		metric := m.Metrics()
		require.Equal(t, 5, metric.Iterations, "Metrics should describe the failed search")
		require.Equal(t, 0, metric.Episodes)
		require.Equal(t, 0, metric.Expansions)
		require.Equal(t, m.Stats().Expanded, metric.TableSize)

		_, err = m.Search(nil, 5)
		require.Error(t, err)
		require.Equal(t, 0, m.Metrics().Iterations, "Rejected searches report no metrics")
	})

	t.Run("metrics stay zero without collection", func(t *testing.T) {
		m := NewMCTS(WithSeed(5))
		_, err := m.Search(game.NewBoard(), 10)
		require.NoError(t, err)
		require.Equal(t, 0, m.Metrics().TableSize)
	})
}

func TestSearchOnMock(t *testing.T) {
	for _, scoring := range []Scoring{FractionalWinRatio, TruncatedWinRatio} {
		t.Run("preferring the winning reply with "+scoring.String()+" scoring", func(t *testing.T) {
			root := twoMoveGame()
			m := NewMCTS(WithSeed(1), WithMoves(2), WithScoring(scoring))

			_, err := m.Search(root, 50)
			require.NoError(t, err)

			policy := m.Policy(root)
			require.Greater(t, policy[0], policy[1], "Winning reply should be visited more")
			win, _ := m.Score(&mockState{id: "red-wins"})
			require.Equal(t, win.Visits, win.Wins, "Red moved into a red win every time")
			loss, _ := m.Score(&mockState{id: "yellow-wins"})
			require.Equal(t, 0, loss.Wins, "Red never wins after the losing reply")
		})
	}
}

func TestTraverse(t *testing.T) {
	t.Run("expanding an unexplored root", func(t *testing.T) {
		root := twoMoveGame()
		m := NewMCTS(WithSeed(1), WithMoves(2))
		m.scores[root.id] = ScoreRecord{Wins: 1, Visits: 1}

		path, err := m.traverse(root)

		require.NoError(t, err)
		require.Len(t, path, 2, "Path should hold the root and the new child")
		require.Equal(t, root, path[0])
		score, ok := m.scores[path[1].GetState()]
		require.True(t, ok, "Expanded child should be recorded")
		require.Equal(t, ScoreRecord{}, score, "Expanded child should start at zero")
	})

	t.Run("selecting through a fully explored root", func(t *testing.T) {
		root := twoMoveGame()
		m := NewMCTS(WithSeed(1), WithMoves(2))
		m.scores["root"] = ScoreRecord{Wins: 1, Visits: 3}
		m.scores["red-wins"] = ScoreRecord{Wins: 2, Visits: 2}
		m.scores["yellow-wins"] = ScoreRecord{Wins: 0, Visits: 1}

		path, err := m.traverse(root)

		require.NoError(t, err)
		require.Len(t, path, 2, "Terminal child should end the path without expansion")
		require.Equal(t, game.StateID("red-wins"), path[1].GetState())
		require.Equal(t, 0, path[1].LastMove())
	})

	t.Run("stopping on a terminal root", func(t *testing.T) {
		root := &mockState{id: "over", over: true}
		m := NewMCTS(WithSeed(1), WithMoves(2))

		path, err := m.traverse(root)

		require.NoError(t, err)
		require.Len(t, path, 1)
	})

	t.Run("expanding a node without unexplored children fails", func(t *testing.T) {
		root := twoMoveGame()
		m := NewMCTS(WithSeed(1), WithMoves(2))
		m.scores["red-wins"] = ScoreRecord{}
		m.scores["yellow-wins"] = ScoreRecord{}

		_, err := m.expand(root)

		require.True(t, errors.Is(err, ErrNoValidChild))
	})
}

func TestBestChild(t *testing.T) {
	t.Run("missing child record", func(t *testing.T) {
		root := twoMoveGame()
		m := NewMCTS(WithSeed(1), WithMoves(2))
		m.scores["root"] = ScoreRecord{Wins: 1, Visits: 1}

		_, err := m.bestChild(root)

		require.True(t, errors.Is(err, ErrUnexploredNode))
	})

	t.Run("no legal child", func(t *testing.T) {
		stuck := &mockState{id: "stuck", red: true}
		m := NewMCTS(WithSeed(1), WithMoves(2))
		m.scores["stuck"] = ScoreRecord{Wins: 1, Visits: 1}

		_, err := m.bestChild(stuck)

		require.True(t, errors.Is(err, ErrNoValidChild))
	})

	t.Run("ties keep the lowest move", func(t *testing.T) {
		root := twoMoveGame()
		m := NewMCTS(WithSeed(1), WithMoves(2))
		m.scores["root"] = ScoreRecord{Wins: 1, Visits: 5}
		m.scores["red-wins"] = ScoreRecord{Wins: 1, Visits: 2}
		m.scores["yellow-wins"] = ScoreRecord{Wins: 1, Visits: 2}

		child, err := m.bestChild(root)

		require.NoError(t, err)
		require.Equal(t, 0, child.LastMove())
	})

	t.Run("searching a non-terminal dead end fails", func(t *testing.T) {
		stuck := &mockState{id: "stuck", red: true}
		m := NewMCTS(WithSeed(1), WithMoves(2))

		_, err := m.Search(stuck, 1)

		require.True(t, errors.Is(err, ErrNoValidChild))
	})
}

func TestRollout(t *testing.T) {
	t.Run("terminal node returns its outcome", func(t *testing.T) {
		m := NewMCTS(WithSeed(1), WithMoves(2))

		redWon, err := m.rollout(&mockState{id: "won", over: true, redWin: true})

		require.NoError(t, err)
		require.True(t, redWon)
	})

	t.Run("plays to the end of the game", func(t *testing.T) {
		m := NewMCTS(WithSeed(1), WithMoves(2))
		root := &mockState{
			id:  "root",
			red: true,
			next: map[int]*mockState{
				1: {id: "only", over: true, redWin: true},
			},
		}

		redWon, err := m.rollout(root)

		require.NoError(t, err)
		require.True(t, redWon, "Only legal move leads to a red win")
	})

	t.Run("non-terminal node without legal moves fails", func(t *testing.T) {
		m := NewMCTS(WithSeed(1), WithMoves(2))

		_, err := m.rollout(&mockState{id: "stuck"})

		require.True(t, errors.Is(err, ErrNoValidChild))
	})
}

func TestBackpropagate(t *testing.T) {
	setup := func() (*MCTS, []game.State) {
		root := twoMoveGame()
		child := root.Clone()
		require.NoError(t, child.AddPiece(0))
		m := NewMCTS(WithSeed(1), WithMoves(2))
		m.scores["root"] = ScoreRecord{Wins: 1, Visits: 1}
		m.scores["red-wins"] = ScoreRecord{}
		return m, []game.State{root, child}
	}

	t.Run("crediting the player who moved into each node", func(t *testing.T) {
		m, path := setup()

		move, err := m.backpropagate(path, true)

		require.NoError(t, err)
		require.Equal(t, 0, move, "Should return the move into the root's child")
		require.Equal(t, ScoreRecord{Wins: 1, Visits: 1}, m.scores["red-wins"], "Red moved into the child and won")
		require.Equal(t, ScoreRecord{Wins: 1, Visits: 2}, m.scores["root"], "Red owns the root, so a red win is not credited to it")
	})

	t.Run("crediting a loss", func(t *testing.T) {
		m, path := setup()

		_, err := m.backpropagate(path, false)

		require.NoError(t, err)
		require.Equal(t, ScoreRecord{Wins: 0, Visits: 1}, m.scores["red-wins"])
		require.Equal(t, ScoreRecord{Wins: 2, Visits: 2}, m.scores["root"])
	})

	t.Run("path without a child of the root", func(t *testing.T) {
		m, path := setup()

		_, err := m.backpropagate(path[:1], true)

		require.True(t, errors.Is(err, ErrNoMoveFound))
		require.Equal(t, ScoreRecord{Wins: 1, Visits: 1}, m.scores["root"], "Failed update should leave the table untouched")
	})

	t.Run("null node in the path", func(t *testing.T) {
		m, path := setup()

		_, err := m.backpropagate([]game.State{path[0], nil}, true)

		require.True(t, errors.Is(err, ErrNullPath))
	})

	t.Run("unrecorded node in the path", func(t *testing.T) {
		m, path := setup()
		delete(m.scores, "red-wins")

		_, err := m.backpropagate(path, true)

		require.True(t, errors.Is(err, ErrUnexploredNode))
		require.Equal(t, ScoreRecord{Wins: 1, Visits: 1}, m.scores["root"])
	})
}

func TestStats(t *testing.T) {
	m := NewMCTS(WithSeed(1))
	_, err := m.Search(game.NewBoard(), 3)
	require.NoError(t, err)
	m.RecordGame(true)
	m.RecordGame(false)

	stats := m.Stats()

	require.Equal(t, Stats{Expanded: 4, TotalIterations: 3, GamesPlayed: 2, Wins: 1}, stats)
	require.Equal(t, "Total Expanded: 4 Total Iterations: 3 Games Played: 2 Wins: 1", stats.String())
}
