package searcher

import (
	"math"
	"time"

	"connectfour/experiments/metrics"
	"connectfour/game"
	"connectfour/utils"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

type Option func(mcts *MCTS)

// MCTS searches a game through a table of statistics keyed by state identity.
// The tree is never materialized: children are recomputed by enumerating the
// legal moves of a node and looking their states up in the table.
//
// An MCTS is not safe for concurrent use. Concurrent searches need one engine each.
type MCTS struct {
	scores      map[game.StateID]ScoreRecord
	rng         *rand.Rand
	deck        *utils.Deck
	moves       int
	scoring     Scoring
	exploration float64
	metrics     metrics.Collector
	collecting  bool
	last        metrics.SearchMetric
	logger      zerolog.Logger

	totalIterations int
	gamesPlayed     int
	wins            int
}

// WithSeed seeds the engine's random generator, making searches reproducible.
func WithSeed(seed uint64) Option {
	return func(m *MCTS) {
		m.rng = rand.New(rand.NewSource(seed))
	}
}

func WithRand(rng *rand.Rand) Option {
	return func(m *MCTS) {
		if rng != nil {
			m.rng = rng
		}
	}
}

func WithScoring(scoring Scoring) Option {
	return func(m *MCTS) {
		m.scoring = scoring
	}
}

func WithExploration(c float64) Option {
	return func(m *MCTS) {
		if c >= 0 {
			m.exploration = c
		}
	}
}

// WithMoves sets the size of the action space, moves are 0..n-1 at every node.
func WithMoves(n int) Option {
	return func(m *MCTS) {
		if n > 0 {
			m.moves = n
		}
	}
}

func WithMetrics() Option {
	return func(m *MCTS) {
		m.metrics = metrics.NewCollector()
		m.collecting = true
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(m *MCTS) {
		m.logger = logger
	}
}

func NewMCTS(options ...Option) *MCTS {
	m := &MCTS{ // Default values
		scores:      make(map[game.StateID]ScoreRecord),
		moves:       game.Columns,
		scoring:     FractionalWinRatio,
		exploration: math.Sqrt2,
		metrics:     metrics.NewDummyCollector(),
		logger:      log.Logger,
	}
	for _, option := range options {
		option(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	}
	m.deck = utils.NewDeck(m.moves, m.rng)
	return m
}

// Search runs exactly iterations cycles of selection, expansion, rollout and
// backpropagation from root, and returns the root move taken by the last cycle.
// A zero budget returns NoMove.
func (m *MCTS) Search(root game.State, iterations int) (int, error) {
	m.last = metrics.SearchMetric{}
	if root == nil {
		return NoMove, errors.Wrap(ErrNullPath, "nil root")
	}
	if iterations < 0 {
		return NoMove, errors.Wrapf(ErrInvalidIterations, "%d iterations", iterations)
	}

	// Seed the root so its children can always be scored
	rootID := root.GetState()
	if _, ok := m.scores[rootID]; !ok {
		m.scores[rootID] = ScoreRecord{Wins: 1, Visits: 1}
	}

	m.metrics.Start(iterations)
	move, err := m.iterate(root, iterations)
	m.last = m.metrics.Complete()
	if m.collecting {
		m.last.TableSize = len(m.scores)
	}
	if err != nil {
		return NoMove, err
	}

	m.logger.Debug().
		Int("iterations", iterations).
		Int("move", move).
		Int("expanded", len(m.scores)).
		Msg("search complete")
	return move, nil
}

func (m *MCTS) iterate(root game.State, iterations int) (int, error) {
	move := NoMove
	for i := 0; i < iterations; i++ {
		path, err := m.traverse(root)
		if err != nil {
			return NoMove, err
		}
		redWon, err := m.rollout(path[len(path)-1])
		if err != nil {
			return NoMove, err
		}
		move, err = m.backpropagate(path, redWon)
		if err != nil {
			return NoMove, err
		}

		m.totalIterations++
		m.metrics.AddEpisode()
	}
	return move, nil
}

// traverse descends through fully explored nodes by best child, then expands
// the node it stops at unless that node is terminal.
func (m *MCTS) traverse(node game.State) ([]game.State, error) {
	path := []game.State{}
	for {
		explored, err := m.fullyExplored(node)
		if err != nil {
			return nil, err
		}
		if !explored {
			break
		}
		path = append(path, node)
		node, err = m.bestChild(node)
		if err != nil {
			return nil, err
		}
	}

	path = append(path, node)
	if !node.GameOver() {
		child, err := m.expand(node)
		if err != nil {
			return nil, err
		}
		path = append(path, child)
	}
	return path, nil
}

func (m *MCTS) fullyExplored(node game.State) (bool, error) {
	if node.GameOver() {
		return false, nil
	}

	for move := 0; move < m.moves; move++ {
		if !node.ValidMove(move) {
			continue
		}
		child, err := m.play(node, move)
		if err != nil {
			return false, err
		}
		if _, ok := m.scores[child.GetState()]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// bestChild returns the legal child with the strictly greatest score, ties
// going to the lowest move index.
func (m *MCTS) bestChild(node game.State) (game.State, error) {
	parent, ok := m.scores[node.GetState()]
	if !ok {
		return nil, errors.Wrap(ErrUnexploredNode, "selecting from an unscored parent")
	}

	var best game.State
	bestScore := math.Inf(-1)
	for move := 0; move < m.moves; move++ {
		if !node.ValidMove(move) {
			continue
		}
		child, err := m.play(node, move)
		if err != nil {
			return nil, err
		}
		score, ok := m.scores[child.GetState()]
		if !ok {
			return nil, errors.Wrapf(ErrUnexploredNode, "child %d of a fully explored node", move)
		}
		if s := ucb(m.scoring, m.exploration, parent, score); s > bestScore {
			best = child
			bestScore = s
		}
	}

	if best == nil {
		return nil, errors.Wrap(ErrNoValidChild, "selecting from a non-terminal node")
	}
	return best, nil
}

// expand records the first child, in random move order, that has no statistics yet.
func (m *MCTS) expand(node game.State) (game.State, error) {
	m.deck.Reset()
	for move, ok := m.deck.Draw(); ok; move, ok = m.deck.Draw() {
		if !node.ValidMove(move) {
			continue
		}
		child, err := m.play(node, move)
		if err != nil {
			return nil, err
		}
		id := child.GetState()
		if _, ok := m.scores[id]; !ok {
			m.scores[id] = ScoreRecord{}
			m.metrics.AddExpansion()
			return child, nil
		}
	}
	return nil, errors.Wrap(ErrNoValidChild, "expanding a node that is not fully explored")
}

// rollout plays uniformly random moves until the game ends and reports whether Red won.
func (m *MCTS) rollout(node game.State) (bool, error) {
	depth := 0
	for {
		if node == nil {
			return false, errors.Wrapf(ErrNullPath, "rollout at depth %d", depth)
		}
		if node.GameOver() {
			break
		}
		next, err := m.randomChild(node)
		if err != nil {
			return false, errors.Wrapf(err, "rollout at depth %d", depth)
		}
		node = next
		depth++
	}

	m.metrics.AddPlayoutMoves(depth)
	return node.RedWin(), nil
}

func (m *MCTS) randomChild(node game.State) (game.State, error) {
	m.deck.Reset()
	for move, ok := m.deck.Draw(); ok; move, ok = m.deck.Draw() {
		if node.ValidMove(move) {
			return m.play(node, move)
		}
	}
	return nil, errors.Wrap(ErrNoValidChild, "non-terminal node has no legal move")
}

// backpropagate credits every node of the path with a visit, and with a win
// when the rollout was won by the player who moved into the node. It returns
// the move leading from the root to the path's second node.
func (m *MCTS) backpropagate(path []game.State, redWon bool) (int, error) {
	if len(path) < 2 {
		return NoMove, errors.Wrapf(ErrNoMoveFound, "path of length %d has no child of the root", len(path))
	}
	// Check the whole path first so a failed update leaves the table untouched
	for depth, node := range path {
		if node == nil {
			return NoMove, errors.Wrapf(ErrNullPath, "depth %d", depth)
		}
		if _, ok := m.scores[node.GetState()]; !ok {
			return NoMove, errors.Wrapf(ErrUnexploredNode, "depth %d", depth)
		}
	}

	move := NoMove
	for depth := len(path) - 1; depth >= 0; depth-- {
		node := path[depth]
		id := node.GetState()
		score := m.scores[id]
		score.Visits++
		if node.IsRed() != redWon {
			score.Wins++
		}
		m.scores[id] = score

		if depth == 1 {
			move = node.LastMove()
		}
	}

	if move == NoMove {
		return NoMove, errors.Wrap(ErrNoMoveFound, "child of the root has no last move")
	}
	return move, nil
}

func (m *MCTS) play(node game.State, move int) (game.State, error) {
	child := node.Clone()
	if err := child.AddPiece(move); err != nil {
		return nil, errors.Wrapf(err, "applying valid move %d", move)
	}
	return child, nil
}

// Stats returns the engine's counters. Games and wins are maintained by
// callers through RecordGame, never by the search itself.
func (m *MCTS) Stats() Stats {
	return Stats{
		Expanded:        len(m.scores),
		TotalIterations: m.totalIterations,
		GamesPlayed:     m.gamesPlayed,
		Wins:            m.wins,
	}
}

func (m *MCTS) TotalIterations() int {
	return m.totalIterations
}

// RecordGame updates the reporting counters after a finished game.
func (m *MCTS) RecordGame(won bool) {
	m.gamesPlayed++
	if won {
		m.wins++
	}
}

// Score looks up the statistics recorded for a state.
func (m *MCTS) Score(state game.State) (ScoreRecord, bool) {
	score, ok := m.scores[state.GetState()]
	return score, ok
}

// Policy maps every legal root move whose child has been visited to its visit count.
func (m *MCTS) Policy(root game.State) map[int]float64 {
	policy := make(map[int]float64)
	for move := 0; move < m.moves; move++ {
		if !root.ValidMove(move) {
			continue
		}
		child, err := m.play(root, move)
		if err != nil {
			continue
		}
		if score, ok := m.scores[child.GetState()]; ok && score.Visits > 0 {
			policy[move] = float64(score.Visits)
		}
	}
	return policy
}

// Metrics returns the metrics of the last search, zero unless WithMetrics was given.
func (m *MCTS) Metrics() metrics.SearchMetric {
	return m.last
}
