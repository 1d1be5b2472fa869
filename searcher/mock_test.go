package searcher

import (
	"connectfour/game"
)

// mockState is a hand-built game graph: next maps each legal move to the
// state it produces.
type mockState struct {
	id     game.StateID
	red    bool
	over   bool
	redWin bool
	last   int
	next   map[int]*mockState
}

func (m *mockState) GetState() game.StateID {
	return m.id
}

func (m *mockState) ValidMove(move int) bool {
	_, ok := m.next[move]
	return ok && !m.over
}

func (m *mockState) Clone() game.State {
	clone := *m
	return &clone
}

func (m *mockState) AddPiece(move int) error {
	next, ok := m.next[move]
	if !ok {
		return game.ErrIllegalMove
	}
	*m = *next
	m.last = move
	return nil
}

func (m *mockState) GameOver() bool {
	return m.over
}

func (m *mockState) RedWin() bool {
	return m.redWin
}

func (m *mockState) IsRed() bool {
	return m.red
}

func (m *mockState) LastMove() int {
	return m.last
}

// twoMoveGame is Red to move with two replies that both end the game: move 0
// wins for Red and move 1 wins for Yellow.
func twoMoveGame() *mockState {
	return &mockState{
		id:   "root",
		red:  true,
		last: -1,
		next: map[int]*mockState{
			0: {id: "red-wins", red: false, over: true, redWin: true},
			1: {id: "yellow-wins", red: false, over: true, redWin: false},
		},
	}
}
