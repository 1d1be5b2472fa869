package game

// StateID is the canonical identity of a position, including the side to move.
// Two states with equal identity are the same search node.
type StateID string

// State is the contract the searcher consumes. Moves are indices into a fixed,
// bounded action space (the columns of the board).
type State interface {
	GetState() StateID
	ValidMove(move int) bool
	Clone() State
	AddPiece(move int) error
	GameOver() bool
	// RedWin is only meaningful once GameOver reports true
	RedWin() bool
	// IsRed reports whether Red owns (is to move in) this position
	IsRed() bool
	// LastMove is the move that produced this state from its parent, -1 for the initial position
	LastMove() int
}
