package game

import (
	"strings"

	"github.com/pkg/errors"
)

const (
	Rows    = 6
	Columns = 7
	Connect = 4 // Discs in a row needed to win
)

// Cell is the content of a board square, also used to name a player.
type Cell byte

const (
	None   Cell = '.'
	Red    Cell = 'R'
	Yellow Cell = 'Y'
)

func (c Cell) String() string {
	switch c {
	case Red:
		return "Red"
	case Yellow:
		return "Yellow"
	default:
		return "None"
	}
}

// Opponent returns the other player, None stays None.
func (c Cell) Opponent() Cell {
	switch c {
	case Red:
		return Yellow
	case Yellow:
		return Red
	default:
		return None
	}
}

var (
	ErrIllegalMove  = errors.New("illegal move")
	ErrInvalidBoard = errors.New("invalid board")
)

// Board is a Connect Four position. Row 0 is the top row.
type Board struct {
	grid     [Rows][Columns]Cell
	heights  [Columns]int // Discs per column
	toMove   Cell
	lastMove int
	moves    int
	winner   Cell
	over     bool
}

// NewBoard returns the empty board with Red to move.
func NewBoard() *Board {
	b := &Board{
		toMove:   Red,
		lastMove: -1,
		winner:   None,
	}
	for r := range b.grid {
		for c := range b.grid[r] {
			b.grid[r][c] = None
		}
	}
	return b
}

// FromMoves replays a sequence of column indices from the empty board.
func FromMoves(moves []int) (*Board, error) {
	b := NewBoard()
	for i, move := range moves {
		if err := b.AddPiece(move); err != nil {
			return nil, errors.Wrapf(err, "replaying move %d", i+1)
		}
	}
	return b, nil
}

// ParseBoard builds a position from top-to-bottom rows of '.', 'R' and 'Y'.
// The side to move is derived from the disc counts, Red moves first.
func ParseBoard(rows []string) (*Board, error) {
	if len(rows) != Rows {
		return nil, errors.Wrapf(ErrInvalidBoard, "expected %d rows, got %d", Rows, len(rows))
	}

	b := NewBoard()
	reds, yellows := 0, 0
	for r, row := range rows {
		if len(row) != Columns {
			return nil, errors.Wrapf(ErrInvalidBoard, "row %d has %d columns, expected %d", r, len(row), Columns)
		}
		for c := 0; c < Columns; c++ {
			cell := Cell(row[c])
			switch cell {
			case Red:
				reds++
			case Yellow:
				yellows++
			case None:
				continue
			default:
				return nil, errors.Wrapf(ErrInvalidBoard, "unexpected character %q at row %d column %d", row[c], r, c)
			}
			b.grid[r][c] = cell
		}
	}

	// Discs must rest on the bottom or on another disc
	for c := 0; c < Columns; c++ {
		height := 0
		for r := Rows - 1; r >= 0; r-- {
			if b.grid[r][c] == None {
				break
			}
			height++
		}
		for r := Rows - 1 - height; r >= 0; r-- {
			if b.grid[r][c] != None {
				return nil, errors.Wrapf(ErrInvalidBoard, "floating disc in column %d", c)
			}
		}
		b.heights[c] = height
	}

	switch reds - yellows {
	case 0:
		b.toMove = Red
	case 1:
		b.toMove = Yellow
	default:
		return nil, errors.Wrapf(ErrInvalidBoard, "%d red and %d yellow discs", reds, yellows)
	}
	b.moves = reds + yellows

	redFour, yellowFour := b.hasFour(Red), b.hasFour(Yellow)
	switch {
	case redFour && yellowFour:
		return nil, errors.Wrap(ErrInvalidBoard, "both players have four in a row")
	case redFour && b.toMove == Red:
		return nil, errors.Wrap(ErrInvalidBoard, "yellow moved after red won")
	case yellowFour && b.toMove == Yellow:
		return nil, errors.Wrap(ErrInvalidBoard, "red moved after yellow won")
	case redFour:
		b.winner, b.over = Red, true
	case yellowFour:
		b.winner, b.over = Yellow, true
	case b.moves == Rows*Columns:
		b.over = true
	}
	return b, nil
}

func (b *Board) GetState() StateID {
	var sb strings.Builder
	sb.Grow(Rows*Columns + 1)
	for r := range b.grid {
		for c := range b.grid[r] {
			sb.WriteByte(byte(b.grid[r][c]))
		}
	}
	if b.toMove == Red {
		sb.WriteByte('r')
	} else {
		sb.WriteByte('y')
	}
	return StateID(sb.String())
}

func (b *Board) ValidMove(move int) bool {
	return !b.over && move >= 0 && move < Columns && b.heights[move] < Rows
}

func (b *Board) Clone() State {
	return b.Copy()
}

// Copy returns an independent copy of the board.
func (b *Board) Copy() *Board {
	clone := *b
	return &clone
}

func (b *Board) AddPiece(move int) error {
	if !b.ValidMove(move) {
		return errors.Wrapf(ErrIllegalMove, "column %d", move)
	}

	row := Rows - 1 - b.heights[move]
	player := b.toMove
	b.grid[row][move] = player
	b.heights[move]++
	b.moves++
	b.lastMove = move
	b.toMove = player.Opponent()

	if b.connects(row, move, player) {
		b.winner, b.over = player, true
	} else if b.moves == Rows*Columns {
		b.over = true
	}
	return nil
}

func (b *Board) GameOver() bool {
	return b.over
}

func (b *Board) RedWin() bool {
	return b.winner == Red
}

func (b *Board) IsRed() bool {
	return b.toMove == Red
}

func (b *Board) LastMove() int {
	return b.lastMove
}

// Winner returns the player with four in a row, or None.
func (b *Board) Winner() Cell {
	return b.winner
}

// ToMove returns the player whose turn it is.
func (b *Board) ToMove() Cell {
	return b.toMove
}

// Moves returns the number of discs on the board.
func (b *Board) Moves() int {
	return b.moves
}

// At returns the content of a square, row 0 being the top row.
func (b *Board) At(row, col int) Cell {
	return b.grid[row][col]
}

// Rows renders the board in the format accepted by ParseBoard.
func (b *Board) Rows() []string {
	rows := make([]string, Rows)
	for r := range b.grid {
		var sb strings.Builder
		for c := range b.grid[r] {
			sb.WriteByte(byte(b.grid[r][c]))
		}
		rows[r] = sb.String()
	}
	return rows
}

func (b *Board) String() string {
	var sb strings.Builder
	for _, row := range b.Rows() {
		sb.WriteString(row)
		sb.WriteByte('\n')
	}
	for c := 0; c < Columns; c++ {
		sb.WriteByte(byte('0' + c))
	}
	sb.WriteByte('\n')
	return sb.String()
}

var directions = [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}

func (b *Board) connects(row, col int, player Cell) bool {
	for _, d := range directions {
		count := 1 + b.run(row, col, d[0], d[1], player) + b.run(row, col, -d[0], -d[1], player)
		if count >= Connect {
			return true
		}
	}
	return false
}

// run counts consecutive discs of player starting next to (row, col) in direction (dr, dc).
func (b *Board) run(row, col, dr, dc int, player Cell) int {
	count := 0
	for r, c := row+dr, col+dc; r >= 0 && r < Rows && c >= 0 && c < Columns; r, c = r+dr, c+dc {
		if b.grid[r][c] != player {
			break
		}
		count++
	}
	return count
}

func (b *Board) hasFour(player Cell) bool {
	for r := range b.grid {
		for c := range b.grid[r] {
			if b.grid[r][c] == player && b.connects(r, c, player) {
				return true
			}
		}
	}
	return false
}
