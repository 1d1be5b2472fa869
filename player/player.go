package player

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"connectfour/experiments/metrics"
	"connectfour/game"
	"connectfour/searcher"
	"connectfour/utils"

	"github.com/muesli/termenv"
	"github.com/pkg/errors"
)

// Columns are shown to people as 1..7.
var columnLabels = func() []string {
	labels := make([]string, game.Columns)
	for c := range labels {
		labels[c] = strconv.Itoa(c + 1)
	}
	return labels
}()

type Renderer struct {
	output *termenv.Output
}

// NewRenderer draws boards to w, coloured when w is a terminal.
func NewRenderer(w io.Writer, opts ...termenv.OutputOption) *Renderer {
	return &Renderer{output: termenv.NewOutput(w, opts...)}
}

func (r *Renderer) Render(board *game.Board) string {
	var sb strings.Builder
	for row := 0; row < game.Rows; row++ {
		for col := 0; col < game.Columns; col++ {
			if col > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(r.cell(board.At(row, col)))
		}
		sb.WriteByte('\n')
	}
	sb.WriteString(strings.Join(columnLabels, " "))
	sb.WriteByte('\n')
	return sb.String()
}

func (r *Renderer) cell(c game.Cell) string {
	switch c {
	case game.Red:
		return r.output.String("R").Foreground(r.output.Color("1")).Bold().String()
	case game.Yellow:
		return r.output.String("Y").Foreground(r.output.Color("3")).Bold().String()
	default:
		return r.output.String(".").Faint().String()
	}
}

// Print writes the board followed by the result or the side to move.
func (r *Renderer) Print(board *game.Board) {
	fmt.Fprint(r.output, r.Render(board))
	switch {
	case board.Winner() != game.None:
		fmt.Fprintf(r.output, "%s wins\n", board.Winner())
	case board.GameOver():
		fmt.Fprintln(r.output, "Draw")
	default:
		fmt.Fprintf(r.output, "%s to move\n", board.ToMove())
	}
}

// Human is an agent reading columns from a person at a terminal.
type Human struct {
	scanner  *bufio.Scanner
	renderer *Renderer
}

func NewHuman(in io.Reader, renderer *Renderer) *Human {
	return &Human{scanner: bufio.NewScanner(in), renderer: renderer}
}

func (h *Human) FindMove(state game.State) (int, metrics.SearchMetric, error) {
	if board, ok := state.(*game.Board); ok {
		h.renderer.Print(board)
	}

	for {
		fmt.Fprintf(h.renderer.output, "Column (%s-%s): ", columnLabels[0], columnLabels[len(columnLabels)-1])
		if !h.scanner.Scan() {
			if err := h.scanner.Err(); err != nil {
				return searcher.NoMove, metrics.SearchMetric{}, errors.Wrap(err, "reading move")
			}
			return searcher.NoMove, metrics.SearchMetric{}, errors.Wrap(io.EOF, "reading move")
		}

		move := utils.FindIndex(columnLabels, strings.TrimSpace(h.scanner.Text()))
		if move < 0 || !state.ValidMove(move) {
			fmt.Fprintln(h.renderer.output, "Illegal column, try again")
			continue
		}
		return move, metrics.SearchMetric{}, nil
	}
}
