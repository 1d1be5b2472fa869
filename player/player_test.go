package player

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"connectfour/game"

	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(out *bytes.Buffer) *Renderer {
	return NewRenderer(out, termenv.WithProfile(termenv.Ascii))
}

func TestRender(t *testing.T) {
	board, err := game.FromMoves([]int{3, 3, 0})
	require.NoError(t, err)

	var out bytes.Buffer
	rendered := newTestRenderer(&out).Render(board)

	lines := strings.Split(strings.TrimSuffix(rendered, "\n"), "\n")
	require.Len(t, lines, game.Rows+1)
	require.Equal(t, ". . . . . . .", lines[0])
	require.Equal(t, ". . . Y . . .", lines[4])
	require.Equal(t, "R . . R . . .", lines[5])
	require.Equal(t, "1 2 3 4 5 6 7", lines[6])
}

func TestPrint(t *testing.T) {
	t.Run("side to move", func(t *testing.T) {
		var out bytes.Buffer
		newTestRenderer(&out).Print(game.NewBoard())
		require.True(t, strings.HasSuffix(out.String(), "Red to move\n"))
	})

	t.Run("winner", func(t *testing.T) {
		board, err := game.FromMoves([]int{0, 1, 0, 1, 0, 1, 0})
		require.NoError(t, err)

		var out bytes.Buffer
		newTestRenderer(&out).Print(board)
		require.True(t, strings.HasSuffix(out.String(), "Red wins\n"))
	})
}

func TestHuman(t *testing.T) {
	t.Run("reads a column", func(t *testing.T) {
		var out bytes.Buffer
		h := NewHuman(strings.NewReader("4\n"), newTestRenderer(&out))

		move, _, err := h.FindMove(game.NewBoard())
		require.NoError(t, err)
		require.Equal(t, 3, move, "Columns are entered from 1")
	})

	t.Run("re-prompts on illegal input", func(t *testing.T) {
		board, err := game.FromMoves([]int{0, 0, 0, 0, 0, 0})
		require.NoError(t, err)

		var out bytes.Buffer
		h := NewHuman(strings.NewReader("x\n0\n1\n8\n 2 \n"), newTestRenderer(&out))

		move, _, err := h.FindMove(board)
		require.NoError(t, err)
		require.Equal(t, 1, move)
		require.Equal(t, 4, strings.Count(out.String(), "Illegal column"), "Junk, out of range and full column inputs are rejected")
	})

	t.Run("end of input", func(t *testing.T) {
		var out bytes.Buffer
		h := NewHuman(strings.NewReader("9\n"), newTestRenderer(&out))

		_, _, err := h.FindMove(game.NewBoard())
		require.True(t, errors.Is(err, io.EOF))
	})
}
