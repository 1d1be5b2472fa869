package searcher

import (
	"fmt"

	"connectfour/game"

	"github.com/awalterschulze/gographviz"
	"github.com/pkg/errors"
)

// ToDot renders the recorded part of the tree below root, down to depth plies,
// in Graphviz format. Transpositions are drawn as one node with several parents.
func (m *MCTS) ToDot(root game.State, depth int) (string, error) {
	g := gographviz.NewGraph()
	if err := g.SetName("G"); err != nil {
		return "", errors.WithStack(err)
	}
	if err := g.SetDir(true); err != nil {
		return "", errors.WithStack(err)
	}

	score, ok := m.scores[root.GetState()]
	if !ok {
		return "", errors.Wrap(ErrUnexploredNode, "root has no statistics")
	}

	names := map[game.StateID]string{}
	addNode := func(state game.State, score ScoreRecord) (string, bool, error) {
		id := state.GetState()
		if name, ok := names[id]; ok {
			return name, false, nil
		}
		name := fmt.Sprintf("n%d", len(names))
		names[id] = name
		attrs := map[string]string{
			"shape": "box",
			"label": fmt.Sprintf("\"%s\\n%d/%d\"", toMove(state), score.Wins, score.Visits),
		}
		if state.GameOver() {
			attrs["style"] = "filled"
		}
		return name, true, errors.WithStack(g.AddNode("G", name, attrs))
	}

	type frontier struct {
		state game.State
		name  string
		depth int
	}
	rootName, _, err := addNode(root, score)
	if err != nil {
		return "", err
	}
	queue := []frontier{{state: root, name: rootName}}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		if parent.depth >= depth || parent.state.GameOver() {
			continue
		}

		for move := 0; move < m.moves; move++ {
			if !parent.state.ValidMove(move) {
				continue
			}
			child, err := m.play(parent.state, move)
			if err != nil {
				return "", err
			}
			score, ok := m.scores[child.GetState()]
			if !ok {
				continue
			}
			name, added, err := addNode(child, score)
			if err != nil {
				return "", err
			}
			edge := map[string]string{"label": fmt.Sprintf("\"%d\"", move)}
			if err := g.AddEdge(parent.name, name, true, edge); err != nil {
				return "", errors.WithStack(err)
			}
			if added {
				queue = append(queue, frontier{state: child, name: name, depth: parent.depth + 1})
			}
		}
	}
	return g.String(), nil
}

func toMove(state game.State) string {
	if state.IsRed() {
		return "red to move"
	}
	return "yellow to move"
}
