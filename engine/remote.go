package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"connectfour/experiments/metrics"
	"connectfour/game"
	"connectfour/searcher"
	"connectfour/searcher/agent"

	"github.com/pkg/errors"
)

// RemoteAgent asks an agent server for its moves.
type RemoteAgent struct {
	url        string
	iterations int
	client     *http.Client
}

// NewRemoteAgent talks to the agent server at url. A zero iteration count
// leaves the budget to the server.
func NewRemoteAgent(url string, iterations int) *RemoteAgent {
	return &RemoteAgent{
		url:        strings.TrimSuffix(url, "/"),
		iterations: iterations,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
}

type rowser interface {
	Rows() []string
}

func (a *RemoteAgent) FindMove(state game.State) (int, metrics.SearchMetric, error) {
	board, ok := state.(rowser)
	if !ok {
		return searcher.NoMove, metrics.SearchMetric{}, errors.Errorf("cannot encode %T for a remote agent", state)
	}

	body, err := json.Marshal(agent.FindMoveRequest{Rows: board.Rows(), Iterations: a.iterations})
	if err != nil {
		return searcher.NoMove, metrics.SearchMetric{}, errors.WithStack(err)
	}
	resp, err := a.client.Post(a.url+"/findmove", "application/json", bytes.NewReader(body))
	if err != nil {
		return searcher.NoMove, metrics.SearchMetric{}, errors.Wrap(err, "requesting move")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var failure struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		return searcher.NoMove, metrics.SearchMetric{}, fmt.Errorf("agent returned status %d: %s", resp.StatusCode, failure.Error)
	}

	var payload agent.FindMoveResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return searcher.NoMove, metrics.SearchMetric{}, errors.Wrap(err, "decoding move")
	}
	return payload.Move, payload.Metric, nil
}
