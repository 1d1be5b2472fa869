package agent

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"connectfour/experiments/metrics"
	"connectfour/game"
	"connectfour/searcher"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// FindMoveRequest asks for a move on a board. Iterations falls back to the
// server's budget when omitted, a search needs at least one iteration to
// produce a move.
type FindMoveRequest struct {
	Rows       []string `json:"rows"`
	Iterations int      `json:"iterations,omitempty"`
}

type FindMoveResponse struct {
	Move   int                  `json:"move"`
	Stats  string               `json:"stats"`
	Metric metrics.SearchMetric `json:"metric"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server answers move requests with a single engine, so statistics keep
// accumulating across requests. Requests are serialized because the engine
// is not safe for concurrent use.
type Server struct {
	mu         sync.Mutex
	mcts       *searcher.MCTS
	iterations int
}

func NewServer(mcts *searcher.MCTS, iterations int) *Server {
	return &Server{mcts: mcts, iterations: iterations}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Get("/stats", s.handleStats)
	r.Post("/findmove", s.handleFindMove)
	return r
}

// StartAgentServer serves the agent on the given port until the listener fails.
func StartAgentServer(port string, mcts *searcher.MCTS, iterations int) error {
	if iterations < 1 {
		return errors.Errorf("agent server needs a positive default budget, got %d", iterations)
	}
	log.Info().Msgf("starting agent server on :%s with %d iterations per move...", port, iterations)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           NewServer(mcts, iterations).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return errors.WithStack(server.ListenAndServe())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	stats := s.mcts.Stats()
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(stats.String() + "\n"))
}

func (s *Server) handleFindMove(w http.ResponseWriter, r *http.Request) {
	var payload FindMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid payload"})
		return
	}
	iterations := payload.Iterations
	if iterations == 0 {
		iterations = s.iterations
	}
	if iterations < 1 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "iterations must be positive"})
		return
	}

	board, err := game.ParseBoard(payload.Rows)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if board.GameOver() {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "game is already over"})
		return
	}

	s.mu.Lock()
	agent := NewEvaluationAgent(s.mcts, iterations)
	move, metric, err := agent.FindMove(board)
	stats := s.mcts.Stats()
	s.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Msg("search failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, FindMoveResponse{
		Move:   move,
		Stats:  stats.String(),
		Metric: metric,
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
