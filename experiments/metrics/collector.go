package metrics

import (
	"sync/atomic"
	"time"
)

type SearchMetric struct {
	Iterations   int           `json:"iterations"` // Requested budget
	Duration     time.Duration `json:"duration"`
	Episodes     int           `json:"episodes"` // Completed iterations
	Expansions   int           `json:"expansions"`
	PlayoutMoves int           `json:"playoutMoves"`
	TableSize    int           `json:"tableSize"`
}

type MoveMetric struct {
	Step   int
	Player string
	Move   int
	SearchMetric
}

type GameMetric struct {
	StartingPlayer string
	Winner         string
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	TotalMoves     int
}

type Collector interface {
	Start(iterations int)
	AddEpisode()
	AddExpansion()
	AddPlayoutMoves(n int)
	Complete() SearchMetric
}

type collector struct {
	iterations   int
	startTime    time.Time
	episodes     atomic.Int32
	expansions   atomic.Int32
	playoutMoves atomic.Int64
}

func NewCollector() Collector {
	return &collector{}
}

// Start resets the counters for a new search.
func (m *collector) Start(iterations int) {
	m.startTime = time.Now()
	m.iterations = iterations
	m.episodes.Store(0)
	m.expansions.Store(0)
	m.playoutMoves.Store(0)
}

func (m *collector) AddEpisode() {
	m.episodes.Add(1)
}

func (m *collector) AddExpansion() {
	m.expansions.Add(1)
}

func (m *collector) AddPlayoutMoves(n int) {
	m.playoutMoves.Add(int64(n))
}

func (m *collector) Complete() SearchMetric {
	return SearchMetric{
		Iterations:   m.iterations,
		Duration:     time.Since(m.startTime),
		Episodes:     int(m.episodes.Load()),
		Expansions:   int(m.expansions.Load()),
		PlayoutMoves: int(m.playoutMoves.Load()),
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start(iterations int)   {}
func (m *dummyCollector) AddEpisode()            {}
func (m *dummyCollector) AddExpansion()          {}
func (m *dummyCollector) AddPlayoutMoves(n int)  {}
func (m *dummyCollector) Complete() SearchMetric { return SearchMetric{} }
