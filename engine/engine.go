package engine

import "connectfour/experiments/metrics"

type Engine interface {
	// Run plays a game till there's a winner, the board is full or the turn limit is reached
	Run() (winner string, gameMetric metrics.GameMetric, moveMetrics []metrics.MoveMetric, err error)
}

const Draw = "Draw"
