package experiments

import (
	"time"

	"connectfour/experiments/metrics"
	"connectfour/game"
	"connectfour/searcher"

	"github.com/rs/zerolog/log"
)

type Throughput struct {
	Iterations          int
	Duration            time.Duration
	IterationsPerSecond float64
	TableSize           int
}

// RunThroughputExperiment times a single search from the empty board per
// budget, repeated opts.Games times with a fresh engine each.
func RunThroughputExperiment(opts Options) ([]Throughput, string, error) {
	opts = opts.withDefaults()

	configs := []metrics.AgentConfig{}
	moveRecords := []metrics.MoveRecord{}
	results := []Throughput{}

	log.Info().Msg("starting throughput experiment...")
	for bi, budget := range opts.Budgets {
		config := metrics.AgentConfig{ID: bi + 1, Iterations: budget, Scoring: searcher.FractionalWinRatio.String()}
		configs = append(configs, config)

		var total time.Duration
		tableSize := 0
		for i := 0; i < opts.Games; i++ {
			mcts, err := createMCTS(config, opts.Seed+uint64(bi*opts.Games+i))
			if err != nil {
				return nil, "", err
			}
			move, err := mcts.Search(game.NewBoard(), budget)
			if err != nil {
				return nil, "", err
			}

			metric := mcts.Metrics()
			total += metric.Duration
			tableSize += metric.TableSize
			moveRecords = append(moveRecords, metrics.MoveRecord{
				Game: config.ID,
				MoveMetric: metrics.MoveMetric{
					Step:         i + 1,
					Player:       game.Red.String(),
					Move:         move,
					SearchMetric: metric,
				},
			})
		}

		result := Throughput{
			Iterations: budget,
			Duration:   total / time.Duration(opts.Games),
			TableSize:  tableSize / opts.Games,
		}
		if total > 0 {
			result.IterationsPerSecond = float64(budget*opts.Games) / total.Seconds()
		}
		results = append(results, result)
		log.Info().Msgf("%d iterations: %.0f iterations/s, %d states", budget, result.IterationsPerSecond, result.TableSize)
	}
	log.Info().Msg("completed throughput experiment")

	dir, err := store("throughput", opts.OutputDir, configs, nil, moveRecords)
	if err != nil {
		return nil, "", err
	}
	return results, dir, nil
}
