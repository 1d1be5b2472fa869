package experiments

import (
	"runtime"
	"time"

	"connectfour/engine"
	"connectfour/experiments/metrics"
	"connectfour/searcher"
	"connectfour/searcher/agent"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	NumGames   = 20 // Per match up
	Iterations = 500
)

type Options struct {
	OutputDir  string
	Games      int    // Per match up, NumGames when 0
	Iterations int    // Baseline budget, Iterations when 0
	Seed       uint64 // 0 seeds from the clock
	Budgets    []int  // Throughput budgets
}

func (o Options) withDefaults() Options {
	if o.Games <= 0 {
		o.Games = NumGames
	}
	if o.Iterations <= 0 {
		o.Iterations = Iterations
	}
	if o.Seed == 0 {
		o.Seed = uint64(time.Now().UnixNano())
	}
	if len(o.Budgets) == 0 {
		o.Budgets = []int{100, 1000, 5000}
	}
	return o
}

// RunScoringExperiment pits fractional against truncated win ratios, each
// side starting half of the games. It returns the directory holding the results.
func RunScoringExperiment(opts Options) (string, error) {
	opts = opts.withDefaults()
	fractional := metrics.AgentConfig{ID: 1, Iterations: opts.Iterations, Scoring: searcher.FractionalWinRatio.String()}
	truncated := metrics.AgentConfig{ID: 2, Iterations: opts.Iterations, Scoring: searcher.TruncatedWinRatio.String()}
	matchUps := [][]metrics.AgentConfig{
		{fractional, truncated},
		{truncated, fractional},
	}

	return runExperiment("scoring", opts, []metrics.AgentConfig{fractional, truncated}, matchUps)
}

// RunBudgetExperiment pairs agents with smaller and larger budgets against the
// baseline budget, alternating the starting agent.
func RunBudgetExperiment(opts Options) (string, error) {
	opts = opts.withDefaults()
	baseline := metrics.AgentConfig{ID: 0, Iterations: opts.Iterations, Scoring: searcher.FractionalWinRatio.String()}
	budgetConfigs := []metrics.AgentConfig{
		{ID: 1, Iterations: max(1, opts.Iterations/4), Scoring: baseline.Scoring},
		{ID: 2, Iterations: max(1, opts.Iterations/2), Scoring: baseline.Scoring},
		{ID: 3, Iterations: opts.Iterations * 2, Scoring: baseline.Scoring},
	}

	matchUps := [][]metrics.AgentConfig{}
	for _, config := range budgetConfigs {
		matchUps = append(matchUps, []metrics.AgentConfig{baseline, config}, []metrics.AgentConfig{config, baseline})
	}

	return runExperiment("budget", opts, append(budgetConfigs, baseline), matchUps)
}

type gameResult struct {
	winner      string
	gameMetric  metrics.GameMetric
	moveMetrics []metrics.MoveMetric
}

func runExperiment(name string, opts Options, configs []metrics.AgentConfig, matchUps [][]metrics.AgentConfig) (string, error) {
	log.Info().Msgf("starting %s experiment with %d matchups of %d games...", name, len(matchUps), opts.Games)

	// Games are independent, each owns fresh engines
	results := make([]gameResult, len(matchUps)*opts.Games)
	g := errgroup.Group{}
	g.SetLimit(runtime.GOMAXPROCS(0))
	for mi, matchup := range matchUps {
		for i := 0; i < opts.Games; i++ {
			index := mi*opts.Games + i
			config1, config2 := matchup[0], matchup[1]
			seed := opts.Seed + 2*uint64(index)
			mi, i := mi, i
			g.Go(func() error {
				winner, gameMetric, moveMetrics, err := runGame(config1, config2, seed)
				if err != nil {
					return errors.Wrapf(err, "matchup %d game %d", mi+1, i+1)
				}
				results[index] = gameResult{winner: winner, gameMetric: gameMetric, moveMetrics: moveMetrics}
				log.Info().Msgf("completed matchup %d of %d game %d of %d with winner: %s", mi+1, len(matchUps), i+1, opts.Games, winner)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	log.Info().Msgf("completed %s experiment", name)

	gameRecords := []metrics.GameRecord{}
	moveRecords := []metrics.MoveRecord{}
	for index, result := range results {
		matchup := matchUps[index/opts.Games]
		gameRecords = append(gameRecords, metrics.GameRecord{
			ID:         index + 1,
			Agent1:     matchup[0].ID,
			Agent2:     matchup[1].ID,
			GameMetric: result.gameMetric,
		})
		for _, mm := range result.moveMetrics {
			moveRecords = append(moveRecords, metrics.MoveRecord{
				Game:       index + 1,
				MoveMetric: mm,
			})
		}
	}

	return store(name, opts.OutputDir, configs, gameRecords, moveRecords)
}

func store(name, root string, configs []metrics.AgentConfig, gameRecords []metrics.GameRecord, moveRecords []metrics.MoveRecord) (string, error) {
	writer, err := metrics.NewWriter(root, name)
	if err != nil {
		return "", errors.Wrap(err, "creating experiment writer")
	}

	if err := writer.WriteAgentConfigs(configs); err != nil {
		return "", err
	}
	log.Info().Msg("stored agent configs")

	if gameRecords != nil {
		if err := writer.WriteGameRecords(gameRecords); err != nil {
			return "", err
		}
		log.Info().Msg("stored game records")
	}

	if err := writer.WriteMoveRecords(moveRecords); err != nil {
		return "", err
	}
	log.Info().Msg("stored move records")
	return writer.Dir(), nil
}

// runGame plays a single game between two fresh agents and returns the winner
func runGame(config1, config2 metrics.AgentConfig, seed uint64) (string, metrics.GameMetric, []metrics.MoveMetric, error) {
	mcts1, err := createMCTS(config1, seed)
	if err != nil {
		return "", metrics.GameMetric{}, nil, err
	}
	mcts2, err := createMCTS(config2, seed+1)
	if err != nil {
		return "", metrics.GameMetric{}, nil, err
	}

	e := engine.LocalEngine(
		agent.NewEvaluationAgent(mcts1, config1.Iterations),
		agent.NewEvaluationAgent(mcts2, config2.Iterations),
		nil,
	)
	return e.Run()
}

func createMCTS(config metrics.AgentConfig, seed uint64) (*searcher.MCTS, error) {
	scoring, err := searcher.ParseScoring(config.Scoring)
	if err != nil {
		return nil, err
	}
	return searcher.NewMCTS(
		searcher.WithSeed(seed),
		searcher.WithScoring(scoring),
		searcher.WithMetrics(),
	), nil
}
