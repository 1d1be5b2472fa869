package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"connectfour/engine"
	"connectfour/experiments"
	"connectfour/game"
	"connectfour/meta"
	"connectfour/player"
	"connectfour/searcher"
	"connectfour/searcher/agent"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	config, err := parseConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level, err := zerolog.ParseLevel(config.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})

	if err := run(config); err != nil {
		log.Fatal().Err(err).Msgf("%s failed", config.Mode)
	}
}

// parseConfig layers the config file, when given, over the defaults and the
// explicitly set flags over both.
func parseConfig() (meta.Config, error) {
	defaults := meta.DefaultConfig()

	configPath := flag.String("config", "", "JSON config file")
	mode := flag.String("mode", defaults.Mode, "play, selfplay, serve, experiment or dot")
	iterations := flag.Int("iterations", defaults.Iterations, "Search iterations per move")
	seed := flag.Uint64("seed", defaults.Seed, "Random seed, 0 seeds from the clock")
	scoring := flag.String("scoring", defaults.Scoring, "Win ratio scoring: fractional or truncated")
	exploration := flag.Float64("exploration", defaults.Exploration, "Exploration constant")
	temperature := flag.Float64("temperature", defaults.Temperature, "Self-play sampling temperature, 0 plays greedily")
	port := flag.String("port", defaults.Port, "Agent server port")
	remote := flag.String("remote", defaults.Remote, "Agent server URL to play against")
	humanRed := flag.Bool("human-red", defaults.HumanRed, "Human plays Red and moves first")
	experiment := flag.String("experiment", defaults.Experiment, "scoring, budget or throughput")
	games := flag.Int("games", defaults.Games, "Games per matchup or self-play session")
	outputDir := flag.String("output", defaults.OutputDir, "Experiment results directory")
	dotDepth := flag.Int("dot-depth", defaults.DotDepth, "Plies rendered by dot mode")
	logLevel := flag.String("log-level", defaults.LogLevel, "debug, info, warn or error")
	flag.Parse()

	config := defaults
	if *configPath != "" {
		loaded, err := meta.LoadConfig(*configPath)
		if err != nil {
			return config, err
		}
		config = loaded
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			config.Mode = *mode
		case "iterations":
			config.Iterations = *iterations
		case "seed":
			config.Seed = *seed
		case "scoring":
			config.Scoring = *scoring
		case "exploration":
			config.Exploration = *exploration
		case "temperature":
			config.Temperature = *temperature
		case "port":
			config.Port = *port
		case "remote":
			config.Remote = *remote
		case "human-red":
			config.HumanRed = *humanRed
		case "experiment":
			config.Experiment = *experiment
		case "games":
			config.Games = *games
		case "output":
			config.OutputDir = *outputDir
		case "dot-depth":
			config.DotDepth = *dotDepth
		case "log-level":
			config.LogLevel = *logLevel
		}
	})
	return config, config.Validate()
}

func run(config meta.Config) error {
	switch config.Mode {
	case "play":
		return play(config)
	case "selfplay":
		return selfPlay(config)
	case "serve":
		mcts, err := createMCTS(config)
		if err != nil {
			return err
		}
		return agent.StartAgentServer(config.Port, mcts, config.Iterations)
	case "experiment":
		return experiment(config)
	case "dot":
		return dot(config)
	}
	return errors.Errorf("unknown mode %q", config.Mode)
}

func createMCTS(config meta.Config, options ...searcher.Option) (*searcher.MCTS, error) {
	scoring, err := searcher.ParseScoring(config.Scoring)
	if err != nil {
		return nil, err
	}
	options = append(options, searcher.WithScoring(scoring), searcher.WithExploration(config.Exploration))
	if config.Seed != 0 {
		options = append(options, searcher.WithSeed(config.Seed))
	}
	return searcher.NewMCTS(options...), nil
}

func play(config meta.Config) error {
	renderer := player.NewRenderer(os.Stdout)
	human := player.NewHuman(os.Stdin, renderer)

	var opponent agent.Agent
	if config.Remote != "" {
		opponent = engine.NewRemoteAgent(config.Remote, config.Iterations)
	} else {
		mcts, err := createMCTS(config)
		if err != nil {
			return err
		}
		opponent = agent.NewEvaluationAgent(mcts, config.Iterations)
	}

	red, yellow := agent.Agent(human), opponent
	if !config.HumanRed {
		red, yellow = opponent, human
	}
	e := engine.LocalEngine(red, yellow, nil)
	if _, _, _, err := e.Run(); err != nil {
		return err
	}
	renderer.Print(e.State())

	if stats, ok := opponent.(interface{ Stats() searcher.Stats }); ok {
		log.Info().Msg(stats.Stats().String())
	}
	return nil
}

// selfPlay lets one engine play both sides, keeping its statistics across games.
func selfPlay(config meta.Config) error {
	mcts, err := createMCTS(config, searcher.WithMetrics())
	if err != nil {
		return err
	}

	var self agent.Agent = agent.NewEvaluationAgent(mcts, config.Iterations)
	if config.Temperature > 0 {
		self = agent.NewTrainingAgent(mcts, config.Iterations, config.Temperature, config.Seed)
	}

	for i := 0; i < config.Games; i++ {
		log.Info().Msgf("starting game %d of %d...", i+1, config.Games)
		winner, gameMetric, _, err := engine.LocalEngine(self, self, nil).Run()
		if err != nil {
			return err
		}
		log.Info().Msgf("completed game %d with winner %q after %d moves", i+1, winner, gameMetric.TotalMoves)
	}

	log.Info().Msg(mcts.Stats().String())
	return nil
}

func experiment(config meta.Config) error {
	opts := experiments.Options{
		OutputDir:  config.OutputDir,
		Games:      config.Games,
		Iterations: config.Iterations,
		Seed:       config.Seed,
	}

	var dir string
	var err error
	switch config.Experiment {
	case "scoring":
		dir, err = experiments.RunScoringExperiment(opts)
	case "budget":
		dir, err = experiments.RunBudgetExperiment(opts)
	case "throughput":
		var results []experiments.Throughput
		results, dir, err = experiments.RunThroughputExperiment(opts)
		for _, result := range results {
			fmt.Printf("%d iterations: %.0f iterations/s (%s per search)\n", result.Iterations, result.IterationsPerSecond, result.Duration)
		}
	}
	if err != nil {
		return err
	}

	log.Info().Msgf("results stored in %s", dir)
	return nil
}

// dot searches the empty board and prints the top of the tree in Graphviz format.
func dot(config meta.Config) error {
	mcts, err := createMCTS(config)
	if err != nil {
		return err
	}
	root := game.NewBoard()
	if _, err := mcts.Search(root, config.Iterations); err != nil {
		return err
	}

	graph, err := mcts.ToDot(root, config.DotDepth)
	if err != nil {
		return err
	}
	fmt.Println(graph)
	return nil
}
