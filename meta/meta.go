package meta

import (
	"encoding/json"
	"math"
	"os"

	"connectfour/game"

	"github.com/pkg/errors"
)

// ITERATIONS is the default search budget per move.
const ITERATIONS = 1000

// MaxTurns bounds a game, one turn per disc.
const MaxTurns = game.Rows * game.Columns

// PORT is the default agent server port.
const PORT = "8080"

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Mode        string  `json:"mode"` // play, selfplay, serve, experiment, dot
	Iterations  int     `json:"iterations"`
	Seed        uint64  `json:"seed"` // 0 seeds from the clock
	Scoring     string  `json:"scoring"`
	Exploration float64 `json:"exploration"`
	Temperature float64 `json:"temperature"` // Self-play sampling, 0 plays greedily
	Port        string  `json:"port"`
	Remote      string  `json:"remote"` // Agent server URL for the opponent, empty for in process
	HumanRed    bool    `json:"humanRed"`
	Experiment  string  `json:"experiment"` // scoring, budget, throughput
	Games       int     `json:"games"`
	OutputDir   string  `json:"outputDir"`
	DotDepth    int     `json:"dotDepth"`
	LogLevel    string  `json:"logLevel"`
}

func DefaultConfig() Config {
	return Config{
		Mode:        "play",
		Iterations:  ITERATIONS,
		Scoring:     "fractional",
		Exploration: math.Sqrt2,
		Port:        PORT,
		HumanRed:    true,
		Experiment:  "scoring",
		Games:       10,
		OutputDir:   "results",
		DotDepth:    2,
		LogLevel:    "info",
	}
}

// LoadConfig reads a JSON config file over the defaults, fields missing from
// the file keep their default value.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return config, errors.Wrapf(err, "reading config %s", path)
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return config, errors.Wrapf(err, "parsing config %s", path)
	}
	return config, config.Validate()
}

func (c Config) Validate() error {
	switch c.Mode {
	case "play", "selfplay", "serve", "experiment", "dot":
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown mode %q", c.Mode)
	}
	switch c.Experiment {
	case "scoring", "budget", "throughput":
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown experiment %q", c.Experiment)
	}
	switch c.Scoring {
	case "", "fractional", "truncated":
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown scoring %q", c.Scoring)
	}
	if c.Iterations < 1 {
		return errors.Wrapf(ErrInvalidConfig, "iterations must be positive, got %d", c.Iterations)
	}
	if c.Exploration < 0 {
		return errors.Wrapf(ErrInvalidConfig, "exploration must not be negative, got %g", c.Exploration)
	}
	if c.Temperature < 0 {
		return errors.Wrapf(ErrInvalidConfig, "temperature must not be negative, got %g", c.Temperature)
	}
	if c.Games <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "games must be positive, got %d", c.Games)
	}
	if c.DotDepth < 0 {
		return errors.Wrapf(ErrInvalidConfig, "dot depth must not be negative, got %d", c.DotDepth)
	}
	return nil
}
