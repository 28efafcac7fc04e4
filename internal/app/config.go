package app

import (
	"errors"
	"time"
)

// Config holds all the necessary configuration for an App instance to
// run.
type Config struct {
	// ModelPaths are yaml files or directories describing the model.
	ModelPaths []string
	// OutputPath receives the compiled problem JSON; empty means stdout.
	OutputPath string

	// SolverURL, when set, is the base URL of an HTTP solver service.
	SolverURL     string
	SolverTimeout time.Duration

	LogFormat string
	LogLevel  string

	// MaxPasses caps the reference-resolution fixed point.
	MaxPasses int
}

func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.ModelPaths) == 0 {
		return nil, errors.New("at least one model path is required")
	}
	if cfg.SolverTimeout == 0 {
		cfg.SolverTimeout = 5 * time.Minute
	}
	return &cfg, nil
}
