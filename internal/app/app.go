package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/vk/voltgrid/internal/compiler"
	"github.com/vk/voltgrid/internal/ctxlog"
	"github.com/vk/voltgrid/internal/loader"
	"github.com/vk/voltgrid/internal/problem"
	"github.com/vk/voltgrid/internal/schema"
	"github.com/vk/voltgrid/internal/sets"
	"github.com/vk/voltgrid/internal/solve"
)

// CompilationError wraps a failure with the pipeline stage it occurred
// in, so callers can tell a document problem from a model problem.
type CompilationError struct {
	Stage string
	Err   error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	solver solve.Adapter
}

// NewApp is the constructor for the main application. A solver adapter
// is built from the config when one is not injected.
func NewApp(outW io.Writer, config *Config, solver solve.Adapter) *App {
	logger := newLogger(config.LogLevel, config.LogFormat, os.Stderr)
	if solver == nil && config.SolverURL != "" {
		solver = solve.NewRemote(config.SolverURL, config.SolverTimeout)
	}
	return &App{
		outW:   outW,
		logger: logger,
		config: config,
		solver: solver,
	}
}

// Run drives the full pipeline: load and resolve documents, build and
// validate the model, derive the index sets, compile the problem, emit
// it, and optionally hand it to the solver.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	p, err := a.Compile(ctx)
	if err != nil {
		return err
	}

	if err := a.emit(p); err != nil {
		return &CompilationError{Stage: "emit", Err: err}
	}

	if a.solver == nil {
		return nil
	}
	result, err := a.solver.Solve(ctx, p)
	if err != nil {
		return &CompilationError{Stage: "solve", Err: err}
	}
	a.printSummary(result)
	return nil
}

// Compile runs every stage up to and including problem assembly.
func (a *App) Compile(ctx context.Context) (*problem.Problem, error) {
	resolved, err := loader.Load(ctx, loader.Options{MaxPasses: a.config.MaxPasses}, a.config.ModelPaths...)
	if err != nil {
		return nil, &CompilationError{Stage: "load", Err: err}
	}
	a.logger.Debug("Documents loaded and resolved.", "top_level_keys", len(resolved))

	model, err := schema.ParseModel(resolved)
	if err != nil {
		return nil, &CompilationError{Stage: "validate", Err: err}
	}
	a.logger.Info("Model composed.",
		"regions", len(model.Sets.Regions),
		"years", len(model.Sets.Years),
		"timeslices", len(model.Sets.Timeslices),
		"technologies", len(model.Sets.Technologies))

	idx, err := sets.Derive(model)
	if err != nil {
		return nil, &CompilationError{Stage: "integrity", Err: err}
	}

	p, err := compiler.Compile(model, idx)
	if err != nil {
		return nil, &CompilationError{Stage: "compile", Err: err}
	}
	a.logger.Info("Problem compiled.",
		"variables", len(p.Variables),
		"constraints", len(p.Constraints))
	return p, nil
}

func (a *App) emit(p *problem.Problem) error {
	out := a.outW
	if a.config.OutputPath != "" {
		f, err := os.Create(a.config.OutputPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encoding problem: %w", err)
	}
	return nil
}

func (a *App) printSummary(result *solve.Result) {
	fmt.Fprintf(a.outW, "status: %s\n", result.Status)
	fmt.Fprintf(a.outW, "objective: %g\n", result.Objective)
	names := make([]string, 0, len(result.Variables))
	for name := range result.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(a.outW, "%s: %d values\n", name, len(result.Variables[name]))
	}
}
