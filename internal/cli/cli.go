package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vk/voltgrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated
// Config, a boolean indicating if the program should exit cleanly, or
// an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("voltgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
voltgrid - a declarative compiler for energy-system capacity-expansion models.

Usage:
  voltgrid [options] [MODEL_PATH ...]

Arguments:
  MODEL_PATH
    Path to a .yaml model document or a directory of documents. Repeatable.

Options:
`)
		flagSet.PrintDefaults()
	}

	modelFlag := flagSet.String("m", "", "Path to a model document or directory (may also be given as arguments).")
	outputFlag := flagSet.String("o", "", "File to write the compiled problem JSON to. Default is stdout.")
	solverURLFlag := flagSet.String("solver-url", "", "Base URL of an HTTP solver service. Empty disables solving.")
	solverTimeoutFlag := flagSet.Duration("solver-timeout", 5*time.Minute, "Timeout for one solver request.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	maxPassesFlag := flagSet.Int("max-passes", 0, "Cap on reference-resolution passes. 0 uses the default.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	var paths []string
	if *modelFlag != "" {
		paths = append(paths, *modelFlag)
	}
	paths = append(paths, flagSet.Args()...)

	if len(paths) == 0 {
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		ModelPaths:    paths,
		OutputPath:    *outputFlag,
		SolverURL:     *solverURLFlag,
		SolverTimeout: *solverTimeoutFlag,
		LogFormat:     logFormat,
		LogLevel:      logLevel,
		MaxPasses:     *maxPassesFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return config, false, nil
}
