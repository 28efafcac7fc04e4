// Package solve hands a compiled problem to an external solver and
// interprets the outcome. The compiler knows nothing about solving;
// the application wires the two together.
package solve

import (
	"context"
	"fmt"
	"time"

	"resty.dev/v3"

	"github.com/vk/voltgrid/internal/ctxlog"
	"github.com/vk/voltgrid/internal/problem"
)

// Result is a solver's answer. Variable values are keyed by variable
// set name, then by the "|"-joined coordinate.
type Result struct {
	Status    string                        `json:"status"`
	Objective float64                       `json:"objective"`
	Variables map[string]map[string]float64 `json:"variables"`
	Duals     map[string]float64            `json:"duals,omitempty"`
}

// Adapter solves a compiled problem.
type Adapter interface {
	Solve(ctx context.Context, p *problem.Problem) (*Result, error)
}

// InfeasibleError reports that the solver proved the problem has no
// feasible point.
type InfeasibleError struct {
	Detail string
}

func (e *InfeasibleError) Error() string {
	if e.Detail == "" {
		return "problem is infeasible"
	}
	return "problem is infeasible: " + e.Detail
}

// UnboundedError reports an unbounded objective.
type UnboundedError struct {
	Detail string
}

func (e *UnboundedError) Error() string {
	if e.Detail == "" {
		return "problem is unbounded"
	}
	return "problem is unbounded: " + e.Detail
}

// SolverError reports any other failure status from the solver.
type SolverError struct {
	Status string
	Detail string
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("solver returned status %q: %s", e.Status, e.Detail)
}

// Remote posts problems to an HTTP solver service.
type Remote struct {
	client *resty.Client
}

// NewRemote builds an adapter for the service at baseURL. The service
// is expected to accept the problem JSON at POST <baseURL>/solve.
func NewRemote(baseURL string, timeout time.Duration) *Remote {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &Remote{client: client}
}

// Close releases the underlying HTTP client.
func (r *Remote) Close() error {
	return r.client.Close()
}

type remoteFailure struct {
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// Solve posts the problem and maps the response status onto the typed
// errors.
func (r *Remote) Solve(ctx context.Context, p *problem.Problem) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Submitting problem to solver.",
		"problem", p.Name,
		"variables", len(p.Variables),
		"constraints", len(p.Constraints))

	var result Result
	var failure remoteFailure
	res, err := r.client.R().
		SetContext(ctx).
		SetBody(p).
		SetResult(&result).
		SetError(&failure).
		Post("/solve")
	if err != nil {
		return nil, fmt.Errorf("posting problem to solver: %w", err)
	}
	if res.IsError() {
		return nil, &SolverError{Status: res.Status(), Detail: failure.Detail}
	}

	switch result.Status {
	case "optimal", "ok":
		logger.Info("Solver finished.", "status", result.Status, "objective", result.Objective)
		return &result, nil
	case "infeasible":
		return nil, &InfeasibleError{}
	case "unbounded":
		return nil, &UnboundedError{}
	default:
		return nil, &SolverError{Status: result.Status, Detail: "unexpected solver status"}
	}
}
