package solve

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/voltgrid/internal/problem"
)

func testProblem() *problem.Problem {
	p := &problem.Problem{Name: "test", Objective: problem.NewExpr()}
	p.Objective.Add("TotalDiscountedCost[R1|2020]", 1)
	return p
}

func solverStub(t *testing.T, handler http.HandlerFunc) *Remote {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	remote := NewRemote(server.URL, 5*time.Second)
	t.Cleanup(func() { _ = remote.Close() })
	return remote
}

func TestRemoteSolve_Optimal(t *testing.T) {
	t.Parallel()

	remote := solverStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/solve", r.URL.Path)

		var received problem.Problem
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		assert.Equal(t, "test", received.Name)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Result{
			Status:    "optimal",
			Objective: 123.45,
			Variables: map[string]map[string]float64{
				"NewCapacity": {"R1|gas_plant|2020": 1.5},
			},
		})
	})

	result, err := remote.Solve(context.Background(), testProblem())
	require.NoError(t, err)

	assert.Equal(t, "optimal", result.Status)
	assert.Equal(t, 123.45, result.Objective)
	assert.Equal(t, 1.5, result.Variables["NewCapacity"]["R1|gas_plant|2020"])
}

func TestRemoteSolve_Infeasible(t *testing.T) {
	t.Parallel()

	remote := solverStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Result{Status: "infeasible"})
	})

	_, err := remote.Solve(context.Background(), testProblem())

	var infeasible *InfeasibleError
	require.ErrorAs(t, err, &infeasible)
}

func TestRemoteSolve_Unbounded(t *testing.T) {
	t.Parallel()

	remote := solverStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Result{Status: "unbounded"})
	})

	_, err := remote.Solve(context.Background(), testProblem())

	var unbounded *UnboundedError
	require.ErrorAs(t, err, &unbounded)
}

func TestRemoteSolve_HTTPError(t *testing.T) {
	t.Parallel()

	remote := solverStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "error",
			"detail": "solver crashed",
		})
	})

	_, err := remote.Solve(context.Background(), testProblem())

	var serr *SolverError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "solver crashed", serr.Detail)
}

func TestRemoteSolve_UnknownStatus(t *testing.T) {
	t.Parallel()

	remote := solverStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Result{Status: "maybe"})
	})

	_, err := remote.Solve(context.Background(), testProblem())

	var serr *SolverError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "maybe", serr.Status)
}
