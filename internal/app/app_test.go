package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/voltgrid/internal/problem"
	"github.com/vk/voltgrid/internal/schema"
	"github.com/vk/voltgrid/internal/sets"
	"github.com/vk/voltgrid/internal/solve"
)

const modelDocument = `
id: test-system
time_definition:
  years: [2020, 2021]
regions:
  R1: {}
commodities:
  electricity:
    demand_annual:
      "*":
        2020: 5
        2021: 6
impacts:
  co2: {}
technologies:
  gas_plant:
    capex: 100
    operating_life: 2
    operating_modes:
      generate:
        output_activity_ratio:
          electricity: 1.0
        emission_activity_ratio:
          co2: 0.2
`

type fakeSolver struct {
	result *solve.Result
	err    error
	got    *problem.Problem
}

func (f *fakeSolver) Solve(_ context.Context, p *problem.Problem) (*solve.Result, error) {
	f.got = p
	return f.result, f.err
}

func writeModel(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func quietConfig(paths ...string) *Config {
	return &Config{
		ModelPaths: paths,
		LogFormat:  "text",
		LogLevel:   "error",
	}
}

func TestRun_EmitsProblemJSON(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	config := quietConfig(writeModel(t, modelDocument))
	app := NewApp(&out, config, nil)

	require.NoError(t, app.Run(context.Background()))

	var p problem.Problem
	require.NoError(t, json.Unmarshal(out.Bytes(), &p))
	assert.Equal(t, "test-system", p.Name)
	assert.NotEmpty(t, p.Variables)
	assert.NotEmpty(t, p.Constraints)
	assert.Equal(t, 1.0, p.Objective.Terms["TotalDiscountedCost[R1|2020]"])
}

func TestRun_WritesOutputFile(t *testing.T) {
	t.Parallel()

	outputPath := filepath.Join(t.TempDir(), "problem.json")
	config := quietConfig(writeModel(t, modelDocument))
	config.OutputPath = outputPath

	var out bytes.Buffer
	require.NoError(t, NewApp(&out, config, nil).Run(context.Background()))

	raw, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	var p problem.Problem
	require.NoError(t, json.Unmarshal(raw, &p))
	assert.Equal(t, "test-system", p.Name)
	assert.Empty(t, out.String())
}

func TestRun_SolvesAndPrintsSummary(t *testing.T) {
	t.Parallel()

	solver := &fakeSolver{result: &solve.Result{
		Status:    "optimal",
		Objective: 42.5,
		Variables: map[string]map[string]float64{
			"NewCapacity": {"R1|gas_plant|2020": 1.0},
		},
	}}
	outputPath := filepath.Join(t.TempDir(), "problem.json")
	config := quietConfig(writeModel(t, modelDocument))
	config.OutputPath = outputPath

	var out bytes.Buffer
	require.NoError(t, NewApp(&out, config, solver).Run(context.Background()))

	require.NotNil(t, solver.got)
	assert.Equal(t, "test-system", solver.got.Name)
	assert.Contains(t, out.String(), "status: optimal")
	assert.Contains(t, out.String(), "objective: 42.5")
	assert.Contains(t, out.String(), "NewCapacity: 1 values")
}

func TestRun_StageLoad(t *testing.T) {
	t.Parallel()

	config := quietConfig(filepath.Join(t.TempDir(), "absent.yaml"))

	var out bytes.Buffer
	err := NewApp(&out, config, nil).Run(context.Background())

	var cerr *CompilationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "load", cerr.Stage)
}

func TestRun_StageValidate(t *testing.T) {
	t.Parallel()

	config := quietConfig(writeModel(t, `
time_definition:
  years: [2020]
`))

	var out bytes.Buffer
	err := NewApp(&out, config, nil).Run(context.Background())

	var cerr *CompilationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "validate", cerr.Stage)

	var verr *schema.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRun_StageIntegrity(t *testing.T) {
	t.Parallel()

	config := quietConfig(writeModel(t, `
time_definition:
  years: [2020]
regions:
  R1: {}
commodities:
  electricity:
    demand_annual: 5
impacts:
  co2: {}
technologies:
  gas_plant:
    operating_modes:
      generate:
        input_activity_ratio:
          natural_gas: 2.5
        output_activity_ratio:
          electricity: 1.0
        emission_activity_ratio:
          co2: 0.2
`))

	var out bytes.Buffer
	err := NewApp(&out, config, nil).Run(context.Background())

	var cerr *CompilationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "integrity", cerr.Stage)

	var rerr *sets.ReferentialIntegrityError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "natural_gas", rerr.ID)
	assert.Equal(t, "technology gas_plant", rerr.Owner)
}

func TestRun_StageSolve(t *testing.T) {
	t.Parallel()

	solver := &fakeSolver{err: &solve.InfeasibleError{}}
	outputPath := filepath.Join(t.TempDir(), "problem.json")
	config := quietConfig(writeModel(t, modelDocument))
	config.OutputPath = outputPath

	var out bytes.Buffer
	err := NewApp(&out, config, solver).Run(context.Background())

	var cerr *CompilationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "solve", cerr.Stage)

	var infeasible *solve.InfeasibleError
	assert.ErrorAs(t, err, &infeasible)
}
