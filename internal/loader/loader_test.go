package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDocument(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMerge_RecursiveWithLastWins(t *testing.T) {
	t.Parallel()

	dst := map[string]any{
		"technologies": map[string]any{
			"coal": map[string]any{"capex": 100.0, "operating_life": 30},
		},
		"time_definition": map[string]any{"years": []any{2020}},
	}
	src := map[string]any{
		"technologies": map[string]any{
			"coal": map[string]any{"capex": 90.0},
			"wind": map[string]any{"capex": 50.0},
		},
		"time_definition": map[string]any{"years": []any{2020, 2021}},
	}

	got := Merge(dst, src)

	want := map[string]any{
		"technologies": map[string]any{
			"coal": map[string]any{"capex": 90.0, "operating_life": 30},
			"wind": map[string]any{"capex": 50.0},
		},
		"time_definition": map[string]any{"years": []any{2020, 2021}},
	}
	assert.Empty(t, cmp.Diff(want, got))
}

func TestNormalize_NumericKeysBecomeStrings(t *testing.T) {
	t.Parallel()

	got := Normalize(map[string]any{
		"demand_annual": map[any]any{
			2020: 5.0,
			2021: map[any]any{true: 1.0},
		},
		"years": []any{map[any]any{1: "a"}},
	})

	want := map[string]any{
		"demand_annual": map[string]any{
			"2020": 5.0,
			"2021": map[string]any{"true": 1.0},
		},
		"years": []any{map[string]any{"1": "a"}},
	}
	assert.Empty(t, cmp.Diff(want, got))
}

func TestLoadRaw_MergesDocumentsInOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDocument(t, dir, "01-base.yaml", `
regions:
  R1: {}
commodities:
  electricity:
    demand_annual:
      "*":
        2020: 5
`)
	writeDocument(t, dir, "02-override.yaml", `
commodities:
  electricity:
    demand_annual:
      "*":
        2020: 7
`)

	merged, err := LoadRaw(context.Background(), dir)
	require.NoError(t, err)

	commodities := merged["commodities"].(map[string]any)
	electricity := commodities["electricity"].(map[string]any)
	demand := electricity["demand_annual"].(map[string]any)
	assert.Equal(t, map[string]any{"2020": 7}, demand["*"])
	assert.Contains(t, merged, "regions")
}

func TestLoadRaw_RejectsNonYAMLFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeDocument(t, dir, "model.json", `{}`)

	_, err := LoadRaw(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a yaml document")
}

func TestLoadRaw_MissingPath(t *testing.T) {
	t.Parallel()

	_, err := LoadRaw(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadRaw_EmptyDirectory(t *testing.T) {
	t.Parallel()

	_, err := LoadRaw(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no yaml documents")
}

func TestLoad_ResolvesPlaceholders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDocument(t, dir, "model.yaml", `
defaults:
  demand: 5
time_definition:
  years: range(2020, 2023)
commodities:
  electricity:
    demand_annual: ${defaults.demand}
scenario: $ENV{SCENARIO:baseline}
`)

	resolved, err := Load(context.Background(), Options{
		LookupEnv: func(string) (string, bool) { return "", false },
	}, dir)
	require.NoError(t, err)

	td := resolved["time_definition"].(map[string]any)
	assert.Equal(t, []any{2020, 2021, 2022}, td["years"])

	electricity := resolved["commodities"].(map[string]any)["electricity"].(map[string]any)
	assert.Equal(t, 5, electricity["demand_annual"])
	assert.Equal(t, "baseline", resolved["scenario"])
}
