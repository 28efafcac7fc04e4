package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/voltgrid/internal/problem"
)

func storageBody() map[string]any {
	return map[string]any{
		"id": "storage-system",
		"time_definition": map[string]any{
			"years":      []any{2020, 2021},
			"timeslices": []any{"day", "night"},
		},
		"regions": map[string]any{"R1": nil},
		"commodities": map[string]any{
			"electricity": map[string]any{
				"demand_annual": 5.0,
			},
		},
		"impacts": map[string]any{"co2": map[string]any{}},
		"storage": map[string]any{
			"battery": map[string]any{
				"capex":          10.0,
				"operating_life": 5,
				"initial_level":  1.0,
				"balance_annual": true,
			},
		},
		"technologies": map[string]any{
			"plant": map[string]any{
				"operating_modes": map[string]any{
					"generate": map[string]any{
						"output_activity_ratio":   map[string]any{"electricity": 1.0},
						"emission_activity_ratio": map[string]any{"co2": 0.1},
					},
				},
			},
			"battery_unit": map[string]any{
				"operating_modes": map[string]any{
					"charge": map[string]any{
						"input_activity_ratio": map[string]any{"electricity": 1.0},
						"to_storage":           map[string]any{"battery": true},
					},
					"discharge": map[string]any{
						"output_activity_ratio": map[string]any{"electricity": 1.0},
						"from_storage":          map[string]any{"battery": true},
					},
				},
			},
		},
	}
}

func TestCompile_StorageChargeLinks(t *testing.T) {
	t.Parallel()

	p, err := Compile(compiledInput(t, storageBody()))
	require.NoError(t, err)

	charge := findConstraint(t, p, "StorageChargeLink[R1|battery|day|2020]")
	assert.Equal(t, problem.Equal, charge.Relation)
	assert.Equal(t, 0.0, charge.RHS)
	assert.Equal(t, 1.0, charge.Expr.Terms["RateOfStorageCharge[R1|battery|day|2020]"])
	assert.Equal(t, -1.0, charge.Expr.Terms["RateOfActivity[R1|day|battery_unit|charge|2020]"])

	discharge := findConstraint(t, p, "StorageDischargeLink[R1|battery|night|2021]")
	assert.Equal(t, -1.0, discharge.Expr.Terms["RateOfActivity[R1|night|battery_unit|discharge|2021]"])
}

func TestCompile_StorageLevelRecursion(t *testing.T) {
	t.Parallel()

	p, err := Compile(compiledInput(t, storageBody()))
	require.NoError(t, err)

	// The very first timeslice starts from the declared initial level.
	first := findConstraint(t, p, "StorageBalance[R1|battery|day|2020]")
	assert.Equal(t, problem.Equal, first.Relation)
	assert.Equal(t, 1.0, first.RHS)
	assert.Equal(t, 1.0, first.Expr.Terms["StorageLevel[R1|battery|day|2020]"])
	assert.InDelta(t, -0.5, first.Expr.Terms["RateOfStorageCharge[R1|battery|day|2020]"], 1e-12)
	assert.InDelta(t, 0.5, first.Expr.Terms["RateOfStorageDischarge[R1|battery|day|2020]"], 1e-12)

	// Later timeslices chain to the previous one.
	second := findConstraint(t, p, "StorageBalance[R1|battery|night|2020]")
	assert.Equal(t, 0.0, second.RHS)
	assert.Equal(t, -1.0, second.Expr.Terms["StorageLevel[R1|battery|day|2020]"])

	// The first timeslice of a later year chains to the previous year's
	// final level.
	carry := findConstraint(t, p, "StorageBalance[R1|battery|day|2021]")
	assert.Equal(t, -1.0, carry.Expr.Terms["StorageLevel[R1|battery|night|2020]"])
}

func TestCompile_StorageCapacityAndClosure(t *testing.T) {
	t.Parallel()

	p, err := Compile(compiledInput(t, storageBody()))
	require.NoError(t, err)

	capRow := findConstraint(t, p, "StorageCapacity[R1|battery|day|2020]")
	assert.Equal(t, problem.LessEqual, capRow.Relation)
	assert.Equal(t, 0.0, capRow.RHS)
	assert.Equal(t, -1.0, capRow.Expr.Terms["NewStorageCapacity[R1|battery|2020]"])

	annual := findConstraint(t, p, "StorageBalanceAnnual[R1|battery|2020]")
	assert.Equal(t, problem.Equal, annual.Relation)
	assert.InDelta(t, 0.5, annual.Expr.Terms["RateOfStorageCharge[R1|battery|day|2020]"], 1e-12)
	assert.InDelta(t, -0.5, annual.Expr.Terms["RateOfStorageDischarge[R1|battery|night|2020]"], 1e-12)
}

func TestCompile_StorageDailyClosureUsesDaySplit(t *testing.T) {
	t.Parallel()

	body := storageBody()
	body["time_definition"] = map[string]any{
		"years":      []any{2020, 2021},
		"timeslices": []any{"day", "night"},
		"timeslice_in_timebracket": map[string]any{
			"day":   "am",
			"night": "pm",
		},
		"day_split": map[string]any{"am": 0.4, "pm": 0.6},
	}
	battery := body["storage"].(map[string]any)["battery"].(map[string]any)
	battery["balance_daily"] = true
	delete(battery, "balance_annual")

	p, err := Compile(compiledInput(t, body))
	require.NoError(t, err)

	// Both timeslices share the single season/day-type group; each is
	// weighted by its bracket's share of the day.
	daily := findConstraint(t, p, "StorageBalanceDaily[R1|battery|1|1|2020]")
	assert.Equal(t, problem.Equal, daily.Relation)
	assert.Equal(t, 0.0, daily.RHS)
	assert.InDelta(t, 0.4, daily.Expr.Terms["RateOfStorageCharge[R1|battery|day|2020]"], 1e-12)
	assert.InDelta(t, -0.6, daily.Expr.Terms["RateOfStorageDischarge[R1|battery|night|2020]"], 1e-12)
}
