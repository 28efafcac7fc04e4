package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalModelBody is the smallest configuration that parses cleanly:
// two regions, one demanded commodity, one impact, one technology whose
// single mode produces the commodity and emits the impact.
func minimalModelBody() map[string]any {
	return map[string]any{
		"time_definition": map[string]any{
			"years": []any{2020, 2021},
		},
		"regions": map[string]any{"R1": nil, "R2": nil},
		"commodities": map[string]any{
			"electricity": map[string]any{
				"demand_annual": map[string]any{
					"*": map[string]any{"2020": 5.0, "2021": 6.0},
				},
			},
		},
		"impacts": map[string]any{"co2": map[string]any{}},
		"technologies": map[string]any{
			"gas_plant": map[string]any{
				"operating_modes": map[string]any{
					"generate": map[string]any{
						"output_activity_ratio": map[string]any{
							"electricity": 1.0,
						},
						"emission_activity_ratio": map[string]any{
							"co2": 0.2,
						},
					},
				},
			},
		},
	}
}

func TestParseModel_MinimalConfiguration(t *testing.T) {
	t.Parallel()

	m, err := ParseModel(minimalModelBody())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"R1", "R2"}, m.Sets.Regions)
	assert.Equal(t, []string{"2020", "2021"}, m.Sets.Years)
	assert.Equal(t, []string{"ANNUAL"}, m.Sets.Timeslices)
	require.Len(t, m.Technologies, 1)
	require.Len(t, m.Technologies[0].OperatingModes, 1)
}

func TestParseModel_WildcardDemandBroadcastsOverRegions(t *testing.T) {
	t.Parallel()

	m, err := ParseModel(minimalModelBody())
	require.NoError(t, err)

	electricity := m.Commodities[0]
	for _, region := range []string{"R1", "R2"} {
		assert.Equal(t, 5.0, electricity.DemandAnnual[region]["2020"], region)
		assert.Equal(t, 6.0, electricity.DemandAnnual[region]["2021"], region)
	}
}

func TestParseModel_DefaultsApplied(t *testing.T) {
	t.Parallel()

	m, err := ParseModel(minimalModelBody())
	require.NoError(t, err)

	tech := m.Technologies[0]
	assert.Equal(t, DefaultValues.TechnologyCapex, tech.Capex["R1"]["2020"])
	assert.Equal(t, DefaultValues.TechnologyOperatingLife, tech.OperatingLife["R1"])
	assert.Equal(t, DefaultValues.TechnologyAvailabilityFactor, tech.AvailabilityFactor["R2"]["2021"])
	assert.Equal(t, DefaultValues.TechnologyOpexVariable, tech.OperatingModes[0].OpexVariable["R1"]["2020"])

	assert.Equal(t, DefaultValues.DiscountRate, m.DiscountRate["R1"])
	assert.Equal(t, DepreciationSinkingFund, m.DepreciationMethod["R1"])
	assert.Equal(t, DefaultValues.ReserveMargin, m.ReserveMargin["R2"]["2020"])
}

func TestParseModel_CostOfCapitalFallsBackToDiscountRate(t *testing.T) {
	t.Parallel()

	body := minimalModelBody()
	body["discount_rate"] = 0.08
	body["cost_of_capital"] = map[string]any{
		"R1": map[string]any{"gas_plant": 0.12},
	}

	m, err := ParseModel(body)
	require.NoError(t, err)

	assert.Equal(t, 0.12, m.CostOfCapital["R1"]["gas_plant"])
	assert.Equal(t, 0.08, m.CostOfCapital["R2"]["gas_plant"])
}

func TestParseModel_UndeclaredRegionKeyIsViolation(t *testing.T) {
	t.Parallel()

	// Demand keyed by an unknown region must fail loudly: broadcast
	// would otherwise carry it through composition and the assembly
	// would drop it without a trace.
	body := minimalModelBody()
	body["commodities"].(map[string]any)["electricity"] = map[string]any{
		"demand_annual": map[string]any{
			"R3": map[string]any{"2020": 5.0},
		},
	}

	_, err := ParseModel(body)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Violations, 1)
	assert.Equal(t, "electricity", verr.Violations[0].Entity)
	assert.Equal(t, "demand_annual", verr.Violations[0].Field)
	assert.Contains(t, verr.Violations[0].Message, `"R3"`)
}

func TestParseModel_UndeclaredYearKeyIsViolation(t *testing.T) {
	t.Parallel()

	body := minimalModelBody()
	body["commodities"].(map[string]any)["electricity"] = map[string]any{
		"demand_annual": map[string]any{
			"*": map[string]any{"2019": 4.0},
		},
	}

	_, err := ParseModel(body)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "demand_annual")
	assert.Contains(t, verr.Error(), `"2019"`)
}

func TestParseModel_UnproducedCommodityIsViolation(t *testing.T) {
	t.Parallel()

	body := minimalModelBody()
	body["commodities"].(map[string]any)["heat"] = map[string]any{}

	_, err := ParseModel(body)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), `"heat" is not produced`)
}

func TestParseModel_UnemittedImpactIsViolation(t *testing.T) {
	t.Parallel()

	body := minimalModelBody()
	body["impacts"].(map[string]any)["nox"] = map[string]any{}

	_, err := ParseModel(body)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), `"nox" is not emitted`)
}

func TestParseModel_MissingCollectionsAccumulate(t *testing.T) {
	t.Parallel()

	_, err := ParseModel(map[string]any{
		"time_definition": map[string]any{"years": []any{2020}},
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	fields := make(map[string]bool)
	for _, v := range verr.Violations {
		fields[v.Field] = true
	}
	assert.True(t, fields["regions"])
	assert.True(t, fields["commodities"])
	assert.True(t, fields["impacts"])
	assert.True(t, fields["technologies"])
}

func TestParseModel_BadDiscountRate(t *testing.T) {
	t.Parallel()

	body := minimalModelBody()
	body["discount_rate"] = 1.5

	_, err := ParseModel(body)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "outside [0, 1)")
}
