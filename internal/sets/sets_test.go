package sets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/voltgrid/internal/schema"
)

func parsedModel(t *testing.T, body map[string]any) *schema.Model {
	t.Helper()
	m, err := schema.ParseModel(body)
	require.NoError(t, err)
	return m
}

func baseBody() map[string]any {
	return map[string]any{
		"time_definition": map[string]any{"years": []any{2020}},
		"regions":         map[string]any{"R1": nil},
		"commodities": map[string]any{
			"electricity": map[string]any{
				"demand_annual": 5.0,
			},
		},
		"impacts": map[string]any{"co2": map[string]any{}},
		"technologies": map[string]any{
			"gas_plant": map[string]any{
				"operating_modes": map[string]any{
					"generate": map[string]any{
						"output_activity_ratio":   map[string]any{"electricity": 1.0},
						"emission_activity_ratio": map[string]any{"co2": 0.2},
					},
				},
			},
		},
	}
}

func TestDerive_BuildsCanonicalIndex(t *testing.T) {
	t.Parallel()

	idx, err := Derive(parsedModel(t, baseBody()))
	require.NoError(t, err)

	assert.Equal(t, []string{"R1"}, idx.Regions)
	assert.Equal(t, []string{"2020"}, idx.Years)
	assert.Equal(t, []string{"ANNUAL"}, idx.Timeslices)
	assert.Equal(t, []string{"electricity"}, idx.Commodities)
	assert.Equal(t, []string{"co2"}, idx.Impacts)
	assert.Equal(t, []string{"gas_plant"}, idx.Technologies)
	assert.Equal(t, []string{"generate"}, idx.ModesByTechnology["gas_plant"])
}

func TestDerive_UnknownCommodityInInputRatio(t *testing.T) {
	t.Parallel()

	body := baseBody()
	mode := body["technologies"].(map[string]any)["gas_plant"].(map[string]any)["operating_modes"].(map[string]any)["generate"].(map[string]any)
	mode["input_activity_ratio"] = map[string]any{"natural_gas": 2.5}

	_, err := Derive(parsedModel(t, body))

	var rerr *ReferentialIntegrityError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "commodity", rerr.Kind)
	assert.Equal(t, "natural_gas", rerr.ID)
	assert.Equal(t, "technology gas_plant", rerr.Owner)
	assert.Contains(t, rerr.Error(), `unknown commodity "natural_gas"`)
}

func TestDerive_UnknownImpactInEmissionRatio(t *testing.T) {
	t.Parallel()

	body := baseBody()
	mode := body["technologies"].(map[string]any)["gas_plant"].(map[string]any)["operating_modes"].(map[string]any)["generate"].(map[string]any)
	mode["emission_activity_ratio"] = map[string]any{
		"co2":     0.2,
		"methane": 0.01,
	}

	_, err := Derive(parsedModel(t, body))

	var rerr *ReferentialIntegrityError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "impact", rerr.Kind)
	assert.Equal(t, "methane", rerr.ID)
}

func TestDerive_UnknownCommodityOnTrade(t *testing.T) {
	t.Parallel()

	body := baseBody()
	body["regions"] = map[string]any{"R1": nil, "R2": nil}
	body["trade"] = map[string]any{
		"link": map[string]any{
			"commodity": "hydrogen",
			"trade_routes": map[string]any{
				"R1": map[string]any{"R2": map[string]any{"2020": true}},
			},
		},
	}

	_, err := Derive(parsedModel(t, body))

	var rerr *ReferentialIntegrityError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "commodity", rerr.Kind)
	assert.Equal(t, "hydrogen", rerr.ID)
	assert.Equal(t, "trade link", rerr.Owner)
}

func TestDerive_UnknownRegionInGroupMembership(t *testing.T) {
	t.Parallel()

	body := baseBody()
	body["region_groups"] = map[string]any{
		"north": map[string]any{
			"include_in_region_group": map[string]any{
				"R1": map[string]any{"2020": true},
			},
		},
	}
	m := parsedModel(t, body)

	// Composition rejects unknown keys in parsed input, so plant one
	// directly: Derive guards its input even when the model was
	// assembled in code.
	m.RegionGroups[0].IncludeInRegionGroup["R9"] = map[string]bool{"2020": true}

	_, err := Derive(m)

	var rerr *ReferentialIntegrityError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "region", rerr.Kind)
	assert.Equal(t, "R9", rerr.ID)
	assert.Equal(t, "region group north", rerr.Owner)
}
