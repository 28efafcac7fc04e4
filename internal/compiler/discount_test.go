package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vk/voltgrid/internal/schema"
)

func TestCapitalRecoveryFactor(t *testing.T) {
	t.Parallel()

	// Zero cost of capital degenerates to straight division.
	assert.InDelta(t, 0.1, capitalRecoveryFactor(0, 10), 1e-12)

	// A one-year life recovers everything in the first year.
	assert.InDelta(t, 1.0, capitalRecoveryFactor(0.05, 1), 1e-12)

	// Recovery and annuity cancel exactly when the cost of capital
	// matches the discount rate.
	for _, life := range []int{1, 5, 30} {
		product := capitalRecoveryFactor(0.07, life) * pvAnnuity(0.07, life)
		assert.InDelta(t, 1.0, product, 1e-9, "life %d", life)
	}
}

func TestPVAnnuity_ZeroRate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 7.0, pvAnnuity(0, 7))
}

func TestCapitalCoefficient_StraightLine(t *testing.T) {
	t.Parallel()

	// 100 over 4 years, undiscounted: a plain annual share times the
	// life.
	got := capitalCoefficient(schema.DepreciationStraightLine, 100, 0.05, 0, 4, 2020, 2020)
	assert.InDelta(t, 100.0, got, 1e-12)

	// Building later discounts the whole stream.
	later := capitalCoefficient(schema.DepreciationStraightLine, 100, 0.05, 0.05, 4, 2022, 2020)
	earlier := capitalCoefficient(schema.DepreciationStraightLine, 100, 0.05, 0.05, 4, 2020, 2020)
	assert.Less(t, later, earlier)
}

func TestSalvageFraction(t *testing.T) {
	t.Parallel()

	// Plant retiring inside the horizon salvages nothing.
	assert.Equal(t, 0.0, salvageFraction(schema.DepreciationSinkingFund, 0.05, 5, 2020, 2030))

	// Straight-line salvage is the unused share of life: built 2028,
	// life 10, horizon ends 2031 leaves 6 of 10 years unused.
	got := salvageFraction(schema.DepreciationStraightLine, 0.05, 10, 2028, 2031)
	assert.InDelta(t, 0.6, got, 1e-12)

	// Sinking fund with a positive rate salvages more than the linear
	// share, and stays a fraction.
	sf := salvageFraction(schema.DepreciationSinkingFund, 0.05, 10, 2028, 2031)
	assert.Greater(t, sf, got)
	assert.Less(t, sf, 1.0)

	// Zero discount rate falls back to the linear share.
	assert.InDelta(t, 0.6, salvageFraction(schema.DepreciationSinkingFund, 0, 10, 2028, 2031), 1e-12)
}

func TestSalvageDiscount(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.05*1.05, salvageDiscount(0.05, 2020, 2021), 1e-12)
}
