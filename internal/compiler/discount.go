package compiler

import (
	"math"

	"github.com/vk/voltgrid/internal/schema"
)

// Financial arithmetic for the cost accounting rows. Years are measured
// from the first model year.

func discountFactor(rate float64, year, firstYear int) float64 {
	return math.Pow(1+rate, float64(year-firstYear))
}

func discountFactorMid(rate float64, year, firstYear int) float64 {
	return math.Pow(1+rate, float64(year-firstYear)+0.5)
}

// capitalRecoveryFactor annualizes one unit of capital over the
// operating life at the cost of capital.
func capitalRecoveryFactor(costOfCapital float64, life int) float64 {
	if costOfCapital == 0 {
		return 1 / float64(life)
	}
	return (1 - math.Pow(1+costOfCapital, -1)) / (1 - math.Pow(1+costOfCapital, -float64(life)))
}

// pvAnnuity is the present value of a unit annuity over the operating
// life at the discount rate.
func pvAnnuity(discountRate float64, life int) float64 {
	if discountRate == 0 {
		return float64(life)
	}
	return (1 - math.Pow(1+discountRate, -float64(life))) * (1 + discountRate) / discountRate
}

// capitalCoefficient is the discounted cost of one unit of new capacity
// built in the given year: the annualized capital stream (capital
// recovery factor under sinking-fund, a linear share under
// straight-line) valued as an annuity and discounted to the first year.
func capitalCoefficient(method string, capex, costOfCapital, discountRate float64, life, year, firstYear int) float64 {
	var annualized float64
	switch method {
	case schema.DepreciationStraightLine:
		annualized = capex / float64(life)
	default:
		annualized = capex * capitalRecoveryFactor(costOfCapital, life)
	}
	return annualized * pvAnnuity(discountRate, life) / discountFactor(discountRate, year, firstYear)
}

// salvageFraction is the share of capital recovered for plant whose
// operating life extends past the model horizon. Zero when the plant
// retires within the horizon.
func salvageFraction(method string, discountRate float64, life, year, lastYear int) float64 {
	if year+life-1 <= lastYear {
		return 0
	}
	remaining := float64(lastYear - year + 1)
	if method == schema.DepreciationSinkingFund && discountRate > 0 {
		return 1 - (math.Pow(1+discountRate, remaining)-1)/(math.Pow(1+discountRate, float64(life))-1)
	}
	return 1 - remaining/float64(life)
}

// salvageDiscount discounts a salvage value recovered just past the end
// of the horizon back to the first year.
func salvageDiscount(discountRate float64, firstYear, lastYear int) float64 {
	return math.Pow(1+discountRate, float64(lastYear-firstYear)+1)
}
