package compiler

import (
	"github.com/vk/voltgrid/internal/problem"
)

// costAccounting defines TotalDiscountedCost per region-year: annualized
// capital valued as an annuity, operating cost and emission penalties
// discounted mid-year, trade and storage capital, less salvage for
// plant outliving the horizon.
func (c *Compiler) costAccounting() error {
	for _, r := range c.idx.Regions {
		dr, err := get1("discount_rate", c.m.DiscountRate, r)
		if err != nil {
			return err
		}
		method, ok := c.m.DepreciationMethod[r]
		if !ok {
			return &DimensionMismatchError{Parameter: "depreciation_method", Coordinate: []string{r}}
		}

		for _, y := range c.idx.Years {
			yi := c.yearOf[y]
			dfMid := discountFactorMid(dr, yi, c.firstYear)

			expr := problem.NewExpr()
			expr.Add(problem.Key(varTotalDiscountedCost, r, y), 1)

			for _, t := range c.m.Technologies {
				life, err := getInt1("operating_life", t.OperatingLife, r)
				if err != nil {
					return err
				}
				capex, err := get2("capex", t.Capex, r, y)
				if err != nil {
					return err
				}
				coc, err := get2("cost_of_capital", c.m.CostOfCapital, r, t.ID)
				if err != nil {
					return err
				}

				capital := capitalCoefficient(method, capex, coc, dr, life, yi, c.firstYear)
				salvage := capex * salvageFraction(method, dr, life, yi, c.lastYear) / salvageDiscount(dr, c.firstYear, c.lastYear)
				expr.Add(problem.Key(varNewCapacity, r, t.ID, y), -(capital - salvage))

				fixed, err := get2("opex_fixed", t.OpexFixed, r, y)
				if err != nil {
					return err
				}
				expr.Add(problem.Key(varGrossCapacity, r, t.ID, y), -fixed/dfMid)

				for _, mode := range t.OperatingModes {
					variable, err := get2("opex_variable", mode.OpexVariable, r, y)
					if err != nil {
						return err
					}
					for _, ts := range c.idx.Timeslices {
						ys, err := c.yearSplit(ts, y)
						if err != nil {
							return err
						}
						expr.Add(problem.Key(varRateOfActivity, r, ts, t.ID, mode.ID, y), -variable*ys/dfMid)
					}
				}
			}

			for _, im := range c.m.Impacts {
				penalty, ok := opt2(im.Penalty, r, y)
				if !ok || penalty == 0 {
					continue
				}
				expr.Add(problem.Key(varAnnualEmission, r, im.ID, y), -penalty/dfMid)
			}

			for _, s := range c.m.Storages {
				life, err := getInt1("operating_life", s.OperatingLife, r)
				if err != nil {
					return err
				}
				capex, err := get2("capex", s.Capex, r, y)
				if err != nil {
					return err
				}
				coc, err := get2("cost_of_capital_storage", c.m.CostOfCapitalStorage, r, s.ID)
				if err != nil {
					return err
				}
				capital := capitalCoefficient(method, capex, coc, dr, life, yi, c.firstYear)
				salvage := capex * salvageFraction(method, dr, life, yi, c.lastYear) / salvageDiscount(dr, c.firstYear, c.lastYear)
				expr.Add(problem.Key(varNewStorageCapacity, r, s.ID, y), -(capital - salvage))
			}

			// Trade capital is charged to the exporting region.
			for _, rp := range c.routes {
				if rp.origin != r {
					continue
				}
				capex, err := get3("capex", rp.trade.Capex, rp.origin, rp.dest, y)
				if err != nil {
					return err
				}
				coc := dr
				if v, ok := opt2(rp.trade.CostOfCapital, rp.origin, rp.dest); ok {
					coc = v
				}
				life := tradeLife(rp.trade, rp.origin, rp.dest, y)
				capital := capitalCoefficient(method, capex, coc, dr, life, yi, c.firstYear)
				salvage := capex * salvageFraction(method, dr, life, yi, c.lastYear) / salvageDiscount(dr, c.firstYear, c.lastYear)
				expr.Add(problem.Key(varNewTradeCapacity, rp.trade.ID, rp.origin, rp.dest, y), -(capital - salvage))
			}

			c.addConstraint("CostAccounting", []string{r, y}, expr, problem.Equal, 0)
		}
	}
	return nil
}
