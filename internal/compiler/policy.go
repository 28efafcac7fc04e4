package compiler

import (
	"github.com/vk/voltgrid/internal/problem"
)

// emissionConstraints ties the emission accounting variable to
// activity, then applies the annual and whole-horizon limits net of
// exogenous amounts.
func (c *Compiler) emissionConstraints() error {
	for _, im := range c.m.Impacts {
		for _, r := range c.idx.Regions {
			for _, y := range c.idx.Years {
				expr := problem.NewExpr()
				expr.Add(problem.Key(varAnnualEmission, r, im.ID, y), 1)
				for _, ts := range c.idx.Timeslices {
					ys, err := c.yearSplit(ts, y)
					if err != nil {
						return err
					}
					for _, t := range c.m.Technologies {
						for _, mode := range t.OperatingModes {
							ratio, ok := opt2(mode.EmissionActivityRatio[im.ID], r, y)
							if !ok || ratio == 0 {
								continue
							}
							expr.Add(problem.Key(varRateOfActivity, r, ts, t.ID, mode.ID, y), -ys*ratio)
						}
					}
				}
				c.addConstraint("EmissionAccounting", []string{r, im.ID, y}, expr, problem.Equal, 0)

				if limit, ok := opt2(im.ConstraintAnnual, r, y); ok {
					exo, _ := opt2(im.ExogenousAnnual, r, y)
					row := problem.NewExpr()
					row.Add(problem.Key(varAnnualEmission, r, im.ID, y), 1)
					c.addConstraint("EmissionLimitAnnual", []string{r, im.ID, y}, row, problem.LessEqual, limit-exo)
				}
			}

			if limit, ok := opt1(im.ConstraintTotal, r); ok {
				exo, _ := opt1(im.ExogenousTotal, r)
				row := problem.NewExpr()
				for _, y := range c.idx.Years {
					row.Add(problem.Key(varAnnualEmission, r, im.ID, y), 1)
				}
				c.addConstraint("EmissionLimitTotal", []string{r, im.ID}, row, problem.LessEqual, limit-exo)
			}
		}
	}
	return nil
}

// reserveMargin requires tagged capacity to exceed the production rate
// of tagged commodities by the margin, in every timeslice.
func (c *Compiler) reserveMargin() error {
	for _, r := range c.idx.Regions {
		for _, y := range c.idx.Years {
			var tagged []string
			for _, com := range c.m.Commodities {
				if flag2(com.IncludeInJointReserveMargin, r, y) {
					tagged = append(tagged, com.ID)
				}
			}
			if len(tagged) == 0 {
				continue
			}
			margin, err := get2("reserve_margin", c.m.ReserveMargin, r, y)
			if err != nil {
				return err
			}

			for _, ts := range c.idx.Timeslices {
				expr := problem.NewExpr()
				for _, t := range c.m.Technologies {
					if !flag2(t.IncludeInJointReserveMargin, r, y) {
						continue
					}
					car, err := get1("capacity_activity_unit_ratio", t.CapacityActivityUnitRatio, r)
					if err != nil {
						return err
					}
					expr.Add(problem.Key(varGrossCapacity, r, t.ID, y), car)
				}
				// Production rate of tagged commodities, unweighted by
				// year split: the margin is an instantaneous requirement.
				for _, commodity := range tagged {
					for _, t := range c.m.Technologies {
						for _, mode := range t.OperatingModes {
							ratio, ok := opt2(mode.OutputActivityRatio[commodity], r, y)
							if !ok || ratio == 0 {
								continue
							}
							expr.Add(problem.Key(varRateOfActivity, r, ts, t.ID, mode.ID, y), -margin*ratio)
						}
					}
				}
				c.addConstraint("ReserveMargin", []string{r, ts, y}, expr, problem.GreaterEqual, 0)
			}
		}
	}
	return nil
}

// renewableTargets enforces the model-wide and region-group renewable
// production shares wherever a target is declared.
func (c *Compiler) renewableTargets() error {
	for _, r := range c.idx.Regions {
		for _, y := range c.idx.Years {
			target, ok := opt2(c.m.RenewableProductionTarget, r, y)
			if !ok {
				continue
			}
			expr, err := c.renewableShare([]string{r}, y, target)
			if err != nil {
				return err
			}
			c.addConstraint("RenewableTarget", []string{r, y}, expr, problem.GreaterEqual, 0)
		}
	}

	for _, g := range c.m.RegionGroups {
		for _, y := range c.idx.Years {
			target, ok := opt2(c.m.RegionalRenewableProductionTarget, g.ID, y)
			if !ok {
				continue
			}
			var members []string
			for _, r := range c.idx.Regions {
				if flag2(g.IncludeInRegionGroup, r, y) {
					members = append(members, r)
				}
			}
			if len(members) == 0 {
				continue
			}
			expr, err := c.renewableShare(members, y, target)
			if err != nil {
				return err
			}
			c.addConstraint("RegionGroupRenewableTarget", []string{g.ID, y}, expr, problem.GreaterEqual, 0)
		}
	}
	return nil
}

// renewableShare builds: tagged production − target × all production of
// tagged commodities, summed over the given regions.
func (c *Compiler) renewableShare(regions []string, y string, target float64) (problem.LinearExpr, error) {
	expr := problem.NewExpr()
	for _, r := range regions {
		for _, com := range c.m.Commodities {
			if !flag2(com.IncludeInJointRenewableTarget, r, y) {
				continue
			}
			for _, ts := range c.idx.Timeslices {
				ys, err := c.yearSplit(ts, y)
				if err != nil {
					return expr, err
				}
				for _, t := range c.m.Technologies {
					renewable := flag2(t.IncludeInJointRenewableTarget, r, y)
					for _, mode := range t.OperatingModes {
						ratio, ok := opt2(mode.OutputActivityRatio[com.ID], r, y)
						if !ok || ratio == 0 {
							continue
						}
						key := problem.Key(varRateOfActivity, r, ts, t.ID, mode.ID, y)
						if renewable {
							expr.Add(key, ys*ratio*(1-target))
						} else {
							expr.Add(key, -ys*ratio*target)
						}
					}
				}
			}
		}
	}
	return expr, nil
}
