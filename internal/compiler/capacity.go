package compiler

import (
	"github.com/vk/voltgrid/internal/problem"
)

// capacityBalance ties gross capacity to residual capacity plus every
// addition still within its operating life.
func (c *Compiler) capacityBalance() error {
	for _, t := range c.m.Technologies {
		for _, r := range c.idx.Regions {
			life, err := getInt1("operating_life", t.OperatingLife, r)
			if err != nil {
				return err
			}
			for _, y := range c.idx.Years {
				residual, err := get2("residual_capacity", t.ResidualCapacity, r, y)
				if err != nil {
					return err
				}
				expr := problem.NewExpr()
				expr.Add(problem.Key(varGrossCapacity, r, t.ID, y), 1)
				yi := c.yearOf[y]
				for _, yy := range c.idx.Years {
					yyi := c.yearOf[yy]
					if yyi <= yi && yyi > yi-life {
						expr.Add(problem.Key(varNewCapacity, r, t.ID, yy), -1)
					}
				}
				c.addConstraint("CapacityBalance", []string{r, t.ID, y}, expr, problem.Equal, residual)
			}
		}
	}
	return nil
}

// capacityAdequacy caps the activity rate by available capacity, per
// timeslice (capacity factor) and annually (availability factor).
func (c *Compiler) capacityAdequacy() error {
	for _, t := range c.m.Technologies {
		for _, r := range c.idx.Regions {
			car, err := get1("capacity_activity_unit_ratio", t.CapacityActivityUnitRatio, r)
			if err != nil {
				return err
			}
			for _, y := range c.idx.Years {
				for _, ts := range c.idx.Timeslices {
					cf, err := get3("capacity_factor", t.CapacityFactor, r, y, ts)
					if err != nil {
						return err
					}
					expr := problem.NewExpr()
					for _, mode := range t.OperatingModes {
						expr.Add(problem.Key(varRateOfActivity, r, ts, t.ID, mode.ID, y), 1)
					}
					expr.Add(problem.Key(varGrossCapacity, r, t.ID, y), -cf*car)
					c.addConstraint("CapacityAdequacyTimeslice", []string{r, t.ID, ts, y}, expr, problem.LessEqual, 0)
				}

				af, err := get2("availability_factor", t.AvailabilityFactor, r, y)
				if err != nil {
					return err
				}
				expr, err := c.annualActivity(r, t, y)
				if err != nil {
					return err
				}
				expr.Add(problem.Key(varGrossCapacity, r, t.ID, y), -af*car)
				c.addConstraint("CapacityAdequacyAnnual", []string{r, t.ID, y}, expr, problem.LessEqual, 0)
			}
		}
	}
	return nil
}

// capacityBounds emits rows for every declared gross and additional
// capacity bound.
func (c *Compiler) capacityBounds() error {
	type bound struct {
		field string
		data  map[string]map[string]float64
		v     string
		rel   problem.Relation
	}
	for _, t := range c.m.Technologies {
		bounds := []bound{
			{"gross_max", t.CapacityGrossMax, varGrossCapacity, problem.LessEqual},
			{"gross_min", t.CapacityGrossMin, varGrossCapacity, problem.GreaterEqual},
			{"additional_max", t.CapacityAdditionalMax, varNewCapacity, problem.LessEqual},
			{"additional_min", t.CapacityAdditionalMin, varNewCapacity, problem.GreaterEqual},
		}
		for _, b := range bounds {
			for _, r := range c.idx.Regions {
				for _, y := range c.idx.Years {
					limit, ok := opt2(b.data, r, y)
					if !ok {
						continue
					}
					expr := problem.NewExpr()
					expr.Add(problem.Key(b.v, r, t.ID, y), 1)
					c.addConstraint("CapacityBounds", []string{r, t.ID, y, b.field}, expr, b.rel, limit)
				}
			}
		}
	}
	return nil
}

// capacityGrowth limits additions relative to the previous year's gross
// capacity. With a floor the limit is the larger of the growth bound
// and the floor, linearized with a binary toggle and big-M.
func (c *Compiler) capacityGrowth() error {
	for _, t := range c.m.Technologies {
		for _, r := range c.idx.Regions {
			maxRate, hasMax := opt1(t.CapacityAdditionalMaxGrowthRate, r)
			floor, hasFloor := opt1(t.CapacityAdditionalMaxFloor, r)
			minRate, hasMin := opt1(t.CapacityAdditionalMinGrowthRate, r)

			for i, y := range c.idx.Years {
				if hasMax {
					growth := problem.NewExpr()
					growth.Add(problem.Key(varNewCapacity, r, t.ID, y), 1)
					rhs := 0.0
					if i == 0 {
						residual, err := get2("residual_capacity", t.ResidualCapacity, r, y)
						if err != nil {
							return err
						}
						rhs = maxRate * residual
					} else {
						growth.Add(problem.Key(varGrossCapacity, r, t.ID, c.idx.Years[i-1]), -maxRate)
					}

					if hasFloor {
						toggle := problem.Key(varGrowthRateFloorToggle, r, t.ID, y)
						growth.Add(toggle, -growthBigM)
						c.addConstraint("CapacityGrowth", []string{r, t.ID, y, "rate"}, growth, problem.LessEqual, rhs)

						floorExpr := problem.NewExpr()
						floorExpr.Add(problem.Key(varNewCapacity, r, t.ID, y), 1)
						floorExpr.Add(toggle, growthBigM)
						c.addConstraint("CapacityGrowth", []string{r, t.ID, y, "floor"}, floorExpr, problem.LessEqual, floor+growthBigM)
					} else {
						c.addConstraint("CapacityGrowth", []string{r, t.ID, y, "rate"}, growth, problem.LessEqual, rhs)
					}
				}

				if hasMin && i > 0 {
					expr := problem.NewExpr()
					expr.Add(problem.Key(varNewCapacity, r, t.ID, y), 1)
					expr.Add(problem.Key(varGrossCapacity, r, t.ID, c.idx.Years[i-1]), -minRate)
					c.addConstraint("CapacityGrowth", []string{r, t.ID, y, "min"}, expr, problem.GreaterEqual, 0)
				}
			}
		}
	}
	return nil
}

// unitCommitment ties gross capacity to an integer number of units of
// the declared size.
func (c *Compiler) unitCommitment() error {
	for _, t := range c.m.Technologies {
		if t.CapacityOneTechUnit == nil {
			continue
		}
		for _, r := range c.idx.Regions {
			for _, y := range c.idx.Years {
				size, err := get2("capacity_one_tech_unit", t.CapacityOneTechUnit, r, y)
				if err != nil {
					return err
				}
				expr := problem.NewExpr()
				expr.Add(problem.Key(varGrossCapacity, r, t.ID, y), 1)
				expr.Add(problem.Key(varNumberOfUnits, r, t.ID, y), -size)
				c.addConstraint("UnitCommitment", []string{r, t.ID, y}, expr, problem.Equal, 0)
			}
		}
	}
	return nil
}

// activityBounds emits rows for declared annual and whole-horizon
// activity limits.
func (c *Compiler) activityBounds() error {
	for _, t := range c.m.Technologies {
		for _, r := range c.idx.Regions {
			for _, y := range c.idx.Years {
				maxA, hasMaxA := opt2(t.ActivityAnnualMax, r, y)
				minA, hasMinA := opt2(t.ActivityAnnualMin, r, y)
				if !hasMaxA && !hasMinA {
					continue
				}
				expr, err := c.annualActivity(r, t, y)
				if err != nil {
					return err
				}
				if hasMaxA {
					c.addConstraint("ActivityBounds", []string{r, t.ID, y, "annual_max"}, expr, problem.LessEqual, maxA)
				}
				if hasMinA {
					c.addConstraint("ActivityBounds", []string{r, t.ID, y, "annual_min"}, expr, problem.GreaterEqual, minA)
				}
			}

			maxT, hasMaxT := opt1(t.ActivityTotalMax, r)
			minT, hasMinT := opt1(t.ActivityTotalMin, r)
			if !hasMaxT && !hasMinT {
				continue
			}
			total := problem.NewExpr()
			for _, y := range c.idx.Years {
				annual, err := c.annualActivity(r, t, y)
				if err != nil {
					return err
				}
				total.AddExpr(annual, 1)
			}
			if hasMaxT {
				c.addConstraint("ActivityBounds", []string{r, t.ID, "total_max"}, total, problem.LessEqual, maxT)
			}
			if hasMinT {
				c.addConstraint("ActivityBounds", []string{r, t.ID, "total_min"}, total, problem.GreaterEqual, minT)
			}
		}
	}
	return nil
}
