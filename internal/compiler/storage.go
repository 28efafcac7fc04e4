package compiler

import (
	"github.com/vk/voltgrid/internal/problem"
	"github.com/vk/voltgrid/internal/schema"
)

// storageConstraints builds the storage subsystem: charge and discharge
// rates tied to the operating modes that move energy to and from each
// store, the level recursion across timeslices and years, the optional
// daily and annual closures, and the capacity, minimum-charge, and rate
// limits.
func (c *Compiler) storageConstraints() error {
	for _, s := range c.m.Storages {
		for _, r := range c.idx.Regions {
			life, err := getInt1("operating_life", s.OperatingLife, r)
			if err != nil {
				return err
			}
			initial, err := get1("initial_level", s.InitialLevel, r)
			if err != nil {
				return err
			}

			for yIdx, y := range c.idx.Years {
				if err := c.storageLinks(s.ID, r, y); err != nil {
					return err
				}
				if err := c.storageLevels(s.ID, r, y, yIdx, initial); err != nil {
					return err
				}
				if err := c.storageCapacity(s, r, y, life); err != nil {
					return err
				}
				c.storageRates(s, r, y)
				if err := c.storageClosures(s, r, y); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// storageLinks equates the charge and discharge rates with the activity
// of the modes tagged to and from the store.
func (c *Compiler) storageLinks(storage, r, y string) error {
	for _, ts := range c.idx.Timeslices {
		charge := problem.NewExpr()
		charge.Add(problem.Key(varRateOfStorageCharge, r, storage, ts, y), 1)
		discharge := problem.NewExpr()
		discharge.Add(problem.Key(varRateOfStorageDischarge, r, storage, ts, y), 1)

		for _, t := range c.m.Technologies {
			for _, mode := range t.OperatingModes {
				key := problem.Key(varRateOfActivity, r, ts, t.ID, mode.ID, y)
				if flag3(mode.ToStorage, storage, r, y) {
					charge.Add(key, -1)
				}
				if flag3(mode.FromStorage, storage, r, y) {
					discharge.Add(key, -1)
				}
			}
		}
		c.addConstraint("StorageChargeLink", []string{r, storage, ts, y}, charge, problem.Equal, 0)
		c.addConstraint("StorageDischargeLink", []string{r, storage, ts, y}, discharge, problem.Equal, 0)
	}
	return nil
}

// storageLevels chains the level through the year's timeslices, seeding
// the first timeslice from the initial level in the first year and from
// the previous year's final level after that.
func (c *Compiler) storageLevels(storage, r, y string, yIdx int, initial float64) error {
	tss := c.idx.Timeslices
	for i, ts := range tss {
		ys, err := c.yearSplit(ts, y)
		if err != nil {
			return err
		}
		expr := problem.NewExpr()
		expr.Add(problem.Key(varStorageLevel, r, storage, ts, y), 1)
		expr.Add(problem.Key(varRateOfStorageCharge, r, storage, ts, y), -ys)
		expr.Add(problem.Key(varRateOfStorageDischarge, r, storage, ts, y), ys)

		rhs := 0.0
		switch {
		case i > 0:
			expr.Add(problem.Key(varStorageLevel, r, storage, tss[i-1], y), -1)
		case yIdx > 0:
			prevYear := c.idx.Years[yIdx-1]
			expr.Add(problem.Key(varStorageLevel, r, storage, tss[len(tss)-1], prevYear), -1)
		default:
			rhs = initial
		}
		c.addConstraint("StorageBalance", []string{r, storage, ts, y}, expr, problem.Equal, rhs)
	}
	return nil
}

// storageCapacity caps the level by residual capacity plus additions
// still within their operating life.
func (c *Compiler) storageCapacity(s *schema.Storage, r, y string, life int) error {
	residual, err := get2("residual_capacity", s.ResidualCapacity, r, y)
	if err != nil {
		return err
	}
	minFrac, err := get2("minimum_charge", s.MinimumCharge, r, y)
	if err != nil {
		return err
	}

	yi := c.yearOf[y]
	capacityTerms := func(expr *problem.LinearExpr, factor float64) {
		for _, yy := range c.idx.Years {
			yyi := c.yearOf[yy]
			if yyi <= yi && yyi > yi-life {
				expr.Add(problem.Key(varNewStorageCapacity, r, s.ID, yy), factor)
			}
		}
	}

	for _, ts := range c.idx.Timeslices {
		expr := problem.NewExpr()
		expr.Add(problem.Key(varStorageLevel, r, s.ID, ts, y), 1)
		capacityTerms(&expr, -1)
		c.addConstraint("StorageCapacity", []string{r, s.ID, ts, y}, expr, problem.LessEqual, residual)

		if minFrac > 0 {
			low := problem.NewExpr()
			low.Add(problem.Key(varStorageLevel, r, s.ID, ts, y), 1)
			capacityTerms(&low, -minFrac)
			c.addConstraint("StorageMinCharge", []string{r, s.ID, ts, y}, low, problem.GreaterEqual, minFrac*residual)
		}
	}
	return nil
}

// storageRates applies the declared charge and discharge rate caps.
func (c *Compiler) storageRates(s *schema.Storage, r, y string) {
	if limit, ok := opt1(s.MaxChargeRate, r); ok {
		for _, ts := range c.idx.Timeslices {
			expr := problem.NewExpr()
			expr.Add(problem.Key(varRateOfStorageCharge, r, s.ID, ts, y), 1)
			c.addConstraint("StorageChargeRate", []string{r, s.ID, ts, y, "charge"}, expr, problem.LessEqual, limit)
		}
	}
	if limit, ok := opt1(s.MaxDischargeRate, r); ok {
		for _, ts := range c.idx.Timeslices {
			expr := problem.NewExpr()
			expr.Add(problem.Key(varRateOfStorageDischarge, r, s.ID, ts, y), 1)
			c.addConstraint("StorageChargeRate", []string{r, s.ID, ts, y, "discharge"}, expr, problem.LessEqual, limit)
		}
	}
}

// storageClosures emits the optional daily and annual net-zero rows.
// The daily row weighs each bracket by its share of the day, closing
// the level over one representative day of each season/day-type group;
// the annual row weighs by year split, closing over the whole year.
func (c *Compiler) storageClosures(s *schema.Storage, r, y string) error {
	if s.BalanceDaily {
		groups := make(map[[2]string][]string)
		var order [][2]string
		for _, ts := range c.idx.Timeslices {
			day := [2]string{c.m.TimeStructure.TimesliceSeason[ts], c.m.TimeStructure.TimesliceDayType[ts]}
			if _, ok := groups[day]; !ok {
				order = append(order, day)
			}
			groups[day] = append(groups[day], ts)
		}
		for _, day := range order {
			expr := problem.NewExpr()
			for _, ts := range groups[day] {
				ds, err := c.daySplit(ts)
				if err != nil {
					return err
				}
				expr.Add(problem.Key(varRateOfStorageCharge, r, s.ID, ts, y), ds)
				expr.Add(problem.Key(varRateOfStorageDischarge, r, s.ID, ts, y), -ds)
			}
			c.addConstraint("StorageBalanceDaily", []string{r, s.ID, day[0], day[1], y}, expr, problem.Equal, 0)
		}
	}

	if s.BalanceAnnual {
		expr := problem.NewExpr()
		for _, ts := range c.idx.Timeslices {
			ys, err := c.yearSplit(ts, y)
			if err != nil {
				return err
			}
			expr.Add(problem.Key(varRateOfStorageCharge, r, s.ID, ts, y), ys)
			expr.Add(problem.Key(varRateOfStorageDischarge, r, s.ID, ts, y), -ys)
		}
		c.addConstraint("StorageBalanceAnnual", []string{r, s.ID, y}, expr, problem.Equal, 0)
	}
	return nil
}
