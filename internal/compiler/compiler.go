// Package compiler lowers a composed, integrity-checked model into a
// symbolic linear program: one variable set per modeled quantity, one
// constraint row per applicable index tuple, and a discounted-cost
// objective. Compilation is a pure function of the model; identical
// inputs produce identical problems.
package compiler

import (
	"sort"
	"strconv"

	"github.com/vk/voltgrid/internal/problem"
	"github.com/vk/voltgrid/internal/schema"
	"github.com/vk/voltgrid/internal/sets"
)

// Big-M for the growth-rate-or-floor disjunction.
const growthBigM = 1e9

// Variable set names used throughout assembly.
const (
	varNewCapacity            = "NewCapacity"
	varGrossCapacity          = "GrossCapacity"
	varNumberOfUnits          = "NumberOfUnits"
	varRateOfActivity         = "RateOfActivity"
	varAnnualEmission         = "AnnualEmission"
	varNewStorageCapacity     = "NewStorageCapacity"
	varStorageLevel           = "StorageLevel"
	varRateOfStorageCharge    = "RateOfStorageCharge"
	varRateOfStorageDischarge = "RateOfStorageDischarge"
	varTradeFlow              = "TradeFlow"
	varNewTradeCapacity       = "NewTradeCapacity"
	varGrowthRateFloorToggle  = "GrowthRateFloorToggle"
	varTotalDiscountedCost    = "TotalDiscountedCost"
)

// routePair is one directed trade link active in at least one year.
type routePair struct {
	trade  *schema.Trade
	origin string
	dest   string
}

// Compiler holds the assembly state for one compilation.
type Compiler struct {
	m   *schema.Model
	idx *sets.Index
	p   *problem.Problem

	firstYear int
	lastYear  int
	yearOf    map[string]int

	routes []routePair
}

// Compile lowers the model into a problem.
func Compile(m *schema.Model, idx *sets.Index) (*problem.Problem, error) {
	c := &Compiler{
		m:   m,
		idx: idx,
		p: &problem.Problem{
			Name:      m.ID,
			Objective: problem.NewExpr(),
		},
		yearOf: make(map[string]int, len(idx.Years)),
	}

	for _, y := range idx.Years {
		yi, err := strconv.Atoi(y)
		if err != nil {
			return nil, &DimensionMismatchError{Parameter: "years", Coordinate: []string{y}}
		}
		c.yearOf[y] = yi
	}
	c.firstYear = c.yearOf[idx.Years[0]]
	c.lastYear = c.yearOf[idx.Years[len(idx.Years)-1]]

	c.collectRoutes()

	c.declareVariables()

	steps := []func() error{
		c.capacityBalance,
		c.capacityAdequacy,
		c.capacityBounds,
		c.capacityGrowth,
		c.unitCommitment,
		c.activityBounds,
		c.demandBalance,
		c.tradeConstraints,
		c.emissionConstraints,
		c.reserveMargin,
		c.renewableTargets,
		c.storageConstraints,
		c.costAccounting,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	for _, r := range c.idx.Regions {
		for _, y := range c.idx.Years {
			c.p.Objective.Add(problem.Key(varTotalDiscountedCost, r, y), 1)
		}
	}
	return c.p, nil
}

// collectRoutes lists every directed link active in any year, in
// deterministic order.
func (c *Compiler) collectRoutes() {
	for _, tr := range c.m.Trades {
		origins := make([]string, 0, len(tr.TradeRoutes))
		for origin := range tr.TradeRoutes {
			origins = append(origins, origin)
		}
		sort.Strings(origins)
		for _, origin := range origins {
			dests := make([]string, 0, len(tr.TradeRoutes[origin]))
			for dest := range tr.TradeRoutes[origin] {
				dests = append(dests, dest)
			}
			sort.Strings(dests)
			for _, dest := range dests {
				active := false
				for _, on := range tr.TradeRoutes[origin][dest] {
					if on {
						active = true
						break
					}
				}
				if active {
					c.routes = append(c.routes, routePair{trade: tr, origin: origin, dest: dest})
				}
			}
		}
	}
}

func (c *Compiler) declareVariables() {
	ry := c.keysOver(c.idx.Regions, c.idx.Years)
	rty := c.keysOver(c.idx.Regions, c.idx.Technologies, c.idx.Years)

	c.addVarSet(varNewCapacity, []string{"region", "technology", "year"}, problem.Continuous, false, rty)
	c.addVarSet(varGrossCapacity, []string{"region", "technology", "year"}, problem.Continuous, false, rty)

	var unitKeys []string
	for _, t := range c.m.Technologies {
		if t.CapacityOneTechUnit == nil {
			continue
		}
		for _, r := range c.idx.Regions {
			for _, y := range c.idx.Years {
				unitKeys = append(unitKeys, problem.Coord(r, t.ID, y))
			}
		}
	}
	if len(unitKeys) > 0 {
		c.addVarSet(varNumberOfUnits, []string{"region", "technology", "year"}, problem.Integer, false, unitKeys)
	}

	var activityKeys []string
	for _, r := range c.idx.Regions {
		for _, ts := range c.idx.Timeslices {
			for _, t := range c.m.Technologies {
				for _, mode := range t.OperatingModes {
					for _, y := range c.idx.Years {
						activityKeys = append(activityKeys, problem.Coord(r, ts, t.ID, mode.ID, y))
					}
				}
			}
		}
	}
	c.addVarSet(varRateOfActivity, []string{"region", "timeslice", "technology", "mode", "year"}, problem.Continuous, false, activityKeys)

	if len(c.idx.Impacts) > 0 {
		c.addVarSet(varAnnualEmission, []string{"region", "impact", "year"}, problem.Continuous, true,
			c.keysOver(c.idx.Regions, c.idx.Impacts, c.idx.Years))
	}

	if len(c.idx.Storages) > 0 {
		c.addVarSet(varNewStorageCapacity, []string{"region", "storage", "year"}, problem.Continuous, false,
			c.keysOver(c.idx.Regions, c.idx.Storages, c.idx.Years))
		storageTS := c.keysOver(c.idx.Regions, c.idx.Storages, c.idx.Timeslices, c.idx.Years)
		c.addVarSet(varStorageLevel, []string{"region", "storage", "timeslice", "year"}, problem.Continuous, false, storageTS)
		c.addVarSet(varRateOfStorageCharge, []string{"region", "storage", "timeslice", "year"}, problem.Continuous, false, storageTS)
		c.addVarSet(varRateOfStorageDischarge, []string{"region", "storage", "timeslice", "year"}, problem.Continuous, false, storageTS)
	}

	if len(c.routes) > 0 {
		var flowKeys, tradeCapKeys []string
		for _, rp := range c.routes {
			for _, y := range c.idx.Years {
				tradeCapKeys = append(tradeCapKeys, problem.Coord(rp.trade.ID, rp.origin, rp.dest, y))
				for _, ts := range c.idx.Timeslices {
					flowKeys = append(flowKeys, problem.Coord(rp.trade.ID, rp.origin, rp.dest, ts, y))
				}
			}
		}
		c.addVarSet(varTradeFlow, []string{"trade", "origin", "destination", "timeslice", "year"}, problem.Continuous, false, flowKeys)
		c.addVarSet(varNewTradeCapacity, []string{"trade", "origin", "destination", "year"}, problem.Continuous, false, tradeCapKeys)
	}

	var toggleKeys []string
	for _, t := range c.m.Technologies {
		for _, r := range c.idx.Regions {
			_, hasRate := opt1(t.CapacityAdditionalMaxGrowthRate, r)
			_, hasFloor := opt1(t.CapacityAdditionalMaxFloor, r)
			if !hasRate || !hasFloor {
				continue
			}
			for _, y := range c.idx.Years {
				toggleKeys = append(toggleKeys, problem.Coord(r, t.ID, y))
			}
		}
	}
	if len(toggleKeys) > 0 {
		c.addVarSet(varGrowthRateFloorToggle, []string{"region", "technology", "year"}, problem.Binary, false, toggleKeys)
	}

	c.addVarSet(varTotalDiscountedCost, []string{"region", "year"}, problem.Continuous, true, ry)
}

func (c *Compiler) addVarSet(name string, dims []string, typ problem.VarType, free bool, keys []string) {
	c.p.Variables = append(c.p.Variables, problem.VariableSet{
		Name: name,
		Dims: dims,
		Type: typ,
		Free: free,
		Keys: keys,
	})
}

// keysOver builds the full cross-product of coordinate values.
func (c *Compiler) keysOver(dims ...[]string) []string {
	keys := []string{""}
	for _, dim := range dims {
		next := make([]string, 0, len(keys)*len(dim))
		for _, prefix := range keys {
			for _, v := range dim {
				if prefix == "" {
					next = append(next, v)
				} else {
					next = append(next, prefix+"|"+v)
				}
			}
		}
		keys = next
	}
	return keys
}

func (c *Compiler) addConstraint(family string, coords []string, expr problem.LinearExpr, rel problem.Relation, rhs float64) {
	c.p.Constraints = append(c.p.Constraints, problem.Constraint{
		Name:     problem.ConstraintName(family, coords...),
		Family:   family,
		Expr:     expr,
		Relation: rel,
		RHS:      rhs,
	})
}

// yearSplit is the fraction of year y the timeslice covers.
func (c *Compiler) yearSplit(ts, y string) (float64, error) {
	if row, ok := c.m.TimeStructure.YearSplit[ts]; ok {
		if v, ok := row[y]; ok {
			return v, nil
		}
	}
	return 0, &DimensionMismatchError{Parameter: "year_split", Coordinate: []string{ts, y}}
}

// daySplit is the fraction of a day covered by the timeslice's daily
// time bracket.
func (c *Compiler) daySplit(ts string) (float64, error) {
	bracket := c.m.TimeStructure.TimesliceBracket[ts]
	if v, ok := c.m.TimeStructure.DaySplit[bracket]; ok {
		return v, nil
	}
	return 0, &DimensionMismatchError{Parameter: "day_split", Coordinate: []string{bracket}}
}

// annualActivity is Σ over timeslices and modes of year-split-weighted
// activity rate for one technology.
func (c *Compiler) annualActivity(r string, t *schema.Technology, y string) (problem.LinearExpr, error) {
	expr := problem.NewExpr()
	for _, ts := range c.idx.Timeslices {
		ys, err := c.yearSplit(ts, y)
		if err != nil {
			return expr, err
		}
		for _, mode := range t.OperatingModes {
			expr.Add(problem.Key(varRateOfActivity, r, ts, t.ID, mode.ID, y), ys)
		}
	}
	return expr, nil
}

// production accumulates output of one commodity in one timeslice,
// weighted by the year split, onto expr with the given sign.
func (c *Compiler) production(expr *problem.LinearExpr, r, commodity, ts, y string, sign float64) error {
	ys, err := c.yearSplit(ts, y)
	if err != nil {
		return err
	}
	for _, t := range c.m.Technologies {
		for _, mode := range t.OperatingModes {
			ratio, ok := opt2(mode.OutputActivityRatio[commodity], r, y)
			if !ok || ratio == 0 {
				continue
			}
			expr.Add(problem.Key(varRateOfActivity, r, ts, t.ID, mode.ID, y), sign*ys*ratio)
		}
	}
	return nil
}

// consumption is the input-side analogue of production.
func (c *Compiler) consumption(expr *problem.LinearExpr, r, commodity, ts, y string, sign float64) error {
	ys, err := c.yearSplit(ts, y)
	if err != nil {
		return err
	}
	for _, t := range c.m.Technologies {
		for _, mode := range t.OperatingModes {
			ratio, ok := opt2(mode.InputActivityRatio[commodity], r, y)
			if !ok || ratio == 0 {
				continue
			}
			expr.Add(problem.Key(varRateOfActivity, r, ts, t.ID, mode.ID, y), sign*ys*ratio)
		}
	}
	return nil
}
