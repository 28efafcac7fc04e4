package compiler

import (
	"github.com/vk/voltgrid/internal/problem"
	"github.com/vk/voltgrid/internal/schema"
)

// demandTimeslice is the demand amount in one timeslice: the annual
// demand shaped by the profile when one is declared, else spread by the
// year split.
func (c *Compiler) demandTimeslice(com *schema.Commodity, r, y, ts string) (float64, error) {
	annual, ok := opt2(com.DemandAnnual, r, y)
	if !ok {
		return 0, nil
	}
	if shape, ok := opt3(com.DemandProfile, r, y, ts); ok {
		return annual * shape, nil
	}
	ys, err := c.yearSplit(ts, y)
	if err != nil {
		return 0, err
	}
	return annual * ys, nil
}

// demandBalance requires supply (production less consumption, plus net
// imports after losses) to cover demand in every timeslice, and
// annually as a whole.
func (c *Compiler) demandBalance() error {
	for _, com := range c.m.Commodities {
		for _, r := range c.idx.Regions {
			for _, y := range c.idx.Years {
				annual := problem.NewExpr()
				annualDemand := 0.0

				for _, ts := range c.idx.Timeslices {
					expr := problem.NewExpr()
					if err := c.production(&expr, r, com.ID, ts, y, 1); err != nil {
						return err
					}
					if err := c.consumption(&expr, r, com.ID, ts, y, -1); err != nil {
						return err
					}
					if err := c.tradeSupply(&expr, com.ID, r, ts, y); err != nil {
						return err
					}

					demand, err := c.demandTimeslice(com, r, y, ts)
					if err != nil {
						return err
					}
					annualDemand += demand
					annual.AddExpr(expr, 1)
					c.addConstraint("DemandBalanceTimeslice", []string{r, com.ID, ts, y}, expr, problem.GreaterEqual, demand)
				}

				c.addConstraint("DemandBalanceAnnual", []string{r, com.ID, y}, annual, problem.GreaterEqual, annualDemand)
			}
		}
	}
	return nil
}

// tradeSupply adds the net trade contribution for one commodity at one
// region: imports arrive scaled down by the link loss, exports leave in
// full.
func (c *Compiler) tradeSupply(expr *problem.LinearExpr, commodity, r, ts, y string) error {
	for _, rp := range c.routes {
		if rp.trade.Commodity != commodity {
			continue
		}
		if rp.origin == r && flag3(rp.trade.TradeRoutes, rp.origin, rp.dest, y) {
			expr.Add(problem.Key(varTradeFlow, rp.trade.ID, rp.origin, rp.dest, ts, y), -1)
		}
		if rp.dest == r && flag3(rp.trade.TradeRoutes, rp.origin, rp.dest, y) {
			loss, err := get3("trade_loss", rp.trade.TradeLoss, rp.origin, rp.dest, y)
			if err != nil {
				return err
			}
			expr.Add(problem.Key(varTradeFlow, rp.trade.ID, rp.origin, rp.dest, ts, y), 1-loss)
		}
	}
	return nil
}

// tradeConstraints pins flows on inactive route-years to zero and caps
// flows by the link's capacity, residual plus additions within life.
func (c *Compiler) tradeConstraints() error {
	for _, rp := range c.routes {
		tr := rp.trade
		car, err := get2("capacity_activity_unit_ratio", tr.CapacityActivityUnitRatio, rp.origin, rp.dest)
		if err != nil {
			return err
		}

		for _, y := range c.idx.Years {
			if !flag3(tr.TradeRoutes, rp.origin, rp.dest, y) {
				// TradeBalance: no flow outside the route's active years.
				for _, ts := range c.idx.Timeslices {
					expr := problem.NewExpr()
					expr.Add(problem.Key(varTradeFlow, tr.ID, rp.origin, rp.dest, ts, y), 1)
					c.addConstraint("TradeBalance", []string{tr.ID, rp.origin, rp.dest, ts, y}, expr, problem.Equal, 0)
				}
				continue
			}

			residual, err := get3("residual_capacity", tr.ResidualCapacity, rp.origin, rp.dest, y)
			if err != nil {
				return err
			}
			life := tradeLife(tr, rp.origin, rp.dest, y)
			yi := c.yearOf[y]

			for _, ts := range c.idx.Timeslices {
				ys, err := c.yearSplit(ts, y)
				if err != nil {
					return err
				}
				expr := problem.NewExpr()
				expr.Add(problem.Key(varTradeFlow, tr.ID, rp.origin, rp.dest, ts, y), 1)
				for _, yy := range c.idx.Years {
					yyi := c.yearOf[yy]
					if yyi <= yi && yyi > yi-life {
						expr.Add(problem.Key(varNewTradeCapacity, tr.ID, rp.origin, rp.dest, yy), -ys*car)
					}
				}
				c.addConstraint("TradeCapacity", []string{tr.ID, rp.origin, rp.dest, ts, y}, expr, problem.LessEqual, ys*car*residual)
			}

			if limit, ok := opt3(tr.CapacityAdditionalMax, rp.origin, rp.dest, y); ok {
				expr := problem.NewExpr()
				expr.Add(problem.Key(varNewTradeCapacity, tr.ID, rp.origin, rp.dest, y), 1)
				c.addConstraint("TradeCapacity", []string{tr.ID, rp.origin, rp.dest, y, "additional_max"}, expr, problem.LessEqual, limit)
			}
		}
	}
	return nil
}

func tradeLife(tr *schema.Trade, origin, dest, year string) int {
	if mid, ok := tr.OperatingLife[origin]; ok {
		if inner, ok := mid[dest]; ok {
			if v, ok := inner[year]; ok {
				return v
			}
		}
	}
	return schema.DefaultValues.TradeOperatingLife
}
