package schema

import "math"

// Commodity is an energy carrier or service flowing between
// technologies. Demand is either annual (spread over timeslices by year
// split) or profiled (an explicit per-timeslice shape that must sum to
// one for every region-year that declares a demand).
type Commodity struct {
	Entity

	DemandAnnual  RY
	DemandProfile RYS

	// IncludeInJointRenewableTarget marks production of this commodity
	// as counting toward renewable targets; IncludeInJointReserveMargin
	// adds its supply to the reserve-margin balance.
	IncludeInJointRenewableTarget RYBool
	IncludeInJointReserveMargin   RYBool

	rawAnnual  any
	rawProfile any
	rawRenew   any
	rawReserve any
}

// ParseCommodity captures the raw field data; composition happens once
// the model's index sets exist.
func ParseCommodity(id string, body map[string]any) (*Commodity, error) {
	c := &Commodity{Entity: parseEntity(id, body)}
	c.rawAnnual = optionalField(body, "demand_annual")
	c.rawProfile = optionalField(body, "demand_profile")
	c.rawRenew = optionalField(body, "include_in_joint_renewable_target")
	c.rawReserve = optionalField(body, "include_in_joint_reserve_margin")
	return c, nil
}

// Compose broadcasts the commodity's fields against the model's sets
// and validates the demand-profile invariants.
func (c *Commodity) Compose(sets Sets) error {
	vs := &violations{entity: c.ID}

	if composed, err := compose(c.rawAnnual, sets, "region", "year"); err != nil {
		vs.mergeField("demand_annual", err)
	} else {
		c.DemandAnnual = floatMap2(composed, vs, "demand_annual")
	}
	if composed, err := compose(c.rawProfile, sets, "region", "year", "timeslice"); err != nil {
		vs.mergeField("demand_profile", err)
	} else {
		c.DemandProfile = floatMap3(composed, vs, "demand_profile")
	}
	if composed, err := compose(c.rawRenew, sets, "region", "year"); err != nil {
		vs.mergeField("include_in_joint_renewable_target", err)
	} else {
		c.IncludeInJointRenewableTarget = boolMap2(composed, vs, "include_in_joint_renewable_target")
	}
	if composed, err := compose(c.rawReserve, sets, "region", "year"); err != nil {
		vs.mergeField("include_in_joint_reserve_margin", err)
	} else {
		c.IncludeInJointReserveMargin = boolMap2(composed, vs, "include_in_joint_reserve_margin")
	}

	c.validateDemand(vs)
	return vs.err()
}

// validateDemand enforces that a profile only shapes a declared annual
// demand and that each declared profile sums to one per region-year.
func (c *Commodity) validateDemand(vs *violations) {
	for region, years := range c.DemandProfile {
		for year, shape := range years {
			if c.DemandAnnual == nil || c.DemandAnnual[region] == nil {
				vs.addf("demand_profile", "profile at %s/%s has no matching demand_annual", region, year)
				continue
			}
			if _, ok := c.DemandAnnual[region][year]; !ok {
				vs.addf("demand_profile", "profile at %s/%s has no matching demand_annual", region, year)
				continue
			}
			total := 0.0
			for _, f := range shape {
				total += f
			}
			if math.Abs(total-1.0) > SumOneTolerance {
				vs.addf("demand_profile", "fractions at %s/%s sum to %g, expected 1.0", region, year, total)
			}
		}
	}
}
