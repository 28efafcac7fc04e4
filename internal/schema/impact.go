package schema

// Impact is an externality tracked per unit of activity, typically an
// emission. Limits are declared annually and over the whole horizon;
// exogenous quantities are pre-committed amounts counted against those
// limits, so an exogenous amount exceeding its own limit is a
// contradiction caught here rather than as an infeasible problem.
type Impact struct {
	Entity

	ConstraintAnnual RY
	ConstraintTotal  R
	ExogenousAnnual  RY
	ExogenousTotal   R
	Penalty          RY

	rawConstraintAnnual any
	rawConstraintTotal  any
	rawExogenousAnnual  any
	rawExogenousTotal   any
	rawPenalty          any
}

// ParseImpact captures the raw field data.
func ParseImpact(id string, body map[string]any) (*Impact, error) {
	im := &Impact{Entity: parseEntity(id, body)}
	im.rawConstraintAnnual = optionalField(body, "constraint_annual")
	im.rawConstraintTotal = optionalField(body, "constraint_total")
	im.rawExogenousAnnual = optionalField(body, "exogenous_annual")
	im.rawExogenousTotal = optionalField(body, "exogenous_total")
	im.rawPenalty = optionalField(body, "penalty")
	return im, nil
}

// Compose broadcasts the impact's fields and checks the exogenous
// amounts against their limits.
func (im *Impact) Compose(sets Sets) error {
	vs := &violations{entity: im.ID}

	if composed, err := compose(im.rawConstraintAnnual, sets, "region", "year"); err != nil {
		vs.mergeField("constraint_annual", err)
	} else {
		im.ConstraintAnnual = floatMap2(composed, vs, "constraint_annual")
	}
	if composed, err := compose(im.rawConstraintTotal, sets, "region"); err != nil {
		vs.mergeField("constraint_total", err)
	} else {
		im.ConstraintTotal = floatMap1(composed, vs, "constraint_total")
	}
	if composed, err := compose(im.rawExogenousAnnual, sets, "region", "year"); err != nil {
		vs.mergeField("exogenous_annual", err)
	} else {
		im.ExogenousAnnual = floatMap2(composed, vs, "exogenous_annual")
	}
	if composed, err := compose(im.rawExogenousTotal, sets, "region"); err != nil {
		vs.mergeField("exogenous_total", err)
	} else {
		im.ExogenousTotal = floatMap1(composed, vs, "exogenous_total")
	}
	if composed, err := compose(im.rawPenalty, sets, "region", "year"); err != nil {
		vs.mergeField("penalty", err)
	} else {
		im.Penalty = floatMap2(composed, vs, "penalty")
	}

	im.validateExogenous(vs)
	return vs.err()
}

func (im *Impact) validateExogenous(vs *violations) {
	for region, years := range im.ExogenousAnnual {
		for year, exo := range years {
			limit, ok := lookup2(im.ConstraintAnnual, region, year)
			if ok && exo > limit {
				vs.addf("exogenous_annual",
					"exogenous amount %g at %s/%s exceeds constraint_annual %g", exo, region, year, limit)
			}
		}
	}
	for region, exo := range im.ExogenousTotal {
		if limit, ok := im.ConstraintTotal[region]; ok && exo > limit {
			vs.addf("exogenous_total",
				"exogenous amount %g at %s exceeds constraint_total %g", exo, region, limit)
		}
	}
}

func lookup2(m RY, a, b string) (float64, bool) {
	inner, ok := m[a]
	if !ok {
		return 0, false
	}
	v, ok := inner[b]
	return v, ok
}
