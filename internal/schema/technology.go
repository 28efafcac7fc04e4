package schema

// Technology converts commodities into other commodities (or into
// storage) through one or more operating modes. Capacity-level
// parameters live on the technology; activity-level parameters live on
// the mode that produces the activity.
type Technology struct {
	Entity

	OperatingLife             RInt
	CapacityActivityUnitRatio R
	CapacityOneTechUnit       RY
	AvailabilityFactor        RY
	CapacityFactor            RYS

	Capex            RY
	OpexFixed        RY
	ResidualCapacity RY

	CapacityGrossMax      RY
	CapacityGrossMin      RY
	CapacityAdditionalMax RY
	CapacityAdditionalMin RY

	CapacityAdditionalMaxGrowthRate R
	CapacityAdditionalMaxFloor      R
	CapacityAdditionalMinGrowthRate R

	ActivityAnnualMax RY
	ActivityAnnualMin RY
	ActivityTotalMax  R
	ActivityTotalMin  R

	IncludeInJointRenewableTarget RYBool
	IncludeInJointReserveMargin   RYBool

	OperatingModes []*OperatingMode

	raw map[string]any
}

// OperatingMode is one way a technology can run: a set of activity
// ratios tying one unit of activity to commodity flows, impacts, and
// storage charge or discharge.
type OperatingMode struct {
	Entity

	OpexVariable RY

	// Ratios are keyed by the referenced entity id first, then region
	// and year.
	InputActivityRatio    RRY
	OutputActivityRatio   RRY
	EmissionActivityRatio RRY
	ToStorage             RRYBool
	FromStorage           RRYBool

	raw map[string]any
}

// ParseTechnology captures raw fields and parses the nested operating
// modes. A technology must declare at least one mode.
func ParseTechnology(id string, body map[string]any) (*Technology, error) {
	vs := &violations{entity: id}

	t := &Technology{Entity: parseEntity(id, body), raw: body}

	order, bodies := entityBodies(body["operating_modes"], vs, "operating_modes")
	if len(order) == 0 {
		vs.addf("operating_modes", "at least one operating mode is required")
	}
	for _, modeID := range order {
		t.OperatingModes = append(t.OperatingModes, &OperatingMode{
			Entity: parseEntity(modeID, bodies[modeID]),
			raw:    bodies[modeID],
		})
	}

	if err := vs.err(); err != nil {
		return nil, err
	}
	return t, nil
}

// Compose broadcasts every field against the model's sets and applies
// the central defaults.
func (t *Technology) Compose(sets Sets) error {
	vs := &violations{entity: t.ID}
	d := DefaultValues

	t.OperatingLife = t.composeInt(vs, sets, "operating_life", d.TechnologyOperatingLife, "region")
	t.CapacityActivityUnitRatio = t.composeR(vs, sets, "capacity_activity_unit_ratio", d.TechnologyCapacityActivityUnitRatio)
	t.CapacityOneTechUnit = t.composeRY(vs, sets, "capacity_one_tech_unit", nil)
	t.AvailabilityFactor = t.composeRY(vs, sets, "availability_factor", d.TechnologyAvailabilityFactor)
	t.CapacityFactor = t.composeRYS(vs, sets, "capacity_factor", d.TechnologyCapacityFactor)

	t.Capex = t.composeRY(vs, sets, "capex", d.TechnologyCapex)
	t.OpexFixed = t.composeRY(vs, sets, "opex_fixed", d.TechnologyOpexFixed)
	t.ResidualCapacity = t.composeRY(vs, sets, "residual_capacity", d.TechnologyResidualCapacity)

	t.CapacityGrossMax = t.composeRY(vs, sets, "capacity_gross_max", nil)
	t.CapacityGrossMin = t.composeRY(vs, sets, "capacity_gross_min", nil)
	t.CapacityAdditionalMax = t.composeRY(vs, sets, "capacity_additional_max", nil)
	t.CapacityAdditionalMin = t.composeRY(vs, sets, "capacity_additional_min", nil)

	t.CapacityAdditionalMaxGrowthRate = t.composeR(vs, sets, "capacity_additional_max_growth_rate", nil)
	t.CapacityAdditionalMaxFloor = t.composeR(vs, sets, "capacity_additional_max_floor", nil)
	t.CapacityAdditionalMinGrowthRate = t.composeR(vs, sets, "capacity_additional_min_growth_rate", nil)

	t.ActivityAnnualMax = t.composeRY(vs, sets, "activity_annual_max", nil)
	t.ActivityAnnualMin = t.composeRY(vs, sets, "activity_annual_min", nil)
	t.ActivityTotalMax = t.composeR(vs, sets, "activity_total_max", nil)
	t.ActivityTotalMin = t.composeR(vs, sets, "activity_total_min", nil)

	if composed, err := compose(optionalField(t.raw, "include_in_joint_renewable_target"), sets, "region", "year"); err != nil {
		vs.mergeField("include_in_joint_renewable_target", err)
	} else {
		t.IncludeInJointRenewableTarget = boolMap2(composed, vs, "include_in_joint_renewable_target")
	}
	if composed, err := compose(optionalField(t.raw, "include_in_joint_reserve_margin"), sets, "region", "year"); err != nil {
		vs.mergeField("include_in_joint_reserve_margin", err)
	} else {
		t.IncludeInJointReserveMargin = boolMap2(composed, vs, "include_in_joint_reserve_margin")
	}

	for _, mode := range t.OperatingModes {
		if err := mode.compose(sets); err != nil {
			vs.merge(err)
		}
	}

	t.validateBounds(vs)
	return vs.err()
}

func (m *OperatingMode) compose(sets Sets) error {
	vs := &violations{entity: m.ID}

	if composed, err := compose(defaultFor(m.raw, "opex_variable", DefaultValues.TechnologyOpexVariable), sets, "region", "year"); err != nil {
		vs.mergeField("opex_variable", err)
	} else {
		m.OpexVariable = floatMap2(composed, vs, "opex_variable")
	}

	m.InputActivityRatio = m.composeRatio(vs, sets, "input_activity_ratio", "commodity")
	m.OutputActivityRatio = m.composeRatio(vs, sets, "output_activity_ratio", "commodity")
	m.EmissionActivityRatio = m.composeRatio(vs, sets, "emission_activity_ratio", "impact")

	if composed, err := compose(optionalField(m.raw, "to_storage"), sets, "storage", "region", "year"); err != nil {
		vs.mergeField("to_storage", err)
	} else {
		m.ToStorage = boolMap3(composed, vs, "to_storage")
	}
	if composed, err := compose(optionalField(m.raw, "from_storage"), sets, "storage", "region", "year"); err != nil {
		vs.mergeField("from_storage", err)
	} else {
		m.FromStorage = boolMap3(composed, vs, "from_storage")
	}

	return vs.err()
}

// composeRatio expands a ratio keyed by a referenced entity id. The
// outer dimension carries no wildcard expansion: a ratio names exactly
// the entities it touches, and unknown ids are surfaced later as
// referential-integrity failures rather than silently dropped.
func (m *OperatingMode) composeRatio(vs *violations, sets Sets, field, outerDim string) RRY {
	raw := optionalField(m.raw, field)
	if raw == nil {
		return nil
	}
	outer, ok := raw.(map[string]any)
	if !ok {
		vs.addf(field, "expected a mapping keyed by %s id, got %T", outerDim, raw)
		return nil
	}
	out := make(RRY, len(outer))
	for id, inner := range outer {
		composed, err := compose(inner, sets, "region", "year")
		if err != nil {
			vs.mergeField(field+"."+id, err)
			continue
		}
		out[id] = floatMap2(composed, vs, field+"."+id)
	}
	return out
}

func (t *Technology) composeR(vs *violations, sets Sets, field string, def any) R {
	raw := optionalField(t.raw, field)
	if raw == nil && def != nil {
		raw = def
	}
	composed, err := compose(raw, sets, "region")
	if err != nil {
		vs.mergeField(field, err)
		return nil
	}
	return floatMap1(composed, vs, field)
}

func (t *Technology) composeRY(vs *violations, sets Sets, field string, def any) RY {
	raw := optionalField(t.raw, field)
	if raw == nil && def != nil {
		raw = def
	}
	composed, err := compose(raw, sets, "region", "year")
	if err != nil {
		vs.mergeField(field, err)
		return nil
	}
	return floatMap2(composed, vs, field)
}

func (t *Technology) composeRYS(vs *violations, sets Sets, field string, def any) RYS {
	raw := optionalField(t.raw, field)
	if raw == nil && def != nil {
		raw = def
	}
	composed, err := compose(raw, sets, "region", "year", "timeslice")
	if err != nil {
		vs.mergeField(field, err)
		return nil
	}
	return floatMap3(composed, vs, field)
}

func (t *Technology) composeInt(vs *violations, sets Sets, field string, def any, dims ...string) RInt {
	raw := optionalField(t.raw, field)
	if raw == nil && def != nil {
		raw = def
	}
	composed, err := compose(raw, sets, dims...)
	if err != nil {
		vs.mergeField(field, err)
		return nil
	}
	return intMap1(composed, vs, field)
}

// validateBounds rejects min/max pairs that can never both hold.
func (t *Technology) validateBounds(vs *violations) {
	checkPair := func(field string, min, max RY) {
		for region, years := range min {
			for year, lo := range years {
				if hi, ok := lookup2(max, region, year); ok && lo > hi {
					vs.addf(field, "minimum %g exceeds maximum %g at %s/%s", lo, hi, region, year)
				}
			}
		}
	}
	checkPair("capacity_gross_min", t.CapacityGrossMin, t.CapacityGrossMax)
	checkPair("capacity_additional_min", t.CapacityAdditionalMin, t.CapacityAdditionalMax)
	checkPair("activity_annual_min", t.ActivityAnnualMin, t.ActivityAnnualMax)

	for region, lo := range t.ActivityTotalMin {
		if hi, ok := t.ActivityTotalMax[region]; ok && lo > hi {
			vs.addf("activity_total_min", "minimum %g exceeds maximum %g at %s", lo, hi, region)
		}
	}

	for region, rate := range t.CapacityAdditionalMaxGrowthRate {
		if rate < 0 {
			vs.addf("capacity_additional_max_growth_rate", "rate %g at %s is negative", rate, region)
		}
	}

	if t.CapacityOneTechUnit != nil && t.CapacityActivityUnitRatio == nil {
		vs.addf("capacity_one_tech_unit", "unit-commitment sizing requires capacity_activity_unit_ratio")
	}
}
