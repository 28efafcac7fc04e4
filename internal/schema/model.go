package schema

// Model is the root entity: the time structure, every declared entity
// collection, and the model-level financial and policy parameters.
type Model struct {
	Entity

	TimeStructure *TimeStructure
	Regions       []*Region
	RegionGroups  []*RegionGroup
	Commodities   []*Commodity
	Impacts       []*Impact
	Technologies  []*Technology
	Storages      []*Storage
	Trades        []*Trade

	DepreciationMethod RString
	DiscountRate       R

	// CostOfCapital is keyed region then technology; unset coordinates
	// fall back to the region's discount rate. CostOfCapitalStorage is
	// the storage analogue.
	CostOfCapital        RT
	CostOfCapitalStorage RO

	ReserveMargin             RY
	RenewableProductionTarget RY
	// RegionalRenewableProductionTarget is keyed region group then year.
	RegionalRenewableProductionTarget GY

	Sets Sets

	raw map[string]any
}

// ParseModel builds the full model from a resolved configuration tree:
// per-entity parse, set assembly, composition, then the cross-entity
// composition checks. Violations accumulate across all of it.
func ParseModel(body map[string]any) (*Model, error) {
	vs := &violations{entity: "model"}

	id := "model"
	if v, ok := body["id"].(string); ok && v != "" {
		id = v
	}
	m := &Model{Entity: parseEntity(id, body), raw: body}
	vs.entity = id

	m.parseCollections(vs)

	if m.TimeStructure != nil {
		m.assembleSets()
		m.composeAll(vs)
		m.mixinCostOfCapital()
		m.validateComposition(vs)
	}

	if err := vs.err(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) parseCollections(vs *violations) {
	td, ok := m.raw["time_definition"].(map[string]any)
	if !ok {
		vs.addf("time_definition", "a time definition is required")
	} else {
		tdID := "time_definition"
		if v, ok := td["id"].(string); ok && v != "" {
			tdID = v
		}
		ts, err := ParseTimeStructure(tdID, td)
		if err != nil {
			vs.merge(err)
		} else {
			m.TimeStructure = ts
		}
	}

	parseEach(m, vs, "regions", true, ParseRegion, func(v *Region) { m.Regions = append(m.Regions, v) })
	parseEach(m, vs, "region_groups", false, ParseRegionGroup, func(v *RegionGroup) { m.RegionGroups = append(m.RegionGroups, v) })
	parseEach(m, vs, "commodities", true, ParseCommodity, func(v *Commodity) { m.Commodities = append(m.Commodities, v) })
	parseEach(m, vs, "impacts", true, ParseImpact, func(v *Impact) { m.Impacts = append(m.Impacts, v) })
	parseEach(m, vs, "technologies", true, ParseTechnology, func(v *Technology) { m.Technologies = append(m.Technologies, v) })
	parseEach(m, vs, "storage", false, ParseStorage, func(v *Storage) { m.Storages = append(m.Storages, v) })
	parseEach(m, vs, "trade", false, ParseTrade, func(v *Trade) { m.Trades = append(m.Trades, v) })
}

func parseEach[T any](m *Model, vs *violations, field string, required bool,
	parse func(string, map[string]any) (*T, error), add func(*T)) {
	order, bodies := entityBodies(m.raw[field], vs, field)
	if required && len(order) == 0 {
		vs.addf(field, "at least one entry is required")
	}
	for _, id := range order {
		entity, err := parse(id, bodies[id])
		if err != nil {
			vs.merge(err)
			continue
		}
		add(entity)
	}
}

func (m *Model) assembleSets() {
	s := Sets{
		Years:      m.TimeStructure.YearKeys(),
		Timeslices: m.TimeStructure.Timeslices,
	}
	for _, r := range m.Regions {
		s.Regions = append(s.Regions, r.ID)
	}
	for _, g := range m.RegionGroups {
		s.RegionGroups = append(s.RegionGroups, g.ID)
	}
	for _, c := range m.Commodities {
		s.Commodities = append(s.Commodities, c.ID)
	}
	for _, im := range m.Impacts {
		s.Impacts = append(s.Impacts, im.ID)
	}
	for _, t := range m.Technologies {
		s.Technologies = append(s.Technologies, t.ID)
	}
	for _, st := range m.Storages {
		s.Storages = append(s.Storages, st.ID)
	}
	m.Sets = s
}

func (m *Model) composeAll(vs *violations) {
	for _, g := range m.RegionGroups {
		vs.merge(g.Compose(m.Sets))
	}
	for _, c := range m.Commodities {
		vs.merge(c.Compose(m.Sets))
	}
	for _, im := range m.Impacts {
		vs.merge(im.Compose(m.Sets))
	}
	for _, t := range m.Technologies {
		vs.merge(t.Compose(m.Sets))
	}
	for _, st := range m.Storages {
		vs.merge(st.Compose(m.Sets))
	}
	for _, tr := range m.Trades {
		vs.merge(tr.Compose(m.Sets))
	}

	m.composeFinancials(vs)
}

func (m *Model) composeFinancials(vs *violations) {
	d := DefaultValues

	if composed, err := compose(defaultFor(m.raw, "depreciation_method", d.DepreciationMethod), m.Sets, "region"); err != nil {
		vs.mergeField("depreciation_method", err)
	} else {
		m.DepreciationMethod = stringMap1(composed, vs, "depreciation_method")
	}
	for region, method := range m.DepreciationMethod {
		if method != DepreciationSinkingFund && method != DepreciationStraightLine {
			vs.addf("depreciation_method", "unknown method %q at %s", method, region)
		}
	}

	if composed, err := compose(defaultFor(m.raw, "discount_rate", d.DiscountRate), m.Sets, "region"); err != nil {
		vs.mergeField("discount_rate", err)
	} else {
		m.DiscountRate = floatMap1(composed, vs, "discount_rate")
	}
	for region, rate := range m.DiscountRate {
		if rate < 0 || rate >= 1 {
			vs.addf("discount_rate", "rate %g at %s is outside [0, 1)", rate, region)
		}
	}

	if composed, err := compose(optionalField(m.raw, "cost_of_capital"), m.Sets, "region", "technology"); err != nil {
		vs.mergeField("cost_of_capital", err)
	} else {
		m.CostOfCapital = floatMap2(composed, vs, "cost_of_capital")
	}
	if composed, err := compose(optionalField(m.raw, "cost_of_capital_storage"), m.Sets, "region", "storage"); err != nil {
		vs.mergeField("cost_of_capital_storage", err)
	} else {
		m.CostOfCapitalStorage = floatMap2(composed, vs, "cost_of_capital_storage")
	}

	if composed, err := compose(defaultFor(m.raw, "reserve_margin", d.ReserveMargin), m.Sets, "region", "year"); err != nil {
		vs.mergeField("reserve_margin", err)
	} else {
		m.ReserveMargin = floatMap2(composed, vs, "reserve_margin")
	}
	if composed, err := compose(optionalField(m.raw, "renewable_production_target"), m.Sets, "region", "year"); err != nil {
		vs.mergeField("renewable_production_target", err)
	} else {
		m.RenewableProductionTarget = floatMap2(composed, vs, "renewable_production_target")
	}
	if composed, err := compose(optionalField(m.raw, "regional_renewable_production_target"), m.Sets, "region_group", "year"); err != nil {
		vs.mergeField("regional_renewable_production_target", err)
	} else {
		m.RegionalRenewableProductionTarget = floatMap2(composed, vs, "regional_renewable_production_target")
	}
}

// mixinCostOfCapital fills the unset region/technology and
// region/storage coordinates with the region's discount rate, so
// capital recovery always has a rate to work with.
func (m *Model) mixinCostOfCapital() {
	if m.CostOfCapital == nil {
		m.CostOfCapital = make(RT, len(m.Sets.Regions))
	}
	for _, region := range m.Sets.Regions {
		if m.CostOfCapital[region] == nil {
			m.CostOfCapital[region] = make(map[string]float64, len(m.Sets.Technologies))
		}
		for _, tech := range m.Sets.Technologies {
			if _, ok := m.CostOfCapital[region][tech]; !ok {
				m.CostOfCapital[region][tech] = m.DiscountRate[region]
			}
		}
	}

	if len(m.Sets.Storages) == 0 {
		return
	}
	if m.CostOfCapitalStorage == nil {
		m.CostOfCapitalStorage = make(RO, len(m.Sets.Regions))
	}
	for _, region := range m.Sets.Regions {
		if m.CostOfCapitalStorage[region] == nil {
			m.CostOfCapitalStorage[region] = make(map[string]float64, len(m.Sets.Storages))
		}
		for _, storage := range m.Sets.Storages {
			if _, ok := m.CostOfCapitalStorage[region][storage]; !ok {
				m.CostOfCapitalStorage[region][storage] = m.DiscountRate[region]
			}
		}
	}
}

// validateComposition runs the cross-entity checks: every commodity is
// produced somewhere, every impact is emitted by at least one mode, and
// every storage is both charged and discharged.
func (m *Model) validateComposition(vs *violations) {
	produced := make(map[string]bool)
	emitted := make(map[string]bool)
	charged := make(map[string]bool)
	discharged := make(map[string]bool)

	for _, t := range m.Technologies {
		for _, mode := range t.OperatingModes {
			for c := range mode.OutputActivityRatio {
				produced[c] = true
			}
			for i := range mode.EmissionActivityRatio {
				emitted[i] = true
			}
			for s := range mode.ToStorage {
				charged[s] = true
			}
			for s := range mode.FromStorage {
				discharged[s] = true
			}
		}
	}

	// Only declared commodities are judged here; unknown identifiers in
	// ratio keys are the referential-integrity stage's concern.
	for _, c := range m.Commodities {
		if !produced[c.ID] {
			vs.addf("commodities", "commodity %q is not produced by any technology", c.ID)
		}
	}
	for _, im := range m.Impacts {
		if !emitted[im.ID] {
			vs.addf("impacts", "impact %q is not emitted by any operating mode", im.ID)
		}
	}
	for _, st := range m.Storages {
		if !charged[st.ID] {
			vs.addf("storage", "storage %q is never charged", st.ID)
		}
		if !discharged[st.ID] {
			vs.addf("storage", "storage %q is never discharged", st.ID)
		}
	}
}
