package schema

// Trade is a directed transmission link for one commodity between
// region pairs. Routes and all link parameters are indexed origin
// region, destination region, year. With ConstructRegionPairs set,
// every declared route is mirrored in reverse, parameters included,
// unless the reverse direction declares its own values.
type Trade struct {
	Entity

	Commodity            string
	ConstructRegionPairs bool

	TradeRoutes           RRYBool
	TradeLoss             RRY
	ResidualCapacity      RRY
	Capex                 RRY
	CapacityAdditionalMax RRY
	OperatingLife         RRYInt

	CapacityActivityUnitRatio RR
	CostOfCapital             RR

	raw map[string]any
}

// ParseTrade captures raw fields; the commodity reference is required.
func ParseTrade(id string, body map[string]any) (*Trade, error) {
	vs := &violations{entity: id}

	t := &Trade{Entity: parseEntity(id, body), raw: body}

	commodity, ok := body["commodity"].(string)
	if !ok || commodity == "" {
		vs.addf("commodity", "a commodity id is required")
	}
	t.Commodity = commodity

	if v, ok := body["construct_region_pairs"]; ok {
		b, ok := toBool(v)
		if !ok {
			vs.addf("construct_region_pairs", "expected a boolean, got %v", v)
		}
		t.ConstructRegionPairs = b
	}

	if body["trade_routes"] == nil {
		vs.addf("trade_routes", "at least one route is required")
	}

	if err := vs.err(); err != nil {
		return nil, err
	}
	return t, nil
}

// Compose broadcasts the link parameters and, when requested, mirrors
// every route and its parameters in the reverse direction.
func (t *Trade) Compose(sets Sets) error {
	vs := &violations{entity: t.ID}
	d := DefaultValues

	composeRRY := func(field string, def any) RRY {
		raw := optionalField(t.raw, field)
		if raw == nil && def != nil {
			raw = def
		}
		composed, err := compose(raw, sets, "region", "region", "year")
		if err != nil {
			vs.mergeField(field, err)
			return nil
		}
		return floatMap3(composed, vs, field)
	}
	composeRR := func(field string, def any) RR {
		raw := optionalField(t.raw, field)
		if raw == nil && def != nil {
			raw = def
		}
		composed, err := compose(raw, sets, "region", "region")
		if err != nil {
			vs.mergeField(field, err)
			return nil
		}
		return floatMap2(composed, vs, field)
	}

	if composed, err := compose(optionalField(t.raw, "trade_routes"), sets, "region", "region", "year"); err != nil {
		vs.mergeField("trade_routes", err)
	} else {
		t.TradeRoutes = boolMap3(composed, vs, "trade_routes")
	}

	t.TradeLoss = composeRRY("trade_loss", d.TradeLoss)
	t.ResidualCapacity = composeRRY("residual_capacity", d.TradeResidualCapacity)
	t.Capex = composeRRY("capex", d.TradeCapex)
	t.CapacityAdditionalMax = composeRRY("capacity_additional_max", nil)

	if composed, err := compose(defaultFor(t.raw, "operating_life", d.TradeOperatingLife), sets, "region", "region", "year"); err != nil {
		vs.mergeField("operating_life", err)
	} else {
		t.OperatingLife = intMap3(composed, vs, "operating_life")
	}

	t.CapacityActivityUnitRatio = composeRR("capacity_activity_unit_ratio", d.TradeCapacityActivityUnitRatio)
	t.CostOfCapital = composeRR("cost_of_capital", nil)

	// A region never trades with itself; wildcard expansion can produce
	// such pairs, so they are dropped rather than flagged.
	for origin := range t.TradeRoutes {
		delete(t.TradeRoutes[origin], origin)
	}

	if t.ConstructRegionPairs {
		t.mirrorRoutes()
	}

	return vs.err()
}

// mirrorRoutes adds the reverse of every active route. Parameters copy
// across too, but a value the reverse direction declared itself is
// never overwritten.
func (t *Trade) mirrorRoutes() {
	type routeYear struct{ origin, dest, year string }
	var active []routeYear
	for origin, dests := range t.TradeRoutes {
		for dest, years := range dests {
			for year, on := range years {
				if on {
					active = append(active, routeYear{origin, dest, year})
				}
			}
		}
	}

	for _, r := range active {
		setBool3(t.TradeRoutes, r.dest, r.origin, r.year, true)
		mirrorFloat3(t.TradeLoss, r.origin, r.dest, r.year)
		mirrorFloat3(t.ResidualCapacity, r.origin, r.dest, r.year)
		mirrorFloat3(t.Capex, r.origin, r.dest, r.year)
		mirrorFloat3(t.CapacityAdditionalMax, r.origin, r.dest, r.year)
		mirrorInt3(t.OperatingLife, r.origin, r.dest, r.year)
		mirrorFloat2(t.CapacityActivityUnitRatio, r.origin, r.dest)
		mirrorFloat2(t.CostOfCapital, r.origin, r.dest)
	}
}

func setBool3(m RRYBool, a, b, c string, v bool) {
	if m == nil {
		return
	}
	if m[a] == nil {
		m[a] = make(map[string]map[string]bool)
	}
	if m[a][b] == nil {
		m[a][b] = make(map[string]bool)
	}
	m[a][b][c] = v
}

func mirrorFloat3(m RRY, origin, dest, year string) {
	if m == nil {
		return
	}
	v, ok := lookup3(m, origin, dest, year)
	if !ok {
		return
	}
	if _, ok := lookup3(m, dest, origin, year); ok {
		return
	}
	if m[dest] == nil {
		m[dest] = make(map[string]map[string]float64)
	}
	if m[dest][origin] == nil {
		m[dest][origin] = make(map[string]float64)
	}
	m[dest][origin][year] = v
}

func mirrorInt3(m RRYInt, origin, dest, year string) {
	if m == nil {
		return
	}
	inner, ok := m[origin]
	if !ok {
		return
	}
	leaf, ok := inner[dest]
	if !ok {
		return
	}
	v, ok := leaf[year]
	if !ok {
		return
	}
	if m[dest] != nil && m[dest][origin] != nil {
		if _, ok := m[dest][origin][year]; ok {
			return
		}
	}
	if m[dest] == nil {
		m[dest] = make(map[string]map[string]int)
	}
	if m[dest][origin] == nil {
		m[dest][origin] = make(map[string]int)
	}
	m[dest][origin][year] = v
}

func mirrorFloat2(m RR, origin, dest string) {
	if m == nil {
		return
	}
	v, ok := lookup2(m, origin, dest)
	if !ok {
		return
	}
	if _, ok := lookup2(m, dest, origin); ok {
		return
	}
	if m[dest] == nil {
		m[dest] = make(map[string]float64)
	}
	m[dest][origin] = v
}

func lookup3(m RRY, a, b, c string) (float64, bool) {
	inner, ok := m[a]
	if !ok {
		return 0, false
	}
	leaf, ok := inner[b]
	if !ok {
		return 0, false
	}
	v, ok := leaf[c]
	return v, ok
}
