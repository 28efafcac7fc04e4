package schema

// Region is a spatial node of the model. Regions carry no parameters of
// their own; everything regional lives on the entities indexed by
// region.
type Region struct {
	Entity
}

// RegionGroup aggregates regions for group-level renewable production
// targets. Membership is a per-region, per-year flag.
type RegionGroup struct {
	Entity

	// IncludeInRegionGroup marks which regions belong to the group in
	// which years.
	IncludeInRegionGroup RYBool

	rawInclude any
}

// ParseRegion builds a Region from its resolved body.
func ParseRegion(id string, body map[string]any) (*Region, error) {
	return &Region{Entity: parseEntity(id, body)}, nil
}

// ParseRegionGroup captures raw fields; membership is composed later,
// once the model's index sets are known.
func ParseRegionGroup(id string, body map[string]any) (*RegionGroup, error) {
	g := &RegionGroup{Entity: parseEntity(id, body)}
	g.rawInclude = defaultFor(body, "include_in_region_group", DefaultValues.IncludeInRegionGroup)
	return g, nil
}

// Compose broadcasts the membership flag over regions and years.
func (g *RegionGroup) Compose(sets Sets) error {
	vs := &violations{entity: g.ID}

	if composed, err := compose(g.rawInclude, sets, "region", "year"); err != nil {
		vs.mergeField("include_in_region_group", err)
	} else {
		g.IncludeInRegionGroup = boolMap2(composed, vs, "include_in_region_group")
	}

	return vs.err()
}
