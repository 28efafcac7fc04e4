// Package sets derives the canonical index sets of a composed model and
// verifies referential integrity: every identifier used as a map key in
// a ratio, route, membership, or cost table must name a declared
// entity.
package sets

import (
	"fmt"
	"sort"

	"github.com/vk/voltgrid/internal/schema"
)

// Index is the canonical set catalogue the compiler iterates over.
type Index struct {
	Regions      []string
	RegionGroups []string
	Years        []string
	Timeslices   []string
	Seasons      []string
	DayTypes     []string
	TimeBrackets []string
	Commodities  []string
	Impacts      []string
	Technologies []string
	Storages     []string
	Trades       []string

	// ModesByTechnology lists each technology's operating mode ids in
	// declaration order.
	ModesByTechnology map[string][]string
}

// ReferentialIntegrityError reports an identifier used where a declared
// entity was expected, naming the entity that used it.
type ReferentialIntegrityError struct {
	// Kind is the set the identifier was expected in ("commodity",
	// "impact", "storage", "region", "technology").
	Kind string
	// ID is the unknown identifier.
	ID string
	// Owner names the declaring entity, e.g. "technology coal_plant".
	Owner string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("unknown %s %q referenced by %s", e.Kind, e.ID, e.Owner)
}

// Derive builds the canonical index from a composed model and checks
// every cross-entity reference. The first unknown identifier found (in
// deterministic order) is returned as a ReferentialIntegrityError.
func Derive(m *schema.Model) (*Index, error) {
	idx := &Index{
		Regions:           append([]string(nil), m.Sets.Regions...),
		RegionGroups:      append([]string(nil), m.Sets.RegionGroups...),
		Years:             append([]string(nil), m.Sets.Years...),
		Timeslices:        append([]string(nil), m.Sets.Timeslices...),
		Seasons:           append([]string(nil), m.TimeStructure.Seasons...),
		DayTypes:          append([]string(nil), m.TimeStructure.DayTypes...),
		TimeBrackets:      append([]string(nil), m.TimeStructure.TimeBrackets...),
		Commodities:       append([]string(nil), m.Sets.Commodities...),
		Impacts:           append([]string(nil), m.Sets.Impacts...),
		Technologies:      append([]string(nil), m.Sets.Technologies...),
		Storages:          append([]string(nil), m.Sets.Storages...),
		ModesByTechnology: make(map[string][]string, len(m.Technologies)),
	}
	for _, tr := range m.Trades {
		idx.Trades = append(idx.Trades, tr.ID)
	}
	for _, t := range m.Technologies {
		modes := make([]string, len(t.OperatingModes))
		for i, mode := range t.OperatingModes {
			modes[i] = mode.ID
		}
		idx.ModesByTechnology[t.ID] = modes
	}

	if err := checkReferences(m, idx); err != nil {
		return nil, err
	}
	return idx, nil
}

func checkReferences(m *schema.Model, idx *Index) error {
	commodities := memberSet(idx.Commodities)
	impacts := memberSet(idx.Impacts)
	storages := memberSet(idx.Storages)
	regions := memberSet(idx.Regions)
	technologies := memberSet(idx.Technologies)

	for _, t := range m.Technologies {
		owner := "technology " + t.ID
		for _, mode := range t.OperatingModes {
			if err := checkKeys(mode.InputActivityRatio, commodities, "commodity", owner); err != nil {
				return err
			}
			if err := checkKeys(mode.OutputActivityRatio, commodities, "commodity", owner); err != nil {
				return err
			}
			if err := checkKeys(mode.EmissionActivityRatio, impacts, "impact", owner); err != nil {
				return err
			}
			if err := checkKeys(mode.ToStorage, storages, "storage", owner); err != nil {
				return err
			}
			if err := checkKeys(mode.FromStorage, storages, "storage", owner); err != nil {
				return err
			}
		}
	}

	for _, tr := range m.Trades {
		owner := "trade " + tr.ID
		if !commodities[tr.Commodity] {
			return &ReferentialIntegrityError{Kind: "commodity", ID: tr.Commodity, Owner: owner}
		}
		for _, origin := range sortedKeys(tr.TradeRoutes) {
			if !regions[origin] {
				return &ReferentialIntegrityError{Kind: "region", ID: origin, Owner: owner}
			}
			dests := make([]string, 0, len(tr.TradeRoutes[origin]))
			for dest := range tr.TradeRoutes[origin] {
				dests = append(dests, dest)
			}
			sort.Strings(dests)
			for _, dest := range dests {
				if !regions[dest] {
					return &ReferentialIntegrityError{Kind: "region", ID: dest, Owner: owner}
				}
			}
		}
	}

	for _, g := range m.RegionGroups {
		owner := "region group " + g.ID
		for _, region := range sortedKeys(g.IncludeInRegionGroup) {
			if !regions[region] {
				return &ReferentialIntegrityError{Kind: "region", ID: region, Owner: owner}
			}
		}
	}

	for _, region := range sortedKeys(m.CostOfCapital) {
		if !regions[region] {
			return &ReferentialIntegrityError{Kind: "region", ID: region, Owner: "cost_of_capital"}
		}
		for _, tech := range sortedKeys(m.CostOfCapital[region]) {
			if !technologies[tech] {
				return &ReferentialIntegrityError{Kind: "technology", ID: tech, Owner: "cost_of_capital"}
			}
		}
	}
	for _, region := range sortedKeys(m.CostOfCapitalStorage) {
		if !regions[region] {
			return &ReferentialIntegrityError{Kind: "region", ID: region, Owner: "cost_of_capital_storage"}
		}
		for _, storage := range sortedKeys(m.CostOfCapitalStorage[region]) {
			if !storages[storage] {
				return &ReferentialIntegrityError{Kind: "storage", ID: storage, Owner: "cost_of_capital_storage"}
			}
		}
	}

	return nil
}

func checkKeys[V any](m map[string]V, known map[string]bool, kind, owner string) error {
	for _, k := range sortedKeys(m) {
		if !known[k] {
			return &ReferentialIntegrityError{Kind: kind, ID: k, Owner: owner}
		}
	}
	return nil
}

func memberSet(members []string) map[string]bool {
	out := make(map[string]bool, len(members))
	for _, m := range members {
		out[m] = true
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
