package schema

// Storage is an inter-timeslice energy store, charged and discharged by
// technology operating modes. Capital cost and operating life are the
// only required fields; every storage must be both charged and
// discharged by at least one mode, which the model checks after
// composition.
type Storage struct {
	Entity

	Capex         RY
	OperatingLife RInt

	MinimumCharge    RY
	InitialLevel     R
	ResidualCapacity RY

	MaxChargeRate    R
	MaxDischargeRate R

	// BalanceDaily closes the storage level over each day type;
	// BalanceAnnual closes it over the year.
	BalanceDaily  bool
	BalanceAnnual bool

	raw map[string]any
}

// ParseStorage captures raw fields and the balance flags.
func ParseStorage(id string, body map[string]any) (*Storage, error) {
	vs := &violations{entity: id}

	s := &Storage{Entity: parseEntity(id, body), raw: body}

	if body["capex"] == nil {
		vs.addf("capex", "capex is required")
	}
	if body["operating_life"] == nil {
		vs.addf("operating_life", "operating_life is required")
	}

	if v, ok := body["balance_daily"]; ok {
		b, ok := toBool(v)
		if !ok {
			vs.addf("balance_daily", "expected a boolean, got %v", v)
		}
		s.BalanceDaily = b
	}
	if v, ok := body["balance_annual"]; ok {
		b, ok := toBool(v)
		if !ok {
			vs.addf("balance_annual", "expected a boolean, got %v", v)
		}
		s.BalanceAnnual = b
	}

	if err := vs.err(); err != nil {
		return nil, err
	}
	return s, nil
}

// Compose broadcasts the storage's fields against the model's sets.
func (s *Storage) Compose(sets Sets) error {
	vs := &violations{entity: s.ID}
	d := DefaultValues

	composeRY := func(field string, def any) RY {
		raw := optionalField(s.raw, field)
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
	composeR := func(field string, def any) R {
		raw := optionalField(s.raw, field)
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

	s.Capex = composeRY("capex", nil)
	s.MinimumCharge = composeRY("minimum_charge", d.StorageMinimumCharge)
	s.InitialLevel = composeR("initial_level", d.StorageInitialLevel)
	s.ResidualCapacity = composeRY("residual_capacity", d.StorageResidualCapacity)
	s.MaxChargeRate = composeR("max_charge_rate", nil)
	s.MaxDischargeRate = composeR("max_discharge_rate", nil)

	if composed, err := compose(optionalField(s.raw, "operating_life"), sets, "region"); err != nil {
		vs.mergeField("operating_life", err)
	} else {
		s.OperatingLife = intMap1(composed, vs, "operating_life")
	}

	for region, charge := range s.MinimumCharge {
		for year, frac := range charge {
			if frac < 0 || frac > 1 {
				vs.addf("minimum_charge", "fraction %g at %s/%s is outside [0, 1]", frac, region, year)
			}
		}
	}

	return vs.err()
}
