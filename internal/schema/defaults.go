package schema

// Defaults is the single table of default values applied during the
// field-level parse phase. Fields without an entry here are genuinely
// optional and stay nil when unspecified.
type Defaults struct {
	TechnologyCapacityActivityUnitRatio float64
	TechnologyCapacityFactor            float64
	TechnologyAvailabilityFactor        float64
	TechnologyResidualCapacity          float64
	TechnologyCapex                     float64
	TechnologyOpexVariable              float64
	TechnologyOpexFixed                 float64
	TechnologyOperatingLife             int

	StorageResidualCapacity float64
	StorageMinimumCharge    float64
	StorageInitialLevel     float64

	TradeLoss                      float64
	TradeResidualCapacity          float64
	TradeCapex                     float64
	TradeOperatingLife             int
	TradeCapacityActivityUnitRatio float64

	DepreciationMethod   string
	DiscountRate         float64
	ReserveMargin        float64
	IncludeInRegionGroup bool
}

// DefaultValues mirrors the original model's documented defaults.
var DefaultValues = Defaults{
	TechnologyCapacityActivityUnitRatio: 1.0,
	TechnologyCapacityFactor:            1.0,
	TechnologyAvailabilityFactor:        1.0,
	TechnologyResidualCapacity:          0.0,
	TechnologyCapex:                     0.00001,
	TechnologyOpexVariable:              0.00001,
	TechnologyOpexFixed:                 0.0,
	TechnologyOperatingLife:             1,

	StorageResidualCapacity: 0.0,
	StorageMinimumCharge:    0.0,
	StorageInitialLevel:     0.0,

	TradeLoss:                      0.00001,
	TradeResidualCapacity:          0.0,
	TradeCapex:                     0.00001,
	TradeOperatingLife:             1,
	TradeCapacityActivityUnitRatio: 1.0,

	DepreciationMethod:   DepreciationSinkingFund,
	DiscountRate:         0.05,
	ReserveMargin:        1.0,
	IncludeInRegionGroup: false,
}

// Depreciation methods: the amortization branch for capital cost.
const (
	DepreciationSinkingFund  = "sinking-fund"
	DepreciationStraightLine = "straight-line"
)

// defaultFor returns raw (unbroadcast) field data: the given value when
// present, else the scalar default, which broadcasts over every
// dimension.
func defaultFor(body map[string]any, key string, def any) any {
	if v, ok := body[key]; ok && v != nil {
		return v
	}
	return def
}

// optionalField returns the raw value or nil; no default exists.
func optionalField(body map[string]any, key string) any {
	v, ok := body[key]
	if !ok {
		return nil
	}
	return v
}
