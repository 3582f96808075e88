package interp

// Config holds the fixed constants of the interpolators.
type Config struct {
	// LapseRate is the temperature change per unit of elevation gain.
	LapseRate float64 `validate:"lte=0"`

	// StationLapseRate is the gradient used by the EA method.
	StationLapseRate float64 `validate:"lte=0"`

	// CellSize is the distance covered by one grid step when probing neighbors.
	CellSize float64 `validate:"gt=0"`

	// RankedRadius is the Gaussian radius of the SGl method.
	RankedRadius float64 `validate:"gt=0"`

	// RangeRadius and RangeAlpha shape the cutoff Gaussian of the PG method.
	RangeRadius float64 `validate:"gt=0"`
	RangeAlpha  float64 `validate:"gt=0"`

	// RangeWindow bounds, per axis, which neighbor rows and columns PG uses.
	RangeWindow float64 `validate:"gt=0"`

	// DefaultQuota is used when a request does not set a positive quota.
	DefaultQuota int `validate:"min=1"`
}

// DefaultConfig returns the standard interpolation constants.
func DefaultConfig() Config {
	return Config{
		LapseRate:        -0.5 / 100,
		StationLapseRate: -6.5 / 1000,
		CellSize:         1000,
		RankedRadius:     500,
		RangeRadius:      1000,
		RangeAlpha:       3,
		RangeWindow:      1000,
		DefaultQuota:     1,
	}
}
