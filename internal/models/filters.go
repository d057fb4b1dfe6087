package models

// BinFilter represents query parameters for the binned observation endpoints.
// Grid is kept as a string so a missing value can default to 1.0 and a
// malformed one can be rejected explicitly.
type BinFilter struct {
	Start string `form:"start"` // YYYY-MM-DD
	End   string `form:"end"`   // YYYY-MM-DD
	Grid  string `form:"grid"`  // degrees, default 1.0
	Level string `form:"level"` // heat footprint multiplier, default grid
}

// BinQuery is a validated BinFilter
type BinQuery struct {
	Start    string
	End      string
	GridSize float64
}

// HeatQuery is a validated BinFilter for the heat endpoint
type HeatQuery struct {
	BinQuery
	Level float64
}
