package models

import "github.com/golang/geo/r3"

// AggregatedBin is one populated cell of the lat/lon grid.
// LonBin and LatBin are the floored lower-left corner of the cell.
type AggregatedBin struct {
	LonBin float64 `json:"lon"`
	LatBin float64 `json:"lat"`
	Count  int     `json:"count"`
}

// Color is an RGB triple with channels in [0,1]
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Scale multiplies every channel by s
func (c Color) Scale(s float64) Color {
	return Color{R: c.R * s, G: c.G * s, B: c.B * s}
}

// HeatPoint is a render-ready bin produced by the heat encoder
type HeatPoint struct {
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Count      int       `json:"count"`
	Proportion float64   `json:"proportion"` // count / total of surviving bins
	Intensity  float64   `json:"intensity"`  // proportion / max proportion, unclamped
	Color      Color     `json:"color"`
	Emissive   Color     `json:"emissive"`
	Opacity    float64   `json:"opacity"`
	Size       float64   `json:"size"`
	Position   r3.Vector `json:"position"` // on the unit globe
	Facing     r3.Vector `json:"facing"`   // unit direction toward the globe centre
}

// BinsResponse is the raw binned wire payload served per dataset
type BinsResponse struct {
	Start     string          `json:"start"`
	End       string          `json:"end"`
	Grid      float64         `json:"grid"`
	TotalBins int             `json:"total_bins"`
	Points    []AggregatedBin `json:"points"`
}

// HeatResponse is the encoded payload served by the heat endpoint
type HeatResponse struct {
	Start       string      `json:"start"`
	End         string      `json:"end"`
	Grid        float64     `json:"grid"`
	Level       float64     `json:"level"`
	TotalBins   int         `json:"total_bins"`
	TotalPoints int         `json:"total_points"`
	Points      []HeatPoint `json:"points"`
}
