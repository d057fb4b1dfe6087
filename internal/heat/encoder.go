// Package heat turns binned observation counts into render-ready points
// coloured by their share of the visible total.
package heat

import (
	"fmt"
	"math"
	"sort"

	"github.com/jengzang/globe-observations/internal/models"
	"github.com/jengzang/globe-observations/internal/spatial"
)

const (
	// NoiseFloor is the minimum count for a bin to be rendered
	NoiseFloor = 10
	// SaturationThreshold is the normalized intensity above which colour is pure red
	SaturationThreshold = 0.01
	// ProportionScale sets maxProportion = ProportionScale / surviving bins.
	// It is a fixed convention of the colour model, not a statistical maximum.
	ProportionScale = 100.0

	BaseSize       = 0.014
	SizeFactor     = 0.4
	EmissiveFactor = 0.3
	Opacity        = 0.6
)

// ComputeHeatColor maps a normalized intensity to a colour. t is clamped to
// [0,1]; at or below the threshold the hue runs yellow to red, above it the
// hue is pure red. Brightness falls off linearly from 1 at t=0 to 0.2 at t=1.
func ComputeHeatColor(t float64) models.Color {
	t = math.Max(0, math.Min(1, t))

	var c models.Color
	if t > SaturationThreshold {
		c = models.Color{R: 1, G: 0, B: 0}
	} else {
		k := t / SaturationThreshold
		c = models.Color{R: 1, G: 1 - k, B: 0}
	}

	brightness := 0.2 + 0.8*(1-t)
	return c.Scale(brightness)
}

// PointSize is the footprint of every rendered point at a grid level
func PointSize(gridLevel float64) float64 {
	return BaseSize * gridLevel * SizeFactor
}

// Encode filters bins below the noise floor and encodes the rest, in
// ascending count order. An empty result is not an error.
func Encode(bins []models.AggregatedBin, gridLevel float64) ([]models.HeatPoint, error) {
	if math.IsNaN(gridLevel) || math.IsInf(gridLevel, 0) || gridLevel <= 0 {
		return nil, fmt.Errorf("%w: grid level must be positive, got %v", models.ErrInvalidParameter, gridLevel)
	}

	surviving := make([]models.AggregatedBin, 0, len(bins))
	for _, b := range bins {
		if b.Count >= NoiseFloor {
			surviving = append(surviving, b)
		}
	}
	if len(surviving) == 0 {
		return []models.HeatPoint{}, nil
	}

	sort.SliceStable(surviving, func(i, j int) bool {
		return surviving[i].Count < surviving[j].Count
	})

	total := 0
	for _, b := range surviving {
		total += b.Count
	}
	if total == 0 {
		return []models.HeatPoint{}, nil
	}

	maxProportion := ProportionScale / float64(len(surviving))
	size := PointSize(gridLevel)

	points := make([]models.HeatPoint, 0, len(surviving))
	for _, b := range surviving {
		proportion := float64(b.Count) / float64(total)
		t := proportion / maxProportion
		color := ComputeHeatColor(t)
		pos := spatial.LatLonToVector(b.LatBin, b.LonBin, spatial.GlobeRadius)

		points = append(points, models.HeatPoint{
			Lat:        b.LatBin,
			Lon:        b.LonBin,
			Count:      b.Count,
			Proportion: proportion,
			Intensity:  t,
			Color:      color,
			Emissive:   color.Scale(EmissiveFactor),
			Opacity:    Opacity,
			Size:       size,
			Position:   pos,
			Facing:     spatial.FacingCenter(pos),
		})
	}

	return points, nil
}
