// Package grid buckets point observations into a uniform equirectangular
// degree grid and counts them per cell.
package grid

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jengzang/globe-observations/internal/models"
)

// DefaultGridSize is used when the caller does not supply one
const DefaultGridSize = 1.0

// ValidateGridSize rejects sizes that cannot subdivide the globe
func ValidateGridSize(gridSize float64) error {
	if math.IsNaN(gridSize) || math.IsInf(gridSize, 0) || gridSize <= 0 {
		return fmt.Errorf("%w: grid size must be a positive number of degrees, got %v", models.ErrInvalidParameter, gridSize)
	}
	return nil
}

// BinCoord floors value onto the grid. It is the only place a bin coordinate
// is computed, so equal inputs always produce bit-identical keys.
func BinCoord(value, gridSize float64) float64 {
	bin := math.Floor(value/gridSize) * gridSize
	if bin == 0 {
		// fold -0 into +0 so both land in one cell with one key
		return 0
	}
	return bin
}

type cellKey struct {
	lon, lat float64
}

// Aggregate counts observations per grid cell. An observation participates
// when start <= observed_on <= end (by calendar day) and both coordinates
// are present. Only populated cells are returned.
func Aggregate(observations []models.Observation, start, end time.Time, gridSize float64) ([]models.AggregatedBin, error) {
	if err := ValidateGridSize(gridSize); err != nil {
		return nil, err
	}

	from := truncateDay(start)
	to := truncateDay(end)

	counts := make(map[cellKey]int)
	for _, o := range observations {
		if !o.HasCoordinates() || !finite(*o.Latitude) || !finite(*o.Longitude) {
			continue
		}
		day := truncateDay(o.ObservedOn)
		if day.Before(from) || day.After(to) {
			continue
		}
		key := cellKey{
			lon: BinCoord(*o.Longitude, gridSize),
			lat: BinCoord(*o.Latitude, gridSize),
		}
		counts[key]++
	}

	bins := make([]models.AggregatedBin, 0, len(counts))
	for k, c := range counts {
		bins = append(bins, models.AggregatedBin{LonBin: k.lon, LatBin: k.lat, Count: c})
	}

	// Hottest cells first; coordinates break ties so output is reproducible
	sort.Slice(bins, func(i, j int) bool {
		if bins[i].Count != bins[j].Count {
			return bins[i].Count > bins[j].Count
		}
		if bins[i].LonBin != bins[j].LonBin {
			return bins[i].LonBin < bins[j].LonBin
		}
		return bins[i].LatBin < bins[j].LatBin
	})

	return bins, nil
}

// TotalCount sums the counts of bins
func TotalCount(bins []models.AggregatedBin) int {
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	return total
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
