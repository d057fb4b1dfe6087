package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jengzang/globe-observations/internal/grid"
	"github.com/jengzang/globe-observations/internal/models"
)

// ParseBinFilter validates raw query parameters. grid defaults to 1.0 and
// level defaults to grid.
func ParseBinFilter(f models.BinFilter) (models.HeatQuery, error) {
	var q models.HeatQuery

	start := strings.TrimSpace(f.Start)
	end := strings.TrimSpace(f.End)
	if start == "" || end == "" {
		return q, models.ErrMissingDateRange
	}

	from, err := parseDate("start", start)
	if err != nil {
		return q, err
	}
	to, err := parseDate("end", end)
	if err != nil {
		return q, err
	}
	if from.After(to) {
		return q, fmt.Errorf("%w: start %s is after end %s", models.ErrInvalidParameter, start, end)
	}

	gridSize := grid.DefaultGridSize
	if s := strings.TrimSpace(f.Grid); s != "" {
		if gridSize, err = parseNumber("grid", s); err != nil {
			return q, err
		}
	}
	if err := grid.ValidateGridSize(gridSize); err != nil {
		return q, err
	}

	level := gridSize
	if s := strings.TrimSpace(f.Level); s != "" {
		if level, err = parseNumber("level", s); err != nil {
			return q, err
		}
		if level <= 0 {
			return q, fmt.Errorf("%w: level must be positive, got %v", models.ErrInvalidParameter, level)
		}
	}

	q.Start = start
	q.End = end
	q.GridSize = gridSize
	q.Level = level
	return q, nil
}

func parseDate(name, s string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD, got %q", models.ErrInvalidParameter, name, s)
	}
	return t, nil
}

func parseNumber(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s must be a finite number, got %q", models.ErrInvalidParameter, name, s)
	}
	return v, nil
}
