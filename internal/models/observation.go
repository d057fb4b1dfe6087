package models

import "time"

// DateLayout is the wire and storage format for observed_on
const DateLayout = "2006-01-02"

// Observation is a single geotagged sighting read from a dataset store.
// Latitude and Longitude are nil when the source row has no coordinates.
type Observation struct {
	ID         int64     `json:"id" db:"id"`
	ObservedOn time.Time `json:"observed_on" db:"observed_on"`
	Latitude   *float64  `json:"latitude,omitempty" db:"latitude"`
	Longitude  *float64  `json:"longitude,omitempty" db:"longitude"`
}

// HasCoordinates reports whether both coordinates are present
func (o Observation) HasCoordinates() bool {
	return o.Latitude != nil && o.Longitude != nil
}

// DateRange is the available observed_on span of a dataset
type DateRange struct {
	Dataset string `json:"dataset"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Count   int64  `json:"count"`
}
