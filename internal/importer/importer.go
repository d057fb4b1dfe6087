// Package importer loads observation exports (CSV) into a dataset store.
package importer

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jengzang/globe-observations/internal/database"
	"github.com/jengzang/globe-observations/internal/models"
	"github.com/jengzang/globe-observations/internal/repository"
	"github.com/jengzang/globe-observations/internal/spatial"
)

// DefaultBatchSize is the number of rows per insert transaction
const DefaultBatchSize = 500

// Column names read from the export header. Extra columns are ignored.
const (
	ColObservedOn = "observed_on"
	ColLatitude   = "latitude"
	ColLongitude  = "longitude"
)

// Stats summarises an import run
type Stats struct {
	Rows     int // data rows read
	Inserted int
	Located  int // inserted rows carrying both coordinates
	Skipped  int
}

// Importer writes CSV rows into a migrated observation store
type Importer struct {
	db        *sql.DB
	repo      *repository.ObservationRepository
	batchSize int
	logger    *slog.Logger
}

// New creates an importer for db. The schema is migrated on Run.
func New(db *sql.DB, batchSize int, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchSize > repository.MaxInsertRows {
		logger.Warn("batch size clamped", "component", "importer", "requested", batchSize, "max", repository.MaxInsertRows)
		batchSize = repository.MaxInsertRows
	}
	return &Importer{
		db:        db,
		repo:      repository.NewObservationRepository(db, 0),
		batchSize: batchSize,
		logger:    logger.With("component", "importer"),
	}
}

// Run migrates the store and streams r into it
func (im *Importer) Run(ctx context.Context, r io.Reader) (Stats, error) {
	var stats Stats

	if err := database.NewMigrator(im.db).Up(ctx); err != nil {
		return stats, err
	}

	reader := csv.NewReader(r)
	reader.ReuseRecord = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return stats, fmt.Errorf("failed to read header: %w", err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return stats, err
	}

	batch := make([]models.Observation, 0, im.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := database.Transaction(ctx, im.db, func(tx *sql.Tx) error {
			return im.repo.InsertBatch(ctx, tx, batch)
		})
		if err != nil {
			return err
		}
		stats.Inserted += len(batch)
		batch = batch[:0]
		return nil
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}
		stats.Rows++

		o, ok := parseRecord(record, cols)
		if !ok {
			stats.Skipped++
			im.logger.Debug("skipping row", "line", line)
			continue
		}
		if o.HasCoordinates() {
			stats.Located++
		}
		batch = append(batch, o)

		if len(batch) >= im.batchSize {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}

	im.logger.Info("import finished",
		"rows", stats.Rows, "inserted", stats.Inserted, "located", stats.Located, "skipped", stats.Skipped)
	return stats, nil
}

type columns struct {
	observedOn, lat, lon int
}

func columnIndex(header []string) (columns, error) {
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}

	var cols columns
	var missing []string
	for name, dst := range map[string]*int{
		ColObservedOn: &cols.observedOn,
		ColLatitude:   &cols.lat,
		ColLongitude:  &cols.lon,
	} {
		i, ok := idx[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		*dst = i
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

// parseRecord turns a CSV row into an observation. Rows without a usable
// date are rejected. Blank or out-of-range coordinates are stored as NULL.
func parseRecord(record []string, cols columns) (models.Observation, bool) {
	field := func(i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	observed, err := repository.ParseObservedOn(field(cols.observedOn))
	if err != nil {
		return models.Observation{}, false
	}
	o := models.Observation{ObservedOn: observed}

	lat, latErr := strconv.ParseFloat(field(cols.lat), 64)
	lon, lonErr := strconv.ParseFloat(field(cols.lon), 64)
	if latErr == nil && lonErr == nil && spatial.ValidCoordinates(lat, lon) {
		o.Latitude = &lat
		o.Longitude = &lon
	}
	return o, true
}
