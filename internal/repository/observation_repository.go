package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jengzang/globe-observations/internal/models"
)

// ObservationTable is the single table every dataset store exposes
const ObservationTable = "observations"

const (
	// sqliteMaxVariables is SQLITE_MAX_VARIABLE_NUMBER for SQLite >= 3.32
	sqliteMaxVariables = 32766
	insertColumns      = 3

	// MaxInsertRows is the most rows one INSERT statement can bind
	MaxInsertRows = sqliteMaxVariables / insertColumns
)

// ObservationRepository handles database operations for one observation dataset
type ObservationRepository struct {
	db      *sql.DB
	timeout time.Duration
}

// NewObservationRepository creates a new observation repository. Reads are
// bounded by timeout when it is positive.
func NewObservationRepository(db *sql.DB, timeout time.Duration) *ObservationRepository {
	return &ObservationRepository{db: db, timeout: timeout}
}

func (r *ObservationRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout > 0 {
		return context.WithTimeout(ctx, r.timeout)
	}
	return context.WithCancel(ctx)
}

// Query retrieves located observations with start <= observed_on <= end,
// both dates inclusive
func (r *ObservationRepository) Query(ctx context.Context, start, end time.Time) ([]models.Observation, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	// The upper bound is the day after end so rows carrying a time of day
	// on the end date still match while the index on observed_on is used
	query := `SELECT id, observed_on, latitude, longitude
		FROM ` + ObservationTable + `
		WHERE observed_on >= ?
		AND observed_on < ?
		AND latitude IS NOT NULL
		AND longitude IS NOT NULL`

	rows, err := r.db.QueryContext(ctx, query,
		start.Format(models.DateLayout),
		end.AddDate(0, 0, 1).Format(models.DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var (
		observations []models.Observation
		skipped      int
		firstBad     string
	)
	for rows.Next() {
		var (
			o        models.Observation
			observed string
			lat, lon sql.NullFloat64
		)
		if err := rows.Scan(&o.ID, &observed, &lat, &lon); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}

		o.ObservedOn, err = ParseObservedOn(observed)
		if err != nil {
			if skipped == 0 {
				firstBad = observed
			}
			skipped++
			continue
		}
		if lat.Valid {
			v := lat.Float64
			o.Latitude = &v
		}
		if lon.Valid {
			v := lon.Float64
			o.Longitude = &v
		}
		observations = append(observations, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate observations: %w", err)
	}
	if skipped > 0 {
		slog.Warn("skipped observations with unparseable observed_on",
			"component", "repository", "skipped", skipped, "example", firstBad)
	}

	return observations, nil
}

// DateBounds returns the earliest and latest observed_on of located rows
func (r *ObservationRepository) DateBounds(ctx context.Context) (start, end string, count int64, err error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT MIN(substr(observed_on, 1, 10)), MAX(substr(observed_on, 1, 10)), COUNT(*)
		FROM ` + ObservationTable + `
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL`

	var minDate, maxDate sql.NullString
	if err := r.db.QueryRowContext(ctx, query).Scan(&minDate, &maxDate, &count); err != nil {
		return "", "", 0, fmt.Errorf("failed to query date bounds: %w", err)
	}
	return minDate.String, maxDate.String, count, nil
}

// InsertBatch writes observations within tx, splitting them into
// statements of at most MaxInsertRows rows
func (r *ObservationRepository) InsertBatch(ctx context.Context, tx *sql.Tx, observations []models.Observation) error {
	for len(observations) > 0 {
		n := min(len(observations), MaxInsertRows)
		if err := r.insertRows(ctx, tx, observations[:n]); err != nil {
			return err
		}
		observations = observations[n:]
	}
	return nil
}

func (r *ObservationRepository) insertRows(ctx context.Context, tx *sql.Tx, observations []models.Observation) error {
	placeholders := make([]string, 0, len(observations))
	args := make([]interface{}, 0, len(observations)*insertColumns)
	for _, o := range observations {
		placeholders = append(placeholders, "(?, ?, ?)")
		args = append(args, o.ObservedOn.Format(models.DateLayout), nullable(o.Latitude), nullable(o.Longitude))
	}

	query := "INSERT INTO " + ObservationTable + " (observed_on, latitude, longitude) VALUES " +
		strings.Join(placeholders, ", ")
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert observations: %w", err)
	}
	return nil
}

// ParseObservedOn reads the date part of an observed_on value
func ParseObservedOn(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(models.DateLayout) {
		s = s[:len(models.DateLayout)]
	}
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid observed_on %q: %w", s, err)
	}
	return t, nil
}

func nullable(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
