package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/jengzang/globe-observations/internal/cache"
	"github.com/jengzang/globe-observations/internal/grid"
	"github.com/jengzang/globe-observations/internal/heat"
	"github.com/jengzang/globe-observations/internal/metrics"
	"github.com/jengzang/globe-observations/internal/models"
)

// ObservationStore reads one dataset's observations
type ObservationStore interface {
	Query(ctx context.Context, start, end time.Time) ([]models.Observation, error)
	DateBounds(ctx context.Context) (start, end string, count int64, err error)
}

// Cache stores encoded bin responses. Get returns cache.ErrMiss when absent.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// HeatmapService handles business logic for binned observations
type HeatmapService struct {
	stores map[string]ObservationStore
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewHeatmapService creates a new heatmap service. cache may be nil.
func NewHeatmapService(stores map[string]ObservationStore, c Cache, ttl time.Duration, logger *slog.Logger) *HeatmapService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HeatmapService{
		stores: stores,
		cache:  c,
		ttl:    ttl,
		logger: logger.With("component", "heatmap"),
	}
}

// Datasets returns the served dataset names, sorted
func (s *HeatmapService) Datasets() []string {
	names := make([]string, 0, len(s.stores))
	for name := range s.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *HeatmapService) store(dataset string) (ObservationStore, error) {
	store, ok := s.stores[dataset]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownDataset, dataset)
	}
	return store, nil
}

// Bins aggregates a dataset's observations over the query's date range
func (s *HeatmapService) Bins(ctx context.Context, dataset string, q models.BinQuery) (*models.BinsResponse, error) {
	store, err := s.store(dataset)
	if err != nil {
		return nil, err
	}

	key := binsCacheKey(dataset, q)
	if cached, ok := s.cached(ctx, key); ok {
		return cached, nil
	}

	start, err := parseDate("start", q.Start)
	if err != nil {
		return nil, err
	}
	end, err := parseDate("end", q.End)
	if err != nil {
		return nil, err
	}

	began := time.Now()
	observations, err := store.Query(ctx, start, end)
	metrics.StoreQueryDuration.WithLabelValues(dataset).Observe(time.Since(began).Seconds())
	if err != nil {
		metrics.StoreQueryErrors.WithLabelValues(dataset).Inc()
		s.logger.Error("observation query failed", "dataset", dataset, "start", q.Start, "end", q.End, "error", err)
		return nil, fmt.Errorf("%w: %w", models.ErrDataSource, err)
	}
	metrics.ObservationsScanned.WithLabelValues(dataset).Add(float64(len(observations)))

	bins, err := grid.Aggregate(observations, start, end, q.GridSize)
	if err != nil {
		return nil, err
	}
	metrics.BinsProduced.WithLabelValues(dataset).Observe(float64(len(bins)))

	s.logger.Debug("aggregated observations",
		"dataset", dataset, "observations", len(observations), "bins", len(bins), "grid", q.GridSize)

	resp := &models.BinsResponse{
		Start:     q.Start,
		End:       q.End,
		Grid:      q.GridSize,
		TotalBins: len(bins),
		Points:    bins,
	}
	s.remember(ctx, key, resp)
	return resp, nil
}

// Heat aggregates and then encodes the bins for rendering
func (s *HeatmapService) Heat(ctx context.Context, dataset string, q models.HeatQuery) (*models.HeatResponse, error) {
	bins, err := s.Bins(ctx, dataset, q.BinQuery)
	if err != nil {
		return nil, err
	}

	points, err := heat.Encode(bins.Points, q.Level)
	if err != nil {
		return nil, err
	}

	return &models.HeatResponse{
		Start:       bins.Start,
		End:         bins.End,
		Grid:        bins.Grid,
		Level:       q.Level,
		TotalBins:   bins.TotalBins,
		TotalPoints: len(points),
		Points:      points,
	}, nil
}

// Range returns the available date span of a dataset
func (s *HeatmapService) Range(ctx context.Context, dataset string) (*models.DateRange, error) {
	store, err := s.store(dataset)
	if err != nil {
		return nil, err
	}

	start, end, count, err := store.DateBounds(ctx)
	if err != nil {
		s.logger.Error("date bounds query failed", "dataset", dataset, "error", err)
		return nil, fmt.Errorf("%w: %w", models.ErrDataSource, err)
	}
	return &models.DateRange{Dataset: dataset, Start: start, End: end, Count: count}, nil
}

func binsCacheKey(dataset string, q models.BinQuery) string {
	return "bins:" + dataset + ":" + q.Start + ":" + q.End + ":" + strconv.FormatFloat(q.GridSize, 'g', -1, 64)
}

// cached looks key up; cache failures only cost a recomputation
func (s *HeatmapService) cached(ctx context.Context, key string) (*models.BinsResponse, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("cache read failed", "key", key, "error", err)
		}
		metrics.CacheMisses.WithLabelValues("bins").Inc()
		return nil, false
	}

	var resp models.BinsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		s.logger.Warn("discarding undecodable cache entry", "key", key, "error", err)
		metrics.CacheMisses.WithLabelValues("bins").Inc()
		return nil, false
	}
	if resp.Points == nil {
		resp.Points = []models.AggregatedBin{}
	}
	metrics.CacheHits.WithLabelValues("bins").Inc()
	return &resp, true
}

func (s *HeatmapService) remember(ctx context.Context, key string, resp *models.BinsResponse) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		s.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		s.logger.Warn("cache write failed", "key", key, "error", err)
	}
}
