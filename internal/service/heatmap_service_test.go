package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jengzang/globe-observations/internal/cache"
	"github.com/jengzang/globe-observations/internal/models"
	"github.com/jengzang/globe-observations/internal/service"
)

// --- Mock ObservationStore ---

type mockStore struct {
	queryFn  func(ctx context.Context, start, end time.Time) ([]models.Observation, error)
	boundsFn func(ctx context.Context) (string, string, int64, error)
	calls    int
}

func (m *mockStore) Query(ctx context.Context, start, end time.Time) ([]models.Observation, error) {
	m.calls++
	if m.queryFn != nil {
		return m.queryFn(ctx, start, end)
	}
	return nil, nil
}

func (m *mockStore) DateBounds(ctx context.Context) (string, string, int64, error) {
	if m.boundsFn != nil {
		return m.boundsFn(ctx)
	}
	return "", "", 0, nil
}

func located(date string, lat, lon float64, n int) []models.Observation {
	d, _ := time.Parse(models.DateLayout, date)
	out := make([]models.Observation, n)
	for i := range out {
		la, lo := lat, lon
		out[i] = models.Observation{ID: int64(i), ObservedOn: d, Latitude: &la, Longitude: &lo}
	}
	return out
}

func query(start, end string, gridSize float64) models.BinQuery {
	return models.BinQuery{Start: start, End: end, GridSize: gridSize}
}

// --- Tests ---

func TestHeatmapService_Bins(t *testing.T) {
	store := &mockStore{
		queryFn: func(ctx context.Context, start, end time.Time) ([]models.Observation, error) {
			if start.Format(models.DateLayout) != "2021-01-01" || end.Format(models.DateLayout) != "2021-12-31" {
				t.Errorf("unexpected range %v - %v", start, end)
			}
			obs := located("2021-03-01", 3.7, -5.2, 4)
			obs = append(obs, located("2021-03-01", 50.2, 8.9, 1)...)
			return obs, nil
		},
	}
	svc := service.NewHeatmapService(map[string]service.ObservationStore{"spider": store}, nil, 0, nil)

	resp, err := svc.Bins(context.Background(), "spider", query("2021-01-01", "2021-12-31", 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TotalBins != 2 || len(resp.Points) != 2 {
		t.Fatalf("expected 2 bins, got %+v", resp)
	}
	first := resp.Points[0]
	if first.LonBin != -6 || first.LatBin != 3 || first.Count != 4 {
		t.Errorf("unexpected hottest bin %+v", first)
	}
	if resp.Start != "2021-01-01" || resp.End != "2021-12-31" || resp.Grid != 1 {
		t.Errorf("unexpected echo fields %+v", resp)
	}
}

func TestHeatmapService_BinsEmpty(t *testing.T) {
	svc := service.NewHeatmapService(map[string]service.ObservationStore{"spider": &mockStore{}}, nil, 0, nil)

	resp, err := svc.Bins(context.Background(), "spider", query("2021-01-01", "2021-12-31", 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TotalBins != 0 || resp.Points == nil || len(resp.Points) != 0 {
		t.Errorf("expected empty bins, got %+v", resp)
	}
}

func TestHeatmapService_UnknownDataset(t *testing.T) {
	svc := service.NewHeatmapService(map[string]service.ObservationStore{}, nil, 0, nil)

	_, err := svc.Bins(context.Background(), "moths", query("2021-01-01", "2021-12-31", 1))
	if !errors.Is(err, models.ErrUnknownDataset) {
		t.Errorf("expected ErrUnknownDataset, got %v", err)
	}
	_, err = svc.Range(context.Background(), "moths")
	if !errors.Is(err, models.ErrUnknownDataset) {
		t.Errorf("expected ErrUnknownDataset, got %v", err)
	}
}

func TestHeatmapService_DataSourceFailure(t *testing.T) {
	store := &mockStore{
		queryFn: func(ctx context.Context, start, end time.Time) ([]models.Observation, error) {
			return nil, errors.New("database is locked")
		},
	}
	svc := service.NewHeatmapService(map[string]service.ObservationStore{"birdcollision": store}, nil, 0, nil)

	_, err := svc.Bins(context.Background(), "birdcollision", query("2021-01-01", "2021-12-31", 1))
	if !errors.Is(err, models.ErrDataSource) {
		t.Errorf("expected ErrDataSource, got %v", err)
	}
}

func TestHeatmapService_InvalidGrid(t *testing.T) {
	store := &mockStore{
		queryFn: func(ctx context.Context, start, end time.Time) ([]models.Observation, error) {
			return located("2021-03-01", 1, 1, 1), nil
		},
	}
	svc := service.NewHeatmapService(map[string]service.ObservationStore{"spider": store}, nil, 0, nil)

	_, err := svc.Bins(context.Background(), "spider", query("2021-01-01", "2021-12-31", 0))
	if !errors.Is(err, models.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestHeatmapService_Heat(t *testing.T) {
	store := &mockStore{
		queryFn: func(ctx context.Context, start, end time.Time) ([]models.Observation, error) {
			obs := located("2020-05-05", 10.5, 20.5, 12)
			obs = append(obs, located("2020-05-05", -33.9, 18.4, 30)...)
			obs = append(obs, located("2020-05-05", 0.5, 0.5, 9)...) // below noise floor
			return obs, nil
		},
	}
	svc := service.NewHeatmapService(map[string]service.ObservationStore{"caterpillar": store}, nil, 0, nil)

	resp, err := svc.Heat(context.Background(), "caterpillar", models.HeatQuery{
		BinQuery: query("2020-01-01", "2020-12-31", 1),
		Level:    2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TotalBins != 3 || resp.TotalPoints != 2 {
		t.Fatalf("expected 3 bins and 2 points, got %d and %d", resp.TotalBins, resp.TotalPoints)
	}
	if resp.Points[0].Count != 12 || resp.Points[1].Count != 30 {
		t.Errorf("points should ascend by count, got %+v", resp.Points)
	}
	base, factor, level := 0.014, 0.4, 2.0
	if resp.Points[0].Size != base*level*factor {
		t.Errorf("size = %v", resp.Points[0].Size)
	}
}

func TestHeatmapService_CachesBins(t *testing.T) {
	store := &mockStore{
		queryFn: func(ctx context.Context, start, end time.Time) ([]models.Observation, error) {
			return located("2021-03-01", 45.1, 7.6, 11), nil
		},
	}
	svc := service.NewHeatmapService(map[string]service.ObservationStore{"spider": store}, cache.NewMemory(16, time.Minute), time.Minute, nil)

	q := query("2021-01-01", "2021-12-31", 0.5)
	first, err := svc.Bins(context.Background(), "spider", q)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Bins(context.Background(), "spider", q)
	if err != nil {
		t.Fatal(err)
	}

	if store.calls != 1 {
		t.Errorf("expected one store read, got %d", store.calls)
	}
	if first.Points[0] != second.Points[0] || first.TotalBins != second.TotalBins {
		t.Errorf("cached response differs: %+v vs %+v", first, second)
	}

	if _, err := svc.Bins(context.Background(), "spider", query("2021-01-01", "2021-12-31", 1)); err != nil {
		t.Fatal(err)
	}
	if store.calls != 2 {
		t.Errorf("different grid must miss the cache, got %d reads", store.calls)
	}
}

func TestHeatmapService_Range(t *testing.T) {
	store := &mockStore{
		boundsFn: func(ctx context.Context) (string, string, int64, error) {
			return "2014-01-03", "2025-06-30", 812, nil
		},
	}
	svc := service.NewHeatmapService(map[string]service.ObservationStore{"spider": store, "birdcollision": &mockStore{}}, nil, 0, nil)

	r, err := svc.Range(context.Background(), "spider")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Start != "2014-01-03" || r.End != "2025-06-30" || r.Count != 812 || r.Dataset != "spider" {
		t.Errorf("unexpected range %+v", r)
	}

	names := svc.Datasets()
	if len(names) != 2 || names[0] != "birdcollision" || names[1] != "spider" {
		t.Errorf("Datasets = %v", names)
	}
}
