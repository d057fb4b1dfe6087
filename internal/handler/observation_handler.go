package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/globe-observations/internal/models"
	"github.com/jengzang/globe-observations/internal/service"
	"github.com/jengzang/globe-observations/pkg/response"
)

const (
	msgMissingRange = "Parameters 'start' and 'end' are required (YYYY-MM-DD)."
	msgQueryFailed  = "Database query failed."
)

// ObservationHandler handles HTTP requests for binned observation datasets
type ObservationHandler struct {
	service *service.HeatmapService
	logger  *slog.Logger
}

// NewObservationHandler creates a new observation handler
func NewObservationHandler(service *service.HeatmapService, logger *slog.Logger) *ObservationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ObservationHandler{service: service, logger: logger.With("component", "handler")}
}

// GetBins handles GET /{dataset}
func (h *ObservationHandler) GetBins(dataset string) gin.HandlerFunc {
	return func(c *gin.Context) {
		q, ok := h.bindQuery(c)
		if !ok {
			return
		}

		resp, err := h.service.Bins(c.Request.Context(), dataset, q.BinQuery)
		if err != nil {
			h.fail(c, err)
			return
		}
		response.Success(c, resp)
	}
}

// GetHeat handles GET /{dataset}/heat
func (h *ObservationHandler) GetHeat(dataset string) gin.HandlerFunc {
	return func(c *gin.Context) {
		q, ok := h.bindQuery(c)
		if !ok {
			return
		}

		resp, err := h.service.Heat(c.Request.Context(), dataset, q)
		if err != nil {
			h.fail(c, err)
			return
		}
		response.Success(c, resp)
	}
}

// GetRange handles GET /{dataset}/range
func (h *ObservationHandler) GetRange(dataset string) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := h.service.Range(c.Request.Context(), dataset)
		if err != nil {
			h.fail(c, err)
			return
		}
		response.Success(c, r)
	}
}

// ListDatasets handles GET /datasets
func (h *ObservationHandler) ListDatasets(c *gin.Context) {
	names := h.service.Datasets()
	response.Success(c, gin.H{
		"datasets": names,
		"count":    len(names),
	})
}

func (h *ObservationHandler) bindQuery(c *gin.Context) (models.HeatQuery, bool) {
	var filter models.BinFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters.")
		return models.HeatQuery{}, false
	}

	q, err := service.ParseBinFilter(filter)
	if err != nil {
		h.fail(c, err)
		return models.HeatQuery{}, false
	}
	return q, true
}

// fail maps service errors onto status codes. Data source details stay in
// the log.
func (h *ObservationHandler) fail(c *gin.Context, err error) {
	c.Error(err)

	switch {
	case errors.Is(err, models.ErrMissingDateRange):
		response.BadRequest(c, msgMissingRange)
	case errors.Is(err, models.ErrInvalidParameter):
		response.BadRequest(c, err.Error())
	case errors.Is(err, models.ErrUnknownDataset):
		response.NotFound(c, err.Error())
	default:
		if !errors.Is(err, models.ErrDataSource) {
			h.logger.Error("unexpected error", "path", c.FullPath(), "error", err)
		}
		response.InternalError(c, msgQueryFailed)
	}
}
