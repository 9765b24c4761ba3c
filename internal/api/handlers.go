package api

import (
	"bytes"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"

	"ecomdash/internal/dashboard"
	"ecomdash/internal/geo"
	"ecomdash/internal/metrics"
	"ecomdash/internal/models"
	"ecomdash/internal/resource"
)

// Handler serves the dashboard. It starts empty and answers 503 until the
// background load calls SetService or SetLoadError.
type Handler struct {
	mu      sync.RWMutex
	svc     *dashboard.Service
	loadErr error
	metrics *metrics.Metrics
}

func NewHandler(svc *dashboard.Service, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, metrics: m}
}

func (h *Handler) SetService(svc *dashboard.Service) {
	h.mu.Lock()
	h.svc, h.loadErr = svc, nil
	h.mu.Unlock()
}

func (h *Handler) SetLoadError(err error) {
	h.mu.Lock()
	h.loadErr = err
	h.mu.Unlock()
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.GetHealth)
	e.GET("/geo.svg", h.GetGeoSVG)
	if h.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.metrics.Handler()))
	}

	api := e.Group("/api")
	api.GET("/range", h.GetRange)
	api.GET("/dashboard", h.GetDashboard)
	api.GET("/orders/daily", h.GetDailyOrders)
	api.GET("/spend/daily", h.GetDailySpend)
	api.GET("/categories", h.GetCategories)
	api.GET("/states", h.GetStates)
	api.GET("/geo", h.GetGeo)
}

func (h *Handler) service() (*dashboard.Service, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.loadErr != nil {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "dataset failed to load: "+h.loadErr.Error()).SetInternal(h.loadErr)
	}
	if h.svc == nil {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "dataset is loading")
	}
	return h.svc, nil
}

// httpError maps domain errors onto status codes.
func httpError(err error) error {
	var invalid *dashboard.InvalidRangeError
	var unavailable *resource.UnavailableError
	switch {
	case errors.As(err, &invalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	case errors.As(err, &unavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error()).SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
}

// --- HANDLERS ---
func getPaginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// prepare resolves the service and the requested range, and sets the ETag.
// done is true when the client copy is current and a 304 has been written.
func (h *Handler) prepare(c echo.Context) (svc *dashboard.Service, r models.DateRange, done bool, err error) {
	svc, err = h.service()
	if err != nil {
		return nil, r, false, err
	}
	def, _ := svc.DefaultRange()
	r, err = dashboard.ParseRange(c.QueryParam("start"), c.QueryParam("end"), def)
	if err != nil {
		return nil, r, false, httpError(err)
	}

	tag := svc.ETag(r)
	c.Response().Header().Set("ETag", tag)
	if c.Request().Header.Get("If-None-Match") == tag {
		return svc, r, true, c.NoContent(http.StatusNotModified)
	}
	return svc, r, false, nil
}

func (h *Handler) GetHealth(c echo.Context) error {
	h.mu.RLock()
	svc, loadErr := h.svc, h.loadErr
	h.mu.RUnlock()

	switch {
	case loadErr != nil:
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{"status": "failed", "error": loadErr.Error()})
	case svc == nil:
		return c.JSON(http.StatusOK, map[string]interface{}{"status": "loading"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ready",
		"orders": svc.Rows(),
		"points": svc.Points(),
	})
}

func (h *Handler) GetRange(c echo.Context) error {
	svc, err := h.service()
	if err != nil {
		return err
	}
	r, ok := svc.DefaultRange()
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no approved orders in dataset")
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) GetDashboard(c echo.Context) error {
	svc, r, done, err := h.prepare(c)
	if err != nil || done {
		return err
	}
	data, err := svc.Build(c.Request().Context(), r)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, data)
}

func (h *Handler) GetDailyOrders(c echo.Context) error {
	svc, r, done, err := h.prepare(c)
	if err != nil || done {
		return err
	}
	return c.JSON(http.StatusOK, svc.Aggregator(r).DailyOrders())
}

func (h *Handler) GetDailySpend(c echo.Context) error {
	svc, r, done, err := h.prepare(c)
	if err != nil || done {
		return err
	}
	return c.JSON(http.StatusOK, svc.Aggregator(r).DailySpend())
}

// categories, most sold first unless order=asc
func (h *Handler) GetCategories(c echo.Context) error {
	order := c.QueryParam("order")
	if order != "" && order != "asc" && order != "desc" {
		return echo.NewHTTPError(http.StatusBadRequest, "order must be asc or desc")
	}
	svc, r, done, err := h.prepare(c)
	if err != nil || done {
		return err
	}

	stats := svc.Aggregator(r).CategoryItemCounts()
	if order == "asc" {
		sort.SliceStable(stats, func(i, j int) bool { return stats[i].ProductCount < stats[j].ProductCount })
	}

	total := len(stats)
	limit, offset := getPaginationParams(c, total)
	if offset >= total {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"data":   []models.CategoryCount{},
			"total":  total,
			"limit":  limit,
			"offset": offset,
		})
	}
	end := min(offset+limit, total)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":   stats[offset:end],
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) GetStates(c echo.Context) error {
	svc, r, done, err := h.prepare(c)
	if err != nil || done {
		return err
	}
	states, mostCommon := svc.Aggregator(r).CustomersByState()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":              states,
		"most_common_state": mostCommon,
	})
}

type geoResponse struct {
	Width    float64       `json:"width"`
	Height   float64       `json:"height"`
	Commands *geo.Recorder `json:"commands"`
}

// GetGeo returns the overlay as draw commands for a client side renderer.
func (h *Handler) GetGeo(c echo.Context) error {
	svc, err := h.service()
	if err != nil {
		return err
	}
	rec := &geo.Recorder{}
	if err := svc.Overlay(rec); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error()).SetInternal(err)
	}
	style := svc.Style()
	return c.JSON(http.StatusOK, geoResponse{Width: style.Width, Height: style.Height, Commands: rec})
}

func (h *Handler) GetGeoSVG(c echo.Context) error {
	svc, err := h.service()
	if err != nil {
		return err
	}
	surface := geo.NewSVGSurface(svc.Style())
	if err := svc.Overlay(surface); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error()).SetInternal(err)
	}
	var buf bytes.Buffer
	if _, err := surface.WriteTo(&buf); err != nil {
		return httpError(err)
	}
	return c.Blob(http.StatusOK, "image/svg+xml", buf.Bytes())
}
