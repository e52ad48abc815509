package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	models "PairDesk/internal/domain/models"
	domrepo "PairDesk/internal/domain/repository"
	"PairDesk/internal/service/metrics"
	"PairDesk/internal/service/ratelimit"
	"PairDesk/internal/services/pairs"
	"PairDesk/internal/usecase"
	xhttp "PairDesk/pkg/http"
	xlogger "PairDesk/pkg/logger"
)

// Simulator runs a single pair trade simulation.
type Simulator interface {
	Simulate(ctx context.Context, req models.SimulationRequest) (*models.SimulationReport, error)
}

// QuoteSource serves the latest quote of a symbol.
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (models.Quote, error)
}

// PairsEchoHandler serves the pairs analysis, export, simulation and quote endpoints.
type PairsEchoHandler struct {
	logger    *xlogger.Logger
	analyzer  usecase.Analyzer
	simulator Simulator
	quotes    QuoteSource
	rl        *ratelimit.Limiter
	capacity  float64
	refill    float64
}

type HandlerOption func(*PairsEchoHandler)

// WithRateLimit sets the per-address token bucket. A capacity of 0 disables limiting.
func WithRateLimit(capacity int, refillPerSec float64) HandlerOption {
	return func(h *PairsEchoHandler) {
		h.capacity = float64(capacity)
		h.refill = refillPerSec
	}
}

func NewPairsEchoHandler(logger *xlogger.Logger, analyzer usecase.Analyzer, simulator Simulator, quotes QuoteSource, opts ...HandlerOption) *PairsEchoHandler {
	metrics.Register()
	if logger == nil {
		logger = xlogger.Nop()
	}
	h := &PairsEchoHandler{
		logger:    logger,
		analyzer:  analyzer,
		simulator: simulator,
		quotes:    quotes,
		rl:        ratelimit.New(),
		capacity:  30,
		refill:    5,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *PairsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api", h.rateLimit)
	g.GET("/pairs/analysis", h.Analysis)
	g.GET("/pairs/export", h.Export)
	g.POST("/pairs/simulate", h.Simulate)
	g.GET("/quotes", h.Quote)
}

// Limiter exposes the rate limiter so idle buckets can be pruned.
func (h *PairsEchoHandler) Limiter() *ratelimit.Limiter { return h.rl }

func (h *PairsEchoHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.capacity > 0 && !h.rl.Allow(c.RealIP(), h.capacity, h.refill) {
			h.logger.Warn("pairs rate_limited", xlogger.String("remote", c.RealIP()), xlogger.String("path", c.Path()))
			metrics.EndpointErrors.WithLabelValues("rate_limit").Inc()
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many requests"))
		}
		return next(c)
	}
}

func observe(endpoint string, start time.Time) {
	metrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func (h *PairsEchoHandler) Analysis(c echo.Context) error {
	defer observe("analysis", time.Now())
	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.analyzer.Analyze(c.Request().Context(), *req)
	if err != nil {
		metrics.EndpointErrors.WithLabelValues("analysis").Inc()
		h.logger.Error("analysis usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	metrics.SignalsByKind.WithLabelValues(res.Analysis.Signal.String()).Inc()
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

func (h *PairsEchoHandler) Export(c echo.Context) error {
	defer observe("export", time.Now())
	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.analyzer.Analyze(c.Request().Context(), *req)
	if err != nil {
		metrics.EndpointErrors.WithLabelValues("export").Inc()
		h.logger.Error("export usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	if !res.Loaded {
		return xhttp.AppErrorResponse(c, xhttp.UnprocessableError("ERR_NO_DATA", "no aligned data to export").
			WithParam("status", res.Status))
	}

	filename := fmt.Sprintf("%s_%s_%s.csv", res.First, res.Second, res.Period)
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	c.Response().WriteHeader(http.StatusOK)
	if err := pairs.WriteCSV(c.Response(), res.First, res.Second, res.Reference, res.Rows); err != nil {
		h.logger.Warn("export write_error", xlogger.Error(err))
	}
	return nil
}

func (h *PairsEchoHandler) Simulate(c echo.Context) error {
	defer observe("simulate", time.Now())
	req := &models.SimulationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.simulator.Simulate(c.Request().Context(), *req)
	if err != nil {
		metrics.EndpointErrors.WithLabelValues("simulate").Inc()
		h.logger.Warn("simulate usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PairsEchoHandler) Quote(c echo.Context) error {
	defer observe("quote", time.Now())
	req := &models.QuoteRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	q, err := h.quotes.GetQuote(c.Request().Context(), req.Symbol)
	if err != nil && !errors.Is(err, domrepo.ErrNotFound) {
		metrics.EndpointErrors.WithLabelValues("quote").Inc()
		h.logger.Error("quote provider error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	if err != nil {
		// unknown symbols render as N/A
		q = models.Quote{Symbol: req.Symbol, Price: models.NA()}
	}
	return xhttp.SuccessResponse(c, q)
}

func mapError(err error) error {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, usecase.ErrNoSignal):
		return xhttp.UnprocessableError("ERR_NO_SIGNAL", "waiting for a valid signal").WithError(err)
	case errors.Is(err, usecase.ErrLotMultiple):
		e := xhttp.BadRequestError(err.Error())
		e.Field = "ref_qty"
		return e
	case errors.Is(err, domrepo.ErrNotFound):
		return xhttp.NotFoundError(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.BadGatewayError("upstream timeout").WithError(err)
	default:
		return xhttp.InternalError(err.Error())
	}
}
