package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"FinCast/internal/domain/models"
	"FinCast/internal/services/forecast"
	"FinCast/internal/usecase"
	xhttp "FinCast/pkg/http"
	xlogger "FinCast/pkg/logger"
)

// HealthChecker is implemented by infrastructure the service depends on.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// ForecastResponse is the success payload of both forecast endpoints.
type ForecastResponse struct {
	ID                 string                 `json:"id"`
	ForecastedIncome   []float64              `json:"forecasted_income"`
	ForecastedExpenses []float64              `json:"forecasted_expenses"`
	Periods            []string               `json:"periods,omitempty"`
	Summary            models.ForecastSummary `json:"summary"`
	Scaling            string                 `json:"scaling"`
}

// ForecastEchoHandler serves forecasts over HTTP.
type ForecastEchoHandler struct {
	logger *xlogger.Logger
	uc     *usecase.ForecastUseCase
	health map[string]HealthChecker
}

func NewForecastEchoHandler(logger *xlogger.Logger, uc *usecase.ForecastUseCase) *ForecastEchoHandler {
	return &ForecastEchoHandler{logger: logger, uc: uc, health: make(map[string]HealthChecker)}
}

// AddHealthCheck registers a dependency reported by /healthz.
func (h *ForecastEchoHandler) AddHealthCheck(name string, c HealthChecker) {
	if c != nil {
		h.health[name] = c
	}
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/forecast", h.Forecast)
	g.GET("/users/:user_id/forecast", h.UserForecast)
	g.GET("/model", h.Model)
	e.GET("/healthz", h.Healthz)
}

func (h *ForecastEchoHandler) Forecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	if appErr := xhttp.BindAndValidate(c, req); appErr != nil {
		return xhttp.ErrorResponse(c, appErr)
	}

	res, err := h.uc.ForecastWindows(c.Request().Context(), usecase.ForecastWindowsParams{
		Income:     req.Income,
		Expenses:   req.Expenses,
		Order:      req.Order,
		LastPeriod: req.LastPeriod,
	})
	if err != nil {
		return xhttp.ErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, NewForecastResponse(res))
}

func (h *ForecastEchoHandler) UserForecast(c echo.Context) error {
	req := &models.UserForecastRequest{}
	if appErr := xhttp.BindAndValidate(c, req); appErr != nil {
		return xhttp.ErrorResponse(c, appErr)
	}

	res, err := h.uc.ForecastUser(c.Request().Context(), req.UserID, req.AsOf)
	if err != nil {
		return xhttp.ErrorResponse(c, toAppError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, NewForecastResponse(res))
}

func (h *ForecastEchoHandler) Model(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.uc.ModelInfo())
}

func (h *ForecastEchoHandler) Healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.health))
	status := http.StatusOK
	for name, hc := range h.health {
		if err := hc.Health(ctx); err != nil {
			h.logger.Warn("health check failed", xlogger.String("dependency", name), xlogger.Error(err))
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	return c.JSON(status, map[string]interface{}{"status": state, "checks": checks})
}

// NewForecastResponse converts a use case result to its wire shape.
func NewForecastResponse(res *models.ForecastResult) ForecastResponse {
	return ForecastResponse{
		ID:                 res.ID,
		ForecastedIncome:   res.Income,
		ForecastedExpenses: res.Expenses,
		Periods:            res.Periods,
		Summary:            res.Summary,
		Scaling:            res.ScalingMode,
	}
}

// toAppError maps forecast failures to HTTP statuses. Messages of
// client-side failures are passed through; server-side ones are not.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, forecast.ErrInsufficientHistory):
		return xhttp.UnprocessableError(err.Error()).WithError(err)
	case errors.Is(err, forecast.ErrInvalidInput):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, forecast.ErrInferenceFailure):
		return xhttp.InternalError("inference failed").WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.UnavailableError("forecast timed out").WithError(err)
	case errors.Is(err, usecase.ErrLedgerUnavailable):
		return xhttp.UnavailableError("ledger unavailable").WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
