package api

import (
	"time"

	"github.com/labstack/echo/v4"

	models "ChochScan/internal/domain/models"
	"ChochScan/internal/service/metrics"
	"ChochScan/internal/usecase"
	xhttp "ChochScan/pkg/http"
	httpmid "ChochScan/pkg/http/middleware"
	xlogger "ChochScan/pkg/logger"
)

// AlertsEchoHandler serves the dashboard API.
type AlertsEchoHandler struct {
	logger *xlogger.Logger
	uc     *usecase.AlertsUseCase
	recent *RecentSignalsHandler
	live   echo.HandlerFunc
}

func NewAlertsEchoHandler(logger *xlogger.Logger, uc *usecase.AlertsUseCase, recent *RecentSignalsHandler) *AlertsEchoHandler {
	metrics.Register()
	return &AlertsEchoHandler{logger: logger, uc: uc, recent: recent}
}

// SetLiveFeed mounts the websocket live feed endpoint.
func (h *AlertsEchoHandler) SetLiveFeed(fn echo.HandlerFunc) { h.live = fn }

func (h *AlertsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/alerts", h.List)
	g.GET("/alerts/:id", h.Get)
	g.GET("/status", h.Status)
	if h.recent != nil {
		wrapped := httpmid.Metrics(h.logger, 500*time.Millisecond)(h.recent.Recent())
		g.GET("/signals/recent", echo.WrapHandler(wrapped))
	}
	if h.live != nil {
		e.GET("/ws/live", h.live)
	}
}

func (h *AlertsEchoHandler) List(c echo.Context) error {
	start := time.Now()
	defer func() {
		metrics.DashboardLatency.WithLabelValues("alerts").Observe(time.Since(start).Seconds())
	}()

	req := &models.ListAlertsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	page, err := h.uc.List(c.Request().Context(), req)
	if err != nil {
		metrics.DashboardErrors.WithLabelValues("alerts").Inc()
		h.logger.Error("alerts list error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, page.Alerts, int64(page.Total))
}

func (h *AlertsEchoHandler) Get(c echo.Context) error {
	req := &models.GetAlertRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	alert, err := h.uc.Get(c.Request().Context(), req.ID)
	if err != nil {
		metrics.DashboardErrors.WithLabelValues("alert").Inc()
		h.logger.Error("alert get error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if alert == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("alert %s not found", req.ID))
	}
	return xhttp.SuccessResponse(c, alert)
}

func (h *AlertsEchoHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.uc.Status(c.Request().Context()))
}
