package api

import (
	"net/http"
	"time"

	models "StreetPull/internal/domain/models"
	domrepo "StreetPull/internal/domain/repository"
	"StreetPull/internal/usecase"
	xhttp "StreetPull/pkg/http"
	xlogger "StreetPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// NewsEchoHandler exposes the archive and the latest batch summary over HTTP
// when running in daemon mode.
type NewsEchoHandler struct {
	logger  *xlogger.Logger
	batch   *usecase.Batch
	archive domrepo.Archive
}

func NewNewsEchoHandler(logger *xlogger.Logger, batch *usecase.Batch, archive domrepo.Archive) *NewsEchoHandler {
	return &NewsEchoHandler{logger: logger, batch: batch, archive: archive}
}

func (h *NewsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/news", h.News)
	g.GET("/summary", h.Summary)
	e.GET("/healthz", h.Health)
}

// News queries archived stories for one ticker within an optional time range.
func (h *NewsEchoHandler) News(c echo.Context) error {
	req := &models.NewsQueryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	to := xhttp.ParseTimeDefault(req.To, time.Now())
	from := xhttp.ParseTimeDefault(req.From, to.AddDate(0, 0, -30))
	from, to = xhttp.DayBounds(from, to)

	items, err := h.archive.Query(c.Request().Context(), req.Ticker, from, to, req.Limit)
	if err != nil {
		h.logger.Error("archive query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, items, int64(len(items)))
}

// Summary returns the summary of the most recent completed batch run.
func (h *NewsEchoHandler) Summary(c echo.Context) error {
	req := &models.SummaryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	summary := h.batch.LastSummary()
	if summary == nil {
		return xhttp.NotFoundResponse(c, "no completed run yet")
	}
	return xhttp.SuccessResponse(c, summary)
}

// Health reports archive connectivity.
func (h *NewsEchoHandler) Health(c echo.Context) error {
	if err := h.archive.Health(c.Request().Context()); err != nil {
		h.logger.Error("health check failed", xlogger.Error(err))
		appErr := xhttp.NewAppError("ERR_UNAVAILABLE", "", "archive unavailable", http.StatusServiceUnavailable).WithError(err)
		return xhttp.AppErrorResponse(c, appErr)
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}
