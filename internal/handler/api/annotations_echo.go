package api

import (
	"errors"
	"time"

	"ChartMarks/internal/domain/models"
	"ChartMarks/internal/usecase"
	xhttp "ChartMarks/pkg/http"
	xlogger "ChartMarks/pkg/logger"
	"ChartMarks/pkg/util"

	"github.com/labstack/echo/v4"
)

// AnnotationsEchoHandler serves key levels and overlays over HTTP.
type AnnotationsEchoHandler struct {
	logger  *xlogger.Logger
	uc      *usecase.AnnotationsUseCase
	maxWait time.Duration
}

// NewAnnotationsEchoHandler creates the handler. Waiting reads are capped at
// maxWait so they finish inside the server write timeout.
func NewAnnotationsEchoHandler(logger *xlogger.Logger, uc *usecase.AnnotationsUseCase, maxWait time.Duration) *AnnotationsEchoHandler {
	return &AnnotationsEchoHandler{logger: logger, uc: uc, maxWait: maxWait}
}

func (h *AnnotationsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.PUT("/levels/:symbol", h.PutLevels)
	g.GET("/levels/:symbol", h.GetLevels)
	g.GET("/levels/:symbol/wait", h.WaitLevels)
	g.PUT("/overlays/:symbol", h.PutOverlays)
	g.GET("/overlays/:symbol", h.GetOverlays)
	g.POST("/analyses", h.RequestAnalysis)
}

func (h *AnnotationsEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status": "ok",
		"caches": h.uc.Stats(),
	})
}

func (h *AnnotationsEchoHandler) PutLevels(c echo.Context) error {
	req := &models.PutLevelsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	e := h.uc.PutLevels(c.Request().Context(), req.Symbol, req.Supports, req.Resistances, req.Meta)
	return xhttp.SuccessResponse(c, e)
}

func (h *AnnotationsEchoHandler) GetLevels(c echo.Context) error {
	req := &models.GetLevelsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	maxAge, err := optionalSeconds(req.MaxAge)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("max_age", err.Error()))
	}

	e, ok := h.uc.GetLevels(usecase.LookupParams{Symbol: req.Symbol, MaxAge: maxAge})
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no levels for %s", models.NormalizeSymbol(req.Symbol)))
	}
	return xhttp.SuccessResponse(c, e)
}

func (h *AnnotationsEchoHandler) WaitLevels(c echo.Context) error {
	req := &models.WaitLevelsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	timeout, err := optionalSeconds(req.Timeout)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("timeout", err.Error()))
	}
	poll, err := optionalSeconds(req.Poll)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("poll", err.Error()))
	}

	e, ok := h.uc.WaitLevels(c.Request().Context(), usecase.WaitParams{
		Symbol:     req.Symbol,
		Timeout:    timeout,
		Poll:       poll,
		MaxTimeout: h.maxWait,
	})
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no levels for %s", models.NormalizeSymbol(req.Symbol)))
	}
	return xhttp.SuccessResponse(c, e)
}

func (h *AnnotationsEchoHandler) PutOverlays(c echo.Context) error {
	req := &models.PutOverlaysRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	e := h.uc.PutOverlays(c.Request().Context(), req.Symbol, req.Overlays, req.Meta)
	return xhttp.SuccessResponse(c, e)
}

func (h *AnnotationsEchoHandler) GetOverlays(c echo.Context) error {
	req := &models.GetOverlaysRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	maxAge, err := optionalSeconds(req.MaxAge)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("max_age", err.Error()))
	}

	e, ok := h.uc.GetOverlays(usecase.LookupParams{Symbol: req.Symbol, MaxAge: maxAge})
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no overlays for %s", models.NormalizeSymbol(req.Symbol)))
	}
	return xhttp.SuccessResponse(c, e)
}

func (h *AnnotationsEchoHandler) RequestAnalysis(c echo.Context) error {
	req := &models.AnalysisHTTPRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	queued, err := h.uc.RequestAnalysis(c.Request().Context(), models.AnalysisRequest{
		Symbol:    req.Symbol,
		Timeframe: req.TF,
		Bars:      req.N,
	})
	switch {
	case err == nil:
		return xhttp.AcceptedResponse(c, queued)
	case errors.Is(err, usecase.ErrEmptySymbol):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("symbol", err.Error()))
	case errors.Is(err, usecase.ErrRateLimited):
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError(err.Error()).WithParam("symbol", queued.Symbol))
	case errors.Is(err, usecase.ErrQueueDisabled):
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError(err.Error()))
	default:
		h.logger.Error("enqueue analysis failed", xlogger.String("symbol", queued.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("could not enqueue analysis").WithError(err))
	}
}

func optionalSeconds(s string) (*time.Duration, error) {
	if s == "" {
		return nil, nil
	}
	d, err := util.ParseSeconds(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
