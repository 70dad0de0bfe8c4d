package api

import (
	"errors"

	"github.com/labstack/echo/v4"

	"BotRadar/internal/domain/models"
	"BotRadar/internal/usecase"
	xhttp "BotRadar/pkg/http"
	xlogger "BotRadar/pkg/logger"
)

// ActorsHandler exposes the actor catalog over HTTP.
type ActorsHandler struct {
	logger *xlogger.Logger
	uc     *usecase.ActorsUseCase
	feed   *usecase.ClassificationFeed
	mw     []echo.MiddlewareFunc
}

// NewActorsHandler registers /api routes; mw is applied to the group only.
// feed may be nil.
func NewActorsHandler(logger *xlogger.Logger, uc *usecase.ActorsUseCase, feed *usecase.ClassificationFeed, mw ...echo.MiddlewareFunc) *ActorsHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &ActorsHandler{logger: logger.Component("api"), uc: uc, feed: feed, mw: mw}
}

func (h *ActorsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api", h.mw...)
	g.GET("/actors", h.List)
	g.GET("/actors/:id", h.Get)
	g.GET("/actors/:id/history", h.History)
	g.GET("/stats", h.Stats)
	g.GET("/classifications/recent", h.RecentClassifications)
}

func (h *ActorsHandler) List(c echo.Context) error {
	req := &models.ActorsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.uc.List(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("list actors", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, res.Rows, res.Total)
}

func (h *ActorsHandler) Get(c echo.Context) error {
	req := &models.ActorRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	actor, err := h.uc.Get(c.Request().Context(), req.ID)
	if err != nil {
		return xhttp.AppErrorResponse(c, h.mapError(err, req.ID))
	}
	return xhttp.SuccessResponse(c, actor)
}

func (h *ActorsHandler) History(c echo.Context) error {
	req := &models.ActorHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.uc.History(c.Request().Context(), req.ID, req.Limit)
	if err != nil {
		return xhttp.AppErrorResponse(c, h.mapError(err, req.ID))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *ActorsHandler) Stats(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.uc.Stats(c.Request().Context()))
}

func (h *ActorsHandler) RecentClassifications(c echo.Context) error {
	req := &models.RecentClassificationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	evs, err := h.feed.Recent(c.Request().Context(), req.Limit)
	if err != nil {
		return xhttp.AppErrorResponse(c, h.mapError(err, ""))
	}
	return xhttp.ListResponse(c, evs, int64(len(evs)))
}

func (h *ActorsHandler) mapError(err error, id string) error {
	switch {
	case errors.Is(err, usecase.ErrActorNotFound):
		return xhttp.NotFoundErrorf("actor %s not found", id).WithParam("id", id)
	case errors.Is(err, usecase.ErrHistoryUnavailable):
		return xhttp.UnavailableErrorf("actor history is not enabled")
	case errors.Is(err, usecase.ErrFeedUnavailable):
		return xhttp.UnavailableErrorf("classification feed requires the redis output backend")
	default:
		h.logger.Error("actor query", xlogger.String("id", id), xlogger.Error(err))
		return xhttp.InternalErrorf("actor query failed").WithError(err)
	}
}
