package errors

import (
	"net/http"
	"strconv"

	"github.com/feuc/declaraciones/internal/http/render"
	"github.com/feuc/declaraciones/internal/observability/logger"
	"github.com/feuc/declaraciones/internal/session"
)

// Writer renderiza la página de error que corresponde a err.
type Writer struct {
	pages *render.Renderer
}

func NewWriter(pages *render.Renderer) *Writer {
	return &Writer{pages: pages}
}

// Write escribe la página de error. La página siempre lleva las marcas del
// principal actual para el menú.
func (wr *Writer) Write(w http.ResponseWriter, r *http.Request, err error) {
	appErr := FromError(err)
	if appErr == nil {
		appErr = ErrInternal
	}

	log := logger.From(r.Context())
	switch {
	case appErr.HTTPStatus >= 500:
		log.Error("request failed", logger.Status(appErr.HTTPStatus), logger.Err(appErr.Err))
	case appErr.Err != nil:
		log.Debug("request rejected", logger.Status(appErr.HTTPStatus), logger.Err(appErr.Err))
	}

	page := render.Page{
		Title: appErr.Message,
		User:  session.PrincipalFrom(r.Context()),
	}
	if appErr.HTTPStatus == http.StatusBadRequest {
		page.Data = appErr.Message
	}

	name := strconv.Itoa(appErr.HTTPStatus)
	if wr.pages == nil || !wr.pages.Has(name) {
		http.Error(w, appErr.Message, appErr.HTTPStatus)
		return
	}
	if err := wr.pages.HTML(w, appErr.HTTPStatus, name, page); err != nil {
		log.Error("render error page", logger.Err(err))
		http.Error(w, appErr.Message, appErr.HTTPStatus)
	}
}

// Status escribe la página de error de un status conocido.
func (wr *Writer) Status(w http.ResponseWriter, r *http.Request, status int) {
	switch status {
	case http.StatusForbidden:
		wr.Write(w, r, ErrForbidden)
	case http.StatusNotFound:
		wr.Write(w, r, ErrNotFound)
	case http.StatusTooManyRequests:
		wr.Write(w, r, ErrRateLimited)
	case http.StatusBadRequest:
		wr.Write(w, r, ErrEmailUnavailable)
	default:
		wr.Write(w, r, ErrInternal)
	}
}
