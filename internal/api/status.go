package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/johnwards/devicetree/internal/platform"
	"github.com/johnwards/devicetree/internal/session"
	"github.com/johnwards/devicetree/internal/store"
	"github.com/johnwards/devicetree/internal/tree"
)

// WriteDomainError maps an error from the store, tree, session or platform
// layers to an HTTP status and error envelope.
func WriteDomainError(w http.ResponseWriter, corrID string, err error) {
	var statusErr *platform.StatusError
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, tree.ErrNodeNotFound),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, platform.ErrNotFound):
		WriteError(w, http.StatusNotFound, NewNotFoundError(err.Error(), corrID))
	case errors.Is(err, store.ErrConflict):
		WriteError(w, http.StatusConflict, NewConflictError(err.Error(), corrID))
	case errors.Is(err, tree.ErrBusy):
		WriteError(w, http.StatusConflict, NewBusyError(err.Error(), corrID))
	case errors.Is(err, context.DeadlineExceeded):
		WriteError(w, http.StatusGatewayTimeout, NewUpstreamError(err.Error(), corrID))
	case errors.As(err, &statusErr), errors.Is(err, platform.ErrUnsupportedType):
		WriteError(w, http.StatusBadGateway, NewUpstreamError(err.Error(), corrID))
	default:
		slog.Error("request failed", "error", err, "correlationId", corrID)
		e := NewInternalError(corrID)
		e.Message = err.Error()
		WriteError(w, http.StatusInternalServerError, e)
	}
}
