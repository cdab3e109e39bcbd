package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/hongminglow/storefront-accounts/internal/errs"
	"github.com/hongminglow/storefront-accounts/internal/http/respond"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	return true
}

// respondServiceError maps the error taxonomy onto HTTP statuses. Storage
// faults are logged and reported without detail.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	if ve, ok := errs.AsValidation(err); ok {
		respond.Fields(w, "validation failed", ve.Fields)
		return
	}
	var conflict *errs.ConflictError
	switch {
	case errors.Is(err, errs.ErrAuthentication):
		respond.Error(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, errs.ErrAuthorization), errors.Is(err, errs.ErrNotFound):
		// Another user's record is indistinguishable from a missing one.
		respond.Error(w, http.StatusNotFound, "not found")
	case errors.As(err, &conflict):
		respond.Error(w, http.StatusConflict, conflict.Error())
	default:
		logger.Error("request failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
}

// chain applies middlewares so that the first one listed runs first.
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}
