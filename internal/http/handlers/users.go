package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hongminglow/storefront-accounts/internal/errs"
	"github.com/hongminglow/storefront-accounts/internal/http/respond"
	"github.com/hongminglow/storefront-accounts/internal/service"
)

// UserHandler serves the staff-only account listing.
type UserHandler struct {
	accounts *service.Accounts
	logger   *zap.Logger
}

func NewUserHandler(accounts *service.Accounts, logger *zap.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, logger: logger}
}

func (h *UserHandler) Register(mux *http.ServeMux, requireAuth func(http.Handler) http.Handler) {
	mux.Handle("GET /users", requireAuth(http.HandlerFunc(h.handleList)))
}

func (h *UserHandler) handleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.ListUsers(r.Context(), callerID(r))
	if err != nil {
		// Unlike address lookups, the route's existence is no secret.
		if errors.Is(err, errs.ErrAuthorization) {
			respond.Error(w, http.StatusForbidden, "permission denied")
			return
		}
		respondServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", users)
}
