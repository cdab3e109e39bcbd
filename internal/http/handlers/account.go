package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hongminglow/storefront-accounts/internal/http/respond"
	"github.com/hongminglow/storefront-accounts/internal/middleware"
	"github.com/hongminglow/storefront-accounts/internal/models/dto"
	"github.com/hongminglow/storefront-accounts/internal/service"
)

// AccountHandler serves the authenticated caller's own account.
type AccountHandler struct {
	accounts *service.Accounts
	logger   *zap.Logger
}

func NewAccountHandler(accounts *service.Accounts, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

// Register attaches the /me routes behind requireAuth.
func (h *AccountHandler) Register(mux *http.ServeMux, requireAuth func(http.Handler) http.Handler) {
	mux.Handle("GET /me", requireAuth(http.HandlerFunc(h.handleGet)))
	mux.Handle("PATCH /me", requireAuth(http.HandlerFunc(h.handleUpdate)))
	mux.Handle("POST /me/password", requireAuth(http.HandlerFunc(h.handleChangePassword)))
}

func (h *AccountHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	self, err := h.accounts.GetSelf(r.Context(), callerID(r))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", self)
}

func (h *AccountHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateSelfRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	self, err := h.accounts.UpdateSelf(r.Context(), callerID(r), req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "account updated", self)
}

func (h *AccountHandler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.accounts.ChangePassword(r.Context(), callerID(r), req); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "password updated successfully", nil)
}

// callerID is only valid behind RequireAuth.
func callerID(r *http.Request) uuid.UUID {
	id, _ := middleware.UserID(r.Context())
	return id
}
