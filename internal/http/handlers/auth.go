package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/hongminglow/storefront-accounts/internal/auth"
	"github.com/hongminglow/storefront-accounts/internal/http/respond"
	"github.com/hongminglow/storefront-accounts/internal/models/dto"
	"github.com/hongminglow/storefront-accounts/internal/service"
)

// RouteLimits optionally throttles the public auth endpoints. Nil entries disable limiting.
type RouteLimits struct {
	Register func(http.Handler) http.Handler
	Login    func(http.Handler) http.Handler
}

// AuthHandler owns register/login endpoints.
type AuthHandler struct {
	accounts *service.Accounts
	tokens   *auth.TokenManager
	logger   *zap.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(accounts *service.Accounts, tokens *auth.TokenManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, tokens: tokens, logger: logger}
}

// Register attaches auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux, limits RouteLimits) {
	mux.Handle("POST /register", chain(http.HandlerFunc(h.handleRegister), limits.Register))
	mux.Handle("POST /login", chain(http.HandlerFunc(h.handleLogin), limits.Login))
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	created, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "user created successfully", created)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.accounts.Authenticate(r.Context(), req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	token, err := h.tokens.Generate(user)
	if err != nil {
		h.logger.Error("generate token", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respond.JSON(w, http.StatusOK, "login successful", dto.LoginResponse{Token: token, User: user})
}
