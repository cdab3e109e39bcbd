package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hongminglow/storefront-accounts/internal/http/respond"
	"github.com/hongminglow/storefront-accounts/internal/models/dto"
	"github.com/hongminglow/storefront-accounts/internal/service"
)

// AddressHandler exposes the caller's address book.
type AddressHandler struct {
	addresses *service.Addresses
	logger    *zap.Logger
}

func NewAddressHandler(addresses *service.Addresses, logger *zap.Logger) *AddressHandler {
	return &AddressHandler{addresses: addresses, logger: logger}
}

// Register attaches the address routes behind requireAuth.
func (h *AddressHandler) Register(mux *http.ServeMux, requireAuth func(http.Handler) http.Handler) {
	mux.Handle("GET /addresses", requireAuth(http.HandlerFunc(h.handleList)))
	mux.Handle("POST /addresses", requireAuth(http.HandlerFunc(h.handleCreate)))
	mux.Handle("GET /addresses/{id}", requireAuth(http.HandlerFunc(h.handleGet)))
	mux.Handle("PATCH /addresses/{id}", requireAuth(http.HandlerFunc(h.handleUpdate)))
	mux.Handle("DELETE /addresses/{id}", requireAuth(http.HandlerFunc(h.handleDelete)))
	mux.Handle("POST /addresses/{id}/default", requireAuth(http.HandlerFunc(h.handleSetDefault)))
}

func (h *AddressHandler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.addresses.List(r.Context(), callerID(r))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", list)
}

func (h *AddressHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req dto.AddressRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	created, err := h.addresses.Create(r.Context(), callerID(r), req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "address created", created)
}

func (h *AddressHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := addressID(w, r)
	if !ok {
		return
	}
	addr, err := h.addresses.Get(r.Context(), callerID(r), id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", addr)
}

func (h *AddressHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := addressID(w, r)
	if !ok {
		return
	}
	var req dto.AddressRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := h.addresses.Update(r.Context(), callerID(r), id, req)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "address updated", updated)
}

func (h *AddressHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := addressID(w, r)
	if !ok {
		return
	}
	if err := h.addresses.Delete(r.Context(), callerID(r), id); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respond.NoContent(w)
}

func (h *AddressHandler) handleSetDefault(w http.ResponseWriter, r *http.Request) {
	id, ok := addressID(w, r)
	if !ok {
		return
	}
	addr, err := h.addresses.SetDefault(r.Context(), callerID(r), id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "default address set", addr)
}

func addressID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respond.Error(w, http.StatusNotFound, "not found")
		return uuid.Nil, false
	}
	return id, true
}
