package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/hongminglow/storefront-accounts/internal/http/respond"
	"github.com/hongminglow/storefront-accounts/internal/service"
)

// GroupHandler lists the active customer groups.
type GroupHandler struct {
	groups *service.Groups
	logger *zap.Logger
}

func NewGroupHandler(groups *service.Groups, logger *zap.Logger) *GroupHandler {
	return &GroupHandler{groups: groups, logger: logger}
}

func (h *GroupHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /customer-groups", h.handleList)
}

func (h *GroupHandler) handleList(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groups.ListActive(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", groups)
}
