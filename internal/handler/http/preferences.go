package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DhruvK0/fynspo-mobile-sub000/internal/domain"
	"github.com/DhruvK0/fynspo-mobile-sub000/internal/service"
	"github.com/DhruvK0/fynspo-mobile-sub000/pkg/httputil"
	"github.com/DhruvK0/fynspo-mobile-sub000/pkg/validator"
)

// PreferenceHandler handles HTTP requests for preference endpoints.
type PreferenceHandler struct {
	service *service.PreferenceService
	logger  *slog.Logger
}

// NewPreferenceHandler creates a new preference HTTP handler.
func NewPreferenceHandler(svc *service.PreferenceService, logger *slog.Logger) *PreferenceHandler {
	return &PreferenceHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// SetItemStateRequest is the JSON request body for updating an item's
// membership. Both flags must be sent explicitly.
type SetItemStateRequest struct {
	Item       domain.Item `json:"item"`
	IsFavorite *bool       `json:"is_favorite" validate:"required"`
	IsInCart   *bool       `json:"is_in_cart" validate:"required"`
}

// SaveFilterStateRequest is the JSON request body for saving filters.
type SaveFilterStateRequest struct {
	Sort    string         `json:"sort" validate:"max=64"`
	Filters domain.Filters `json:"filters"`
}

// --- Handlers ---

// GetAllItemStates handles GET /api/v1/prefs/items
func (h *PreferenceHandler) GetAllItemStates(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.GetAllItemStates(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, snap)
}

// GetItemState handles GET /api/v1/prefs/items/{itemId}
func (h *PreferenceHandler) GetItemState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "itemId")

	state, err := h.service.GetItemState(r.Context(), domain.Item{ID: id})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, state)
}

// SetItemState handles PUT /api/v1/prefs/items/{itemId}
func (h *PreferenceHandler) SetItemState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "itemId")

	var req SetItemStateRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	item := req.Item
	if item.ID == "" {
		item.ID = id
	}
	if item.ID != id {
		httputil.WriteProblem(w, http.StatusBadRequest, "INVALID_INPUT", "item id does not match path")
		return
	}

	if err := h.service.SetItemState(r.Context(), item, *req.IsFavorite, *req.IsInCart); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	category := item.Category
	httputil.WriteData(w, domain.ItemState{
		IsFavorite: *req.IsFavorite,
		IsInCart:   *req.IsInCart,
		Category:   &category,
	})
}

// ClearCart handles DELETE /api/v1/prefs/cart
func (h *PreferenceHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearCart(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteNoContent(w)
}

// GetFilterState handles GET /api/v1/prefs/filters
func (h *PreferenceHandler) GetFilterState(w http.ResponseWriter, r *http.Request) {
	filters, err := h.service.GetFilterState(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, filters)
}

// SaveFilterState handles PUT /api/v1/prefs/filters
func (h *PreferenceHandler) SaveFilterState(w http.ResponseWriter, r *http.Request) {
	var req SaveFilterStateRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	filters := domain.FilterState{Sort: req.Sort, Filters: req.Filters}
	if err := h.service.SaveFilterState(r.Context(), filters); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	filters.Normalize()
	httputil.WriteData(w, filters)
}

// ClearAllData handles DELETE /api/v1/prefs
func (h *PreferenceHandler) ClearAllData(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearAllData(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteNoContent(w)
}
