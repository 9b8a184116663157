package handlers

import (
	"net/http"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/middleware"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/service"
)

type SettingsHandler struct {
	Settings *service.SettingsService
}

type updateSettingsRequest struct {
	MaintenanceMode    bool   `json:"maintenanceMode"`
	MaintenanceMessage string `json:"maintenanceMessage"`
}

// Get is public so the storefront can render the maintenance banner.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.Settings.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.UserIDFromContext(r.Context())
	var req updateSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.Settings.Update(r.Context(), adminID, req.MaintenanceMode, req.MaintenanceMessage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
