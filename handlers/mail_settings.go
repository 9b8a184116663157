package handlers

import (
	"net/http"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/service"
)

type MailSettingsHandler struct {
	Mail *service.MailSettingsService
}

// Get returns the saved SMTP account without its password.
func (h *MailSettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Mail.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// Save creates or replaces the SMTP account. An empty password keeps the
// stored one.
func (h *MailSettingsHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req service.MailSettingsInput
	if !decodeJSON(w, r, &req) {
		return
	}
	cfg, err := h.Mail.Save(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}
