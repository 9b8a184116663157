package handlers

import (
	"net/http"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/service"
)

type UsersHandler struct {
	Auth *service.AuthService
}

type roleRequest struct {
	Role string `json:"role"`
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Auth.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// ChangeRole promotes or demotes a user. The last admin cannot be demoted.
func (h *UsersHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "user")
	if !ok {
		return
	}
	var req roleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.Auth.ChangeRole(r.Context(), id, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
