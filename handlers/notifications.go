package handlers

import (
	"net/http"
	"strconv"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/notify"
)

const defaultNotificationLimit = 100

type NotificationsHandler struct {
	Outbox *notify.Outbox
}

// List shows outbox entries, newest first, optionally filtered by status.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch models.NotificationStatus(status) {
	case "", models.NotificationPending, models.NotificationSent, models.NotificationDead:
	default:
		writeMessage(w, http.StatusBadRequest, "status must be pending, sent or dead")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > defaultNotificationLimit {
		limit = defaultNotificationLimit
	}
	list, err := h.Outbox.List(r.Context(), status, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Retry puts a dead notification back on the queue with a fresh attempt budget.
func (h *NotificationsHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "notification")
	if !ok {
		return
	}
	if err := h.Outbox.Retry(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": string(models.NotificationPending)})
}
