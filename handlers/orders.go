package handlers

import (
	"net/http"
	"strconv"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/middleware"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/service"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/store"
)

type OrdersHandler struct {
	Orders *service.OrderService
}

type statusRequest struct {
	Status string `json:"status"`
}

type receiptRequest struct {
	ReceiptImage string `json:"receiptImage"`
}

func (h *OrdersHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var in service.PlaceOrderInput
	if !decodeJSON(w, r, &in) {
		return
	}
	order, err := h.Orders.PlaceOrder(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *OrdersHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	orders, err := h.Orders.ListMyOrders(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, ok := pathID(w, r, "order")
	if !ok {
		return
	}
	order, err := h.Orders.GetOrder(r.Context(), userID, middleware.IsAdmin(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// All lists every order for admins, optionally filtered by status.
func (h *OrdersHandler) All(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	q := store.OrderQuery{Status: v.Get("status")}
	q.Page, _ = strconv.Atoi(v.Get("page"))
	q.Limit, _ = strconv.Atoi(v.Get("limit"))
	page, err := h.Orders.ListAllOrders(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.UserIDFromContext(r.Context())
	id, ok := pathID(w, r, "order")
	if !ok {
		return
	}
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := h.Orders.UpdateStatus(r.Context(), adminID, id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrdersHandler) Verify(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.UserIDFromContext(r.Context())
	id, ok := pathID(w, r, "order")
	if !ok {
		return
	}
	order, err := h.Orders.VerifyPayment(r.Context(), adminID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrdersHandler) AttachReceipt(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, ok := pathID(w, r, "order")
	if !ok {
		return
	}
	var req receiptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := h.Orders.AttachReceipt(r.Context(), userID, id, req.ReceiptImage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
