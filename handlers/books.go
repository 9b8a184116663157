package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/service"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/store"
)

type BooksHandler struct {
	Catalog *service.CatalogService
	ISBN    *service.ISBNLookup
}

// List serves GET /api/books with the storefront filters.
func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	q := store.BookQuery{
		Category: v.Get("category"),
		Grade:    v.Get("grade"),
		Subject:  v.Get("subject"),
		Search:   v.Get("search"),
		Sort:     v.Get("sort"),
	}
	var ok bool
	if q.MinPrice, ok = floatParam(w, v.Get("minPrice"), "minPrice"); !ok {
		return
	}
	if q.MaxPrice, ok = floatParam(w, v.Get("maxPrice"), "maxPrice"); !ok {
		return
	}
	q.Page, _ = strconv.Atoi(v.Get("page"))
	q.Limit, _ = strconv.Atoi(v.Get("limit"))

	page, err := h.Catalog.Query(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "book")
	if !ok {
		return
	}
	book, err := h.Catalog.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var book models.Book
	if !decodeJSON(w, r, &book) {
		return
	}
	created, err := h.Catalog.Create(r.Context(), &book)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *BooksHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "book")
	if !ok {
		return
	}
	var book models.Book
	if !decodeJSON(w, r, &book) {
		return
	}
	updated, err := h.Catalog.Update(r.Context(), id, &book)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *BooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "book")
	if !ok {
		return
	}
	if err := h.Catalog.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Lookup prefills the admin book form from Google Books.
func (h *BooksHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	prefill, err := h.ISBN.Lookup(r.Context(), chi.URLParam(r, "isbn"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefill)
}

func floatParam(w http.ResponseWriter, raw, name string) (*float64, bool) {
	if raw == "" {
		return nil, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		writeMessage(w, http.StatusBadRequest, name+" must be a non-negative number")
		return nil, false
	}
	return &f, true
}
