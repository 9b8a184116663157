package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/middleware"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/notify"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/service"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxUpload = 5 << 20

type memBlobs struct {
	keys []string
}

func (b *memBlobs) Put(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	b.keys = append(b.keys, key)
	return "https://cdn.example.com/" + key, nil
}

type testServer struct {
	db       *memstore.Store
	router   http.Handler
	blobs    *memBlobs
	customer string
	admin    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := memstore.New()
	auth := service.NewAuthService(db, "test-secret")
	outbox := notify.NewOutbox(db, notify.NewMemoryQueue())
	orders := service.NewOrderService(db, db, db, notify.NewNotifier(outbox, nil))
	settings := service.NewSettingsService(db)
	blobs := &memBlobs{}

	books := &BooksHandler{Catalog: service.NewCatalogService(db)}
	orderH := &OrdersHandler{Orders: orders}
	uploadH := &UploadHandler{Uploads: service.NewUploadService(blobs, maxUpload)}
	settingsH := &SettingsHandler{Settings: settings}
	notifH := &NotificationsHandler{Outbox: outbox}

	r := chi.NewRouter()
	r.Use(middleware.Maintenance(settings, auth, service.DefaultBypassPolicy()))
	r.Route("/api", func(r chi.Router) {
		r.Get("/books", books.List)
		r.Get("/books/{id}", books.Get)
		r.Get("/settings", settingsH.Get)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(auth))
			r.Post("/orders", orderH.Create)
			r.Get("/orders/{id}", orderH.Get)
			r.Post("/upload/receipt", uploadH.Receipt)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Post("/books", books.Create)
				r.Delete("/books/{id}", books.Delete)
				r.Put("/orders/{id}/status", orderH.UpdateStatus)
				r.Put("/orders/{id}/verify", orderH.Verify)
				r.Put("/settings", settingsH.Update)
				r.Get("/notifications", notifH.List)
			})
		})
	})

	ts := &testServer{db: db, router: r, blobs: blobs}
	ts.customer = tokenFor(t, db, auth, "reader@example.com", models.RoleCustomer)
	ts.admin = tokenFor(t, db, auth, "owner@example.com", models.RoleAdmin)
	return ts
}

func tokenFor(t *testing.T, db *memstore.Store, auth *service.AuthService, email, role string) string {
	t.Helper()
	u := &models.User{Name: email, Email: email, Role: role}
	id, err := db.CreateUser(context.Background(), u)
	require.NoError(t, err)
	u.ID = id
	tok, err := auth.IssueToken(u)
	require.NoError(t, err)
	return tok
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) seedBook(t *testing.T, title string, price float64, stock int) primitive.ObjectID {
	t.Helper()
	id, err := ts.db.InsertBook(context.Background(), &models.Book{Title: title, Price: price, Stock: stock, DisplayOrder: models.DefaultDisplayOrder})
	require.NoError(t, err)
	return id
}

func orderBody(book primitive.ObjectID, qty int) map[string]any {
	return map[string]any{
		"items": []map[string]any{{"book": book.Hex(), "quantity": qty}},
		"shippingAddress": map[string]string{
			"fullName":    "Nimali Perera",
			"phone":       "0771234567",
			"addressLine": "12 Temple Road",
			"city":        "Kandy",
		},
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestWriteErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{service.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("book x: %w", service.ErrNotFound), http.StatusNotFound},
		{service.ErrValidation, http.StatusBadRequest},
		{service.ErrInsufficientStock, http.StatusBadRequest},
		{service.ErrMissingReceipt, http.StatusBadRequest},
		{service.ErrUploadRejected, http.StatusBadRequest},
		{service.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{service.ErrUnauthorized, http.StatusUnauthorized},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrAlreadyVerified, http.StatusConflict},
		{service.ErrInvalidTransition, http.StatusConflict},
		{service.ErrConflict, http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), c.err)
		assert.Equal(t, c.code, rec.Code, c.err.Error())
	}

	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), errors.New("mongo: secret detail"))
	assert.NotContains(t, rec.Body.String(), "secret detail")
}

func TestBooksEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.seedBook(t, "Grade 10 Science", 650, 4)

	rec := ts.do(t, http.MethodGet, "/api/books?minPrice=-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/books?search=science", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[service.BookPage](t, rec)
	assert.EqualValues(t, 1, page.Total)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/books/nope", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/books/"+primitive.NewObjectID().Hex(), "", nil).Code)

	book := map[string]any{"title": "Sinhala Reader", "price": 550, "stock": 10}
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPost, "/api/books", "", book).Code)
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodPost, "/api/books", ts.customer, book).Code)

	rec = ts.do(t, http.MethodPost, "/api/books", ts.admin, book)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[models.Book](t, rec)
	assert.Equal(t, "Sinhala Reader", created.Title)

	rec = ts.do(t, http.MethodPost, "/api/books", ts.admin, map[string]any{"price": 10})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/books/"+created.ID.Hex(), ts.admin, nil).Code)
}

func TestOrderLifecycle(t *testing.T) {
	ts := newTestServer(t)
	book := ts.seedBook(t, "Grade 10 Science", 650, 3)

	rec := ts.do(t, http.MethodPost, "/api/orders", ts.customer, orderBody(book, 5))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient stock")

	rec = ts.do(t, http.MethodPost, "/api/orders", ts.customer, orderBody(primitive.NewObjectID(), 1))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/orders", ts.customer, orderBody(book, 2))
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decode[models.Order](t, rec)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, 1300.0, order.TotalAmount)
	orderPath := "/api/orders/" + order.ID.Hex()

	b, err := ts.db.BookByID(context.Background(), book)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Stock)

	// No receipt yet.
	rec = ts.do(t, http.MethodPut, orderPath+"/verify", ts.admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, orderPath+"/status", ts.admin, map[string]string{"status": "Shipped"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPut, orderPath+"/status", ts.admin, map[string]string{"status": "Lost"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, orderPath+"/status", ts.customer, map[string]string{"status": "Paid"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPut, orderPath+"/status", ts.admin, map[string]string{"status": "Paid"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusPaid, decode[models.Order](t, rec).Status)

	rec = ts.do(t, http.MethodGet, orderPath, ts.customer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/notifications", ts.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[[]models.Notification](t, rec))
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/notifications?status=lost", ts.admin, nil).Code)
}

func TestVerifyPaymentEndpoint(t *testing.T) {
	ts := newTestServer(t)
	book := ts.seedBook(t, "Grade 10 Science", 650, 3)

	body := orderBody(book, 1)
	body["receiptImage"] = "https://cdn.example.com/receipts/r.png"
	rec := ts.do(t, http.MethodPost, "/api/orders", ts.customer, body)
	require.Equal(t, http.StatusCreated, rec.Code)
	path := "/api/orders/" + decode[models.Order](t, rec).ID.Hex() + "/verify"

	rec = ts.do(t, http.MethodPut, path, ts.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	verified := decode[models.Order](t, rec)
	assert.Equal(t, models.StatusPaid, verified.Status)
	assert.NotNil(t, verified.PaymentVerifiedAt)

	assert.Equal(t, http.StatusConflict, ts.do(t, http.MethodPut, path, ts.admin, nil).Code)
}

func TestMaintenanceGateThroughRouter(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPut, "/api/settings", ts.admin, map[string]any{"maintenanceMode": true, "maintenanceMessage": "Stocktake today"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/books", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Stocktake today")

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/settings", "", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/books", ts.admin, nil).Code)

	rec = ts.do(t, http.MethodPut, "/api/settings", ts.admin, map[string]any{"maintenanceMode": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/books", "", nil).Code)
}

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func pngBytes(t *testing.T, padTo int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	if pad := padTo - buf.Len(); pad > 0 {
		buf.Write(make([]byte, pad))
	}
	return buf.Bytes()
}

func (ts *testServer) upload(t *testing.T, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartUpload(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/api/upload/receipt", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+ts.customer)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func TestUploadReceipt(t *testing.T) {
	ts := newTestServer(t)

	t.Run("image under the limit", func(t *testing.T) {
		rec := ts.upload(t, "receipt.png", pngBytes(t, 4<<20))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		res := decode[UploadResponse](t, rec)
		assert.True(t, strings.HasPrefix(res.URL, "https://cdn.example.com/receipts/"), res.URL)
		assert.True(t, strings.HasSuffix(res.URL, ".png"), res.URL)
	})

	t.Run("too large", func(t *testing.T) {
		rec := ts.upload(t, "receipt.png", pngBytes(t, 7<<20))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("over limit within multipart slack", func(t *testing.T) {
		rec := ts.upload(t, "receipt.png", pngBytes(t, maxUpload+1024))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("not an image", func(t *testing.T) {
		rec := ts.upload(t, "receipt.png", []byte("just some text pretending to be a png"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing file field", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("note", "hi"))
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/api/upload/receipt", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+ts.customer)
		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	assert.Len(t, ts.blobs.keys, 1)
}

func TestUploadNotConfigured(t *testing.T) {
	h := &UploadHandler{}
	rec := httptest.NewRecorder()
	h.Receipt(rec, httptest.NewRequest(http.MethodPost, "/api/upload/receipt", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
