package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/service"
)

// multipartOverhead is allowed on top of the file limit for boundaries and headers.
const multipartOverhead = 1 << 20

type UploadHandler struct {
	Uploads *service.UploadService
}

type UploadResponse struct {
	URL string `json:"url"`
}

// Receipt handles POST /api/upload/receipt.
func (h *UploadHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, service.ReceiptPrefix)
}

// Image handles POST /api/upload/image (admin).
func (h *UploadHandler) Image(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, service.ImagePrefix)
}

func (h *UploadHandler) upload(w http.ResponseWriter, r *http.Request, prefix string) {
	if h.Uploads == nil {
		http.Error(w, `{"error":"upload not configured (missing S3)"}`, http.StatusServiceUnavailable)
		return
	}
	limit := h.Uploads.MaxBytes()
	tooLarge := fmt.Sprintf("file too large: limit is %d MB", limit>>20)
	if r.ContentLength > limit+multipartOverhead {
		writeMessage(w, http.StatusRequestEntityTooLarge, tooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 10); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeMessage(w, http.StatusRequestEntityTooLarge, tooLarge)
			return
		}
		http.Error(w, `{"error":"failed to parse multipart form"}`, http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `{"error":"missing file"}`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	url, err := h.Uploads.Upload(r.Context(), prefix, header.Filename, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, UploadResponse{URL: url})
}
