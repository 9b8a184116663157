package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Upload prefixes in the bucket.
const (
	ReceiptPrefix = "receipts/"
	ImagePrefix   = "images/"
)

const sniffLen = 512

var imageExt = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

type UploadService struct {
	blobs    BlobStore
	maxBytes int64
}

func NewUploadService(blobs BlobStore, maxBytes int64) *UploadService {
	return &UploadService{blobs: blobs, maxBytes: maxBytes}
}

func (s *UploadService) MaxBytes() int64 { return s.maxBytes }

// Upload stores an image under prefix and returns its URL. The content type
// is sniffed from the bytes; the client's claim is ignored.
func (s *UploadService) Upload(ctx context.Context, prefix, filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: read file: %v", ErrUploadRejected, err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("%w: limit is %d MB", ErrFileTooLarge, s.maxBytes>>20)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: file is empty", ErrUploadRejected)
	}
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: only images are accepted, got %s", ErrUploadRejected, contentType)
	}

	ext, ok := imageExt[contentType]
	if !ok {
		ext = strings.ToLower(filepath.Ext(filename))
	}
	key := prefix + uuid.New().String() + ext
	url, err := s.blobs.Put(ctx, key, bytes.NewReader(data), contentType)
	if err != nil {
		log.Printf("[upload] put %s: %v", key, err)
		return "", err
	}
	return url, nil
}
