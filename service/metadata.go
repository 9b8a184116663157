package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const googleBooksBase = "https://www.googleapis.com/books/v1/volumes"

type volumesResp struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo struct {
			Title               string   `json:"title"`
			Subtitle            string   `json:"subtitle"`
			Authors             []string `json:"authors"`
			Publisher           string   `json:"publisher"`
			Description         string   `json:"description"`
			Categories          []string `json:"categories"`
			IndustryIdentifiers []struct {
				Type       string `json:"type"`
				Identifier string `json:"identifier"`
			} `json:"industryIdentifiers"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// BookPrefill is what the admin form receives to prefill a new book.
type BookPrefill struct {
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Publisher   string   `json:"publisher"`
	ISBN        string   `json:"isbn"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Images      []string `json:"images"`
}

type ISBNLookup struct {
	client  *http.Client
	baseURL string
}

func NewISBNLookup() *ISBNLookup {
	return &ISBNLookup{client: &http.Client{Timeout: 15 * time.Second}, baseURL: googleBooksBase}
}

// Lookup fetches volume data from Google Books by ISBN-10 or ISBN-13.
func (l *ISBNLookup) Lookup(ctx context.Context, isbn string) (*BookPrefill, error) {
	isbn = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(isbn), "-", ""))
	if !validISBN(isbn) {
		return nil, invalid("isbn must have 10 or 13 digits")
	}
	q := url.Values{}
	q.Set("q", "isbn:"+isbn)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google books returned %d", resp.StatusCode)
	}
	var data volumesResp
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}
	if data.TotalItems == 0 || len(data.Items) == 0 {
		return nil, fmt.Errorf("isbn %s: %w", isbn, ErrNotFound)
	}

	vi := data.Items[0].VolumeInfo
	out := &BookPrefill{
		Title:       vi.Title,
		Author:      strings.Join(vi.Authors, ", "),
		Publisher:   vi.Publisher,
		ISBN:        isbn,
		Description: strings.TrimSpace(vi.Description),
		Images:      []string{},
	}
	if vi.Subtitle != "" {
		out.Title += ": " + vi.Subtitle
	}
	for _, id := range vi.IndustryIdentifiers {
		if id.Type == "ISBN_13" {
			out.ISBN = id.Identifier
			break
		}
	}
	if len(vi.Categories) > 0 {
		out.Category = vi.Categories[0]
	}
	// Google Books image links often sit behind a captcha; Open Library serves covers by ISBN.
	out.Images = append(out.Images, "https://covers.openlibrary.org/b/isbn/"+url.PathEscape(out.ISBN)+"-L.jpg")
	return out, nil
}

func validISBN(isbn string) bool {
	switch len(isbn) {
	case 10:
		for i, c := range isbn {
			if c < '0' || c > '9' {
				if !(i == 9 && c == 'X') {
					return false
				}
			}
		}
		return true
	case 13:
		for _, c := range isbn {
			if c < '0' || c > '9' {
				return false
			}
		}
		return true
	}
	return false
}
