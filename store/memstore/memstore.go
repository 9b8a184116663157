// Package memstore keeps every storefront collection in process memory. It backs
// STORE_BACKEND=memory and the service tests, and mirrors the conditional-update
// semantics of the Mongo store so stock and status guards behave the same.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu            sync.Mutex
	books         map[primitive.ObjectID]*models.Book
	orders        map[primitive.ObjectID]*models.Order
	users         map[primitive.ObjectID]*models.User
	notifications map[primitive.ObjectID]*models.Notification
	settings      *models.Settings
	mail          *models.MailSettings
}

func New() *Store {
	return &Store{
		books:         make(map[primitive.ObjectID]*models.Book),
		orders:        make(map[primitive.ObjectID]*models.Order),
		users:         make(map[primitive.ObjectID]*models.User),
		notifications: make(map[primitive.ObjectID]*models.Notification),
	}
}

// Books

func (s *Store) InsertBook(_ context.Context, book *models.Book) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := copyBook(book)
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	s.books[b.ID] = b
	return b.ID, nil
}

func (s *Store) BookByID(_ context.Context, id primitive.ObjectID) (*models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyBook(b), nil
}

func (s *Store) UpdateBook(_ context.Context, id primitive.ObjectID, book *models.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.books[id]
	if !ok {
		return store.ErrNotFound
	}
	b := copyBook(book)
	b.ID = id
	b.CreatedAt = old.CreatedAt
	s.books[id] = b
	return nil
}

func (s *Store) DeleteBook(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.books, id)
	return nil
}

func (s *Store) QueryBooks(_ context.Context, q store.BookQuery) ([]models.Book, int64, error) {
	q.Normalize()
	s.mu.Lock()
	var matched []models.Book
	for _, b := range s.books {
		if matchBook(b, q) {
			matched = append(matched, *copyBook(b))
		}
	}
	s.mu.Unlock()

	sortBooks(matched, q.Sort)
	total := int64(len(matched))
	start, end := pageBounds(len(matched), q.Skip(), q.Limit)
	page := append([]models.Book{}, matched[start:end]...)
	return page, total, nil
}

func (s *Store) DecrementStock(_ context.Context, id primitive.ObjectID, qty int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok || b.Stock < qty {
		return false, nil
	}
	b.Stock -= qty
	b.UpdatedAt = time.Now()
	return true, nil
}

func (s *Store) IncrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.books[id]; ok {
		b.Stock += qty
		b.UpdatedAt = time.Now()
	}
	return nil
}

func matchBook(b *models.Book, q store.BookQuery) bool {
	if q.Category != "" && b.Category != q.Category {
		return false
	}
	if q.Grade != "" && b.Grade != q.Grade {
		return false
	}
	if q.Subject != "" && !containsFold(b.Subject, q.Subject) {
		return false
	}
	if q.Search != "" {
		hit := false
		for _, field := range []string{b.Title, b.TitleLocal, b.Author, b.ISBN, b.Description} {
			if containsFold(field, q.Search) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if q.MinPrice != nil && b.Price < *q.MinPrice {
		return false
	}
	if q.MaxPrice != nil && b.Price > *q.MaxPrice {
		return false
	}
	return true
}

func sortBooks(books []models.Book, key string) {
	less := func(i, j int) bool {
		a, b := books[i], books[j]
		switch key {
		case store.SortPriceAsc:
			if a.Price != b.Price {
				return a.Price < b.Price
			}
		case store.SortPriceDesc:
			if a.Price != b.Price {
				return a.Price > b.Price
			}
		case store.SortTitle:
			if a.Title != b.Title {
				return a.Title < b.Title
			}
		default:
			if a.DisplayOrder != b.DisplayOrder {
				return a.DisplayOrder < b.DisplayOrder
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID.Hex() > b.ID.Hex()
		}
		return a.ID.Hex() < b.ID.Hex()
	}
	sort.SliceStable(books, less)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func copyBook(b *models.Book) *models.Book {
	c := *b
	if b.Images != nil {
		c.Images = append([]string{}, b.Images...)
	}
	return &c
}

// pageBounds turns skip/limit into slice bounds within [0, n].
func pageBounds(n int, skip int64, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if skip > int64(n) {
		skip = int64(n)
	}
	start := int(skip)
	end := start + max(limit, 0)
	if end > n {
		end = n
	}
	return start, end
}
