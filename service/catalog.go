package service

import (
	"context"
	"strings"
	"time"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookPage struct {
	Books []models.Book `json:"books"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Pages int           `json:"pages"`
}

type CatalogService struct {
	books BookStore
	now   func() time.Time
}

func NewCatalogService(books BookStore) *CatalogService {
	return &CatalogService{books: books, now: time.Now}
}

// Query runs a storefront listing. Results always come from the store.
func (s *CatalogService) Query(ctx context.Context, q store.BookQuery) (*BookPage, error) {
	q.Normalize()
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return nil, invalid("minPrice is greater than maxPrice")
	}
	books, total, err := s.books.QueryBooks(ctx, q)
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []models.Book{}
	}
	now := s.now()
	for i := range books {
		books[i].OnSale = books[i].IsOnSale(now)
	}
	return &BookPage{Books: books, Total: total, Page: q.Page, Pages: store.Pages(total, q.Limit)}, nil
}

func (s *CatalogService) Get(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	book, err := s.books.BookByID(ctx, id)
	if err != nil {
		return nil, err
	}
	book.OnSale = book.IsOnSale(s.now())
	return book, nil
}

func (s *CatalogService) Create(ctx context.Context, book *models.Book) (*models.Book, error) {
	cleanBook(book)
	if err := ValidateBook(book); err != nil {
		return nil, err
	}
	now := s.now()
	book.ID = primitive.NilObjectID
	book.CreatedAt = now
	book.UpdatedAt = now
	id, err := s.books.InsertBook(ctx, book)
	if err != nil {
		return nil, err
	}
	book.ID = id
	book.OnSale = book.IsOnSale(now)
	return book, nil
}

// Update replaces every editable field of the book.
func (s *CatalogService) Update(ctx context.Context, id primitive.ObjectID, book *models.Book) (*models.Book, error) {
	cleanBook(book)
	if err := ValidateBook(book); err != nil {
		return nil, err
	}
	book.UpdatedAt = s.now()
	if err := s.books.UpdateBook(ctx, id, book); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *CatalogService) Delete(ctx context.Context, id primitive.ObjectID) error {
	return s.books.DeleteBook(ctx, id)
}

func cleanBook(b *models.Book) {
	b.Title = strings.TrimSpace(b.Title)
	b.TitleLocal = strings.TrimSpace(b.TitleLocal)
	b.Author = strings.TrimSpace(b.Author)
	b.ISBN = strings.ReplaceAll(strings.TrimSpace(b.ISBN), "-", "")
	// positions start at 1; zero means unplaced
	if b.DisplayOrder <= 0 {
		b.DisplayOrder = models.DefaultDisplayOrder
	}
	if b.Images == nil {
		b.Images = []string{}
	}
}

func ValidateBook(b *models.Book) error {
	switch {
	case b.Title == "":
		return invalid("title is required")
	case b.Price < 0:
		return invalid("price must not be negative")
	case b.Stock < 0:
		return invalid("stock must not be negative")
	}
	if b.DiscountPercentage != nil && (*b.DiscountPercentage <= 0 || *b.DiscountPercentage > 100) {
		return invalid("discountPercentage must be between 0 and 100")
	}
	if b.SalePrice != nil && (*b.SalePrice < 0 || *b.SalePrice >= b.Price) {
		return invalid("salePrice must be below price")
	}
	if b.SaleStartDate != nil && b.SaleEndDate != nil && !b.SaleEndDate.After(*b.SaleStartDate) {
		return invalid("saleEndDate must be after saleStartDate")
	}
	return nil
}
