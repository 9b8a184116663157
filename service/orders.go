package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/store"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderLine is one cart line as submitted at checkout. Client-side prices are
// never accepted.
type OrderLine struct {
	BookID   primitive.ObjectID `json:"book"`
	Quantity int                `json:"quantity"`
}

type PlaceOrderInput struct {
	Items           []OrderLine            `json:"items"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	Notes           string                 `json:"notes"`
	ReceiptImage    string                 `json:"receiptImage"`
}

type OrderPage struct {
	Orders []models.Order `json:"orders"`
	Total  int64          `json:"total"`
	Page   int            `json:"page"`
	Pages  int            `json:"pages"`
}

// OrderService owns the order workflow: placement, receipts, status changes
// and payment verification.
type OrderService struct {
	books    BookStore
	orders   OrderStore
	users    UserStore
	notifier Notifier
	now      func() time.Time
}

func NewOrderService(books BookStore, orders OrderStore, users UserStore, notifier Notifier) *OrderService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &OrderService{books: books, orders: orders, users: users, notifier: notifier, now: time.Now}
}

// PlaceOrder validates every line, takes stock line by line with a conditional
// decrement and persists the order as Pending. Either every line gets its
// stock and the order is saved, or no stock stays taken.
func (s *OrderService) PlaceOrder(ctx context.Context, userID primitive.ObjectID, in PlaceOrderInput) (*models.Order, error) {
	lines, err := mergeLines(in.Items)
	if err != nil {
		return nil, err
	}
	if err := validateAddress(in.ShippingAddress); err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(lines))
	total := decimal.Zero
	for _, l := range lines {
		book, err := s.books.BookByID(ctx, l.BookID)
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("book %s: %w", l.BookID.Hex(), ErrNotFound)
		}
		if err != nil {
			return nil, err
		}
		if l.Quantity > book.Stock {
			return nil, fmt.Errorf("%w: %q has %d left, %d requested", ErrInsufficientStock, book.Title, book.Stock, l.Quantity)
		}
		items = append(items, models.OrderItem{
			Book:     book.ID,
			Title:    book.Title,
			Quantity: l.Quantity,
			Price:    book.Price,
		})
		total = total.Add(decimal.NewFromFloat(book.Price).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	taken := make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		ok, err := s.books.DecrementStock(ctx, it.Book, it.Quantity)
		if err != nil {
			s.restock(ctx, taken)
			return nil, fmt.Errorf("reserve stock for %q: %w", it.Title, err)
		}
		if !ok {
			s.restock(ctx, taken)
			return nil, fmt.Errorf("%w: %q sold out while the order was placed", ErrInsufficientStock, it.Title)
		}
		taken = append(taken, it)
	}

	now := s.now()
	order := &models.Order{
		User:            userID,
		Items:           items,
		TotalAmount:     total.Round(2).InexactFloat64(),
		Status:          models.StatusPending,
		ShippingAddress: in.ShippingAddress,
		Notes:           strings.TrimSpace(in.Notes),
		StatusHistory:   []models.StatusChange{{Status: models.StatusPending, At: now, By: userID}},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if url := strings.TrimSpace(in.ReceiptImage); url != "" {
		order.ReceiptImage = &url
	}
	id, err := s.orders.InsertOrder(ctx, order)
	if err != nil {
		s.restock(ctx, taken)
		return nil, fmt.Errorf("save order: %w", err)
	}
	order.ID = id

	if err := s.notifier.OrderPlaced(ctx, order, s.customer(ctx, userID)); err != nil {
		log.Printf("[orders] enqueue notifications for %s: %v", id.Hex(), err)
	}
	return order, nil
}

// restock returns stock this request took. It runs even if ctx was cancelled.
func (s *OrderService) restock(ctx context.Context, taken []models.OrderItem) {
	ctx = context.WithoutCancel(ctx)
	for _, it := range taken {
		if err := s.books.IncrementStock(ctx, it.Book, it.Quantity); err != nil {
			log.Printf("[orders] restore %d of book %s: %v", it.Quantity, it.Book.Hex(), err)
		}
	}
}

// AttachReceipt lets the owner add or replace the bank transfer receipt while
// the order is still Pending.
func (s *OrderService) AttachReceipt(ctx context.Context, userID, orderID primitive.ObjectID, url string) (*models.Order, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, invalid("receiptImage is required")
	}
	order, err := s.orders.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.User != userID {
		return nil, ErrForbidden
	}
	if order.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: receipt can only be changed while the order is Pending", ErrConflict)
	}
	ok, err := s.orders.SetReceipt(ctx, orderID, userID, url)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: order is no longer Pending", ErrConflict)
	}
	return s.orders.OrderByID(ctx, orderID)
}

// GetOrder returns the order to its owner or an admin.
func (s *OrderService) GetOrder(ctx context.Context, viewerID primitive.ObjectID, isAdmin bool, orderID primitive.ObjectID) (*models.Order, error) {
	order, err := s.orders.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.User != viewerID {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *OrderService) ListMyOrders(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	orders, err := s.orders.OrdersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

func (s *OrderService) ListAllOrders(ctx context.Context, q store.OrderQuery) (*OrderPage, error) {
	if q.Status != "" && !ValidStatus(models.OrderStatus(q.Status)) {
		return nil, invalid("unknown status %q", q.Status)
	}
	q.Normalize()
	orders, total, err := s.orders.ListOrders(ctx, q)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return &OrderPage{Orders: orders, Total: total, Page: q.Page, Pages: store.Pages(total, q.Limit)}, nil
}

func (s *OrderService) customer(ctx context.Context, id primitive.ObjectID) *models.User {
	if s.users == nil {
		return nil
	}
	u, err := s.users.UserByID(ctx, id)
	if err != nil {
		log.Printf("[orders] load customer %s: %v", id.Hex(), err)
		return nil
	}
	return u
}

// mergeLines sums quantities of repeated books, keeping first-seen order.
func mergeLines(in []OrderLine) ([]OrderLine, error) {
	if len(in) == 0 {
		return nil, invalid("order has no items")
	}
	idx := make(map[primitive.ObjectID]int, len(in))
	out := make([]OrderLine, 0, len(in))
	for _, l := range in {
		if l.BookID.IsZero() {
			return nil, invalid("item is missing a book id")
		}
		if l.Quantity < 1 {
			return nil, invalid("quantity must be at least 1")
		}
		if i, ok := idx[l.BookID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		idx[l.BookID] = len(out)
		out = append(out, l)
	}
	return out, nil
}

func validateAddress(a models.ShippingAddress) error {
	switch {
	case strings.TrimSpace(a.FullName) == "":
		return invalid("shippingAddress.fullName is required")
	case strings.TrimSpace(a.Phone) == "":
		return invalid("shippingAddress.phone is required")
	case strings.TrimSpace(a.AddressLine) == "":
		return invalid("shippingAddress.addressLine is required")
	case strings.TrimSpace(a.City) == "":
		return invalid("shippingAddress.city is required")
	}
	return nil
}
