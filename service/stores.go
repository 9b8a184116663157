package service

import (
	"context"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BookStore is satisfied by *store.DB and *memstore.Store.
type BookStore interface {
	InsertBook(ctx context.Context, book *models.Book) (primitive.ObjectID, error)
	BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
	QueryBooks(ctx context.Context, q store.BookQuery) ([]models.Book, int64, error)
	UpdateBook(ctx context.Context, id primitive.ObjectID, book *models.Book) error
	DeleteBook(ctx context.Context, id primitive.ObjectID) error
	// DecrementStock takes qty units only if at least qty remain. It reports
	// false when the condition did not match.
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) (bool, error)
	IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
}

type OrderStore interface {
	InsertOrder(ctx context.Context, order *models.Order) (primitive.ObjectID, error)
	OrderByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	OrdersByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	ListOrders(ctx context.Context, q store.OrderQuery) ([]models.Order, int64, error)
	UpdateOrderStatus(ctx context.Context, id primitive.ObjectID, from models.OrderStatus, change models.StatusChange) (bool, error)
	MarkPaymentVerified(ctx context.Context, id primitive.ObjectID, from models.OrderStatus, change models.StatusChange) (bool, error)
	SetReceipt(ctx context.Context, id, userID primitive.ObjectID, url string) (bool, error)
}

type UserStore interface {
	AdminsCount(ctx context.Context) (int64, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUserRole(ctx context.Context, id primitive.ObjectID, role string) error
}

type SettingsStore interface {
	GetSettings(ctx context.Context) (*models.Settings, error)
	SaveSettings(ctx context.Context, s *models.Settings) error
}

type MailSettingsStore interface {
	GetMailSettings(ctx context.Context) (*models.MailSettings, error)
	UpsertMailSettings(ctx context.Context, cfg *models.MailSettings) error
}

// Notifier records the notifications an order change produces. Calls only
// enqueue; delivery happens off the request path.
type Notifier interface {
	OrderPlaced(ctx context.Context, order *models.Order, customer *models.User) error
	OrderStatusChanged(ctx context.Context, order *models.Order, customer *models.User, from models.OrderStatus) error
	PaymentVerified(ctx context.Context, order *models.Order, customer *models.User) error
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) OrderPlaced(context.Context, *models.Order, *models.User) error { return nil }
func (NopNotifier) OrderStatusChanged(context.Context, *models.Order, *models.User, models.OrderStatus) error {
	return nil
}
func (NopNotifier) PaymentVerified(context.Context, *models.Order, *models.User) error { return nil }
