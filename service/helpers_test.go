package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/store/memstore"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func seedBook(t *testing.T, db *memstore.Store, title string, price float64, stock int) *models.Book {
	t.Helper()
	b := &models.Book{Title: title, Price: price, Stock: stock, DisplayOrder: models.DefaultDisplayOrder}
	id, err := db.InsertBook(context.Background(), b)
	require.NoError(t, err)
	b.ID = id
	return b
}

func stockOf(t *testing.T, db *memstore.Store, id primitive.ObjectID) int {
	t.Helper()
	b, err := db.BookByID(context.Background(), id)
	require.NoError(t, err)
	return b.Stock
}

func address() models.ShippingAddress {
	return models.ShippingAddress{
		FullName:    "Nimali Perera",
		Phone:       "0771234567",
		AddressLine: "12 Temple Road",
		City:        "Kandy",
		District:    "Kandy",
	}
}

type recordingNotifier struct {
	mu       sync.Mutex
	placed   []primitive.ObjectID
	changed  []models.OrderStatus
	verified int
}

func (n *recordingNotifier) OrderPlaced(_ context.Context, o *models.Order, _ *models.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.placed = append(n.placed, o.ID)
	return nil
}

func (n *recordingNotifier) OrderStatusChanged(_ context.Context, o *models.Order, _ *models.User, _ models.OrderStatus) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, o.Status)
	return nil
}

func (n *recordingNotifier) PaymentVerified(context.Context, *models.Order, *models.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verified++
	return nil
}
