package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (s *Store) InsertOrder(_ context.Context, order *models.Order) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := copyOrder(order)
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	s.orders[o.ID] = o
	return o.ID, nil
}

func (s *Store) OrderByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyOrder(o), nil
}

func (s *Store) OrdersByUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	s.mu.Lock()
	out := []models.Order{}
	for _, o := range s.orders {
		if o.User == userID {
			out = append(out, *copyOrder(o))
		}
	}
	s.mu.Unlock()
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) ListOrders(_ context.Context, q store.OrderQuery) ([]models.Order, int64, error) {
	q.Normalize()
	s.mu.Lock()
	all := []models.Order{}
	for _, o := range s.orders {
		if q.Status == "" || string(o.Status) == q.Status {
			all = append(all, *copyOrder(o))
		}
	}
	s.mu.Unlock()
	sortNewestFirst(all)
	total := int64(len(all))
	start, end := pageBounds(len(all), q.Skip(), q.Limit)
	return append([]models.Order{}, all[start:end]...), total, nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, id primitive.ObjectID, from models.OrderStatus, change models.StatusChange) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = change.Status
	o.UpdatedAt = change.At
	o.StatusHistory = append(o.StatusHistory, change)
	return true, nil
}

func (s *Store) MarkPaymentVerified(_ context.Context, id primitive.ObjectID, from models.OrderStatus, change models.StatusChange) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.Status != from || o.PaymentVerifiedAt != nil {
		return false, nil
	}
	at, by := change.At, change.By
	o.Status = change.Status
	o.PaymentVerifiedAt = &at
	o.PaymentVerifiedBy = &by
	o.UpdatedAt = at
	o.StatusHistory = append(o.StatusHistory, change)
	return true, nil
}

func (s *Store) SetReceipt(_ context.Context, id, userID primitive.ObjectID, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.User != userID || o.Status != models.StatusPending {
		return false, nil
	}
	o.ReceiptImage = &url
	o.UpdatedAt = time.Now()
	return true, nil
}

func sortNewestFirst(orders []models.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID.Hex() > orders[j].ID.Hex()
	})
}

func copyOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = append([]models.OrderItem{}, o.Items...)
	c.StatusHistory = append([]models.StatusChange{}, o.StatusHistory...)
	if o.ReceiptImage != nil {
		r := *o.ReceiptImage
		c.ReceiptImage = &r
	}
	if o.PaymentVerifiedAt != nil {
		t := *o.PaymentVerifiedAt
		c.PaymentVerifiedAt = &t
	}
	if o.PaymentVerifiedBy != nil {
		b := *o.PaymentVerifiedBy
		c.PaymentVerifiedBy = &b
	}
	return &c
}
