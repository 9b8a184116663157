package service_test

import (
	"context"
	"testing"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/service"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCanTransition(t *testing.T) {
	allowed := map[models.OrderStatus][]models.OrderStatus{
		models.StatusPending:    {models.StatusPaid, models.StatusCancelled},
		models.StatusPaid:       {models.StatusProcessing, models.StatusCancelled},
		models.StatusProcessing: {models.StatusShipped, models.StatusCancelled},
		models.StatusShipped:    {models.StatusDelivered},
	}
	for _, from := range models.OrderStatuses {
		for _, to := range models.OrderStatuses {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			assert.Equal(t, want, service.CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.Empty(t, service.NextStatuses(models.StatusDelivered))
	assert.Empty(t, service.NextStatuses(models.StatusCancelled))
	assert.False(t, service.ValidStatus("Refunded"))
}

func TestUpdateStatus(t *testing.T) {
	db := memstore.New()
	svc, notifier := newOrderService(db)
	admin := primitive.NewObjectID()
	order := placeOne(t, svc, db, primitive.NewObjectID(), "")

	_, err := svc.UpdateStatus(context.Background(), admin, order.ID, "Bogus")
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = svc.UpdateStatus(context.Background(), admin, order.ID, string(models.StatusShipped))
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	_, err = svc.UpdateStatus(context.Background(), admin, primitive.NewObjectID(), string(models.StatusPaid))
	assert.ErrorIs(t, err, service.ErrNotFound)

	for _, next := range []models.OrderStatus{models.StatusPaid, models.StatusProcessing, models.StatusShipped, models.StatusDelivered} {
		updated, err := svc.UpdateStatus(context.Background(), admin, order.ID, string(next))
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}

	saved, err := db.OrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, saved.Status)
	require.Len(t, saved.StatusHistory, 5)
	assert.Equal(t, admin, saved.StatusHistory[4].By)
	assert.Equal(t, []models.OrderStatus{
		models.StatusPaid, models.StatusProcessing, models.StatusShipped, models.StatusDelivered,
	}, notifier.changed)

	_, err = svc.UpdateStatus(context.Background(), admin, order.ID, string(models.StatusCancelled))
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
}

// staleOrders answers reads with a snapshot while another admin moved the order.
type staleOrders struct {
	*memstore.Store
	snapshot *models.Order
}

func (s staleOrders) OrderByID(context.Context, primitive.ObjectID) (*models.Order, error) {
	c := *s.snapshot
	return &c, nil
}

func TestUpdateStatus_ConcurrentChangeConflicts(t *testing.T) {
	db := memstore.New()
	svc, _ := newOrderService(db)
	order := placeOne(t, svc, db, primitive.NewObjectID(), "")
	_, err := svc.UpdateStatus(context.Background(), primitive.NewObjectID(), order.ID, string(models.StatusCancelled))
	require.NoError(t, err)

	stale := service.NewOrderService(db, staleOrders{Store: db, snapshot: order}, db, nil)
	_, err = stale.UpdateStatus(context.Background(), primitive.NewObjectID(), order.ID, string(models.StatusPaid))
	assert.ErrorIs(t, err, service.ErrConflict)
}

func TestVerifyPayment(t *testing.T) {
	db := memstore.New()
	svc, notifier := newOrderService(db)
	admin := primitive.NewObjectID()

	t.Run("missing receipt", func(t *testing.T) {
		order := placeOne(t, svc, db, primitive.NewObjectID(), "")
		_, err := svc.VerifyPayment(context.Background(), admin, order.ID)
		assert.ErrorIs(t, err, service.ErrMissingReceipt)

		saved, err := db.OrderByID(context.Background(), order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, saved.Status)
		assert.Nil(t, saved.PaymentVerifiedAt)
	})

	t.Run("with receipt", func(t *testing.T) {
		order := placeOne(t, svc, db, primitive.NewObjectID(), "https://cdn/receipts/1.png")
		verified, err := svc.VerifyPayment(context.Background(), admin, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPaid, verified.Status)
		require.NotNil(t, verified.PaymentVerifiedAt)
		require.NotNil(t, verified.PaymentVerifiedBy)
		assert.Equal(t, admin, *verified.PaymentVerifiedBy)

		saved, err := db.OrderByID(context.Background(), order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPaid, saved.Status)
		assert.NotNil(t, saved.PaymentVerifiedAt)
		assert.Equal(t, 1, notifier.verified)

		_, err = svc.VerifyPayment(context.Background(), admin, order.ID)
		assert.ErrorIs(t, err, service.ErrAlreadyVerified)
	})

	t.Run("cancelled order", func(t *testing.T) {
		order := placeOne(t, svc, db, primitive.NewObjectID(), "https://cdn/receipts/2.png")
		_, err := svc.UpdateStatus(context.Background(), admin, order.ID, string(models.StatusCancelled))
		require.NoError(t, err)
		_, err = svc.VerifyPayment(context.Background(), admin, order.ID)
		assert.ErrorIs(t, err, service.ErrInvalidTransition)
	})
}
