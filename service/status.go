package service

import (
	"context"
	"fmt"
	"log"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// transitions lists the statuses an order may move to from each status.
// Delivered and Cancelled are terminal.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.StatusPending:    {models.StatusPaid, models.StatusCancelled},
	models.StatusPaid:       {models.StatusProcessing, models.StatusCancelled},
	models.StatusProcessing: {models.StatusShipped, models.StatusCancelled},
	models.StatusShipped:    {models.StatusDelivered},
	models.StatusDelivered:  {},
	models.StatusCancelled:  {},
}

func ValidStatus(s models.OrderStatus) bool {
	_, ok := transitions[s]
	return ok
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from s in one step.
func NextStatuses(s models.OrderStatus) []models.OrderStatus {
	return append([]models.OrderStatus{}, transitions[s]...)
}

// UpdateStatus moves an order along the transition graph. The write is
// conditional on the status that was read, so a concurrent change fails with
// ErrConflict instead of being overwritten.
func (s *OrderService) UpdateStatus(ctx context.Context, adminID, orderID primitive.ObjectID, status string) (*models.Order, error) {
	to := models.OrderStatus(status)
	if !ValidStatus(to) {
		return nil, invalid("unknown status %q", status)
	}
	order, err := s.orders.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	from := order.Status
	if !CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}

	change := models.StatusChange{Status: to, At: s.now(), By: adminID}
	ok, err := s.orders.UpdateOrderStatus(ctx, orderID, from, change)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: order is no longer %s", ErrConflict, from)
	}
	order.Status = to
	order.UpdatedAt = change.At
	order.StatusHistory = append(order.StatusHistory, change)

	if err := s.notifier.OrderStatusChanged(ctx, order, s.customer(ctx, order.User), from); err != nil {
		log.Printf("[orders] enqueue status notification for %s: %v", orderID.Hex(), err)
	}
	return order, nil
}

// VerifyPayment confirms the bank transfer receipt and moves the order to Paid.
func (s *OrderService) VerifyPayment(ctx context.Context, adminID, orderID primitive.ObjectID) (*models.Order, error) {
	order, err := s.orders.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.HasReceipt() {
		return nil, ErrMissingReceipt
	}
	if order.PaymentVerifiedAt != nil {
		return nil, ErrAlreadyVerified
	}
	from := order.Status
	if !CanTransition(from, models.StatusPaid) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, models.StatusPaid)
	}

	change := models.StatusChange{Status: models.StatusPaid, At: s.now(), By: adminID}
	ok, err := s.orders.MarkPaymentVerified(ctx, orderID, from, change)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: order changed while verifying payment", ErrConflict)
	}
	at, by := change.At, adminID
	order.Status = models.StatusPaid
	order.PaymentVerifiedAt = &at
	order.PaymentVerifiedBy = &by
	order.UpdatedAt = at
	order.StatusHistory = append(order.StatusHistory, change)

	if err := s.notifier.PaymentVerified(ctx, order, s.customer(ctx, order.User)); err != nil {
		log.Printf("[orders] enqueue payment notification for %s: %v", orderID.Hex(), err)
	}
	return order, nil
}
