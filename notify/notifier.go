package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
)

const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
	EventPaymentVerified    = "order.payment_verified"
)

// OrderEvent is the payload published on the event channel.
type OrderEvent struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	OrderID        string    `json:"orderId"`
	UserID         string    `json:"userId"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previousStatus,omitempty"`
	TotalAmount    float64   `json:"totalAmount"`
	At             time.Time `json:"at"`
}

// Notifier turns order lifecycle changes into outbox entries.
type Notifier struct {
	outbox *Outbox
	admin  func(ctx context.Context) string
}

// NewNotifier builds a Notifier. adminAddress may return "" to skip the
// store-operator copy.
func NewNotifier(outbox *Outbox, adminAddress func(ctx context.Context) string) *Notifier {
	if adminAddress == nil {
		adminAddress = func(context.Context) string { return "" }
	}
	return &Notifier{outbox: outbox, admin: adminAddress}
}

func (n *Notifier) OrderPlaced(ctx context.Context, order *models.Order, customer *models.User) error {
	var errs []error
	if hasEmail(customer) {
		subject, body := orderPlacedCustomer(order, customer)
		errs = append(errs, n.email(ctx, models.KindOrderPlacedCustomer, order, customer.Email, subject, body))
	}
	if to := n.admin(ctx); to != "" {
		subject, body := orderPlacedAdmin(order, customer)
		errs = append(errs, n.email(ctx, models.KindOrderPlacedAdmin, order, to, subject, body))
	}
	errs = append(errs, n.event(ctx, EventOrderPlaced, order, ""))
	return errors.Join(errs...)
}

func (n *Notifier) OrderStatusChanged(ctx context.Context, order *models.Order, customer *models.User, from models.OrderStatus) error {
	var errs []error
	if hasEmail(customer) {
		subject, body := orderStatusChanged(order, customer, from)
		errs = append(errs, n.email(ctx, models.KindOrderStatusChanged, order, customer.Email, subject, body))
	}
	errs = append(errs, n.event(ctx, EventOrderStatusChanged, order, from))
	return errors.Join(errs...)
}

func (n *Notifier) PaymentVerified(ctx context.Context, order *models.Order, customer *models.User) error {
	var errs []error
	if hasEmail(customer) {
		subject, body := paymentVerified(order, customer)
		errs = append(errs, n.email(ctx, models.KindPaymentVerified, order, customer.Email, subject, body))
	}
	errs = append(errs, n.event(ctx, EventPaymentVerified, order, models.StatusPending))
	return errors.Join(errs...)
}

func (n *Notifier) email(ctx context.Context, kind models.NotificationKind, order *models.Order, to, subject, body string) error {
	return n.outbox.Enqueue(ctx, &models.Notification{
		Kind:    kind,
		Channel: models.ChannelEmail,
		To:      to,
		Subject: subject,
		Body:    body,
		OrderID: order.ID,
	})
}

// event records are kinded by their event type, e.g. "order.placed".
func (n *Notifier) event(ctx context.Context, typ string, order *models.Order, prev models.OrderStatus) error {
	payload, err := json.Marshal(OrderEvent{
		ID:             uuid.New().String(),
		Type:           typ,
		OrderID:        order.ID.Hex(),
		UserID:         order.User.Hex(),
		Status:         string(order.Status),
		PreviousStatus: string(prev),
		TotalAmount:    order.TotalAmount,
		At:             time.Now(),
	})
	if err != nil {
		return err
	}
	return n.outbox.Enqueue(ctx, &models.Notification{
		Kind:     models.NotificationKind(typ),
		Channel:  models.ChannelEvent,
		EventKey: order.ID.Hex(),
		Payload:  payload,
		OrderID:  order.ID,
	})
}

func hasEmail(u *models.User) bool {
	return u != nil && u.Email != ""
}
