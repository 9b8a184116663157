// Package notify persists notification intents and delivers them in the
// background. Producers call Outbox.Enqueue; Dispatcher workers drain the queue,
// hand each notification to the sink for its channel, and retry with
// exponential backoff until delivery succeeds or the attempt budget runs out.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is the persistence the outbox and dispatcher need.
type Store interface {
	InsertNotification(ctx context.Context, n *models.Notification) (primitive.ObjectID, error)
	NotificationByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error)
	MarkNotificationSent(ctx context.Context, id primitive.ObjectID, attempts int, at time.Time) error
	MarkNotificationFailed(ctx context.Context, id primitive.ObjectID, attempts int, lastErr string, next time.Time, status models.NotificationStatus) error
	ResetNotification(ctx context.Context, id primitive.ObjectID, next time.Time) error
	PendingNotifications(ctx context.Context) ([]models.Notification, error)
	ListNotifications(ctx context.Context, status string, limit int) ([]models.Notification, error)
}

type Outbox struct {
	store Store
	queue Queue
	now   func() time.Time
}

func NewOutbox(store Store, queue Queue) *Outbox {
	return &Outbox{store: store, queue: queue, now: time.Now}
}

// Enqueue persists n as pending and schedules it for immediate delivery. Once
// the insert succeeds the notification is durable: a failed schedule is
// picked up again by Dispatcher.Recover.
func (o *Outbox) Enqueue(ctx context.Context, n *models.Notification) error {
	now := o.now()
	n.Status = models.NotificationPending
	n.Attempts = 0
	n.CreatedAt = now
	n.NextAttemptAt = now
	id, err := o.store.InsertNotification(ctx, n)
	if err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}
	n.ID = id
	if err := o.queue.Enqueue(ctx, Item{NotificationID: id.Hex(), Score: dueScore(now)}); err != nil {
		return fmt.Errorf("schedule notification %s: %w", id.Hex(), err)
	}
	return nil
}

// List returns recent notifications for the admin outbox view.
func (o *Outbox) List(ctx context.Context, status string, limit int) ([]models.Notification, error) {
	return o.store.ListNotifications(ctx, status, limit)
}

// Retry re-arms a dead notification.
func (o *Outbox) Retry(ctx context.Context, id primitive.ObjectID) error {
	now := o.now()
	if err := o.store.ResetNotification(ctx, id, now); err != nil {
		return err
	}
	return o.queue.Enqueue(ctx, Item{NotificationID: id.Hex(), Score: dueScore(now)})
}
