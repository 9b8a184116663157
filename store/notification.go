package store

import (
	"context"
	"time"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InsertNotification records an outbox entry.
func (db *DB) InsertNotification(ctx context.Context, n *models.Notification) (primitive.ObjectID, error) {
	res, err := db.Notifications().InsertOne(ctx, n, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) NotificationByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error) {
	var n models.Notification
	if err := db.Notifications().FindOne(ctx, bson.M{"_id": id}).Decode(&n); err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

func (db *DB) MarkNotificationSent(ctx context.Context, id primitive.ObjectID, attempts int, at time.Time) error {
	_, err := db.Notifications().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":    models.NotificationSent,
		"attempts":  attempts,
		"sentAt":    at,
		"lastError": "",
	}})
	return err
}

// MarkNotificationFailed records a failed attempt. status is pending while
// retries remain and dead afterwards.
func (db *DB) MarkNotificationFailed(ctx context.Context, id primitive.ObjectID, attempts int, lastErr string, next time.Time, status models.NotificationStatus) error {
	_, err := db.Notifications().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":        status,
		"attempts":      attempts,
		"lastError":     lastErr,
		"nextAttemptAt": next,
	}})
	return err
}

// ResetNotification puts a dead notification back to pending with a fresh attempt budget.
func (db *DB) ResetNotification(ctx context.Context, id primitive.ObjectID, next time.Time) error {
	res, err := db.Notifications().UpdateOne(ctx,
		bson.M{"_id": id, "status": models.NotificationDead},
		bson.M{"$set": bson.M{"status": models.NotificationPending, "attempts": 0, "nextAttemptAt": next}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// PendingNotifications returns every notification still awaiting delivery.
func (db *DB) PendingNotifications(ctx context.Context) ([]models.Notification, error) {
	return db.findNotifications(ctx, bson.M{"status": models.NotificationPending}, 0)
}

// ListNotifications returns the newest notifications, optionally by status.
func (db *DB) ListNotifications(ctx context.Context, status string, limit int) ([]models.Notification, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return db.findNotifications(ctx, filter, limit)
}

func (db *DB) findNotifications(ctx context.Context, filter bson.M, limit int) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := db.Notifications().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Notification{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
