package store

import (
	"context"
	"time"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *DB) InsertOrder(ctx context.Context, order *models.Order) (primitive.ObjectID, error) {
	res, err := db.Orders().InsertOne(ctx, order, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) OrderByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	if err := db.Orders().FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

func (db *DB) OrdersByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	cur, err := db.Orders().Find(ctx, bson.M{"user": userID}, options.Find().SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	orders := []models.Order{}
	if err := cur.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListOrders is the admin view: every order, newest first, optionally by status.
func (db *DB) ListOrders(ctx context.Context, q OrderQuery) ([]models.Order, int64, error) {
	q.Normalize()
	filter := bson.M{}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	total, err := db.Orders().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(q.Skip()).
		SetLimit(int64(q.Limit))
	cur, err := db.Orders().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	orders := []models.Order{}
	if err := cur.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateOrderStatus moves an order from status from to change.Status. It is a
// no-op returning false if the order is no longer in from.
func (db *DB) UpdateOrderStatus(ctx context.Context, id primitive.ObjectID, from models.OrderStatus, change models.StatusChange) (bool, error) {
	res, err := db.Orders().UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{
			"$set":  bson.M{"status": change.Status, "updatedAt": change.At},
			"$push": bson.M{"statusHistory": change},
		},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// MarkPaymentVerified sets the order Paid and records who verified it. The
// verification fields are written once.
func (db *DB) MarkPaymentVerified(ctx context.Context, id primitive.ObjectID, from models.OrderStatus, change models.StatusChange) (bool, error) {
	res, err := db.Orders().UpdateOne(ctx,
		bson.M{"_id": id, "status": from, "paymentVerifiedAt": nil},
		bson.M{
			"$set": bson.M{
				"status":            change.Status,
				"paymentVerifiedAt": change.At,
				"paymentVerifiedBy": change.By,
				"updatedAt":         change.At,
			},
			"$push": bson.M{"statusHistory": change},
		},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// SetReceipt attaches a receipt URL to a pending order owned by userID.
func (db *DB) SetReceipt(ctx context.Context, id, userID primitive.ObjectID, url string) (bool, error) {
	res, err := db.Orders().UpdateOne(ctx,
		bson.M{"_id": id, "user": userID, "status": models.StatusPending},
		bson.M{"$set": bson.M{"receiptImage": url, "updatedAt": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}
