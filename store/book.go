package store

import (
	"context"
	"time"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *DB) InsertBook(ctx context.Context, book *models.Book) (primitive.ObjectID, error) {
	res, err := db.Books().InsertOne(ctx, book, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	var book models.Book
	if err := db.Books().FindOne(ctx, bson.M{"_id": id}).Decode(&book); err != nil {
		return nil, notFound(err)
	}
	return &book, nil
}

// QueryBooks returns one page of books matching q plus the total match count.
func (db *DB) QueryBooks(ctx context.Context, q BookQuery) ([]models.Book, int64, error) {
	q.Normalize()
	filter := q.Filter()
	total, err := db.Books().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(q.SortSpec()).
		SetSkip(q.Skip()).
		SetLimit(int64(q.Limit))
	cur, err := db.Books().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	books := []models.Book{}
	if err := cur.All(ctx, &books); err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// UpdateBook replaces the editable fields of a book. Stock is included: admins
// restock through this path.
func (db *DB) UpdateBook(ctx context.Context, id primitive.ObjectID, book *models.Book) error {
	update := bson.M{
		"title":              book.Title,
		"titleLocal":         book.TitleLocal,
		"author":             book.Author,
		"publisher":          book.Publisher,
		"isbn":               book.ISBN,
		"description":        book.Description,
		"category":           book.Category,
		"grade":              book.Grade,
		"subject":            book.Subject,
		"price":              book.Price,
		"stock":              book.Stock,
		"salePrice":          book.SalePrice,
		"discountPercentage": book.DiscountPercentage,
		"saleStartDate":      book.SaleStartDate,
		"saleEndDate":        book.SaleEndDate,
		"isFlashSale":        book.IsFlashSale,
		"displayOrder":       book.DisplayOrder,
		"images":             book.Images,
		"updatedAt":          book.UpdatedAt,
	}
	res, err := db.Books().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": update})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) DeleteBook(ctx context.Context, id primitive.ObjectID) error {
	res, err := db.Books().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementStock removes qty units only if at least qty are in stock. The
// check and the write are one server-side operation, so concurrent callers
// cannot both take the last unit. Returns false when the guard did not match.
func (db *DB) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) (bool, error) {
	res, err := db.Books().UpdateOne(ctx,
		bson.M{"_id": id, "stock": bson.M{"$gte": qty}},
		bson.M{
			"$inc": bson.M{"stock": -qty},
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// IncrementStock gives units back. Only used to undo a decrement made by the
// same request.
func (db *DB) IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	_, err := db.Books().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"stock": qty},
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)
	return err
}
