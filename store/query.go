package store

import (
	"math"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultPageLimit = 12
	MaxPageLimit     = 100
	// MaxPage keeps (page-1)*limit far from int overflow.
	MaxPage = 100000
)

// Sort keys accepted by BookQuery.Sort. Anything else uses the storefront
// default: displayOrder ascending, newest first.
const (
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
	SortTitle     = "title"
)

type BookQuery struct {
	Category string
	Grade    string
	Subject  string
	Search   string
	MinPrice *float64
	MaxPrice *float64
	Sort     string
	Page     int
	Limit    int
}

// Normalize clamps paging to sane values.
func (q *BookQuery) Normalize() {
	q.Category = strings.TrimSpace(q.Category)
	q.Grade = strings.TrimSpace(q.Grade)
	q.Subject = strings.TrimSpace(q.Subject)
	q.Search = strings.TrimSpace(q.Search)
	q.Page = clampPage(q.Page)
	if q.Limit < 1 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
}

func (q BookQuery) Skip() int64 {
	return skip(q.Page, q.Limit)
}

func clampPage(page int) int {
	if page < 1 {
		return 1
	}
	if page > MaxPage {
		return MaxPage
	}
	return page
}

// skip never goes negative, whatever the caller passed.
func skip(page, limit int) int64 {
	page, limit = clampPage(page), max(limit, 0)
	return int64(page-1) * int64(limit)
}

// Pages returns ceil(total/limit).
func Pages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}

func (q BookQuery) Filter() bson.M {
	f := bson.M{}
	if q.Category != "" {
		f["category"] = q.Category
	}
	if q.Grade != "" {
		f["grade"] = q.Grade
	}
	if q.Subject != "" {
		f["subject"] = containsRegex(q.Subject)
	}
	if q.Search != "" {
		rx := containsRegex(q.Search)
		f["$or"] = bson.A{
			bson.M{"title": rx},
			bson.M{"titleLocal": rx},
			bson.M{"author": rx},
			bson.M{"isbn": rx},
			bson.M{"description": rx},
		}
	}
	price := bson.M{}
	if q.MinPrice != nil {
		price["$gte"] = *q.MinPrice
	}
	if q.MaxPrice != nil {
		price["$lte"] = *q.MaxPrice
	}
	if len(price) > 0 {
		f["price"] = price
	}
	return f
}

func (q BookQuery) SortSpec() bson.D {
	switch q.Sort {
	case SortPriceAsc:
		return bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: 1}}
	case SortPriceDesc:
		return bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: 1}}
	case SortTitle:
		return bson.D{{Key: "title", Value: 1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "displayOrder", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	}
}

func containsRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

type OrderQuery struct {
	Status string
	Page   int
	Limit  int
}

func (q *OrderQuery) Normalize() {
	q.Page = clampPage(q.Page)
	if q.Limit < 1 {
		q.Limit = 20
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
}

func (q OrderQuery) Skip() int64 {
	return skip(q.Page, q.Limit)
}
