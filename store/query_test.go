package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBookQueryNormalize(t *testing.T) {
	q := BookQuery{Grade: "  Grade 6 ", Page: -3, Limit: 0}
	q.Normalize()
	assert.Equal(t, "Grade 6", q.Grade)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, DefaultPageLimit, q.Limit)
	assert.Equal(t, int64(0), q.Skip())

	q = BookQuery{Page: 3, Limit: 500}
	q.Normalize()
	assert.Equal(t, MaxPageLimit, q.Limit)
	assert.Equal(t, int64(200), q.Skip())
}

func TestQuerySkipHugePage(t *testing.T) {
	q := BookQuery{Page: 800000000000000000, Limit: 12}
	q.Normalize()
	assert.Equal(t, MaxPage, q.Page)
	assert.Equal(t, int64(MaxPage-1)*12, q.Skip())

	unnormalized := BookQuery{Page: 800000000000000000, Limit: 100}
	assert.GreaterOrEqual(t, unnormalized.Skip(), int64(0))

	oq := OrderQuery{Page: 1 << 62, Limit: 50}
	oq.Normalize()
	assert.Equal(t, MaxPage, oq.Page)
	assert.GreaterOrEqual(t, oq.Skip(), int64(0))
}

func TestBookQueryFilter(t *testing.T) {
	lo, hi := 100.0, 900.0
	q := BookQuery{
		Category: "Past Papers",
		Grade:    "Grade 11",
		Subject:  "maths",
		Search:   "a+b (x)",
		MinPrice: &lo,
		MaxPrice: &hi,
	}
	f := q.Filter()

	assert.Equal(t, "Past Papers", f["category"])
	assert.Equal(t, "Grade 11", f["grade"])
	assert.Equal(t, primitive.Regex{Pattern: "maths", Options: "i"}, f["subject"])
	assert.Equal(t, bson.M{"$gte": 100.0, "$lte": 900.0}, f["price"])

	or, ok := f["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 5)
	want := primitive.Regex{Pattern: `a\+b \(x\)`, Options: "i"}
	for _, clause := range or {
		m := clause.(bson.M)
		for _, v := range m {
			assert.Equal(t, want, v)
		}
	}

	assert.Empty(t, BookQuery{}.Filter())
}

func TestBookQuerySortSpec(t *testing.T) {
	assert.Equal(t, "price", BookQuery{Sort: SortPriceAsc}.SortSpec()[0].Key)
	assert.Equal(t, -1, BookQuery{Sort: SortPriceDesc}.SortSpec()[0].Value)
	assert.Equal(t, "title", BookQuery{Sort: SortTitle}.SortSpec()[0].Key)

	def := BookQuery{Sort: "whatever"}.SortSpec()
	require.Len(t, def, 3)
	assert.Equal(t, bson.E{Key: "displayOrder", Value: 1}, def[0])
	assert.Equal(t, bson.E{Key: "createdAt", Value: -1}, def[1])
}

func TestPages(t *testing.T) {
	assert.Equal(t, 0, Pages(0, 12))
	assert.Equal(t, 1, Pages(12, 12))
	assert.Equal(t, 2, Pages(13, 12))
	assert.Equal(t, 9, Pages(100, 12))
	assert.Equal(t, 0, Pages(10, 0))
}

func TestOrderQueryNormalize(t *testing.T) {
	q := OrderQuery{}
	q.Normalize()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 20, q.Limit)
}
