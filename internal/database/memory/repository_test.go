package memory

import (
	"context"
	"testing"
	"time"

	"github.com/carbonledger/api/internal/database/interfaces"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

type emission struct {
	ObjectId uuid.UUID `bson:"objectId"`
	Location string    `bson:"location"`
	Category string    `bson:"category"`
	Quantity float64   `bson:"quantity"`
	Date     time.Time `bson:"date"`
	Tags     []string  `bson:"tags,omitempty"`
}

func seed(t *testing.T, repo *Repository, items ...emission) {
	t.Helper()
	for _, item := range items {
		res := <-repo.Save(context.Background(), "emissions", item)
		require.NoError(t, res.Error)
	}
}

func findAll(t *testing.T, repo *Repository, q *interfaces.Query, opts *interfaces.FindOptions) []emission {
	t.Helper()
	cursor := <-repo.Find(context.Background(), "emissions", q, opts)
	require.NoError(t, cursor.Error())
	defer cursor.Close()

	var out []emission
	for cursor.Next() {
		var e emission
		require.NoError(t, cursor.Decode(&e))
		out = append(out, e)
	}
	return out
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRepository_FindWithOperators(t *testing.T) {
	repo := NewRepository()
	seed(t, repo,
		emission{ObjectId: uuid.Must(uuid.NewV4()), Location: "Paris", Category: "Energy", Quantity: 10, Date: day(2023, 1, 1)},
		emission{ObjectId: uuid.Must(uuid.NewV4()), Location: "Lyon", Category: "Transport", Quantity: 25, Date: day(2023, 6, 15)},
		emission{ObjectId: uuid.Must(uuid.NewV4()), Location: "Marseille", Category: "Energy", Quantity: 40, Date: day(2024, 2, 1)},
	)

	t.Run("case-insensitive regex", func(t *testing.T) {
		got := findAll(t, repo, &interfaces.Query{Conditions: []interfaces.Field{
			{Name: "location", Operator: interfaces.OpRegexI, Value: "PAR"},
		}}, nil)
		require.Len(t, got, 1)
		assert.Equal(t, "Paris", got[0].Location)
	})

	t.Run("numeric comparison across int and float", func(t *testing.T) {
		got := findAll(t, repo, &interfaces.Query{Conditions: []interfaces.Field{
			{Name: "quantity", Operator: interfaces.OpGt, Value: 10},
		}}, nil)
		assert.Len(t, got, 2)
	})

	t.Run("date range on one field", func(t *testing.T) {
		got := findAll(t, repo, &interfaces.Query{Conditions: []interfaces.Field{
			{Name: "date", Operator: interfaces.OpGte, Value: day(2023, 1, 1)},
			{Name: "date", Operator: interfaces.OpLte, Value: day(2023, 12, 31)},
		}}, nil)
		assert.Len(t, got, 2)
	})

	t.Run("or group", func(t *testing.T) {
		got := findAll(t, repo, &interfaces.Query{OrGroups: [][]interfaces.Field{{
			{Name: "location", Operator: interfaces.OpRegexI, Value: "lyon"},
			{Name: "category", Operator: interfaces.OpRegexI, Value: "lyon"},
		}}}, nil)
		require.Len(t, got, 1)
		assert.Equal(t, "Lyon", got[0].Location)
	})

	t.Run("in and not equal", func(t *testing.T) {
		got := findAll(t, repo, &interfaces.Query{Conditions: []interfaces.Field{
			{Name: "location", Operator: interfaces.OpIn, Value: []string{"Paris", "Lyon"}},
			{Name: "category", Operator: interfaces.OpNe, Value: "Energy"},
		}}, nil)
		require.Len(t, got, 1)
		assert.Equal(t, "Lyon", got[0].Location)
	})

	t.Run("string never compares with number", func(t *testing.T) {
		got := findAll(t, repo, &interfaces.Query{Conditions: []interfaces.Field{
			{Name: "quantity", Operator: interfaces.OpGt, Value: "1"},
		}}, nil)
		assert.Empty(t, got)
	})

	t.Run("invalid field name", func(t *testing.T) {
		cursor := <-repo.Find(context.Background(), "emissions", interfaces.Where("$where", "1"), nil)
		assert.ErrorIs(t, cursor.Error(), interfaces.ErrInvalidFilter)
	})
}

func TestRepository_SortSkipLimit(t *testing.T) {
	repo := NewRepository()
	for i, q := range []float64{30, 10, 20, 50, 40} {
		seed(t, repo, emission{ObjectId: uuid.Must(uuid.NewV4()), Location: "L", Quantity: q, Date: day(2023, 1, i+1)})
	}

	limit, skip := int64(2), int64(1)
	got := findAll(t, repo, nil, &interfaces.FindOptions{
		Sort:  []interfaces.SortField{{Field: "quantity", Direction: -1}},
		Skip:  &skip,
		Limit: &limit,
	})
	require.Len(t, got, 2)
	assert.Equal(t, 40.0, got[0].Quantity)
	assert.Equal(t, 30.0, got[1].Quantity)

	skip = 10
	assert.Empty(t, findAll(t, repo, nil, &interfaces.FindOptions{Skip: &skip}))
}

func TestRepository_FindOneByUUID(t *testing.T) {
	repo := NewRepository()
	id := uuid.Must(uuid.NewV4())
	seed(t, repo, emission{ObjectId: id, Location: "Oslo"})

	res := <-repo.FindOne(context.Background(), "emissions", interfaces.Where("objectId", id))
	require.NoError(t, res.Error())
	var e emission
	require.NoError(t, res.Decode(&e))
	assert.Equal(t, id, e.ObjectId)

	missing := <-repo.FindOne(context.Background(), "emissions", interfaces.Where("objectId", uuid.Must(uuid.NewV4())))
	assert.True(t, missing.NoResult())
	assert.ErrorIs(t, missing.Decode(&e), interfaces.ErrNoDocuments)
}

func TestRepository_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	seed(t, repo,
		emission{ObjectId: uuid.Must(uuid.NewV4()), Location: "A", Category: "Energy", Tags: []string{"x"}},
		emission{ObjectId: uuid.Must(uuid.NewV4()), Location: "B", Category: "Energy", Tags: []string{"x"}},
	)

	res := <-repo.Update(ctx, "emissions", interfaces.Where("category", "Energy"), map[string]interface{}{"category": "Power"})
	require.NoError(t, res.Error)
	assert.Equal(t, int64(1), interfaces.AffectedCount(res))

	res = <-repo.UpdateMany(ctx, "emissions", nil, map[string]interface{}{
		"$set":   bson.M{"quantity": 7},
		"$unset": bson.M{"tags": ""},
	})
	require.NoError(t, res.Error)
	assert.Equal(t, int64(2), interfaces.AffectedCount(res))

	for _, e := range findAll(t, repo, nil, nil) {
		assert.Equal(t, 7.0, e.Quantity)
		assert.Empty(t, e.Tags)
	}

	res = <-repo.Update(ctx, "emissions", nil, map[string]interface{}{"$inc": bson.M{"quantity": 1}})
	assert.ErrorIs(t, res.Error, interfaces.ErrInvalidFilter)

	res = <-repo.Delete(ctx, "emissions", interfaces.Where("location", "A"))
	require.NoError(t, res.Error)
	assert.Equal(t, int64(1), interfaces.AffectedCount(res))

	count := <-repo.Count(ctx, "emissions", nil)
	require.NoError(t, count.Error)
	assert.Equal(t, int64(1), count.Count)
}

func TestRepository_UniqueIndex(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	require.NoError(t, <-repo.CreateIndex(ctx, "emissions", []interfaces.IndexSpec{{Field: "location", Unique: true}}))

	seed(t, repo, emission{ObjectId: uuid.Must(uuid.NewV4()), Location: "Rome"})

	res := <-repo.Save(ctx, "emissions", emission{ObjectId: uuid.Must(uuid.NewV4()), Location: "Rome"})
	assert.ErrorIs(t, res.Error, interfaces.ErrDuplicateKey)

	res = <-repo.SaveMany(ctx, "emissions", []interface{}{
		emission{ObjectId: uuid.Must(uuid.NewV4()), Location: "Rome"},
		emission{ObjectId: uuid.Must(uuid.NewV4()), Location: "Milan"},
	})
	assert.ErrorIs(t, res.Error, interfaces.ErrDuplicateKey)
	assert.Len(t, res.Result, 1)

	count := <-repo.Count(ctx, "emissions", nil)
	assert.Equal(t, int64(2), count.Count)
}

func TestRepository_ArrayFieldMatchesAnyElement(t *testing.T) {
	repo := NewRepository()
	seed(t, repo, emission{ObjectId: uuid.Must(uuid.NewV4()), Location: "A", Tags: []string{"scope1", "scope2"}})

	assert.Len(t, findAll(t, repo, interfaces.Where("tags", "scope2"), nil), 1)
	assert.Empty(t, findAll(t, repo, interfaces.Where("tags", "scope3"), nil))
}

func TestRepository_ClosedAndCancelled(t *testing.T) {
	repo := NewRepository()
	require.NoError(t, <-repo.Ping(context.Background()))
	require.NoError(t, repo.Close())
	assert.ErrorIs(t, <-repo.Ping(context.Background()), interfaces.ErrConnectionFailed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := <-repo.Save(ctx, "emissions", emission{})
	assert.ErrorIs(t, res.Error, context.Canceled)
}
