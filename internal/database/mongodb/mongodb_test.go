package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/carbonledger/api/internal/database/interfaces"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestToFilter(t *testing.T) {
	t.Run("empty query matches everything", func(t *testing.T) {
		filter, err := ToFilter(nil)
		require.NoError(t, err)
		require.Equal(t, bson.M{}, filter)
	})

	t.Run("single condition is not wrapped", func(t *testing.T) {
		filter, err := ToFilter(interfaces.Where("category", "A"))
		require.NoError(t, err)
		require.Equal(t, bson.M{"category": "A"}, filter)
	})

	t.Run("range on one field keeps both bounds", func(t *testing.T) {
		start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
		q := &interfaces.Query{Conditions: []interfaces.Field{
			{Name: "date", Operator: interfaces.OpGte, Value: start},
			{Name: "date", Operator: interfaces.OpLte, Value: end},
		}}

		filter, err := ToFilter(q)
		require.NoError(t, err)
		require.Equal(t, bson.M{"$and": bson.A{
			bson.M{"date": bson.M{"$gte": start}},
			bson.M{"date": bson.M{"$lte": end}},
		}}, filter)
	})

	t.Run("or groups become $or", func(t *testing.T) {
		q := &interfaces.Query{OrGroups: [][]interfaces.Field{{
			{Name: "location", Operator: interfaces.OpRegexI, Value: "par"},
			{Name: "category", Operator: interfaces.OpRegexI, Value: "par"},
		}}}

		filter, err := ToFilter(q)
		require.NoError(t, err)
		require.Equal(t, bson.M{"$or": bson.A{
			bson.M{"location": primitive.Regex{Pattern: "par", Options: "i"}},
			bson.M{"category": primitive.Regex{Pattern: "par", Options: "i"}},
		}}, filter)
	})

	t.Run("rejects operator injection", func(t *testing.T) {
		_, err := ToFilter(interfaces.Where("$where", "1"))
		require.ErrorIs(t, err, interfaces.ErrInvalidFilter)

		_, err = ToFilter(&interfaces.Query{Conditions: []interfaces.Field{{Name: "name", Operator: "LIKE", Value: "x"}}})
		require.ErrorIs(t, err, interfaces.ErrInvalidFilter)
	})
}

func TestToUpdateDocument(t *testing.T) {
	doc := toUpdateDocument(map[string]interface{}{
		"status": "completed",
		"$unset": bson.M{"roleId": ""},
	})
	require.Equal(t, bson.M{"status": "completed"}, doc["$set"])
	require.Equal(t, bson.M{"roleId": ""}, doc["$unset"])
}

func TestConnectionURI(t *testing.T) {
	require.Equal(t, "mongodb://db:27017", Options{Host: "db", Port: 27017}.ConnectionURI())
	require.Equal(t,
		"mongodb://u:p@db:27017/?authSource=admin&replicaSet=rs0",
		Options{Host: "db", Port: 27017, Username: "u", Password: "p", AuthDatabase: "admin", ReplicaSet: "rs0"}.ConnectionURI(),
	)
	require.Equal(t, "mongodb+srv://cluster", Options{URI: "mongodb+srv://cluster", Host: "ignored"}.ConnectionURI())
}

func TestConnectRequiresDatabase(t *testing.T) {
	_, err := Connect(context.Background(), Options{Host: "db", Port: 27017})
	require.ErrorContains(t, err, "database name is required")
}
