package platform

import (
	"context"
	"testing"

	"github.com/carbonledger/api/internal/database/interfaces"
	"github.com/carbonledger/api/internal/database/memory"
	"github.com/carbonledger/api/internal/database/observability"
	platformconfig "github.com/carbonledger/api/internal/platform/config"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	ObjectId uuid.UUID `bson:"objectId"`
	Name     string    `bson:"name"`
}

func TestBaseService_Helpers(t *testing.T) {
	ctx := context.Background()
	base := NewBaseServiceWithRepo(memory.NewRepository())
	defer base.Close()

	require.NoError(t, base.EnsureIndexes(ctx, map[string][]interfaces.IndexSpec{
		"targets": {{Field: "name", Unique: true}},
	}))

	first := doc{ObjectId: uuid.Must(uuid.NewV4()), Name: "b"}
	require.NoError(t, (<-base.Repository.Save(ctx, "targets", first)).Error)
	require.NoError(t, (<-base.Repository.Save(ctx, "targets", doc{ObjectId: uuid.Must(uuid.NewV4()), Name: "a"})).Error)

	var got doc
	require.NoError(t, base.FindOne(ctx, "targets", interfaces.Where("name", "b"), &got))
	assert.Equal(t, first.ObjectId, got.ObjectId)

	err := base.FindOne(ctx, "targets", interfaces.Where("name", "zzz"), &got)
	assert.ErrorIs(t, err, interfaces.ErrNoDocuments)

	ok, err := base.Exists(ctx, "targets", interfaces.Where("name", "a"))
	require.NoError(t, err)
	assert.True(t, ok)

	all, err := FindAll[doc](ctx, base.Repository, "targets", nil, &interfaces.FindOptions{
		Sort: []interfaces.SortField{{Field: "name", Direction: 1}},
	})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)

	none, err := FindAll[doc](ctx, base.Repository, "empty", nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	assert.NoError(t, base.HealthCheck(ctx))
}

func TestNewBaseService_Memory(t *testing.T) {
	cfg := &platformconfig.Config{Database: platformconfig.DatabaseConfig{Type: interfaces.DatabaseTypeMemory}}
	base, err := NewBaseService(context.Background(), cfg, observability.NewMetrics())
	require.NoError(t, err)
	defer base.Close()
	assert.NoError(t, base.HealthCheck(context.Background()))

	_, err = NewBaseService(context.Background(), nil, nil)
	assert.Error(t, err)
}
