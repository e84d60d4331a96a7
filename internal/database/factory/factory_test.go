package factory

import (
	"context"
	"testing"
	"time"

	"github.com/carbonledger/api/internal/database/interfaces"
	"github.com/carbonledger/api/internal/database/memory"
	platformconfig "github.com/carbonledger/api/internal/platform/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRepository(t *testing.T) {
	ctx := context.Background()

	_, err := NewRepository(ctx, platformconfig.DatabaseConfig{})
	assert.ErrorContains(t, err, "database type is required")

	_, err = NewRepository(ctx, platformconfig.DatabaseConfig{Type: "postgresql"})
	assert.ErrorContains(t, err, "unsupported database type")

	repo, err := NewRepository(ctx, platformconfig.DatabaseConfig{Type: interfaces.DatabaseTypeMemory})
	require.NoError(t, err)
	assert.IsType(t, &memory.Repository{}, repo)
	assert.NoError(t, <-repo.Ping(ctx))
}

func TestMongoOptions(t *testing.T) {
	opts := MongoOptions(platformconfig.MongoDBConfig{
		Host:           "db",
		Port:           27017,
		Database:       "ledger",
		ConnectTimeout: 3 * time.Second,
	})
	assert.Equal(t, "ledger", opts.Database)
	assert.Equal(t, 3*time.Second, opts.ConnectTimeout)
	assert.Equal(t, "mongodb://db:27017", opts.ConnectionURI())
}
