package services

import (
	"context"
	"strings"
	"testing"

	emissionErrors "github.com/carbonledger/api/emissions/errors"
	"github.com/carbonledger/api/emissions/models"
	"github.com/carbonledger/api/internal/cache"
	"github.com/carbonledger/api/internal/database/memory"
	"github.com/carbonledger/api/internal/platform"
	"github.com/carbonledger/api/internal/types"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float(v float64) *float64 { return &v }

func newTestService(t *testing.T) EmissionService {
	t.Helper()
	backend := cache.NewMemoryCache(0, 0)
	t.Cleanup(func() { _ = backend.Close() })
	lookups := cache.NewStore(backend, cache.StoreConfig{Enabled: true, Prefix: "test"})
	return NewEmissionService(platform.NewBaseServiceWithRepo(memory.NewRepository()), lookups)
}

func TestReadCSV(t *testing.T) {
	input := "\ufeffName, Location,Category,Date,Quantity,Scope_2,Notes\n" +
		"Boiler,Lagos,Fuel,2023-01-05,3,1.25,ignored\n" +
		"Short,Abuja\n"
	rows, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Boiler", rows[0].Name)
	assert.Equal(t, "Lagos", rows[0].Location)
	assert.Equal(t, "2023-01-05", rows[0].Date)
	require.NotNil(t, rows[0].Quantity)
	assert.Equal(t, 3.0, *rows[0].Quantity)
	require.NotNil(t, rows[0].Scope2)
	assert.Equal(t, 1.25, *rows[0].Scope2)
	assert.Equal(t, "Abuja", rows[1].Location)
	assert.Empty(t, rows[1].Category)

	_, err = ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, emissionErrors.ErrEmptyBatch)

	_, err = ReadCSV(strings.NewReader("foo,bar\n1,2\n"))
	assert.ErrorIs(t, err, emissionErrors.ErrInvalidCSV)

	_, err = ReadCSV(strings.NewReader("location,quantity\nLagos,lots\n"))
	assert.ErrorIs(t, err, emissionErrors.ErrInvalidCSV)
}

func TestBatchReportsRowNumber(t *testing.T) {
	svc := newTestService(t)
	actor := types.UserContext{UserID: uuid.Must(uuid.NewV4())}

	_, err := svc.Batch(context.Background(), []models.EmissionInput{
		{Location: "Lagos", Category: "Fuel", Date: "2023"},
		{Location: "Lagos", Category: "Fuel", Date: "31/12/2023"},
	}, models.SourceBulkUpload, actor)
	require.ErrorIs(t, err, emissionErrors.ErrInvalidRow)
	assert.Contains(t, err.Error(), "invalid row 2")
}

func TestGenerateCacheIsInvalidatedOnWrite(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	actor := types.UserContext{UserID: uuid.Must(uuid.NewV4())}
	row := []models.GenerateRow{{"date": "2022", "category": "Fuel", "location": "Kano"}}

	out, err := svc.Generate(ctx, row)
	require.NoError(t, err)
	assert.Equal(t, 0.0, out[0]["emission_tracker"])

	record, err := svc.Create(ctx, &models.EmissionInput{
		Location: "Kano", Category: "Fuel", Date: "2022-01-01", EmissionTracker: float(1.5),
	}, actor)
	require.NoError(t, err)

	out, err = svc.Generate(ctx, row)
	require.NoError(t, err)
	assert.Equal(t, 1.5, out[0]["emission_tracker"])

	_, err = svc.Update(ctx, record.ObjectId, &models.EmissionUpdate{EmissionTracker: float(2)})
	require.NoError(t, err)

	out, err = svc.Generate(ctx, row)
	require.NoError(t, err)
	assert.Equal(t, 2.0, out[0]["emission_tracker"])
	assert.Equal(t, "Kano", out[0]["location"])
}
