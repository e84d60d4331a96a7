package observability

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/carbonledger/api/internal/database/interfaces"
	"github.com/carbonledger/api/internal/database/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, m *Metrics, method, collection, failed string) float64 {
	t.Helper()
	families, err := m.Gatherer().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "carbon_ledger_repository_request_count" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, l := range metric.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["method"] == method && labels["collection"] == collection && labels["error"] == failed {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestInstrument_CountsOperations(t *testing.T) {
	ctx := context.Background()
	metrics := NewMetrics()
	repo := Instrument(memory.NewRepository(), metrics)

	res := <-repo.Save(ctx, "targets", map[string]interface{}{"name": "net zero"})
	require.NoError(t, res.Error)

	count := <-repo.Count(ctx, "targets", nil)
	require.NoError(t, count.Error)
	assert.Equal(t, int64(1), count.Count)

	missing := <-repo.FindOne(ctx, "targets", interfaces.Where("name", "other"))
	assert.True(t, missing.NoResult())

	cursor := <-repo.Find(ctx, "targets", interfaces.Where("$where", "1"), nil)
	assert.Error(t, cursor.Error())

	assert.Equal(t, 1.0, counterValue(t, metrics, "save", "targets", "false"))
	assert.Equal(t, 1.0, counterValue(t, metrics, "count", "targets", "false"))
	assert.Equal(t, 1.0, counterValue(t, metrics, "find_one", "targets", "false"))
	assert.Equal(t, 1.0, counterValue(t, metrics, "find", "targets", "true"))
}

func TestMetrics_Handler(t *testing.T) {
	metrics := NewMetrics()
	repo := Instrument(memory.NewRepository(), metrics)
	<-repo.Delete(context.Background(), "tasks", nil)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `carbon_ledger_repository_request_count{collection="tasks",error="false",method="delete"} 1`))
}
