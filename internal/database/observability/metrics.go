// Copyright (c) 2024 Carbon Ledger
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package observability instruments repository calls with Prometheus metrics.
package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/carbonledger/api/internal/database/interfaces"
	"github.com/carbonledger/api/internal/pkg/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// slowOperation is the latency above which a repository call is logged.
const slowOperation = 500 * time.Millisecond

// Metrics holds the repository collectors
type Metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	gatherer prometheus.Gatherer
	registry *prometheus.Registry
}

// NewMetrics registers the repository collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	fieldKeys := []string{"method", "collection", "error"}
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carbon_ledger",
			Subsystem: "repository",
			Name:      "request_count",
			Help:      "Number of repository operations.",
		}, fieldKeys),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "carbon_ledger",
			Subsystem: "repository",
			Name:      "request_latency_seconds",
			Help:      "Duration of repository operations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, fieldKeys),
		gatherer: registry,
		registry: registry,
	}
	registry.MustRegister(m.requests, m.latency)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Register adds collectors owned by other components to the same registry.
func (m *Metrics) Register(cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := m.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Gatherer returns the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.gatherer
}

func (m *Metrics) observe(method, collection string, begin time.Time, err error) {
	elapsed := time.Since(begin)
	lvs := []string{method, collection, strconv.FormatBool(err != nil)}
	m.requests.WithLabelValues(lvs...).Inc()
	m.latency.WithLabelValues(lvs...).Observe(elapsed.Seconds())
	if elapsed > slowOperation {
		log.Warn("slow repository operation: %s on %s took %v", method, collection, elapsed)
	}
}

type instrumentedRepository struct {
	next    interfaces.Repository
	metrics *Metrics
}

// Instrument wraps a repository so every call is counted and timed.
func Instrument(next interfaces.Repository, metrics *Metrics) interfaces.Repository {
	return &instrumentedRepository{next: next, metrics: metrics}
}

func (r *instrumentedRepository) result(method, collection string, in <-chan interfaces.RepositoryResult) <-chan interfaces.RepositoryResult {
	begin := time.Now()
	out := make(chan interfaces.RepositoryResult, 1)
	go func() {
		defer close(out)
		res := <-in
		r.metrics.observe(method, collection, begin, res.Error)
		out <- res
	}()
	return out
}

func (r *instrumentedRepository) Save(ctx context.Context, collectionName string, data interface{}) <-chan interfaces.RepositoryResult {
	return r.result("save", collectionName, r.next.Save(ctx, collectionName, data))
}

func (r *instrumentedRepository) SaveMany(ctx context.Context, collectionName string, data []interface{}) <-chan interfaces.RepositoryResult {
	return r.result("save_many", collectionName, r.next.SaveMany(ctx, collectionName, data))
}

func (r *instrumentedRepository) Find(ctx context.Context, collectionName string, query *interfaces.Query, opts *interfaces.FindOptions) <-chan interfaces.QueryResult {
	begin := time.Now()
	in := r.next.Find(ctx, collectionName, query, opts)
	out := make(chan interfaces.QueryResult, 1)
	go func() {
		defer close(out)
		res := <-in
		r.metrics.observe("find", collectionName, begin, res.Error())
		out <- res
	}()
	return out
}

func (r *instrumentedRepository) FindOne(ctx context.Context, collectionName string, query *interfaces.Query) <-chan interfaces.SingleResult {
	begin := time.Now()
	in := r.next.FindOne(ctx, collectionName, query)
	out := make(chan interfaces.SingleResult, 1)
	go func() {
		defer close(out)
		res := <-in
		var err error
		if !res.NoResult() {
			err = res.Error()
		}
		r.metrics.observe("find_one", collectionName, begin, err)
		out <- res
	}()
	return out
}

func (r *instrumentedRepository) Update(ctx context.Context, collectionName string, query *interfaces.Query, updates map[string]interface{}) <-chan interfaces.RepositoryResult {
	return r.result("update", collectionName, r.next.Update(ctx, collectionName, query, updates))
}

func (r *instrumentedRepository) UpdateMany(ctx context.Context, collectionName string, query *interfaces.Query, updates map[string]interface{}) <-chan interfaces.RepositoryResult {
	return r.result("update_many", collectionName, r.next.UpdateMany(ctx, collectionName, query, updates))
}

func (r *instrumentedRepository) Delete(ctx context.Context, collectionName string, query *interfaces.Query) <-chan interfaces.RepositoryResult {
	return r.result("delete", collectionName, r.next.Delete(ctx, collectionName, query))
}

func (r *instrumentedRepository) Count(ctx context.Context, collectionName string, query *interfaces.Query) <-chan interfaces.CountResult {
	begin := time.Now()
	in := r.next.Count(ctx, collectionName, query)
	out := make(chan interfaces.CountResult, 1)
	go func() {
		defer close(out)
		res := <-in
		r.metrics.observe("count", collectionName, begin, res.Error)
		out <- res
	}()
	return out
}

func (r *instrumentedRepository) CreateIndex(ctx context.Context, collectionName string, indexes []interfaces.IndexSpec) <-chan error {
	begin := time.Now()
	in := r.next.CreateIndex(ctx, collectionName, indexes)
	out := make(chan error, 1)
	go func() {
		defer close(out)
		err := <-in
		r.metrics.observe("create_index", collectionName, begin, err)
		out <- err
	}()
	return out
}

func (r *instrumentedRepository) Ping(ctx context.Context) <-chan error {
	return r.next.Ping(ctx)
}

func (r *instrumentedRepository) Close() error {
	return r.next.Close()
}
