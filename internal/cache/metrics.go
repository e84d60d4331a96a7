package cache

import "github.com/prometheus/client_golang/prometheus"

type statsCollector struct {
	backend   Backend
	hits      *prometheus.Desc
	misses    *prometheus.Desc
	keys      *prometheus.Desc
	evictions *prometheus.Desc
}

// Collector reports the shared backend's Stats on every scrape.
func (s *Services) Collector() prometheus.Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("carbon_ledger", "cache", name), help, nil, nil)
	}
	return &statsCollector{
		backend:   s.backend,
		hits:      desc("hits_total", "Cache lookups that found a live key."),
		misses:    desc("misses_total", "Cache lookups that found nothing."),
		keys:      desc("keys", "Keys currently stored."),
		evictions: desc("evictions_total", "Keys dropped to stay within the memory budget."),
	}
}

func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.keys
	ch <- c.evictions
}

func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.backend.Stats()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(st.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(st.Misses))
	ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(st.Keys))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(st.Evictions))
}
