// Package metrics exports cache manager state to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(metrics.NewCollector(mgr, "game"))
//	hooks := metrics.NewHooks("game")
//	reg.MustRegister(hooks)
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/tiercache"
)

// Snapshotter is satisfied by *tiercache.Manager.
type Snapshotter interface {
	Snapshot() []tiercache.RepositoryStats
}

// Collector reads a fresh manager snapshot on every scrape, so it never
// holds state of its own.
type Collector struct {
	src Snapshotter

	hits        *prometheus.Desc
	misses      *prometheus.Desc
	evictions   *prometheus.Desc
	promotions  *prometheus.Desc
	expirations *prometheus.Desc
	entries     *prometheus.Desc
	dirty       *prometheus.Desc
	enabled     *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector builds a collector; namespace prefixes every metric name.
func NewCollector(src Snapshotter, namespace string) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", name),
			help,
			append([]string{"repository"}, labels...),
			nil,
		)
	}
	return &Collector{
		src:         src,
		hits:        desc("hits_total", "Lookups served from the cache"),
		misses:      desc("misses_total", "Lookups that found nothing or an expired entry"),
		evictions:   desc("evictions_total", "Entries dropped for capacity or expiry"),
		promotions:  desc("promotions_total", "Entries moved from the normal to the hot tier"),
		expirations: desc("expirations_total", "Entries dropped because their TTL elapsed"),
		entries:     desc("entries", "Entries currently cached"),
		dirty:       desc("dirty_entries", "Write-back entries not yet persisted"),
		enabled:     desc("enabled", "1 when caching is on for the repository", "policy", "write_strategy"),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.evictions
	ch <- c.promotions
	ch <- c.expirations
	ch <- c.entries
	ch <- c.dirty
	ch <- c.enabled
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, r := range c.src.Snapshot() {
		name := r.Settings.Repository
		counter := func(d *prometheus.Desc, v uint64) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), name)
		}
		gauge := func(d *prometheus.Desc, v int) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v), name)
		}

		counter(c.hits, r.Stats.Hits)
		counter(c.misses, r.Stats.Misses)
		counter(c.evictions, r.Stats.Evictions)
		counter(c.promotions, r.Stats.Promotions)
		counter(c.expirations, r.Stats.Expirations)
		gauge(c.entries, r.Size)
		gauge(c.dirty, r.Dirty)

		on := 0.0
		if r.Settings.Enabled {
			on = 1
		}
		ch <- prometheus.MustNewConstMetric(c.enabled, prometheus.GaugeValue, on,
			name, r.Settings.Policy.String(), r.Settings.WriteStrategy.String())
	}
}
