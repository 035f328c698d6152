package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/tiercache"
)

// Hooks counts coordinator and flush failures. Register it with a
// prometheus.Registerer and pass it to the manager and coordinator.
// Cache-level events are already covered by Collector and are ignored here.
type Hooks struct {
	tiercache.NopHooks

	loadFailures        *prometheus.CounterVec
	contributorFailures *prometheus.CounterVec
	flushFailures       *prometheus.CounterVec
}

var (
	_ tiercache.Hooks      = (*Hooks)(nil)
	_ prometheus.Collector = (*Hooks)(nil)
)

func NewHooks(namespace string) *Hooks {
	return &Hooks{
		loadFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "coordinator",
				Name:      "load_failures_total",
				Help:      "Repository queries that failed during a namespace load",
			},
			[]string{"namespace", "repository"},
		),
		contributorFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "coordinator",
				Name:      "contributor_failures_total",
				Help:      "Contributors that failed or panicked during a namespace load",
			},
			[]string{"namespace", "contributor"},
		),
		flushFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "writeback",
				Name:      "flush_failures_total",
				Help:      "Write-back flushes that left entries dirty",
			},
			[]string{"repository"},
		),
	}
}

func (h *Hooks) LoadFailed(namespace, repository string, _ error) {
	h.loadFailures.WithLabelValues(namespace, repository).Inc()
}

func (h *Hooks) ContributorFailed(namespace, contributor string, _ error) {
	h.contributorFailures.WithLabelValues(namespace, contributor).Inc()
}

func (h *Hooks) FlushFailed(repository string, _ int, _ error) {
	h.flushFailures.WithLabelValues(repository).Inc()
}

func (h *Hooks) Describe(ch chan<- *prometheus.Desc) {
	h.loadFailures.Describe(ch)
	h.contributorFailures.Describe(ch)
	h.flushFailures.Describe(ch)
}

func (h *Hooks) Collect(ch chan<- prometheus.Metric) {
	h.loadFailures.Collect(ch)
	h.contributorFailures.Collect(ch)
	h.flushFailures.Collect(ch)
}
