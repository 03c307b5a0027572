// Package promhook exports cache events as Prometheus metrics.
package promhook

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/unkn0wn-root/tilecache"
	"github.com/unkn0wn-root/tilecache/fetch"
	"github.com/unkn0wn-root/tilecache/tile"
)

type Hooks struct {
	fetches     prometheus.Counter
	fetchErrors *prometheus.CounterVec
	latency     prometheus.Histogram
	evictions   *prometheus.CounterVec
	discarded   prometheus.Counter
	selfHeals   *prometheus.CounterVec
	storeErrors *prometheus.CounterVec
	rejected    prometheus.Counter
}

var _ tilecache.Hooks = (*Hooks)(nil)

// New registers the metrics with reg (prometheus.DefaultRegisterer when nil)
// under the "tilecache" namespace.
func New(reg prometheus.Registerer) *Hooks {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	const ns = "tilecache"
	return &Hooks{
		fetches: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "fetches_total",
			Help: "Tile fetches scheduled",
		}),
		fetchErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "fetch_errors_total",
			Help: "Failed tile fetches by error kind",
		}, []string{"kind"}),
		latency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Name: "fetch_duration_seconds",
			Help:    "Duration of successful fetches, network and decode",
			Buckets: prometheus.DefBuckets,
		}),
		evictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "evictions_total",
			Help: "Tiles evicted by state",
		}, []string{"state"}),
		discarded: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "completions_discarded_total",
			Help: "Fetch results dropped because the attempt was superseded",
		}),
		selfHeals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "http_store_self_heals_total",
			Help: "Unreadable HTTP cache records deleted, by reason",
		}, []string{"reason"}),
		storeErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "http_store_errors_total",
			Help: "HTTP cache backend errors by operation",
		}, []string{"op"}),
		rejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "http_store_set_rejected_total",
			Help: "HTTP cache writes dropped by the backend",
		}),
	}
}

func (h *Hooks) FetchStarted(tile.ID, uint64) { h.fetches.Inc() }

func (h *Hooks) FetchSucceeded(_ tile.ID, d time.Duration) { h.latency.Observe(d.Seconds()) }

func (h *Hooks) FetchFailed(_ tile.ID, err *fetch.Error) {
	h.fetchErrors.WithLabelValues(err.Kind.String()).Inc()
}

func (h *Hooks) Evicted(_ tile.ID, state string) { h.evictions.WithLabelValues(state).Inc() }

func (h *Hooks) CompletionDiscarded(tile.ID, uint64) { h.discarded.Inc() }

func (h *Hooks) StoreSelfHeal(_, reason string) { h.selfHeals.WithLabelValues(reason).Inc() }

func (h *Hooks) StoreError(op, _ string, _ error) { h.storeErrors.WithLabelValues(op).Inc() }

func (h *Hooks) StoreSetRejected(string) { h.rejected.Inc() }
