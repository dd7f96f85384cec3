package metrics

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"coveragesync/internal/models"
)

const namespace = "coveragesync"

var cacheKeysDesc = prometheus.NewDesc(
	namespace+"_cache_keys",
	"Keys in the coverage cache by state",
	[]string{"state"},
	nil,
)

// StatsReader reads aggregate cache counts.
type StatsReader interface {
	GetCoverageStats(ctx context.Context) (models.CoverageStats, error)
}

// CacheCollector is a custom Prometheus collector that reads cache counts from the
// database on each scrape.
type CacheCollector struct {
	store  StatsReader
	logger *zap.Logger
}

// Describe sends the metric descriptor to the channel.
func (c *CacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- cacheKeysDesc
}

// Collect queries the cache stats and emits them as gauges.
func (c *CacheCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats, err := c.store.GetCoverageStats(ctx)
	if err != nil {
		c.logger.Error("failed to collect cache metrics", zap.Error(err))
		return
	}
	emit := func(state string, v int64) {
		ch <- prometheus.MustNewConstMetric(cacheKeysDesc, prometheus.GaugeValue, float64(v), state)
	}
	emit("covered", stats.Covered)
	emit("not_covered", stats.Valid-stats.Covered)
	emit("invalid", stats.Invalid())
}

// Recorder holds the sync-side counters. A nil *Recorder discards everything.
type Recorder struct {
	attempts        *prometheus.CounterVec
	attemptDuration prometheus.Histogram
	keys            *prometheus.CounterVec
	persistErrors   *prometheus.CounterVec
	remaining       *prometheus.GaugeVec
}

// NewRecorder creates a recorder and registers its metrics with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_attempts_total",
			Help:      "HTTP attempts against the coverage API by response status",
		}, []string{"status"}),
		attemptDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_attempt_duration_seconds",
			Help:      "Latency of coverage API attempts",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		keys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keys_processed_total",
			Help:      "Keys processed by sync runs by outcome",
		}, []string{"outcome"}),
		persistErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_errors_total",
			Help:      "Failed cache or ledger writes",
		}, []string{"target"}),
		remaining: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_keys_remaining",
			Help:      "Keys left in the current run",
		}, []string{"job_type"}),
	}
	reg.MustRegister(r.attempts, r.attemptDuration, r.keys, r.persistErrors, r.remaining)
	return r
}

// ObserveAttempt records one HTTP attempt. status 0 means no response arrived.
func (r *Recorder) ObserveAttempt(status int, err error, elapsed time.Duration) {
	if r == nil {
		return
	}
	label := "error"
	if status != 0 {
		label = strconv.Itoa(status)
	}
	r.attempts.WithLabelValues(label).Inc()
	r.attemptDuration.Observe(elapsed.Seconds())
}

// KeyProcessed counts a finished key by outcome (models.Outcome* constants).
func (r *Recorder) KeyProcessed(outcome string) {
	if r == nil {
		return
	}
	r.keys.WithLabelValues(outcome).Inc()
}

// PersistenceError counts a failed write to "cache" or "ledger".
func (r *Recorder) PersistenceError(target string) {
	if r == nil {
		return
	}
	r.persistErrors.WithLabelValues(target).Inc()
}

// SetRemaining publishes how many keys the current run still has to process.
func (r *Recorder) SetRemaining(jobType string, n int) {
	if r == nil {
		return
	}
	r.remaining.WithLabelValues(jobType).Set(float64(n))
}

var (
	recorder     *Recorder
	recorderOnce sync.Once
)

// Init registers the cache collector and the sync recorder with the default
// registry and returns the recorder. Safe to call more than once.
func Init(store StatsReader, logger *zap.Logger) *Recorder {
	recorderOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
		recorder = NewRecorder(prometheus.DefaultRegisterer)
		if store != nil {
			prometheus.MustRegister(&CacheCollector{store: store, logger: logger})
		}
	})
	return recorder
}
