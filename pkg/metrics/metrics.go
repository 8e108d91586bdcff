// Package metrics defines the Prometheus collectors for imports and
// categorization. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "paycycle"

type Metrics struct {
	importsTotal    *prometheus.CounterVec
	importRows      *prometheus.CounterVec
	importDuration  prometheus.Histogram
	categorizeTotal *prometheus.CounterVec
	rulesLoaded     prometheus.Gauge
	rulesLearned    prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		importsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Statement imports by result.",
		}, []string{"result"}),
		importRows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_total",
			Help:      "Statement rows by outcome.",
		}, []string{"outcome"}),
		importDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "Time spent importing a statement.",
			Buckets:   prometheus.DefBuckets,
		}),
		categorizeTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "categorize_total",
			Help:      "Categorization lookups by outcome.",
		}, []string{"outcome"}),
		rulesLoaded: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "category_rules_loaded",
			Help:      "Rules in the active categorizer snapshot.",
		}),
		rulesLearned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "category_rules_learned_total",
			Help:      "Rules created from manual categorization.",
		}),
	}
}

// ImportOutcome is the per-row result of an import.
type ImportOutcome struct {
	Imported   int
	Duplicates int
	Skipped    int
	Failed     int
}

func (m *Metrics) ObserveImport(result string, rows ImportOutcome, took time.Duration) {
	if m == nil {
		return
	}
	m.importsTotal.WithLabelValues(result).Inc()
	m.importRows.WithLabelValues("imported").Add(float64(rows.Imported))
	m.importRows.WithLabelValues("duplicate").Add(float64(rows.Duplicates))
	m.importRows.WithLabelValues("skipped").Add(float64(rows.Skipped))
	m.importRows.WithLabelValues("failed").Add(float64(rows.Failed))
	m.importDuration.Observe(took.Seconds())
}

func (m *Metrics) ObserveCategorize(matched bool) {
	if m == nil {
		return
	}
	if matched {
		m.categorizeTotal.WithLabelValues("matched").Inc()
		return
	}
	m.categorizeTotal.WithLabelValues("unmatched").Inc()
}

func (m *Metrics) SetRulesLoaded(n int) {
	if m == nil {
		return
	}
	m.rulesLoaded.Set(float64(n))
}

func (m *Metrics) IncRulesLearned() {
	if m == nil {
		return
	}
	m.rulesLearned.Inc()
}
