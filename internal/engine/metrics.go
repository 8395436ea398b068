package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/gauge/internal/footprint"
)

// Outcome labels.
const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

// Metrics counts engine operations. Register it against a dedicated
// registry in tests so counts start at zero.
type Metrics struct {
	products  *prometheus.CounterVec
	checks    *prometheus.CounterVec
	saves     *prometheus.CounterVec
	warnings  *prometheus.CounterVec
	evalFails *prometheus.CounterVec
}

// NewMetrics creates the engine counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		products: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gauge_product_validations_total",
			Help: "Product definition validations by outcome",
		}, []string{"outcome"}),
		checks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gauge_item_checks_total",
			Help: "Item checks by outcome",
		}, []string{"outcome"}),
		saves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gauge_record_writes_total",
			Help: "Save and submit requests by operation and outcome",
		}, []string{"op", "outcome"}),
		warnings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gauge_staleness_warnings_total",
			Help: "Staleness warnings raised by level",
		}, []string{"level"}),
		evalFails: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gauge_evaluation_failures_total",
			Help: "Item evaluation failures by error code",
		}, []string{"code"}),
	}
}

func (m *Metrics) product(outcome string) {
	if m != nil {
		m.products.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) check(outcome string) {
	if m != nil {
		m.checks.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) write(op Op, outcome string) {
	if m != nil {
		m.saves.WithLabelValues(string(op), outcome).Inc()
	}
}

func (m *Metrics) staleness(se *footprint.StalenessError) {
	if m == nil {
		return
	}
	m.warnings.WithLabelValues(string(footprint.LevelCritical)).Add(float64(se.CriticalCount))
	m.warnings.WithLabelValues(string(footprint.LevelWarning)).Add(float64(se.DependencyCount))
}

func (m *Metrics) evaluation(code ErrorCode) {
	if m != nil {
		m.evalFails.WithLabelValues(string(code)).Inc()
	}
}
