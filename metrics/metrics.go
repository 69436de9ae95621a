package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Metrics holds every Prometheus collector of the service. A nil *Metrics records nothing.
type Metrics struct {
	logger *zap.Logger

	// Counters
	leadApprovals     *prometheus.CounterVec
	approvalFailures  *prometheus.CounterVec
	bonusesAwarded    *prometheus.CounterVec
	referralsApproved prometheus.Counter
	earningsRecorded  *prometheus.CounterVec
	withdrawals       *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec

	// Histograms
	approvalDuration prometheus.Histogram
	httpDuration     *prometheus.HistogramVec

	// Gauges
	operatorsOnline prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer, logger *zap.Logger) *Metrics {
	m := &Metrics{
		logger: logger,

		leadApprovals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lead_approvals_total",
				Help: "Lead approvals by outcome",
			},
			[]string{"result"}, // success, failed
		),

		approvalFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lead_approval_step_failures_total",
				Help: "Lead approval failures by engine step",
			},
			[]string{"step"},
		),

		bonusesAwarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "level_bonuses_awarded_total",
				Help: "Monthly level bonuses awarded",
			},
			[]string{"tier"},
		),

		referralsApproved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "referrals_approved_total",
				Help: "Referrals flipped to approved",
			},
		),

		earningsRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "earnings_recorded_amount_total",
				Help: "Sum of recorded earning amounts",
			},
			[]string{"type"}, // sale, bonus, referral
		),

		withdrawals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "withdraw_requests_processed_total",
				Help: "Withdraw requests processed by decision",
			},
			[]string{"decision"}, // approved, rejected, deleted
		),

		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),

		approvalDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lead_approval_duration_seconds",
				Help:    "Time spent approving one lead",
				Buckets: prometheus.DefBuckets,
			},
		),

		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		operatorsOnline: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "operators_online",
				Help: "Operators connected to the live feed",
			},
		),
	}

	reg.MustRegister(
		m.leadApprovals,
		m.approvalFailures,
		m.bonusesAwarded,
		m.referralsApproved,
		m.earningsRecorded,
		m.withdrawals,
		m.httpRequests,
		m.approvalDuration,
		m.httpDuration,
		m.operatorsOnline,
	)

	return m
}

func (m *Metrics) RecordApproval(success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failed"
	}
	m.leadApprovals.WithLabelValues(result).Inc()
	m.approvalDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) RecordApprovalFailure(step string) {
	if m == nil {
		return
	}
	m.approvalFailures.WithLabelValues(step).Inc()
}

func (m *Metrics) RecordEarning(earningType string, amount float64) {
	if m == nil {
		return
	}
	m.earningsRecorded.WithLabelValues(earningType).Add(amount)
}

func (m *Metrics) RecordBonus(tier string) {
	if m == nil {
		return
	}
	m.bonusesAwarded.WithLabelValues(tier).Inc()
}

func (m *Metrics) RecordReferral() {
	if m == nil {
		return
	}
	m.referralsApproved.Inc()
}

func (m *Metrics) RecordWithdrawal(decision string) {
	if m == nil {
		return
	}
	m.withdrawals.WithLabelValues(decision).Inc()
}

func (m *Metrics) RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) SetOperatorsOnline(n int) {
	if m == nil {
		return
	}
	m.operatorsOnline.Set(float64(n))
}
