package keeper

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ServicesMetrics holds all Prometheus metrics for the services module
type ServicesMetrics struct {
	// Registry metrics
	BlueprintsCreated   prometheus.Counter
	OperatorsRegistered *prometheus.CounterVec

	// Request workflow metrics
	RequestsCreated *prometheus.CounterVec
	Approvals       *prometheus.CounterVec
	RequestsClosed  *prometheus.CounterVec
	ServicesCreated prometheus.Counter
	ServicesRemoved *prometheus.CounterVec
	ServicesActive  prometheus.Gauge
	RequestsPending prometheus.Gauge

	// Escrow metrics
	EscrowHeld     *prometheus.CounterVec
	EscrowReleased *prometheus.CounterVec
	EscrowRefunded *prometheus.CounterVec

	// Job metrics
	JobCalls   prometheus.Counter
	JobResults prometheus.Counter
	Heartbeats prometheus.Counter

	// Slashing metrics
	SlashesRecorded prometheus.Counter
	SlashesDisputed prometheus.Counter
	SlashesApplied  *prometheus.CounterVec

	// External call metrics
	ManagerCallFailures *prometheus.CounterVec

	// EndBlocker metrics
	BlockerErrors *prometheus.CounterVec
}

var (
	servicesMetricsOnce sync.Once
	servicesMetrics     *ServicesMetrics
)

func counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: "tangle",
		Subsystem: "services",
		Name:      name,
		Help:      help,
	}
}

func gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: "tangle",
		Subsystem: "services",
		Name:      name,
		Help:      help,
	}
}

// NewServicesMetrics creates and registers services metrics (singleton pattern)
func NewServicesMetrics() *ServicesMetrics {
	servicesMetricsOnce.Do(func() {
		servicesMetrics = &ServicesMetrics{
			BlueprintsCreated:   promauto.NewCounter(counterOpts("blueprints_created_total", "Total blueprints created")),
			OperatorsRegistered: promauto.NewCounterVec(counterOpts("operator_registrations_total", "Operator registrations and unregistrations"), []string{"action"}),

			RequestsCreated: promauto.NewCounterVec(counterOpts("requests_total", "Service requests by path"), []string{"path"}),
			Approvals:       promauto.NewCounterVec(counterOpts("approvals_total", "Approve calls by outcome"), []string{"outcome"}),
			RequestsClosed:  promauto.NewCounterVec(counterOpts("requests_closed_total", "Requests closed without a service"), []string{"reason"}),
			ServicesCreated: promauto.NewCounter(counterOpts("services_created_total", "Total service instances created")),
			ServicesRemoved: promauto.NewCounterVec(counterOpts("services_removed_total", "Service instances removed"), []string{"reason"}),
			ServicesActive:  promauto.NewGauge(gaugeOpts("services_active", "Live service instances")),
			RequestsPending: promauto.NewGauge(gaugeOpts("requests_pending", "Requests awaiting approval")),

			EscrowHeld:     promauto.NewCounterVec(counterOpts("escrow_held_total", "Payments placed in escrow"), []string{"asset_kind"}),
			EscrowReleased: promauto.NewCounterVec(counterOpts("escrow_released_total", "Escrowed payments released to managers"), []string{"asset_kind"}),
			EscrowRefunded: promauto.NewCounterVec(counterOpts("escrow_refunded_total", "Escrowed payments refunded"), []string{"asset_kind"}),

			JobCalls:   promauto.NewCounter(counterOpts("job_calls_total", "Total job calls")),
			JobResults: promauto.NewCounter(counterOpts("job_results_total", "Total job results submitted")),
			Heartbeats: promauto.NewCounter(counterOpts("heartbeats_total", "Total accepted heartbeats")),

			SlashesRecorded: promauto.NewCounter(counterOpts("slashes_recorded_total", "Unapplied slashes recorded")),
			SlashesDisputed: promauto.NewCounter(counterOpts("slashes_disputed_total", "Unapplied slashes discarded by dispute")),
			SlashesApplied:  promauto.NewCounterVec(counterOpts("slashes_applied_total", "Unapplied slashes applied"), []string{"trigger"}),

			ManagerCallFailures: promauto.NewCounterVec(counterOpts("manager_call_failures_total", "Failed best-effort manager contract calls"), []string{"hook"}),

			BlockerErrors: promauto.NewCounterVec(counterOpts("blocker_errors_total", "EndBlocker errors by operation and severity"), []string{"operation", "severity"}),
		}
	})
	return servicesMetrics
}
