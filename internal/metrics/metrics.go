// Package metrics provides Prometheus observability for the access-code engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is valid
// and records nothing, so wiring stays optional in tests.
type Metrics struct {
	// Registrations of new identities.
	Registrations prometheus.Counter
	// Retrievals of an existing identity's code.
	Retrievals prometheus.Counter
	// TTL ledger issuances.
	LedgerIssued prometheus.Counter
	// TTL ledger redemption outcomes by result.
	Redemptions *prometheus.CounterVec
	// Sync hook failures (non-fatal by design, but worth watching).
	SyncFailures prometheus.Counter
}

// New creates a Metrics instance with all collectors registered on the
// default registry.
func New() *Metrics {
	return &Metrics{
		Registrations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "access_identity_registrations_total",
			Help: "Total identities registered",
		}),
		Retrievals: promauto.NewCounter(prometheus.CounterOpts{
			Name: "access_identity_retrievals_total",
			Help: "Total successful code retrievals for existing identities",
		}),
		LedgerIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "access_ledger_codes_issued_total",
			Help: "Total TTL codes issued by the ledger",
		}),
		Redemptions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "access_ledger_redemptions_total",
			Help: "Total TTL code redemption attempts by result",
		}, []string{"result"}), // result: "ok", "not_found", "already_used", "expired"
		SyncFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "access_sync_failures_total",
			Help: "Total post-write sync hook failures",
		}),
	}
}

// IncRegistration records a completed registration.
func (m *Metrics) IncRegistration() {
	if m != nil {
		m.Registrations.Inc()
	}
}

// IncRetrieval records a code retrieval for an existing identity.
func (m *Metrics) IncRetrieval() {
	if m != nil {
		m.Retrievals.Inc()
	}
}

// IncLedgerIssued records a TTL code issuance.
func (m *Metrics) IncLedgerIssued() {
	if m != nil {
		m.LedgerIssued.Inc()
	}
}

// IncRedemption records a redemption attempt outcome.
func (m *Metrics) IncRedemption(result string) {
	if m != nil {
		m.Redemptions.WithLabelValues(result).Inc()
	}
}

// IncSyncFailure records a failed (logged, non-fatal) sync hook run.
func (m *Metrics) IncSyncFailure() {
	if m != nil {
		m.SyncFailures.Inc()
	}
}
