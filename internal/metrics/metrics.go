// Package metrics is the observability side-channel: it implements
// the engine's Recorder hook on Prometheus without the core knowing
// the backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nordvault/bank-backend/internal/ledger"
	"github.com/nordvault/bank-backend/internal/money"
)

var _ ledger.Recorder = (*Recorder)(nil)

type Recorder struct {
	registrations prometheus.Counter
	logins        prometheus.Counter
	transactions  *prometheus.CounterVec
	amounts       *prometheus.HistogramVec
}

// NewRecorder registers the bank metrics on reg. Pass
// prometheus.DefaultRegisterer in production and a fresh
// prometheus.NewRegistry() in tests.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		registrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "bank_user_registrations_total",
			Help: "Total user registrations",
		}),
		logins: factory.NewCounter(prometheus.CounterOpts{
			Name: "bank_user_logins_total",
			Help: "Total user logins",
		}),
		transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_transactions_total",
			Help: "Total committed ledger transactions",
		}, []string{"transaction_type"}),
		amounts: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bank_transaction_amount",
			Help:    "Committed transaction amounts",
			Buckets: prometheus.ExponentialBuckets(1, 10, 7),
		}, []string{"transaction_type"}),
	}
}

// RecordTransaction is called by the engine after a commit. The
// histogram observation is a float approximation; exact amounts live
// only in the ledger.
func (r *Recorder) RecordTransaction(entryType ledger.EntryType, amount money.Money) {
	r.transactions.WithLabelValues(string(entryType)).Inc()
	r.amounts.WithLabelValues(string(entryType)).Observe(amount.Decimal().InexactFloat64())
}

func (r *Recorder) RecordRegistration() { r.registrations.Inc() }
func (r *Recorder) RecordLogin()        { r.logins.Inc() }
