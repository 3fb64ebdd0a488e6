// Package metrics declares the Prometheus collectors for wallet activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pagemint"

// UnlocksTotal counts unlock attempts by method, currency and outcome.
var UnlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "wallet",
	Name:      "unlocks_total",
	Help:      "Chapter unlock attempts by method, currency and result.",
}, []string{"method", "currency", "result"})

// CurrencySpent tracks units debited from wallets.
var CurrencySpent = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "wallet",
	Name:      "currency_spent_total",
	Help:      "Units of currency spent on unlocks.",
}, []string{"currency"})

var BatchesGranted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "wallet",
	Name:      "batches_granted_total",
	Help:      "Expiring currency batches created, by grant kind.",
}, []string{"kind"})

var BillingEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "billing",
	Name:      "events_total",
	Help:      "Billing webhook events by type and outcome.",
}, []string{"type", "outcome"})

// ConflictRetries counts ledger transactions retried after a serialization
// failure or deadlock.
var ConflictRetries = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "wallet",
	Name:      "conflict_retries_total",
	Help:      "Ledger transactions retried after a concurrency conflict.",
})
