package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	IssuesPublishedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "parchmail_issues_published_total",
			Help: "Total number of newsletter issues published.",
		},
	)

	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parchmail_deliveries_total",
			Help: "Total number of delivery attempts by outcome.",
		},
		[]string{"outcome"}, // sent, gateway_error, invalid_recipient, missing_issue
	)

	IdempotencyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parchmail_idempotency_total",
			Help: "Total number of publish requests by idempotency outcome.",
		},
		[]string{"outcome"}, // fresh, replayed
	)

	StoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parchmail_store_errors_total",
			Help: "Total number of store/infrastructure errors by operation.",
		},
		[]string{"op"}, // claim, retire, fetch_issue
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "parchmail_delivery_queue_depth",
			Help: "Number of pending delivery tasks.",
		},
	)

	SendLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "parchmail_gateway_send_seconds",
			Help:    "Latency of email gateway send calls.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func MustRegister(reg *prometheus.Registry) {
	reg.MustRegister(
		IssuesPublishedTotal,
		DeliveriesTotal,
		IdempotencyTotal,
		StoreErrorsTotal,
		QueueDepth,
		SendLatency,
	)
}

// RecordDelivery increments the delivery counter for the given outcome.
func RecordDelivery(outcome string) {
	DeliveriesTotal.WithLabelValues(outcome).Inc()
}

// RecordIdempotency increments the idempotency counter for the given outcome.
func RecordIdempotency(outcome string) {
	IdempotencyTotal.WithLabelValues(outcome).Inc()
}

// RecordStoreError increments the store error counter for the given operation.
func RecordStoreError(op string) {
	StoreErrorsTotal.WithLabelValues(op).Inc()
}
