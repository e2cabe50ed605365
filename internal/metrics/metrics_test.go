package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMustRegister(t *testing.T) {
	registry := prometheus.NewRegistry()

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("MustRegister() panicked: %v", r)
		}
	}()

	MustRegister(registry)

	// Record some values so metrics appear in Gather()
	IssuesPublishedTotal.Inc()
	RecordDelivery("sent")
	RecordIdempotency("replayed")
	RecordStoreError("claim")
	QueueDepth.Set(3)
	SendLatency.Observe(0.05)

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("Registry.Gather() error: %v", err)
	}

	expectedMetrics := []string{
		"parchmail_issues_published_total",
		"parchmail_deliveries_total",
		"parchmail_idempotency_total",
		"parchmail_store_errors_total",
		"parchmail_delivery_queue_depth",
		"parchmail_gateway_send_seconds",
	}

	registeredMetrics := make(map[string]bool)
	for _, mf := range metricFamilies {
		registeredMetrics[mf.GetName()] = true
	}

	for _, expected := range expectedMetrics {
		if !registeredMetrics[expected] {
			t.Errorf("Expected metric %s not found in registry", expected)
		}
	}
}

func TestRecordDeliveryOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		outcome string
	}{
		{name: "sent outcome", outcome: "sent"},
		{name: "gateway error outcome", outcome: "gateway_error"},
		{name: "invalid recipient outcome", outcome: "invalid_recipient"},
		{name: "missing issue outcome", outcome: "missing_issue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(DeliveriesTotal.WithLabelValues(tt.outcome))
			RecordDelivery(tt.outcome)
			after := testutil.ToFloat64(DeliveriesTotal.WithLabelValues(tt.outcome))
			if after != before+1 {
				t.Errorf("RecordDelivery(%q): counter = %v, want %v", tt.outcome, after, before+1)
			}
		})
	}
}
