package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	// webhookEvents counts verified and rejected webhook deliveries.
	// type is "unknown" for deliveries rejected before the event was decoded.
	webhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Payment provider webhook deliveries by event type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	// donationReceipts counts receipt email attempts per transport.
	donationReceipts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donation_receipts_total",
			Help: "Donation receipt email attempts by transport and result.",
		},
		[]string{"transport", "result"},
	)
)

func init() {
	prometheus.MustRegister(webhookEvents, donationReceipts)
}

// ObserveWebhook records the outcome of one webhook delivery.
func ObserveWebhook(eventType, outcome string) {
	if eventType == "" {
		eventType = "unknown"
	}
	webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// ObserveReceipt records one receipt send attempt on a transport.
func ObserveReceipt(transport string, err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	donationReceipts.WithLabelValues(transport, result).Inc()
}
