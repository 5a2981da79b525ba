package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	SignatureRequestsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "esign_signature_requests_created_total",
			Help: "Total number of signature requests issued",
		},
	)

	SignaturesCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "esign_signatures_completed_total",
			Help: "Total number of successfully processed signatures",
		},
	)

	SignatureFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esign_signature_failures_total",
			Help: "Signature submissions rejected, by reason",
		},
		[]string{"reason"},
	)

	SignatureProcessingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "esign_signature_processing_duration_seconds",
			Help:    "Duration of signature submission processing",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func Register() {
	prometheus.MustRegister(SignatureRequestsCreatedTotal)
	prometheus.MustRegister(SignaturesCompletedTotal)
	prometheus.MustRegister(SignatureFailuresTotal)
	prometheus.MustRegister(SignatureProcessingDuration)
}
