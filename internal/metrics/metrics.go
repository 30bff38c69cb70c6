package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SignatureFailures counts rejected signatures by surface:
	// admin | oauth | proxy | webhook.
	SignatureFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "popclips_signature_failures_total",
		Help: "Rejected request/webhook signatures by surface",
	}, []string{"surface"})

	// WebhookDeliveries counts verified webhook deliveries by topic and
	// result: processed | duplicate | error.
	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "popclips_webhook_deliveries_total",
		Help: "Verified webhook deliveries by topic and result",
	}, []string{"topic", "result"})

	// StorefrontEvents counts recorded analytics events by type.
	StorefrontEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "popclips_storefront_events_total",
		Help: "Recorded storefront analytics events by type",
	}, []string{"type"})

	// Installs counts OAuth install outcomes: started | completed | failed.
	Installs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "popclips_installs_total",
		Help: "OAuth install flow outcomes",
	}, []string{"outcome"})
)

// Handler serves the default registry on /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
