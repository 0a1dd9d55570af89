// Package metrics exposes the Prometheus instrumentation shared across the
// fetcher, resolver, and proxy. Served at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts inbound API requests by route and status class.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xtream2m3u_requests_total",
		Help: "Inbound HTTP requests by route and status.",
	}, []string{"route", "status"})

	// CatalogEndpointFailures counts per-endpoint upstream catalog failures.
	CatalogEndpointFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xtream2m3u_catalog_endpoint_failures_total",
		Help: "Catalog endpoint fetch failures by endpoint name.",
	}, []string{"endpoint"})

	// EpisodeFetchFailures counts series whose episode resolution failed.
	EpisodeFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xtream2m3u_episode_fetch_failures_total",
		Help: "get_series_info calls that failed or returned no episodes.",
	})

	// ProxyRequests counts proxy requests by variant and terminal outcome.
	ProxyRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xtream2m3u_proxy_requests_total",
		Help: "Proxy requests by variant (image/stream) and outcome.",
	}, []string{"variant", "outcome"})

	// ProxyBytes counts bytes forwarded to clients by proxy variant.
	ProxyBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xtream2m3u_proxy_bytes_total",
		Help: "Bytes forwarded to clients by proxy variant.",
	}, []string{"variant"})

	// ProxyInFlight tracks currently streaming proxy requests.
	ProxyInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xtream2m3u_proxy_in_flight",
		Help: "Proxy requests currently streaming.",
	})
)

// Handler returns the /metrics handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
