// Package metrics exposes the Prometheus registry shared by the DevERP client.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, pagination, scroll, workflow, notify) to maintain modularity
// and avoid circular dependencies.
//
// This package provides the /metrics handler, the health server and a
// reference of all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the DevERP client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the source the /metrics handler reads from.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the metrics in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - deverp_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - deverp_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - deverp_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, payload)
//
// Retry Metrics (pkg/client):
//   - deverp_retries_total{error_class} (Counter): Retry attempts by error class
//   - deverp_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - deverp_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Cache Metrics (pkg/cache):
//   - deverp_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - deverp_cache_misses_total (Counter): Cache misses
//   - deverp_cache_size_bytes{layer="redis"} (Gauge): Current cache size in bytes
//   - deverp_304_responses_total (Counter): 304 Not Modified responses
//   - deverp_conditional_requests_total (Counter): Conditional requests sent
//   - deverp_cache_errors_total{operation} (Counter): Cache operation errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - deverp_rate_limit_remaining (Gauge): Requests remaining in the backend window
//   - deverp_rate_limit_blocks_total (Counter): Requests blocked at the critical threshold
//   - deverp_rate_limit_throttles_total (Counter): Requests delayed at the warning threshold
//
// List Metrics (pkg/pagination):
//   - deverp_pagination_pages_loaded_total{list} (Counter): Pages merged into a list
//   - deverp_pagination_items_loaded_total{list} (Counter): Items merged into a list
//   - deverp_pagination_failures_total{list} (Counter): Page loads that failed
//   - deverp_pagination_stale_total{list} (Counter): Results discarded after a filter reset
//   - deverp_pagination_skipped_total{list, reason} (Counter): Loads skipped (loading, exhausted)
//   - deverp_pagination_filter_resets_total{list} (Counter): Filter changes
//   - deverp_pagination_fetch_duration_seconds{list} (Histogram): Page fetch duration
//   - deverp_batch_pages_total{result} (Counter): Pages fetched by export batches
//
// Interaction Metrics (pkg/scroll, pkg/workflow, pkg/notify):
//   - deverp_scroll_events_total (Counter): Scroll events received
//   - deverp_scroll_evaluations_total{decision} (Counter): Debounced scroll evaluations
//   - deverp_workflow_actions_total{action, result} (Counter): Workflow actions
//   - deverp_notifications_total{level} (Counter): Notifications raised
//   - deverp_notifications_dropped_total (Counter): Notifications a full subscriber missed
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(deverp_cache_hits_total[5m])) /
//   (sum(rate(deverp_cache_hits_total[5m])) + sum(rate(deverp_cache_misses_total[5m])))
//
//   # Page load failure ratio
//   rate(deverp_pagination_failures_total[5m]) / rate(deverp_pagination_pages_loaded_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(deverp_request_duration_seconds_bucket[5m]))
