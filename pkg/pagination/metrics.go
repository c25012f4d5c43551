package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesLoadedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deverp_pagination_pages_loaded_total",
		Help: "Pages merged into a list",
	}, []string{"list"})

	itemsLoadedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deverp_pagination_items_loaded_total",
		Help: "Items merged into a list",
	}, []string{"list"})

	loadFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deverp_pagination_failures_total",
		Help: "Page loads that failed and left the list unchanged",
	}, []string{"list"})

	staleTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deverp_pagination_stale_total",
		Help: "Page results discarded because the filters changed while in flight",
	}, []string{"list"})

	skippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deverp_pagination_skipped_total",
		Help: "Load requests skipped without a fetch by reason",
	}, []string{"list", "reason"})

	filterResetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deverp_pagination_filter_resets_total",
		Help: "Filter changes that reset a list",
	}, []string{"list"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "deverp_pagination_fetch_duration_seconds",
		Help:    "Time from fetch start to settle",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"list"})

	batchPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deverp_batch_pages_total",
		Help: "Pages fetched by the batch fetcher by result",
	}, []string{"result"})
)
