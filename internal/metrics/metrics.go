// Package metrics provides Prometheus metrics for the Card Vault backend.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vault_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Collection read cache
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vault_collection_cache_hits_total",
			Help: "FetchAll calls served from the TTL read cache",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vault_collection_cache_misses_total",
			Help: "FetchAll calls that required a backend reload",
		},
	)

	CacheReloadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vault_collection_cache_reloads_total",
			Help: "Completed full backend reloads of the collection cache",
		},
	)

	CacheReloadsDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vault_collection_cache_reloads_discarded_total",
			Help: "Reloads discarded because a newer reload superseded them",
		},
	)

	// Store mutations
	StoreMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_store_mutations_total",
			Help: "Collection mutations by operation and resulting status",
		},
		[]string{"operation", "status"},
	)

	GroupOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_group_operations_total",
			Help: "Group lifecycle operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// Price resolution
	PriceResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_price_resolutions_total",
			Help: "Price resolutions by winning source (live, robust, legacy, none)",
		},
		[]string{"source"},
	)

	PriceWritebacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vault_price_writebacks_total",
			Help: "Price values written back into lower cache tiers",
		},
	)

	// Price feed API
	FeedRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vault_feed_requests_total",
			Help: "Total number of market price feed API requests made",
		},
	)

	FeedQuotaRemaining = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vault_feed_quota_remaining",
			Help: "Remaining price feed API requests for today",
		},
	)

	FeedQuotaLimit = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vault_feed_quota_limit",
			Help: "Daily price feed API request limit",
		},
	)

	// Price warm worker
	PriceUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vault_price_updates_total",
			Help: "Total number of card prices refreshed by the warm worker",
		},
	)

	PriceQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vault_price_queue_size",
			Help: "Number of cards waiting in the urgent refresh queue",
		},
	)

	PriceBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vault_price_batch_duration_seconds",
			Help:    "Time taken to process a price refresh batch",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// Sharing
	SharesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vault_shares_created_total",
			Help: "Share snapshots created",
		},
	)

	ShareAccessesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_share_accesses_total",
			Help: "Share link accesses by result (ok, expired, not_found, denied)",
		},
		[]string{"result"},
	)

	// Import/Export
	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_imports_total",
			Help: "Imported items by result",
		},
		[]string{"result"},
	)

	ExportsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vault_exports_total",
			Help: "Export documents produced",
		},
	)

	// Collection value
	GroupValueUSD = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vault_group_value_usd",
			Help: "Aggregated group value in USD by collection type",
		},
		[]string{"group", "type"},
	)
)
