package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReserveSuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capacity_reserve_success_total",
			Help: "Successful capacity reservations",
		},
		[]string{"schedule_id"},
	)

	ReserveRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capacity_reserve_rejected_total",
			Help: "Reservations rejected by the availability guard",
		},
		[]string{"schedule_id", "reason"},
	)

	// Tracks how often a confirm finds less reserved capacity than it is
	// confirming and falls back to adding directly to confirmed. Watching
	// this counter decides whether the lenient path can ever be tightened.
	ConfirmFallback = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "capacity_confirm_fallback_total",
			Help: "Confirms that bypassed a prior reservation",
		},
	)

	AllocationAutoInit = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "capacity_allocation_auto_init_total",
			Help: "Allocations materialized on first read",
		},
	)

	HoldsReleased = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capacity_holds_released_total",
			Help: "Holds released back to available, by cause",
		},
		[]string{"cause"},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "capacity_sweep_duration_seconds",
			Help:    "Duration of expiration sweep runs",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	PricingQuotes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_quotes_total",
			Help: "Price quote computations by outcome",
		},
		[]string{"outcome"},
	)

	PricingCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_cache_total",
			Help: "Quote cache lookups by result",
		},
		[]string{"result"},
	)

	DiscountRedemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_discount_redemptions_total",
			Help: "Discount code redemptions by outcome",
		},
		[]string{"outcome"},
	)
)
