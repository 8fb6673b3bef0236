package constants

import (
	"fmt"
	"time"
)

// Redis cache keys and TTLs for the tourly capacity and pricing core.
// Pattern: tourly:{module}:{operation}:{identifier}:{params?}

// ================== CACHE TTL DURATIONS ==================

// Semi-static data (changes occasionally)
const (
	TTL_SEMI_STATIC_MEDIUM = 2 * time.Hour
	TTL_SEMI_STATIC_SHORT  = 1 * time.Hour
)

// Dynamic data (changes frequently)
const (
	TTL_DYNAMIC_MEDIUM = 10 * time.Minute
	TTL_DYNAMIC_SHORT  = 5 * time.Minute
	TTL_DYNAMIC_QUICK  = 2 * time.Minute
)

// Highly dynamic (real-time sensitive)
const (
	TTL_REALTIME_SHORT = 30 * time.Second
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "tourly"
)

// ================== CAPACITY MODULE ==================

const (
	CACHE_KEY_SCHEDULE_DETAIL       = CACHE_PREFIX + ":capacity:schedule:uuid:" // + schedule-id
	CACHE_KEY_SCHEDULE_AVAILABILITY = CACHE_PREFIX + ":capacity:availability:"  // + schedule-id
	CACHE_KEY_SCHEDULE_OCCUPANCY    = CACHE_PREFIX + ":capacity:occupancy:"     // + schedule-id
)

const (
	TTL_SCHEDULE_DETAIL       = TTL_SEMI_STATIC_MEDIUM // 2 hours
	TTL_SCHEDULE_AVAILABILITY = TTL_REALTIME_SHORT     // 30 seconds
	TTL_SCHEDULE_OCCUPANCY    = TTL_REALTIME_SHORT     // 30 seconds
)

// ================== PRICING MODULE ==================

const (
	CACHE_KEY_PRICE_QUOTE     = CACHE_PREFIX + ":pricing:quote:schedule:" // + schedule-id:fp:fingerprint
	CACHE_KEY_DISCOUNT_DETAIL = CACHE_PREFIX + ":pricing:discount:code:"  // + code
	CACHE_KEY_ACTIVE_FEES     = CACHE_PREFIX + ":pricing:fees:active"
	CACHE_KEY_ACTIVE_RULES    = CACHE_PREFIX + ":pricing:rules:active"
)

const (
	TTL_PRICE_QUOTE     = TTL_DYNAMIC_SHORT     // 5 minutes
	TTL_DISCOUNT_DETAIL = TTL_DYNAMIC_MEDIUM    // 10 minutes
	TTL_ACTIVE_FEES     = TTL_SEMI_STATIC_SHORT // 1 hour
	TTL_ACTIVE_RULES    = TTL_SEMI_STATIC_SHORT // 1 hour
)

// ================== CACHE INVALIDATION PATTERNS ==================

const (
	PATTERN_INVALIDATE_PRICING_ALL = CACHE_PREFIX + ":pricing:*"
)

// ================== HELPER FUNCTIONS ==================

func BuildScheduleDetailKey(scheduleID string) string {
	return CACHE_KEY_SCHEDULE_DETAIL + scheduleID
}

func BuildScheduleAvailabilityKey(scheduleID string) string {
	return CACHE_KEY_SCHEDULE_AVAILABILITY + scheduleID
}

func BuildScheduleOccupancyKey(scheduleID string) string {
	return CACHE_KEY_SCHEDULE_OCCUPANCY + scheduleID
}

func BuildPriceQuoteKey(scheduleID, fingerprint string) string {
	return CACHE_KEY_PRICE_QUOTE + scheduleID + ":fp:" + fingerprint
}

func BuildDiscountKey(code string) string {
	return CACHE_KEY_DISCOUNT_DETAIL + code
}

// BuildScheduleInvalidationPattern matches every capacity and pricing key
// derived from one schedule; used after ledger mutations.
func BuildScheduleInvalidationPattern(scheduleID string) string {
	return fmt.Sprintf("%s:*%s*", CACHE_PREFIX, scheduleID)
}
