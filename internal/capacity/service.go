package capacity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tourly/internal/shared/constants"
	"tourly/pkg/cache"
	"tourly/pkg/logger"
	"tourly/pkg/metrics"
)

// Service is the capacity allocator: every counter mutation in the system
// goes through these operations. Reads are safe to serve from cache; writes
// invalidate the affected schedule's cached state.
type Service interface {
	// Reads
	GetAvailable(ctx context.Context, sectionID, variantID uuid.UUID) (int, error)
	GetSchedule(ctx context.Context, scheduleID uuid.UUID) (*Schedule, error)
	GetSection(ctx context.Context, sectionID uuid.UUID) (*Section, error)
	GetSectionByName(ctx context.Context, scheduleID uuid.UUID, name string) (*Section, error)
	GetAllocation(ctx context.Context, sectionID, variantID uuid.UUID) (*Allocation, error)
	GetScheduleAvailability(ctx context.Context, scheduleID uuid.UUID) (*ScheduleAvailability, error)
	ScheduleOccupancy(ctx context.Context, scheduleID uuid.UUID) (float64, error)
	ValidateHierarchy(ctx context.Context, sectionID uuid.UUID) error

	// Setup
	EnsureInitialized(ctx context.Context, sectionID, variantID uuid.UUID) (*Allocation, error)

	// Ledger mutations
	Reserve(ctx context.Context, sectionID, variantID uuid.UUID, quantity int) (*Hold, error)
	Release(ctx context.Context, sectionID, variantID uuid.UUID, quantity int) error
	Confirm(ctx context.Context, sectionID, variantID uuid.UUID, quantity int) error
	Cancel(ctx context.Context, sectionID, variantID uuid.UUID, quantity int) error

	// Hold-scoped operations used by the order layer
	ReleaseHold(ctx context.Context, holdID uuid.UUID) error
	ConfirmHold(ctx context.Context, holdID uuid.UUID) error

	// Expiration sweep
	SweepExpired(ctx context.Context, now time.Time) (*SweepReport, error)

	SetCacheService(cacheService cache.Service)
	SetEventProducer(producer EventProducer)
}

type service struct {
	repo           Repository
	cacheService   cache.Service
	producer       EventProducer
	logger         *logger.Logger
	holdTTL        time.Duration
	sweepBatchSize int
}

// NewService creates a new capacity allocator
func NewService(repo Repository, holdTTL time.Duration, sweepBatchSize int) Service {
	if holdTTL <= 0 {
		holdTTL = 10 * time.Minute
	}
	if sweepBatchSize <= 0 {
		sweepBatchSize = 500
	}
	return &service{
		repo:           repo,
		logger:         logger.GetDefault(),
		holdTTL:        holdTTL,
		sweepBatchSize: sweepBatchSize,
	}
}

// SetCacheService injects the cache service dependency
func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

// SetEventProducer injects the Kafka event producer dependency
func (s *service) SetEventProducer(producer EventProducer) {
	s.producer = producer
}

// GetAvailable returns total - reserved - confirmed for the allocation,
// clamped to zero. A missing allocation is materialized from the variant's
// nominal capacity; partially configured schedules still answer
// availability questions that way.
func (s *service) GetAvailable(ctx context.Context, sectionID, variantID uuid.UUID) (int, error) {
	allocation, err := s.getOrInitAllocation(ctx, sectionID, variantID)
	if err != nil {
		return 0, err
	}
	return allocation.AvailableCapacity(), nil
}

// GetSchedule returns the schedule row. Schedule rows change rarely, so
// they are cached for much longer than the counter-derived reads.
func (s *service) GetSchedule(ctx context.Context, scheduleID uuid.UUID) (*Schedule, error) {
	cacheKey := constants.BuildScheduleDetailKey(scheduleID.String())
	if s.cacheService != nil {
		var cached Schedule
		if err := s.cacheService.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	schedule, err := s.repo.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if s.cacheService != nil {
		_ = s.cacheService.Set(ctx, cacheKey, schedule, constants.TTL_SCHEDULE_DETAIL)
	}
	return schedule, nil
}

// GetSection returns the section row
func (s *service) GetSection(ctx context.Context, sectionID uuid.UUID) (*Section, error) {
	return s.repo.GetSection(ctx, sectionID)
}

// GetSectionByName resolves a section by its name within a schedule
func (s *service) GetSectionByName(ctx context.Context, scheduleID uuid.UUID, name string) (*Section, error) {
	return s.repo.GetSectionByName(ctx, scheduleID, name)
}

// GetAllocation returns the allocation record for a (section, variant)
// pair, materializing it on first access like GetAvailable does.
func (s *service) GetAllocation(ctx context.Context, sectionID, variantID uuid.UUID) (*Allocation, error) {
	return s.getOrInitAllocation(ctx, sectionID, variantID)
}

// EnsureInitialized creates the allocation for a (section, variant) pair if
// it does not exist yet, seeded from the variant's nominal capacity.
// Intended for explicit setup-time calls so auto-init on read stays rare.
func (s *service) EnsureInitialized(ctx context.Context, sectionID, variantID uuid.UUID) (*Allocation, error) {
	allocation, err := s.repo.GetAllocation(ctx, sectionID, variantID)
	if err == nil {
		return allocation, nil
	}
	if err != ErrAllocationNotFound {
		return nil, err
	}
	return s.initAllocation(ctx, sectionID, variantID)
}

func (s *service) getOrInitAllocation(ctx context.Context, sectionID, variantID uuid.UUID) (*Allocation, error) {
	allocation, err := s.repo.GetAllocation(ctx, sectionID, variantID)
	if err == nil {
		return allocation, nil
	}
	if err != ErrAllocationNotFound {
		return nil, err
	}

	allocation, err = s.initAllocation(ctx, sectionID, variantID)
	if err != nil {
		return nil, err
	}

	metrics.AllocationAutoInit.Inc()
	s.logger.Warn("allocation auto-initialized on read",
		slog.String("section_id", sectionID.String()),
		slog.String("variant_id", variantID.String()),
		slog.Int("total_capacity", allocation.TotalCapacity),
	)
	return allocation, nil
}

func (s *service) initAllocation(ctx context.Context, sectionID, variantID uuid.UUID) (*Allocation, error) {
	section, err := s.repo.GetSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	variant, err := s.repo.GetVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}

	total := variant.NominalCapacity
	if total > section.TotalCapacity {
		total = section.TotalCapacity
	}

	allocation := &Allocation{
		SectionID:      sectionID,
		VariantID:      variantID,
		TotalCapacity:  total,
		PriceModifier:  decimalOne(),
		AdjustmentType: AdjustmentNone,
		IsAvailable:    true,
	}
	if err := s.repo.CreateAllocation(ctx, allocation); err != nil {
		// A concurrent initializer may have won; re-read before giving up
		if existing, getErr := s.repo.GetAllocation(ctx, sectionID, variantID); getErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to initialize allocation: %w", err)
	}
	return allocation, nil
}

// Reserve places a TTL-bounded hold on the allocation. The counter
// increment and the hold row commit atomically; callers keep the hold ID to
// confirm or release later. Fails before touching the ledger when the
// section or its schedule is deactivated.
func (s *service) Reserve(ctx context.Context, sectionID, variantID uuid.UUID, quantity int) (*Hold, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	section, err := s.repo.GetSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	if !section.IsAvailable {
		return nil, ErrNotAvailable
	}

	schedule, err := s.repo.GetSchedule(ctx, section.ScheduleID)
	if err != nil {
		return nil, err
	}
	if !schedule.IsAvailable {
		return nil, ErrNotAvailable
	}

	if _, err := s.getOrInitAllocation(ctx, sectionID, variantID); err != nil {
		return nil, err
	}

	hold := &Hold{
		ScheduleID: schedule.ID,
		SectionID:  sectionID,
		VariantID:  variantID,
		Quantity:   quantity,
		Status:     HoldStatusReserved,
		ExpiresAt:  time.Now().UTC().Add(s.holdTTL),
	}

	if err := s.repo.ReserveWithHold(ctx, hold); err != nil {
		if IsInsufficientCapacity(err) {
			metrics.ReserveRejected.WithLabelValues(schedule.ID.String(), "insufficient").Inc()
		} else if err == ErrNotAvailable {
			metrics.ReserveRejected.WithLabelValues(schedule.ID.String(), "unavailable").Inc()
		}
		return nil, err
	}

	metrics.ReserveSuccess.WithLabelValues(schedule.ID.String()).Inc()
	s.logger.LogHoldCreated(ctx, hold.ID.String(), schedule.ID.String(), quantity)
	s.invalidateScheduleCache(ctx, schedule.ID)
	s.publishEvent(ctx, EventHoldCreated, hold)

	return hold, nil
}

// Release hands reserved capacity back. Releasing more than is currently
// reserved is a caller bug and fails with ErrInvalidRelease instead of
// driving the counter negative.
func (s *service) Release(ctx context.Context, sectionID, variantID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if err := s.repo.ReleaseCapacity(ctx, sectionID, variantID, quantity); err != nil {
		return err
	}
	metrics.HoldsReleased.WithLabelValues("manual").Inc()
	s.invalidateSectionCache(ctx, sectionID)
	return nil
}

// Confirm converts reserved capacity into confirmed capacity. When the
// reserved counter holds less than quantity the remainder is confirmed
// directly; orders paid without a prior reserve rely on this.
func (s *service) Confirm(ctx context.Context, sectionID, variantID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	fallback, err := s.repo.ConfirmCapacity(ctx, sectionID, variantID, quantity)
	if err != nil {
		return err
	}
	if fallback {
		metrics.ConfirmFallback.Inc()
		s.logger.Warn("confirm exceeded reserved capacity, confirmed directly",
			slog.String("section_id", sectionID.String()),
			slog.String("variant_id", variantID.String()),
			slog.Int("quantity", quantity),
		)
	}

	s.invalidateSectionCache(ctx, sectionID)
	return nil
}

// Cancel returns confirmed capacity to the pool, floored at zero
func (s *service) Cancel(ctx context.Context, sectionID, variantID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if err := s.repo.CancelCapacity(ctx, sectionID, variantID, quantity); err != nil {
		return err
	}
	s.invalidateSectionCache(ctx, sectionID)
	return nil
}

// ReleaseHold releases the capacity pinned by a hold. Already released or
// sweeper-expired holds are treated as success so order-layer retries stay
// safe; releasing a confirmed hold fails with ErrHoldNotActive because
// confirmed capacity is sold and only Cancel may return it.
func (s *service) ReleaseHold(ctx context.Context, holdID uuid.UUID) error {
	hold, err := s.repo.FinishHold(ctx, holdID, HoldStatusReleased)
	if err != nil {
		if err == ErrHoldNotActive {
			if finished, lookupErr := s.repo.GetHold(ctx, holdID); lookupErr == nil && finished.Status == HoldStatusExpired {
				return nil
			}
		}
		return err
	}

	metrics.HoldsReleased.WithLabelValues("hold").Inc()
	s.logger.LogHoldFinished(ctx, holdID.String(), hold.ScheduleID.String(), string(HoldStatusReleased))
	s.invalidateScheduleCache(ctx, hold.ScheduleID)
	s.publishEvent(ctx, EventHoldReleased, hold)
	return nil
}

// ConfirmHold converts the hold's reserved capacity into confirmed capacity
func (s *service) ConfirmHold(ctx context.Context, holdID uuid.UUID) error {
	hold, err := s.repo.FinishHold(ctx, holdID, HoldStatusConfirmed)
	if err != nil {
		return err
	}

	s.logger.LogHoldFinished(ctx, holdID.String(), hold.ScheduleID.String(), string(HoldStatusConfirmed))
	s.invalidateScheduleCache(ctx, hold.ScheduleID)
	s.publishEvent(ctx, EventBookingConfirmed, hold)
	return nil
}

// ValidateHierarchy checks that the sum of allocation totals under a
// section does not exceed the section's own total. Legacy data written
// before the constraint existed can violate this; the mismatch is reported,
// never silently repaired.
func (s *service) ValidateHierarchy(ctx context.Context, sectionID uuid.UUID) error {
	section, err := s.repo.GetSection(ctx, sectionID)
	if err != nil {
		return err
	}

	allocations, err := s.repo.ListAllocationsBySection(ctx, sectionID)
	if err != nil {
		return err
	}

	allocated := 0
	for _, allocation := range allocations {
		allocated += allocation.TotalCapacity
	}

	if allocated > section.TotalCapacity {
		return &HierarchyValidationError{
			SectionID:      sectionID.String(),
			SectionTotal:   section.TotalCapacity,
			AllocatedTotal: allocated,
		}
	}
	return nil
}

// ScheduleAvailability is the per-section availability summary for a schedule
type ScheduleAvailability struct {
	ScheduleID  string                `json:"schedule_id"`
	IsAvailable bool                  `json:"is_available"`
	MaxCapacity int                   `json:"max_capacity"`
	Reserved    int                   `json:"reserved"`
	Confirmed   int                   `json:"confirmed"`
	Available   int                   `json:"available"`
	Sections    []SectionAvailability `json:"sections"`
}

type SectionAvailability struct {
	SectionID string           `json:"section_id"`
	Name      string           `json:"name"`
	Variants  []VariantSummary `json:"variants"`
}

type VariantSummary struct {
	VariantID string `json:"variant_id"`
	Total     int    `json:"total"`
	Reserved  int    `json:"reserved"`
	Confirmed int    `json:"confirmed"`
	Available int    `json:"available"`
}

// GetScheduleAvailability returns the cached availability summary for a
// schedule; the cache TTL is short enough that brief staleness is accepted.
func (s *service) GetScheduleAvailability(ctx context.Context, scheduleID uuid.UUID) (*ScheduleAvailability, error) {
	cacheKey := constants.BuildScheduleAvailabilityKey(scheduleID.String())
	if s.cacheService != nil {
		var cached ScheduleAvailability
		if err := s.cacheService.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	schedule, err := s.repo.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	summary := &ScheduleAvailability{
		ScheduleID:  scheduleID.String(),
		IsAvailable: schedule.IsAvailable,
	}

	sections, err := s.repo.ListSectionsBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		// Schedule with no configured sections yet: fall back to the
		// aggregate counters so the endpoint still answers.
		total, reserved, confirmed, err := s.repo.ScheduleCounters(ctx, scheduleID)
		if err != nil {
			return nil, err
		}
		summary.MaxCapacity = total
		summary.Reserved = reserved
		summary.Confirmed = confirmed
		summary.Available = clampNonNegative(total - reserved - confirmed)
	}

	for _, section := range sections {
		sectionSummary := SectionAvailability{
			SectionID: section.ID.String(),
			Name:      section.Name,
		}
		allocations, err := s.repo.ListAllocationsBySection(ctx, section.ID)
		if err != nil {
			return nil, err
		}
		for _, allocation := range allocations {
			sectionSummary.Variants = append(sectionSummary.Variants, VariantSummary{
				VariantID: allocation.VariantID.String(),
				Total:     allocation.TotalCapacity,
				Reserved:  allocation.ReservedCapacity,
				Confirmed: allocation.ConfirmedCapacity,
				Available: allocation.AvailableCapacity(),
			})
			summary.MaxCapacity += allocation.TotalCapacity
			summary.Reserved += allocation.ReservedCapacity
			summary.Confirmed += allocation.ConfirmedCapacity
		}
		summary.Sections = append(summary.Sections, sectionSummary)
	}
	if len(sections) > 0 {
		summary.Available = clampNonNegative(summary.MaxCapacity - summary.Reserved - summary.Confirmed)
	}

	if s.cacheService != nil {
		_ = s.cacheService.Set(ctx, cacheKey, summary, constants.TTL_SCHEDULE_AVAILABILITY)
	}
	return summary, nil
}

// ScheduleOccupancy returns (reserved + confirmed) / total as a percentage
// for capacity-based pricing rules. Returns 0 for an empty schedule. Every
// quote with active rules reads this, so it is cached at the same short TTL
// as the availability summary.
func (s *service) ScheduleOccupancy(ctx context.Context, scheduleID uuid.UUID) (float64, error) {
	cacheKey := constants.BuildScheduleOccupancyKey(scheduleID.String())
	if s.cacheService != nil {
		var cached float64
		if err := s.cacheService.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	total, reserved, confirmed, err := s.repo.ScheduleCounters(ctx, scheduleID)
	if err != nil {
		return 0, err
	}
	occupancy := 0.0
	if total > 0 {
		occupancy = float64(reserved+confirmed) / float64(total) * 100
	}
	if s.cacheService != nil {
		_ = s.cacheService.Set(ctx, cacheKey, occupancy, constants.TTL_SCHEDULE_OCCUPANCY)
	}
	return occupancy, nil
}

// SweepExpired releases every hold whose TTL elapsed before now. Idempotent:
// a second run with no new expirations reports zero releases.
func (s *service) SweepExpired(ctx context.Context, now time.Time) (*SweepReport, error) {
	started := time.Now()
	report, err := s.repo.ExpireHolds(ctx, now, s.sweepBatchSize)
	if err != nil {
		return nil, fmt.Errorf("expiration sweep failed: %w", err)
	}
	metrics.SweepDuration.Observe(time.Since(started).Seconds())

	if report.SkippedCount > 0 {
		s.logger.Warn("sweep skipped holds with inconsistent reserved counters",
			slog.Int("skipped", report.SkippedCount),
		)
	}

	if report.ReleasedCount > 0 {
		metrics.HoldsReleased.WithLabelValues("sweep").Add(float64(report.ReleasedCount))
		s.logger.LogSweepCompleted(ctx, report.ReleasedCount, report.ReleasedUnits, time.Since(started))
		for _, scheduleID := range report.AffectedSchedules {
			s.invalidateScheduleCache(ctx, scheduleID)
			s.publishEvent(ctx, EventHoldExpired, &Hold{ScheduleID: scheduleID})
		}
	}
	return report, nil
}

func (s *service) invalidateScheduleCache(ctx context.Context, scheduleID uuid.UUID) {
	if s.cacheService == nil {
		return
	}
	pattern := constants.BuildScheduleInvalidationPattern(scheduleID.String())
	if err := s.cacheService.DeletePattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidation failed",
			slog.String("pattern", pattern),
			slog.String("error", err.Error()),
		)
	}
}

func (s *service) invalidateSectionCache(ctx context.Context, sectionID uuid.UUID) {
	section, err := s.repo.GetSection(context.WithoutCancel(ctx), sectionID)
	if err != nil {
		return
	}
	s.invalidateScheduleCache(ctx, section.ScheduleID)
}

func (s *service) publishEvent(ctx context.Context, eventType string, hold *Hold) {
	if s.producer == nil {
		return
	}
	event := &CapacityEvent{
		Type:       eventType,
		ScheduleID: hold.ScheduleID.String(),
		SectionID:  hold.SectionID.String(),
		VariantID:  hold.VariantID.String(),
		Quantity:   hold.Quantity,
	}
	if hold.ID != uuid.Nil {
		event.HoldID = hold.ID.String()
	}
	if err := s.producer.PublishEvent(ctx, event); err != nil {
		// Event publication is best effort; the ledger already committed
		s.logger.Warn("failed to publish capacity event",
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
	}
}

func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
