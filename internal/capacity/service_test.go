package capacity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryRepository is an in-memory Repository used by the service tests.
// A single mutex serializes every mutation, mirroring how the guarded
// UPDATEs serialize on the allocation row in Postgres.
type memoryRepository struct {
	mu          sync.Mutex
	schedules   map[uuid.UUID]*Schedule
	sections    map[uuid.UUID]*Section
	variants    map[uuid.UUID]*Variant
	allocations map[string]*Allocation
	holds       map[uuid.UUID]*Hold
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		schedules:   make(map[uuid.UUID]*Schedule),
		sections:    make(map[uuid.UUID]*Section),
		variants:    make(map[uuid.UUID]*Variant),
		allocations: make(map[string]*Allocation),
		holds:       make(map[uuid.UUID]*Hold),
	}
}

func allocationKey(sectionID, variantID uuid.UUID) string {
	return sectionID.String() + "/" + variantID.String()
}

func (m *memoryRepository) GetSchedule(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	schedule, ok := m.schedules[id]
	if !ok {
		return nil, ErrScheduleNotFound
	}
	copied := *schedule
	return &copied, nil
}

func (m *memoryRepository) GetSection(ctx context.Context, id uuid.UUID) (*Section, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	section, ok := m.sections[id]
	if !ok {
		return nil, ErrSectionNotFound
	}
	copied := *section
	return &copied, nil
}

func (m *memoryRepository) GetSectionByName(ctx context.Context, scheduleID uuid.UUID, name string) (*Section, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, section := range m.sections {
		if section.ScheduleID == scheduleID && section.Name == name {
			copied := *section
			return &copied, nil
		}
	}
	return nil, ErrSectionNotFound
}

func (m *memoryRepository) ListSectionsBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]Section, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Section
	for _, section := range m.sections {
		if section.ScheduleID == scheduleID {
			out = append(out, *section)
		}
	}
	return out, nil
}

func (m *memoryRepository) GetVariant(ctx context.Context, id uuid.UUID) (*Variant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	variant, ok := m.variants[id]
	if !ok {
		return nil, ErrVariantNotFound
	}
	copied := *variant
	return &copied, nil
}

func (m *memoryRepository) GetAllocation(ctx context.Context, sectionID, variantID uuid.UUID) (*Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	allocation, ok := m.allocations[allocationKey(sectionID, variantID)]
	if !ok {
		return nil, ErrAllocationNotFound
	}
	copied := *allocation
	return &copied, nil
}

func (m *memoryRepository) CreateAllocation(ctx context.Context, allocation *Allocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := allocationKey(allocation.SectionID, allocation.VariantID)
	if _, exists := m.allocations[key]; exists {
		return assert.AnError
	}
	if allocation.ID == uuid.Nil {
		allocation.ID = uuid.New()
	}
	copied := *allocation
	m.allocations[key] = &copied
	return nil
}

func (m *memoryRepository) ListAllocationsBySection(ctx context.Context, sectionID uuid.UUID) ([]Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Allocation
	for _, allocation := range m.allocations {
		if allocation.SectionID == sectionID {
			out = append(out, *allocation)
		}
	}
	return out, nil
}

func (m *memoryRepository) ScheduleCounters(ctx context.Context, scheduleID uuid.UUID) (int, int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total, reserved, confirmed int
	for _, allocation := range m.allocations {
		section, ok := m.sections[allocation.SectionID]
		if !ok || section.ScheduleID != scheduleID {
			continue
		}
		total += allocation.TotalCapacity
		reserved += allocation.ReservedCapacity
		confirmed += allocation.ConfirmedCapacity
	}
	return total, reserved, confirmed, nil
}

func (m *memoryRepository) ReserveWithHold(ctx context.Context, hold *Hold) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	allocation, ok := m.allocations[allocationKey(hold.SectionID, hold.VariantID)]
	if !ok {
		return ErrAllocationNotFound
	}
	if !allocation.IsAvailable {
		return ErrNotAvailable
	}
	available := allocation.TotalCapacity - allocation.ReservedCapacity - allocation.ConfirmedCapacity
	if available < hold.Quantity {
		return &InsufficientCapacityError{
			Requested: hold.Quantity,
			Available: allocation.AvailableCapacity(),
		}
	}
	allocation.ReservedCapacity += hold.Quantity
	if hold.ID == uuid.Nil {
		hold.ID = uuid.New()
	}
	copied := *hold
	m.holds[hold.ID] = &copied
	return nil
}

func (m *memoryRepository) ReleaseCapacity(ctx context.Context, sectionID, variantID uuid.UUID, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	allocation, ok := m.allocations[allocationKey(sectionID, variantID)]
	if !ok {
		return ErrAllocationNotFound
	}
	if allocation.ReservedCapacity < quantity {
		return ErrInvalidRelease
	}
	allocation.ReservedCapacity -= quantity
	return nil
}

func (m *memoryRepository) ConfirmCapacity(ctx context.Context, sectionID, variantID uuid.UUID, quantity int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	allocation, ok := m.allocations[allocationKey(sectionID, variantID)]
	if !ok {
		return false, ErrAllocationNotFound
	}
	fallback := false
	moved := quantity
	if moved > allocation.ReservedCapacity {
		moved = allocation.ReservedCapacity
		fallback = true
	}
	newReserved := allocation.ReservedCapacity - moved
	newConfirmed := allocation.ConfirmedCapacity + quantity
	if newReserved+newConfirmed > allocation.TotalCapacity {
		return false, ErrInvalidConfirm
	}
	allocation.ReservedCapacity = newReserved
	allocation.ConfirmedCapacity = newConfirmed
	return fallback, nil
}

func (m *memoryRepository) CancelCapacity(ctx context.Context, sectionID, variantID uuid.UUID, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	allocation, ok := m.allocations[allocationKey(sectionID, variantID)]
	if !ok {
		return ErrAllocationNotFound
	}
	allocation.ConfirmedCapacity -= quantity
	if allocation.ConfirmedCapacity < 0 {
		allocation.ConfirmedCapacity = 0
	}
	return nil
}

func (m *memoryRepository) GetHold(ctx context.Context, id uuid.UUID) (*Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hold, ok := m.holds[id]
	if !ok {
		return nil, ErrHoldNotFound
	}
	copied := *hold
	return &copied, nil
}

func (m *memoryRepository) FinishHold(ctx context.Context, holdID uuid.UUID, target HoldStatus) (*Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hold, ok := m.holds[holdID]
	if !ok {
		return nil, ErrHoldNotFound
	}
	if hold.Status == target {
		copied := *hold
		return &copied, nil
	}
	if hold.Status != HoldStatusReserved {
		return nil, ErrHoldNotActive
	}
	allocation, ok := m.allocations[allocationKey(hold.SectionID, hold.VariantID)]
	if !ok {
		return nil, ErrAllocationNotFound
	}
	moved := hold.Quantity
	if moved > allocation.ReservedCapacity {
		moved = allocation.ReservedCapacity
	}
	if target == HoldStatusConfirmed {
		newConfirmed := allocation.ConfirmedCapacity + hold.Quantity
		if allocation.ReservedCapacity-moved+newConfirmed > allocation.TotalCapacity {
			return nil, ErrInvalidConfirm
		}
		allocation.ConfirmedCapacity = newConfirmed
	}
	allocation.ReservedCapacity -= moved
	hold.Status = target
	copied := *hold
	return &copied, nil
}

func (m *memoryRepository) ExpireHolds(ctx context.Context, now time.Time, batchSize int) (*SweepReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	report := &SweepReport{SweptAt: now}
	affected := make(map[uuid.UUID]bool)
	for _, hold := range m.holds {
		if hold.Status != HoldStatusReserved || !hold.ExpiresAt.Before(now) {
			continue
		}
		allocation, ok := m.allocations[allocationKey(hold.SectionID, hold.VariantID)]
		if !ok || allocation.ReservedCapacity < hold.Quantity {
			// Counter anomaly: keep the hold reserved so it stays visible
			report.SkippedCount++
			continue
		}
		allocation.ReservedCapacity -= hold.Quantity
		hold.Status = HoldStatusExpired
		report.ReleasedCount++
		report.ReleasedUnits += hold.Quantity
		affected[hold.ScheduleID] = true
	}
	for scheduleID := range affected {
		report.AffectedSchedules = append(report.AffectedSchedules, scheduleID)
	}
	return report, nil
}

// fixture wires one schedule with one section, one variant and one
// allocation of the given capacity.
type fixture struct {
	repo       *memoryRepository
	service    Service
	scheduleID uuid.UUID
	sectionID  uuid.UUID
	variantID  uuid.UUID
}

func newFixture(t *testing.T, totalCapacity int) *fixture {
	t.Helper()
	repo := newMemoryRepository()

	scheduleID := uuid.New()
	sectionID := uuid.New()
	variantID := uuid.New()

	repo.schedules[scheduleID] = &Schedule{
		ID:          scheduleID,
		ProductID:   uuid.New(),
		ProductType: ProductTypeTour,
		Name:        "Harbor Cruise",
		StartsAt:    time.Now().UTC().Add(48 * time.Hour),
		EndsAt:      time.Now().UTC().Add(50 * time.Hour),
		IsAvailable: true,
	}
	repo.sections[sectionID] = &Section{
		ID:            sectionID,
		ScheduleID:    scheduleID,
		Name:          "standard",
		TotalCapacity: totalCapacity,
		BasePrice:     decimal.NewFromInt(100),
		IsAvailable:   true,
	}
	repo.variants[variantID] = &Variant{
		ID:              variantID,
		ScheduleID:      scheduleID,
		Name:            "Adult",
		Code:            "adult",
		NominalCapacity: totalCapacity,
		IsActive:        true,
	}
	repo.allocations[allocationKey(sectionID, variantID)] = &Allocation{
		ID:            uuid.New(),
		SectionID:     sectionID,
		VariantID:     variantID,
		TotalCapacity: totalCapacity,
		PriceModifier: decimal.NewFromInt(1),
		IsAvailable:   true,
	}

	return &fixture{
		repo:       repo,
		service:    NewService(repo, 15*time.Minute, 100),
		scheduleID: scheduleID,
		sectionID:  sectionID,
		variantID:  variantID,
	}
}

func (f *fixture) allocation(t *testing.T) *Allocation {
	t.Helper()
	allocation, err := f.repo.GetAllocation(context.Background(), f.sectionID, f.variantID)
	require.NoError(t, err)
	return allocation
}

func TestReserveConsumesAvailability(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	hold, err := f.service.Reserve(ctx, f.sectionID, f.variantID, 7)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, hold.ID)
	assert.Equal(t, HoldStatusReserved, hold.Status)

	available, err := f.service.GetAvailable(ctx, f.sectionID, f.variantID)
	require.NoError(t, err)
	assert.Equal(t, 3, available)
}

func TestReserveRejectsWhenInsufficient(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	_, err := f.service.Reserve(ctx, f.sectionID, f.variantID, 7)
	require.NoError(t, err)

	_, err = f.service.Reserve(ctx, f.sectionID, f.variantID, 5)
	require.Error(t, err)

	var ice *InsufficientCapacityError
	require.ErrorAs(t, err, &ice)
	assert.Equal(t, 5, ice.Requested)
	assert.Equal(t, 3, ice.Available)

	// The failed attempt must not leak any units
	available, err := f.service.GetAvailable(ctx, f.sectionID, f.variantID)
	require.NoError(t, err)
	assert.Equal(t, 3, available)
}

func TestReserveInvalidQuantity(t *testing.T) {
	f := newFixture(t, 10)

	_, err := f.service.Reserve(context.Background(), f.sectionID, f.variantID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = f.service.Reserve(context.Background(), f.sectionID, f.variantID, -3)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestReserveRejectsDeactivatedSchedule(t *testing.T) {
	f := newFixture(t, 10)
	f.repo.schedules[f.scheduleID].IsAvailable = false

	_, err := f.service.Reserve(context.Background(), f.sectionID, f.variantID, 1)
	assert.ErrorIs(t, err, ErrNotAvailable)
}

func TestConfirmMovesReservedToConfirmed(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	_, err := f.service.Reserve(ctx, f.sectionID, f.variantID, 7)
	require.NoError(t, err)

	require.NoError(t, f.service.Confirm(ctx, f.sectionID, f.variantID, 7))

	allocation := f.allocation(t)
	assert.Equal(t, 0, allocation.ReservedCapacity)
	assert.Equal(t, 7, allocation.ConfirmedCapacity)

	// Nothing left in reserved: releasing 7 now is a caller bug
	err = f.service.Release(ctx, f.sectionID, f.variantID, 7)
	assert.ErrorIs(t, err, ErrInvalidRelease)
}

func TestConfirmFallbackWithoutPriorReserve(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	// No reserve happened; confirm still lands as long as total allows it
	require.NoError(t, f.service.Confirm(ctx, f.sectionID, f.variantID, 4))

	allocation := f.allocation(t)
	assert.Equal(t, 0, allocation.ReservedCapacity)
	assert.Equal(t, 4, allocation.ConfirmedCapacity)
}

func TestConfirmNeverExceedsTotal(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	require.NoError(t, f.service.Confirm(ctx, f.sectionID, f.variantID, 10))

	err := f.service.Confirm(ctx, f.sectionID, f.variantID, 1)
	assert.ErrorIs(t, err, ErrInvalidConfirm)
}

func TestCancelFloorsAtZero(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	require.NoError(t, f.service.Confirm(ctx, f.sectionID, f.variantID, 3))
	require.NoError(t, f.service.Cancel(ctx, f.sectionID, f.variantID, 5))

	allocation := f.allocation(t)
	assert.Equal(t, 0, allocation.ConfirmedCapacity)

	available, err := f.service.GetAvailable(ctx, f.sectionID, f.variantID)
	require.NoError(t, err)
	assert.Equal(t, 10, available)
}

func TestCapacityConservation(t *testing.T) {
	f := newFixture(t, 20)
	ctx := context.Background()

	_, err := f.service.Reserve(ctx, f.sectionID, f.variantID, 8)
	require.NoError(t, err)
	require.NoError(t, f.service.Confirm(ctx, f.sectionID, f.variantID, 5))
	require.NoError(t, f.service.Release(ctx, f.sectionID, f.variantID, 3))

	allocation := f.allocation(t)
	sum := allocation.ReservedCapacity + allocation.ConfirmedCapacity + allocation.AvailableCapacity()
	assert.Equal(t, allocation.TotalCapacity, sum)
	assert.GreaterOrEqual(t, allocation.ReservedCapacity, 0)
	assert.GreaterOrEqual(t, allocation.ConfirmedCapacity, 0)
}

func TestConcurrentReservesNeverOversell(t *testing.T) {
	const capacity = 10
	const attempts = 50

	f := newFixture(t, capacity)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Reserve(ctx, f.sectionID, f.variantID, 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, IsInsufficientCapacity(err), "unexpected error: %v", err)
		}
	}

	assert.Equal(t, capacity, succeeded)

	allocation := f.allocation(t)
	assert.Equal(t, capacity, allocation.ReservedCapacity)
	assert.Equal(t, 0, allocation.AvailableCapacity())
}

func TestAllocationAutoInitFromNominalCapacity(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	// A second variant with no allocation row yet
	variantID := uuid.New()
	f.repo.variants[variantID] = &Variant{
		ID:              variantID,
		ScheduleID:      f.scheduleID,
		Name:            "Child",
		Code:            "child",
		NominalCapacity: 6,
		IsActive:        true,
	}

	available, err := f.service.GetAvailable(ctx, f.sectionID, variantID)
	require.NoError(t, err)
	assert.Equal(t, 6, available)

	// The allocation now exists and is reusable
	allocation, err := f.repo.GetAllocation(ctx, f.sectionID, variantID)
	require.NoError(t, err)
	assert.Equal(t, 6, allocation.TotalCapacity)
	assert.True(t, allocation.IsAvailable)
}

func TestAutoInitClampedToSectionTotal(t *testing.T) {
	f := newFixture(t, 10)

	variantID := uuid.New()
	f.repo.variants[variantID] = &Variant{
		ID:              variantID,
		ScheduleID:      f.scheduleID,
		Name:            "Group",
		Code:            "group",
		NominalCapacity: 500,
		IsActive:        true,
	}

	available, err := f.service.GetAvailable(context.Background(), f.sectionID, variantID)
	require.NoError(t, err)
	assert.Equal(t, 10, available)
}

func TestReleaseHoldIdempotent(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	hold, err := f.service.Reserve(ctx, f.sectionID, f.variantID, 4)
	require.NoError(t, err)

	require.NoError(t, f.service.ReleaseHold(ctx, hold.ID))

	available, err := f.service.GetAvailable(ctx, f.sectionID, f.variantID)
	require.NoError(t, err)
	assert.Equal(t, 10, available)

	// Releasing again must not double-release
	require.NoError(t, f.service.ReleaseHold(ctx, hold.ID))

	available, err = f.service.GetAvailable(ctx, f.sectionID, f.variantID)
	require.NoError(t, err)
	assert.Equal(t, 10, available)
}

func TestReleaseHoldAfterExpiry(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	hold, err := f.service.Reserve(ctx, f.sectionID, f.variantID, 3)
	require.NoError(t, err)

	f.repo.mu.Lock()
	f.repo.holds[hold.ID].ExpiresAt = time.Now().UTC().Add(-time.Minute)
	f.repo.mu.Unlock()

	_, err = f.service.SweepExpired(ctx, time.Now().UTC())
	require.NoError(t, err)

	// The sweeper already returned the units; a late release is a safe no-op
	require.NoError(t, f.service.ReleaseHold(ctx, hold.ID))

	available, err := f.service.GetAvailable(ctx, f.sectionID, f.variantID)
	require.NoError(t, err)
	assert.Equal(t, 10, available)
}

func TestConfirmHoldMovesCounters(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	hold, err := f.service.Reserve(ctx, f.sectionID, f.variantID, 4)
	require.NoError(t, err)

	require.NoError(t, f.service.ConfirmHold(ctx, hold.ID))

	allocation := f.allocation(t)
	assert.Equal(t, 0, allocation.ReservedCapacity)
	assert.Equal(t, 4, allocation.ConfirmedCapacity)

	// Releasing a confirmed hold fails instead of freeing sold capacity
	err = f.service.ReleaseHold(ctx, hold.ID)
	assert.ErrorIs(t, err, ErrHoldNotActive)
}

func TestValidateHierarchy(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	require.NoError(t, f.service.ValidateHierarchy(ctx, f.sectionID))

	// Overallocate by adding a second allocation pushing the sum past the
	// section total
	variantID := uuid.New()
	f.repo.allocations[allocationKey(f.sectionID, variantID)] = &Allocation{
		ID:            uuid.New(),
		SectionID:     f.sectionID,
		VariantID:     variantID,
		TotalCapacity: 5,
		PriceModifier: decimal.NewFromInt(1),
		IsAvailable:   true,
	}

	err := f.service.ValidateHierarchy(ctx, f.sectionID)
	var hve *HierarchyValidationError
	require.ErrorAs(t, err, &hve)
	assert.Equal(t, 10, hve.SectionTotal)
	assert.Equal(t, 15, hve.AllocatedTotal)
}

func TestScheduleOccupancy(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	occupancy, err := f.service.ScheduleOccupancy(ctx, f.scheduleID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, occupancy)

	_, err = f.service.Reserve(ctx, f.sectionID, f.variantID, 3)
	require.NoError(t, err)
	require.NoError(t, f.service.Confirm(ctx, f.sectionID, f.variantID, 2))

	// Confirm moves units out of reserved: 1 reserved + 2 confirmed of 10
	occupancy, err = f.service.ScheduleOccupancy(ctx, f.scheduleID)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, occupancy, 0.001)
}

func TestGetScheduleAvailabilitySummary(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	_, err := f.service.Reserve(ctx, f.sectionID, f.variantID, 3)
	require.NoError(t, err)

	summary, err := f.service.GetScheduleAvailability(ctx, f.scheduleID)
	require.NoError(t, err)
	assert.Equal(t, f.scheduleID.String(), summary.ScheduleID)
	assert.True(t, summary.IsAvailable)
	assert.Equal(t, 10, summary.MaxCapacity)
	assert.Equal(t, 3, summary.Reserved)
	assert.Equal(t, 7, summary.Available)

	require.Len(t, summary.Sections, 1)
	assert.Equal(t, f.sectionID.String(), summary.Sections[0].SectionID)
	assert.Equal(t, "standard", summary.Sections[0].Name)
	require.Len(t, summary.Sections[0].Variants, 1)
	variant := summary.Sections[0].Variants[0]
	assert.Equal(t, f.variantID.String(), variant.VariantID)
	assert.Equal(t, 10, variant.Total)
	assert.Equal(t, 3, variant.Reserved)
	assert.Equal(t, 7, variant.Available)
}

func TestAvailabilitySummaryWithoutSections(t *testing.T) {
	repo := newMemoryRepository()
	scheduleID := uuid.New()
	repo.schedules[scheduleID] = &Schedule{
		ID:          scheduleID,
		ProductID:   uuid.New(),
		ProductType: ProductTypeTour,
		Name:        "Unconfigured",
		StartsAt:    time.Now().UTC().Add(24 * time.Hour),
		EndsAt:      time.Now().UTC().Add(26 * time.Hour),
		IsAvailable: true,
	}
	svc := NewService(repo, time.Minute, 100)

	summary, err := svc.GetScheduleAvailability(context.Background(), scheduleID)
	require.NoError(t, err)
	assert.Empty(t, summary.Sections)
	assert.Equal(t, 0, summary.MaxCapacity)
	assert.Equal(t, 0, summary.Available)
}
