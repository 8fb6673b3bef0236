package pricing

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourly/internal/capacity"
	"tourly/pkg/cache"
)

// memoryPricingRepo is an in-memory Repository for the calculator tests
type memoryPricingRepo struct {
	mu        sync.Mutex
	discounts map[string]*Discount
	fees      []Fee
	rules     []PricingRule
	addOns    map[uuid.UUID][]AddOn
}

func newMemoryPricingRepo() *memoryPricingRepo {
	return &memoryPricingRepo{
		discounts: make(map[string]*Discount),
		addOns:    make(map[uuid.UUID][]AddOn),
	}
}

func (m *memoryPricingRepo) GetDiscountByCode(ctx context.Context, code string) (*Discount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	discount, ok := m.discounts[code]
	if !ok {
		return nil, ErrDiscountNotFound
	}
	copied := *discount
	return &copied, nil
}

func (m *memoryPricingRepo) IncrementDiscountUsage(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	discount, ok := m.discounts[code]
	if !ok {
		return ErrDiscountNotFound
	}
	if !discount.IsActive {
		return ErrDiscountInvalid
	}
	if discount.MaxUses != nil && discount.CurrentUses >= *discount.MaxUses {
		return ErrDiscountInvalid
	}
	discount.CurrentUses++
	return nil
}

func (m *memoryPricingRepo) ListActiveFees(ctx context.Context) ([]Fee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Fee
	for _, fee := range m.fees {
		if fee.IsActive {
			out = append(out, fee)
		}
	}
	return out, nil
}

func (m *memoryPricingRepo) ListActiveRules(ctx context.Context) ([]PricingRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []PricingRule
	for _, rule := range m.rules {
		if rule.IsActive {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (m *memoryPricingRepo) GetAddOns(ctx context.Context, scheduleID uuid.UUID, ids []uuid.UUID) ([]AddOn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []AddOn
	for _, addOn := range m.addOns[scheduleID] {
		if wanted[addOn.ID] && addOn.IsActive {
			out = append(out, addOn)
		}
	}
	return out, nil
}

// memoryCache is an in-memory cache.Service for testing the quote cache
// paths; only the operations the pricing service reaches are implemented.
type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.items[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = raw
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *memoryCache) DeletePattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
	return nil
}

func (c *memoryCache) Exists(ctx context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

func (c *memoryCache) MGet(ctx context.Context, keys []string, dest interface{}) error {
	panic("not used by pricing")
}

func (c *memoryCache) MSet(ctx context.Context, items map[string]interface{}, ttl time.Duration) error {
	panic("not used by pricing")
}

func (c *memoryCache) GetOrSet(ctx context.Context, key string, ttl time.Duration, fetcher func() (interface{}, error), dest interface{}) error {
	panic("not used by pricing")
}

func (c *memoryCache) Ping(ctx context.Context) error { return nil }

// stubCapacityService serves the capacity reads the calculator performs;
// everything else is unused by pricing and fails loudly if reached.
type stubCapacityService struct {
	schedule   *capacity.Schedule
	section    *capacity.Section
	allocation *capacity.Allocation
	occupancy  float64
}

func (s *stubCapacityService) GetSchedule(ctx context.Context, scheduleID uuid.UUID) (*capacity.Schedule, error) {
	if s.schedule == nil || s.schedule.ID != scheduleID {
		return nil, capacity.ErrScheduleNotFound
	}
	return s.schedule, nil
}

func (s *stubCapacityService) GetSection(ctx context.Context, sectionID uuid.UUID) (*capacity.Section, error) {
	if s.section == nil || s.section.ID != sectionID {
		return nil, capacity.ErrSectionNotFound
	}
	return s.section, nil
}

func (s *stubCapacityService) GetSectionByName(ctx context.Context, scheduleID uuid.UUID, name string) (*capacity.Section, error) {
	if s.section == nil || s.section.Name != name {
		return nil, capacity.ErrSectionNotFound
	}
	return s.section, nil
}

func (s *stubCapacityService) GetAllocation(ctx context.Context, sectionID, variantID uuid.UUID) (*capacity.Allocation, error) {
	if s.allocation == nil || s.allocation.VariantID != variantID {
		return nil, capacity.ErrAllocationNotFound
	}
	return s.allocation, nil
}

func (s *stubCapacityService) ScheduleOccupancy(ctx context.Context, scheduleID uuid.UUID) (float64, error) {
	return s.occupancy, nil
}

func (s *stubCapacityService) GetAvailable(ctx context.Context, sectionID, variantID uuid.UUID) (int, error) {
	return s.allocation.AvailableCapacity(), nil
}

func (s *stubCapacityService) GetScheduleAvailability(ctx context.Context, scheduleID uuid.UUID) (*capacity.ScheduleAvailability, error) {
	panic("not used by pricing")
}

func (s *stubCapacityService) ValidateHierarchy(ctx context.Context, sectionID uuid.UUID) error {
	panic("not used by pricing")
}

func (s *stubCapacityService) EnsureInitialized(ctx context.Context, sectionID, variantID uuid.UUID) (*capacity.Allocation, error) {
	panic("not used by pricing")
}

func (s *stubCapacityService) Reserve(ctx context.Context, sectionID, variantID uuid.UUID, quantity int) (*capacity.Hold, error) {
	panic("not used by pricing")
}

func (s *stubCapacityService) Release(ctx context.Context, sectionID, variantID uuid.UUID, quantity int) error {
	panic("not used by pricing")
}

func (s *stubCapacityService) Confirm(ctx context.Context, sectionID, variantID uuid.UUID, quantity int) error {
	panic("not used by pricing")
}

func (s *stubCapacityService) Cancel(ctx context.Context, sectionID, variantID uuid.UUID, quantity int) error {
	panic("not used by pricing")
}

func (s *stubCapacityService) ReleaseHold(ctx context.Context, holdID uuid.UUID) error {
	panic("not used by pricing")
}

func (s *stubCapacityService) ConfirmHold(ctx context.Context, holdID uuid.UUID) error {
	panic("not used by pricing")
}

func (s *stubCapacityService) SweepExpired(ctx context.Context, now time.Time) (*capacity.SweepReport, error) {
	panic("not used by pricing")
}

func (s *stubCapacityService) SetCacheService(cacheService cache.Service) {}

func (s *stubCapacityService) SetEventProducer(producer capacity.EventProducer) {}

type pricingFixture struct {
	repo       *memoryPricingRepo
	capacity   *stubCapacityService
	service    Service
	scheduleID uuid.UUID
	variantID  uuid.UUID
}

// newPricingFixture wires a schedule with a 100.00 base price section and
// a 1.5x variant modifier, 10 units available.
func newPricingFixture(t *testing.T) *pricingFixture {
	t.Helper()

	scheduleID := uuid.New()
	sectionID := uuid.New()
	variantID := uuid.New()
	now := time.Now().UTC()

	capacityStub := &stubCapacityService{
		schedule: &capacity.Schedule{
			ID:          scheduleID,
			Name:        "Harbor Cruise",
			StartsAt:    now.Add(10 * 24 * time.Hour),
			EndsAt:      now.Add(10*24*time.Hour + 3*time.Hour),
			IsAvailable: true,
		},
		section: &capacity.Section{
			ID:            sectionID,
			ScheduleID:    scheduleID,
			Name:          "standard",
			TotalCapacity: 10,
			BasePrice:     decimal.NewFromInt(100),
			IsAvailable:   true,
		},
		allocation: &capacity.Allocation{
			ID:            uuid.New(),
			SectionID:     sectionID,
			VariantID:     variantID,
			TotalCapacity: 10,
			PriceModifier: decimal.NewFromFloat(1.5),
			IsAvailable:   true,
		},
	}

	repo := newMemoryPricingRepo()
	service := NewService(repo, capacityStub, &Config{
		Currency:             "USD",
		TaxRatePercent:       decimal.NewFromInt(10),
		GroupDiscountPercent: decimal.NewFromInt(10),
		GroupMinAmount:       decimal.NewFromInt(500),
		QuoteCacheTTL:        time.Minute,
	})

	return &pricingFixture{
		repo:       repo,
		capacity:   capacityStub,
		service:    service,
		scheduleID: scheduleID,
		variantID:  variantID,
	}
}

func (f *pricingFixture) request(quantity int) PriceRequest {
	return PriceRequest{
		ScheduleID:  f.scheduleID,
		SectionName: "standard",
		VariantID:   f.variantID,
		Quantity:    quantity,
	}
}

func TestCalculatePriceBaseCase(t *testing.T) {
	f := newPricingFixture(t)

	// 100.00 base x 1.5 modifier x 2 = 300.00, nothing else applied
	quote, err := f.service.CalculatePrice(context.Background(), f.request(2))
	require.NoError(t, err)

	assert.Equal(t, "150.00", quote.UnitPrice.StringFixed(2))
	assert.Equal(t, "300.00", quote.Subtotal.StringFixed(2))
	assert.Equal(t, "300.00", quote.FinalPrice.StringFixed(2))
	assert.Equal(t, "USD", quote.Currency)
	assert.True(t, quote.DiscountTotal.IsZero())
	assert.True(t, quote.FeesTotal.IsZero())
	assert.True(t, quote.TaxTotal.IsZero())
}

func TestCalculatePriceIsDeterministic(t *testing.T) {
	f := newPricingFixture(t)
	ctx := context.Background()

	first, err := f.service.CalculatePrice(ctx, f.request(3))
	require.NoError(t, err)
	second, err := f.service.CalculatePrice(ctx, f.request(3))
	require.NoError(t, err)

	assert.True(t, first.FinalPrice.Equal(second.FinalPrice))
	assert.True(t, first.UnitPrice.Equal(second.UnitPrice))
	assert.True(t, first.Subtotal.Equal(second.Subtotal))
}

func TestCalculatePriceInvalidQuantity(t *testing.T) {
	f := newPricingFixture(t)

	_, err := f.service.CalculatePrice(context.Background(), f.request(0))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCalculatePriceInsufficientAvailability(t *testing.T) {
	f := newPricingFixture(t)
	f.capacity.allocation.ReservedCapacity = 9

	_, err := f.service.CalculatePrice(context.Background(), f.request(2))

	var ice *capacity.InsufficientCapacityError
	require.ErrorAs(t, err, &ice)
	assert.Equal(t, 2, ice.Requested)
	assert.Equal(t, 1, ice.Available)
}

func TestCalculatePriceRejectsNonPositivePricing(t *testing.T) {
	f := newPricingFixture(t)
	f.capacity.section.BasePrice = decimal.Zero

	_, err := f.service.CalculatePrice(context.Background(), f.request(1))
	assert.ErrorIs(t, err, ErrInvalidPricing)
}

func TestCalculatePriceRejectsExcessiveModifier(t *testing.T) {
	f := newPricingFixture(t)
	f.capacity.allocation.PriceModifier = decimal.NewFromInt(11)

	_, err := f.service.CalculatePrice(context.Background(), f.request(1))
	assert.ErrorIs(t, err, ErrInvalidPricing)
}

func TestGroupBookingDiscount(t *testing.T) {
	f := newPricingFixture(t)

	// 150.00 x 4 = 600.00 subtotal, over the 500.00 group threshold:
	// 10% group discount applies
	req := f.request(4)
	req.IsGroupBooking = true

	quote, err := f.service.CalculatePrice(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "600.00", quote.Subtotal.StringFixed(2))
	assert.Equal(t, "60.00", quote.DiscountTotal.StringFixed(2))
	assert.Equal(t, "540.00", quote.FinalPrice.StringFixed(2))
}

func TestGroupBookingBelowThreshold(t *testing.T) {
	f := newPricingFixture(t)

	// 150.00 x 2 = 300.00, under the 500.00 threshold: no group discount
	req := f.request(2)
	req.IsGroupBooking = true

	quote, err := f.service.CalculatePrice(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, quote.DiscountTotal.IsZero())
	assert.Equal(t, "300.00", quote.FinalPrice.StringFixed(2))
}

func TestPromoDiscountApplied(t *testing.T) {
	f := newPricingFixture(t)
	now := time.Now().UTC()

	f.repo.discounts["SAVE20"] = &Discount{
		ID:           uuid.New(),
		Code:         "SAVE20",
		DiscountType: DiscountPercentage,
		Value:        decimal.NewFromInt(20),
		IsActive:     true,
		ValidFrom:    now.Add(-time.Hour),
		ValidUntil:   now.Add(time.Hour),
	}

	req := f.request(2)
	req.DiscountCode = "SAVE20"

	quote, err := f.service.CalculatePrice(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "60.00", quote.DiscountTotal.StringFixed(2))
	assert.Equal(t, "240.00", quote.FinalPrice.StringFixed(2))
}

func TestUnknownDiscountCodeFails(t *testing.T) {
	f := newPricingFixture(t)

	req := f.request(2)
	req.DiscountCode = "NOPE"

	_, err := f.service.CalculatePrice(context.Background(), req)
	assert.ErrorIs(t, err, ErrDiscountNotFound)
}

func TestFinalPriceNeverNegative(t *testing.T) {
	f := newPricingFixture(t)
	now := time.Now().UTC()

	// Fixed discount far above the subtotal; evaluator clamps to the
	// discountable amount so the final price floors at zero
	f.repo.discounts["HUGE"] = &Discount{
		ID:           uuid.New(),
		Code:         "HUGE",
		DiscountType: DiscountFixed,
		Value:        decimal.NewFromInt(100000),
		IsActive:     true,
		ValidFrom:    now.Add(-time.Hour),
		ValidUntil:   now.Add(time.Hour),
	}

	req := f.request(2)
	req.DiscountCode = "HUGE"

	quote, err := f.service.CalculatePrice(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, quote.FinalPrice.IsZero(), "got %s", quote.FinalPrice)
	assert.False(t, quote.FinalPrice.IsNegative())
}

func TestFeesAndTaxesApplied(t *testing.T) {
	f := newPricingFixture(t)
	f.repo.fees = []Fee{
		{ID: uuid.New(), Name: "Service Fee", CalculationType: FeePercentage, Value: decimal.NewFromInt(5), IsActive: true},
	}

	req := f.request(2)
	req.ApplyFees = true
	req.ApplyTaxes = true

	quote, err := f.service.CalculatePrice(context.Background(), req)
	require.NoError(t, err)

	// 300.00 + 5% fee (15.00) = 315.00, + 10% tax (31.50) = 346.50
	assert.Equal(t, "15.00", quote.FeesTotal.StringFixed(2))
	assert.Equal(t, "31.50", quote.TaxTotal.StringFixed(2))
	assert.Equal(t, "346.50", quote.FinalPrice.StringFixed(2))
}

func TestAddOnsIncludedAndUnknownSkipped(t *testing.T) {
	f := newPricingFixture(t)

	lunch := AddOn{
		ID:          uuid.New(),
		ScheduleID:  f.scheduleID,
		Name:        "Lunch Box",
		Price:       decimal.NewFromFloat(12.50),
		MaxQuantity: 10,
		IsActive:    true,
	}
	f.repo.addOns[f.scheduleID] = []AddOn{lunch}

	req := f.request(2)
	req.AddOns = []AddOnSelection{
		{AddOnID: lunch.ID, Quantity: 2},
		{AddOnID: uuid.New(), Quantity: 1}, // unknown, skipped
	}

	quote, err := f.service.CalculatePrice(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, quote.AddOns, 1)
	assert.Equal(t, "Lunch Box", quote.AddOns[0].Name)
	assert.Equal(t, "25.00", quote.AddOnsTotal.StringFixed(2))
	assert.Equal(t, "325.00", quote.FinalPrice.StringFixed(2))
}

func TestEarlyBirdRuleAdjustsUnitPrice(t *testing.T) {
	f := newPricingFixture(t)
	now := time.Now().UTC()

	f.repo.rules = []PricingRule{
		{
			ID:              uuid.New(),
			Name:            "Early Bird",
			RuleType:        RuleEarlyBird,
			ThresholdDays:   7,
			AdjustmentType:  RuleAdjustPercentage,
			AdjustmentValue: decimal.NewFromInt(-10),
			IsActive:        true,
			ValidFrom:       now.Add(-time.Hour),
			ValidUntil:      now.Add(365 * 24 * time.Hour),
		},
	}

	// Schedule starts in 10 days, inside the early-bird window:
	// 150.00 - 10% = 135.00 per unit
	quote, err := f.service.CalculatePrice(context.Background(), f.request(2))
	require.NoError(t, err)
	assert.Equal(t, "135.00", quote.UnitPrice.StringFixed(2))
	assert.Equal(t, "270.00", quote.FinalPrice.StringFixed(2))
}

func TestCalculateBulkPrice(t *testing.T) {
	f := newPricingFixture(t)
	ctx := context.Background()

	good := f.request(2)
	bad := f.request(2)
	bad.SectionName = "does-not-exist"

	result, err := f.service.CalculateBulkPrice(ctx, []PriceRequest{good, bad, good})
	require.NoError(t, err)

	require.Len(t, result.Items, 3)
	assert.Equal(t, 1, result.FailedCount)

	assert.NotNil(t, result.Items[0].Quote)
	assert.Empty(t, result.Items[0].Error)

	assert.Nil(t, result.Items[1].Quote)
	assert.NotEmpty(t, result.Items[1].Error)

	assert.NotNil(t, result.Items[2].Quote)

	// Grand total sums only the successful items
	assert.Equal(t, "600.00", result.GrandTotal.StringFixed(2))
}

func TestCalculateBulkPriceEmpty(t *testing.T) {
	f := newPricingFixture(t)

	_, err := f.service.CalculateBulkPrice(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyBulkRequest)
}

func TestRedeemDiscountEnforcesUsageCap(t *testing.T) {
	f := newPricingFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()
	maxUses := 1

	f.repo.discounts["ONCE"] = &Discount{
		ID:           uuid.New(),
		Code:         "ONCE",
		DiscountType: DiscountPercentage,
		Value:        decimal.NewFromInt(10),
		MaxUses:      &maxUses,
		IsActive:     true,
		ValidFrom:    now.Add(-time.Hour),
		ValidUntil:   now.Add(time.Hour),
	}

	require.NoError(t, f.service.RedeemDiscount(ctx, "ONCE"))

	err := f.service.RedeemDiscount(ctx, "ONCE")
	assert.ErrorIs(t, err, ErrDiscountInvalid)
}

func TestRedeemDiscountFlushesQuoteCache(t *testing.T) {
	f := newPricingFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	f.repo.discounts["SAVE20"] = &Discount{
		ID:           uuid.New(),
		Code:         "SAVE20",
		DiscountType: DiscountPercentage,
		Value:        decimal.NewFromInt(20),
		IsActive:     true,
		ValidFrom:    now.Add(-time.Hour),
		ValidUntil:   now.Add(time.Hour),
	}

	mc := newMemoryCache()
	f.service.SetCacheService(mc)

	req := f.request(2)
	req.DiscountCode = "SAVE20"

	first, err := f.service.CalculatePrice(ctx, req)
	require.NoError(t, err)

	// Identical inputs come back memoized even after the section price
	// changes underneath
	f.capacity.section.BasePrice = decimal.NewFromInt(200)
	cached, err := f.service.CalculatePrice(ctx, req)
	require.NoError(t, err)
	assert.True(t, first.FinalPrice.Equal(cached.FinalPrice))

	// Redeeming drops every pricing key, so the next quote recomputes
	require.NoError(t, f.service.RedeemDiscount(ctx, "SAVE20"))

	fresh, err := f.service.CalculatePrice(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.FinalPrice.Equal(fresh.FinalPrice))
}
