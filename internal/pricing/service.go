package pricing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tourly/internal/capacity"
	"tourly/internal/shared/constants"
	"tourly/pkg/cache"
	"tourly/pkg/logger"
	"tourly/pkg/metrics"
)

// AddOnSelection is one requested add-on with its quantity
type AddOnSelection struct {
	AddOnID  uuid.UUID
	Quantity int
}

// PriceRequest carries every input of a quote computation
type PriceRequest struct {
	ScheduleID     uuid.UUID
	SectionName    string
	VariantID      uuid.UUID
	Quantity       int
	AddOns         []AddOnSelection
	DiscountCode   string
	IsGroupBooking bool
	ApplyFees      bool
	ApplyTaxes     bool
}

// Config tunes the calculator
type Config struct {
	Currency             string
	TaxRatePercent       decimal.Decimal
	GroupDiscountPercent decimal.Decimal
	GroupMinAmount       decimal.Decimal
	QuoteCacheTTL        time.Duration
}

// DefaultConfig returns the default calculator configuration
func DefaultConfig() *Config {
	return &Config{
		Currency:             "USD",
		TaxRatePercent:       decimal.NewFromInt(10),
		GroupDiscountPercent: decimal.NewFromInt(10),
		GroupMinAmount:       decimal.NewFromInt(500),
		QuoteCacheTTL:        constants.TTL_PRICE_QUOTE,
	}
}

// Service computes itemized price quotes. It reads capacity state to
// validate quantities but never reserves anything; callers reserve
// separately and the allocator re-validates atomically at that point.
type Service interface {
	CalculatePrice(ctx context.Context, req PriceRequest) (*PriceQuote, error)
	CalculateBulkPrice(ctx context.Context, reqs []PriceRequest) (*BulkPriceQuote, error)
	RedeemDiscount(ctx context.Context, code string) error

	SetCacheService(cacheService cache.Service)
}

type service struct {
	repo        Repository
	capacitySvc capacity.Service
	cacheSvc    cache.Service
	config      *Config
	logger      *logger.Logger
}

// NewService creates a new price calculator
func NewService(repo Repository, capacitySvc capacity.Service, config *Config) Service {
	if config == nil {
		config = DefaultConfig()
	}
	return &service{
		repo:        repo,
		capacitySvc: capacitySvc,
		config:      config,
		logger:      logger.GetDefault(),
	}
}

// SetCacheService injects the cache service dependency
func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheSvc = cacheService
}

// CalculatePrice runs the full quote pipeline. Memoized under a
// fingerprint of all inputs; the cache is an optimization only and the
// computation is correct with caching disabled.
func (s *service) CalculatePrice(ctx context.Context, req PriceRequest) (*PriceQuote, error) {
	if req.Quantity <= 0 {
		metrics.PricingQuotes.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidQuantity
	}

	cacheKey := constants.BuildPriceQuoteKey(req.ScheduleID.String(), s.fingerprint(req))
	if s.cacheSvc != nil {
		var cached PriceQuote
		if err := s.cacheSvc.Get(ctx, cacheKey, &cached); err == nil {
			metrics.PricingCacheHits.WithLabelValues("hit").Inc()
			return &cached, nil
		}
		metrics.PricingCacheHits.WithLabelValues("miss").Inc()
	}

	quote, err := s.computeQuote(ctx, req)
	if err != nil {
		metrics.PricingQuotes.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.PricingQuotes.WithLabelValues("success").Inc()
	s.logger.LogQuoteComputed(ctx, req.ScheduleID.String(), req.Quantity, quote.FinalPrice.StringFixed(2))

	if s.cacheSvc != nil {
		_ = s.cacheSvc.Set(ctx, cacheKey, quote, s.config.QuoteCacheTTL)
	}
	return quote, nil
}

func (s *service) computeQuote(ctx context.Context, req PriceRequest) (*PriceQuote, error) {
	now := time.Now().UTC()

	schedule, err := s.capacitySvc.GetSchedule(ctx, req.ScheduleID)
	if err != nil {
		return nil, err
	}

	section, err := s.capacitySvc.GetSectionByName(ctx, req.ScheduleID, req.SectionName)
	if err != nil {
		return nil, err
	}

	allocation, err := s.capacitySvc.GetAllocation(ctx, section.ID, req.VariantID)
	if err != nil {
		return nil, err
	}

	// Advisory availability check: a quote is not a reservation, and the
	// allocator re-validates atomically when the caller reserves.
	available := allocation.AvailableCapacity()
	if available < req.Quantity {
		return nil, &capacity.InsufficientCapacityError{
			Requested: req.Quantity,
			Available: available,
		}
	}

	if section.BasePrice.LessThanOrEqual(decimal.Zero) || allocation.PriceModifier.LessThanOrEqual(decimal.Zero) ||
		allocation.PriceModifier.GreaterThan(maxPriceModifier) {
		return nil, ErrInvalidPricing
	}

	unitPrice := section.BasePrice.Mul(allocation.PriceModifier)
	switch allocation.AdjustmentType {
	case capacity.AdjustmentFixed:
		unitPrice = unitPrice.Add(allocation.AdjustmentValue)
	case capacity.AdjustmentPercentage:
		unitPrice = unitPrice.Add(unitPrice.Mul(allocation.AdjustmentValue).Div(hundred))
	}

	// Schedule-level pricing rules (early bird, last minute, occupancy)
	rules, err := s.activeRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing rules: %w", err)
	}
	if len(rules) > 0 {
		occupancy, err := s.capacitySvc.ScheduleOccupancy(ctx, req.ScheduleID)
		if err != nil {
			return nil, fmt.Errorf("failed to compute occupancy: %w", err)
		}
		for _, rule := range rules {
			if rule.AppliesTo(schedule.StartsAt, occupancy, now) {
				unitPrice = unitPrice.Add(rule.CalculateAdjustment(unitPrice))
			}
		}
	}
	if unitPrice.LessThan(decimal.Zero) {
		unitPrice = decimal.Zero
	}
	unitPrice = unitPrice.Round(2)

	quantity := decimal.NewFromInt(int64(req.Quantity))
	subtotal := unitPrice.Mul(quantity).Round(2)

	addOnLines, addOnsTotal, err := s.priceAddOns(ctx, req, subtotal)
	if err != nil {
		return nil, err
	}

	discountable := subtotal.Add(addOnsTotal)
	discountTotal := decimal.Zero

	if req.DiscountCode != "" {
		discount, err := s.loadDiscount(ctx, req.DiscountCode)
		if err != nil {
			return nil, err
		}
		discountTotal = discountTotal.Add(discount.CalculateAt(discountable, now))
	}

	if req.IsGroupBooking {
		group := s.groupBookingDiscount(now)
		discountTotal = discountTotal.Add(group.CalculateAt(discountable, now))
	}
	if discountTotal.GreaterThan(discountable) {
		discountTotal = discountable
	}

	afterDiscount := discountable.Sub(discountTotal)

	var feeLines []FeeLine
	feesTotal := decimal.Zero
	if req.ApplyFees {
		fees, err := s.activeFees(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load fees: %w", err)
		}
		for _, fee := range fees {
			amount := fee.Calculate(afterDiscount, req.Quantity)
			if amount.IsZero() {
				continue
			}
			feeLines = append(feeLines, FeeLine{Name: fee.Name, Amount: amount})
			feesTotal = feesTotal.Add(amount)
		}
	}

	taxTotal := decimal.Zero
	if req.ApplyTaxes {
		taxable := afterDiscount.Add(feesTotal)
		taxTotal = taxable.Mul(s.config.TaxRatePercent).Div(hundred).Round(2)
	}

	finalPrice := subtotal.Add(addOnsTotal).Sub(discountTotal).Add(feesTotal).Add(taxTotal)
	if finalPrice.LessThan(decimal.Zero) {
		finalPrice = decimal.Zero
	}

	return &PriceQuote{
		ScheduleID:    req.ScheduleID.String(),
		SectionName:   req.SectionName,
		VariantID:     req.VariantID.String(),
		Quantity:      req.Quantity,
		Currency:      s.config.Currency,
		BasePrice:     section.BasePrice,
		PriceModifier: allocation.PriceModifier,
		UnitPrice:     unitPrice,
		Subtotal:      subtotal,
		AddOns:        addOnLines,
		AddOnsTotal:   addOnsTotal,
		DiscountCode:  req.DiscountCode,
		DiscountTotal: discountTotal.Round(2),
		Fees:          feeLines,
		FeesTotal:     feesTotal.Round(2),
		TaxTotal:      taxTotal,
		FinalPrice:    finalPrice.Round(2),
		CalculatedAt:  now,
	}, nil
}

// priceAddOns resolves the requested add-ons within the schedule's scope.
// Unknown add-on IDs are skipped, not failed, matching the tolerant
// behavior callers depend on.
func (s *service) priceAddOns(ctx context.Context, req PriceRequest, subtotal decimal.Decimal) ([]AddOnLine, decimal.Decimal, error) {
	if len(req.AddOns) == 0 {
		return nil, decimal.Zero, nil
	}

	ids := make([]uuid.UUID, 0, len(req.AddOns))
	for _, selection := range req.AddOns {
		ids = append(ids, selection.AddOnID)
	}
	addOns, err := s.repo.GetAddOns(ctx, req.ScheduleID, ids)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to load add-ons: %w", err)
	}

	byID := make(map[uuid.UUID]*AddOn, len(addOns))
	for i := range addOns {
		byID[addOns[i].ID] = &addOns[i]
	}

	var lines []AddOnLine
	total := decimal.Zero
	for _, selection := range req.AddOns {
		addOn, ok := byID[selection.AddOnID]
		if !ok {
			s.logger.Debug("skipping unknown add-on",
				slog.String("add_on_id", selection.AddOnID.String()),
				slog.String("schedule_id", req.ScheduleID.String()),
			)
			continue
		}
		amount := addOn.Amount(subtotal, selection.Quantity)
		if amount.IsZero() {
			continue
		}
		lines = append(lines, AddOnLine{
			AddOnID:  addOn.ID.String(),
			Name:     addOn.Name,
			Quantity: selection.Quantity,
			Amount:   amount,
		})
		total = total.Add(amount)
	}
	return lines, total.Round(2), nil
}

func (s *service) loadDiscount(ctx context.Context, code string) (*Discount, error) {
	cacheKey := constants.BuildDiscountKey(code)
	if s.cacheSvc != nil {
		var cached Discount
		if err := s.cacheSvc.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	discount, err := s.repo.GetDiscountByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if s.cacheSvc != nil {
		_ = s.cacheSvc.Set(ctx, cacheKey, discount, constants.TTL_DISCOUNT_DETAIL)
	}
	return discount, nil
}

// groupBookingDiscount builds the synthetic discount record that group
// bookings are priced through, so they share the evaluator with promo
// codes instead of getting special-cased math.
func (s *service) groupBookingDiscount(now time.Time) *Discount {
	return &Discount{
		Code:         "GROUP_BOOKING",
		DiscountType: DiscountPercentage,
		Value:        s.config.GroupDiscountPercent,
		MinAmount:    s.config.GroupMinAmount,
		IsActive:     true,
		ValidFrom:    now.Add(-time.Hour),
		ValidUntil:   now.Add(time.Hour),
	}
}

// CalculateBulkPrice computes each request independently, grouped by
// schedule; one failed item is annotated in place and never aborts its
// siblings. Only a fully empty request list fails fast.
func (s *service) CalculateBulkPrice(ctx context.Context, reqs []PriceRequest) (*BulkPriceQuote, error) {
	if len(reqs) == 0 {
		return nil, ErrEmptyBulkRequest
	}

	order := make([]int, len(reqs))
	for i := range reqs {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return strings.Compare(reqs[order[a]].ScheduleID.String(), reqs[order[b]].ScheduleID.String()) < 0
	})

	result := &BulkPriceQuote{
		Items:        make([]BulkQuoteItem, len(reqs)),
		Currency:     s.config.Currency,
		GrandTotal:   decimal.Zero,
		CalculatedAt: time.Now().UTC(),
	}

	for _, idx := range order {
		quote, err := s.CalculatePrice(ctx, reqs[idx])
		if err != nil {
			s.logger.Warn("bulk pricing item failed",
				slog.Int("index", idx),
				slog.String("schedule_id", reqs[idx].ScheduleID.String()),
				slog.String("error", err.Error()),
			)
			result.Items[idx] = BulkQuoteItem{Index: idx, Error: err.Error()}
			result.FailedCount++
			continue
		}
		result.Items[idx] = BulkQuoteItem{Index: idx, Quote: quote}
		result.GrandTotal = result.GrandTotal.Add(quote.FinalPrice)
	}

	return result, nil
}

// activeRules returns the active pricing rules from a single list cache
// key; rules change through operator action, not request flow, so an
// hour of staleness is acceptable.
func (s *service) activeRules(ctx context.Context) ([]PricingRule, error) {
	if s.cacheSvc != nil {
		var cached []PricingRule
		if err := s.cacheSvc.Get(ctx, constants.CACHE_KEY_ACTIVE_RULES, &cached); err == nil {
			return cached, nil
		}
	}

	rules, err := s.repo.ListActiveRules(ctx)
	if err != nil {
		return nil, err
	}
	if s.cacheSvc != nil {
		_ = s.cacheSvc.Set(ctx, constants.CACHE_KEY_ACTIVE_RULES, rules, constants.TTL_ACTIVE_RULES)
	}
	return rules, nil
}

// activeFees mirrors activeRules for the fee list
func (s *service) activeFees(ctx context.Context) ([]Fee, error) {
	if s.cacheSvc != nil {
		var cached []Fee
		if err := s.cacheSvc.Get(ctx, constants.CACHE_KEY_ACTIVE_FEES, &cached); err == nil {
			return cached, nil
		}
	}

	fees, err := s.repo.ListActiveFees(ctx)
	if err != nil {
		return nil, err
	}
	if s.cacheSvc != nil {
		_ = s.cacheSvc.Set(ctx, constants.CACHE_KEY_ACTIVE_FEES, fees, constants.TTL_ACTIVE_FEES)
	}
	return fees, nil
}

// RedeemDiscount records one successful redemption of a code. Called by
// the order layer when a discounted booking commits, not at quote time.
func (s *service) RedeemDiscount(ctx context.Context, code string) error {
	if err := s.repo.IncrementDiscountUsage(ctx, code); err != nil {
		metrics.DiscountRedemptions.WithLabelValues("rejected").Inc()
		return err
	}
	metrics.DiscountRedemptions.WithLabelValues("success").Inc()

	if s.cacheSvc != nil {
		// A redemption can push the code over its usage cap, which
		// invalidates any cached quote that embedded it; the quote keys
		// do not encode the code's remaining uses, so flush the module.
		_ = s.cacheSvc.Delete(ctx, constants.BuildDiscountKey(code))
		_ = s.cacheSvc.DeletePattern(ctx, constants.PATTERN_INVALIDATE_PRICING_ALL)
	}
	return nil
}

// fingerprint derives the deterministic cache key component from every
// quote input. Add-on selections are sorted so equivalent requests hash
// identically regardless of order.
func (s *service) fingerprint(req PriceRequest) string {
	addOns := make([]string, 0, len(req.AddOns))
	for _, selection := range req.AddOns {
		addOns = append(addOns, fmt.Sprintf("%s=%d", selection.AddOnID, selection.Quantity))
	}
	sort.Strings(addOns)

	payload := fmt.Sprintf("%s|%s|%s|%d|%s|%s|%t|%t|%t",
		req.ScheduleID, req.SectionName, req.VariantID, req.Quantity,
		strings.Join(addOns, ","), req.DiscountCode,
		req.IsGroupBooking, req.ApplyFees, req.ApplyTaxes,
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:16])
}
