package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pure evaluation functions for discounts, fees and pricing rules. No side
// effects; usage accounting happens separately in the repository.

var hundred = decimal.NewFromInt(100)

// maxPriceModifier bounds allocation multipliers; the database enforces the
// same limit with a CHECK constraint.
var maxPriceModifier = decimal.NewFromInt(10)

// IsValidAt reports whether the discount can be redeemed at the given
// instant: active, inside its validity window, and under its usage cap.
func (d *Discount) IsValidAt(now time.Time) bool {
	if !d.IsActive {
		return false
	}
	if now.Before(d.ValidFrom) || now.After(d.ValidUntil) {
		return false
	}
	if d.MaxUses != nil && d.CurrentUses >= *d.MaxUses {
		return false
	}
	return true
}

// CalculateAt returns the discount amount for the given base amount, zero
// when the discount is invalid or the amount is below the minimum. The
// result is clamped to MaxDiscount when set and never exceeds the amount.
func (d *Discount) CalculateAt(amount decimal.Decimal, now time.Time) decimal.Decimal {
	if !d.IsValidAt(now) || amount.LessThan(d.MinAmount) {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch d.DiscountType {
	case DiscountPercentage:
		discount = amount.Mul(d.Value).Div(hundred)
	case DiscountFixed:
		discount = d.Value
	default:
		return decimal.Zero
	}

	if d.MaxDiscount != nil && discount.GreaterThan(*d.MaxDiscount) {
		discount = *d.MaxDiscount
	}
	if discount.GreaterThan(amount) {
		discount = amount
	}
	return discount.Round(2)
}

// Calculate returns the fee amount for the given base amount and ticket
// quantity, zero when the fee is inactive or the amount is below the
// minimum. The result is clamped to MaxFee when set.
func (f *Fee) Calculate(amount decimal.Decimal, quantity int) decimal.Decimal {
	if !f.IsActive || amount.LessThan(f.MinAmount) {
		return decimal.Zero
	}

	var fee decimal.Decimal
	switch f.CalculationType {
	case FeePercentage:
		fee = amount.Mul(f.Value).Div(hundred)
	case FeeFixed, FeePerBooking:
		fee = f.Value
	case FeePerTicket:
		fee = f.Value.Mul(decimal.NewFromInt(int64(quantity)))
	default:
		return decimal.Zero
	}

	if f.MaxFee != nil && fee.GreaterThan(*f.MaxFee) {
		fee = *f.MaxFee
	}
	return fee.Round(2)
}

// AppliesTo reports whether the rule matches a schedule starting at
// startsAt with the given occupancy percentage, evaluated at now.
func (r *PricingRule) AppliesTo(startsAt time.Time, occupancyPct float64, now time.Time) bool {
	if !r.IsActive {
		return false
	}
	if now.Before(r.ValidFrom) || now.After(r.ValidUntil) {
		return false
	}

	daysBefore := int(startsAt.Sub(now).Hours() / 24)

	switch r.RuleType {
	case RuleEarlyBird:
		return daysBefore >= r.ThresholdDays
	case RuleLastMinute:
		return daysBefore >= 0 && daysBefore < r.ThresholdDays
	case RuleCapacityBased:
		return occupancyPct >= r.MinOccupancy && occupancyPct <= r.MaxOccupancy
	default:
		return false
	}
}

// CalculateAdjustment returns the signed amount the rule adds to (or, when
// negative, subtracts from) the unit price.
func (r *PricingRule) CalculateAdjustment(basePrice decimal.Decimal) decimal.Decimal {
	switch r.AdjustmentType {
	case RuleAdjustPercentage:
		return basePrice.Mul(r.AdjustmentValue).Div(hundred).Round(2)
	case RuleAdjustFixed:
		return r.AdjustmentValue
	case RuleAdjustMultiplier:
		// multiplier 1.2 on a 100.00 base yields a +20.00 adjustment
		return basePrice.Mul(r.AdjustmentValue.Sub(decimal.NewFromInt(1))).Round(2)
	default:
		return decimal.Zero
	}
}

// Amount returns the priced line for the add-on at the given quantity
// against the subtotal. Percentage add-ons price off the subtotal, flat
// add-ons off their own price.
func (a *AddOn) Amount(subtotal decimal.Decimal, quantity int) decimal.Decimal {
	if !a.IsActive || quantity <= 0 {
		return decimal.Zero
	}
	if a.MaxQuantity > 0 && quantity > a.MaxQuantity {
		quantity = a.MaxQuantity
	}

	var unit decimal.Decimal
	if a.PercentageRate != nil && a.PercentageRate.GreaterThan(decimal.Zero) {
		unit = subtotal.Mul(*a.PercentageRate).Div(hundred)
	} else {
		unit = a.Price
	}
	return unit.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}
