package pricing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType selects the discount calculation method
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Discount is an administrator-managed promotion with a validity window
// and an optional usage cap. Group-booking discounts are evaluated through
// the same record type rather than inline calculator math.
type Discount struct {
	ID           uuid.UUID        `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Code         string           `json:"code" gorm:"uniqueIndex;not null;size:50"`
	Description  string           `json:"description" gorm:"size:255"`
	DiscountType DiscountType     `json:"discount_type" gorm:"type:varchar(12);not null"`
	Value        decimal.Decimal  `json:"value" gorm:"type:numeric(12,2);not null"`
	MinAmount    decimal.Decimal  `json:"min_amount" gorm:"type:numeric(12,2);default:0"`
	MaxDiscount  *decimal.Decimal `json:"max_discount" gorm:"type:numeric(12,2)"`
	MaxUses      *int             `json:"max_uses"`
	CurrentUses  int              `json:"current_uses" gorm:"default:0"`
	IsActive     bool             `json:"is_active" gorm:"default:true"`
	ValidFrom    time.Time        `json:"valid_from" gorm:"not null"`
	ValidUntil   time.Time        `json:"valid_until" gorm:"not null"`
	CreatedAt    time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Discount) TableName() string {
	return "discounts"
}

// FeeCalculationType selects the fee calculation method
type FeeCalculationType string

const (
	FeePercentage FeeCalculationType = "percentage"
	FeeFixed      FeeCalculationType = "fixed"
	FeePerTicket  FeeCalculationType = "per_ticket"
	FeePerBooking FeeCalculationType = "per_booking"
)

// Fee is a booking surcharge (service fee, processing fee)
type Fee struct {
	ID              uuid.UUID          `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Name            string             `json:"name" gorm:"not null;size:100"`
	CalculationType FeeCalculationType `json:"calculation_type" gorm:"type:varchar(12);not null"`
	Value           decimal.Decimal    `json:"value" gorm:"type:numeric(12,2);not null"`
	MinAmount       decimal.Decimal    `json:"min_amount" gorm:"type:numeric(12,2);default:0"`
	MaxFee          *decimal.Decimal   `json:"max_fee" gorm:"type:numeric(12,2)"`
	IsActive        bool               `json:"is_active" gorm:"default:true"`
	CreatedAt       time.Time          `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time          `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Fee) TableName() string {
	return "fees"
}

// RuleType selects the pricing-rule predicate
type RuleType string

const (
	RuleEarlyBird     RuleType = "early_bird"
	RuleLastMinute    RuleType = "last_minute"
	RuleCapacityBased RuleType = "capacity_based"
)

// RuleAdjustmentType selects how the rule adjusts the base price
type RuleAdjustmentType string

const (
	RuleAdjustPercentage RuleAdjustmentType = "percentage"
	RuleAdjustFixed      RuleAdjustmentType = "fixed"
	RuleAdjustMultiplier RuleAdjustmentType = "multiplier"
)

// PricingRule adjusts the unit price based on how far out the schedule is
// or how full it already is.
type PricingRule struct {
	ID              uuid.UUID          `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Name            string             `json:"name" gorm:"not null;size:100"`
	RuleType        RuleType           `json:"rule_type" gorm:"type:varchar(20);not null"`
	ThresholdDays   int                `json:"threshold_days" gorm:"default:0"`
	MinOccupancy    float64            `json:"min_occupancy" gorm:"default:0"`
	MaxOccupancy    float64            `json:"max_occupancy" gorm:"default:100"`
	AdjustmentType  RuleAdjustmentType `json:"adjustment_type" gorm:"type:varchar(12);not null"`
	AdjustmentValue decimal.Decimal    `json:"adjustment_value" gorm:"type:numeric(12,4);not null"`
	IsActive        bool               `json:"is_active" gorm:"default:true"`
	ValidFrom       time.Time          `json:"valid_from" gorm:"not null"`
	ValidUntil      time.Time          `json:"valid_until" gorm:"not null"`
	CreatedAt       time.Time          `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time          `json:"updated_at" gorm:"autoUpdateTime"`
}

func (PricingRule) TableName() string {
	return "pricing_rules"
}

// AddOn is an optional extra sold with a schedule (equipment rental,
// meal, priority access). Priced flat or as a percentage of the subtotal.
type AddOn struct {
	ID             uuid.UUID        `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	ScheduleID     uuid.UUID        `json:"schedule_id" gorm:"type:uuid;not null;index"`
	Name           string           `json:"name" gorm:"not null;size:100"`
	Price          decimal.Decimal  `json:"price" gorm:"type:numeric(12,2);not null"`
	PercentageRate *decimal.Decimal `json:"percentage_rate" gorm:"type:numeric(6,3)"`
	MaxQuantity    int              `json:"max_quantity" gorm:"default:10"`
	IsActive       bool             `json:"is_active" gorm:"default:true"`
	CreatedAt      time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}

func (AddOn) TableName() string {
	return "add_ons"
}

// AddOnLine is one priced add-on inside a quote
type AddOnLine struct {
	AddOnID  string          `json:"add_on_id"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
}

// FeeLine is one applied fee inside a quote
type FeeLine struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// PriceQuote is the fully itemized, point-in-time result of a price
// computation. Never mutated after construction.
type PriceQuote struct {
	ScheduleID    string          `json:"schedule_id"`
	SectionName   string          `json:"section_name"`
	VariantID     string          `json:"variant_id"`
	Quantity      int             `json:"quantity"`
	Currency      string          `json:"currency"`
	BasePrice     decimal.Decimal `json:"base_price"`
	PriceModifier decimal.Decimal `json:"price_modifier"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	AddOns        []AddOnLine     `json:"add_ons,omitempty"`
	AddOnsTotal   decimal.Decimal `json:"add_ons_total"`
	DiscountCode  string          `json:"discount_code,omitempty"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	Fees          []FeeLine       `json:"fees,omitempty"`
	FeesTotal     decimal.Decimal `json:"fees_total"`
	TaxTotal      decimal.Decimal `json:"tax_total"`
	FinalPrice    decimal.Decimal `json:"final_price"`
	CalculatedAt  time.Time       `json:"calculated_at"`
}

// BulkQuoteItem is one request's outcome inside a bulk quote; failed items
// carry the error message in place without aborting their siblings.
type BulkQuoteItem struct {
	Index int         `json:"index"`
	Quote *PriceQuote `json:"quote,omitempty"`
	Error string      `json:"error,omitempty"`
}

// BulkPriceQuote aggregates independently computed quotes
type BulkPriceQuote struct {
	Items        []BulkQuoteItem `json:"items"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
	Currency     string          `json:"currency"`
	FailedCount  int             `json:"failed_count"`
	CalculatedAt time.Time       `json:"calculated_at"`
}
