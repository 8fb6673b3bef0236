package capacity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductType distinguishes the two sellable product families
type ProductType string

const (
	ProductTypeTour  ProductType = "tour"
	ProductTypeEvent ProductType = "event"
)

// Schedule represents one dated occurrence of a bookable product
// (a tour departure or an event performance)
type Schedule struct {
	ID          uuid.UUID   `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	ProductID   uuid.UUID   `json:"product_id" gorm:"type:uuid;not null;index"`
	ProductType ProductType `json:"product_type" gorm:"type:varchar(10);not null;check:product_type IN ('tour', 'event')"`
	Name        string      `json:"name" gorm:"not null;size:255"`
	StartsAt    time.Time   `json:"starts_at" gorm:"not null;index"`
	EndsAt      time.Time   `json:"ends_at" gorm:"not null"`
	IsAvailable bool        `json:"is_available" gorm:"default:true"`
	CreatedAt   time.Time   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time   `json:"updated_at" gorm:"autoUpdateTime"`

	Sections []Section `json:"sections,omitempty" gorm:"foreignKey:ScheduleID;constraint:OnDelete:CASCADE;"`
}

func (Schedule) TableName() string {
	return "schedules"
}

// Section is a named subdivision of a schedule's capacity ("VIP", "Standard", ...)
// Its total capacity is authoritative; the schedule's max capacity is derived
// as the sum of its section totals and never stored.
type Section struct {
	ID                   uuid.UUID       `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	ScheduleID           uuid.UUID       `json:"schedule_id" gorm:"type:uuid;not null;uniqueIndex:idx_schedule_section"`
	Name                 string          `json:"name" gorm:"not null;size:100;uniqueIndex:idx_schedule_section"`
	TotalCapacity        int             `json:"total_capacity" gorm:"not null;check:total_capacity >= 0"`
	BasePrice            decimal.Decimal `json:"base_price" gorm:"type:numeric(12,2);not null"`
	IsPremium            bool            `json:"is_premium" gorm:"default:false"`
	WheelchairAccessible bool            `json:"wheelchair_accessible" gorm:"default:false"`
	IsAvailable          bool            `json:"is_available" gorm:"default:true"`
	CreatedAt            time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt            time.Time       `json:"updated_at" gorm:"autoUpdateTime"`

	Allocations []Allocation `json:"allocations,omitempty" gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE;"`
}

func (Section) TableName() string {
	return "sections"
}

// Variant is the axis orthogonal to sections that a unit is sold under:
// a ticket type for events, a tour variant for tours.
type Variant struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	ScheduleID      uuid.UUID `json:"schedule_id" gorm:"type:uuid;not null;index"`
	Name            string    `json:"name" gorm:"not null;size:100"`
	Code            string    `json:"code" gorm:"not null;size:50"`
	NominalCapacity int       `json:"nominal_capacity" gorm:"default:0;check:nominal_capacity >= 0"`
	IsActive        bool      `json:"is_active" gorm:"default:true"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Variant) TableName() string {
	return "variants"
}

// AdjustmentType describes how an allocation tweaks its section base price
type AdjustmentType string

const (
	AdjustmentNone       AdjustmentType = "none"
	AdjustmentFixed      AdjustmentType = "fixed"
	AdjustmentPercentage AdjustmentType = "percentage"
)

// Allocation is the bookable unit: the (section, variant) pair holding the
// capacity counters. All counter mutation goes through the service; callers
// never write these fields directly.
type Allocation struct {
	ID                uuid.UUID       `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	SectionID         uuid.UUID       `json:"section_id" gorm:"type:uuid;not null;uniqueIndex:idx_section_variant"`
	VariantID         uuid.UUID       `json:"variant_id" gorm:"type:uuid;not null;uniqueIndex:idx_section_variant"`
	TotalCapacity     int             `json:"total_capacity" gorm:"not null;check:total_capacity >= 0"`
	ReservedCapacity  int             `json:"reserved_capacity" gorm:"default:0;check:reserved_capacity >= 0"`
	ConfirmedCapacity int             `json:"confirmed_capacity" gorm:"default:0;check:confirmed_capacity >= 0"`
	PriceModifier     decimal.Decimal `json:"price_modifier" gorm:"type:numeric(6,3);default:1.0"`
	AdjustmentType    AdjustmentType  `json:"adjustment_type" gorm:"type:varchar(12);default:'none'"`
	AdjustmentValue   decimal.Decimal `json:"adjustment_value" gorm:"type:numeric(12,2);default:0"`
	IsAvailable       bool            `json:"is_available" gorm:"default:true"`
	CreatedAt         time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time       `json:"updated_at" gorm:"autoUpdateTime"`

	Section *Section `json:"section,omitempty" gorm:"foreignKey:SectionID"`
	Variant *Variant `json:"variant,omitempty" gorm:"foreignKey:VariantID"`
}

func (Allocation) TableName() string {
	return "allocations"
}

// AvailableCapacity returns total - reserved - confirmed, clamped to >= 0
func (a *Allocation) AvailableCapacity() int {
	available := a.TotalCapacity - a.ReservedCapacity - a.ConfirmedCapacity
	if available < 0 {
		return 0
	}
	return available
}

// HoldStatus is the lifecycle state of a capacity hold
type HoldStatus string

const (
	HoldStatusReserved  HoldStatus = "reserved"
	HoldStatusConfirmed HoldStatus = "confirmed"
	HoldStatusReleased  HoldStatus = "released"
	HoldStatusExpired   HoldStatus = "expired"
)

// Hold is a temporary, TTL-bounded claim on allocation capacity. It is
// created in the same transaction that increments the reserved counter, so
// the counter ledger stays the single source of truth for availability.
type Hold struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	ScheduleID uuid.UUID  `json:"schedule_id" gorm:"type:uuid;not null;index"`
	SectionID  uuid.UUID  `json:"section_id" gorm:"type:uuid;not null;index"`
	VariantID  uuid.UUID  `json:"variant_id" gorm:"type:uuid;not null"`
	Quantity   int        `json:"quantity" gorm:"not null;check:quantity > 0"`
	Status     HoldStatus `json:"status" gorm:"type:varchar(12);default:'reserved';index:idx_holds_expiry"`
	ExpiresAt  time.Time  `json:"expires_at" gorm:"not null;index:idx_holds_expiry"`
	CreatedAt  time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Hold) TableName() string {
	return "capacity_holds"
}

// IsActive reports whether the hold still pins reserved capacity
func (h *Hold) IsActive() bool {
	return h.Status == HoldStatusReserved
}

// IsExpired reports whether the hold's TTL has elapsed at the given instant
func (h *Hold) IsExpired(now time.Time) bool {
	return h.Status == HoldStatusReserved && h.ExpiresAt.Before(now)
}

func decimalOne() decimal.Decimal {
	return decimal.NewFromInt(1)
}

// SweepReport summarizes one expiration sweep run
type SweepReport struct {
	ReleasedCount     int         `json:"released_count"`
	ReleasedUnits     int         `json:"released_units"`
	SkippedCount      int         `json:"skipped_count"`
	AffectedSchedules []uuid.UUID `json:"affected_schedules"`
	SweptAt           time.Time   `json:"swept_at"`
}
