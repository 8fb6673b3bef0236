package capacity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	// Lookups
	GetSchedule(ctx context.Context, id uuid.UUID) (*Schedule, error)
	GetSection(ctx context.Context, id uuid.UUID) (*Section, error)
	GetSectionByName(ctx context.Context, scheduleID uuid.UUID, name string) (*Section, error)
	ListSectionsBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]Section, error)
	GetVariant(ctx context.Context, id uuid.UUID) (*Variant, error)
	GetAllocation(ctx context.Context, sectionID, variantID uuid.UUID) (*Allocation, error)
	CreateAllocation(ctx context.Context, allocation *Allocation) error
	ListAllocationsBySection(ctx context.Context, sectionID uuid.UUID) ([]Allocation, error)
	ScheduleCounters(ctx context.Context, scheduleID uuid.UUID) (total, reserved, confirmed int, err error)

	// Ledger mutations (each runs in its own transaction)
	ReserveWithHold(ctx context.Context, hold *Hold) error
	ReleaseCapacity(ctx context.Context, sectionID, variantID uuid.UUID, quantity int) error
	ConfirmCapacity(ctx context.Context, sectionID, variantID uuid.UUID, quantity int) (fallback bool, err error)
	CancelCapacity(ctx context.Context, sectionID, variantID uuid.UUID, quantity int) error

	// Holds
	GetHold(ctx context.Context, id uuid.UUID) (*Hold, error)
	FinishHold(ctx context.Context, holdID uuid.UUID, target HoldStatus) (*Hold, error)
	ExpireHolds(ctx context.Context, now time.Time, batchSize int) (*SweepReport, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetSchedule(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	var schedule Schedule
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&schedule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	return &schedule, nil
}

func (r *repository) GetSection(ctx context.Context, id uuid.UUID) (*Section, error) {
	var section Section
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&section).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSectionNotFound
		}
		return nil, err
	}
	return &section, nil
}

func (r *repository) GetSectionByName(ctx context.Context, scheduleID uuid.UUID, name string) (*Section, error) {
	var section Section
	err := r.db.WithContext(ctx).
		Where("schedule_id = ? AND name = ?", scheduleID, name).
		First(&section).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSectionNotFound
		}
		return nil, err
	}
	return &section, nil
}

func (r *repository) ListSectionsBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]Section, error) {
	var sections []Section
	err := r.db.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Order("name ASC").
		Find(&sections).Error
	if err != nil {
		return nil, err
	}
	return sections, nil
}

func (r *repository) GetVariant(ctx context.Context, id uuid.UUID) (*Variant, error) {
	var variant Variant
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVariantNotFound
		}
		return nil, err
	}
	return &variant, nil
}

func (r *repository) GetAllocation(ctx context.Context, sectionID, variantID uuid.UUID) (*Allocation, error) {
	var allocation Allocation
	err := r.db.WithContext(ctx).
		Where("section_id = ? AND variant_id = ?", sectionID, variantID).
		First(&allocation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAllocationNotFound
		}
		return nil, err
	}
	return &allocation, nil
}

func (r *repository) CreateAllocation(ctx context.Context, allocation *Allocation) error {
	return r.db.WithContext(ctx).Create(allocation).Error
}

func (r *repository) ListAllocationsBySection(ctx context.Context, sectionID uuid.UUID) ([]Allocation, error) {
	var allocations []Allocation
	err := r.db.WithContext(ctx).
		Where("section_id = ?", sectionID).
		Order("created_at ASC").
		Find(&allocations).Error
	return allocations, err
}

func (r *repository) ScheduleCounters(ctx context.Context, scheduleID uuid.UUID) (int, int, int, error) {
	var row struct {
		Total     int
		Reserved  int
		Confirmed int
	}
	err := r.db.WithContext(ctx).
		Table("allocations").
		Select("COALESCE(SUM(total_capacity), 0) AS total, COALESCE(SUM(reserved_capacity), 0) AS reserved, COALESCE(SUM(confirmed_capacity), 0) AS confirmed").
		Joins("JOIN sections ON sections.id = allocations.section_id").
		Where("sections.schedule_id = ?", scheduleID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, 0, err
	}
	return row.Total, row.Reserved, row.Confirmed, nil
}

// ReserveWithHold increments the reserved counter with a guarded conditional
// UPDATE and creates the hold row in the same transaction. The guard
// (available >= quantity) makes concurrent over-reservation impossible: two
// racing reserves serialize on the row and the second sees the decremented
// availability.
func (r *repository) ReserveWithHold(ctx context.Context, hold *Hold) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Allocation{}).
			Where("section_id = ? AND variant_id = ?", hold.SectionID, hold.VariantID).
			Where("is_available = ?", true).
			Where("total_capacity - reserved_capacity - confirmed_capacity >= ?", hold.Quantity).
			Update("reserved_capacity", gorm.Expr("reserved_capacity + ?", hold.Quantity))
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			// Distinguish why the guarded update missed
			var allocation Allocation
			err := tx.Where("section_id = ? AND variant_id = ?", hold.SectionID, hold.VariantID).
				First(&allocation).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAllocationNotFound
			}
			if err != nil {
				return err
			}
			if !allocation.IsAvailable {
				return ErrNotAvailable
			}
			return &InsufficientCapacityError{
				Requested: hold.Quantity,
				Available: allocation.AvailableCapacity(),
			}
		}

		if err := tx.Create(hold).Error; err != nil {
			return fmt.Errorf("failed to create hold: %w", err)
		}
		return nil
	})
}

func (r *repository) ReleaseCapacity(ctx context.Context, sectionID, variantID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Allocation{}).
			Where("section_id = ? AND variant_id = ?", sectionID, variantID).
			Where("reserved_capacity >= ?", quantity).
			Update("reserved_capacity", gorm.Expr("reserved_capacity - ?", quantity))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var allocation Allocation
			err := tx.Where("section_id = ? AND variant_id = ?", sectionID, variantID).
				First(&allocation).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAllocationNotFound
			}
			if err != nil {
				return err
			}
			return ErrInvalidRelease
		}
		return nil
	})
}

// ConfirmCapacity moves quantity from reserved to confirmed under a row
// lock. When reserved holds less than quantity (an order paid without a
// prior explicit reserve) the shortfall is added directly to confirmed,
// capacity permitting. The fallback flag lets the service instrument how
// often that path actually fires.
func (r *repository) ConfirmCapacity(ctx context.Context, sectionID, variantID uuid.UUID, quantity int) (bool, error) {
	var fallback bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var allocation Allocation
		if err := tx.Set("gorm:query_option", "FOR UPDATE").
			Where("section_id = ? AND variant_id = ?", sectionID, variantID).
			First(&allocation).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAllocationNotFound
			}
			return err
		}

		moved := quantity
		if moved > allocation.ReservedCapacity {
			moved = allocation.ReservedCapacity
			fallback = true
		}

		newReserved := allocation.ReservedCapacity - moved
		newConfirmed := allocation.ConfirmedCapacity + quantity
		if newReserved+newConfirmed > allocation.TotalCapacity {
			return ErrInvalidConfirm
		}

		return tx.Model(&allocation).Updates(map[string]interface{}{
			"reserved_capacity":  newReserved,
			"confirmed_capacity": newConfirmed,
		}).Error
	})
	return fallback, err
}

func (r *repository) CancelCapacity(ctx context.Context, sectionID, variantID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var allocation Allocation
		if err := tx.Set("gorm:query_option", "FOR UPDATE").
			Where("section_id = ? AND variant_id = ?", sectionID, variantID).
			First(&allocation).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAllocationNotFound
			}
			return err
		}

		newConfirmed := allocation.ConfirmedCapacity - quantity
		if newConfirmed < 0 {
			newConfirmed = 0
		}

		return tx.Model(&allocation).Update("confirmed_capacity", newConfirmed).Error
	})
}

func (r *repository) GetHold(ctx context.Context, id uuid.UUID) (*Hold, error) {
	var hold Hold
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&hold).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHoldNotFound
		}
		return nil, err
	}
	return &hold, nil
}

// FinishHold transitions a hold to released or confirmed and applies the
// matching counter movement. Finishing a hold that already reached the
// target state is a no-op, so retries from the order layer stay safe.
func (r *repository) FinishHold(ctx context.Context, holdID uuid.UUID, target HoldStatus) (*Hold, error) {
	var hold Hold
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Set("gorm:query_option", "FOR UPDATE").
			Where("id = ?", holdID).
			First(&hold).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrHoldNotFound
			}
			return err
		}

		if hold.Status == target {
			return nil
		}
		if hold.Status != HoldStatusReserved {
			return ErrHoldNotActive
		}

		var allocation Allocation
		if err := tx.Set("gorm:query_option", "FOR UPDATE").
			Where("section_id = ? AND variant_id = ?", hold.SectionID, hold.VariantID).
			First(&allocation).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAllocationNotFound
			}
			return err
		}

		moved := hold.Quantity
		if moved > allocation.ReservedCapacity {
			moved = allocation.ReservedCapacity
		}

		updates := map[string]interface{}{
			"reserved_capacity": allocation.ReservedCapacity - moved,
		}
		if target == HoldStatusConfirmed {
			newConfirmed := allocation.ConfirmedCapacity + hold.Quantity
			if allocation.ReservedCapacity-moved+newConfirmed > allocation.TotalCapacity {
				return ErrInvalidConfirm
			}
			updates["confirmed_capacity"] = newConfirmed
		}

		if err := tx.Model(&allocation).Updates(updates).Error; err != nil {
			return err
		}

		hold.Status = target
		return tx.Model(&hold).Update("status", target).Error
	})
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

// ExpireHolds releases every reserved hold whose TTL elapsed before now.
// Holds are processed in per-schedule transactions to bound lock scope;
// a crash mid-sweep leaves earlier schedules released and later ones for
// the next run.
func (r *repository) ExpireHolds(ctx context.Context, now time.Time, batchSize int) (*SweepReport, error) {
	var expired []Hold
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", HoldStatusReserved, now).
		Order("schedule_id ASC, expires_at ASC").
		Limit(batchSize).
		Find(&expired).Error
	if err != nil {
		return nil, err
	}

	report := &SweepReport{SweptAt: now}
	if len(expired) == 0 {
		return report, nil
	}

	bySchedule := make(map[uuid.UUID][]Hold)
	for _, hold := range expired {
		bySchedule[hold.ScheduleID] = append(bySchedule[hold.ScheduleID], hold)
	}

	for scheduleID, holds := range bySchedule {
		released := 0
		releasedUnits := 0
		skipped := 0
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, hold := range holds {
				// Re-check under lock: the hold may have been confirmed
				// or released since the scan.
				var current Hold
				if err := tx.Set("gorm:query_option", "FOR UPDATE").
					Where("id = ? AND status = ?", hold.ID, HoldStatusReserved).
					First(&current).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						continue
					}
					return err
				}

				result := tx.Model(&Allocation{}).
					Where("section_id = ? AND variant_id = ?", current.SectionID, current.VariantID).
					Where("reserved_capacity >= ?", current.Quantity).
					Update("reserved_capacity", gorm.Expr("reserved_capacity - ?", current.Quantity))
				if result.Error != nil {
					return result.Error
				}
				if result.RowsAffected == 0 {
					// The reserved counter no longer covers this hold's
					// quantity. Leave the hold alone so the anomaly stays
					// visible instead of silently inflating the ledger.
					skipped++
					continue
				}

				if err := tx.Model(&current).Update("status", HoldStatusExpired).Error; err != nil {
					return err
				}
				released++
				releasedUnits += current.Quantity
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to expire holds for schedule %s: %w", scheduleID, err)
		}
		report.SkippedCount += skipped
		if released > 0 {
			report.ReleasedCount += released
			report.ReleasedUnits += releasedUnits
			report.AffectedSchedules = append(report.AffectedSchedules, scheduleID)
		}
	}

	return report, nil
}
