package pricing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	GetDiscountByCode(ctx context.Context, code string) (*Discount, error)
	IncrementDiscountUsage(ctx context.Context, code string) error
	ListActiveFees(ctx context.Context) ([]Fee, error)
	ListActiveRules(ctx context.Context) ([]PricingRule, error)
	GetAddOns(ctx context.Context, scheduleID uuid.UUID, ids []uuid.UUID) ([]AddOn, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetDiscountByCode(ctx context.Context, code string) (*Discount, error) {
	var discount Discount
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&discount).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDiscountNotFound
		}
		return nil, err
	}
	return &discount, nil
}

// IncrementDiscountUsage bumps current_uses under the usage-cap guard so
// two concurrent redemptions cannot push a capped code past its limit.
func (r *repository) IncrementDiscountUsage(ctx context.Context, code string) error {
	result := r.db.WithContext(ctx).Model(&Discount{}).
		Where("code = ? AND is_active = ?", code, true).
		Where("max_uses IS NULL OR current_uses < max_uses").
		Update("current_uses", gorm.Expr("current_uses + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var discount Discount
		err := r.db.WithContext(ctx).Where("code = ?", code).First(&discount).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDiscountNotFound
		}
		if err != nil {
			return err
		}
		return ErrDiscountInvalid
	}
	return nil
}

func (r *repository) ListActiveFees(ctx context.Context) ([]Fee, error) {
	var fees []Fee
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&fees).Error
	return fees, err
}

func (r *repository) ListActiveRules(ctx context.Context) ([]PricingRule, error) {
	var rules []PricingRule
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&rules).Error
	return rules, err
}

func (r *repository) GetAddOns(ctx context.Context, scheduleID uuid.UUID, ids []uuid.UUID) ([]AddOn, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var addOns []AddOn
	err := r.db.WithContext(ctx).
		Where("schedule_id = ? AND id IN ? AND is_active = ?", scheduleID, ids, true).
		Find(&addOns).Error
	return addOns, err
}
