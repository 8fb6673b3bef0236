package database

import (
	"tourly/internal/capacity"
	"tourly/internal/pricing"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&capacity.Schedule{},
		&capacity.Section{},
		&capacity.Variant{},
		&capacity.Allocation{},
		&capacity.Hold{},
		&pricing.Discount{},
		&pricing.Fee{},
		&pricing.PricingRule{},
		&pricing.AddOn{},
	); err != nil {
		return err
	}
	return MigrateConstraints(db)
}
