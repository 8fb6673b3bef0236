package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds critical database constraints for concurrency control
func MigrateConstraints(db *gorm.DB) error {
	// One allocation row per (section, variant) pair; the conditional
	// reserve UPDATE depends on this being unique
	err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_allocations_section_variant
		ON allocations (section_id, variant_id);
	`).Error
	if err != nil {
		return err
	}

	// The ledger conservation rule enforced at the storage layer:
	// committed units can never exceed total capacity
	err = db.Exec(`
		ALTER TABLE allocations
		DROP CONSTRAINT IF EXISTS chk_allocations_capacity_conserved;
	`).Error
	if err != nil {
		return err
	}
	err = db.Exec(`
		ALTER TABLE allocations
		ADD CONSTRAINT chk_allocations_capacity_conserved
		CHECK (reserved_capacity >= 0 AND confirmed_capacity >= 0
		       AND reserved_capacity + confirmed_capacity <= total_capacity);
	`).Error
	if err != nil {
		return err
	}

	// Price modifiers are bounded multipliers: strictly positive, at most 10x
	err = db.Exec(`
		ALTER TABLE allocations
		DROP CONSTRAINT IF EXISTS chk_allocations_price_modifier;
	`).Error
	if err != nil {
		return err
	}
	err = db.Exec(`
		ALTER TABLE allocations
		ADD CONSTRAINT chk_allocations_price_modifier
		CHECK (price_modifier > 0 AND price_modifier <= 10);
	`).Error
	if err != nil {
		return err
	}

	// Sweep scans only active holds past their expiry
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_capacity_holds_active_expiry
		ON capacity_holds (expires_at)
		WHERE status = 'reserved';
	`).Error
	if err != nil {
		return err
	}

	// Discount code lookups and the guarded usage increment
	err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_discounts_code
		ON discounts (code);
	`).Error
	if err != nil {
		return err
	}

	return nil
}
