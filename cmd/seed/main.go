package main

import (
	"fmt"
	"log"
	"time"

	"tourly/internal/capacity"
	"tourly/internal/pricing"
	"tourly/internal/shared/config"
	"tourly/internal/shared/database"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Seeder struct {
	db *database.DB
}

func main() {
	fmt.Println("🌱 Starting Tourly Database Seeder...")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	// Clean database
	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	// Seed data
	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables in the correct order (respecting foreign key constraints)
func (s *Seeder) CleanDatabase() error {
	// Delete in reverse dependency order
	tables := []string{
		"capacity_holds",
		"allocations",
		"add_ons",
		"pricing_rules",
		"fees",
		"discounts",
		"variants",
		"sections",
		"schedules",
	}

	for _, table := range tables {
		if err := s.db.GetPostgreSQL().Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			return fmt.Errorf("failed to clean table %s: %w", table, err)
		}
	}
	return nil
}

// SeedAll seeds schedules, sections, variants, allocations and pricing data
func (s *Seeder) SeedAll() error {
	schedules, sections, variants, err := s.seedCapacity()
	if err != nil {
		return err
	}
	fmt.Printf("  📅 Seeded %d schedules, %d sections, %d variants\n",
		len(schedules), len(sections), len(variants))

	if err := s.seedPricing(schedules); err != nil {
		return err
	}
	fmt.Println("  💰 Seeded discounts, fees, pricing rules and add-ons")

	return nil
}

func (s *Seeder) seedCapacity() ([]capacity.Schedule, []capacity.Section, []capacity.Variant, error) {
	db := s.db.GetPostgreSQL()
	now := time.Now().UTC()

	schedules := []capacity.Schedule{
		{
			ID:          uuid.New(),
			ProductID:   uuid.New(),
			ProductType: capacity.ProductTypeTour,
			Name:        "Sunset Harbor Cruise",
			StartsAt:    now.Add(72 * time.Hour),
			EndsAt:      now.Add(75 * time.Hour),
			IsAvailable: true,
		},
		{
			ID:          uuid.New(),
			ProductID:   uuid.New(),
			ProductType: capacity.ProductTypeTour,
			Name:        "Old Town Walking Tour",
			StartsAt:    now.Add(24 * time.Hour),
			EndsAt:      now.Add(27 * time.Hour),
			IsAvailable: true,
		},
		{
			ID:          uuid.New(),
			ProductID:   uuid.New(),
			ProductType: capacity.ProductTypeEvent,
			Name:        "Harbor Lights Festival",
			StartsAt:    now.Add(30 * 24 * time.Hour),
			EndsAt:      now.Add(30*24*time.Hour + 6*time.Hour),
			IsAvailable: true,
		},
	}
	if err := db.Create(&schedules).Error; err != nil {
		return nil, nil, nil, fmt.Errorf("failed to seed schedules: %w", err)
	}

	variantSpecs := []struct {
		name     string
		code     string
		nominal  int
		modifier decimal.Decimal
	}{
		{"Adult", "adult", 40, decimal.NewFromInt(1)},
		{"Child", "child", 20, decimal.NewFromFloat(0.5)},
		{"Senior", "senior", 15, decimal.NewFromFloat(0.8)},
	}

	sectionSpecs := []struct {
		name      string
		basePrice decimal.Decimal
		premium   bool
		total     int
	}{
		{"standard", decimal.NewFromInt(100), false, 60},
		{"premium", decimal.NewFromInt(180), true, 24},
	}

	var variants []capacity.Variant
	var sections []capacity.Section
	var allocations []capacity.Allocation

	for _, schedule := range schedules {
		scheduleVariants := make([]capacity.Variant, 0, len(variantSpecs))
		for _, spec := range variantSpecs {
			variant := capacity.Variant{
				ID:              uuid.New(),
				ScheduleID:      schedule.ID,
				Name:            spec.name,
				Code:            spec.code,
				NominalCapacity: spec.nominal,
				IsActive:        true,
			}
			scheduleVariants = append(scheduleVariants, variant)
			variants = append(variants, variant)
		}

		for _, spec := range sectionSpecs {
			section := capacity.Section{
				ID:            uuid.New(),
				ScheduleID:    schedule.ID,
				Name:          spec.name,
				BasePrice:     spec.basePrice,
				IsPremium:     spec.premium,
				TotalCapacity: spec.total,
				IsAvailable:   true,
			}
			sections = append(sections, section)

			perVariant := spec.total / len(scheduleVariants)
			for i, variant := range scheduleVariants {
				total := perVariant
				if i == 0 {
					total = spec.total - perVariant*(len(scheduleVariants)-1)
				}
				allocations = append(allocations, capacity.Allocation{
					ID:            uuid.New(),
					SectionID:     section.ID,
					VariantID:     variant.ID,
					TotalCapacity: total,
					PriceModifier: variantSpecs[i].modifier,
					IsAvailable:   true,
				})
			}
		}
	}

	if err := db.Create(&variants).Error; err != nil {
		return nil, nil, nil, fmt.Errorf("failed to seed variants: %w", err)
	}
	if err := db.Create(&sections).Error; err != nil {
		return nil, nil, nil, fmt.Errorf("failed to seed sections: %w", err)
	}
	if err := db.Create(&allocations).Error; err != nil {
		return nil, nil, nil, fmt.Errorf("failed to seed allocations: %w", err)
	}

	return schedules, sections, variants, nil
}

func (s *Seeder) seedPricing(schedules []capacity.Schedule) error {
	db := s.db.GetPostgreSQL()
	now := time.Now().UTC()
	maxDiscount := decimal.NewFromInt(50)
	maxUses := 100

	discounts := []pricing.Discount{
		{
			ID:           uuid.New(),
			Code:         "SUMMER20",
			DiscountType: pricing.DiscountPercentage,
			Value:        decimal.NewFromInt(20),
			MinAmount:    decimal.NewFromInt(100),
			MaxDiscount:  &maxDiscount,
			MaxUses:      &maxUses,
			IsActive:     true,
			ValidFrom:    now.Add(-24 * time.Hour),
			ValidUntil:   now.Add(60 * 24 * time.Hour),
		},
		{
			ID:           uuid.New(),
			Code:         "WELCOME10",
			DiscountType: pricing.DiscountFixed,
			Value:        decimal.NewFromInt(10),
			MinAmount:    decimal.NewFromInt(50),
			IsActive:     true,
			ValidFrom:    now.Add(-24 * time.Hour),
			ValidUntil:   now.Add(365 * 24 * time.Hour),
		},
	}
	if err := db.Create(&discounts).Error; err != nil {
		return fmt.Errorf("failed to seed discounts: %w", err)
	}

	maxServiceFee := decimal.NewFromInt(25)
	fees := []pricing.Fee{
		{
			ID:              uuid.New(),
			Name:            "Service Fee",
			CalculationType: pricing.FeePercentage,
			Value:           decimal.NewFromInt(5),
			MaxFee:          &maxServiceFee,
			IsActive:        true,
		},
		{
			ID:              uuid.New(),
			Name:            "Booking Fee",
			CalculationType: pricing.FeePerBooking,
			Value:           decimal.NewFromFloat(2.50),
			IsActive:        true,
		},
	}
	if err := db.Create(&fees).Error; err != nil {
		return fmt.Errorf("failed to seed fees: %w", err)
	}

	rules := []pricing.PricingRule{
		{
			ID:              uuid.New(),
			Name:            "Early Bird",
			RuleType:        pricing.RuleEarlyBird,
			ThresholdDays:   21,
			AdjustmentType:  pricing.RuleAdjustPercentage,
			AdjustmentValue: decimal.NewFromInt(-10),
			IsActive:        true,
			ValidFrom:       now.Add(-24 * time.Hour),
			ValidUntil:      now.Add(365 * 24 * time.Hour),
		},
		{
			ID:              uuid.New(),
			Name:            "Last Minute",
			RuleType:        pricing.RuleLastMinute,
			ThresholdDays:   2,
			AdjustmentType:  pricing.RuleAdjustPercentage,
			AdjustmentValue: decimal.NewFromInt(15),
			IsActive:        true,
			ValidFrom:       now.Add(-24 * time.Hour),
			ValidUntil:      now.Add(365 * 24 * time.Hour),
		},
	}
	if err := db.Create(&rules).Error; err != nil {
		return fmt.Errorf("failed to seed pricing rules: %w", err)
	}

	var addOns []pricing.AddOn
	for _, schedule := range schedules {
		addOns = append(addOns,
			pricing.AddOn{
				ID:          uuid.New(),
				ScheduleID:  schedule.ID,
				Name:        "Lunch Box",
				Price:       decimal.NewFromFloat(12.50),
				MaxQuantity: 10,
				IsActive:    true,
			},
			pricing.AddOn{
				ID:          uuid.New(),
				ScheduleID:  schedule.ID,
				Name:        "Photo Package",
				Price:       decimal.NewFromInt(25),
				MaxQuantity: 1,
				IsActive:    true,
			},
		)
	}
	if err := db.Create(&addOns).Error; err != nil {
		return fmt.Errorf("failed to seed add-ons: %w", err)
	}

	return nil
}
