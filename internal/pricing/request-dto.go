package pricing

import "github.com/google/uuid"

type AddOnSelectionRequest struct {
	AddOnID  string `json:"add_on_id" binding:"required,uuid"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

type CalculatePriceRequest struct {
	SectionName    string                  `json:"section_name" binding:"required"`
	VariantID      string                  `json:"variant_id" binding:"required,uuid"`
	Quantity       int                     `json:"quantity" binding:"required,min=1,max=50"`
	AddOns         []AddOnSelectionRequest `json:"add_ons" binding:"omitempty,dive"`
	DiscountCode   string                  `json:"discount_code" binding:"omitempty,max=50"`
	IsGroupBooking bool                    `json:"is_group_booking"`
	ApplyFees      *bool                   `json:"apply_fees"`
	ApplyTaxes     *bool                   `json:"apply_taxes"`
}

// ToPriceRequest converts the wire request into the service input.
// Fees and taxes default to applied when the caller omits the flags.
func (r *CalculatePriceRequest) ToPriceRequest(scheduleID uuid.UUID) (PriceRequest, error) {
	variantID, err := uuid.Parse(r.VariantID)
	if err != nil {
		return PriceRequest{}, err
	}

	addOns := make([]AddOnSelection, 0, len(r.AddOns))
	for _, selection := range r.AddOns {
		addOnID, err := uuid.Parse(selection.AddOnID)
		if err != nil {
			return PriceRequest{}, err
		}
		addOns = append(addOns, AddOnSelection{AddOnID: addOnID, Quantity: selection.Quantity})
	}

	applyFees := true
	if r.ApplyFees != nil {
		applyFees = *r.ApplyFees
	}
	applyTaxes := true
	if r.ApplyTaxes != nil {
		applyTaxes = *r.ApplyTaxes
	}

	return PriceRequest{
		ScheduleID:     scheduleID,
		SectionName:    r.SectionName,
		VariantID:      variantID,
		Quantity:       r.Quantity,
		AddOns:         addOns,
		DiscountCode:   r.DiscountCode,
		IsGroupBooking: r.IsGroupBooking,
		ApplyFees:      applyFees,
		ApplyTaxes:     applyTaxes,
	}, nil
}

type BulkQuoteItemRequest struct {
	ScheduleID string                `json:"schedule_id" binding:"required,uuid"`
	Request    CalculatePriceRequest `json:"request" binding:"required"`
}

type CalculateBulkPriceRequest struct {
	Items []BulkQuoteItemRequest `json:"items" binding:"required,dive"`
}
