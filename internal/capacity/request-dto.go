package capacity

type HoldRequest struct {
	SectionID string `json:"section_id" binding:"required,uuid"`
	VariantID string `json:"variant_id" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,min=1,max=50"`
}

// ReleaseRequest releases either a whole hold by ID or a raw quantity
// against an allocation.
type ReleaseRequest struct {
	HoldID    string `json:"hold_id" binding:"omitempty,uuid"`
	SectionID string `json:"section_id" binding:"omitempty,uuid"`
	VariantID string `json:"variant_id" binding:"omitempty,uuid"`
	Quantity  int    `json:"quantity" binding:"omitempty,min=1"`
}

type ConfirmRequest struct {
	HoldID    string `json:"hold_id" binding:"omitempty,uuid"`
	SectionID string `json:"section_id" binding:"omitempty,uuid"`
	VariantID string `json:"variant_id" binding:"omitempty,uuid"`
	Quantity  int    `json:"quantity" binding:"omitempty,min=1"`
}

type CancelRequest struct {
	SectionID string `json:"section_id" binding:"required,uuid"`
	VariantID string `json:"variant_id" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}
