package capacity

import "time"

type HoldResponse struct {
	HoldID     string    `json:"hold_id"`
	ScheduleID string    `json:"schedule_id"`
	SectionID  string    `json:"section_id"`
	VariantID  string    `json:"variant_id"`
	Quantity   int       `json:"quantity"`
	Status     string    `json:"status"`
	ExpiresAt  time.Time `json:"expires_at"`
	TTLSeconds int       `json:"ttl_seconds"`
}

func (h *Hold) ToResponse() HoldResponse {
	ttl := int(time.Until(h.ExpiresAt).Seconds())
	if ttl < 0 {
		ttl = 0
	}
	return HoldResponse{
		HoldID:     h.ID.String(),
		ScheduleID: h.ScheduleID.String(),
		SectionID:  h.SectionID.String(),
		VariantID:  h.VariantID.String(),
		Quantity:   h.Quantity,
		Status:     string(h.Status),
		ExpiresAt:  h.ExpiresAt,
		TTLSeconds: ttl,
	}
}

type SweepResponse struct {
	ReleasedCount     int      `json:"released_count"`
	ReleasedUnits     int      `json:"released_units"`
	SkippedCount      int      `json:"skipped_count"`
	AffectedSchedules []string `json:"affected_schedules"`
	SweptAt           string   `json:"swept_at"`
}

func (r *SweepReport) ToResponse() SweepResponse {
	schedules := make([]string, 0, len(r.AffectedSchedules))
	for _, id := range r.AffectedSchedules {
		schedules = append(schedules, id.String())
	}
	return SweepResponse{
		ReleasedCount:     r.ReleasedCount,
		ReleasedUnits:     r.ReleasedUnits,
		SkippedCount:      r.SkippedCount,
		AffectedSchedules: schedules,
		SweptAt:           r.SweptAt.Format(time.RFC3339),
	}
}
