package capacity

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tourly/internal/shared/utils/response"
)

type Controller interface {
	GetAvailability(c *gin.Context)
	HoldCapacity(c *gin.Context)
	ReleaseCapacity(c *gin.Context)
	ConfirmCapacity(c *gin.Context)
	CancelCapacity(c *gin.Context)
	ValidateSection(c *gin.Context)
	TriggerSweep(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

func (ctrl *controller) GetAvailability(c *gin.Context) {
	scheduleID, err := uuid.Parse(c.Param("scheduleId"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid schedule ID", nil, err.Error())
		return
	}

	summary, err := ctrl.service.GetScheduleAvailability(c.Request.Context(), scheduleID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Availability retrieved successfully", summary, nil)
}

func (ctrl *controller) HoldCapacity(c *gin.Context) {
	var req HoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	sectionID, err := uuid.Parse(req.SectionID)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid section ID", nil, nil)
		return
	}
	variantID, err := uuid.Parse(req.VariantID)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid variant ID", nil, nil)
		return
	}
	if !ctrl.sectionInSchedule(c, sectionID) {
		return
	}

	hold, err := ctrl.service.Reserve(c.Request.Context(), sectionID, variantID, req.Quantity)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusCreated, "Capacity held successfully", hold.ToResponse(), nil)
}

func (ctrl *controller) ReleaseCapacity(c *gin.Context) {
	var req ReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	if req.HoldID != "" {
		holdID, err := uuid.Parse(req.HoldID)
		if err != nil {
			response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid hold ID", nil, nil)
			return
		}
		if err := ctrl.service.ReleaseHold(c.Request.Context(), holdID); err != nil {
			respondDomainError(c, err)
			return
		}
		response.RespondJSON(c, "success", http.StatusOK, "Hold released successfully", nil, nil)
		return
	}

	sectionID, variantID, ok := parsePairIDs(c, req.SectionID, req.VariantID)
	if !ok || !ctrl.sectionInSchedule(c, sectionID) {
		return
	}
	if err := ctrl.service.Release(c.Request.Context(), sectionID, variantID, req.Quantity); err != nil {
		respondDomainError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Capacity released successfully", nil, nil)
}

func (ctrl *controller) ConfirmCapacity(c *gin.Context) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	if req.HoldID != "" {
		holdID, err := uuid.Parse(req.HoldID)
		if err != nil {
			response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid hold ID", nil, nil)
			return
		}
		if err := ctrl.service.ConfirmHold(c.Request.Context(), holdID); err != nil {
			respondDomainError(c, err)
			return
		}
		response.RespondJSON(c, "success", http.StatusOK, "Hold confirmed successfully", nil, nil)
		return
	}

	sectionID, variantID, ok := parsePairIDs(c, req.SectionID, req.VariantID)
	if !ok || !ctrl.sectionInSchedule(c, sectionID) {
		return
	}
	if err := ctrl.service.Confirm(c.Request.Context(), sectionID, variantID, req.Quantity); err != nil {
		respondDomainError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Capacity confirmed successfully", nil, nil)
}

func (ctrl *controller) CancelCapacity(c *gin.Context) {
	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	sectionID, variantID, ok := parsePairIDs(c, req.SectionID, req.VariantID)
	if !ok || !ctrl.sectionInSchedule(c, sectionID) {
		return
	}
	if err := ctrl.service.Cancel(c.Request.Context(), sectionID, variantID, req.Quantity); err != nil {
		respondDomainError(c, err)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Capacity cancelled successfully", nil, nil)
}

func (ctrl *controller) ValidateSection(c *gin.Context) {
	sectionID, err := uuid.Parse(c.Param("sectionId"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid section ID", nil, err.Error())
		return
	}

	if err := ctrl.service.ValidateHierarchy(c.Request.Context(), sectionID); err != nil {
		var hve *HierarchyValidationError
		if errors.As(err, &hve) {
			response.RespondJSON(c, "error", http.StatusConflict, "Section capacity mismatch", nil, gin.H{
				"section_id":      hve.SectionID,
				"section_total":   hve.SectionTotal,
				"allocated_total": hve.AllocatedTotal,
			})
			return
		}
		respondDomainError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Section hierarchy is consistent", nil, nil)
}

func (ctrl *controller) TriggerSweep(c *gin.Context) {
	report, err := ctrl.service.SweepExpired(c.Request.Context(), time.Now().UTC())
	if err != nil {
		response.RespondJSON(c, "error", http.StatusInternalServerError, "Sweep failed", nil, err.Error())
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Sweep completed", report.ToResponse(), nil)
}

// sectionInSchedule rejects requests whose section does not belong to the
// schedule in the URL; without this check a hold for one schedule could be
// created under another schedule's path.
func (ctrl *controller) sectionInSchedule(c *gin.Context, sectionID uuid.UUID) bool {
	scheduleID, err := uuid.Parse(c.Param("scheduleId"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid schedule ID", nil, err.Error())
		return false
	}

	section, err := ctrl.service.GetSection(c.Request.Context(), sectionID)
	if err != nil {
		respondDomainError(c, err)
		return false
	}
	if section.ScheduleID != scheduleID {
		respondDomainError(c, ErrSectionNotFound)
		return false
	}
	return true
}

func parsePairIDs(c *gin.Context, sectionIDStr, variantIDStr string) (uuid.UUID, uuid.UUID, bool) {
	sectionID, err := uuid.Parse(sectionIDStr)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid section ID", nil, nil)
		return uuid.Nil, uuid.Nil, false
	}
	variantID, err := uuid.Parse(variantIDStr)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid variant ID", nil, nil)
		return uuid.Nil, uuid.Nil, false
	}
	return sectionID, variantID, true
}

// respondDomainError maps capacity domain errors to HTTP status codes.
// Unexpected errors are reported generically; domain errors pass through
// verbatim because they drive user-facing messages.
func respondDomainError(c *gin.Context, err error) {
	var ice *InsufficientCapacityError
	if errors.As(err, &ice) {
		response.RespondJSON(c, "error", http.StatusConflict, ice.Error(), nil, gin.H{
			"requested": ice.Requested,
			"available": ice.Available,
		})
		return
	}

	switch {
	case errors.Is(err, ErrScheduleNotFound),
		errors.Is(err, ErrSectionNotFound),
		errors.Is(err, ErrVariantNotFound),
		errors.Is(err, ErrAllocationNotFound),
		errors.Is(err, ErrHoldNotFound):
		response.RespondJSON(c, "error", http.StatusNotFound, err.Error(), nil, nil)
	case errors.Is(err, ErrInvalidQuantity):
		response.RespondJSON(c, "error", http.StatusBadRequest, err.Error(), nil, nil)
	case errors.Is(err, ErrNotAvailable),
		errors.Is(err, ErrInvalidRelease),
		errors.Is(err, ErrInvalidConfirm),
		errors.Is(err, ErrHoldNotActive):
		response.RespondJSON(c, "error", http.StatusConflict, err.Error(), nil, nil)
	default:
		response.RespondJSON(c, "error", http.StatusInternalServerError, "Internal server error", nil, nil)
	}
}
