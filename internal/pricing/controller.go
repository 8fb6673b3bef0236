package pricing

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tourly/internal/capacity"
	"tourly/internal/shared/utils/response"
)

type Controller interface {
	CalculatePrice(c *gin.Context)
	CalculateBulkPrice(c *gin.Context)
	RedeemDiscount(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

func (ctrl *controller) CalculatePrice(c *gin.Context) {
	scheduleID, err := uuid.Parse(c.Param("scheduleId"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid schedule ID", nil, err.Error())
		return
	}

	var req CalculatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	priceReq, err := req.ToPriceRequest(scheduleID)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid identifier in request", nil, err.Error())
		return
	}

	quote, err := ctrl.service.CalculatePrice(c.Request.Context(), priceReq)
	if err != nil {
		respondPricingError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Price calculated successfully", quote, nil)
}

func (ctrl *controller) CalculateBulkPrice(c *gin.Context) {
	var req CalculateBulkPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	priceReqs := make([]PriceRequest, 0, len(req.Items))
	for _, item := range req.Items {
		scheduleID, err := uuid.Parse(item.ScheduleID)
		if err != nil {
			response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid schedule ID", nil, err.Error())
			return
		}
		priceReq, err := item.Request.ToPriceRequest(scheduleID)
		if err != nil {
			response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid identifier in request", nil, err.Error())
			return
		}
		priceReqs = append(priceReqs, priceReq)
	}

	result, err := ctrl.service.CalculateBulkPrice(c.Request.Context(), priceReqs)
	if err != nil {
		respondPricingError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Bulk prices calculated successfully", result, nil)
}

// RedeemDiscount consumes one use of a code. Exposed for the order layer
// to call when a discounted booking commits.
func (ctrl *controller) RedeemDiscount(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Discount code is required", nil, nil)
		return
	}

	if err := ctrl.service.RedeemDiscount(c.Request.Context(), code); err != nil {
		respondPricingError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Discount redeemed successfully", nil, nil)
}

func respondPricingError(c *gin.Context, err error) {
	var ice *capacity.InsufficientCapacityError
	if errors.As(err, &ice) {
		response.RespondJSON(c, "error", http.StatusConflict, ice.Error(), nil, gin.H{
			"requested": ice.Requested,
			"available": ice.Available,
		})
		return
	}

	switch {
	case errors.Is(err, ErrDiscountNotFound),
		errors.Is(err, capacity.ErrScheduleNotFound),
		errors.Is(err, capacity.ErrSectionNotFound),
		errors.Is(err, capacity.ErrVariantNotFound),
		errors.Is(err, capacity.ErrAllocationNotFound):
		response.RespondJSON(c, "error", http.StatusNotFound, err.Error(), nil, nil)
	case errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrEmptyBulkRequest):
		response.RespondJSON(c, "error", http.StatusBadRequest, err.Error(), nil, nil)
	case errors.Is(err, ErrDiscountInvalid),
		errors.Is(err, ErrInvalidPricing):
		response.RespondJSON(c, "error", http.StatusConflict, err.Error(), nil, nil)
	default:
		response.RespondJSON(c, "error", http.StatusInternalServerError, "Internal server error", nil, nil)
	}
}
