package pricing

import (
	"tourly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupPricingRoutes(rg *gin.RouterGroup, controller Controller) {

	// QUOTE COMPUTATION

	schedules := rg.Group("/schedules")
	{
		schedules.POST("/:scheduleId/calculate-pricing", controller.CalculatePrice) // POST /api/v1/schedules/:scheduleId/calculate-pricing
	}

	pricing := rg.Group("/pricing")
	{
		pricing.POST("/bulk", controller.CalculateBulkPrice) // POST /api/v1/pricing/bulk
	}

	// ADMIN DISCOUNT OPERATIONS

	admin := rg.Group("/admin")
	admin.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		admin.POST("/discounts/:code/redeem", controller.RedeemDiscount) // POST /api/v1/admin/discounts/:code/redeem
	}
}
