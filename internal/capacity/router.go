package capacity

import (
	"tourly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupCapacityRoutes(rg *gin.RouterGroup, controller Controller) {

	// SCHEDULE BOOKING FLOW

	schedules := rg.Group("/schedules")
	{
		schedules.GET("/:scheduleId/availability", controller.GetAvailability) // GET /api/v1/schedules/:scheduleId/availability

		// Core hold lifecycle (order/cart subsystem calls these)
		schedules.POST("/:scheduleId/hold", controller.HoldCapacity)       // POST /api/v1/schedules/:scheduleId/hold
		schedules.POST("/:scheduleId/release", controller.ReleaseCapacity) // POST /api/v1/schedules/:scheduleId/release
		schedules.POST("/:scheduleId/confirm", controller.ConfirmCapacity) // POST /api/v1/schedules/:scheduleId/confirm
		schedules.POST("/:scheduleId/cancel", controller.CancelCapacity)   // POST /api/v1/schedules/:scheduleId/cancel
	}

	// ADMIN CAPACITY OPERATIONS

	admin := rg.Group("/admin")
	admin.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		admin.POST("/capacity/sweep", controller.TriggerSweep)                // POST /api/v1/admin/capacity/sweep
		admin.GET("/sections/:sectionId/validate", controller.ValidateSection) // GET /api/v1/admin/sections/:sectionId/validate
	}
}
