package routes

import (
	"PinguinGuard/controllers"

	"github.com/gin-gonic/gin"
)

type Controllers struct {
	ParentalControl *controllers.ParentalControlController
	WebSocket       *controllers.WebSocketController
	Health          *controllers.HealthController
}

func RegisterRoutes(r *gin.Engine, auth gin.HandlerFunc, ctrl Controllers) {
	// Public routes
	r.GET("/health", ctrl.Health.Health)

	pc := ctrl.ParentalControl
	parental := r.Group("/parental-control")
	parental.Use(auth)
	{
		parental.GET("/child/:childId", pc.GetChildPolicy)
		parental.PATCH("/child/:childId/block", pc.SetBlock)
		parental.PATCH("/child/:childId/time-slots", pc.SetTimeSlots)
		parental.PATCH("/child/:childId/screen-time-limit", pc.SetScreenTimeLimit)

		parental.GET("/unblock-requests", pc.ListUnblockRequests)
		parental.POST("/unblock-requests", pc.CreateUnblockRequest)
		parental.PATCH("/unblock-requests/:id", pc.RespondToUnblockRequest)

		parental.GET("/screen-time/today", pc.TodayScreenTime)
		parental.GET("/screen-time/history", pc.ScreenTimeHistory)
		parental.POST("/screen-time/report", pc.ReportScreenTime)

		parental.GET("/history", pc.ListHistory)
		parental.GET("/my-status", pc.MyStatus)
		parental.GET("/ws", ctrl.WebSocket.ServeWs)
	}
}
