package routes

import (
	"github.com/labstack/echo/v4"

	"mediserve/internal/controllers"
	"mediserve/pkg/middleware"
)

type Controllers struct {
	Auth           *controllers.AuthController
	ServiceRequest *controllers.ServiceRequestController
	Quote          *controllers.QuoteController
	Dispute        *controllers.DisputeController
	Report         *controllers.ReportController
}

func InitRouter(e *echo.Echo, c Controllers, auth *middleware.AuthMiddleware) {
	api := e.Group("/api")

	api.POST("/auth/login", c.Auth.Login)
	api.POST("/auth/refresh", c.Auth.Refresh)

	protected := api.Group("", auth.Auth)

	requests := protected.Group("/service-requests")
	requests.POST("", c.ServiceRequest.Create)
	requests.GET("", c.ServiceRequest.List)
	requests.GET("/:id", c.ServiceRequest.Find)
	requests.PATCH("/:id/status", c.ServiceRequest.UpdateStatus)
	requests.POST("/:id/cancel", c.ServiceRequest.Cancel)
	requests.POST("/:id/start", c.ServiceRequest.StartService)
	requests.POST("/:id/progress", c.ServiceRequest.UpdateProgress)
	requests.POST("/:id/complete", c.ServiceRequest.CompleteService)
	requests.POST("/:id/report", c.ServiceRequest.SubmitCompletionReport)
	requests.POST("/:id/decline", c.ServiceRequest.Decline)
	requests.GET("/:id/quotes", c.Quote.ListByServiceRequest)
	requests.GET("/:id/audit", c.ServiceRequest.GetAuditTrail)
	requests.POST("/:id/disputes", c.Dispute.Open)

	quotes := protected.Group("/quotes")
	quotes.POST("", c.Quote.Submit)
	quotes.PATCH("/:id", c.Quote.Update)
	quotes.POST("/:id/accept", c.Quote.Accept)
	quotes.POST("/:id/reject", c.Quote.Reject)

	disputes := protected.Group("/disputes")
	disputes.GET("/:id", c.Dispute.Find)
	disputes.PATCH("/:id/status", c.Dispute.UpdateStatus)

	protected.GET("/reports/audit.xlsx", c.Report.ExportAuditTrail)
}
