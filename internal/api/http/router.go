package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aquanet/incident-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Reports       *handlers.ReportsHandler
	StaffReports  *handlers.StaffReportsHandler
	Notifications *handlers.NotificationsHandler
	Escalations   *handlers.EscalationsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	// Public surface: filing and tracking by ticket number only.
	reports := app.Group("/reports")
	reports.Post("", cfg.Reports.CreateReport)
	reports.Get("/:ticket_number", cfg.Reports.TrackReport)
	reports.Get("/:ticket_number/messages", cfg.Reports.ListMessages)
	reports.Post("/:ticket_number/messages", cfg.Reports.PostMessage)

	// Staff surface: the operations dashboard.
	staff := app.Group("/staff")
	staff.Get("/reports", cfg.StaffReports.ListReports)
	staff.Get("/reports/:ticket_number", cfg.StaffReports.GetReport)
	staff.Patch("/reports/:ticket_number/status", cfg.StaffReports.UpdateStatus)
	staff.Post("/reports/:ticket_number/assign", cfg.StaffReports.AssignResponder)
	staff.Post("/reports/:ticket_number/messages", cfg.StaffReports.PostMessage)
	staff.Get("/responders", cfg.StaffReports.ListResponders)

	staff.Get("/notifications", cfg.Notifications.ListNotifications)
	staff.Get("/notifications/unread-count", cfg.Notifications.UnreadCount)
	staff.Post("/notifications/read-all", cfg.Notifications.MarkAllRead)
	staff.Post("/notifications/:id/read", cfg.Notifications.MarkRead)

	staff.Get("/escalations", cfg.Escalations.ListEscalations)
	staff.Post("/escalations/:id/ack", cfg.Escalations.Acknowledge)
}
