package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aquanet/incident-service/internal/api/dto"
	"github.com/aquanet/incident-service/internal/domain"
	"github.com/aquanet/incident-service/internal/service"
)

// NotificationsHandler serves the staff notification feed. GET /staff/notifications
// doubles as the polling fallback for clients whose live channel is down.
type NotificationsHandler struct {
	service *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: notificationService}
}

// ListNotifications GET /staff/notifications?after=<id>&limit=<n>.
func (h *NotificationsHandler) ListNotifications(c *fiber.Ctx) error {
	var afterID *string
	if after := c.Query("after"); after != "" {
		afterID = &after
	}
	limit := parseInt(c.Query("limit"), 50)

	notifications, err := h.service.ListNotifications(c.Context(), afterID, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": notificationResponses(notifications)})
}

// UnreadCount GET /staff/notifications/unread-count.
func (h *NotificationsHandler) UnreadCount(c *fiber.Ctx) error {
	count, err := h.service.UnreadCount(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UnreadCountResponse{Unread: count}})
}

// MarkRead POST /staff/notifications/:id/read. Idempotent.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	if err := h.service.MarkRead(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MarkAllRead POST /staff/notifications/read-all. Idempotent.
func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	if err := h.service.MarkAllRead(c.Context()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func notificationResponses(notifications []domain.Notification) []dto.NotificationResponse {
	resp := make([]dto.NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		resp = append(resp, dto.NotificationResponse{
			ID:             n.ID,
			Title:          n.Title,
			Message:        n.Message,
			Severity:       n.Severity,
			Read:           n.Read,
			ActionURL:      n.ActionURL,
			SourceReportID: n.SourceReportID,
			CreatedAt:      n.CreatedAt,
		})
	}
	return resp
}
