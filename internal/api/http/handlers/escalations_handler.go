package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aquanet/incident-service/internal/api/dto"
	"github.com/aquanet/incident-service/internal/domain"
	"github.com/aquanet/incident-service/internal/service"
)

// EscalationsHandler serves the escalation watchdog endpoints.
type EscalationsHandler struct {
	service *service.NotificationService
}

// NewEscalationsHandler constructs handler.
func NewEscalationsHandler(notificationService *service.NotificationService) *EscalationsHandler {
	return &EscalationsHandler{service: notificationService}
}

// ListEscalations GET /staff/escalations?open=true.
func (h *EscalationsHandler) ListEscalations(c *fiber.Ctx) error {
	openOnly := c.Query("open") == "true"
	escalations, err := h.service.ListEscalations(c.Context(), openOnly)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": escalationResponses(escalations)})
}

// Acknowledge POST /staff/escalations/:id/ack. One-way: acknowledging stops
// re-alerting but does not resolve the underlying report.
func (h *EscalationsHandler) Acknowledge(c *fiber.Ctx) error {
	if err := h.service.AcknowledgeEscalation(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func escalationResponses(escalations []domain.Escalation) []dto.EscalationResponse {
	resp := make([]dto.EscalationResponse, 0, len(escalations))
	for _, esc := range escalations {
		resp = append(resp, dto.EscalationResponse{
			ID:             esc.ID,
			NotificationID: esc.NotificationID,
			ReportID:       esc.ReportID,
			Acknowledged:   esc.Acknowledged,
			Resolved:       esc.Resolved,
			CreatedAt:      esc.CreatedAt,
			EscalatedAt:    esc.EscalatedAt,
		})
	}
	return resp
}
