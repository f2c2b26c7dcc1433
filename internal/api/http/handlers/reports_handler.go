package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aquanet/incident-service/internal/api/dto"
	"github.com/aquanet/incident-service/internal/domain"
	"github.com/aquanet/incident-service/internal/service"
	apperrors "github.com/aquanet/incident-service/pkg/util"
)

// ReportsHandler serves the public reporting endpoints. No authentication:
// the ticket number is the only credential a reporter holds.
type ReportsHandler struct {
	reports  *service.ReportService
	messages *service.MessageService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reports *service.ReportService, messages *service.MessageService) *ReportsHandler {
	return &ReportsHandler{reports: reports, messages: messages}
}

// CreateReport POST /reports.
func (h *ReportsHandler) CreateReport(c *fiber.Ctx) error {
	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.ReportCreateInput{
		Category:    req.Category,
		Severity:    req.Severity,
		Description: req.Description,
		Area:        req.Area,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}
	if req.Reporter != nil {
		input.Reporter = domain.Reporter{
			Name:  req.Reporter.Name,
			Phone: req.Reporter.Phone,
			Email: req.Reporter.Email,
		}
	}

	report, err := h.reports.CreateReport(c.Context(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.CreateReportResponse{
		TicketNumber: report.TicketNumber,
	}})
}

// TrackReport GET /reports/:ticket_number. Returns the public view, which
// never carries reporter contact details.
func (h *ReportsHandler) TrackReport(c *fiber.Ctx) error {
	report, err := h.reports.GetReport(c.Context(), c.Params("ticket_number"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": trackingResponse(report)})
}

// ListMessages GET /reports/:ticket_number/messages.
func (h *ReportsHandler) ListMessages(c *fiber.Ctx) error {
	msgs, err := h.messages.ListMessages(c.Context(), c.Params("ticket_number"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": messageResponses(msgs)})
}

// PostMessage POST /reports/:ticket_number/messages. The sender is always
// the reporter on this surface.
func (h *ReportsHandler) PostMessage(c *fiber.Ctx) error {
	var req dto.PostMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	msg, err := h.messages.PostMessage(c.Context(), c.Params("ticket_number"), domain.SenderPublic, req.Content, req.SenderName)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg)})
}

func trackingResponse(report *domain.Report) dto.TrackingResponse {
	return dto.TrackingResponse{
		TicketNumber: report.TicketNumber,
		Category:     report.Category,
		Severity:     report.Severity,
		Status:       report.Status,
		Area:         report.Area,
		Timeline:     timelineResponses(report.Timeline),
		CreatedAt:    report.CreatedAt,
		UpdatedAt:    report.UpdatedAt,
	}
}

func timelineResponses(entries []domain.TimelineEntry) []dto.TimelineEntryResponse {
	resp := make([]dto.TimelineEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TimelineEntryResponse{
			Status:    entry.Status,
			Message:   entry.Message,
			Timestamp: entry.CreatedAt,
		})
	}
	return resp
}

func messageResponses(msgs []domain.Message) []dto.MessageResponse {
	resp := make([]dto.MessageResponse, 0, len(msgs))
	for i := range msgs {
		resp = append(resp, messageResponse(&msgs[i]))
	}
	return resp
}

func messageResponse(msg *domain.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID:         msg.ID,
		SenderType: msg.SenderType,
		SenderName: msg.SenderName,
		Content:    msg.Content,
		Read:       msg.Read,
		CreatedAt:  msg.CreatedAt,
	}
}
