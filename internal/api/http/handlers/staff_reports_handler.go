package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/aquanet/incident-service/internal/api/dto"
	"github.com/aquanet/incident-service/internal/domain"
	"github.com/aquanet/incident-service/internal/repository"
	"github.com/aquanet/incident-service/internal/service"
	apperrors "github.com/aquanet/incident-service/pkg/util"
)

// StaffReportsHandler serves the operations dashboard endpoints.
type StaffReportsHandler struct {
	reports     *service.ReportService
	assignments *service.AssignmentService
	messages    *service.MessageService
	responders  repository.ResponderRepository
}

// NewStaffReportsHandler constructs handler.
func NewStaffReportsHandler(
	reports *service.ReportService,
	assignments *service.AssignmentService,
	messages *service.MessageService,
	responders repository.ResponderRepository,
) *StaffReportsHandler {
	return &StaffReportsHandler{
		reports:     reports,
		assignments: assignments,
		messages:    messages,
		responders:  responders,
	}
}

// ListReports GET /staff/reports.
func (h *StaffReportsHandler) ListReports(c *fiber.Ctx) error {
	filter := parseReportQuery(c)
	reports, err := h.reports.ListReports(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.StaffReportSummary, 0, len(reports))
	for i := range reports {
		items = append(items, staffSummary(&reports[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetReport GET /staff/reports/:ticket_number.
func (h *StaffReportsHandler) GetReport(c *fiber.Ctx) error {
	report, err := h.reports.GetReport(c.Context(), c.Params("ticket_number"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffDetail(report, h.reports.AvailableActions(report))})
}

// UpdateStatus PATCH /staff/reports/:ticket_number/status.
func (h *StaffReportsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}
	report, err := h.reports.Transition(c.Context(), c.Params("ticket_number"), req.Status, req.Note, req.UpdatedAt)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffDetail(report, h.reports.AvailableActions(report))})
}

// AssignResponder POST /staff/reports/:ticket_number/assign.
func (h *StaffReportsHandler) AssignResponder(c *fiber.Ctx) error {
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ResponderID == "" {
		return apperrors.NewValidationError("responder_id required", nil)
	}
	report, err := h.assignments.Assign(c.Context(), c.Params("ticket_number"), req.ResponderID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffDetail(report, h.reports.AvailableActions(report))})
}

// PostMessage POST /staff/reports/:ticket_number/messages. The sender is
// always staff on this surface.
func (h *StaffReportsHandler) PostMessage(c *fiber.Ctx) error {
	var req dto.PostMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	msg, err := h.messages.PostMessage(c.Context(), c.Params("ticket_number"), domain.SenderStaff, req.Content, req.SenderName)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg)})
}

// ListResponders GET /staff/responders.
func (h *StaffReportsHandler) ListResponders(c *fiber.Ctx) error {
	responders, err := h.responders.ListActive(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.ResponderResponse, 0, len(responders))
	for _, responder := range responders {
		items = append(items, dto.ResponderResponse{
			ID:    responder.ID,
			Name:  responder.Name,
			Phone: responder.Phone,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseReportQuery(c *fiber.Ctx) service.ReportListFilter {
	filter := service.ReportListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.ReportStatus(strings.TrimSpace(part)))
		}
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filter.SearchTerm = &search
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func staffSummary(report *domain.Report) dto.StaffReportSummary {
	return dto.StaffReportSummary{
		ID:           report.ID,
		TicketNumber: report.TicketNumber,
		Category:     report.Category,
		Severity:     report.Severity,
		Status:       report.Status,
		Area:         report.Area,
		AssignedTo:   report.AssignedTo,
		CreatedAt:    report.CreatedAt,
		UpdatedAt:    report.UpdatedAt,
	}
}

func staffDetail(report *domain.Report, actions []domain.ReportStatus) dto.StaffReportResponse {
	return dto.StaffReportResponse{
		ID:               report.ID,
		TicketNumber:     report.TicketNumber,
		Category:         report.Category,
		Severity:         report.Severity,
		Status:           report.Status,
		Description:      report.Description,
		Area:             report.Area,
		Latitude:         report.Latitude,
		Longitude:        report.Longitude,
		ReporterName:     report.Reporter.Name,
		ReporterPhone:    report.Reporter.Phone,
		ReporterEmail:    report.Reporter.Email,
		AssignedTo:       report.AssignedTo,
		Timeline:         timelineResponses(report.Timeline),
		AvailableActions: actions,
		CreatedAt:        report.CreatedAt,
		UpdatedAt:        report.UpdatedAt,
	}
}
