package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/dto"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/service"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// ComplianceHandler serves the compliance read model and the synchronous
// evaluation trigger the ticket subsystem calls on mutations.
type ComplianceHandler struct {
	service *service.SLAService
}

// NewComplianceHandler constructs handler.
func NewComplianceHandler(slaService *service.SLAService) *ComplianceHandler {
	return &ComplianceHandler{service: slaService}
}

// TicketCompliance GET /tickets/:id/compliance.
func (h *ComplianceHandler) TicketCompliance(c *fiber.Ctx) error {
	records, err := h.service.TicketCompliance(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.ComplianceRecordResponse, 0, len(records))
	for i := range records {
		items = append(items, complianceRecordResponse(&records[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// EvaluateTicket POST /tickets/:id/evaluate.
func (h *ComplianceHandler) EvaluateTicket(c *fiber.Ctx) error {
	if err := h.service.EvaluateTicket(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"evaluated": true}})
}

// Summary GET /compliance/summary.
func (h *ComplianceHandler) Summary(c *fiber.Ctx) error {
	tenantID := strings.TrimSpace(c.Query("tenant_id"))
	if tenantID == "" {
		return apperrors.NewValidationError("tenant_id required", nil)
	}
	now := time.Now()
	from := parseTimeOr(c.Query("from"), now.AddDate(0, -1, 0))
	to := parseTimeOr(c.Query("to"), now)

	summaries, err := h.service.ComplianceSummary(c.UserContext(), tenantID, from, to)
	if err != nil {
		return err
	}
	items := make([]dto.ComplianceSummaryResponse, 0, len(summaries))
	for _, summary := range summaries {
		items = append(items, complianceSummaryResponse(summary))
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseTimeOr(val string, fallback time.Time) time.Time {
	if val == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return fallback
	}
	return t
}

func complianceRecordResponse(record *domain.SLAComplianceRecord) dto.ComplianceRecordResponse {
	return dto.ComplianceRecordResponse{
		TicketID:       record.TicketID,
		Dimension:      record.Dimension,
		PolicyID:       record.PolicyID,
		TargetMinutes:  record.TargetMinutes,
		ElapsedMinutes: record.ElapsedMinutes,
		Status:         record.Status,
		MetAt:          record.MetAt,
		BreachedAt:     record.BreachedAt,
		EvaluatedAt:    record.EvaluatedAt,
	}
}

func complianceSummaryResponse(summary repository.ComplianceSummary) dto.ComplianceSummaryResponse {
	return dto.ComplianceSummaryResponse{
		Dimension:      summary.Dimension,
		Total:          summary.Total,
		Met:            summary.Met,
		Breached:       summary.Breached,
		Pending:        summary.Pending,
		ComplianceRate: summary.ComplianceRate,
	}
}
