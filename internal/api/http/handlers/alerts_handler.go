package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/sla-engine/internal/api/dto"
	"github.com/spec-kit/sla-engine/internal/auth"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// AlertsHandler serves the breach-alert read model and acknowledgment.
type AlertsHandler struct {
	alerts repository.AlertRepository
}

// NewAlertsHandler constructs handler.
func NewAlertsHandler(alerts repository.AlertRepository) *AlertsHandler {
	return &AlertsHandler{alerts: alerts}
}

// List GET /alerts.
func (h *AlertsHandler) List(c *fiber.Ctx) error {
	filter := repository.AlertFilter{
		Unacknowledged: c.Query("acknowledged") == "false",
	}
	if tenantID := strings.TrimSpace(c.Query("tenant_id")); tenantID != "" {
		filter.TenantID = &tenantID
	}
	if ticketID := strings.TrimSpace(c.Query("ticket_id")); ticketID != "" {
		filter.TicketID = &ticketID
	}
	page := parsePositiveInt(c.Query("page"), 1)
	pageSize := parsePositiveInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize

	alerts, err := h.alerts.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.AlertResponse, 0, len(alerts))
	for i := range alerts {
		items = append(items, alertResponse(&alerts[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Acknowledge POST /alerts/:id/ack.
func (h *AlertsHandler) Acknowledge(c *fiber.Ctx) error {
	var req dto.AcknowledgeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	actor := strings.TrimSpace(req.Actor)
	if actor == "" {
		if principal, ok := auth.PrincipalFromContext(c); ok {
			actor = principal.ServiceName
		}
	}
	if actor == "" {
		return apperrors.NewValidationError("actor required", nil)
	}

	if err := h.alerts.Acknowledge(c.UserContext(), c.Params("id"), actor); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("alert", map[string]any{"alert_id": c.Params("id")})
		}
		return err
	}

	alert, err := h.alerts.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": alertResponse(alert)})
}

func parsePositiveInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func alertResponse(alert *domain.SLABreachAlert) dto.AlertResponse {
	return dto.AlertResponse{
		ID:             alert.ID,
		TenantID:       alert.TenantID,
		TicketID:       alert.TicketID,
		Dimension:      alert.Dimension,
		Level:          alert.Level,
		PolicyID:       alert.PolicyID,
		ElapsedMinutes: alert.ElapsedMinutes,
		TargetMinutes:  alert.TargetMinutes,
		CreatedAt:      alert.CreatedAt,
		Acknowledged:   alert.Acknowledged,
		AcknowledgedBy: alert.AcknowledgedBy,
		AcknowledgedAt: alert.AcknowledgedAt,
	}
}
