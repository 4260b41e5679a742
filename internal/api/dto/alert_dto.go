package dto

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// AlertResponse is the breach-alert view for dashboards.
type AlertResponse struct {
	ID             string              `json:"id"`
	TenantID       string              `json:"tenant_id"`
	TicketID       string              `json:"ticket_id"`
	Dimension      domain.SLADimension `json:"dimension"`
	Level          domain.AlertLevel   `json:"level"`
	PolicyID       string              `json:"policy_id"`
	ElapsedMinutes int                 `json:"elapsed_minutes"`
	TargetMinutes  int                 `json:"target_minutes"`
	CreatedAt      time.Time           `json:"created_at"`
	Acknowledged   bool                `json:"acknowledged"`
	AcknowledgedBy *string             `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time          `json:"acknowledged_at,omitempty"`
}

// AcknowledgeRequest identifies who acknowledged an alert.
type AcknowledgeRequest struct {
	Actor string `json:"actor"`
}
