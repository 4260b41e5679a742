package dto

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// ComplianceRecordResponse is the per-dimension compliance view.
type ComplianceRecordResponse struct {
	TicketID       string                  `json:"ticket_id"`
	Dimension      domain.SLADimension     `json:"dimension"`
	PolicyID       string                  `json:"policy_id"`
	TargetMinutes  int                     `json:"target_minutes"`
	ElapsedMinutes int                     `json:"elapsed_minutes"`
	Status         domain.ComplianceStatus `json:"status"`
	MetAt          *time.Time              `json:"met_at,omitempty"`
	BreachedAt     *time.Time              `json:"breached_at,omitempty"`
	EvaluatedAt    time.Time               `json:"evaluated_at"`
}

// ComplianceSummaryResponse aggregates one dimension over a period.
type ComplianceSummaryResponse struct {
	Dimension      domain.SLADimension `json:"dimension"`
	Total          int64               `json:"total"`
	Met            int64               `json:"met"`
	Breached       int64               `json:"breached"`
	Pending        int64               `json:"pending"`
	ComplianceRate float64             `json:"compliance_rate"`
}
