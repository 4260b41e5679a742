package events

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSLAWarningRaised EventType = "sla_warning_raised"
	EventSLABreached      EventType = "sla_breached"
	EventTicketEscalated  EventType = "ticket_escalated"
)

// Event represents a domain event emitted by the engine.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TenantID  string      `json:"tenant_id"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SLAAlertPayload accompanies warning and breach events.
type SLAAlertPayload struct {
	AlertID        string              `json:"alert_id"`
	Dimension      domain.SLADimension `json:"dimension"`
	Level          domain.AlertLevel   `json:"level"`
	PolicyID       string              `json:"policy_id"`
	ElapsedMinutes int                 `json:"elapsed_minutes"`
	TargetMinutes  int                 `json:"target_minutes"`
}

// TicketEscalatedPayload accompanies escalation events.
type TicketEscalatedPayload struct {
	Dimension   domain.SLADimension   `json:"dimension"`
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
	AssigneeID  *string               `json:"assignee_id,omitempty"`
}
