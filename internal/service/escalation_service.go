package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/gateway"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/repository"
)

// EscalationService applies the configured escalation actions exactly once
// per (ticket, dimension). The claim row is inserted in the same
// transaction that the mandatory effects run in, so a failed effect rolls
// the claim back and a later evaluation retries.
type EscalationService struct {
	claims           repository.EscalationRepository
	tickets          gateway.TicketGateway
	dispatcher       events.Dispatcher
	logger           *zap.Logger
	metrics          *observability.Metrics
	fallbackAssignee string
	now              func() time.Time
}

// EscalationDependencies bundles collaborators for the escalation service.
type EscalationDependencies struct {
	ClaimRepo        repository.EscalationRepository
	TicketGateway    gateway.TicketGateway
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
	Metrics          *observability.Metrics
	FallbackAssignee string
	Now              func() time.Time
}

// NewEscalationService constructs the service.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &EscalationService{
		claims:           deps.ClaimRepo,
		tickets:          deps.TicketGateway,
		dispatcher:       deps.Dispatcher,
		logger:           deps.Logger,
		metrics:          deps.Metrics,
		fallbackAssignee: deps.FallbackAssignee,
		now:              deps.Now,
	}
}

// Escalate performs the NOT_ESCALATED -> ESCALATED transition for the
// ticket and dimension. Losing the claim race is a successful no-op.
// Mandatory effects: priority bump, fallback assignment when unassigned,
// and moving OPEN/PENDING_USER tickets to IN_PROGRESS. The audit comment
// is appended after the claim commits and is best-effort.
func (e *EscalationService) Escalate(ctx context.Context, ticket *domain.Ticket, dimension domain.SLADimension) error {
	oldPriority := ticket.Priority
	newPriority := oldPriority.Bump()
	var assignedTo *string

	escalated, err := e.claims.Escalate(ctx, ticket.ID, dimension, func(ctx context.Context) error {
		if newPriority != oldPriority {
			if err := e.tickets.UpdatePriority(ctx, ticket.ID, newPriority); err != nil {
				return fmt.Errorf("bump priority: %w", err)
			}
		}
		if ticket.AssigneeID == nil && e.fallbackAssignee != "" {
			if err := e.tickets.Assign(ctx, ticket.ID, e.fallbackAssignee); err != nil {
				return fmt.Errorf("assign fallback owner: %w", err)
			}
			assignedTo = &e.fallbackAssignee
		}
		if ticket.Status == domain.TicketStatusOpen || ticket.Status == domain.TicketStatusPendingUser {
			if err := e.tickets.UpdateStatus(ctx, ticket.ID, domain.TicketStatusInProgress); err != nil {
				return fmt.Errorf("transition status: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !escalated {
		e.logger.Debug("escalation already applied",
			zap.String("ticket_id", ticket.ID),
			zap.String("dimension", string(dimension)))
		return nil
	}

	e.metrics.RecordEscalation()
	e.logger.Info("ticket escalated",
		zap.String("ticket_id", ticket.ID),
		zap.String("dimension", string(dimension)),
		zap.String("old_priority", string(oldPriority)),
		zap.String("new_priority", string(newPriority)))

	comment := escalationComment(dimension, oldPriority, newPriority, assignedTo)
	if err := e.tickets.AppendSystemComment(ctx, ticket.ID, comment); err != nil {
		// The comment alone never blocks the escalated state.
		e.logger.Warn("escalation comment failed",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
	}

	e.publishEvent(ctx, events.Event{
		Type:     events.EventTicketEscalated,
		TenantID: ticket.TenantID,
		TicketID: ticket.ID,
		Payload: events.TicketEscalatedPayload{
			Dimension:   dimension,
			OldPriority: oldPriority,
			NewPriority: newPriority,
			AssigneeID:  assignedTo,
		},
	})
	return nil
}

func escalationComment(dimension domain.SLADimension, oldPriority, newPriority domain.TicketPriority, assignedTo *string) string {
	label := "resolution"
	if dimension == domain.DimensionFirstResponse {
		label = "first response"
	}
	comment := fmt.Sprintf("SLA %s target breached.", label)
	if newPriority != oldPriority {
		comment += fmt.Sprintf(" Priority raised from %s to %s.", oldPriority, newPriority)
	}
	if assignedTo != nil {
		comment += fmt.Sprintf(" Assigned to %s.", *assignedTo)
	}
	comment += " Ticket moved to IN_PROGRESS where applicable."
	return comment
}

func (e *EscalationService) publishEvent(ctx context.Context, event events.Event) {
	if e.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = e.now()
	}
	_ = e.dispatcher.Publish(ctx, event)
}
