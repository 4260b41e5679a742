package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/gateway"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/sla"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// SLAService runs the evaluation pipeline: resolve policy, compute
// compliance, persist transitions, detect threshold crossings, escalate.
// Both the mutation-triggered path and the periodic sweep call it; every
// step is idempotent so concurrent evaluations of the same ticket are safe.
type SLAService struct {
	policies   repository.PolicyRepository
	compliance repository.ComplianceRepository
	alerts     repository.AlertRepository
	tickets    gateway.TicketGateway
	escalation *EscalationService
	tracker    *sla.Tracker
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	defaults   sla.Thresholds
	now        func() time.Time
}

// SLADependencies bundles collaborators for the SLA service.
type SLADependencies struct {
	PolicyRepo     repository.PolicyRepository
	ComplianceRepo repository.ComplianceRepository
	AlertRepo      repository.AlertRepository
	TicketGateway  gateway.TicketGateway
	Escalation     *EscalationService
	Tracker        *sla.Tracker
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	Defaults       sla.Thresholds
	Now            func() time.Time
}

// NewSLAService constructs the service.
func NewSLAService(deps SLADependencies) *SLAService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Defaults.WarningPercent <= 0 || deps.Defaults.CriticalPercent <= 0 {
		deps.Defaults = sla.DefaultThresholds
	}
	return &SLAService{
		policies:   deps.PolicyRepo,
		compliance: deps.ComplianceRepo,
		alerts:     deps.AlertRepo,
		tickets:    deps.TicketGateway,
		escalation: deps.Escalation,
		tracker:    deps.Tracker,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		defaults:   deps.Defaults,
		now:        deps.Now,
	}
}

// EvaluateTicket fetches the ticket and runs the pipeline. A gateway
// failure is reported as transient so the caller retries on the next
// mutation or sweep cycle.
func (s *SLAService) EvaluateTicket(ctx context.Context, ticketID string) error {
	ticket, err := s.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, gateway.ErrTicketNotFound) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.NewTransient("ticket subsystem unreachable", err)
	}
	return s.EvaluateSnapshot(ctx, ticket)
}

// EvaluateSnapshot runs the pipeline against an already-fetched ticket.
func (s *SLAService) EvaluateSnapshot(ctx context.Context, ticket *domain.Ticket) error {
	policies, err := s.policies.ListActiveByTenant(ctx, ticket.TenantID)
	if err != nil {
		return err
	}

	policy := sla.Resolve(ticketAttributes(ticket), policies)
	if policy == nil {
		// No matching policy and no default: the ticket is not SLA-tracked.
		s.logger.Debug("ticket not SLA-tracked", zap.String("ticket_id", ticket.ID))
		return nil
	}

	target := sla.BuildTarget(policy, ticket.Priority, s.defaults)
	evaluation := s.tracker.Evaluate(ticketTimes(ticket), target, s.now())
	s.metrics.RecordEvaluation()

	for _, dimension := range domain.Dimensions {
		if err := s.applyDimension(ctx, ticket, target, dimension, evaluation.Result(dimension)); err != nil {
			return err
		}
	}
	return nil
}

// applyDimension persists the evaluation for one dimension and drives
// detection and escalation off the resulting record state.
func (s *SLAService) applyDimension(ctx context.Context, ticket *domain.Ticket, target sla.Target, dimension domain.SLADimension, result sla.DimensionResult) error {
	record, err := s.loadOrCreateRecord(ctx, ticket, target, dimension, result)
	if err != nil {
		return err
	}

	if !record.Status.Terminal() {
		record, err = s.advanceRecord(ctx, ticket, dimension, result, record)
		if err != nil {
			return err
		}
	}

	level, crossed := sla.Detect(record.Status, record.ElapsedMinutes, record.TargetMinutes, target.WarningPercent, target.CriticalPercent)
	if !crossed {
		return nil
	}

	if _, err := s.emitAlert(ctx, ticket, record, level); err != nil {
		return err
	}

	// Escalation keys off the breached record, not the alert insert: an
	// effect failure after the alert landed rolls the claim back, and the
	// next evaluation must retry it. Once the claim holds, Escalate is a
	// no-op.
	if record.Status == domain.ComplianceStatusBreached && level == domain.AlertLevelCritical && target.AutoEscalate {
		return s.escalation.Escalate(ctx, ticket, dimension)
	}
	return nil
}

func (s *SLAService) loadOrCreateRecord(ctx context.Context, ticket *domain.Ticket, target sla.Target, dimension domain.SLADimension, result sla.DimensionResult) (*domain.SLAComplianceRecord, error) {
	record, err := s.compliance.Get(ctx, ticket.ID, dimension)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	fresh := &domain.SLAComplianceRecord{
		TicketID:       ticket.ID,
		TenantID:       ticket.TenantID,
		Dimension:      dimension,
		PolicyID:       target.PolicyID,
		TargetMinutes:  target.TargetMinutes(dimension),
		ElapsedMinutes: result.ElapsedMinutes,
		Status:         domain.ComplianceStatusPending,
	}
	// Insert is ON CONFLICT DO NOTHING; re-read to see whichever evaluator
	// won the creation race.
	if err := s.compliance.Create(ctx, fresh); err != nil {
		return nil, err
	}
	return s.compliance.Get(ctx, ticket.ID, dimension)
}

// advanceRecord applies the freshly computed result to a still-pending
// record. Terminal transitions go through the conditional update; losing
// that race means another evaluator finalized the row first, so the row is
// re-read and used as-is.
func (s *SLAService) advanceRecord(ctx context.Context, ticket *domain.Ticket, dimension domain.SLADimension, result sla.DimensionResult, record *domain.SLAComplianceRecord) (*domain.SLAComplianceRecord, error) {
	if !result.Status.Terminal() {
		if _, err := s.compliance.UpdateElapsedIfPending(ctx, ticket.ID, dimension, result.ElapsedMinutes); err != nil {
			return nil, err
		}
		record.ElapsedMinutes = result.ElapsedMinutes
		return record, nil
	}

	finalAt := s.now()
	if result.Status == domain.ComplianceStatusMet && result.CompletedAt != nil {
		finalAt = *result.CompletedAt
	}
	transitioned, err := s.compliance.FinalizeIfPending(ctx, ticket.ID, dimension, result.ElapsedMinutes, result.Status, finalAt)
	if err != nil {
		return nil, err
	}
	if !transitioned {
		return s.compliance.Get(ctx, ticket.ID, dimension)
	}

	s.metrics.RecordTransition(string(dimension), string(result.Status))
	record.ElapsedMinutes = result.ElapsedMinutes
	record.Status = result.Status
	if result.Status == domain.ComplianceStatusMet {
		record.MetAt = &finalAt
	} else {
		record.BreachedAt = &finalAt
	}
	return record, nil
}

// emitAlert persists the alert at most once. The Exists pre-check is an
// optimization only; a duplicate-key error from the store is the expected
// outcome of a lost race and maps to created=false.
func (s *SLAService) emitAlert(ctx context.Context, ticket *domain.Ticket, record *domain.SLAComplianceRecord, level domain.AlertLevel) (bool, error) {
	exists, err := s.alerts.Exists(ctx, ticket.ID, record.Dimension, level)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	alert := &domain.SLABreachAlert{
		ID:             uuid.NewString(),
		TenantID:       ticket.TenantID,
		TicketID:       ticket.ID,
		Dimension:      record.Dimension,
		Level:          level,
		PolicyID:       record.PolicyID,
		ElapsedMinutes: record.ElapsedMinutes,
		TargetMinutes:  record.TargetMinutes,
	}
	if err := s.alerts.Insert(ctx, alert); err != nil {
		if errors.Is(err, repository.ErrDuplicateAlert) {
			return false, nil
		}
		return false, err
	}

	s.metrics.RecordAlert(string(record.Dimension), string(level))
	s.logger.Info("sla alert",
		zap.String("ticket_id", ticket.ID),
		zap.String("dimension", string(record.Dimension)),
		zap.String("level", string(level)),
		zap.Int("elapsed_minutes", record.ElapsedMinutes),
		zap.Int("target_minutes", record.TargetMinutes))

	eventType := events.EventSLAWarningRaised
	if level == domain.AlertLevelCritical {
		eventType = events.EventSLABreached
	}
	s.publishEvent(ctx, events.Event{
		Type:     eventType,
		TenantID: ticket.TenantID,
		TicketID: ticket.ID,
		Payload: events.SLAAlertPayload{
			AlertID:        alert.ID,
			Dimension:      record.Dimension,
			Level:          level,
			PolicyID:       record.PolicyID,
			ElapsedMinutes: record.ElapsedMinutes,
			TargetMinutes:  record.TargetMinutes,
		},
	})
	return true, nil
}

// SweepBatch evaluates one page of a tenant's open tickets. Per-ticket
// failures are logged and left for the next cycle; the batch keeps going.
func (s *SLAService) SweepBatch(ctx context.Context, tenantID, afterID string, limit int) (string, int, error) {
	tickets, err := s.tickets.ListOpenTickets(ctx, tenantID, afterID, limit)
	if err != nil {
		return afterID, 0, apperrors.NewTransient("ticket subsystem unreachable", err)
	}

	lastID := afterID
	for i := range tickets {
		if err := ctx.Err(); err != nil {
			return lastID, i, err
		}
		ticket := &tickets[i]
		if err := s.EvaluateSnapshot(ctx, ticket); err != nil {
			s.logger.Warn("sweep evaluation failed, will retry next cycle",
				zap.String("ticket_id", ticket.ID),
				zap.Error(err))
		}
		lastID = ticket.ID
	}
	return lastID, len(tickets), nil
}

// TicketCompliance returns the persisted records for one ticket.
func (s *SLAService) TicketCompliance(ctx context.Context, ticketID string) ([]domain.SLAComplianceRecord, error) {
	return s.compliance.ListByTicket(ctx, ticketID)
}

// ComplianceSummary returns aggregate compliance per dimension.
func (s *SLAService) ComplianceSummary(ctx context.Context, tenantID string, from, to time.Time) ([]repository.ComplianceSummary, error) {
	return s.compliance.Summary(ctx, tenantID, from, to)
}

func (s *SLAService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func ticketAttributes(ticket *domain.Ticket) sla.TicketAttributes {
	attrs := sla.TicketAttributes{
		Priority:   ticket.Priority,
		TicketType: ticket.Type,
		CustomerID: ticket.CustomerID,
	}
	if ticket.ContractID != nil {
		attrs.ContractID = *ticket.ContractID
	}
	return attrs
}

func ticketTimes(ticket *domain.Ticket) sla.TicketTimes {
	return sla.TicketTimes{
		CreatedAt:        ticket.CreatedAt,
		FirstRespondedAt: ticket.FirstRespondedAt,
		ResolvedAt:       ticket.ResolvedAt,
	}
}
