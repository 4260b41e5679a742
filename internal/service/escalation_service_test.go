package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
)

type escalationFixture struct {
	service *EscalationService
	claims  *mockEscalationRepo
	gateway *mockTicketGateway
	events  *[]events.Event
}

func newEscalationFixture(fallbackAssignee string) *escalationFixture {
	claims := newMockEscalationRepo()
	ticketGateway := newMockTicketGateway()

	dispatcher := events.NewInMemoryDispatcher()
	var published []events.Event
	dispatcher.Subscribe(events.EventTicketEscalated, func(_ context.Context, event events.Event) error {
		published = append(published, event)
		return nil
	})

	service := NewEscalationService(EscalationDependencies{
		ClaimRepo:        claims,
		TicketGateway:    ticketGateway,
		Dispatcher:       dispatcher,
		Logger:           zap.NewNop(),
		FallbackAssignee: fallbackAssignee,
	})
	return &escalationFixture{
		service: service,
		claims:  claims,
		gateway: ticketGateway,
		events:  &published,
	}
}

func TestEscalateAppliesAllEffects(t *testing.T) {
	fx := newEscalationFixture("agent-7")
	ticket := highTicket()

	require.NoError(t, fx.service.Escalate(context.Background(), ticket, domain.DimensionFirstResponse))

	require.Equal(t, 1, fx.claims.count())
	require.Equal(t, []domain.TicketPriority{domain.TicketPriorityUrgent}, fx.gateway.priorityUpdates)
	require.Equal(t, []string{"agent-7"}, fx.gateway.assignments)
	require.Equal(t, []domain.TicketStatus{domain.TicketStatusInProgress}, fx.gateway.statusUpdates)

	require.Len(t, fx.gateway.comments, 1)
	require.Contains(t, fx.gateway.comments[0], "first response")
	require.Contains(t, fx.gateway.comments[0], "HIGH to URGENT")
	require.Contains(t, fx.gateway.comments[0], "agent-7")

	require.Len(t, *fx.events, 1)
	payload, ok := (*fx.events)[0].Payload.(events.TicketEscalatedPayload)
	require.True(t, ok)
	require.Equal(t, domain.TicketPriorityHigh, payload.OldPriority)
	require.Equal(t, domain.TicketPriorityUrgent, payload.NewPriority)
}

func TestEscalateIsAtMostOnce(t *testing.T) {
	fx := newEscalationFixture("agent-7")
	ticket := highTicket()

	require.NoError(t, fx.service.Escalate(context.Background(), ticket, domain.DimensionFirstResponse))
	mutations := fx.gateway.mutationCount()

	require.NoError(t, fx.service.Escalate(context.Background(), ticket, domain.DimensionFirstResponse))
	require.Equal(t, 1, fx.claims.count())
	require.Equal(t, mutations, fx.gateway.mutationCount())
	require.Len(t, *fx.events, 1)
}

func TestEscalateDimensionsAreIndependent(t *testing.T) {
	fx := newEscalationFixture("")
	ticket := highTicket()

	require.NoError(t, fx.service.Escalate(context.Background(), ticket, domain.DimensionFirstResponse))
	require.NoError(t, fx.service.Escalate(context.Background(), ticket, domain.DimensionResolution))
	require.Equal(t, 2, fx.claims.count())
}

func TestEscalateMandatoryEffectFailureRollsBack(t *testing.T) {
	fx := newEscalationFixture("agent-7")
	fx.gateway.priorityErr = errors.New("ticket service down")
	ticket := highTicket()

	err := fx.service.Escalate(context.Background(), ticket, domain.DimensionFirstResponse)
	require.Error(t, err)

	// The claim rolled back with the failed effect, so the next evaluation
	// retries the whole escalation.
	require.Equal(t, 0, fx.claims.count())
	require.Empty(t, fx.gateway.comments)
	require.Empty(t, *fx.events)
}

func TestEscalateCommentFailureDoesNotBlock(t *testing.T) {
	fx := newEscalationFixture("agent-7")
	fx.gateway.commentErr = errors.New("comments endpoint down")
	ticket := highTicket()

	require.NoError(t, fx.service.Escalate(context.Background(), ticket, domain.DimensionResolution))
	require.Equal(t, 1, fx.claims.count())
	require.Len(t, *fx.events, 1)
}

func TestEscalateSkipsAlreadySatisfiedEffects(t *testing.T) {
	fx := newEscalationFixture("agent-7")
	assignee := "agent-3"
	ticket := highTicket()
	ticket.Priority = domain.TicketPriorityUrgent
	ticket.Status = domain.TicketStatusInProgress
	ticket.AssigneeID = &assignee

	require.NoError(t, fx.service.Escalate(context.Background(), ticket, domain.DimensionFirstResponse))

	require.Equal(t, 1, fx.claims.count())
	require.Empty(t, fx.gateway.priorityUpdates, "URGENT has no higher priority")
	require.Empty(t, fx.gateway.assignments, "assigned tickets keep their owner")
	require.Empty(t, fx.gateway.statusUpdates, "IN_PROGRESS needs no transition")
	require.Len(t, fx.gateway.comments, 1)
}

func TestEscalateWithoutFallbackLeavesUnassigned(t *testing.T) {
	fx := newEscalationFixture("")
	ticket := highTicket()

	require.NoError(t, fx.service.Escalate(context.Background(), ticket, domain.DimensionFirstResponse))
	require.Empty(t, fx.gateway.assignments)

	payload, ok := (*fx.events)[0].Payload.(events.TicketEscalatedPayload)
	require.True(t, ok)
	require.Nil(t, payload.AssigneeID)
}
