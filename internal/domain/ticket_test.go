package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPriorityBump(t *testing.T) {
	require.Equal(t, TicketPriorityMedium, TicketPriorityLow.Bump())
	require.Equal(t, TicketPriorityHigh, TicketPriorityMedium.Bump())
	require.Equal(t, TicketPriorityUrgent, TicketPriorityHigh.Bump())
	require.Equal(t, TicketPriorityUrgent, TicketPriorityUrgent.Bump(), "URGENT is the cap")
	require.Equal(t, TicketPriorityLow, TicketPriority("BOGUS").Bump(), "unknown values normalize to LOW")
}

func TestTicketOpen(t *testing.T) {
	for _, status := range []TicketStatus{
		TicketStatusOpen, TicketStatusInProgress, TicketStatusPendingUser, TicketStatusResolved,
	} {
		ticket := Ticket{Status: status}
		require.True(t, ticket.Open(), string(status))
	}
	for _, status := range []TicketStatus{TicketStatusClosed, TicketStatusCancelled} {
		ticket := Ticket{Status: status}
		require.False(t, ticket.Open(), string(status))
	}
}

func TestComplianceStatusTerminal(t *testing.T) {
	require.False(t, ComplianceStatusPending.Terminal())
	require.True(t, ComplianceStatusMet.Terminal())
	require.True(t, ComplianceStatusBreached.Terminal())
}
