package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets as exposed by the
// ticket subsystem. The engine only reads these and, on escalation, moves
// OPEN/PENDING_USER tickets to IN_PROGRESS.
type TicketStatus string

const (
	TicketStatusOpen        TicketStatus = "OPEN"
	TicketStatusInProgress  TicketStatus = "IN_PROGRESS"
	TicketStatusPendingUser TicketStatus = "PENDING_USER"
	TicketStatusResolved    TicketStatus = "RESOLVED"
	TicketStatusClosed      TicketStatus = "CLOSED"
	TicketStatusCancelled   TicketStatus = "CANCELLED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

var priorityOrder = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityUrgent,
}

// Rank returns the ordinal position of the priority, lowest first.
// Unknown values rank below LOW so a bump normalizes them.
func (p TicketPriority) Rank() int {
	for i, candidate := range priorityOrder {
		if candidate == p {
			return i
		}
	}
	return -1
}

// Bump returns the next higher priority, capped at URGENT.
func (p TicketPriority) Bump() TicketPriority {
	rank := p.Rank()
	if rank < 0 {
		return TicketPriorityLow
	}
	if rank >= len(priorityOrder)-1 {
		return p
	}
	return priorityOrder[rank+1]
}

// Ticket is the engine's read model of a support ticket. The ticket
// subsystem owns the record; only the fields needed for SLA evaluation
// are carried here.
type Ticket struct {
	ID               string
	TenantID         string
	Type             string
	Status           TicketStatus
	Priority         TicketPriority
	CustomerID       string
	ContractID       *string
	AssigneeID       *string
	CreatedAt        time.Time
	FirstRespondedAt *time.Time
	ResolvedAt       *time.Time
}

// Open reports whether the ticket is still in an SLA-relevant state.
func (t *Ticket) Open() bool {
	switch t.Status {
	case TicketStatusClosed, TicketStatusCancelled:
		return false
	default:
		return true
	}
}
