package domain

import "time"

// EscalationClaim records the one-way NOT_ESCALATED -> ESCALATED transition
// for a (ticket, dimension) pair. The row existing means ESCALATED.
type EscalationClaim struct {
	TicketID    string
	Dimension   SLADimension
	EscalatedAt time.Time
}
