package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// EscalationRepository owns the one-way NOT_ESCALATED -> ESCALATED
// transition per (ticket, dimension).
type EscalationRepository interface {
	// Escalate claims the transition and runs the mandatory escalation
	// effects inside the claiming transaction. It returns (false, nil) when
	// another evaluator already holds the claim (lost race, no-op). An
	// effects failure rolls the claim back so the next evaluation retries.
	Escalate(ctx context.Context, ticketID string, dimension domain.SLADimension, effects func(context.Context) error) (bool, error)
	IsEscalated(ctx context.Context, ticketID string, dimension domain.SLADimension) (bool, error)
	Get(ctx context.Context, ticketID string, dimension domain.SLADimension) (*domain.EscalationClaim, error)
}

type escalationRepository struct {
	pool *pgxpool.Pool
}

// NewEscalationRepository instantiates the repository.
func NewEscalationRepository(pool *pgxpool.Pool) EscalationRepository {
	return &escalationRepository{pool: pool}
}

func (r *escalationRepository) Escalate(ctx context.Context, ticketID string, dimension domain.SLADimension, effects func(context.Context) error) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// The unique index on (ticket_id, dimension) makes this insert the
	// atomic claim. A concurrent claimant blocks here until the winner
	// commits, then fails with a unique violation.
	_, err = tx.Exec(ctx,
		`INSERT INTO sla_escalations (ticket_id, dimension) VALUES ($1,$2)`,
		ticketID, dimension)
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := effects(ctx); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *escalationRepository) IsEscalated(ctx context.Context, ticketID string, dimension domain.SLADimension) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM sla_escalations WHERE ticket_id=$1 AND dimension=$2
        )`
	var escalated bool
	if err := r.pool.QueryRow(ctx, query, ticketID, dimension).Scan(&escalated); err != nil {
		return false, err
	}
	return escalated, nil
}

func (r *escalationRepository) Get(ctx context.Context, ticketID string, dimension domain.SLADimension) (*domain.EscalationClaim, error) {
	const query = `
        SELECT ticket_id, dimension, escalated_at
        FROM sla_escalations WHERE ticket_id=$1 AND dimension=$2`
	var claim domain.EscalationClaim
	var escalatedAt time.Time
	if err := r.pool.QueryRow(ctx, query, ticketID, dimension).Scan(&claim.TicketID, &claim.Dimension, &escalatedAt); err != nil {
		return nil, err
	}
	claim.EscalatedAt = escalatedAt
	return &claim, nil
}
