package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// ErrDuplicateAlert signals that an alert for the same
// (ticket, dimension, level) triple already exists. Callers treat it as a
// successful no-op; the unique index is the race-safe backstop behind the
// Exists pre-check.
var ErrDuplicateAlert = errors.New("alert already recorded for ticket, dimension and level")

const uniqueViolationCode = "23505"

// AlertFilter captures alert listing parameters.
type AlertFilter struct {
	TenantID       *string
	TicketID       *string
	Unacknowledged bool
	Limit          int
	Offset         int
}

// AlertRepository persists breach alerts and their acknowledgment state.
type AlertRepository interface {
	Exists(ctx context.Context, ticketID string, dimension domain.SLADimension, level domain.AlertLevel) (bool, error)
	Insert(ctx context.Context, alert *domain.SLABreachAlert) error
	Acknowledge(ctx context.Context, alertID, actor string) error
	GetByID(ctx context.Context, alertID string) (*domain.SLABreachAlert, error)
	List(ctx context.Context, filter AlertFilter) ([]domain.SLABreachAlert, error)
}

type alertRepository struct {
	pool *pgxpool.Pool
}

// NewAlertRepository instantiates the repository.
func NewAlertRepository(pool *pgxpool.Pool) AlertRepository {
	return &alertRepository{pool: pool}
}

func (r *alertRepository) Exists(ctx context.Context, ticketID string, dimension domain.SLADimension, level domain.AlertLevel) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM sla_breach_alerts WHERE ticket_id=$1 AND dimension=$2 AND level=$3
        )`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, ticketID, dimension, level).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *alertRepository) Insert(ctx context.Context, alert *domain.SLABreachAlert) error {
	const query = `
        INSERT INTO sla_breach_alerts
            (id, tenant_id, ticket_id, dimension, level, policy_id, elapsed_minutes, target_minutes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING created_at`
	err := r.pool.QueryRow(ctx, query,
		alert.ID,
		alert.TenantID,
		alert.TicketID,
		alert.Dimension,
		alert.Level,
		alert.PolicyID,
		alert.ElapsedMinutes,
		alert.TargetMinutes,
	).Scan(&alert.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateAlert
	}
	return err
}

func (r *alertRepository) Acknowledge(ctx context.Context, alertID, actor string) error {
	const query = `
        UPDATE sla_breach_alerts
        SET acknowledged=true, acknowledged_by=$2, acknowledged_at=NOW()
        WHERE id=$1 AND acknowledged=false`
	cmd, err := r.pool.Exec(ctx, query, alertID, actor)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		// Either unknown id or already acknowledged; distinguish for callers.
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sla_breach_alerts WHERE id=$1)`, alertID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return pgx.ErrNoRows
		}
	}
	return nil
}

func (r *alertRepository) GetByID(ctx context.Context, alertID string) (*domain.SLABreachAlert, error) {
	const query = `
        SELECT id, tenant_id, ticket_id, dimension, level, policy_id, elapsed_minutes,
               target_minutes, created_at, acknowledged, acknowledged_by, acknowledged_at
        FROM sla_breach_alerts WHERE id=$1`
	return scanAlert(r.pool.QueryRow(ctx, query, alertID))
}

func (r *alertRepository) List(ctx context.Context, filter AlertFilter) ([]domain.SLABreachAlert, error) {
	base := `SELECT id, tenant_id, ticket_id, dimension, level, policy_id, elapsed_minutes,
                    target_minutes, created_at, acknowledged, acknowledged_by, acknowledged_at
             FROM sla_breach_alerts`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.TenantID != nil {
		args = append(args, *filter.TenantID)
		clauses = append(clauses, fmt.Sprintf("tenant_id=$%d", len(args)))
	}
	if filter.TicketID != nil {
		args = append(args, *filter.TicketID)
		clauses = append(clauses, fmt.Sprintf("ticket_id=$%d", len(args)))
	}
	if filter.Unacknowledged {
		clauses = append(clauses, "acknowledged=false")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLABreachAlert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *alert)
	}
	return result, rows.Err()
}

func scanAlert(row pgx.Row) (*domain.SLABreachAlert, error) {
	var alert domain.SLABreachAlert
	if err := row.Scan(
		&alert.ID,
		&alert.TenantID,
		&alert.TicketID,
		&alert.Dimension,
		&alert.Level,
		&alert.PolicyID,
		&alert.ElapsedMinutes,
		&alert.TargetMinutes,
		&alert.CreatedAt,
		&alert.Acknowledged,
		&alert.AcknowledgedBy,
		&alert.AcknowledgedAt,
	); err != nil {
		return nil, err
	}
	return &alert, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
