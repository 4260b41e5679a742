package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// ComplianceSummary aggregates compliance counts for one dimension.
type ComplianceSummary struct {
	Dimension      domain.SLADimension
	Total          int64
	Met            int64
	Breached       int64
	Pending        int64
	ComplianceRate float64
}

// ComplianceRepository persists per-ticket, per-dimension SLA records.
// Status transitions are guarded on status='PENDING' so concurrent
// evaluators cannot double-finalize a record.
type ComplianceRepository interface {
	Get(ctx context.Context, ticketID string, dimension domain.SLADimension) (*domain.SLAComplianceRecord, error)
	Create(ctx context.Context, record *domain.SLAComplianceRecord) error
	UpdateElapsedIfPending(ctx context.Context, ticketID string, dimension domain.SLADimension, elapsedMinutes int) (bool, error)
	FinalizeIfPending(ctx context.Context, ticketID string, dimension domain.SLADimension, elapsedMinutes int, status domain.ComplianceStatus, at time.Time) (bool, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.SLAComplianceRecord, error)
	Summary(ctx context.Context, tenantID string, from, to time.Time) ([]ComplianceSummary, error)
}

type complianceRepository struct {
	pool *pgxpool.Pool
}

// NewComplianceRepository instantiates the repository.
func NewComplianceRepository(pool *pgxpool.Pool) ComplianceRepository {
	return &complianceRepository{pool: pool}
}

const complianceColumns = `ticket_id, tenant_id, dimension, policy_id, target_minutes,
               elapsed_minutes, status, met_at, breached_at, evaluated_at, created_at`

func (r *complianceRepository) Get(ctx context.Context, ticketID string, dimension domain.SLADimension) (*domain.SLAComplianceRecord, error) {
	const query = `
        SELECT ` + complianceColumns + `
        FROM sla_compliance_records WHERE ticket_id=$1 AND dimension=$2`
	row := r.pool.QueryRow(ctx, query, ticketID, dimension)
	return scanComplianceRecord(row)
}

// Create inserts the initial PENDING record. A concurrent evaluator may
// have created it already; the conflict is silently ignored and the caller
// re-reads the row.
func (r *complianceRepository) Create(ctx context.Context, record *domain.SLAComplianceRecord) error {
	const query = `
        INSERT INTO sla_compliance_records
            (ticket_id, tenant_id, dimension, policy_id, target_minutes, elapsed_minutes, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (ticket_id, dimension) DO NOTHING`
	_, err := r.pool.Exec(ctx, query,
		record.TicketID,
		record.TenantID,
		record.Dimension,
		record.PolicyID,
		record.TargetMinutes,
		record.ElapsedMinutes,
		record.Status,
	)
	return err
}

func (r *complianceRepository) UpdateElapsedIfPending(ctx context.Context, ticketID string, dimension domain.SLADimension, elapsedMinutes int) (bool, error) {
	const query = `
        UPDATE sla_compliance_records
        SET elapsed_minutes=$3, evaluated_at=NOW()
        WHERE ticket_id=$1 AND dimension=$2 AND status='PENDING'`
	cmd, err := r.pool.Exec(ctx, query, ticketID, dimension, elapsedMinutes)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// FinalizeIfPending performs the single conditional PENDING -> terminal
// transition. Zero rows affected means another evaluator already finalized
// the record; callers treat that as a no-op.
func (r *complianceRepository) FinalizeIfPending(ctx context.Context, ticketID string, dimension domain.SLADimension, elapsedMinutes int, status domain.ComplianceStatus, at time.Time) (bool, error) {
	const query = `
        UPDATE sla_compliance_records
        SET elapsed_minutes=$3,
            status=$4,
            met_at=CASE WHEN $4='MET' THEN $5 ELSE met_at END,
            breached_at=CASE WHEN $4='BREACHED' THEN $5 ELSE breached_at END,
            evaluated_at=NOW()
        WHERE ticket_id=$1 AND dimension=$2 AND status='PENDING'`
	cmd, err := r.pool.Exec(ctx, query, ticketID, dimension, elapsedMinutes, status, at)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *complianceRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.SLAComplianceRecord, error) {
	const query = `
        SELECT ` + complianceColumns + `
        FROM sla_compliance_records WHERE ticket_id=$1 ORDER BY dimension`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLAComplianceRecord
	for rows.Next() {
		record, err := scanComplianceRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *record)
	}
	return result, rows.Err()
}

func (r *complianceRepository) Summary(ctx context.Context, tenantID string, from, to time.Time) ([]ComplianceSummary, error) {
	const query = `
        SELECT dimension,
               COUNT(*),
               COUNT(*) FILTER (WHERE status='MET'),
               COUNT(*) FILTER (WHERE status='BREACHED'),
               COUNT(*) FILTER (WHERE status='PENDING')
        FROM sla_compliance_records
        WHERE tenant_id=$1 AND created_at >= $2 AND created_at <= $3
        GROUP BY dimension
        ORDER BY dimension`
	rows, err := r.pool.Query(ctx, query, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ComplianceSummary
	for rows.Next() {
		var summary ComplianceSummary
		if err := rows.Scan(&summary.Dimension, &summary.Total, &summary.Met, &summary.Breached, &summary.Pending); err != nil {
			return nil, err
		}
		if resolved := summary.Met + summary.Breached; resolved > 0 {
			summary.ComplianceRate = float64(summary.Met) / float64(resolved) * 100
		}
		result = append(result, summary)
	}
	return result, rows.Err()
}

func scanComplianceRecord(row pgx.Row) (*domain.SLAComplianceRecord, error) {
	var record domain.SLAComplianceRecord
	if err := row.Scan(
		&record.TicketID,
		&record.TenantID,
		&record.Dimension,
		&record.PolicyID,
		&record.TargetMinutes,
		&record.ElapsedMinutes,
		&record.Status,
		&record.MetAt,
		&record.BreachedAt,
		&record.EvaluatedAt,
		&record.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &record, nil
}
