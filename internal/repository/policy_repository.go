package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// PolicyRepository reads SLA policies. The policy subsystem owns the rows;
// this engine never writes them.
type PolicyRepository interface {
	ListActiveByTenant(ctx context.Context, tenantID string) ([]domain.SLAPolicy, error)
	ListTenants(ctx context.Context) ([]string, error)
}

type policyRepository struct {
	pool *pgxpool.Pool
}

// NewPolicyRepository instantiates the repository.
func NewPolicyRepository(pool *pgxpool.Pool) PolicyRepository {
	return &policyRepository{pool: pool}
}

// policyConditionsRow is the JSONB shape of the conditions column.
type policyConditionsRow struct {
	Priorities  []domain.TicketPriority `json:"priorities,omitempty"`
	TicketTypes []string                `json:"ticket_types,omitempty"`
	CustomerIDs []string                `json:"customer_ids,omitempty"`
	ContractIDs []string                `json:"contract_ids,omitempty"`
}

// businessHoursRow is the JSONB shape of the business_hours column.
type businessHoursRow struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Weekdays  []int  `json:"weekdays"`
	Timezone  string `json:"timezone"`
}

func (r *policyRepository) ListActiveByTenant(ctx context.Context, tenantID string) ([]domain.SLAPolicy, error) {
	const query = `
        SELECT id, tenant_id, name, first_response_minutes, resolution_minutes,
               business_hours, warning_percent, critical_percent, auto_escalate,
               conditions, is_default, active
        FROM sla_policies
        WHERE tenant_id=$1 AND active=true
        ORDER BY id`
	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPolicies(rows)
}

func (r *policyRepository) ListTenants(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT tenant_id FROM sla_policies WHERE active=true ORDER BY tenant_id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []string
	for rows.Next() {
		var tenant string
		if err := rows.Scan(&tenant); err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}

func scanPolicies(rows pgx.Rows) ([]domain.SLAPolicy, error) {
	var result []domain.SLAPolicy
	for rows.Next() {
		var (
			policy        domain.SLAPolicy
			firstResponse []byte
			resolution    []byte
			hours         []byte
			conditions    []byte
		)
		if err := rows.Scan(
			&policy.ID,
			&policy.TenantID,
			&policy.Name,
			&firstResponse,
			&resolution,
			&hours,
			&policy.WarningPercent,
			&policy.CriticalPercent,
			&policy.AutoEscalate,
			&conditions,
			&policy.IsDefault,
			&policy.Active,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(firstResponse, &policy.FirstResponseMinutes); err != nil {
			return nil, fmt.Errorf("policy %s: first_response_minutes: %w", policy.ID, err)
		}
		if err := json.Unmarshal(resolution, &policy.ResolutionMinutes); err != nil {
			return nil, fmt.Errorf("policy %s: resolution_minutes: %w", policy.ID, err)
		}
		if len(hours) > 0 && string(hours) != "null" {
			var row businessHoursRow
			if err := json.Unmarshal(hours, &row); err != nil {
				return nil, fmt.Errorf("policy %s: business_hours: %w", policy.ID, err)
			}
			policy.Hours = row.toDomain()
		}
		if len(conditions) > 0 && string(conditions) != "null" {
			var row policyConditionsRow
			if err := json.Unmarshal(conditions, &row); err != nil {
				return nil, fmt.Errorf("policy %s: conditions: %w", policy.ID, err)
			}
			policy.Conditions = domain.PolicyConditions{
				Priorities:  row.Priorities,
				TicketTypes: row.TicketTypes,
				CustomerIDs: row.CustomerIDs,
				ContractIDs: row.ContractIDs,
			}
		}
		result = append(result, policy)
	}
	return result, rows.Err()
}

func (row businessHoursRow) toDomain() *domain.BusinessHoursProfile {
	weekdays := make([]time.Weekday, 0, len(row.Weekdays))
	for _, day := range row.Weekdays {
		weekdays = append(weekdays, time.Weekday(day))
	}
	return &domain.BusinessHoursProfile{
		StartTime: row.StartTime,
		EndTime:   row.EndTime,
		Weekdays:  weekdays,
		Timezone:  row.Timezone,
	}
}
