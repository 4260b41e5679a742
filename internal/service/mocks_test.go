package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/gateway"
	"github.com/spec-kit/sla-engine/internal/repository"
)

type recordKey struct {
	ticketID  string
	dimension domain.SLADimension
}

type mockPolicyRepo struct {
	policies map[string][]domain.SLAPolicy
	listErr  error
}

func (m *mockPolicyRepo) ListActiveByTenant(_ context.Context, tenantID string) ([]domain.SLAPolicy, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.policies[tenantID], nil
}

func (m *mockPolicyRepo) ListTenants(context.Context) ([]string, error) {
	tenants := make([]string, 0, len(m.policies))
	for tenant := range m.policies {
		tenants = append(tenants, tenant)
	}
	return tenants, nil
}

// mockComplianceRepo mirrors the store's conditional-update contract:
// transitions only land on rows still in PENDING.
type mockComplianceRepo struct {
	mu      sync.Mutex
	records map[recordKey]*domain.SLAComplianceRecord
}

func newMockComplianceRepo() *mockComplianceRepo {
	return &mockComplianceRepo{records: make(map[recordKey]*domain.SLAComplianceRecord)}
}

func (m *mockComplianceRepo) Get(_ context.Context, ticketID string, dimension domain.SLADimension) (*domain.SLAComplianceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[recordKey{ticketID, dimension}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *record
	return &copied, nil
}

func (m *mockComplianceRepo) Create(_ context.Context, record *domain.SLAComplianceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := recordKey{record.TicketID, record.Dimension}
	if _, ok := m.records[key]; ok {
		return nil
	}
	copied := *record
	copied.CreatedAt = time.Now()
	m.records[key] = &copied
	return nil
}

func (m *mockComplianceRepo) UpdateElapsedIfPending(_ context.Context, ticketID string, dimension domain.SLADimension, elapsedMinutes int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[recordKey{ticketID, dimension}]
	if !ok || record.Status != domain.ComplianceStatusPending {
		return false, nil
	}
	record.ElapsedMinutes = elapsedMinutes
	record.EvaluatedAt = time.Now()
	return true, nil
}

func (m *mockComplianceRepo) FinalizeIfPending(_ context.Context, ticketID string, dimension domain.SLADimension, elapsedMinutes int, status domain.ComplianceStatus, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[recordKey{ticketID, dimension}]
	if !ok || record.Status != domain.ComplianceStatusPending {
		return false, nil
	}
	record.ElapsedMinutes = elapsedMinutes
	record.Status = status
	if status == domain.ComplianceStatusMet {
		record.MetAt = &at
	} else {
		record.BreachedAt = &at
	}
	record.EvaluatedAt = time.Now()
	return true, nil
}

func (m *mockComplianceRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.SLAComplianceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.SLAComplianceRecord
	for key, record := range m.records {
		if key.ticketID == ticketID {
			result = append(result, *record)
		}
	}
	return result, nil
}

func (m *mockComplianceRepo) Summary(context.Context, string, time.Time, time.Time) ([]repository.ComplianceSummary, error) {
	return nil, nil
}

func (m *mockComplianceRepo) get(ticketID string, dimension domain.SLADimension) *domain.SLAComplianceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[recordKey{ticketID, dimension}]
	if !ok {
		return nil
	}
	copied := *record
	return &copied
}

func (m *mockComplianceRepo) seed(record domain.SLAComplianceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[recordKey{record.TicketID, record.Dimension}] = &record
}

type alertKey struct {
	ticketID  string
	dimension domain.SLADimension
	level     domain.AlertLevel
}

// mockAlertRepo enforces the unique (ticket, dimension, level) triple the
// way the store's index does. staleExists simulates a racing evaluator
// whose Exists pre-check reads before the winner's insert is visible.
type mockAlertRepo struct {
	mu          sync.Mutex
	alerts      map[alertKey]*domain.SLABreachAlert
	staleExists bool
}

func newMockAlertRepo() *mockAlertRepo {
	return &mockAlertRepo{alerts: make(map[alertKey]*domain.SLABreachAlert)}
}

func (m *mockAlertRepo) Exists(_ context.Context, ticketID string, dimension domain.SLADimension, level domain.AlertLevel) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.staleExists {
		return false, nil
	}
	_, ok := m.alerts[alertKey{ticketID, dimension, level}]
	return ok, nil
}

func (m *mockAlertRepo) Insert(_ context.Context, alert *domain.SLABreachAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := alertKey{alert.TicketID, alert.Dimension, alert.Level}
	if _, ok := m.alerts[key]; ok {
		return repository.ErrDuplicateAlert
	}
	copied := *alert
	copied.CreatedAt = time.Now()
	m.alerts[key] = &copied
	return nil
}

func (m *mockAlertRepo) Acknowledge(_ context.Context, alertID, actor string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, alert := range m.alerts {
		if alert.ID == alertID && !alert.Acknowledged {
			alert.Acknowledged = true
			alert.AcknowledgedBy = &actor
			alert.AcknowledgedAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *mockAlertRepo) GetByID(_ context.Context, alertID string) (*domain.SLABreachAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, alert := range m.alerts {
		if alert.ID == alertID {
			copied := *alert
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockAlertRepo) List(_ context.Context, filter repository.AlertFilter) ([]domain.SLABreachAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.SLABreachAlert
	for _, alert := range m.alerts {
		if filter.TicketID != nil && alert.TicketID != *filter.TicketID {
			continue
		}
		if filter.Unacknowledged && alert.Acknowledged {
			continue
		}
		result = append(result, *alert)
	}
	return result, nil
}

func (m *mockAlertRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.alerts)
}

func (m *mockAlertRepo) has(ticketID string, dimension domain.SLADimension, level domain.AlertLevel) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.alerts[alertKey{ticketID, dimension, level}]
	return ok
}

func (m *mockAlertRepo) seed(alert domain.SLABreachAlert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[alertKey{alert.TicketID, alert.Dimension, alert.Level}] = &alert
}

// mockEscalationRepo replays the claim semantics: an already-claimed pair
// is a no-op and a failed effects closure leaves no claim behind.
type mockEscalationRepo struct {
	mu     sync.Mutex
	claims map[recordKey]domain.EscalationClaim
}

func newMockEscalationRepo() *mockEscalationRepo {
	return &mockEscalationRepo{claims: make(map[recordKey]domain.EscalationClaim)}
}

func (m *mockEscalationRepo) Escalate(ctx context.Context, ticketID string, dimension domain.SLADimension, effects func(context.Context) error) (bool, error) {
	m.mu.Lock()
	_, claimed := m.claims[recordKey{ticketID, dimension}]
	m.mu.Unlock()
	if claimed {
		return false, nil
	}
	if err := effects(ctx); err != nil {
		return false, err
	}
	m.mu.Lock()
	m.claims[recordKey{ticketID, dimension}] = domain.EscalationClaim{
		TicketID:    ticketID,
		Dimension:   dimension,
		EscalatedAt: time.Now(),
	}
	m.mu.Unlock()
	return true, nil
}

func (m *mockEscalationRepo) IsEscalated(_ context.Context, ticketID string, dimension domain.SLADimension) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.claims[recordKey{ticketID, dimension}]
	return ok, nil
}

func (m *mockEscalationRepo) Get(_ context.Context, ticketID string, dimension domain.SLADimension) (*domain.EscalationClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	claim, ok := m.claims[recordKey{ticketID, dimension}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &claim, nil
}

func (m *mockEscalationRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.claims)
}

// mockTicketGateway records every write-back so tests can assert the exact
// escalation effects that reached the ticket subsystem.
type mockTicketGateway struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	open    []domain.Ticket

	priorityUpdates []domain.TicketPriority
	assignments     []string
	statusUpdates   []domain.TicketStatus
	comments        []string

	getErr      error
	listErr     error
	priorityErr error
	assignErr   error
	statusErr   error
	commentErr  error
}

func newMockTicketGateway(tickets ...*domain.Ticket) *mockTicketGateway {
	m := &mockTicketGateway{tickets: make(map[string]*domain.Ticket)}
	for _, ticket := range tickets {
		m.tickets[ticket.ID] = ticket
	}
	return m
}

func (m *mockTicketGateway) GetTicket(_ context.Context, ticketID string) (*domain.Ticket, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	ticket, ok := m.tickets[ticketID]
	if !ok {
		return nil, gateway.ErrTicketNotFound
	}
	copied := *ticket
	return &copied, nil
}

func (m *mockTicketGateway) ListOpenTickets(_ context.Context, _, afterID string, limit int) ([]domain.Ticket, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var page []domain.Ticket
	for _, ticket := range m.open {
		if ticket.ID <= afterID {
			continue
		}
		page = append(page, ticket)
		if len(page) == limit {
			break
		}
	}
	return page, nil
}

func (m *mockTicketGateway) UpdatePriority(_ context.Context, ticketID string, priority domain.TicketPriority) error {
	if m.priorityErr != nil {
		return m.priorityErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.priorityUpdates = append(m.priorityUpdates, priority)
	if ticket, ok := m.tickets[ticketID]; ok {
		ticket.Priority = priority
	}
	return nil
}

func (m *mockTicketGateway) Assign(_ context.Context, ticketID, assigneeID string) error {
	if m.assignErr != nil {
		return m.assignErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments = append(m.assignments, assigneeID)
	if ticket, ok := m.tickets[ticketID]; ok {
		ticket.AssigneeID = &assigneeID
	}
	return nil
}

func (m *mockTicketGateway) UpdateStatus(_ context.Context, ticketID string, status domain.TicketStatus) error {
	if m.statusErr != nil {
		return m.statusErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusUpdates = append(m.statusUpdates, status)
	if ticket, ok := m.tickets[ticketID]; ok {
		ticket.Status = status
	}
	return nil
}

func (m *mockTicketGateway) AppendSystemComment(_ context.Context, _, body string) error {
	if m.commentErr != nil {
		return m.commentErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments = append(m.comments, body)
	return nil
}

func (m *mockTicketGateway) mutationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.priorityUpdates) + len(m.assignments) + len(m.statusUpdates) + len(m.comments)
}
