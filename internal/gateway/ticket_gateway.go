// Package gateway is the engine's client of the ticket subsystem. All
// ticket reads and escalation write-backs go through the subsystem's own
// mutation interface, never its storage.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// ErrTicketNotFound is returned when the ticket subsystem has no such
// ticket.
var ErrTicketNotFound = errors.New("ticket not found")

// TicketGateway abstracts the ticket subsystem.
type TicketGateway interface {
	GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error)
	// ListOpenTickets pages through a tenant's open tickets ordered by id,
	// returning tickets with id greater than afterID.
	ListOpenTickets(ctx context.Context, tenantID, afterID string, limit int) ([]domain.Ticket, error)
	UpdatePriority(ctx context.Context, ticketID string, priority domain.TicketPriority) error
	Assign(ctx context.Context, ticketID, assigneeID string) error
	UpdateStatus(ctx context.Context, ticketID string, status domain.TicketStatus) error
	AppendSystemComment(ctx context.Context, ticketID, body string) error
}

// HTTPTicketGateway talks to the ticket service's REST API.
type HTTPTicketGateway struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPTicketGateway constructs the client.
func NewHTTPTicketGateway(baseURL, token string, timeout time.Duration) *HTTPTicketGateway {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPTicketGateway{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ticketPayload is the wire shape of a ticket as served by the ticket
// subsystem.
type ticketPayload struct {
	ID               string     `json:"id"`
	TenantID         string     `json:"tenant_id"`
	Type             string     `json:"type"`
	Status           string     `json:"status"`
	Priority         string     `json:"priority"`
	CustomerID       string     `json:"customer_id"`
	ContractID       *string    `json:"contract_id,omitempty"`
	AssigneeID       *string    `json:"assignee_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	FirstRespondedAt *time.Time `json:"first_responded_at,omitempty"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
}

func (p ticketPayload) toDomain() domain.Ticket {
	return domain.Ticket{
		ID:               p.ID,
		TenantID:         p.TenantID,
		Type:             p.Type,
		Status:           domain.TicketStatus(p.Status),
		Priority:         domain.TicketPriority(p.Priority),
		CustomerID:       p.CustomerID,
		ContractID:       p.ContractID,
		AssigneeID:       p.AssigneeID,
		CreatedAt:        p.CreatedAt,
		FirstRespondedAt: p.FirstRespondedAt,
		ResolvedAt:       p.ResolvedAt,
	}
}

func (g *HTTPTicketGateway) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	var payload ticketPayload
	if err := g.do(ctx, http.MethodGet, "/api/v1/tickets/"+url.PathEscape(ticketID), nil, &payload); err != nil {
		return nil, err
	}
	ticket := payload.toDomain()
	return &ticket, nil
}

func (g *HTTPTicketGateway) ListOpenTickets(ctx context.Context, tenantID, afterID string, limit int) ([]domain.Ticket, error) {
	query := url.Values{}
	query.Set("tenant_id", tenantID)
	query.Set("open", "true")
	query.Set("sort", "id")
	if afterID != "" {
		query.Set("after_id", afterID)
	}
	if limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", limit))
	}

	var payload []ticketPayload
	if err := g.do(ctx, http.MethodGet, "/api/v1/tickets?"+query.Encode(), nil, &payload); err != nil {
		return nil, err
	}
	tickets := make([]domain.Ticket, 0, len(payload))
	for _, p := range payload {
		tickets = append(tickets, p.toDomain())
	}
	return tickets, nil
}

func (g *HTTPTicketGateway) UpdatePriority(ctx context.Context, ticketID string, priority domain.TicketPriority) error {
	body := map[string]string{"priority": string(priority)}
	return g.do(ctx, http.MethodPatch, "/api/v1/tickets/"+url.PathEscape(ticketID)+"/priority", body, nil)
}

func (g *HTTPTicketGateway) Assign(ctx context.Context, ticketID, assigneeID string) error {
	body := map[string]string{"assignee_id": assigneeID}
	return g.do(ctx, http.MethodPatch, "/api/v1/tickets/"+url.PathEscape(ticketID)+"/assignee", body, nil)
}

func (g *HTTPTicketGateway) UpdateStatus(ctx context.Context, ticketID string, status domain.TicketStatus) error {
	body := map[string]string{"status": string(status)}
	return g.do(ctx, http.MethodPatch, "/api/v1/tickets/"+url.PathEscape(ticketID)+"/status", body, nil)
}

func (g *HTTPTicketGateway) AppendSystemComment(ctx context.Context, ticketID, body string) error {
	payload := map[string]string{"body": body, "author_type": "SYSTEM"}
	return g.do(ctx, http.MethodPost, "/api/v1/tickets/"+url.PathEscape(ticketID)+"/comments", payload, nil)
}

func (g *HTTPTicketGateway) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ticket service %s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return ErrTicketNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ticket service %s %s: status %d: %s", method, path, resp.StatusCode, string(data))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
