package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-engine/internal/domain"
)

func TestGetTicket(t *testing.T) {
	created := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	responded := created.Add(30 * time.Minute)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/v1/tickets/tick-1", r.URL.Path)
		require.Equal(t, "Bearer svc-token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(ticketPayload{ //nolint:errcheck
			ID:               "tick-1",
			TenantID:         "t1",
			Type:             "incident",
			Status:           "OPEN",
			Priority:         "HIGH",
			CustomerID:       "cust-1",
			CreatedAt:        created,
			FirstRespondedAt: &responded,
		})
	}))
	defer server.Close()

	client := NewHTTPTicketGateway(server.URL, "svc-token", time.Second)
	ticket, err := client.GetTicket(context.Background(), "tick-1")
	require.NoError(t, err)
	require.Equal(t, "tick-1", ticket.ID)
	require.Equal(t, domain.TicketStatusOpen, ticket.Status)
	require.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
	require.True(t, created.Equal(ticket.CreatedAt))
	require.NotNil(t, ticket.FirstRespondedAt)
	require.Nil(t, ticket.ResolvedAt)
}

func TestGetTicketNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewHTTPTicketGateway(server.URL, "", time.Second)
	_, err := client.GetTicket(context.Background(), "tick-missing")
	require.ErrorIs(t, err, ErrTicketNotFound)
}

func TestGetTicketServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPTicketGateway(server.URL, "", time.Second)
	_, err := client.GetTicket(context.Background(), "tick-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 500")
}

func TestListOpenTicketsQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		require.Equal(t, "t1", query.Get("tenant_id"))
		require.Equal(t, "true", query.Get("open"))
		require.Equal(t, "tick-5", query.Get("after_id"))
		require.Equal(t, "100", query.Get("limit"))

		json.NewEncoder(w).Encode([]ticketPayload{ //nolint:errcheck
			{ID: "tick-6", TenantID: "t1", Status: "OPEN", Priority: "LOW"},
			{ID: "tick-7", TenantID: "t1", Status: "OPEN", Priority: "HIGH"},
		})
	}))
	defer server.Close()

	client := NewHTTPTicketGateway(server.URL, "", time.Second)
	tickets, err := client.ListOpenTickets(context.Background(), "t1", "tick-5", 100)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	require.Equal(t, "tick-6", tickets[0].ID)
}

func TestEscalationWriteBacks(t *testing.T) {
	type call struct {
		method string
		path   string
		body   map[string]string
	}
	var calls []call

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		calls = append(calls, call{method: r.Method, path: r.URL.Path, body: body})
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPTicketGateway(server.URL, "", time.Second)
	ctx := context.Background()
	require.NoError(t, client.UpdatePriority(ctx, "tick-1", domain.TicketPriorityUrgent))
	require.NoError(t, client.Assign(ctx, "tick-1", "agent-7"))
	require.NoError(t, client.UpdateStatus(ctx, "tick-1", domain.TicketStatusInProgress))
	require.NoError(t, client.AppendSystemComment(ctx, "tick-1", "SLA breach"))

	require.Len(t, calls, 4)
	require.Equal(t, call{http.MethodPatch, "/api/v1/tickets/tick-1/priority", map[string]string{"priority": "URGENT"}}, calls[0])
	require.Equal(t, call{http.MethodPatch, "/api/v1/tickets/tick-1/assignee", map[string]string{"assignee_id": "agent-7"}}, calls[1])
	require.Equal(t, call{http.MethodPatch, "/api/v1/tickets/tick-1/status", map[string]string{"status": "IN_PROGRESS"}}, calls[2])
	require.Equal(t, call{http.MethodPost, "/api/v1/tickets/tick-1/comments", map[string]string{"body": "SLA breach", "author_type": "SYSTEM"}}, calls[3])
}
