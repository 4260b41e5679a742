package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

type stubAlertRepo struct {
	alert  *domain.SLABreachAlert
	ackErr error

	ackedID    string
	ackedActor string
}

func (s *stubAlertRepo) Exists(context.Context, string, domain.SLADimension, domain.AlertLevel) (bool, error) {
	return false, nil
}

func (s *stubAlertRepo) Insert(context.Context, *domain.SLABreachAlert) error {
	return nil
}

func (s *stubAlertRepo) Acknowledge(_ context.Context, alertID, actor string) error {
	if s.ackErr != nil {
		return s.ackErr
	}
	s.ackedID = alertID
	s.ackedActor = actor
	return nil
}

func (s *stubAlertRepo) GetByID(_ context.Context, alertID string) (*domain.SLABreachAlert, error) {
	if s.alert == nil || s.alert.ID != alertID {
		return nil, pgx.ErrNoRows
	}
	return s.alert, nil
}

func (s *stubAlertRepo) List(context.Context, repository.AlertFilter) ([]domain.SLABreachAlert, error) {
	if s.alert == nil {
		return nil, nil
	}
	return []domain.SLABreachAlert{*s.alert}, nil
}

func newAlertsApp(repo repository.AlertRepository) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"code": domainErr.Code})
		}
		return nil
	})
	handler := NewAlertsHandler(repo)
	app.Get("/alerts", handler.List)
	app.Post("/alerts/:id/ack", handler.Acknowledge)
	return app
}

func ackRequest(alertID, actor string) *http.Request {
	body, _ := json.Marshal(map[string]string{"actor": actor}) //nolint:errcheck
	req := httptest.NewRequest(http.MethodPost, "/alerts/"+alertID+"/ack", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAcknowledgeAlert(t *testing.T) {
	repo := &stubAlertRepo{alert: &domain.SLABreachAlert{
		ID:        "alert-1",
		TenantID:  "t1",
		TicketID:  "tick-1",
		Dimension: domain.DimensionFirstResponse,
		Level:     domain.AlertLevelCritical,
	}}
	app := newAlertsApp(repo)

	resp, err := app.Test(ackRequest("alert-1", "ops-oncall"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "alert-1", repo.ackedID)
	require.Equal(t, "ops-oncall", repo.ackedActor)
}

func TestAcknowledgeUnknownAlertIs404(t *testing.T) {
	// The store reports the missing row as a wrapped pgx.ErrNoRows, the
	// way query helpers surface it.
	repo := &stubAlertRepo{ackErr: fmt.Errorf("acknowledge alert: %w", pgx.ErrNoRows)}
	app := newAlertsApp(repo)

	resp, err := app.Test(ackRequest("alert-missing", "ops-oncall"))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAcknowledgeRequiresActor(t *testing.T) {
	app := newAlertsApp(&stubAlertRepo{})

	resp, err := app.Test(ackRequest("alert-1", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
