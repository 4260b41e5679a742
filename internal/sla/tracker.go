package sla

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// TicketTimes are the ticket timestamps compliance is computed from.
// The resolution clock runs from CreatedAt as well; first response does
// not reset it.
type TicketTimes struct {
	CreatedAt        time.Time
	FirstRespondedAt *time.Time
	ResolvedAt       *time.Time
}

// DimensionResult is the outcome of evaluating one SLA dimension.
type DimensionResult struct {
	ElapsedMinutes int
	Status         domain.ComplianceStatus
	// CompletedAt is the timestamp that froze the dimension (first response
	// or resolution), nil while the clock is still running.
	CompletedAt *time.Time
}

// Evaluation holds both dimension results for one ticket.
type Evaluation struct {
	FirstResponse DimensionResult
	Resolution    DimensionResult
}

// Result returns the evaluation for the given dimension.
func (e Evaluation) Result(dimension domain.SLADimension) DimensionResult {
	if dimension == domain.DimensionFirstResponse {
		return e.FirstResponse
	}
	return e.Resolution
}

// Tracker computes compliance results from ticket timestamps and a resolved
// target. It is pure: persistence-side monotonicity (never downgrading a
// terminal record) is the caller's contract.
type Tracker struct {
	clock *Clock
}

// NewTracker constructs a Tracker on top of the business clock.
func NewTracker(clock *Clock) *Tracker {
	return &Tracker{clock: clock}
}

// Evaluate computes both dimensions at the given instant.
func (t *Tracker) Evaluate(times TicketTimes, target Target, now time.Time) Evaluation {
	return Evaluation{
		FirstResponse: t.evaluateDimension(times.CreatedAt, times.FirstRespondedAt, target.FirstResponseMinutes, target.Hours, now),
		Resolution:    t.evaluateDimension(times.CreatedAt, times.ResolvedAt, target.ResolutionMinutes, target.Hours, now),
	}
}

func (t *Tracker) evaluateDimension(baseline time.Time, completedAt *time.Time, targetMinutes int, hours *domain.BusinessHoursProfile, now time.Time) DimensionResult {
	if completedAt != nil {
		elapsed := t.clock.ElapsedBusinessMinutes(baseline, *completedAt, hours)
		status := domain.ComplianceStatusMet
		if elapsed > targetMinutes {
			status = domain.ComplianceStatusBreached
		}
		return DimensionResult{ElapsedMinutes: elapsed, Status: status, CompletedAt: completedAt}
	}

	elapsed := t.clock.ElapsedBusinessMinutes(baseline, now, hours)
	status := domain.ComplianceStatusPending
	if elapsed > targetMinutes {
		status = domain.ComplianceStatusBreached
	}
	return DimensionResult{ElapsedMinutes: elapsed, Status: status}
}
