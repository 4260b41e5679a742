package sla

import "github.com/spec-kit/sla-engine/internal/domain"

// Thresholds are the tenant-wide default breach thresholds, copied onto
// every resolved target so evaluation never reads ambient configuration.
type Thresholds struct {
	WarningPercent  float64
	CriticalPercent float64
}

// DefaultThresholds mirror the platform defaults of 80/95 percent.
var DefaultThresholds = Thresholds{WarningPercent: 80, CriticalPercent: 95}

// Target is the resolved, per-ticket SLA budget. Ephemeral, never persisted.
type Target struct {
	PolicyID             string
	FirstResponseMinutes int
	ResolutionMinutes    int
	Hours                *domain.BusinessHoursProfile
	WarningPercent       float64
	CriticalPercent      float64
	AutoEscalate         bool
}

// BuildTarget derives the target for one ticket from the resolved policy,
// falling back to the global threshold defaults when the policy leaves
// them unset.
func BuildTarget(policy *domain.SLAPolicy, priority domain.TicketPriority, defaults Thresholds) Target {
	target := Target{
		PolicyID:             policy.ID,
		FirstResponseMinutes: policy.FirstResponseMinutes[priority],
		ResolutionMinutes:    policy.ResolutionMinutes[priority],
		Hours:                policy.Hours,
		WarningPercent:       policy.WarningPercent,
		CriticalPercent:      policy.CriticalPercent,
		AutoEscalate:         policy.AutoEscalate,
	}
	if target.WarningPercent <= 0 {
		target.WarningPercent = defaults.WarningPercent
	}
	if target.CriticalPercent <= 0 {
		target.CriticalPercent = defaults.CriticalPercent
	}
	return target
}

// TargetMinutes returns the budget for the given dimension.
func (t Target) TargetMinutes(dimension domain.SLADimension) int {
	if dimension == domain.DimensionFirstResponse {
		return t.FirstResponseMinutes
	}
	return t.ResolutionMinutes
}
