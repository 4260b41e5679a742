package sla

import "github.com/spec-kit/sla-engine/internal/domain"

// Detect returns the highest alert level the record has crossed, if any.
// A hard breach is always CRITICAL; while the clock is still running,
// crossing the critical or warning percentage of the budget surfaces
// early. A met dimension never alerts, and a zero-minute budget is
// immediately critical. Deduplication against already-emitted alerts is
// the caller's job, backed by the alert store's uniqueness constraint.
func Detect(status domain.ComplianceStatus, elapsedMinutes, targetMinutes int, warningPct, criticalPct float64) (domain.AlertLevel, bool) {
	if status == domain.ComplianceStatusBreached {
		return domain.AlertLevelCritical, true
	}
	if status == domain.ComplianceStatusMet {
		return "", false
	}
	if targetMinutes <= 0 {
		return domain.AlertLevelCritical, true
	}
	percentUsed := float64(elapsedMinutes) / float64(targetMinutes) * 100
	switch {
	case percentUsed >= criticalPct:
		return domain.AlertLevelCritical, true
	case percentUsed >= warningPct:
		return domain.AlertLevelWarning, true
	default:
		return "", false
	}
}
