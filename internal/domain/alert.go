package domain

import "time"

// AlertLevel grades a breach alert.
type AlertLevel string

const (
	AlertLevelWarning  AlertLevel = "WARNING"
	AlertLevelCritical AlertLevel = "CRITICAL"
)

// SLABreachAlert is persisted at most once per (ticket, dimension, level).
type SLABreachAlert struct {
	ID             string
	TenantID       string
	TicketID       string
	Dimension      SLADimension
	Level          AlertLevel
	PolicyID       string
	ElapsedMinutes int
	TargetMinutes  int
	CreatedAt      time.Time
	Acknowledged   bool
	AcknowledgedBy *string
	AcknowledgedAt *time.Time
}
