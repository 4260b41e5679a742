package domain

import "time"

// SLADimension identifies which SLA clock a record tracks.
type SLADimension string

const (
	DimensionFirstResponse SLADimension = "FIRST_RESPONSE"
	DimensionResolution    SLADimension = "RESOLUTION"
)

// Dimensions lists all tracked dimensions in evaluation order.
var Dimensions = []SLADimension{DimensionFirstResponse, DimensionResolution}

// ComplianceStatus is the state of one SLA dimension for one ticket.
// Transitions are monotonic: PENDING moves to MET or BREACHED exactly once.
type ComplianceStatus string

const (
	ComplianceStatusPending  ComplianceStatus = "PENDING"
	ComplianceStatusMet      ComplianceStatus = "MET"
	ComplianceStatusBreached ComplianceStatus = "BREACHED"
)

// Terminal reports whether the status can no longer change.
func (s ComplianceStatus) Terminal() bool {
	return s == ComplianceStatusMet || s == ComplianceStatusBreached
}

// SLAComplianceRecord is one row per ticket per dimension, owned by this
// engine.
type SLAComplianceRecord struct {
	TicketID       string
	TenantID       string
	Dimension      SLADimension
	PolicyID       string
	TargetMinutes  int
	ElapsedMinutes int
	Status         ComplianceStatus
	MetAt          *time.Time
	BreachedAt     *time.Time
	EvaluatedAt    time.Time
	CreatedAt      time.Time
}
