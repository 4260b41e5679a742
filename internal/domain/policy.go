package domain

import "time"

// BusinessHoursProfile describes the working window an SLA policy counts
// time against. A nil profile on a policy means 24/7 calendar time.
type BusinessHoursProfile struct {
	StartTime string // "HH:MM" local wall-clock
	EndTime   string // "HH:MM" local wall-clock
	Weekdays  []time.Weekday
	Timezone  string // IANA name, e.g. "Europe/Berlin"
}

// WorksOn reports whether the given weekday is part of the profile.
func (p *BusinessHoursProfile) WorksOn(day time.Weekday) bool {
	for _, d := range p.Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// PolicyConditions restrict which tickets a policy applies to. An empty
// set on a field matches any value of that field.
type PolicyConditions struct {
	Priorities  []TicketPriority
	TicketTypes []string
	CustomerIDs []string
	ContractIDs []string
}

// Count returns the number of condition fields that are specified, used
// as the specificity tie-breaker during policy resolution.
func (c PolicyConditions) Count() int {
	n := 0
	if len(c.Priorities) > 0 {
		n++
	}
	if len(c.TicketTypes) > 0 {
		n++
	}
	if len(c.CustomerIDs) > 0 {
		n++
	}
	if len(c.ContractIDs) > 0 {
		n++
	}
	return n
}

// SLAPolicy is the configuration entity owned by the policy subsystem.
// The engine only reads it.
type SLAPolicy struct {
	ID       string
	TenantID string
	Name     string

	// Targets in minutes, keyed by ticket priority.
	FirstResponseMinutes map[TicketPriority]int
	ResolutionMinutes    map[TicketPriority]int

	// Hours is nil for 24/7 calendar-time policies.
	Hours *BusinessHoursProfile

	WarningPercent  float64
	CriticalPercent float64
	AutoEscalate    bool

	Conditions PolicyConditions
	IsDefault  bool
	Active     bool
}
