package sla

import (
	"strings"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// TicketAttributes are the fields policy resolution matches against.
// An empty ContractID means the ticket has no contract.
type TicketAttributes struct {
	Priority   domain.TicketPriority
	TicketType string
	CustomerID string
	ContractID string
}

// precedenceTiers order scopes from most to least specific. A matching
// policy is ranked by the first tier it is scoped to; the default policy
// ranks below all of them.
var precedenceTiers = []struct {
	name   string
	scoped func(domain.PolicyConditions) bool
}{
	{"customer", func(c domain.PolicyConditions) bool { return len(c.CustomerIDs) > 0 }},
	{"contract", func(c domain.PolicyConditions) bool { return len(c.ContractIDs) > 0 }},
	{"ticket_type", func(c domain.PolicyConditions) bool { return len(c.TicketTypes) > 0 }},
	{"priority", func(c domain.PolicyConditions) bool { return len(c.Priorities) > 0 }},
}

// defaultTier ranks default (and otherwise unconditioned) policies last.
var defaultTier = len(precedenceTiers)

// Resolve selects the single applicable policy for the ticket, or nil when
// nothing matches and no default exists. The result is independent of the
// input ordering of candidates: ties within a precedence tier go to the
// policy with the most conditions, then the lowest id.
func Resolve(attrs TicketAttributes, candidates []domain.SLAPolicy) *domain.SLAPolicy {
	var best *domain.SLAPolicy
	bestTier := 0
	for i := range candidates {
		policy := &candidates[i]
		if !policy.Active || !Matches(attrs, policy.Conditions) {
			continue
		}
		tier := policyTier(policy)
		if best == nil || ranksAbove(policy, tier, best, bestTier) {
			best = policy
			bestTier = tier
		}
	}
	return best
}

// Matches reports whether every specified condition accepts the ticket.
// Empty condition sets match any value.
func Matches(attrs TicketAttributes, c domain.PolicyConditions) bool {
	if len(c.Priorities) > 0 && !containsPriority(c.Priorities, attrs.Priority) {
		return false
	}
	if len(c.TicketTypes) > 0 && !containsString(c.TicketTypes, attrs.TicketType) {
		return false
	}
	if len(c.CustomerIDs) > 0 && !containsString(c.CustomerIDs, attrs.CustomerID) {
		return false
	}
	if len(c.ContractIDs) > 0 && !containsString(c.ContractIDs, attrs.ContractID) {
		return false
	}
	return true
}

func policyTier(policy *domain.SLAPolicy) int {
	for i, tier := range precedenceTiers {
		if tier.scoped(policy.Conditions) {
			return i
		}
	}
	return defaultTier
}

func ranksAbove(p *domain.SLAPolicy, tier int, current *domain.SLAPolicy, currentTier int) bool {
	if tier != currentTier {
		return tier < currentTier
	}
	if pc, cc := p.Conditions.Count(), current.Conditions.Count(); pc != cc {
		return pc > cc
	}
	return strings.Compare(p.ID, current.ID) < 0
}

func containsPriority(set []domain.TicketPriority, value domain.TicketPriority) bool {
	for _, candidate := range set {
		if candidate == value {
			return true
		}
	}
	return false
}

func containsString(set []string, value string) bool {
	if value == "" {
		return false
	}
	for _, candidate := range set {
		if candidate == value {
			return true
		}
	}
	return false
}
