package economy

import (
	"fmt"

	"github.com/talgya/chronicle/internal/ecs"
	"github.com/talgya/chronicle/internal/treaty"
)

// TradeRoute is a directed link carrying goods from Source to Target.
type TradeRoute struct {
	ID            ecs.TradeRouteID `json:"id"`
	Source        ecs.SiteID       `json:"source"`
	Target        ecs.SiteID       `json:"target"`
	SourceFaction ecs.FactionID    `json:"source_faction"`
	TargetFaction ecs.FactionID    `json:"target_faction"`
	Resources     []Resource       `json:"resources"`
	Volume        float64          `json:"volume"`        // Units per month at last execution
	Safety        float64          `json:"safety"`        // 0–100
	Profitability float64          `json:"profitability"` // Percent margin at last evaluation
	EstablishedAt uint64           `json:"established_at"`
	Executions    int              `json:"executions"`
	Delivered     float64          `json:"delivered"` // Cumulative units moved

	// Suspended resources no longer move on this route.
	Suspended map[Resource]bool `json:"suspended,omitempty"`
	// Violations already reported, keyed by resource and treaty.
	reported map[violationKey]bool
}

type violationKey struct {
	resource Resource
	treaty   ecs.TreatyID
}

// IsNew reports whether the route has not yet carried goods.
func (r *TradeRoute) IsNew() bool {
	return r.Executions == 0
}

// Carries reports whether res moves on the route and is not suspended.
func (r *TradeRoute) Carries(res Resource) bool {
	if r.Suspended[res] {
		return false
	}
	for _, x := range r.Resources {
		if x == res {
			return true
		}
	}
	return false
}

// Connects reports whether the route links a and b in either direction.
func (r *TradeRoute) Connects(a, b ecs.SiteID) bool {
	return (r.Source == a && r.Target == b) || (r.Source == b && r.Target == a)
}

// RouteSafety derives a safety rating from hex distance: 100 next door,
// five points lost per hex, never below 10.
func RouteSafety(distance int) float64 {
	s := 100 - 5*float64(distance)
	if s < 10 {
		return 10
	}
	if s > 100 {
		return 100
	}
	return s
}

// CalculateTradeProfitability returns the percentage margin of buying r at
// source and selling at target. Zero when prices match; negative when the
// target is cheaper.
func CalculateTradeProfitability(source, target *Market, r Resource) float64 {
	sp := source.Price(r)
	if sp <= 0 {
		return 0
	}
	return (target.Price(r) - sp) / sp * 100
}

// TradeDecision is the answer to "may these factions trade this resource".
type TradeDecision struct {
	Allowed bool
	Reason  string
	// Blocking is the term that forbids the trade, when there is one.
	Blocking *treaty.ActiveTerm
}

// TreatyQuery is the part of treaty enforcement the economy consults.
// *treaty.Enforcement satisfies it.
type TreatyQuery interface {
	ExclusivityTerms(faction ecs.FactionID, resource string) []treaty.ActiveTerm
}

// CheckTradeAllowed consults active exclusivity terms binding a. Trade is
// refused when a is bound to a term covering r that excludes b; terms
// binding only b do not restrict a. A nil query allows everything.
func CheckTradeAllowed(a, b ecs.FactionID, r Resource, enf TreatyQuery) TradeDecision {
	if enf == nil {
		return TradeDecision{Allowed: true, Reason: "no treaty enforcement"}
	}
	if t := blockingTerm(a, b, r, enf); t != nil {
		return TradeDecision{
			Allowed:  false,
			Reason:   fmt.Sprintf("trade exclusivity: %s binds faction %d to trade %s only within its parties", t.Treaty, a, r),
			Blocking: t,
		}
	}
	return TradeDecision{Allowed: true}
}

// checkRouteAllowed applies CheckTradeAllowed from both ends: a route moves
// goods between two factions, so a term binding either one blocks it.
func checkRouteAllowed(a, b ecs.FactionID, r Resource, enf TreatyQuery) TradeDecision {
	if d := CheckTradeAllowed(a, b, r, enf); !d.Allowed {
		return d
	}
	return CheckTradeAllowed(b, a, r, enf)
}

// blockingTerm returns the first term binding bound on r that excludes
// partner.
func blockingTerm(bound, partner ecs.FactionID, r Resource, enf TreatyQuery) *treaty.ActiveTerm {
	for _, t := range enf.ExclusivityTerms(bound, r.String()) {
		if !t.Binds(partner) {
			term := t
			return &term
		}
	}
	return nil
}

// CalculateTradeVolume scales a base volume by route safety (a quarter of
// the volume moves even on the most dangerous road) and by profitability
// (losing routes still trickle, at no less than a tenth). New routes carry
// half while they ramp up.
func CalculateTradeVolume(baseVolume, safety, profitability float64, isNew bool) float64 {
	if baseVolume <= 0 {
		return 0
	}
	if safety < 0 {
		safety = 0
	}
	if safety > 100 {
		safety = 100
	}
	safetyFactor := 0.25 + 0.75*safety/100
	profitFactor := 1 + profitability/100
	if profitFactor < 0.1 {
		profitFactor = 0.1
	}
	v := baseVolume * safetyFactor * profitFactor
	if isNew {
		v *= 0.5
	}
	return v
}
