package economy

import "github.com/talgya/chronicle/internal/ecs"

// Event subtypes emitted by the economic system.
const (
	SubtypeShortage            = "economy.shortage"
	SubtypeSurplus             = "economy.surplus"
	SubtypePriceSpike          = "economy.price_spike"
	SubtypePriceCrash          = "economy.price_crash"
	SubtypeRouteEstablished    = "economy.trade_route_established"
	SubtypeExclusivityViolated = "economy.trade_exclusivity_violated"
)

// ShortagePayload reports a resource running critically low.
type ShortagePayload struct {
	Settlement string
	Resource   Resource
	Available  float64
	Demand     float64
}

func (p ShortagePayload) Fields() map[string]any {
	return map[string]any{
		"settlement": p.Settlement,
		"resource":   p.Resource.String(),
		"available":  p.Available,
		"demand":     p.Demand,
		"deficit":    p.Demand - p.Available,
	}
}

// SurplusPayload reports a stockpile far above local need.
type SurplusPayload struct {
	Settlement string
	Resource   Resource
	Stockpile  float64
	Demand     float64
}

func (p SurplusPayload) Fields() map[string]any {
	return map[string]any{
		"settlement": p.Settlement,
		"resource":   p.Resource.String(),
		"stockpile":  p.Stockpile,
		"demand":     p.Demand,
	}
}

// PricePayload reports a sharp price move, up or down.
type PricePayload struct {
	Settlement string
	Resource   Resource
	OldPrice   float64
	NewPrice   float64
}

func (p PricePayload) Fields() map[string]any {
	ratio := 0.0
	if p.OldPrice > 0 {
		ratio = p.NewPrice / p.OldPrice
	}
	return map[string]any{
		"settlement": p.Settlement,
		"resource":   p.Resource.String(),
		"old_price":  p.OldPrice,
		"new_price":  p.NewPrice,
		"ratio":      ratio,
	}
}

// RoutePayload describes a newly established trade route.
type RoutePayload struct {
	RouteID       ecs.TradeRouteID
	Source        string
	Target        string
	Resources     []Resource
	Volume        float64
	Safety        float64
	Profitability float64
}

func (p RoutePayload) Fields() map[string]any {
	names := make([]string, len(p.Resources))
	for i, r := range p.Resources {
		names[i] = r.String()
	}
	return map[string]any{
		"route_id":      uint64(p.RouteID),
		"source":        p.Source,
		"target":        p.Target,
		"resources":     names,
		"volume":        p.Volume,
		"safety":        p.Safety,
		"profitability": p.Profitability,
	}
}

// ViolationPayload reports goods on a route breaching an exclusivity term.
type ViolationPayload struct {
	RouteID        ecs.TradeRouteID
	Resource       Resource
	TreatyID       ecs.TreatyID
	Treaty         string
	Violator       ecs.FactionID
	Partner        ecs.FactionID
	Enforceability int
	Suspended      bool
}

func (p ViolationPayload) Fields() map[string]any {
	return map[string]any{
		"route_id":       uint64(p.RouteID),
		"resource":       p.Resource.String(),
		"treaty_id":      uint64(p.TreatyID),
		"treaty":         p.Treaty,
		"violator":       uint64(p.Violator),
		"partner":        uint64(p.Partner),
		"enforceability": p.Enforceability,
		"suspended":      p.Suspended,
	}
}
