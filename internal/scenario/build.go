package scenario

import (
	"fmt"

	"github.com/talgya/chronicle/internal/component"
	"github.com/talgya/chronicle/internal/ecs"
	"github.com/talgya/chronicle/internal/social"
	"github.com/talgya/chronicle/internal/treaty"
)

// settlementGrowth is the yearly growth rate given to every settlement.
const settlementGrowth = 0.01

// Built maps scenario handles to the ids they received.
type Built struct {
	Factions    map[string]ecs.FactionID
	Settlements map[string]ecs.SiteID
	Treaties    []ecs.TreatyID
}

// Build populates w, reg and enf from s. Factions become entities carrying
// Name and Faction components, and their entity id is their FactionID.
// Settlements get the full component set the economy reads.
func Build(s *Scenario, w *ecs.World, reg *social.Registry, enf *treaty.Enforcement) (*Built, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	component.RegisterAll(w)

	b := &Built{
		Factions:    make(map[string]ecs.FactionID, len(s.Factions)),
		Settlements: make(map[string]ecs.SiteID, len(s.Settlements)),
	}

	for _, fs := range s.Factions {
		e := w.CreateEntity()
		id := ecs.FactionID(e)
		if err := attach(w, e,
			&component.Name{Value: fs.Name},
			&component.Faction{ID: id},
		); err != nil {
			return nil, fmt.Errorf("build faction %q: %w", fs.Key, err)
		}
		f := social.NewFaction(id, fs.Name, fs.Kind)
		f.TaxPreference = fs.TaxPreference
		f.TradePreference = fs.TradePreference
		f.MilitaryPreference = fs.MilitaryPreference
		if err := reg.Add(f); err != nil {
			return nil, fmt.Errorf("build faction %q: %w", fs.Key, err)
		}
		b.Factions[fs.Key] = id
	}

	for _, r := range s.Relations {
		reg.SetRelation(b.Factions[r.A], b.Factions[r.B], r.Value)
	}

	for _, st := range s.Settlements {
		e := w.CreateEntity()
		comps := []ecs.Component{
			&component.Name{Value: st.Name},
			&component.Position{X: st.X, Y: st.Y},
			&component.Biome{Terrain: st.Terrain},
			&component.Settlement{Size: st.Size},
			&component.Population{Count: st.Population, GrowthRate: settlementGrowth},
			&component.Economy{
				Wealth:        st.Wealth,
				TechLevel:     st.Tech,
				Industries:    append([]string(nil), st.Industries...),
				TradeOpenness: st.Openness(),
			},
		}
		if st.Faction != "" {
			comps = append(comps, &component.Ownership{FactionID: b.Factions[st.Faction]})
		}
		if err := attach(w, e, comps...); err != nil {
			return nil, fmt.Errorf("build settlement %q: %w", st.Name, err)
		}
		b.Settlements[st.Name] = ecs.SiteID(e)
	}

	for _, ts := range s.Treaties {
		t := treaty.Treaty{
			Name:      ts.Name,
			Parties:   b.resolve(ts.Parties),
			SignedAt:  ts.SignedAt,
			ExpiresAt: ts.ExpiresAt,
		}
		for _, term := range ts.Terms {
			t.Terms = append(t.Terms, treaty.Term{
				Type:           term.Type,
				Parties:        b.resolve(term.Parties),
				Resources:      append([]string(nil), term.Resources...),
				Parameters:     term.Parameters,
				Enforceability: term.Enforceability,
			})
		}
		id, err := enf.RegisterTreaty(t)
		if err != nil {
			return nil, fmt.Errorf("build: %w", err)
		}
		b.Treaties = append(b.Treaties, id)
	}
	return b, nil
}

func (b *Built) resolve(keys []string) []ecs.FactionID {
	if len(keys) == 0 {
		return nil
	}
	out := make([]ecs.FactionID, len(keys))
	for i, k := range keys {
		out[i] = b.Factions[k]
	}
	return out
}

func attach(w *ecs.World, e ecs.EntityID, comps ...ecs.Component) error {
	for _, c := range comps {
		if err := w.AddComponent(e, c); err != nil {
			return err
		}
	}
	return nil
}
