// Package chronicle turns significant world events into one-line prose
// entries for the console and the archive.
package chronicle

import (
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/dustin/go-humanize"

	"github.com/talgya/chronicle/internal/ecs"
	"github.com/talgya/chronicle/internal/engine"
	"github.com/talgya/chronicle/internal/events"
)

// Namer resolves an entity to its display name, "" when unknown.
type Namer func(ecs.EntityID) string

// Entry is one rendered line of the chronicle.
type Entry struct {
	EventID      ecs.EventID `json:"event_id"`
	Tick         uint64      `json:"tick"`
	When         string      `json:"when"`
	Subtype      string      `json:"subtype"`
	Significance int         `json:"significance"`
	Text         string      `json:"text"`
}

// builtin templates are keyed by bare event name; events.TemplateKeys tries
// the full subtype first, so a caller can override any of them per domain.
var builtin = map[string]string{
	"shortage":                   `{{.settlement}} runs short of {{.resource}}: {{amount .available}} on hand against {{amount .demand}} needed.`,
	"surplus":                    `{{.settlement}} is glutted with {{.resource}}, {{amount .stockpile}} in store.`,
	"price_spike":                `{{.resource}} soars in {{.settlement}}, from {{amount .old_price}} to {{amount .new_price}}.`,
	"price_crash":                `{{.resource}} collapses in {{.settlement}}, from {{amount .old_price}} to {{amount .new_price}}.`,
	"trade_route_established":    `Merchants open a road from {{.source}} to {{.target}} carrying {{list .resources}}.`,
	"trade_exclusivity_violated": `{{faction .violator}} trades {{.resource}} with {{faction .partner}} in breach of {{.treaty}}.`,
	"treaty_signed":              `{{.treaty}} is signed.`,
	"treaty_expired":             `{{.treaty}} lapses.`,
	"dominance_shift":            `{{.faction}} rises to dominance, holding {{percent .share}} of the realm.`,
	"relations_shifted":          `{{.a}} and {{.b}} are now {{.stance}}.`,
}

// Chronicler renders events above a significance threshold.
type Chronicler struct {
	threshold int
	names     Namer
	templates map[string]*template.Template
}

// New returns a chronicler with the built-in templates. names may be nil.
func New(threshold int, names Namer) *Chronicler {
	c := &Chronicler{
		threshold: threshold,
		names:     names,
		templates: make(map[string]*template.Template, len(builtin)),
	}
	keys := make([]string, 0, len(builtin))
	for k := range builtin {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := c.Register(k, builtin[k]); err != nil {
			panic(err)
		}
	}
	return c
}

// Register adds or replaces the template for key, which is either a full
// subtype ("economy.shortage") or a bare name ("shortage").
func (c *Chronicler) Register(key, text string) error {
	t, err := template.New(key).Funcs(c.funcs()).Option("missingkey=zero").Parse(text)
	if err != nil {
		return fmt.Errorf("chronicle template %q: %w", key, err)
	}
	c.templates[key] = t
	return nil
}

func (c *Chronicler) funcs() template.FuncMap {
	return template.FuncMap{
		"amount": func(v any) string {
			f, ok := v.(float64)
			if !ok {
				return fmt.Sprint(v)
			}
			return humanize.FormatFloat("#,###.#", f)
		},
		"percent": func(v any) string {
			f, _ := v.(float64)
			return humanize.FtoaWithDigits(f, 1) + "%"
		},
		"list": func(v any) string {
			if s, ok := v.([]string); ok {
				return strings.Join(s, ", ")
			}
			return fmt.Sprint(v)
		},
		"faction": func(v any) string {
			var id uint64
			switch x := v.(type) {
			case uint64:
				id = x
			case ecs.FactionID:
				id = uint64(x)
			default:
				return fmt.Sprint(v)
			}
			if c.names != nil {
				if n := c.names(ecs.EntityID(id)); n != "" {
					return n
				}
			}
			return fmt.Sprintf("faction %d", id)
		},
	}
}

// Notable reports whether ev clears the threshold.
func (c *Chronicler) Notable(ev *events.WorldEvent) bool {
	return ev.Significance >= c.threshold
}

// Render returns ev as prose. Events without a template get a generic line
// naming the participants.
func (c *Chronicler) Render(ev *events.WorldEvent) string {
	fields := ev.Fields()
	for _, key := range events.TemplateKeys(ev.Subtype) {
		t, ok := c.templates[key]
		if !ok {
			continue
		}
		var b strings.Builder
		if err := t.Execute(&b, fields); err == nil {
			return b.String()
		}
	}
	return c.fallback(ev)
}

func (c *Chronicler) fallback(ev *events.WorldEvent) string {
	var who []string
	for _, p := range ev.Participants {
		name := ""
		if c.names != nil {
			name = c.names(p)
		}
		if name == "" {
			name = fmt.Sprintf("#%d", p)
		}
		who = append(who, name)
	}
	if len(who) == 0 {
		return fmt.Sprintf("%s event: %s.", ev.Category, ev.Subtype)
	}
	return fmt.Sprintf("%s event: %s involving %s.", ev.Category, ev.Subtype, strings.Join(who, ", "))
}

// Entry renders ev into a chronicle entry.
func (c *Chronicler) Entry(ev *events.WorldEvent) Entry {
	return Entry{
		EventID:      ev.ID,
		Tick:         ev.Timestamp,
		When:         engine.SimTime(ev.Timestamp),
		Subtype:      ev.Subtype,
		Significance: ev.Significance,
		Text:         c.Render(ev),
	}
}

// Subscribe delivers an entry to out for every notable event on bus.
func (c *Chronicler) Subscribe(bus *events.Bus, out func(Entry)) events.Unsubscribe {
	return bus.OnAny(func(ev *events.WorldEvent) error {
		if c.Notable(ev) {
			out(c.Entry(ev))
		}
		return nil
	})
}
