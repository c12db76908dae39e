// Package events holds the historical record of the simulation: the
// WorldEvent type, the synchronous EventBus that fans events out to
// subscribers, and the append-only EventLog with causal links.
package events

import (
	"fmt"
	"strings"
)

// Category is the broad class of a WorldEvent. Subscribers key on it.
type Category uint8

const (
	Political Category = iota
	Military
	Economic
	Cultural
	Religious
	Personal
	Disaster
	Scientific
	Magical
)

var categoryNames = [...]string{
	Political:  "Political",
	Military:   "Military",
	Economic:   "Economic",
	Cultural:   "Cultural",
	Religious:  "Religious",
	Personal:   "Personal",
	Disaster:   "Disaster",
	Scientific: "Scientific",
	Magical:    "Magical",
}

// Categories returns every category in declaration order.
func Categories() []Category {
	out := make([]Category, len(categoryNames))
	for i := range categoryNames {
		out[i] = Category(i)
	}
	return out
}

// String returns the stable spelling used by narrative templates.
func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "Unknown"
}

// ParseCategory resolves a category name, case-insensitively.
func ParseCategory(name string) (Category, error) {
	for i, n := range categoryNames {
		if strings.EqualFold(n, name) {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown event category %q", name)
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
