package engine

import "fmt"

// Calendar constants. Months never vary in length and there are no leap
// years.
const (
	TicksPerMonth  = 30
	MonthsPerYear  = 12
	TicksPerYear   = TicksPerMonth * MonthsPerYear // 360
	TicksPerSeason = TicksPerMonth * 3
)

// Season of the year. Each spans three months starting from month 1.
type Season uint8

const (
	Spring Season = iota
	Summer
	Autumn
	Winter
)

var seasonNames = [...]string{"Spring", "Summer", "Autumn", "Winter"}

// String returns a human-readable season name.
func (s Season) String() string {
	if int(s) < len(seasonNames) {
		return seasonNames[s]
	}
	return "Unknown"
}

// Date is a calendar position. All fields are 1-based.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// DateOf converts a tick to a calendar date. Tick 0 is Year 1, Month 1, Day 1.
func DateOf(tick uint64) Date {
	return Date{
		Year:  int(tick/TicksPerYear) + 1,
		Month: int(tick%TicksPerYear/TicksPerMonth) + 1,
		Day:   int(tick%TicksPerMonth) + 1,
	}
}

// SeasonOf returns the season a tick falls in.
func SeasonOf(tick uint64) Season {
	return Season(tick % TicksPerYear / TicksPerSeason)
}

// SimTime returns a human-readable simulation time string from a tick number.
func SimTime(tick uint64) string {
	d := DateOf(tick)
	return fmt.Sprintf("%s, Day %d of Month %d, Year %d", SeasonOf(tick), d.Day, d.Month, d.Year)
}

// Clock owns the simulation's tick counter. Only the driver advances it.
type Clock struct {
	tick uint64
}

// NewClock returns a clock at tick 0.
func NewClock() *Clock {
	return &Clock{}
}

// Advance moves time forward by exactly one tick and returns the new tick.
func (c *Clock) Advance() uint64 {
	c.tick++
	return c.tick
}

// Tick returns the current tick.
func (c *Clock) Tick() uint64 {
	return c.tick
}

// Calendar returns the current date.
func (c *Clock) Calendar() Date {
	return DateOf(c.tick)
}

// Season returns the current season.
func (c *Clock) Season() Season {
	return SeasonOf(c.tick)
}

// SetTick positions the clock when resuming a saved run.
func (c *Clock) SetTick(tick uint64) {
	c.tick = tick
}

func (c *Clock) String() string {
	return SimTime(c.tick)
}
