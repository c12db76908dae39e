package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClockAdvancesByOne(t *testing.T) {
	c := NewClock()
	assert.Equal(t, uint64(0), c.Tick())
	assert.Equal(t, uint64(1), c.Advance())
	assert.Equal(t, uint64(2), c.Advance())
	assert.Equal(t, uint64(2), c.Tick())
}

func TestCalendar(t *testing.T) {
	tests := []struct {
		tick   uint64
		want   Date
		season Season
	}{
		{0, Date{Year: 1, Month: 1, Day: 1}, Spring},
		{29, Date{Year: 1, Month: 1, Day: 30}, Spring},
		{30, Date{Year: 1, Month: 2, Day: 1}, Spring},
		{90, Date{Year: 1, Month: 4, Day: 1}, Summer},
		{200, Date{Year: 1, Month: 7, Day: 21}, Autumn},
		{330, Date{Year: 1, Month: 12, Day: 1}, Winter},
		{359, Date{Year: 1, Month: 12, Day: 30}, Winter},
		{360, Date{Year: 2, Month: 1, Day: 1}, Spring},
		{3600 + 45, Date{Year: 11, Month: 2, Day: 16}, Spring},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DateOf(tt.tick), "tick %d", tt.tick)
		assert.Equal(t, tt.season, SeasonOf(tt.tick), "tick %d", tt.tick)
	}
}

func TestClockString(t *testing.T) {
	c := NewClock()
	c.SetTick(32)
	assert.Equal(t, "Spring, Day 3 of Month 2, Year 1", c.String())
	assert.Equal(t, Date{Year: 1, Month: 2, Day: 3}, c.Calendar())
	assert.Equal(t, Spring, c.Season())
}
