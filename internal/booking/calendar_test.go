package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthNormalize(t *testing.T) {
	cases := []struct {
		in   Month
		want Month
	}{
		{Month{Year: 2025, Month: 12}, Month{Year: 2026, Month: 0}},
		{Month{Year: 2025, Month: -1}, Month{Year: 2024, Month: 11}},
		{Month{Year: 2025, Month: -13}, Month{Year: 2023, Month: 11}},
		{Month{Year: 2025, Month: 5}, Month{Year: 2025, Month: 5}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.in.Normalize(), "normalize %+v", tc.in)
	}
}

func TestMonthNavigationWrapsYear(t *testing.T) {
	dec := NewMonth(2025, 11)
	assert.Equal(t, Month{Year: 2026, Month: 0}, dec.Next())
	assert.Equal(t, Month{Year: 2024, Month: 11}, NewMonth(2025, 0).Prev())
	assert.Equal(t, "December 2025", dec.Label())
	assert.Equal(t, "2025-12", dec.Key())
	assert.Equal(t, 12, dec.Number())
}

func TestRenderMonthGridLength(t *testing.T) {
	today := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		month Month
		lead  int
		days  int
	}{
		{NewMonth(2025, 5), 0, 30}, // June 2025 starts on Sunday
		{NewMonth(2024, 1), 4, 29}, // February 2024, leap year, Thursday
		{NewMonth(2025, 0), 3, 31}, // January 2025, Wednesday
	}
	for _, tc := range cases {
		cells := RenderMonth(tc.month, "", today)
		require.Len(t, cells, tc.lead+tc.days, tc.month.Label())
		for i := 0; i < tc.lead; i++ {
			assert.True(t, cells[i].Empty())
			assert.False(t, cells[i].Clickable())
		}
		assert.Equal(t, 1, cells[tc.lead].Day)
		assert.Equal(t, tc.days, cells[len(cells)-1].Day)
	}
}

func TestRenderMonthMarksPastTodayAndSelection(t *testing.T) {
	today := time.Date(2025, 6, 10, 10, 20, 0, 0, time.UTC)
	cells := RenderMonth(NewMonth(2025, 5), "2025-06-12", today)

	byDate := map[string]DateCell{}
	for _, c := range cells {
		byDate[c.Date] = c
	}
	assert.True(t, byDate["2025-06-09"].IsPast)
	assert.False(t, byDate["2025-06-09"].Clickable())
	assert.True(t, byDate["2025-06-10"].IsToday)
	assert.False(t, byDate["2025-06-10"].IsPast)
	assert.True(t, byDate["2025-06-12"].IsSelected)
	assert.Equal(t, AvailabilityUnknown, byDate["2025-06-12"].Availability)
}

func TestMergeAvailabilitySkipsPastCells(t *testing.T) {
	today := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	cells := RenderMonth(NewMonth(2025, 5), "", today)

	MergeAvailability(cells, []DayAvailability{
		{Date: "2025-06-05", HasAvailability: true},
		{Date: "2025-06-11", HasAvailability: true},
		{Date: "2025-06-12", HasAvailability: false},
	})

	byDate := map[string]DateCell{}
	for _, c := range cells {
		byDate[c.Date] = c
	}
	assert.Equal(t, AvailabilityUnknown, byDate["2025-06-05"].Availability)
	assert.Equal(t, AvailabilityAvailable, byDate["2025-06-11"].Availability)
	assert.Equal(t, AvailabilityUnavailable, byDate["2025-06-12"].Availability)
	assert.Equal(t, AvailabilityUnknown, byDate["2025-06-13"].Availability)
}

func TestMarkUnavailable(t *testing.T) {
	today := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	cells := RenderMonth(NewMonth(2025, 5), "", today)
	MarkUnavailable(cells)
	for _, c := range cells {
		if c.Clickable() {
			assert.Equal(t, AvailabilityUnavailable, c.Availability, c.Date)
		} else {
			assert.Equal(t, AvailabilityUnknown, c.Availability, c.Date)
		}
	}
}
