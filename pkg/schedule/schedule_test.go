package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/models"
)

var (
	dayShift   = models.ShiftTemplate{ID: "tpl-day", Name: "Day", StartTime: "07:00", EndTime: "19:00"}
	nightShift = models.ShiftTemplate{ID: "tpl-night", Name: "Night", StartTime: "19:00", EndTime: "07:00"}

	twoShifts = []models.ShiftTemplate{dayShift, nightShift}
)

func TestBoundaries_DayToNight(t *testing.T) {
	day := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	b, err := Boundaries(dayShift, nightShift, day)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC), b.FromStart)
	assert.Equal(t, time.Date(2025, 3, 10, 19, 0, 0, 0, time.UTC), b.FromEnd)
	assert.Equal(t, time.Date(2025, 3, 10, 19, 0, 0, 0, time.UTC), b.ToStart)
	// Night crosses midnight
	assert.Equal(t, time.Date(2025, 3, 11, 7, 0, 0, 0, time.UTC), b.ToEnd)
}

func TestBoundaries_NightToDay(t *testing.T) {
	day := time.Date(2025, 3, 10, 21, 0, 0, 0, time.UTC)

	b, err := Boundaries(nightShift, dayShift, day)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 3, 10, 19, 0, 0, 0, time.UTC), b.FromStart)
	assert.Equal(t, time.Date(2025, 3, 11, 7, 0, 0, 0, time.UTC), b.FromEnd)
	// Day would start before the night ends, so it rolls to the next morning
	assert.Equal(t, time.Date(2025, 3, 11, 7, 0, 0, 0, time.UTC), b.ToStart)
	assert.Equal(t, time.Date(2025, 3, 11, 19, 0, 0, 0, time.UTC), b.ToEnd)
}

func TestBoundaries_InvalidClock(t *testing.T) {
	bad := models.ShiftTemplate{ID: "tpl-bad", StartTime: "25:99", EndTime: "19:00"}
	_, err := Boundaries(bad, nightShift, time.Now().UTC())
	assert.Error(t, err)
}

func TestNext_TwoShiftToggle(t *testing.T) {
	next, err := Next(twoShifts, "tpl-day")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "tpl-night", next.ID)

	next, err = Next(twoShifts, "tpl-night")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "tpl-day", next.ID)
}

func TestNext_ThreeShiftRotation(t *testing.T) {
	morning := models.ShiftTemplate{ID: "tpl-m", Name: "Morning", StartTime: "07:00", EndTime: "15:00"}
	evening := models.ShiftTemplate{ID: "tpl-e", Name: "Evening", StartTime: "15:00", EndTime: "23:00"}
	night := models.ShiftTemplate{ID: "tpl-n", Name: "Night", StartTime: "23:00", EndTime: "07:00"}
	templates := []models.ShiftTemplate{night, morning, evening} // order must not matter

	tests := []struct {
		from string
		want string
	}{
		{"tpl-m", "tpl-e"},
		{"tpl-e", "tpl-n"},
		{"tpl-n", "tpl-m"}, // rollover wraps to the earliest start
	}

	for _, tt := range tests {
		next, err := Next(templates, tt.from)
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.Equal(t, tt.want, next.ID, "next of %s", tt.from)
	}
}

func TestNext_FewerThanTwoTemplates(t *testing.T) {
	next, err := Next([]models.ShiftTemplate{dayShift}, "tpl-day")
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestNext_UnknownTemplate(t *testing.T) {
	_, err := Next(twoShifts, "tpl-missing")
	assert.Error(t, err)
}

func TestPrevious_TwoShiftToggle(t *testing.T) {
	prev, err := Previous(twoShifts, "tpl-day")
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "tpl-night", prev.ID)

	prev, err = Previous(twoShifts, "tpl-night")
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "tpl-day", prev.ID)
}

func TestPrevious_FewerThanTwoTemplates(t *testing.T) {
	prev, err := Previous([]models.ShiftTemplate{dayShift}, "tpl-day")
	require.NoError(t, err)
	assert.Nil(t, prev)
}
