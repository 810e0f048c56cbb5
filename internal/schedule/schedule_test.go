package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/vehicle-maintenance/internal/errs"
)

func TestNextServiceDate(t *testing.T) {
	tests := []struct {
		name     string
		last     string
		months   int
		expected string
	}{
		{"plain", "2024-01-15", 6, "2024-07-15"},
		{"31st into 31-day month", "2024-01-31", 6, "2024-07-31"},
		{"31st into short february", "2024-08-31", 6, "2025-02-28"},
		{"31st into leap february", "2023-08-31", 6, "2024-02-29"},
		{"31st into 30-day month", "2024-03-31", 6, "2024-09-30"},
		{"year rollover", "2024-11-05", 6, "2025-05-05"},
		{"leap day", "2024-02-29", 12, "2025-02-28"},
		{"zero interval", "2024-05-20", 0, "2024-05-20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextServiceDate(tt.last, tt.months)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNextServiceDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "2024-13-01", "15/01/2024", "2024-02-30"} {
		_, err := NextServiceDate(in, DefaultIntervalMonths)
		assert.Error(t, err, in)
		assert.True(t, errors.Is(err, errs.ErrInvalidArgument), in)
	}
}

func TestAddMonths_PreservesClock(t *testing.T) {
	in := time.Date(2024, 1, 31, 13, 45, 0, 0, time.UTC)
	got := AddMonths(in, 1)
	assert.Equal(t, time.Date(2024, 2, 29, 13, 45, 0, 0, time.UTC), got)
}

func TestDueWithin(t *testing.T) {
	today := time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)
	window := 30 * 24 * time.Hour

	assert.True(t, DueWithin("2024-06-01", today, window), "due today")
	assert.True(t, DueWithin("2024-07-01", today, window), "last day of window")
	assert.False(t, DueWithin("2024-07-02", today, window), "after window")
	assert.False(t, DueWithin("2024-05-31", today, window), "already overdue")
	assert.False(t, DueWithin("garbage", today, window))
}
