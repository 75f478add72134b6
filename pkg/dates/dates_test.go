package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
		ok    bool
	}{
		{"Day first", "15/03/2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"ISO", "2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"Dashed day first", "15-03-2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"Month first fallback", "03/25/2024", time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC), true},
		{"Trailing time dropped", "15/03/2024 10:30", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"ISO timestamp", "2024-03-15T08:00:00", time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC), true},
		{"Empty", "", time.Time{}, false},
		{"Placeholder", "N/A", time.Time{}, false},
		{"Garbage", "not a date", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.input)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDayFirstPrecedence(t *testing.T) {
	// 05/03 is ambiguous; the day-first layout must win.
	got, ok := Parse("05/03/2024")
	require.True(t, ok)
	assert.Equal(t, time.March, got.Month())
	assert.Equal(t, 5, got.Day())
}

func TestDaysBetween(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysBetween(start, start))
	assert.Equal(t, 6, DaysBetween(start, start.AddDate(0, 0, 6)))
	assert.Equal(t, 7, DaysBetween(start, start.AddDate(0, 0, 7)))
	assert.Equal(t, -3, DaysBetween(start, start.AddDate(0, 0, -3)))
	assert.Equal(t, 673, DaysBetween(start, start.AddDate(0, 0, 673)))
}
