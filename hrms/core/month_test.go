package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMonth(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{input: "Jan2026", expected: "Jan2026"},
		{input: "jan2026", expected: "Jan2026"},
		{input: "FEB2026", expected: "Feb2026"},
		{input: " dec2025 ", expected: "Dec2025"},
		{input: "January2026", wantErr: true},
		{input: "2026-01", wantErr: true},
		{input: "Foo2026", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizeMonth(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMonthCutoff(t *testing.T) {
	feb := Month{Year: 2026, Month: time.February}
	today := time.Date(2026, 2, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		month    Month
		expected time.Time
	}{
		{name: "current month", month: feb, expected: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)},
		{name: "past month", month: Month{Year: 2026, Month: time.January}, expected: time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)},
		{name: "future month", month: Month{Year: 2026, Month: time.March}, expected: time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)},
		{name: "past year", month: Month{Year: 2025, Month: time.December}, expected: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.month.Cutoff(today))
		})
	}
}

func TestMonthBounds(t *testing.T) {
	feb := Month{Year: 2026, Month: time.February}
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), feb.First())
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), feb.End())
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), feb.Last())
	assert.True(t, feb.Contains(time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC)))
	assert.False(t, feb.Contains(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestFiltersValidate(t *testing.T) {
	tests := []struct {
		name    string
		filters Filters
		wantErr bool
	}{
		{name: "empty", filters: Filters{}},
		{name: "date range", filters: Filters{DateFrom: "2026-02-01", DateTo: "2026-02-10"}},
		{name: "timestamp bound", filters: Filters{DateFrom: "2026-02-01T08:00:00Z"}},
		{name: "bad date", filters: Filters{Date: "02/01/2026"}, wantErr: true},
		{name: "bad bound", filters: Filters{DateTo: "tomorrow"}, wantErr: true},
		{name: "bad month", filters: Filters{Month: "2026-02"}, wantErr: true},
		{name: "negative id", filters: Filters{UserID: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filters.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParseBoundWidensDates(t *testing.T) {
	from, err := ParseBound("2026-02-03", false)
	require.NoError(t, err)
	to, err := ParseBound("2026-02-03", true)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC), *from)
	assert.Equal(t, time.Date(2026, 2, 3, 23, 59, 59, 0, time.UTC), *to)
}
