package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBillableHours(t *testing.T) {
	tests := []struct {
		name       string
		production float64
		tenure     float64
		expected   float64
	}{
		{name: "simple", production: 50, tenure: 25, expected: 2},
		{name: "fraction", production: 10, tenure: 4, expected: 2.5},
		{name: "zero tenure target", production: 50, tenure: 0, expected: 0},
		{name: "zero production", production: 0, tenure: 25, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BillableHours(tt.production, tt.tenure))
		})
	}
}

func TestRequiredPace(t *testing.T) {
	total := MonthlyTotal(100, 10)
	assert.Equal(t, 110.0, total)

	pending := PendingDays(20, 5)
	assert.Equal(t, 15, pending)

	pace := RequiredPace(total, 30, pending)
	require.NotNil(t, pace)
	assert.InDelta(t, 5.3333, *pace, 0.0001)

	assert.Nil(t, RequiredPace(total, 30, PendingDays(20, 20)))
	assert.Nil(t, RequiredPace(total, 30, PendingDays(20, 25)))
	assert.Equal(t, 0, PendingDays(20, 25))
}

func TestQCAverage(t *testing.T) {
	eight, six := 8.0, 6.5

	avg, days := QCAverage([]*float64{&eight, nil, &six, nil})
	require.NotNil(t, avg)
	assert.Equal(t, 7.25, *avg)
	assert.Equal(t, 2, days)

	avg, days = QCAverage([]*float64{nil})
	assert.Nil(t, avg)
	assert.Equal(t, 0, days)
}

func TestWorkedDays(t *testing.T) {
	cutoff := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)
	times := []time.Time{
		time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 1, 17, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 3, 23, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 4, 9, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, 2, WorkedDays(times, cutoff))
}

func TestCumulate(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2026, 2, day, 0, 0, 0, 0, time.UTC) }
	buckets := []DailyBucket{
		{UserID: 2, Date: d(3), Billable: 1.5, Count: 1},
		{UserID: 1, Date: d(2), Billable: 2, Count: 2},
		{UserID: 1, Date: d(1), Billable: 0.1, Count: 1},
		{UserID: 1, Date: d(5), Billable: 0.2, Count: 1},
		{UserID: 2, Date: d(1), Billable: 4, Count: 3},
	}

	got := Cumulate(buckets)
	require.Len(t, got, 5)

	last := map[int]DailyProgress{}
	sums := map[int][]float64{}
	for _, p := range got {
		last[p.UserID] = p
		sums[p.UserID] = append(sums[p.UserID], p.Billable)
	}
	for id, p := range last {
		assert.Equal(t, Sum(sums[id]), p.Cumulative, "user %d", id)
	}

	assert.Equal(t, 0.1, got[0].Cumulative)
	assert.Equal(t, 2.1, got[1].Cumulative)
	assert.Equal(t, 2.3, got[2].Cumulative)
	assert.Equal(t, 3, got[2].WorkedDaysTillDay)
	assert.Equal(t, 4.0, got[3].Cumulative)
	assert.Equal(t, 5.5, got[4].Cumulative)
}

func TestTrackerFileName(t *testing.T) {
	at := time.Date(2026, 2, 3, 14, 5, 0, 0, time.UTC)

	name, err := TrackerFileName("PRJ 01", "Data entry/QA", "Jane  Doe", "report.PDF", at)
	require.NoError(t, err)
	assert.Regexp(t, `^PRJ_01_Data_entryQA_Jane_Doe_03-Feb-2026_02PM_[0-9a-f]{8}\.pdf$`, name)

	again, err := TrackerFileName("PRJ 01", "Data entry/QA", "Jane  Doe", "report.PDF", at)
	require.NoError(t, err)
	assert.NotEqual(t, name, again)

	name, err = TrackerFileName("", "!!", "x", "a.csv", at)
	require.NoError(t, err)
	assert.Regexp(t, `^NA_NA_x_03-Feb-2026_02PM_[0-9a-f]{8}\.csv$`, name)

	_, err = TrackerFileName("P", "T", "U", "run.exe", at)
	assert.ErrorIs(t, err, ErrValidation)
}
