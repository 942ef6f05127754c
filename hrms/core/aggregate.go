package core

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// BillableHours is production / tenureTarget. A zero target yields 0, never NaN.
func BillableHours(production, tenureTarget float64) float64 {
	if tenureTarget == 0 {
		return 0
	}
	v := production / tenureTarget
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Round rounds half away from zero to places decimals.
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// TenureTarget scales a base target by the user's tenure multiplier.
func TenureTarget(base, tenure float64) float64 {
	return Round(base*tenure, 2)
}

func MonthlyTotal(monthlyTarget, extraHours float64) float64 {
	return decimal.NewFromFloat(monthlyTarget).Add(decimal.NewFromFloat(extraHours)).InexactFloat64()
}

// PendingDays is max(0, workingDays - workedDays).
func PendingDays(workingDays, workedDays int) int {
	return max(0, workingDays-workedDays)
}

// RequiredPace is the billable hours per remaining day needed to reach the
// total target. It is nil once no working days remain.
func RequiredPace(totalTarget, billableSoFar float64, pendingDays int) *float64 {
	if pendingDays <= 0 {
		return nil
	}
	v := decimal.NewFromFloat(totalTarget).
		Sub(decimal.NewFromFloat(billableSoFar)).
		DivRound(decimal.NewFromInt(int64(pendingDays)), 4).
		InexactFloat64()
	return &v
}

// QCAverage is the mean over scored days rounded to 2 decimals, plus the number
// of scored days. Days without a score are not counted.
func QCAverage(scores []*float64) (*float64, int) {
	sum := decimal.Zero
	n := 0
	for _, s := range scores {
		if s == nil {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(*s))
		n++
	}
	if n == 0 {
		return nil, 0
	}
	avg := sum.DivRound(decimal.NewFromInt(int64(n)), 2).InexactFloat64()
	return &avg, n
}

// Sum adds values with decimal precision so repeated runs give identical totals.
func Sum(values []float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.InexactFloat64()
}

func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WorkedDays counts distinct UTC calendar days on or before cutoff.
func WorkedDays(times []time.Time, cutoff time.Time) int {
	days := map[time.Time]bool{}
	for _, t := range times {
		d := Day(t)
		if !d.After(cutoff) {
			days[d] = true
		}
	}
	return len(days)
}

// DailyBucket is one user's tracker total for one day.
type DailyBucket struct {
	UserID   int
	Date     time.Time
	Billable float64
	Count    int
}

// DailyProgress adds the running totals up to and including the bucket's day.
type DailyProgress struct {
	DailyBucket
	Cumulative        float64
	WorkedDaysTillDay int
}

// Cumulate orders each user's buckets by day and computes running sums.
// The cumulative value of a user's last day equals the sum of all their buckets.
func Cumulate(buckets []DailyBucket) []DailyProgress {
	sorted := append([]DailyBucket(nil), buckets...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].UserID != sorted[j].UserID {
			return sorted[i].UserID < sorted[j].UserID
		}
		return sorted[i].Date.Before(sorted[j].Date)
	})

	out := make([]DailyProgress, 0, len(sorted))
	running := decimal.Zero
	worked := 0
	for i, b := range sorted {
		if i == 0 || sorted[i-1].UserID != b.UserID {
			running = decimal.Zero
			worked = 0
		}
		running = running.Add(decimal.NewFromFloat(b.Billable))
		worked++
		out = append(out, DailyProgress{
			DailyBucket:       b,
			Cumulative:        running.InexactFloat64(),
			WorkedDaysTillDay: worked,
		})
	}
	return out
}
