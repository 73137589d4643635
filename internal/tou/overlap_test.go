package tou

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y, m, d int) Date {
	return Date{Year: y, Month: time.Month(m), Day: d}
}

func rate(start, end Date, from, to int, days ...int) Rate {
	return Rate{LocationID: "loc", Name: "r", StartAt: start, EndAt: end, DayStartedAtSeconds: from, DayEndedAtSeconds: to, DaysOfWeek: days, IsActive: true}
}

func TestDoIntRangesIntersectIsHalfOpen(t *testing.T) {
	assert.False(t, doIntRangesIntersect(0, 10, 10, 20))
	assert.False(t, doIntRangesIntersect(10, 20, 0, 10))
	assert.True(t, doIntRangesIntersect(0, 10, 9, 20))
	assert.True(t, doIntRangesIntersect(0, 10, 2, 3))
	assert.True(t, doIntRangesIntersect(2, 3, 0, 10))
	assert.True(t, doIntRangesIntersect(0, 10, 0, 10))
}

func TestRecurringRateTouchingWindowDoesNotIntersect(t *testing.T) {
	a := rate(date(2024, 6, 1), date(2024, 6, 30), 0, 43200, 0)
	a.RecursYearly = true
	b := rate(date(2025, 6, 15), date(2025, 6, 15), 43200, 86400, 0)

	assert.False(t, Intersect(b, a))

	b.DayStartedAtSeconds = 43199
	assert.True(t, Intersect(b, a))
}

func TestEndDateIsInclusive(t *testing.T) {
	a := rate(date(2024, 1, 1), date(2024, 1, 31), 0, 86400, 0, 1, 2, 3, 4, 5, 6)
	b := rate(date(2024, 1, 31), date(2024, 2, 10), 0, 86400, 0, 1, 2, 3, 4, 5, 6)
	c := rate(date(2024, 2, 1), date(2024, 2, 10), 0, 86400, 0, 1, 2, 3, 4, 5, 6)
	assert.True(t, Intersect(a, b))
	assert.False(t, Intersect(a, c))
}

func TestRecurringRatesWrappingNewYear(t *testing.T) {
	winter := rate(date(2023, 12, 15), date(2024, 1, 15), 0, 86400, 0)
	winter.RecursYearly = true
	january := rate(date(2019, 1, 10), date(2019, 1, 12), 0, 86400, 0)
	january.RecursYearly = true
	july := rate(date(2030, 7, 1), date(2030, 7, 31), 0, 86400, 0)
	july.RecursYearly = true

	assert.True(t, Intersect(winter, january))
	assert.True(t, Intersect(january, winter))
	assert.False(t, Intersect(winter, july))
}

func TestRecurringAgainstMultiYearFixedRate(t *testing.T) {
	summer := rate(date(2020, 8, 1), date(2020, 8, 31), 0, 86400, 5)
	summer.RecursYearly = true
	fixed := rate(date(2026, 3, 1), date(2027, 8, 5), 0, 86400, 5)
	assert.True(t, Intersect(fixed, summer))

	fixed.EndAt = date(2027, 7, 31)
	fixed.StartAt = date(2026, 9, 1)
	assert.False(t, Intersect(fixed, summer))
}

func TestDisjointWeekdaysNeverIntersect(t *testing.T) {
	a := rate(date(2024, 1, 1), date(2024, 12, 31), 0, 86400, 0, 1, 2)
	b := rate(date(2024, 1, 1), date(2024, 12, 31), 0, 86400, 3, 4)
	assert.False(t, Intersect(a, b))
}

func TestIntersectIsSymmetric(t *testing.T) {
	rates := []Rate{
		rate(date(2024, 6, 1), date(2024, 6, 30), 0, 43200, 0),
		rate(date(2025, 6, 15), date(2025, 6, 15), 43200, 86400, 0),
		rate(date(2023, 12, 20), date(2024, 1, 5), 3600, 7200, 0, 6),
		rate(date(2019, 1, 1), date(2019, 1, 3), 0, 86400, 6),
		rate(date(2024, 3, 1), date(2026, 2, 1), 0, 3600, 1, 2),
		rate(date(2024, 2, 29), date(2024, 2, 29), 0, 86400, 3),
	}
	rates[0].RecursYearly = true
	rates[2].RecursYearly = true
	rates[3].RecursYearly = true
	rates[5].RecursYearly = true

	for i := range rates {
		for j := range rates {
			assert.Equal(t, Intersect(rates[i], rates[j]), Intersect(rates[j], rates[i]), "rates %d and %d", i, j)
		}
	}
}
