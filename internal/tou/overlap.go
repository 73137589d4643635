package tou

import "time"

// doIntRangesIntersect reports whether [a1, a2) and [b1, b2) share a point.
func doIntRangesIntersect(a1, a2, b1, b2 int64) bool {
	return (a1 <= b1 && b1 < a2) || (a1 < b2 && b2 <= a2) || (b1 <= a1 && a1 < b2)
}

// Intersect reports whether two rates overlap in calendar date, weekday and time of day.
func Intersect(a, b Rate) bool {
	return datesIntersect(a, b) && weekdaysIntersect(a.DaysOfWeek, b.DaysOfWeek) &&
		doIntRangesIntersect(int64(a.DayStartedAtSeconds), int64(a.DayEndedAtSeconds),
			int64(b.DayStartedAtSeconds), int64(b.DayEndedAtSeconds))
}

func datesIntersect(a, b Rate) bool {
	switch {
	case a.RecursYearly && b.RecursYearly:
		// Align b to a's year; the neighbours catch windows that wrap the new year.
		shift := a.StartAt.Year - b.StartAt.Year
		for _, k := range []int{-1, 0, 1} {
			if windowsIntersect(a, 0, b, shift+k) {
				return true
			}
		}
		return false
	case a.RecursYearly:
		return recurringIntersectsFixed(a, b)
	case b.RecursYearly:
		return recurringIntersectsFixed(b, a)
	default:
		return windowsIntersect(a, 0, b, 0)
	}
}

// recurringIntersectsFixed tests every yearly instance of recurring that can touch fixed.
func recurringIntersectsFixed(recurring, fixed Rate) bool {
	for year := fixed.StartAt.Year - 1; year <= fixed.EndAt.Year; year++ {
		if windowsIntersect(fixed, 0, recurring, year-recurring.StartAt.Year) {
			return true
		}
	}
	return false
}

func windowsIntersect(a Rate, aShift int, b Rate, bShift int) bool {
	a1, a2 := window(a, aShift)
	b1, b2 := window(b, bShift)
	return doIntRangesIntersect(a1, a2, b1, b2)
}

// window returns the rate's dates as Unix seconds, shifted by years, ending after EndAt's day.
func window(r Rate, years int) (int64, int64) {
	start := time.Date(r.StartAt.Year+years, r.StartAt.Month, r.StartAt.Day, 0, 0, 0, 0, time.UTC)
	end := time.Date(r.EndAt.Year+years, r.EndAt.Month, r.EndAt.Day+1, 0, 0, 0, 0, time.UTC)
	return start.Unix(), end.Unix()
}

func weekdaysIntersect(a, b []int) bool {
	set := make(map[int]struct{}, len(a))
	for _, d := range a {
		set[d] = struct{}{}
	}
	for _, d := range b {
		if _, ok := set[d]; ok {
			return true
		}
	}
	return false
}
