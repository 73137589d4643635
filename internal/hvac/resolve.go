package hvac

import (
	"sort"
	"time"
)

// lookbackDays is how far CurrentEventAt walks back. Offset 7 is the same weekday one week
// earlier, so a single configured weekday still resolves before its first event of the day.
const lookbackDays = 7

// CurrentEventAt returns the event in effect at now. now must already be in the location's zone.
func CurrentEventAt(week Week, now time.Time) (ScheduleEvent, bool) {
	today := Weekday(now)
	clock := ClockOf(now)
	for offset := 0; offset <= lookbackDays; offset++ {
		day := week[(today-offset+7)%7]
		if day == nil || len(day.Events) == 0 {
			continue
		}
		events := sortedDescending(day.Events)
		if offset > 0 {
			return events[0], true
		}
		for _, ev := range events {
			if ev.Time <= clock {
				return ev, true
			}
		}
	}
	return ScheduleEvent{}, false
}

// NextEventAt returns the first event strictly after now. Candidates keep their wall-clock time
// in now's zone across DST changes. Ties keep the earliest weekday and stored event order.
func NextEventAt(week Week, now time.Time) (NextEvent, bool) {
	today := Weekday(now)
	clock := ClockOf(now)
	var (
		best  NextEvent
		delta time.Duration
		found bool
	)
	for weekday, day := range week {
		if day == nil {
			continue
		}
		for _, ev := range day.Events {
			daysAhead := (weekday - today + 7) % 7
			if daysAhead == 0 && ev.Time <= clock {
				daysAhead = 7
			}
			at := time.Date(now.Year(), now.Month(), now.Day()+daysAhead,
				ev.Time.Hour(), ev.Time.Minute(), ev.Time.Second(), 0, now.Location())
			d := at.Sub(now)
			if !found || d < delta {
				best, delta, found = NextEvent{Event: ev, At: at}, d, true
			}
		}
	}
	return best, found
}

func sortedDescending(events []ScheduleEvent) []ScheduleEvent {
	out := make([]ScheduleEvent, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time > out[j].Time })
	return out
}
