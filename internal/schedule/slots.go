package schedule

import (
	"iter"
	"time"
)

// Slot is a candidate (date, time) cell on the schedule grid.
type Slot struct {
	Date time.Time
	Time Clock
}

// GenerateSlots yields one slot per interval step for every day from start to
// end inclusive, spanning the combined operating window of the venues.
//
// Slots are not filtered per venue: venues in one tournament may keep
// different hours, so that filtering happens per venue at render and
// conflict-check time. The sequence is lazy and can be ranged repeatedly.
func GenerateSlots(start, end time.Time, venues []Venue, interval Interval) iter.Seq[Slot] {
	earliest, latest := OperatingWindow(venues)
	first := truncateDay(start)
	last := truncateDay(end)

	return func(yield func(Slot) bool) {
		if interval <= 0 {
			return
		}
		for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
			for t := earliest; t < latest; t = t.Add(int(interval)) {
				if !yield(Slot{Date: d, Time: t}) {
					return
				}
			}
		}
	}
}

// SlotsForVenue narrows a slot sequence to the slots the venue is open for.
func SlotsForVenue(slots iter.Seq[Slot], v Venue) iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		for s := range slots {
			if !IsTimeAvailable(s.Time, v) {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}

// Days returns each calendar day from start to end inclusive.
func Days(start, end time.Time) []time.Time {
	var days []time.Time
	for d := truncateDay(start); !d.After(truncateDay(end)); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether two timestamps fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// InRange reports whether date falls on a calendar day from first to last
// inclusive. A zero bound is open.
func InRange(date, first, last time.Time) bool {
	d := dayNumber(date)
	if !first.IsZero() && d < dayNumber(first) {
		return false
	}
	if !last.IsZero() && d > dayNumber(last) {
		return false
	}
	return true
}

func dayNumber(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
