package schedule

// Venue is a physical field with bounded daily operating hours.
type Venue struct {
	ID    string
	Name  string
	Open  Clock
	Close Clock
}

// IsTimeAvailable reports whether t falls within the venue's operating
// window [Open, Close).
func IsTimeAvailable(t Clock, v Venue) bool {
	return v.Open <= t && t < v.Close
}

// Fits reports whether a game of the given duration starting at start ends
// no later than the venue closes.
func (v Venue) Fits(start Clock, duration int) bool {
	return IsTimeAvailable(start, v) && start.Add(duration) <= v.Close
}

// OperatingWindow returns the earliest opening and latest closing time across
// the venues, or 09:00-17:00 when no venues are given.
func OperatingWindow(venues []Venue) (Clock, Clock) {
	if len(venues) == 0 {
		return defaultOpen, defaultClose
	}
	earliest, latest := venues[0].Open, venues[0].Close
	for _, v := range venues[1:] {
		if v.Open < earliest {
			earliest = v.Open
		}
		if v.Close > latest {
			latest = v.Close
		}
	}
	return earliest, latest
}

const (
	defaultOpen  Clock = 9 * 60
	defaultClose Clock = 17 * 60
)
