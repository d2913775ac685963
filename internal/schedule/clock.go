package schedule

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrMalformedTime is returned when a wall-clock string is not HH:MM.
var ErrMalformedTime = errors.New("malformed time")

// minutesPerDay is the value of the 24:00 closing time.
const minutesPerDay = 24 * 60

// Clock is a venue-local wall-clock time expressed as minutes since midnight.
type Clock int

// ParseClock parses a 24-hour "HH:MM" string. "24:00" is accepted so that a
// venue can close at midnight; anything else outside 00:00-23:59 is an error.
func ParseClock(s string) (Clock, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 || !digits(hh) || !digits(mm) {
		return 0, errors.Wrapf(ErrMalformedTime, "%q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, errors.Wrapf(ErrMalformedTime, "%q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, errors.Wrapf(ErrMalformedTime, "%q", s)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, errors.Wrapf(ErrMalformedTime, "%q out of range", s)
	}
	return Clock(h*60 + m), nil
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// MustParseClock is like ParseClock but panics on malformed input.
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Add returns the clock shifted by the given number of minutes.
func (c Clock) Add(minutes int) Clock {
	return c + Clock(minutes)
}

// Snap rounds c to the nearest multiple of interval, rounding halves up.
func (c Clock) Snap(interval Interval) Clock {
	if interval <= 0 {
		return c
	}
	step := float64(interval)
	return Clock(int(math.Floor(float64(c)/step+0.5)) * int(interval))
}

// MarshalText lets clocks appear as "HH:MM" in YAML and JSON documents.
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Interval is a grid granularity in minutes.
type Interval int

const (
	Interval15 Interval = 15
	Interval30 Interval = 30
	Interval60 Interval = 60
)

// Valid reports whether the interval is one of the supported granularities.
func (i Interval) Valid() bool {
	switch i {
	case Interval15, Interval30, Interval60:
		return true
	default:
		return false
	}
}

// Minutes returns the interval length as a plain minute count.
func (i Interval) Minutes() int {
	return int(i)
}
