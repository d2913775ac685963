package schedule

import (
	"testing"

	"github.com/cockroachdb/errors"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want Clock
	}{
		{"00:00", 0},
		{"09:05", 545},
		{"9:30", 570},
		{"23:59", 1439},
		{"24:00", 1440},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseClock(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}

	for _, bad := range []string{"", "9", "9am", "09:5", "09:60", "25:00", "24:01", "-1:00", "ab:cd", "+9:+5", "-0:00", "+1:00", "9:-5"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			if _, err := ParseClock(bad); !errors.Is(err, ErrMalformedTime) {
				t.Errorf("ParseClock(%q) error = %v, want ErrMalformedTime", bad, err)
			}
		})
	}
}

func TestClockString(t *testing.T) {
	if got := MustParseClock("09:05").String(); got != "09:05" {
		t.Errorf("String() = %q, want 09:05", got)
	}
	if got := Clock(1440).String(); got != "24:00" {
		t.Errorf("String() = %q, want 24:00", got)
	}
}

func TestSnap(t *testing.T) {
	tests := []struct {
		in       string
		interval Interval
		want     string
	}{
		{"09:05", Interval60, "09:00"},
		{"09:29", Interval60, "09:00"},
		{"09:30", Interval60, "10:00"},
		{"09:07", Interval15, "09:00"},
		{"09:08", Interval15, "09:15"},
		{"09:44", Interval30, "09:30"},
		{"09:45", Interval30, "10:00"},
		{"23:40", Interval60, "24:00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := MustParseClock(tt.in).Snap(tt.interval); got.String() != tt.want {
				t.Errorf("%s.Snap(%d) = %s, want %s", tt.in, tt.interval, got, tt.want)
			}
		})
	}
}

func TestSnapIdempotent(t *testing.T) {
	for _, interval := range []Interval{Interval15, Interval30, Interval60} {
		for c := Clock(0); c <= minutesPerDay; c++ {
			once := c.Snap(interval)
			if int(once)%int(interval) != 0 {
				t.Fatalf("%s.Snap(%d) = %s, not on the grid", c, interval, once)
			}
			if twice := once.Snap(interval); twice != once {
				t.Fatalf("%s.Snap(%d) = %s, snapping again gave %s", c, interval, once, twice)
			}
		}
	}
}

func TestClockText(t *testing.T) {
	var c Clock
	if err := c.UnmarshalText([]byte("14:45")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := c.MarshalText()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "14:45" {
		t.Errorf("MarshalText() = %q, want 14:45", out)
	}
	if err := c.UnmarshalText([]byte("nope")); !errors.Is(err, ErrMalformedTime) {
		t.Errorf("UnmarshalText(nope) error = %v, want ErrMalformedTime", err)
	}
}

func TestIntervalValid(t *testing.T) {
	for _, i := range []Interval{15, 30, 60} {
		if !i.Valid() {
			t.Errorf("Interval(%d).Valid() = false, want true", i)
		}
	}
	for _, i := range []Interval{0, 10, 45, 90} {
		if i.Valid() {
			t.Errorf("Interval(%d).Valid() = true, want false", i)
		}
	}
}
