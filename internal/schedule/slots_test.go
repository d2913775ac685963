package schedule

import (
	"slices"
	"testing"
	"time"
)

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func testVenues() []Venue {
	return []Venue{
		{ID: "diamond-a", Name: "Diamond A", Open: MustParseClock("09:00"), Close: MustParseClock("17:00")},
		{ID: "diamond-b", Name: "Diamond B", Open: MustParseClock("08:00"), Close: MustParseClock("20:00")},
	}
}

func TestGenerateSlots(t *testing.T) {
	start, end := mustDate("2025-07-01"), mustDate("2025-07-03")
	slots := slices.Collect(GenerateSlots(start, end, testVenues(), Interval60))

	t.Run("spans the combined operating window", func(t *testing.T) {
		// 08:00-20:00 at 60 minutes is 12 slots a day, for 3 days.
		if len(slots) != 36 {
			t.Fatalf("slots = %d, want 36", len(slots))
		}
		if slots[0].Time != MustParseClock("08:00") {
			t.Errorf("first slot = %s, want 08:00", slots[0].Time)
		}
		if slots[11].Time != MustParseClock("19:00") {
			t.Errorf("last slot of day = %s, want 19:00", slots[11].Time)
		}
	})

	t.Run("days are inclusive and ordered", func(t *testing.T) {
		if !slots[0].Date.Equal(start) {
			t.Errorf("first date = %v, want %v", slots[0].Date, start)
		}
		if !slots[len(slots)-1].Date.Equal(end) {
			t.Errorf("last date = %v, want %v", slots[len(slots)-1].Date, end)
		}
		for i := 1; i < len(slots); i++ {
			prev, cur := slots[i-1], slots[i]
			if cur.Date.Before(prev.Date) || (cur.Date.Equal(prev.Date) && cur.Time <= prev.Time) {
				t.Fatalf("slot %d (%v %s) is not after slot %d (%v %s)", i, cur.Date, cur.Time, i-1, prev.Date, prev.Time)
			}
		}
	})

	t.Run("restartable", func(t *testing.T) {
		seq := GenerateSlots(start, end, testVenues(), Interval30)
		first := slices.Collect(seq)
		second := slices.Collect(seq)
		if !slices.Equal(first, second) {
			t.Error("ranging the sequence twice produced different slots")
		}
		if len(first) != 72 {
			t.Errorf("slots at 30 minutes = %d, want 72", len(first))
		}
	})

	t.Run("stops early", func(t *testing.T) {
		n := 0
		for range GenerateSlots(start, end, testVenues(), Interval15) {
			n++
			if n == 5 {
				break
			}
		}
		if n != 5 {
			t.Errorf("iterations = %d, want 5", n)
		}
	})

	t.Run("defaults to 09:00-17:00 without venues", func(t *testing.T) {
		slots := slices.Collect(GenerateSlots(start, start, nil, Interval60))
		if len(slots) != 8 {
			t.Fatalf("slots = %d, want 8", len(slots))
		}
		if slots[0].Time != MustParseClock("09:00") || slots[7].Time != MustParseClock("16:00") {
			t.Errorf("range = %s-%s, want 09:00-16:00", slots[0].Time, slots[7].Time)
		}
	})

	t.Run("end before start yields nothing", func(t *testing.T) {
		slots := slices.Collect(GenerateSlots(end, start, testVenues(), Interval60))
		if len(slots) != 0 {
			t.Errorf("slots = %d, want 0", len(slots))
		}
	})
}

func TestSlotsForVenue(t *testing.T) {
	day := mustDate("2025-07-01")
	venues := testVenues()
	slots := slices.Collect(SlotsForVenue(GenerateSlots(day, day, venues, Interval60), venues[0]))

	if len(slots) != 8 {
		t.Fatalf("Diamond A slots = %d, want 8", len(slots))
	}
	for _, s := range slots {
		if !IsTimeAvailable(s.Time, venues[0]) {
			t.Errorf("slot %s is outside Diamond A hours", s.Time)
		}
	}
}

func TestDays(t *testing.T) {
	days := Days(mustDate("2025-06-30"), mustDate("2025-07-02"))
	want := []time.Time{mustDate("2025-06-30"), mustDate("2025-07-01"), mustDate("2025-07-02")}
	if len(days) != len(want) {
		t.Fatalf("days = %d, want %d", len(days), len(want))
	}
	for i := range want {
		if !days[i].Equal(want[i]) {
			t.Errorf("day %d = %v, want %v", i, days[i], want[i])
		}
	}
}

func TestIsTimeAvailable(t *testing.T) {
	v := testVenues()[0]
	tests := []struct {
		time string
		want bool
	}{
		{"08:59", false},
		{"09:00", true},
		{"12:30", true},
		{"16:59", true},
		{"17:00", false},
		{"23:00", false},
	}
	for _, tt := range tests {
		t.Run(tt.time, func(t *testing.T) {
			if got := IsTimeAvailable(MustParseClock(tt.time), v); got != tt.want {
				t.Errorf("IsTimeAvailable(%s) = %v, want %v", tt.time, got, tt.want)
			}
		})
	}
}

func TestVenueFits(t *testing.T) {
	v := testVenues()[0]
	if !v.Fits(MustParseClock("15:30"), 90) {
		t.Error("15:30 + 90 should end exactly at closing")
	}
	if v.Fits(MustParseClock("16:00"), 90) {
		t.Error("16:00 + 90 should run past closing")
	}
}
