package calendar

import (
	"errors"
	"testing"
	"time"
)

func mustZone(t *testing.T, name string) Zone {
	t.Helper()
	z, err := LoadZone(name)
	if err != nil {
		t.Fatalf("load zone %s: %v", name, err)
	}
	return z
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != (Date{Year: 2024, Month: time.March, Day: 10}) {
		t.Fatalf("unexpected date %+v", d)
	}

	for _, bad := range []string{"", "2024-3-10", "2024-02-30", "10.03.2024", "2024-03-10T00:00"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("ParseDate(%q): expected ErrInvalidDate, got %v", bad, err)
		}
	}
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:45")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if int(c) != 9*60+45 || c.String() != "09:45" {
		t.Fatalf("unexpected clock %d (%s)", c, c)
	}

	for _, bad := range []string{"9:45", "24:00", "12:60", "ab:cd", "12-30", "12:3"} {
		if _, err := ParseClock(bad); !errors.Is(err, ErrInvalidClock) {
			t.Fatalf("ParseClock(%q): expected ErrInvalidClock, got %v", bad, err)
		}
	}
}

func TestLoadZone_Unknown(t *testing.T) {
	if _, err := LoadZone("Mars/Olympus_Mons"); !errors.Is(err, ErrUnknownTimezone) {
		t.Fatalf("expected ErrUnknownTimezone, got %v", err)
	}
	if _, err := LoadZone(""); !errors.Is(err, ErrUnknownTimezone) {
		t.Fatalf("expected ErrUnknownTimezone for empty name, got %v", err)
	}
}

func TestZoneToUTC_Kolkata(t *testing.T) {
	z := mustZone(t, "Asia/Kolkata")
	got := z.ToUTC(NewDate(2024, time.March, 11), Clock(9*60))
	want := time.Date(2024, time.March, 11, 3, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestZoneToUTC_ChicagoDST(t *testing.T) {
	z := mustZone(t, "America/Chicago")

	cases := []struct {
		date  Date
		clock string
		want  time.Time
	}{
		// CST before the spring transition.
		{NewDate(2024, time.March, 10), "01:30", time.Date(2024, time.March, 10, 7, 30, 0, 0, time.UTC)},
		// CDT after it.
		{NewDate(2024, time.March, 10), "03:30", time.Date(2024, time.March, 10, 8, 30, 0, 0, time.UTC)},
		// Repeated hour in the fall resolves to the first (CDT) occurrence.
		{NewDate(2024, time.November, 3), "01:30", time.Date(2024, time.November, 3, 6, 30, 0, 0, time.UTC)},
		{NewDate(2024, time.November, 3), "02:30", time.Date(2024, time.November, 3, 8, 30, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		c, err := ParseClock(tc.clock)
		if err != nil {
			t.Fatalf("parse clock: %v", err)
		}
		got := z.ToUTC(tc.date, c)
		if !got.Equal(tc.want) {
			t.Fatalf("%s %s: expected %v, got %v", tc.date, tc.clock, tc.want, got)
		}
	}
}

func TestZoneToUTC_SpringGapMapsForward(t *testing.T) {
	z := mustZone(t, "America/Chicago")
	gap := z.ToUTC(NewDate(2024, time.March, 10), Clock(2*60+30))
	after := z.ToUTC(NewDate(2024, time.March, 10), Clock(3*60+30))
	if !gap.Equal(after) {
		t.Fatalf("expected 02:30 inside the gap to resolve like 03:30, got %v vs %v", gap, after)
	}
}

func TestLocalRoundTrip_AllMinutes(t *testing.T) {
	const tz = "America/Chicago"
	dates := []string{"2024-03-09", "2024-03-10", "2024-03-11", "2024-07-04", "2024-11-03"}

	for _, date := range dates {
		for m := 0; m < MinutesPerDay; m++ {
			// 02:00-02:59 does not exist on the spring-forward day.
			if date == "2024-03-10" && m >= 120 && m < 180 {
				continue
			}
			clock := Clock(m).String()

			instant, err := LocalDateTimeToUTC(date, clock, tz)
			if err != nil {
				t.Fatalf("LocalDateTimeToUTC(%s, %s): %v", date, clock, err)
			}
			gotClock, err := UTCToLocalTime(instant, tz)
			if err != nil {
				t.Fatalf("UTCToLocalTime: %v", err)
			}
			gotDate, err := UTCToLocalDate(instant, tz)
			if err != nil {
				t.Fatalf("UTCToLocalDate: %v", err)
			}
			if gotClock != clock || gotDate != date {
				t.Fatalf("round trip %s %s -> %v -> %s %s", date, clock, instant, gotDate, gotClock)
			}
		}
	}
}

func TestToUTCMinutes_PastMidnight(t *testing.T) {
	z := mustZone(t, "America/Chicago")
	got := z.ToUTCMinutes(NewDate(2024, time.June, 3), MinutesPerDay+90)
	want := z.ToUTC(NewDate(2024, time.June, 4), Clock(90))
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCalendarArithmetic(t *testing.T) {
	next, err := AddCalendarDays("2024-02-28", 2, "Asia/Kolkata")
	if err != nil {
		t.Fatalf("AddCalendarDays: %v", err)
	}
	if next != "2024-03-01" {
		t.Fatalf("expected 2024-03-01, got %s", next)
	}

	dow, err := DayOfWeek("2024-03-11", "Asia/Kolkata")
	if err != nil {
		t.Fatalf("DayOfWeek: %v", err)
	}
	if dow != int(time.Monday) {
		t.Fatalf("expected Monday (1), got %d", dow)
	}

	if _, err := DayOfWeek("2024-03-11", "Nowhere/Zone"); !errors.Is(err, ErrUnknownTimezone) {
		t.Fatalf("expected ErrUnknownTimezone, got %v", err)
	}
}

func TestDateOnlyToStorage(t *testing.T) {
	got, err := DateOnlyToStorage("2024-12-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected storage instant %v", got)
	}
	if DateFromStorage(got) != NewDate(2024, time.December, 31) {
		t.Fatalf("storage round trip failed")
	}
}

func TestZoneToday_UsesClinicCalendar(t *testing.T) {
	z := mustZone(t, "Asia/Kolkata")
	// 20:00 UTC is already the next day in India.
	now := time.Date(2024, time.March, 10, 20, 0, 0, 0, time.UTC)
	if got := z.Today(now); got != NewDate(2024, time.March, 11) {
		t.Fatalf("expected 2024-03-11, got %s", got)
	}
}

func TestDateCompare(t *testing.T) {
	a := NewDate(2024, time.January, 31)
	b := a.AddDays(1)
	if b != NewDate(2024, time.February, 1) {
		t.Fatalf("unexpected AddDays result %s", b)
	}
	if !a.Before(b) || !b.After(a) || a.Compare(a) != 0 {
		t.Fatalf("compare broken")
	}
	if a.DaysUntil(b) != 1 || b.DaysUntil(a) != -1 {
		t.Fatalf("DaysUntil broken")
	}
	if !a.Between(a, b) || a.AddDays(-1).Between(a, b) {
		t.Fatalf("Between broken")
	}
}
