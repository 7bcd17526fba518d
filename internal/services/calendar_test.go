package services

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func TestBusinessCalendar_WeekdaysOnly(t *testing.T) {
	c := NewBusinessCalendar(CalendarWeekdaysOnly)

	// Friday 2024-03-08 + 1 business day = Monday 2024-03-11
	got := c.AddBusinessDays(date(2024, time.March, 8), 1)
	if !got.Equal(date(2024, time.March, 11)) {
		t.Errorf("AddBusinessDays = %s, expected 2024-03-11", got.Format("2006-01-02"))
	}

	got = c.AddBusinessDays(date(2024, time.March, 4), 10)
	if !got.Equal(date(2024, time.March, 18)) {
		t.Errorf("AddBusinessDays(10) = %s, expected 2024-03-18", got.Format("2006-01-02"))
	}
}

func TestBusinessCalendar_US_SkipsIndependenceDay(t *testing.T) {
	c := NewBusinessCalendar("US")

	if c.IsWorkday(date(2024, time.July, 4)) {
		t.Error("2024-07-04 should not be a US workday")
	}
	// Wed 2024-07-03 + 1 business day skips Thursday the 4th.
	got := c.AddBusinessDays(date(2024, time.July, 3), 1)
	if !got.Equal(date(2024, time.July, 5)) {
		t.Errorf("AddBusinessDays = %s, expected 2024-07-05", got.Format("2006-01-02"))
	}
}

func TestBusinessCalendar_China(t *testing.T) {
	c := NewBusinessCalendar(CalendarChina)

	if c.IsWorkday(date(2024, time.October, 1)) {
		t.Error("National Day should not be a workday in CN")
	}
	// Sunday 2024-09-29 was a make-up workday.
	if !c.IsWorkday(date(2024, time.September, 29)) {
		t.Error("2024-09-29 should be a make-up workday in CN")
	}
}

func TestBusinessCalendar_UnknownFallsBackToWeekdays(t *testing.T) {
	c := NewBusinessCalendar("ZZ")
	if c.IsWorkday(date(2024, time.March, 9)) {
		t.Error("Saturday should not be a workday")
	}
	if !c.IsWorkday(date(2024, time.July, 4)) {
		t.Error("unknown calendar should ignore national holidays")
	}
}

func TestSupportedCalendars(t *testing.T) {
	codes := SupportedCalendars()
	if codes[0] != CalendarWeekdaysOnly || codes[1] != CalendarChina {
		t.Errorf("special calendars should lead the list, got %v", codes[:2])
	}
	if len(codes) != len(holidaySets)+2 {
		t.Errorf("expected %d calendars, got %d", len(holidaySets)+2, len(codes))
	}
}
