package services

import (
	"sort"
	"time"

	"github.com/6tail/lunar-go/HolidayUtil"
	"github.com/6tail/lunar-go/calendar"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/au"
	"github.com/rickar/cal/v2/br"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/es"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/ie"
	"github.com/rickar/cal/v2/it"
	"github.com/rickar/cal/v2/jp"
	"github.com/rickar/cal/v2/nl"
	"github.com/rickar/cal/v2/nz"
	"github.com/rickar/cal/v2/us"
)

// Country codes with special handling.
const (
	CalendarWeekdaysOnly = "NONE"
	CalendarChina        = "CN" // statutory holidays and make-up workdays via lunar-go
)

var holidaySets = map[string][]*cal.Holiday{
	"US": us.Holidays,
	"GB": gb.Holidays,
	"DE": de.Holidays,
	"FR": fr.Holidays,
	"JP": jp.Holidays,
	"AU": au.HolidaysNSW,
	"CA": ca.Holidays,
	"NZ": nz.Holidays,
	"IT": it.Holidays,
	"ES": es.Holidays,
	"NL": nl.Holidays,
	"IE": ie.Holidays,
	"BR": br.Holidays,
}

// BusinessCalendar counts invoice payment terms in working days for one
// country. Unknown codes fall back to Monday through Friday.
type BusinessCalendar struct {
	country string
	bc      *cal.BusinessCalendar
}

func NewBusinessCalendar(country string) *BusinessCalendar {
	c := &BusinessCalendar{country: country}
	if holidays, ok := holidaySets[country]; ok {
		c.bc = cal.NewBusinessCalendar()
		c.bc.Name = country
		c.bc.AddHoliday(holidays...)
	}
	return c
}

func (c *BusinessCalendar) Country() string { return c.country }

func (c *BusinessCalendar) IsWorkday(t time.Time) bool {
	switch {
	case c.country == CalendarChina:
		solar := calendar.NewSolarFromDate(t)
		if h := HolidayUtil.GetHolidayByYmd(solar.GetYear(), solar.GetMonth(), solar.GetDay()); h != nil {
			return h.IsWork()
		}
		return !cal.IsWeekend(t)
	case c.bc != nil:
		return c.bc.IsWorkday(t)
	default:
		return !cal.IsWeekend(t)
	}
}

// AddBusinessDays returns the date n working days after from. The time of
// day is preserved.
func (c *BusinessCalendar) AddBusinessDays(from time.Time, n int) time.Time {
	t := from
	for n > 0 {
		t = t.AddDate(0, 0, 1)
		if c.IsWorkday(t) {
			n--
		}
	}
	return t
}

// SupportedCalendars lists every accepted invoice.holiday_country value.
func SupportedCalendars() []string {
	codes := []string{CalendarWeekdaysOnly, CalendarChina}
	for code := range holidaySets {
		codes = append(codes, code)
	}
	sort.Strings(codes[2:])
	return codes
}
