// Package period cuts time into pay-cycle periods that start on a fixed
// day of the month and summarizes the transactions inside them.
package period

import (
	"fmt"
	"time"

	"github.com/FACorreiaa/paycycle-budget/internal/apperr"
)

// DefaultStartDay is the 25th, the usual Swedish salary day.
const DefaultStartDay = 25

// Period is a closed interval from Start 00:00:00 to End 23:59:59.999999.
// Both bounds are UTC wall-clock values of calendar dates.
type Period struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
	Label string    `json:"label"`
}

// Contains reports whether t falls inside the period, bounds included.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// Locale holds the words used in labels and summaries.
type Locale struct {
	Months        [12]string
	Uncategorized string
}

var (
	Swedish = Locale{
		Months:        [12]string{"jan", "feb", "mar", "apr", "maj", "jun", "jul", "aug", "sep", "okt", "nov", "dec"},
		Uncategorized: "Okategoriserad",
	}
	English = Locale{
		Months:        [12]string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"},
		Uncategorized: "Uncategorized",
	}
)

// LocaleFor maps a config value to a Locale, defaulting to Swedish.
func LocaleFor(code string) Locale {
	if code == "en" {
		return English
	}
	return Swedish
}

// Calculator computes period boundaries.
type Calculator struct {
	startDay int
	locale   Locale
	location *time.Location
	now      func() time.Time
}

type Option func(*Calculator)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) { c.now = now }
}

// WithLocale sets the month names used in labels.
func WithLocale(l Locale) Option {
	return func(c *Calculator) { c.locale = l }
}

// WithLocation sets the zone that decides which calendar day "today" is.
func WithLocation(loc *time.Location) Option {
	return func(c *Calculator) { c.location = loc }
}

// NewCalculator validates startDay. Days above 28 are rejected because not
// every month has them.
func NewCalculator(startDay int, opts ...Option) (*Calculator, error) {
	if startDay < 1 || startDay > 28 {
		return nil, apperr.Validation("period start day must be between 1 and 28, got %d", startDay)
	}
	c := &Calculator{
		startDay: startDay,
		locale:   Swedish,
		location: time.UTC,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Calculator) StartDay() int { return c.startDay }

func (c *Calculator) Locale() Locale { return c.locale }

// PeriodForDate returns the period containing the calendar date of t.
func (c *Calculator) PeriodForDate(t time.Time) Period {
	year, month, day := t.Date()
	if day < c.startDay {
		month--
	}
	// time.Date normalizes month 0 to December of the previous year
	start := time.Date(year, month, c.startDay, 0, 0, 0, 0, time.UTC)
	return c.fromStart(start)
}

// Current returns the period containing today.
func (c *Calculator) Current() Period {
	now := c.now().In(c.location)
	y, m, d := now.Date()
	return c.PeriodForDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// Previous returns the period containing the date one month before p starts.
// For a calculated period that is the one ending the day before p starts.
func (c *Calculator) Previous(p Period) Period {
	return c.PeriodForDate(shiftMonths(p.Start, -1))
}

// Next returns the period containing the date one month after p starts.
func (c *Calculator) Next(p Period) Period {
	return c.PeriodForDate(shiftMonths(p.Start, 1))
}

// shiftMonths moves t by n calendar months, clamping the day to the length
// of the target month (31 mar - 1 month is 29 feb in a leap year).
func shiftMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	return time.Date(first.Year(), first.Month(), min(d, last), 0, 0, 0, 0, time.UTC)
}

// Label renders "25 jan - 24 feb 2024" style labels.
func (c *Calculator) Label(start, end time.Time) string {
	return fmt.Sprintf("%d %s - %d %s %d",
		start.Day(), c.locale.Months[start.Month()-1],
		end.Day(), c.locale.Months[end.Month()-1], end.Year())
}

func (c *Calculator) fromStart(start time.Time) Period {
	// day startDay-1 of the next month; day 0 normalizes to the last day of this month
	end := time.Date(start.Year(), start.Month()+1, c.startDay-1, 23, 59, 59, 999999000, time.UTC)
	return Period{Start: start, End: end, Label: c.Label(start, end)}
}

// DayBounds returns 00:00:00 and 23:59:59.999999 of the given calendar dates.
func DayBounds(from, to time.Time) (time.Time, time.Time) {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	return time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC),
		time.Date(ty, tm, td, 23, 59, 59, 999999000, time.UTC)
}
