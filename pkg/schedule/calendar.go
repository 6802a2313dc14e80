// File: pkg/schedule/calendar.go
package schedule

import (
	"fmt"
	"strings"
	"time"
)

const (
	marketTimeZone = "America/New_York"
	holidayLayout  = "2006-01-02"

	openHour    = 9
	openMinute  = 30
	closeHour   = 16
	closeMinute = 0
)

// Calendar answers market-hours questions for the regular US equity session:
// 09:30 to 16:00 America/New_York on weekdays that are not configured
// holidays.
type Calendar struct {
	loc      *time.Location
	holidays map[string]bool
}

// NewCalendar loads the exchange time zone and parses the configured holiday
// dates (YYYY-MM-DD strings).
func NewCalendar(holidays []string) (*Calendar, error) {
	loc, err := time.LoadLocation(marketTimeZone)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s tzdata: %w", marketTimeZone, err)
	}
	set := make(map[string]bool, len(holidays))
	for _, raw := range holidays {
		day, err := time.ParseInLocation(holidayLayout, strings.TrimSpace(raw), loc)
		if err != nil {
			return nil, fmt.Errorf("invalid market holiday %q: %w", raw, err)
		}
		set[day.Format(holidayLayout)] = true
	}
	return &Calendar{loc: loc, holidays: set}, nil
}

// Location returns the exchange time zone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// IsMarketHoliday reports whether t falls on a configured holiday.
func (c *Calendar) IsMarketHoliday(t time.Time) bool {
	return c.holidays[t.In(c.loc).Format(holidayLayout)]
}

// IsMarketDay reports whether t falls on a weekday that is not a holiday.
func (c *Calendar) IsMarketDay(t time.Time) bool {
	local := t.In(c.loc)
	wd := local.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !c.holidays[local.Format(holidayLayout)]
}

// IsMarketOpenAt reports whether the regular session is open at t. The 09:30
// open and the 16:00 close both count as open.
func (c *Calendar) IsMarketOpenAt(t time.Time) bool {
	local := t.In(c.loc)
	if !c.IsMarketDay(local) {
		return false
	}
	openAt, closeAt := c.sessionBounds(local)
	return !local.Before(openAt) && !local.After(closeAt)
}

// NextMarketOpen returns the first moment at or after t when orders can
// trade: t itself during a session, the same day's 09:30 before the open,
// otherwise 09:30 on the next market day.
func (c *Calendar) NextMarketOpen(t time.Time) time.Time {
	local := t.In(c.loc)
	if c.IsMarketDay(local) {
		openAt, closeAt := c.sessionBounds(local)
		if !local.After(openAt) {
			return openAt
		}
		if !local.After(closeAt) {
			return local
		}
	}
	day := local
	for {
		day = day.AddDate(0, 0, 1)
		if c.IsMarketDay(day) {
			openAt, _ := c.sessionBounds(day)
			return openAt
		}
	}
}

func (c *Calendar) sessionBounds(local time.Time) (time.Time, time.Time) {
	openAt := time.Date(local.Year(), local.Month(), local.Day(), openHour, openMinute, 0, 0, c.loc)
	closeAt := time.Date(local.Year(), local.Month(), local.Day(), closeHour, closeMinute, 0, 0, c.loc)
	return openAt, closeAt
}
