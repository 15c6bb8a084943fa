// Package scheduling resolves which fixed slots of a business day remain
// bookable once the salon's own confirmed bookings and the professional's
// external calendar are taken into account.
package scheduling

import (
	"fmt"
	"time"
)

// DefaultSlotTimes is the walk-in grid offered to clients: hourly slots with
// a lunch break at noon.
var DefaultSlotTimes = []string{"09:00", "10:00", "11:00", "13:00", "14:00", "15:00", "16:00", "17:00"}

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// SlotCalendar is the static ordered sequence of candidate start times for a
// business day.
type SlotCalendar struct {
	times []string
}

// NewSlotCalendar validates the HH:MM entries and keeps their order.
func NewSlotCalendar(times []string) (*SlotCalendar, error) {
	if len(times) == 0 {
		times = DefaultSlotTimes
	}
	for _, t := range times {
		if _, err := time.Parse(timeLayout, t); err != nil {
			return nil, fmt.Errorf("scheduling: invalid slot time %q: %w", t, err)
		}
	}
	out := make([]string, len(times))
	copy(out, times)
	return &SlotCalendar{times: out}, nil
}

// Times returns a copy of the candidate start times.
func (c *SlotCalendar) Times() []string {
	out := make([]string, len(c.times))
	copy(out, c.times)
	return out
}

// clockOn anchors an HH:MM string on the given date in the salon's timezone.
func clockOn(date, hhmm string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout+"T"+timeLayout, date+"T"+hhmm, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("scheduling: invalid time %q on %q: %w", hhmm, date, err)
	}
	return t, nil
}

// ParseDate validates the YYYY-MM-DD date strings used throughout bookings.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("scheduling: invalid date %q: %w", date, err)
	}
	return t, nil
}
