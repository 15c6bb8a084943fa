// Package calendar integrates with the professional's external Google
// Calendar: busy-interval lookups for availability, mirrored events for
// confirmed bookings, and existence checks for stale-booking cleanup.
package calendar

import "time"

// Interval is a half-open busy window [Start, End) reported by the external
// calendar. It is derived per request and never persisted.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether [start, end) intersects the interval under the
// half-open rule: touching boundaries do not conflict.
func (iv Interval) Overlaps(start, end time.Time) bool {
	return start.Before(iv.End) && end.After(iv.Start)
}

// EventInput describes a mirrored event for a confirmed booking.
type EventInput struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Timezone    string
}

// EventRef identifies a created mirror event upstream.
type EventRef struct {
	ID       string `json:"id"`
	HTMLLink string `json:"html_link,omitempty"`
}
