package scheduling

import (
	"time"

	"github.com/laviebeauty/lavie-platform/internal/calendar"
)

// ResolveInput carries one availability computation.
type ResolveInput struct {
	// Date is the business day being resolved, YYYY-MM-DD.
	Date string
	// Location anchors slot clock times to the salon's timezone.
	Location *time.Location
	// SlotTimes is the ordered candidate grid for the day.
	SlotTimes []string
	// DurationMinutes is the requested service duration.
	DurationMinutes int
	// InternalBusy holds the exact start times of the salon's own confirmed
	// bookings for the professional on that day.
	InternalBusy []string
	// ExternalBusy holds the professional's external calendar busy windows.
	ExternalBusy []calendar.Interval
}

// AvailableSlots returns the ordered subset of the slot grid that neither an
// internal booking nor an external busy interval blocks.
//
// A slot is excluded when its start time matches an internal booking exactly,
// or when [slotStart, slotStart+duration) intersects any external interval
// under the half-open rule. A booking ending exactly when another starts is
// not a conflict.
func AvailableSlots(in ResolveInput) ([]string, error) {
	internal := make(map[string]struct{}, len(in.InternalBusy))
	for _, t := range in.InternalBusy {
		internal[t] = struct{}{}
	}

	duration := time.Duration(in.DurationMinutes) * time.Minute
	available := make([]string, 0, len(in.SlotTimes))
	for _, slot := range in.SlotTimes {
		if _, taken := internal[slot]; taken {
			continue
		}

		start, err := clockOn(in.Date, slot, in.Location)
		if err != nil {
			return nil, err
		}
		end := start.Add(duration)

		blocked := false
		for _, busy := range in.ExternalBusy {
			if busy.Overlaps(start, end) {
				blocked = true
				break
			}
		}
		if !blocked {
			available = append(available, slot)
		}
	}
	return available, nil
}
