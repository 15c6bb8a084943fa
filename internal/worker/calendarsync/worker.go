package calendarsync

import (
	"context"
	"time"

	"github.com/laviebeauty/lavie-platform/internal/booking"
	"github.com/laviebeauty/lavie-platform/internal/catalog"
	"github.com/laviebeauty/lavie-platform/pkg/logging"
)

// SalonLister enumerates the tenants to sweep.
type SalonLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// BookingStore lists mirrored bookings and removes the stale ones.
type BookingStore interface {
	ListMirrored(ctx context.Context, salonID, from, to string, limit int) ([]booking.Booking, error)
	Delete(ctx context.Context, salonID, id string) error
}

// CatalogReader resolves the professional's calendar id.
type CatalogReader interface {
	GetProfessional(ctx context.Context, salonID, id string) (*catalog.Professional, error)
}

// EventChecker reports whether a mirrored calendar event still exists.
type EventChecker interface {
	EventExists(ctx context.Context, calendarID, eventID string) (bool, error)
}

// CacheInvalidator drops cached availability for a swept day.
type CacheInvalidator interface {
	InvalidateDay(ctx context.Context, salonID, professionalID, date string)
}

// Worker periodically removes bookings whose mirrored calendar event was
// deleted or cancelled on the professional's side. The calendar is treated
// as the professional's hand: an event they removed means the appointment
// is off, and the slot opens up again.
type Worker struct {
	salons      SalonLister
	bookings    BookingStore
	catalog     CatalogReader
	checker     EventChecker
	invalidator CacheInvalidator
	interval    time.Duration
	batchSize   int
	windowDays  int
	logger      *logging.Logger
}

func NewWorker(salons SalonLister, bookings BookingStore, catalogReader CatalogReader, checker EventChecker, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		salons:     salons,
		bookings:   bookings,
		catalog:    catalogReader,
		checker:    checker,
		interval:   30 * time.Minute,
		batchSize:  200,
		windowDays: 30,
		logger:     logger,
	}
}

// WithInterval sets the sweep interval.
func (w *Worker) WithInterval(interval time.Duration) *Worker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// WithInvalidator wires availability cache invalidation into the sweep.
func (w *Worker) WithInvalidator(inv CacheInvalidator) *Worker {
	w.invalidator = inv
	return w
}

// WithWindowDays bounds how far ahead the sweep looks for mirrored bookings.
func (w *Worker) WithWindowDays(days int) *Worker {
	if days > 0 {
		w.windowDays = days
	}
	return w
}

// Start runs the sweep loop. Blocks until the context is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("starting calendar sync worker", "interval", w.interval.String())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("calendar sync worker shutting down")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep checks every mirrored booking once. It is also the body of the admin
// trigger endpoint.
func (w *Worker) Sweep(ctx context.Context) (removed int) {
	salonIDs, err := w.salons.ListIDs(ctx)
	if err != nil {
		w.logger.Error("cannot list salons for sweep", "error", err)
		return 0
	}

	for _, salonID := range salonIDs {
		removed += w.sweepSalon(ctx, salonID)
	}
	if removed > 0 {
		w.logger.Info("stale bookings removed", "count", removed)
	}
	return removed
}

func (w *Worker) sweepSalon(ctx context.Context, salonID string) (removed int) {
	now := time.Now()
	from := now.Format("2006-01-02")
	to := now.AddDate(0, 0, w.windowDays).Format("2006-01-02")
	mirrored, err := w.bookings.ListMirrored(ctx, salonID, from, to, w.batchSize)
	if err != nil {
		w.logger.Error("cannot list mirrored bookings", "salon_id", salonID, "error", err)
		return 0
	}

	for _, b := range mirrored {
		pro, err := w.catalog.GetProfessional(ctx, salonID, b.ProfessionalID)
		if err != nil || pro.GoogleCalendarID == "" {
			continue
		}

		exists, err := w.checker.EventExists(ctx, pro.GoogleCalendarID, b.ExternalEventID)
		if err != nil {
			// Transient calendar trouble: leave the booking alone and let
			// the next sweep decide.
			w.logger.Warn("cannot verify mirrored event", "booking_id", b.ID, "error", err)
			continue
		}
		if exists {
			continue
		}

		if err := w.bookings.Delete(ctx, salonID, b.ID); err != nil {
			w.logger.Error("cannot remove stale booking", "booking_id", b.ID, "error", err)
			continue
		}
		if w.invalidator != nil {
			w.invalidator.InvalidateDay(ctx, salonID, b.ProfessionalID, b.Date)
		}
		w.logger.Info("stale booking removed",
			"salon_id", salonID, "booking_id", b.ID,
			"date", b.Date, "start_time", b.StartTime, "event_id", b.ExternalEventID)
		removed++
	}
	return removed
}
