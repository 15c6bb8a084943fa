package scheduling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/laviebeauty/lavie-platform/internal/calendar"
	"github.com/laviebeauty/lavie-platform/internal/catalog"
	"github.com/laviebeauty/lavie-platform/internal/observability/metrics"
	"github.com/laviebeauty/lavie-platform/internal/salon"
	"github.com/laviebeauty/lavie-platform/pkg/logging"
)

// CatalogReader resolves services and professionals for a salon.
type CatalogReader interface {
	GetService(ctx context.Context, salonID, id string) (*catalog.Service, error)
	GetProfessional(ctx context.Context, salonID, id string) (*catalog.Professional, error)
}

// BookingReader lists the confirmed start times already taken on a day.
type BookingReader interface {
	ConfirmedStartTimes(ctx context.Context, salonID, professionalID, date string) ([]string, error)
}

// BusySource reports busy intervals from an external calendar.
type BusySource interface {
	BusyIntervals(ctx context.Context, calendarID string, start, end time.Time) ([]calendar.Interval, error)
}

// Availability is the resolved picture of one professional's day.
type Availability struct {
	Date             string              `json:"date"`
	Slots            []string            `json:"slots"`
	Busy             []calendar.Interval `json:"busy,omitempty"`
	CalendarDegraded bool                `json:"calendarDegraded,omitempty"`
}

// OwnerAlerter tells the salon owner their calendar integration broke.
type OwnerAlerter interface {
	CalendarBroken(ctx context.Context, ownerEmail, professionalName, reason string) error
}

// SalonReader resolves the owner email for calendar-broken alerts.
type SalonReader interface {
	Get(ctx context.Context, id string) (*salon.Salon, error)
}

// Service resolves bookable slots by merging internal bookings with the
// professional's external calendar.
type Service struct {
	catalogReader CatalogReader
	bookingReader BookingReader
	busySource    BusySource
	slots         *SlotCalendar
	location      *time.Location
	windowStart   string
	windowEnd     string
	defaultMins   int
	cache         *availabilityCache
	metrics       *metrics.AvailabilityMetrics
	alerter       OwnerAlerter
	salons        SalonReader
	logger        *logging.Logger
	tracer        trace.Tracer

	alertMu   sync.Mutex
	lastAlert map[string]time.Time
}

// ServiceOptions configures optional collaborators on the Service.
type ServiceOptions struct {
	Redis       *redis.Client
	CacheTTL    time.Duration
	Metrics     *metrics.AvailabilityMetrics
	WindowStart string
	WindowEnd   string
	// DefaultDurationMins covers services created without a duration.
	DefaultDurationMins int
	Alerter             OwnerAlerter
	Salons              SalonReader
	Tracer              trace.Tracer
}

func NewService(catalogReader CatalogReader, bookingReader BookingReader, busySource BusySource, slots *SlotCalendar, location *time.Location, logger *logging.Logger, opts ServiceOptions) *Service {
	if catalogReader == nil {
		panic("scheduling: catalog reader cannot be nil")
	}
	if bookingReader == nil {
		panic("scheduling: booking reader cannot be nil")
	}
	if slots == nil {
		slots, _ = NewSlotCalendar(nil)
	}
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = logging.New("info")
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("lavie.internal.scheduling")
	}
	windowStart := opts.WindowStart
	if windowStart == "" {
		windowStart = "08:00"
	}
	windowEnd := opts.WindowEnd
	if windowEnd == "" {
		windowEnd = "20:00"
	}
	defaultMins := opts.DefaultDurationMins
	if defaultMins <= 0 {
		defaultMins = 60
	}
	return &Service{
		catalogReader: catalogReader,
		bookingReader: bookingReader,
		busySource:    busySource,
		slots:         slots,
		location:      location,
		windowStart:   windowStart,
		windowEnd:     windowEnd,
		defaultMins:   defaultMins,
		cache:         newAvailabilityCache(opts.Redis, opts.CacheTTL, tracer),
		metrics:       opts.Metrics,
		alerter:       opts.Alerter,
		salons:        opts.Salons,
		logger:        logger,
		tracer:        tracer,
		lastAlert:     make(map[string]time.Time),
	}
}

// Resolve computes the available slots for a professional on a date.
//
// External calendar failures never surface a partial day: a transient or
// permission error yields zero slots with CalendarDegraded set, so the
// assistant can apologise instead of double-booking. A professional with no
// calendar configured is resolved from internal bookings alone.
func (s *Service) Resolve(ctx context.Context, salonID, professionalID, serviceID, date string) (*Availability, error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.resolve", trace.WithAttributes(
		attribute.String("salon.id", salonID),
		attribute.String("availability.date", date),
	))
	defer span.End()
	started := time.Now()

	if _, err := ParseDate(date, s.location); err != nil {
		s.metrics.ObserveRequest("bad_request")
		return nil, fmt.Errorf("scheduling: invalid date %q: %w", date, err)
	}

	svc, err := s.catalogReader.GetService(ctx, salonID, serviceID)
	if err != nil {
		s.metrics.ObserveRequest("error")
		return nil, fmt.Errorf("scheduling: resolve service: %w", err)
	}
	pro, err := s.catalogReader.GetProfessional(ctx, salonID, professionalID)
	if err != nil {
		s.metrics.ObserveRequest("error")
		return nil, fmt.Errorf("scheduling: resolve professional: %w", err)
	}

	// A zero-duration service would never overlap anything; fall back to the
	// salon default.
	duration := svc.DurationMinutes
	if duration <= 0 {
		duration = s.defaultMins
	}

	key := availabilityKey(salonID, professionalID, date, duration)
	if av, ok := s.cache.Load(ctx, key); ok {
		s.metrics.ObserveCache(true)
		s.metrics.ObserveRequest("ok")
		s.metrics.ObserveResolveLatency("cache", time.Since(started).Seconds())
		return av, nil
	}
	s.metrics.ObserveCache(false)

	internalBusy, err := s.bookingReader.ConfirmedStartTimes(ctx, salonID, professionalID, date)
	if err != nil {
		// A failed internal read degrades to "no internal conflicts": the
		// database is the source of truth at write time and the unique
		// index still rejects a double booking.
		s.logger.Warn("internal booking read failed, resolving without it",
			"salonId", salonID, "professionalId", professionalID, "date", date, "error", err)
		internalBusy = nil
	}

	externalBusy, degraded, err := s.externalBusy(ctx, salonID, pro, date)
	if err != nil {
		s.metrics.ObserveRequest("error")
		return nil, err
	}
	if degraded {
		s.metrics.ObserveRequest("degraded")
		s.metrics.ObserveResolveLatency("fresh", time.Since(started).Seconds())
		return &Availability{Date: date, Slots: []string{}, CalendarDegraded: true}, nil
	}

	available, err := AvailableSlots(ResolveInput{
		Date:            date,
		Location:        s.location,
		SlotTimes:       s.slots.Times(),
		DurationMinutes: duration,
		InternalBusy:    internalBusy,
		ExternalBusy:    externalBusy,
	})
	if err != nil {
		s.metrics.ObserveRequest("error")
		return nil, fmt.Errorf("scheduling: resolve slots: %w", err)
	}

	av := &Availability{Date: date, Slots: available, Busy: externalBusy}
	s.cache.Store(ctx, key, av)
	span.SetAttributes(attribute.Int("availability.slots", len(available)))
	s.metrics.ObserveRequest("ok")
	s.metrics.ObserveResolveLatency("fresh", time.Since(started).Seconds())
	return av, nil
}

// externalBusy fetches the professional's busy intervals over the salon's
// day window. The three calendar failure modes map to: not configured skips
// the external check, permission and transient errors fail closed.
func (s *Service) externalBusy(ctx context.Context, salonID string, pro *catalog.Professional, date string) ([]calendar.Interval, bool, error) {
	if pro.GoogleCalendarID == "" || s.busySource == nil {
		return nil, false, nil
	}

	windowStart, err := clockOn(date, s.windowStart, s.location)
	if err != nil {
		return nil, false, fmt.Errorf("scheduling: day window start: %w", err)
	}
	windowEnd, err := clockOn(date, s.windowEnd, s.location)
	if err != nil {
		return nil, false, fmt.Errorf("scheduling: day window end: %w", err)
	}

	busy, err := s.busySource.BusyIntervals(ctx, pro.GoogleCalendarID, windowStart, windowEnd)
	if err != nil {
		reason := calendar.ReasonOf(err)
		if reason == calendar.ReasonNotConfigured {
			return nil, false, nil
		}
		s.logger.Warn("external calendar unavailable, failing closed",
			"professionalId", pro.ID, "date", date, "reason", string(reason), "error", err)
		s.metrics.ObserveDegraded(string(reason))
		if reason == calendar.ReasonPermissionDenied {
			s.alertOwner(ctx, salonID, pro.Name, string(reason))
		}
		return nil, true, nil
	}
	return busy, false, nil
}

// alertOwner emails the salon owner that the calendar integration broke, at
// most once per salon per hour.
func (s *Service) alertOwner(ctx context.Context, salonID, professionalName, reason string) {
	if s.alerter == nil || s.salons == nil {
		return
	}

	s.alertMu.Lock()
	last, seen := s.lastAlert[salonID]
	if seen && time.Since(last) < time.Hour {
		s.alertMu.Unlock()
		return
	}
	s.lastAlert[salonID] = time.Now()
	s.alertMu.Unlock()

	sal, err := s.salons.Get(ctx, salonID)
	if err != nil || sal.OwnerEmail == "" {
		return
	}
	if err := s.alerter.CalendarBroken(ctx, sal.OwnerEmail, professionalName, reason); err != nil {
		s.logger.Warn("cannot send calendar-broken alert", "salonId", salonID, "error", err)
	}
}

// InvalidateDay drops cached availability after a booking write.
func (s *Service) InvalidateDay(ctx context.Context, salonID, professionalID, date string) {
	s.cache.Invalidate(ctx, salonID, professionalID, date)
}

// SlotTimes exposes the salon's fixed slot grid.
func (s *Service) SlotTimes() []string {
	return s.slots.Times()
}

// Location exposes the salon's timezone.
func (s *Service) Location() *time.Location {
	return s.location
}
