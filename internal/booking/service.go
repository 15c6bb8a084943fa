package booking

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/laviebeauty/lavie-platform/internal/calendar"
	"github.com/laviebeauty/lavie-platform/internal/catalog"
	"github.com/laviebeauty/lavie-platform/internal/observability/metrics"
	"github.com/laviebeauty/lavie-platform/pkg/logging"
)

// Store is the repository surface the service needs.
type Store interface {
	InsertConfirmed(ctx context.Context, salonID string, req *CreateRequest, durationMinutes int) (*Booking, error)
	Get(ctx context.Context, salonID, id string) (*Booking, error)
	SetExternalEventRef(ctx context.Context, salonID, id, eventID, eventLink string) error
	Cancel(ctx context.Context, salonID, id string) error
	ListForDay(ctx context.Context, salonID, date string) ([]Booking, error)
}

// CatalogReader resolves the service and professional being booked.
type CatalogReader interface {
	GetService(ctx context.Context, salonID, id string) (*catalog.Service, error)
	GetProfessional(ctx context.Context, salonID, id string) (*catalog.Professional, error)
}

// EventWriter mirrors a booking into the professional's calendar.
type EventWriter interface {
	CreateEvent(ctx context.Context, calendarID string, in calendar.EventInput) (*calendar.EventRef, error)
}

// Notifier sends the confirmation email. Failures are logged, never fatal.
type Notifier interface {
	BookingConfirmed(ctx context.Context, b *Booking, serviceName, professionalName string) error
}

// CacheInvalidator drops cached availability for the booked day.
type CacheInvalidator interface {
	InvalidateDay(ctx context.Context, salonID, professionalID, date string)
}

// Service is the single write path for bookings. The database insert is the
// commit point; the calendar mirror and email run after it and never undo it.
type Service struct {
	store       Store
	catalog     CatalogReader
	events      EventWriter
	notifier    Notifier
	invalidator CacheInvalidator
	slotTimes   map[string]struct{}
	location    *time.Location
	metrics     *metrics.BookingMetrics
	logger      *logging.Logger
	tracer      trace.Tracer
}

// ServiceOptions configures optional collaborators.
type ServiceOptions struct {
	Events      EventWriter
	Notifier    Notifier
	Invalidator CacheInvalidator
	Metrics     *metrics.BookingMetrics
	Tracer      trace.Tracer
}

func NewService(store Store, catalogReader CatalogReader, slotTimes []string, location *time.Location, logger *logging.Logger, opts ServiceOptions) *Service {
	if store == nil {
		panic("booking: store cannot be nil")
	}
	if catalogReader == nil {
		panic("booking: catalog reader cannot be nil")
	}
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = logging.New("info")
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("lavie.internal.booking")
	}
	grid := make(map[string]struct{}, len(slotTimes))
	for _, t := range slotTimes {
		grid[t] = struct{}{}
	}
	return &Service{
		store:       store,
		catalog:     catalogReader,
		events:      opts.Events,
		notifier:    opts.Notifier,
		invalidator: opts.Invalidator,
		slotTimes:   grid,
		location:    location,
		metrics:     opts.Metrics,
		logger:      logger,
		tracer:      tracer,
	}
}

// Book validates the request, claims the slot atomically, then mirrors the
// booking to the professional's calendar and emails the customer on a
// best-effort basis.
func (s *Service) Book(ctx context.Context, salonID string, req *CreateRequest) (*Booking, error) {
	ctx, span := s.tracer.Start(ctx, "booking.book", trace.WithAttributes(
		attribute.String("salon.id", salonID),
		attribute.String("booking.date", req.Date),
		attribute.String("booking.start_time", req.StartTime),
	))
	defer span.End()

	if err := req.Validate(); err != nil {
		s.metrics.ObserveCreated("invalid")
		return nil, err
	}
	if len(s.slotTimes) > 0 {
		if _, ok := s.slotTimes[req.StartTime]; !ok {
			s.metrics.ObserveCreated("invalid")
			return nil, fmt.Errorf("booking: %q is not a bookable slot", req.StartTime)
		}
	}

	svc, err := s.catalog.GetService(ctx, salonID, req.ServiceID)
	if err != nil {
		s.metrics.ObserveCreated("error")
		return nil, fmt.Errorf("booking: resolve service: %w", err)
	}
	pro, err := s.catalog.GetProfessional(ctx, salonID, req.ProfessionalID)
	if err != nil {
		s.metrics.ObserveCreated("error")
		return nil, fmt.Errorf("booking: resolve professional: %w", err)
	}

	b, err := s.store.InsertConfirmed(ctx, salonID, req, svc.DurationMinutes)
	if err != nil {
		if err == ErrSlotTaken {
			s.metrics.ObserveConflict()
			s.metrics.ObserveCreated("conflict")
			return nil, err
		}
		s.metrics.ObserveCreated("error")
		return nil, err
	}
	s.metrics.ObserveCreated("confirmed")
	s.logger.Info("booking confirmed",
		"salon_id", salonID, "booking_id", b.ID,
		"professional_id", b.ProfessionalID, "date", b.Date, "start_time", b.StartTime)

	if s.invalidator != nil {
		s.invalidator.InvalidateDay(ctx, salonID, b.ProfessionalID, b.Date)
	}
	s.mirrorEvent(ctx, b, svc, pro)
	s.notify(ctx, b, svc.Name, pro.Name)
	return b, nil
}

func (s *Service) mirrorEvent(ctx context.Context, b *Booking, svc *catalog.Service, pro *catalog.Professional) {
	if s.events == nil || pro.GoogleCalendarID == "" {
		return
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", b.Date+" "+b.StartTime, s.location)
	if err != nil {
		s.logger.Error("cannot build mirror event time", "booking_id", b.ID, "error", err)
		s.metrics.ObserveMirror("error")
		return
	}
	ref, err := s.events.CreateEvent(ctx, pro.GoogleCalendarID, calendar.EventInput{
		Summary:     fmt.Sprintf("%s - %s", svc.Name, b.CustomerName),
		Description: fmt.Sprintf("Reserva via La Vie Beauty. Cliente: %s %s", b.CustomerName, b.CustomerPhone),
		Start:       start,
		End:         start.Add(time.Duration(b.DurationMinutes) * time.Minute),
		Timezone:    s.location.String(),
	})
	if err != nil {
		// Mirror is best effort: the booking stands even when the calendar
		// write fails.
		s.logger.Warn("calendar mirror failed", "booking_id", b.ID, "error", err)
		s.metrics.ObserveMirror("failed")
		return
	}
	if err := s.store.SetExternalEventRef(ctx, b.SalonID, b.ID, ref.ID, ref.HTMLLink); err != nil {
		s.logger.Warn("cannot store mirror event ref", "booking_id", b.ID, "error", err)
		s.metrics.ObserveMirror("unrecorded")
		return
	}
	b.ExternalEventID = ref.ID
	b.ExternalEventLink = ref.HTMLLink
	s.metrics.ObserveMirror("ok")
}

func (s *Service) notify(ctx context.Context, b *Booking, serviceName, professionalName string) {
	if s.notifier == nil || b.CustomerEmail == "" {
		return
	}
	if err := s.notifier.BookingConfirmed(ctx, b, serviceName, professionalName); err != nil {
		s.logger.Warn("confirmation email failed", "booking_id", b.ID, "error", err)
	}
}

// Cancel marks a booking cancelled and frees its availability slot.
func (s *Service) Cancel(ctx context.Context, salonID, id string) error {
	b, err := s.store.Get(ctx, salonID, id)
	if err != nil {
		return err
	}
	if err := s.store.Cancel(ctx, salonID, id); err != nil {
		return err
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateDay(ctx, salonID, b.ProfessionalID, b.Date)
	}
	s.logger.Info("booking cancelled", "salon_id", salonID, "booking_id", id)
	return nil
}

// ListForDay returns the salon's bookings on a date.
func (s *Service) ListForDay(ctx context.Context, salonID, date string) ([]Booking, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("booking: invalid date %q", date)
	}
	return s.store.ListForDay(ctx, salonID, date)
}
