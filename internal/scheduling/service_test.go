package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/laviebeauty/lavie-platform/internal/calendar"
	"github.com/laviebeauty/lavie-platform/internal/catalog"
	"github.com/laviebeauty/lavie-platform/internal/salon"
	"github.com/laviebeauty/lavie-platform/pkg/logging"
)

type stubCatalog struct {
	service      *catalog.Service
	professional *catalog.Professional
	serviceErr   error
}

func (s *stubCatalog) GetService(ctx context.Context, salonID, id string) (*catalog.Service, error) {
	if s.serviceErr != nil {
		return nil, s.serviceErr
	}
	return s.service, nil
}

func (s *stubCatalog) GetProfessional(ctx context.Context, salonID, id string) (*catalog.Professional, error) {
	return s.professional, nil
}

type stubBookings struct {
	times []string
	err   error
	calls int
}

func (s *stubBookings) ConfirmedStartTimes(ctx context.Context, salonID, professionalID, date string) ([]string, error) {
	s.calls++
	return s.times, s.err
}

type stubBusy struct {
	intervals []calendar.Interval
	err       error
	calls     int
}

func (s *stubBusy) BusyIntervals(ctx context.Context, calendarID string, start, end time.Time) ([]calendar.Interval, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.intervals, nil
}

func newTestService(t *testing.T, cat *stubCatalog, bookings *stubBookings, busy *stubBusy, rdb *redis.Client) *Service {
	t.Helper()
	slots, err := NewSlotCalendar([]string{"09:00", "10:00", "11:00"})
	if err != nil {
		t.Fatalf("NewSlotCalendar: %v", err)
	}
	var source BusySource
	if busy != nil {
		source = busy
	}
	return NewService(cat, bookings, source, slots, saoPaulo, logging.New("error"), ServiceOptions{
		Redis:    rdb,
		CacheTTL: time.Minute,
	})
}

func defaultCatalog() *stubCatalog {
	return &stubCatalog{
		service:      &catalog.Service{ID: "svc-1", Name: "Corte Feminino", DurationMinutes: 60},
		professional: &catalog.Professional{ID: "pro-1", Name: "Amanda", GoogleCalendarID: "amanda@lavie.example"},
	}
}

func TestResolveMergesInternalAndExternalBusy(t *testing.T) {
	busy := &stubBusy{intervals: []calendar.Interval{busyWindow(t, "2026-09-01", "09:30", "10:30")}}
	svc := newTestService(t, defaultCatalog(), &stubBookings{times: []string{"11:00"}}, busy, nil)

	avail, err := svc.Resolve(context.Background(), "salon-1", "pro-1", "svc-1", "2026-09-01")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if avail.CalendarDegraded {
		t.Fatal("did not expect degraded resolution")
	}
	if len(avail.Slots) != 0 {
		t.Fatalf("expected fully booked day, got %v", avail.Slots)
	}
}

func TestResolveFailsClosedOnTransientCalendarError(t *testing.T) {
	busy := &stubBusy{err: &calendar.Error{Reason: calendar.ReasonTransient, Op: "freebusy", Err: errors.New("timeout")}}
	svc := newTestService(t, defaultCatalog(), &stubBookings{}, busy, nil)

	avail, err := svc.Resolve(context.Background(), "salon-1", "pro-1", "svc-1", "2026-09-01")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !avail.CalendarDegraded {
		t.Fatal("expected CalendarDegraded on transient calendar failure")
	}
	if len(avail.Slots) != 0 {
		t.Fatalf("fail-closed resolution must offer no slots, got %v", avail.Slots)
	}
}

func TestResolveFailsClosedOnPermissionError(t *testing.T) {
	busy := &stubBusy{err: &calendar.Error{Reason: calendar.ReasonPermissionDenied, Op: "freebusy", Err: errors.New("403")}}
	svc := newTestService(t, defaultCatalog(), &stubBookings{}, busy, nil)

	avail, err := svc.Resolve(context.Background(), "salon-1", "pro-1", "svc-1", "2026-09-01")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !avail.CalendarDegraded || len(avail.Slots) != 0 {
		t.Fatalf("expected degraded empty day, got %+v", avail)
	}
}

func TestResolveSkipsExternalCheckWhenNotConfigured(t *testing.T) {
	cat := defaultCatalog()
	cat.professional.GoogleCalendarID = ""
	busy := &stubBusy{intervals: []calendar.Interval{busyWindow(t, "2026-09-01", "09:00", "12:00")}}
	svc := newTestService(t, cat, &stubBookings{times: []string{"10:00"}}, busy, nil)

	avail, err := svc.Resolve(context.Background(), "salon-1", "pro-1", "svc-1", "2026-09-01")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if busy.calls != 0 {
		t.Fatal("external calendar must not be queried without a calendar id")
	}
	if want := []string{"09:00", "11:00"}; len(avail.Slots) != 2 || avail.Slots[0] != want[0] || avail.Slots[1] != want[1] {
		t.Fatalf("available = %v, want %v", avail.Slots, want)
	}
}

func TestResolveDegradesInternalReadToEmpty(t *testing.T) {
	svc := newTestService(t, defaultCatalog(), &stubBookings{err: errors.New("db down")}, &stubBusy{}, nil)

	avail, err := svc.Resolve(context.Background(), "salon-1", "pro-1", "svc-1", "2026-09-01")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(avail.Slots) != 3 {
		t.Fatalf("expected full grid when internal read degrades, got %v", avail.Slots)
	}
}

func TestResolveUsesCacheOnSecondCall(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	bookings := &stubBookings{}
	busy := &stubBusy{}
	svc := newTestService(t, defaultCatalog(), bookings, busy, rdb)

	if _, err := svc.Resolve(context.Background(), "salon-1", "pro-1", "svc-1", "2026-09-01"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, err := svc.Resolve(context.Background(), "salon-1", "pro-1", "svc-1", "2026-09-01"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if busy.calls != 1 {
		t.Fatalf("expected one freebusy call, got %d", busy.calls)
	}

	svc.InvalidateDay(context.Background(), "salon-1", "pro-1", "2026-09-01")
	if _, err := svc.Resolve(context.Background(), "salon-1", "pro-1", "svc-1", "2026-09-01"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if busy.calls != 2 {
		t.Fatalf("expected cache invalidation to force a fresh resolve, got %d calls", busy.calls)
	}
}

func TestResolveReturnsExternalBusyIntervals(t *testing.T) {
	window := busyWindow(t, "2026-09-01", "09:30", "10:30")
	busy := &stubBusy{intervals: []calendar.Interval{window}}
	svc := newTestService(t, defaultCatalog(), &stubBookings{}, busy, nil)

	avail, err := svc.Resolve(context.Background(), "salon-1", "pro-1", "svc-1", "2026-09-01")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(avail.Busy) != 1 || !avail.Busy[0].Start.Equal(window.Start) {
		t.Fatalf("expected busy window in response, got %+v", avail.Busy)
	}
}

type stubAlerter struct {
	emails  []string
	reasons []string
}

func (s *stubAlerter) CalendarBroken(ctx context.Context, ownerEmail, professionalName, reason string) error {
	s.emails = append(s.emails, ownerEmail)
	s.reasons = append(s.reasons, reason)
	return nil
}

type stubSalons struct{ owner string }

func (s *stubSalons) Get(ctx context.Context, id string) (*salon.Salon, error) {
	return &salon.Salon{ID: id, Name: "La Vie Beauty", OwnerEmail: s.owner}, nil
}

func TestResolveAlertsOwnerOncePerHourOnPermissionDenied(t *testing.T) {
	slots, err := NewSlotCalendar([]string{"09:00", "10:00"})
	if err != nil {
		t.Fatalf("NewSlotCalendar: %v", err)
	}
	alerter := &stubAlerter{}
	busy := &stubBusy{err: &calendar.Error{Reason: calendar.ReasonPermissionDenied, Op: "freebusy", Err: errors.New("403")}}
	svc := NewService(defaultCatalog(), &stubBookings{}, busy, slots, saoPaulo, logging.New("error"), ServiceOptions{
		Alerter: alerter,
		Salons:  &stubSalons{owner: "dona@lavie.example"},
	})

	for i := 0; i < 3; i++ {
		if _, err := svc.Resolve(context.Background(), "salon-1", "pro-1", "svc-1", "2026-09-01"); err != nil {
			t.Fatalf("Resolve: %v", err)
		}
	}

	if len(alerter.emails) != 1 {
		t.Fatalf("expected one throttled alert, got %d", len(alerter.emails))
	}
	if alerter.emails[0] != "dona@lavie.example" || alerter.reasons[0] != string(calendar.ReasonPermissionDenied) {
		t.Fatalf("unexpected alert %v %v", alerter.emails, alerter.reasons)
	}
}

func TestResolveDefaultsServiceDuration(t *testing.T) {
	// A service saved without a duration still blocks the slot its busy
	// window covers instead of resolving with a zero-length appointment.
	cat := defaultCatalog()
	cat.service.DurationMinutes = 0
	busy := &stubBusy{intervals: []calendar.Interval{busyWindow(t, "2026-09-01", "09:30", "10:30")}}
	svc := newTestService(t, cat, &stubBookings{}, busy, nil)

	avail, err := svc.Resolve(context.Background(), "salon-1", "pro-1", "svc-1", "2026-09-01")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := []string{"11:00"}; len(avail.Slots) != 1 || avail.Slots[0] != want[0] {
		t.Fatalf("available = %v, want %v", avail.Slots, want)
	}
}

func TestResolveRejectsBadDate(t *testing.T) {
	svc := newTestService(t, defaultCatalog(), &stubBookings{}, &stubBusy{}, nil)
	if _, err := svc.Resolve(context.Background(), "salon-1", "pro-1", "svc-1", "01/09/2026"); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestResolvePropagatesUnknownService(t *testing.T) {
	cat := defaultCatalog()
	cat.serviceErr = catalog.ErrServiceNotFound
	svc := newTestService(t, cat, &stubBookings{}, &stubBusy{}, nil)

	_, err := svc.Resolve(context.Background(), "salon-1", "pro-1", "missing", "2026-09-01")
	if !errors.Is(err, catalog.ErrServiceNotFound) {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}
}
