package calendarsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/laviebeauty/lavie-platform/internal/booking"
	"github.com/laviebeauty/lavie-platform/internal/calendar"
	"github.com/laviebeauty/lavie-platform/internal/catalog"
	"github.com/laviebeauty/lavie-platform/pkg/logging"
)

type fixture struct {
	salons   []string
	mirrored []booking.Booking
	deleted  []string
	existing map[string]bool
	checkErr error
	windows  [][2]string
}

func (f *fixture) ListIDs(ctx context.Context) ([]string, error) { return f.salons, nil }

func (f *fixture) ListMirrored(ctx context.Context, salonID, from, to string, limit int) ([]booking.Booking, error) {
	f.windows = append(f.windows, [2]string{from, to})
	return f.mirrored, nil
}

func (f *fixture) Delete(ctx context.Context, salonID, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fixture) GetProfessional(ctx context.Context, salonID, id string) (*catalog.Professional, error) {
	return &catalog.Professional{ID: id, GoogleCalendarID: "pro@lavie.example"}, nil
}

func (f *fixture) EventExists(ctx context.Context, calendarID, eventID string) (bool, error) {
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return f.existing[eventID], nil
}

func newFixture() *fixture {
	return &fixture{
		salons: []string{"salon-1"},
		mirrored: []booking.Booking{
			{ID: "bk-1", ProfessionalID: "pro-1", Date: "2026-09-01", StartTime: "10:00", ExternalEventID: "ev-1"},
			{ID: "bk-2", ProfessionalID: "pro-1", Date: "2026-09-01", StartTime: "11:00", ExternalEventID: "ev-2"},
		},
		existing: map[string]bool{"ev-1": true},
	}
}

func TestSweepRemovesStaleBookings(t *testing.T) {
	f := newFixture()
	w := NewWorker(f, f, f, f, logging.New("error"))

	removed := w.Sweep(context.Background())
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if len(f.deleted) != 1 || f.deleted[0] != "bk-2" {
		t.Fatalf("deleted = %v, want [bk-2]", f.deleted)
	}
}

func TestSweepLeavesBookingsOnTransientError(t *testing.T) {
	f := newFixture()
	f.checkErr = &calendar.Error{Reason: calendar.ReasonTransient, Op: "get", Err: errors.New("503")}
	w := NewWorker(f, f, f, f, logging.New("error"))

	if removed := w.Sweep(context.Background()); removed != 0 {
		t.Fatalf("transient errors must not remove bookings, removed %d", removed)
	}
	if len(f.deleted) != 0 {
		t.Fatalf("deleted = %v, want none", f.deleted)
	}
}

func TestSweepBoundsTheDateWindow(t *testing.T) {
	f := newFixture()
	w := NewWorker(f, f, f, f, logging.New("error")).WithWindowDays(7)

	w.Sweep(context.Background())
	if len(f.windows) != 1 {
		t.Fatalf("expected one mirrored listing, got %d", len(f.windows))
	}
	from, to := f.windows[0][0], f.windows[0][1]
	wantFrom := time.Now().Format("2006-01-02")
	wantTo := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	if from != wantFrom || to != wantTo {
		t.Fatalf("window = [%s, %s], want [%s, %s]", from, to, wantFrom, wantTo)
	}
}

type recordingInvalidator struct {
	days []string
}

func (r *recordingInvalidator) InvalidateDay(ctx context.Context, salonID, professionalID, date string) {
	r.days = append(r.days, date)
}

func TestSweepInvalidatesAvailability(t *testing.T) {
	f := newFixture()
	inv := &recordingInvalidator{}
	w := NewWorker(f, f, f, f, logging.New("error")).WithInvalidator(inv)

	w.Sweep(context.Background())
	if len(inv.days) != 1 || inv.days[0] != "2026-09-01" {
		t.Fatalf("invalidated days = %v", inv.days)
	}
}
