// Package booking is the single write path for appointments: an atomic slot
// claim backed by a partial unique index, with a best-effort calendar mirror
// and confirmation email after the commit point.
package booking

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Booking statuses. A cancelled booking frees its slot immediately.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

var (
	// ErrSlotTaken is returned when another confirmed booking already holds
	// the professional/date/time triple.
	ErrSlotTaken = errors.New("booking: slot already taken")

	// ErrNotFound is returned when a booking id does not exist for the salon.
	ErrNotFound = errors.New("booking: not found")
)

var timePattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

// Booking is one confirmed appointment.
type Booking struct {
	ID                string    `json:"id"`
	SalonID           string    `json:"salonId"`
	ProfessionalID    string    `json:"professionalId"`
	ServiceID         string    `json:"serviceId"`
	CustomerName      string    `json:"customerName"`
	CustomerEmail     string    `json:"customerEmail,omitempty"`
	CustomerPhone     string    `json:"customerPhone,omitempty"`
	Date              string    `json:"date"`
	StartTime         string    `json:"startTime"`
	DurationMinutes   int       `json:"durationMinutes"`
	Status            string    `json:"status"`
	ExternalEventID   string    `json:"externalEventId,omitempty"`
	ExternalEventLink string    `json:"externalEventLink,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// CreateRequest carries the fields a caller supplies when booking a slot.
type CreateRequest struct {
	ProfessionalID string `json:"professionalId"`
	ServiceID      string `json:"serviceId"`
	CustomerName   string `json:"customerName"`
	CustomerEmail  string `json:"customerEmail"`
	CustomerPhone  string `json:"customerPhone"`
	Date           string `json:"date"`
	StartTime      string `json:"startTime"`
	Notes          string `json:"notes"`
}

func (r *CreateRequest) Validate() error {
	if r.ProfessionalID == "" {
		return errors.New("booking: professionalId is required")
	}
	if r.ServiceID == "" {
		return errors.New("booking: serviceId is required")
	}
	if r.CustomerName == "" {
		return errors.New("booking: customerName is required")
	}
	if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		return fmt.Errorf("booking: invalid date %q", r.Date)
	}
	if !timePattern.MatchString(r.StartTime) {
		return fmt.Errorf("booking: invalid startTime %q", r.StartTime)
	}
	return nil
}
