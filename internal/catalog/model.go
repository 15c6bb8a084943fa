// Package catalog holds the tenant-scoped service catalog and staff roster
// consumed by the booking flow and the assistant prompt builder.
package catalog

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrServiceNotFound indicates the service id does not exist for the salon.
	ErrServiceNotFound = errors.New("catalog: service not found")
	// ErrProfessionalNotFound indicates the professional id does not exist for the salon.
	ErrProfessionalNotFound = errors.New("catalog: professional not found")
)

// Service is a bookable catalog entry.
type Service struct {
	ID              string    `json:"id"`
	SalonID         string    `json:"salon_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Category        string    `json:"category,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	PriceCents      int64     `json:"price_cents"`
	CreatedAt       time.Time `json:"created_at"`
}

// Professional is a staff member who can be booked. GoogleCalendarID is the
// opaque external calendar reference; empty means no calendar integration.
type Professional struct {
	ID               string    `json:"id"`
	SalonID          string    `json:"salon_id"`
	Name             string    `json:"name"`
	GoogleCalendarID string    `json:"google_calendar_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// CreateServiceRequest carries admin input for a new catalog entry.
type CreateServiceRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
}

// Validate enforces catalog invariants before persistence.
func (r *CreateServiceRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("catalog: service name is required")
	}
	if r.DurationMinutes <= 0 {
		return errors.New("catalog: duration_minutes must be positive")
	}
	if r.PriceCents < 0 {
		return errors.New("catalog: price_cents cannot be negative")
	}
	return nil
}

// CreateProfessionalRequest carries admin input for a new staff member.
type CreateProfessionalRequest struct {
	Name             string `json:"name"`
	GoogleCalendarID string `json:"google_calendar_id"`
}

// Validate checks required professional fields.
func (r *CreateProfessionalRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("catalog: professional name is required")
	}
	return nil
}

// FindServiceByName does a case-insensitive exact-name lookup used by the
// assistant when resolving an action block against the live catalog.
func FindServiceByName(services []Service, name string) (Service, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return Service{}, false
	}
	for _, svc := range services {
		if strings.ToLower(strings.TrimSpace(svc.Name)) == want {
			return svc, true
		}
	}
	return Service{}, false
}
