package booking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/laviebeauty/lavie-platform/internal/catalog"
	"github.com/laviebeauty/lavie-platform/internal/tenancy"
	"github.com/laviebeauty/lavie-platform/pkg/logging"
)

// Booker abstracts the booking service for handler tests.
type Booker interface {
	Book(ctx context.Context, salonID string, req *CreateRequest) (*Booking, error)
	Cancel(ctx context.Context, salonID, id string) error
	ListForDay(ctx context.Context, salonID, date string) ([]Booking, error)
}

// Handler exposes the booking write path plus admin listing.
type Handler struct {
	svc    Booker
	logger *logging.Logger
}

func NewHandler(svc Booker, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Create handles POST /api/bookings.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	salonID, ok := tenancy.SalonIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing salon context", http.StatusBadRequest)
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	b, err := h.svc.Book(r.Context(), salonID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrSlotTaken):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "slot already taken"})
		case errors.Is(err, catalog.ErrServiceNotFound):
			http.Error(w, "service not found", http.StatusNotFound)
		case errors.Is(err, catalog.ErrProfessionalNotFound):
			http.Error(w, "professional not found", http.StatusNotFound)
		default:
			h.logger.Error("booking failed", "error", err, "salon_id", salonID)
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// ListForDay handles GET /admin/bookings?date=YYYY-MM-DD.
func (h *Handler) ListForDay(w http.ResponseWriter, r *http.Request) {
	salonID, ok := tenancy.SalonIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing salon context", http.StatusBadRequest)
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		http.Error(w, "date query parameter is required", http.StatusBadRequest)
		return
	}

	bookings, err := h.svc.ListForDay(r.Context(), salonID, date)
	if err != nil {
		h.logger.Error("failed to list bookings", "error", err, "salon_id", salonID, "date", date)
		http.Error(w, "failed to list bookings", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings, "count": len(bookings)})
}

// Cancel handles POST /admin/bookings/{bookingID}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	salonID, ok := tenancy.SalonIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing salon context", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "bookingID")
	if err := h.svc.Cancel(r.Context(), salonID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "booking not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to cancel booking", "error", err, "salon_id", salonID, "booking_id", id)
		http.Error(w, "failed to cancel booking", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
